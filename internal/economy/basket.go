// Package economy provides the resource ledger and the shared worker pool.
package economy

import "sort"

// ResourceID names a resource pool (e.g. "wood", "bread").
type ResourceID string

// Basket is a set of resource quantities: a consumption or production map.
type Basket map[ResourceID]int64

// Clone returns an independent copy. A nil basket clones to nil.
func (b Basket) Clone() Basket {
	if b == nil {
		return nil
	}
	out := make(Basket, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Keys returns the basket's resource ids in sorted order so callers iterate
// deterministically.
func (b Basket) Keys() []ResourceID {
	keys := make([]ResourceID, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Add accumulates other into b.
func (b Basket) Add(other Basket) {
	for k, v := range other {
		b[k] += v
	}
}

// Equal reports whether both baskets hold the same non-zero quantities.
func (b Basket) Equal(other Basket) bool {
	for k, v := range b {
		if v != 0 && other[k] != v {
			return false
		}
	}
	for k, v := range other {
		if v != 0 && b[k] != v {
			return false
		}
	}
	return true
}

// Delta returns the positive increments needed to go from b to next.
// Keys whose quantity does not grow are omitted.
func (b Basket) Delta(next Basket) Basket {
	out := make(Basket)
	for k, v := range next {
		if d := v - b[k]; d > 0 {
			out[k] = d
		}
	}
	return out
}

// FirstShortfall returns the first resource (in sorted key order) whose
// requirement exceeds what is available, or "" when everything is covered.
func (b Basket) FirstShortfall(available map[ResourceID]int64) ResourceID {
	for _, k := range b.Keys() {
		if b[k] > available[k] {
			return k
		}
	}
	return ""
}
