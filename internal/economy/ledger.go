package economy

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrUnknownResource is returned when a write names a resource the ledger does not define.
	ErrUnknownResource = errors.New("economy: unknown resource")
	// ErrInsufficient is returned when a bulk spend would drive an amount below zero.
	ErrInsufficient = errors.New("economy: insufficient amount")
)

// rateEpsilon absorbs float drift when rates are unregistered.
const rateEpsilon = 1e-9

// Ledger is the authoritative store of resource amounts, capacities and the
// running production/consumption rate registries.
//
// Amounts only change through SpendBulk, AddBulk, SetAmount and
// ApplyCapacityClamp. Rates are bookkeeping for long-run surplus and never
// move amounts.
type Ledger struct {
	amounts     map[ResourceID]int64
	capacity    map[ResourceID]int64 // absent = unbounded
	production  map[ResourceID]float64
	consumption map[ResourceID]float64
	ids         []ResourceID
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		amounts:     make(map[ResourceID]int64),
		capacity:    make(map[ResourceID]int64),
		production:  make(map[ResourceID]float64),
		consumption: make(map[ResourceID]float64),
	}
}

// Define declares a resource with an initial amount. A capacity <= 0 means
// unbounded. Redefining a resource overwrites its amount and capacity.
func (l *Ledger) Define(id ResourceID, initial, capacity int64) {
	if _, ok := l.amounts[id]; !ok {
		l.ids = append(l.ids, id)
		sort.Slice(l.ids, func(i, j int) bool { return l.ids[i] < l.ids[j] })
	}
	if initial < 0 {
		initial = 0
	}
	l.amounts[id] = initial
	if capacity > 0 {
		l.capacity[id] = capacity
	} else {
		delete(l.capacity, id)
	}
}

// Has reports whether the resource is defined.
func (l *Ledger) Has(id ResourceID) bool {
	_, ok := l.amounts[id]
	return ok
}

// Amount returns the current amount (0 for unknown resources).
func (l *Ledger) Amount(id ResourceID) int64 {
	return l.amounts[id]
}

// SetAmount overwrites a single amount. Used when restoring saved state.
func (l *Ledger) SetAmount(id ResourceID, amount int64) error {
	if !l.Has(id) {
		return fmt.Errorf("set %q: %w", id, ErrUnknownResource)
	}
	if amount < 0 {
		return fmt.Errorf("set %q to %d: %w", id, amount, ErrInsufficient)
	}
	l.amounts[id] = amount
	return nil
}

// Capacity returns the capacity and whether the resource is bounded.
func (l *Ledger) Capacity(id ResourceID) (int64, bool) {
	c, ok := l.capacity[id]
	return c, ok
}

// ResourceIDs returns every defined resource in sorted order.
func (l *Ledger) ResourceIDs() []ResourceID {
	out := make([]ResourceID, len(l.ids))
	copy(out, l.ids)
	return out
}

// SpendBulk subtracts every entry in one all-or-nothing step.
func (l *Ledger) SpendBulk(spend Basket) error {
	for _, id := range spend.Keys() {
		if !l.Has(id) {
			return fmt.Errorf("spend %q: %w", id, ErrUnknownResource)
		}
		if spend[id] > l.amounts[id] {
			return fmt.Errorf("spend %d %q of %d: %w", spend[id], id, l.amounts[id], ErrInsufficient)
		}
	}
	for id, v := range spend {
		l.amounts[id] -= v
	}
	return nil
}

// AddBulk credits every entry in one all-or-nothing step. Amounts may exceed
// capacity until ApplyCapacityClamp runs.
func (l *Ledger) AddBulk(add Basket) error {
	for id, v := range add {
		if !l.Has(id) {
			return fmt.Errorf("add %q: %w", id, ErrUnknownResource)
		}
		if v < 0 {
			return fmt.Errorf("add negative %d %q: %w", v, id, ErrInsufficient)
		}
	}
	for id, v := range add {
		l.amounts[id] += v
	}
	return nil
}

// ApplyCapacityClamp brings every bounded amount back into [0, capacity].
func (l *Ledger) ApplyCapacityClamp() {
	for id, amount := range l.amounts {
		if c, ok := l.capacity[id]; ok && amount > c {
			l.amounts[id] = c
		}
		if amount < 0 {
			l.amounts[id] = 0
		}
	}
}

// RegisterProducer adds rate to the resource's production registry.
func (l *Ledger) RegisterProducer(id ResourceID, rate float64) {
	l.production[id] += rate
}

// UnregisterProducer removes rate from the production registry.
func (l *Ledger) UnregisterProducer(id ResourceID, rate float64) {
	l.production[id] = settle(l.production[id] - rate)
}

// RegisterConsumer adds rate to the resource's consumption registry.
func (l *Ledger) RegisterConsumer(id ResourceID, rate float64) {
	l.consumption[id] += rate
}

// UnregisterConsumer removes rate from the consumption registry.
func (l *Ledger) UnregisterConsumer(id ResourceID, rate float64) {
	l.consumption[id] = settle(l.consumption[id] - rate)
}

// ProductionRate returns the registered production rate.
func (l *Ledger) ProductionRate(id ResourceID) float64 {
	return l.production[id]
}

// ConsumptionRate returns the registered consumption rate.
func (l *Ledger) ConsumptionRate(id ResourceID) float64 {
	return l.consumption[id]
}

// Surplus returns production minus consumption for every defined resource,
// keeping only positive entries.
func (l *Ledger) Surplus() map[ResourceID]float64 {
	out := make(map[ResourceID]float64)
	for _, id := range l.ids {
		if d := l.production[id] - l.consumption[id]; d > rateEpsilon {
			out[id] = d
		}
	}
	return out
}

// Snapshot copies the current amounts.
func (l *Ledger) Snapshot() map[ResourceID]int64 {
	out := make(map[ResourceID]int64, len(l.amounts))
	for id, v := range l.amounts {
		out[id] = v
	}
	return out
}

func settle(v float64) float64 {
	if math.Abs(v) < rateEpsilon {
		return 0
	}
	return v
}
