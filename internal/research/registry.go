// Package research tracks which technologies are unlocked.
package research

import "sort"

// Registry is the set of unlocked research ids.
type Registry struct {
	unlocked map[string]bool
}

// NewRegistry creates a registry with the given ids already unlocked.
func NewRegistry(ids ...string) *Registry {
	r := &Registry{unlocked: make(map[string]bool, len(ids))}
	for _, id := range ids {
		r.Unlock(id)
	}
	return r
}

// Unlock marks id as researched. Reports false if it already was.
func (r *Registry) Unlock(id string) bool {
	if id == "" || r.unlocked[id] {
		return false
	}
	r.unlocked[id] = true
	return true
}

// IsUnlocked reports whether id is researched. The empty id gates nothing.
func (r *Registry) IsUnlocked(id string) bool {
	return id == "" || r.unlocked[id]
}

// Unlocked lists researched ids in sorted order.
func (r *Registry) Unlocked() []string {
	out := make([]string, 0, len(r.unlocked))
	for id := range r.unlocked {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
