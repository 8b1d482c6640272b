// Package quota implements quota-guarantee storage and the headroom
// accounting spec.md §4.4 requires before any above-guarantee allocation
// can safely proceed.
package quota

import "hierarchical-allocator/internal/resources"

// Quota stores the per-top-level-role guarantee map. Only one guarantee may
// ever be active for a given role at a time (spec.md §7: setting quota
// twice on a role is a programmer-contract violation).
type Quota struct {
	Guarantees map[string]resources.Quantities
}

// New returns an empty Quota store.
func New() *Quota {
	return &Quota{Guarantees: make(map[string]resources.Quantities)}
}

// Set installs guarantee for role. Panics if role already has a guarantee —
// the master is expected to call RemoveQuota first.
func (q *Quota) Set(role string, guarantee resources.Quantities) {
	if _, exists := q.Guarantees[role]; exists {
		panic("quota: role " + role + " already has a quota guarantee")
	}
	q.Guarantees[role] = guarantee
}

// Remove clears role's guarantee, if any.
func (q *Quota) Remove(role string) {
	delete(q.Guarantees, role)
}

// Get returns role's guarantee and whether one is set.
func (q *Quota) Get(role string) (resources.Quantities, bool) {
	g, ok := q.Guarantees[role]
	return g, ok
}

// Roles returns every quota'ed role name.
func (q *Quota) Roles() []string {
	out := make([]string, 0, len(q.Guarantees))
	for role := range q.Guarantees {
		out = append(out, role)
	}
	return out
}
