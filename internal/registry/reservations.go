package registry

import "hierarchical-allocator/internal/resources"

// ReservationTracker maintains, for every role that has at least one
// reservation anywhere in the cluster, the aggregated scalar reservation
// quantities rolled up to that role and to every ancestor of that role
// (spec.md §3, §4.2 "trackReservations").
type ReservationTracker struct {
	byRole map[string]resources.Quantities
}

// NewReservationTracker returns an empty tracker.
func NewReservationTracker() *ReservationTracker {
	return &ReservationTracker{byRole: make(map[string]resources.Quantities)}
}

// Track adds reserved's scalar quantities, per role found in reserved's
// entries, to that role and every ancestor.
func (t *ReservationTracker) Track(reserved resources.Resources) {
	byRole := groupByRole(reserved)
	for role, q := range byRole {
		for _, ancestor := range Ancestors(role) {
			t.byRole[ancestor] = t.byRole[ancestor].Add(q)
		}
	}
}

// Untrack removes reserved's contribution; the inverse of Track. Applying
// Track then Untrack with the same map is the identity (spec.md §8).
func (t *ReservationTracker) Untrack(reserved resources.Resources) {
	byRole := groupByRole(reserved)
	for role, q := range byRole {
		for _, ancestor := range Ancestors(role) {
			remaining := t.byRole[ancestor].Sub(q)
			for name, v := range remaining {
				if v.IsZero() {
					delete(remaining, name)
				}
			}
			if len(remaining) == 0 {
				delete(t.byRole, ancestor)
			} else {
				t.byRole[ancestor] = remaining
			}
		}
	}
}

// ReservationScalarQuantities returns the aggregated reservation for role
// (including amounts reserved on descendant roles, already rolled up by Track).
func (t *ReservationTracker) ReservationScalarQuantities(role string) resources.Quantities {
	if q, ok := t.byRole[role]; ok {
		return q.Clone()
	}
	return resources.Quantities{}
}

func groupByRole(r resources.Resources) map[string]resources.Quantities {
	out := make(map[string]resources.Quantities)
	for _, e := range r.Reserved().Entries() {
		if out[e.Role] == nil {
			out[e.Role] = resources.Quantities{}
		}
		out[e.Role][e.Name] = out[e.Role].Get(e.Name).Add(e.Scalar)
	}
	return out
}
