package quota

import "hierarchical-allocator/internal/resources"

// ConsumedQuota computes consumedQuota[topRole] per spec.md §4.4:
// reservations rolled up to topRole, plus every subrole's unreserved,
// non-revocable, scalar allocation. subRoleAllocation maps every role name
// currently known (quota'ed or not) to its aggregate allocation across all
// frameworks and agents.
func ConsumedQuota(topRole string, topLevelOf func(role string) string, reservationScalars resources.Quantities, subRoleAllocation map[string]resources.Resources) resources.Quantities {
	total := reservationScalars.Clone()
	for role, alloc := range subRoleAllocation {
		if topLevelOf(role) != topRole {
			continue
		}
		restricted := alloc.Unreserved().NonRevocable().Scalars()
		total = total.Add(restricted.ToQuantities())
	}
	return total
}

// RequiredHeadroom sums, over every quota'ed role, max(0, guarantee - consumed).
func RequiredHeadroom(guarantees map[string]resources.Quantities, consumed map[string]resources.Quantities) resources.Quantities {
	required := resources.Quantities{}
	for role, guarantee := range guarantees {
		deficit := guarantee.Sub(consumed[role]).Max0()
		required = required.Add(deficit)
	}
	return required
}

// AvailableHeadroom computes totalCluster - allocated - unallocatedReservations
// - unallocatedRevocable, each subtraction clamped at zero (spec.md §4.4,
// expanded order per SUPPLEMENTED FEATURES).
func AvailableHeadroom(clusterTotal, allocated, unallocatedReservations, unallocatedRevocable resources.Quantities) resources.Quantities {
	return clusterTotal.Sub(allocated).Sub(unallocatedReservations).Sub(unallocatedRevocable)
}
