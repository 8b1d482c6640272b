package allocator

import "hierarchical-allocator/internal/resources"

// SetQuota installs a quota guarantee on a top-level role and registers the
// role with quotaRoleSorter so stage 1 of the next allocation run considers
// it (spec.md §4.4, §7 — setting quota on an already-quota'ed role is a
// programmer-contract violation and panics via quota.Quota.Set).
func (a *Allocator) SetQuota(role string, guarantee resources.Quantities) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.quota.Set(role, guarantee)
	r := a.reg.EnsureRole(role)
	r.Quota = &guarantee
	a.ensureRoleInSorters(role, r)
	a.triggerAllocationLocked("")
}

// RemoveQuota clears role's guarantee and drops it from quotaRoleSorter,
// collapsing the role if it is also left with no subscribed frameworks.
func (a *Allocator) RemoveQuota(role string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.quota.Remove(role)
	if r, ok := a.reg.Roles[role]; ok {
		r.Quota = nil
		a.quotaRoleSorter.Remove(role)
		a.reg.CollapseRoleIfEmpty(role)
	}
}
