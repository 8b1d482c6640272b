package allocator

import (
	mapset "github.com/deckarep/golang-set/v2"

	"hierarchical-allocator/internal/registry"
	"hierarchical-allocator/internal/resources"
)

// AddFramework registers framework id, subscribes it to roles, and
// restores any pre-existing allocation (role -> agent -> Resources) into
// the appropriate sorters (spec.md §4.2).
func (a *Allocator) AddFramework(id registry.FrameworkID, roles []string, suppressed []string, caps registry.Capabilities, active bool, used map[string]map[registry.AgentID]resources.Resources) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.reg.Frameworks[id]; exists {
		panic("allocator: framework " + string(id) + " already added")
	}

	f := registry.NewFramework(id, roles, suppressed, caps, active)
	a.reg.Frameworks[id] = f

	for _, roleName := range roles {
		role := a.reg.EnsureRole(roleName)
		role.Frameworks.Add(id)

		a.ensureRoleInSorters(roleName, role)

		fs := a.frameworkSorter(roleName)
		fs.Add(string(id), 1.0)
		a.setFrameworkSorterActivation(fs, string(id), f, roleName)

		for agentID, agent := range a.reg.Agents {
			fs.AddAgentTotal(string(agentID), agent.Total)
		}

		if byAgent, ok := used[roleName]; ok {
			for agentID, r := range byAgent {
				fs.Allocated(string(id), string(agentID), r)
				a.roleSorter.Allocated(roleName, string(agentID), r)
			}
		}
	}

	if active {
		a.triggerAllocationLocked("")
	}
}

// ensureRoleInSorters registers role with roleSorter (always) and
// quotaRoleSorter (only if the role has a guarantee). Both sorters already
// hold every known agent's totals (AddAgent adds them, quotaRoleSorter
// restricted to non-revocable), shared by all of their clients.
func (a *Allocator) ensureRoleInSorters(roleName string, role *registry.Role) {
	if !a.roleSorter.Contains(roleName) {
		a.roleSorter.Add(roleName, 1.0)
	}
	if role.Quota != nil && !a.quotaRoleSorter.Contains(roleName) {
		a.quotaRoleSorter.Add(roleName, 1.0)
	}
}

func (a *Allocator) setFrameworkSorterActivation(fs interface{ Activate(string); Deactivate(string) }, id string, f *registry.Framework, role string) {
	if f.Active && !f.IsSuppressed(role) {
		fs.Activate(id)
	} else {
		fs.Deactivate(id)
	}
}

// RemoveFramework untracks every subscribed role's allocation and
// subscription, collapsing roles left with no frameworks and no quota.
func (a *Allocator) RemoveFramework(id registry.FrameworkID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, ok := a.reg.Frameworks[id]
	if !ok {
		panic("allocator: removing unknown framework " + string(id))
	}

	f.Roles.Each(func(roleName string) bool {
		fs := a.frameworkSorter(roleName)
		role, hasRole := a.reg.Roles[roleName]
		for _, agentID := range fs.AllocatedAgents(string(id)) {
			onAgent := fs.AllocationOnAgent(string(id), agentID)
			a.roleSorter.Unallocated(roleName, agentID, onAgent)
			if hasRole && role.Quota != nil {
				a.quotaRoleSorter.Unallocated(roleName, agentID, onAgent)
			}
		}
		fs.Remove(string(id))

		if hasRole {
			role.Frameworks.Remove(id)
			a.reg.CollapseRoleIfEmpty(roleName)
		}
		return false
	})

	a.offerFilters.ClearFramework(id)
	delete(a.reg.Frameworks, id)
	a.recordCompletedFramework(id)
}

func (a *Allocator) recordCompletedFramework(id registry.FrameworkID) {
	a.completedFrameworks = append(a.completedFrameworks, id)
	max := a.options.MaxCompletedFrameworks
	if max > 0 && len(a.completedFrameworks) > max {
		a.completedFrameworks = a.completedFrameworks[len(a.completedFrameworks)-max:]
	}
}

// ActivateFramework marks the framework eligible for offers across its
// subscribed, non-suppressed roles.
func (a *Allocator) ActivateFramework(id registry.FrameworkID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	f := a.reg.MustFramework(id)
	f.Active = true
	f.Roles.Each(func(role string) bool {
		if !f.IsSuppressed(role) {
			a.frameworkSorter(role).Activate(string(id))
		}
		return false
	})
	a.triggerAllocationLocked("")
}

// DeactivateFramework excludes the framework from every sort() until reactivated.
func (a *Allocator) DeactivateFramework(id registry.FrameworkID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	f := a.reg.MustFramework(id)
	f.Active = false
	f.Roles.Each(func(role string) bool {
		a.frameworkSorter(role).Deactivate(string(id))
		return false
	})
}

// UpdateFramework reconciles roles, capabilities, min-allocatable-resources
// and the suppressed set (spec.md §4.2).
func (a *Allocator) UpdateFramework(id registry.FrameworkID, roles []string, suppressed []string, caps registry.Capabilities, minAllocatable map[string][]resources.Quantities) {
	a.mu.Lock()
	defer a.mu.Unlock()

	f := a.reg.MustFramework(id)
	newRoles := make(map[string]bool, len(roles))
	for _, r := range roles {
		newRoles[r] = true
	}

	f.Roles.Each(func(oldRole string) bool {
		if newRoles[oldRole] {
			return false
		}
		fs := a.frameworkSorter(oldRole)
		if fs.AllocationOf(string(id)).Empty() {
			fs.Remove(string(id))
			if role, ok := a.reg.Roles[oldRole]; ok {
				role.Frameworks.Remove(id)
				a.reg.CollapseRoleIfEmpty(oldRole)
			}
		}
		a.offerFilters.ClearFrameworkRole(id, oldRole)
		return false
	})

	for _, roleName := range roles {
		if f.Roles.Contains(roleName) {
			continue
		}
		role := a.reg.EnsureRole(roleName)
		role.Frameworks.Add(id)
		a.ensureRoleInSorters(roleName, role)
		fs := a.frameworkSorter(roleName)
		fs.Add(string(id), 1.0)
		for agentID, agent := range a.reg.Agents {
			fs.AddAgentTotal(string(agentID), agent.Total)
		}
	}

	f.Roles = mapset.NewSet[string](roles...)
	f.Suppressed = mapset.NewSet[string](suppressed...)
	f.Capabilities = caps
	if minAllocatable != nil {
		f.MinAllocatable = minAllocatable
	}

	f.Roles.Each(func(role string) bool {
		a.setFrameworkSorterActivation(a.frameworkSorter(role), string(id), f, role)
		return false
	})
}
