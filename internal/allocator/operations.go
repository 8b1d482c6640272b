package allocator

import (
	"fmt"

	"hierarchical-allocator/internal/filters"
	"hierarchical-allocator/internal/registry"
	"hierarchical-allocator/internal/resources"
)

// RequestResources records a framework's unsatisfied request. The core
// treats this as a hint only: it has no denominator of its own to track
// unsatisfied demand against, so the current implementation simply logs it
// and lets the next allocation run (triggered regardless) attempt to
// satisfy the framework via its existing share.
func (a *Allocator) RequestResources(framework registry.FrameworkID, requested resources.Resources) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.reg.MustFramework(framework)
	a.logger.WithField("framework", framework).Debug("resource request recorded")
	a.triggerAllocationLocked("")
}

// UpdateAllocation applies conversions to an already-offered allocation on
// (framework, agent): consumed is unallocated from the agent/sorters, and
// converted (possibly smaller, possibly a different resource entirely, per
// the quantity-preserving-or-fully-removing contract spec.md §7 assumes of
// its caller) is allocated in its place.
func (a *Allocator) UpdateAllocation(framework registry.FrameworkID, agentID registry.AgentID, role string, conversions []Operation) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.reg.MustFramework(framework)
	agent := a.reg.MustAgent(agentID)

	for _, op := range conversions {
		agent.Allocated = agent.Allocated.Subtract(op.Consumed).Add(op.Converted)
		a.frameworkSorter(role).Update(string(framework), string(agentID), op.Consumed, op.Converted)
		a.roleSorter.Unallocated(role, string(agentID), op.Consumed)
		a.roleSorter.Allocated(role, string(agentID), op.Converted)
		if roleRec, ok := a.reg.Roles[role]; ok && roleRec.Quota != nil {
			a.quotaRoleSorter.Unallocated(role, string(agentID), op.Consumed)
			a.quotaRoleSorter.Allocated(role, string(agentID), op.Converted)
		}
	}
}

// UpdateAvailable applies a batch of operations directly to an agent's
// total (not an allocation) — e.g. a resource provider reporting its pool
// shrank. Returns an error (rather than panicking) if any operation would
// drive a quantity negative, per spec.md §7's "totals that cannot apply
// operations... return a failure future" contract; the caller is expected
// to retry or abort, not crash the actor.
func (a *Allocator) UpdateAvailable(agentID registry.AgentID, operations []Operation) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	agent := a.reg.MustAgent(agentID)
	newTotal := agent.Total
	for _, op := range operations {
		if !op.Consumed.ToQuantities().LessOrEqual(newTotal.ToQuantities()) {
			return fmt.Errorf("allocator: updateAvailable on agent %s would drive a quantity negative", agentID)
		}
		newTotal = newTotal.Subtract(op.Consumed).Add(op.Converted)
	}

	a.reg.Reservations.Untrack(agent.Total.Reserved())
	a.reg.Reservations.Track(newTotal.Reserved())
	agent.Total = newTotal

	a.roleSorter.UpdateAgentTotal(string(agentID), newTotal)
	a.quotaRoleSorter.UpdateAgentTotal(string(agentID), newTotal.NonRevocable())
	for _, fs := range a.frameworkSorters {
		fs.UpdateAgentTotal(string(agentID), newTotal)
	}

	a.triggerAllocationLocked(agentID)
	return nil
}

// RecoverResources releases (framework, agent) role's allocation back to
// every sorter and the agent, and — when filterSpec is non-nil with a
// non-zero refuse duration — installs an OfferFilter over the declined
// resources so the next allocation run does not immediately re-offer them
// (spec.md §4.3).
func (a *Allocator) RecoverResources(framework registry.FrameworkID, agentID registry.AgentID, role string, released resources.Resources, filterSpec *OfferFilterSpec) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.reg.MustFramework(framework)
	agent := a.reg.MustAgent(agentID)

	agent.Allocated = agent.Allocated.Subtract(released)
	a.frameworkSorter(role).Unallocated(string(framework), string(agentID), released)
	a.roleSorter.Unallocated(role, string(agentID), released)
	if roleRec, ok := a.reg.Roles[role]; ok && roleRec.Quota != nil {
		a.quotaRoleSorter.Unallocated(role, string(agentID), released)
	}

	if filterSpec != nil && filterSpec.RefuseSeconds != 0 {
		ttl := filters.EffectiveExpiry(a.options.AllocationInterval, filters.ClampRefuseSeconds(filterSpec.RefuseSeconds, a.options.RefuseSecondsClamp))
		key := filters.OfferKey{Framework: framework, Role: role, Agent: agentID}
		a.offerFilters.Install(key, released.Unreserved(), ttl)
	}

	a.triggerAllocationLocked(agentID)
}

// SuppressOffers stops offering to framework, optionally restricted to
// roles (nil/empty means every subscribed role).
func (a *Allocator) SuppressOffers(framework registry.FrameworkID, roles []string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	f := a.reg.MustFramework(framework)
	targets := roles
	if len(targets) == 0 {
		targets = f.Roles.ToSlice()
	}
	for _, role := range targets {
		f.Suppressed.Add(role)
		a.frameworkSorter(role).Deactivate(string(framework))
	}
}

// ReviveOffers resumes offering to framework, optionally restricted to
// roles, and clears the matching stored offer filters so the next
// allocation run is not blocked by a stale refusal.
func (a *Allocator) ReviveOffers(framework registry.FrameworkID, roles []string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	f := a.reg.MustFramework(framework)
	targets := roles
	if len(targets) == 0 {
		targets = f.Roles.ToSlice()
		a.offerFilters.ClearFramework(framework)
	} else {
		for _, role := range targets {
			a.offerFilters.ClearFrameworkRole(framework, role)
		}
	}

	for _, role := range targets {
		f.Suppressed.Remove(role)
		if f.Active {
			a.frameworkSorter(role).Activate(string(framework))
		}
	}
	a.triggerAllocationLocked("")
}

// UpdateWeights replaces weights on roleSorter for the given roles.
func (a *Allocator) UpdateWeights(weights map[string]float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for role, weight := range weights {
		a.roleSorter.UpdateWeight(role, weight)
		if roleRec, ok := a.reg.Roles[role]; ok && roleRec.Quota != nil {
			a.quotaRoleSorter.UpdateWeight(role, weight)
		}
	}
	a.triggerAllocationLocked("")
}
