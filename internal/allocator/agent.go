package allocator

import (
	"hierarchical-allocator/internal/registry"
	"hierarchical-allocator/internal/resources"
)

// AddAgent registers agent, seeds every sorter's denominator, tracks
// reservations, attributes any already-known framework's `used` allocation
// to its sorters, resumes a paused allocator if the recovery threshold is
// now met, and triggers an allocation pass (spec.md §4.2).
//
// used maps framework -> role -> Resources it already holds on this agent.
// Frameworks not yet known are skipped (a documented under-accounting
// window, spec.md §4.2).
func (a *Allocator) AddAgent(id registry.AgentID, total resources.Resources, caps registry.AgentCapabilities, region string, used map[registry.FrameworkID]map[string]resources.Resources) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.reg.Agents[id]; exists {
		panic("allocator: agent " + string(id) + " already added")
	}

	agent := registry.NewAgent(id, total, caps, region)
	a.reg.Agents[id] = agent

	a.roleSorter.AddAgentTotal(string(id), total)
	a.quotaRoleSorter.AddAgentTotal(string(id), total.NonRevocable())
	for _, fs := range a.frameworkSorters {
		fs.AddAgentTotal(string(id), total)
	}

	a.reg.Reservations.Track(total.Reserved())

	allocated := resources.New()
	for frameworkID, byRole := range used {
		if _, known := a.reg.Frameworks[frameworkID]; !known {
			a.logger.WithField("framework", frameworkID).WithField("agent", id).
				Warn("addAgent: used resources reference an unknown framework, under-accounting")
			continue
		}
		for roleName, r := range byRole {
			a.frameworkSorter(roleName).Allocated(string(frameworkID), string(id), r)
			a.roleSorter.Allocated(roleName, string(id), r)
			allocated = allocated.Add(r)
		}
	}
	agent.Allocated = allocated

	if a.paused && len(a.reg.Agents) >= a.expectedAgentCount {
		a.resumeLocked()
	}

	a.triggerAllocationLocked(id)
}

// RemoveAgent drops agent from every sorter and the reservation tracker,
// and removes filters referencing it. Framework allocations attributed to
// this agent are NOT unallocated from the sorters here; per spec.md §9 this
// is a documented open question — the master is expected to follow with
// RecoverResources calls.
func (a *Allocator) RemoveAgent(id registry.AgentID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	agent, ok := a.reg.Agents[id]
	if !ok {
		panic("allocator: removing unknown agent " + string(id))
	}

	a.roleSorter.RemoveAgentTotal(string(id))
	a.quotaRoleSorter.RemoveAgentTotal(string(id))
	for _, fs := range a.frameworkSorters {
		fs.RemoveAgentTotal(string(id))
	}

	a.reg.Reservations.Untrack(agent.Total.Reserved())
	a.offerFilters.ClearAgent(id)
	a.inverseFilters.ClearAgent(id)
	delete(a.allocationCandidates, id)
	delete(a.reg.Agents, id)
}

// UpdateAgent applies a new total/capability set. Attribute changes drop
// every offer filter referencing the agent (schedulers need to reconsider);
// total changes propagate to every sorter and the reservation tracker.
func (a *Allocator) UpdateAgent(id registry.AgentID, total resources.Resources, caps registry.AgentCapabilities) {
	a.mu.Lock()
	defer a.mu.Unlock()

	agent := a.reg.MustAgent(id)

	attributesChanged := caps != agent.Capabilities
	if attributesChanged {
		agent.Capabilities = caps
		a.offerFilters.ClearAgent(id)
	}

	if !totalsEqual(total, agent.Total) {
		a.reg.Reservations.Untrack(agent.Total.Reserved())
		a.reg.Reservations.Track(total.Reserved())

		a.roleSorter.UpdateAgentTotal(string(id), total)
		a.quotaRoleSorter.UpdateAgentTotal(string(id), total.NonRevocable())
		for _, fs := range a.frameworkSorters {
			fs.UpdateAgentTotal(string(id), total)
		}
		agent.Total = total
	}

	a.triggerAllocationLocked(id)
}

func totalsEqual(a, b resources.Resources) bool {
	aq, bq := a.ToQuantities(), b.ToQuantities()
	return aq.LessOrEqual(bq) && bq.LessOrEqual(aq)
}

// ActivateAgent marks agent eligible for allocation runs.
func (a *Allocator) ActivateAgent(id registry.AgentID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reg.MustAgent(id).Activated = true
	a.triggerAllocationLocked(id)
}

// DeactivateAgent excludes agent from allocation runs until reactivated.
func (a *Allocator) DeactivateAgent(id registry.AgentID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reg.MustAgent(id).Activated = false
}

// UpdateWhitelist restricts allocation to the given agent ids; an empty or
// nil list clears the whitelist (every known agent is eligible again).
func (a *Allocator) UpdateWhitelist(allowed []registry.AgentID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(allowed) == 0 {
		for _, agent := range a.reg.Agents {
			agent.Whitelisted = true
		}
		return
	}
	set := make(map[registry.AgentID]bool, len(allowed))
	for _, id := range allowed {
		set[id] = true
	}
	for id, agent := range a.reg.Agents {
		agent.Whitelisted = set[id]
	}
	a.triggerAllocationLocked("")
}

// AddResourceProvider folds additional resources (e.g. a newly attached
// storage pool) into an already-known agent's total, following the same
// sorter-propagation path as UpdateAgent.
func (a *Allocator) AddResourceProvider(agentID registry.AgentID, additional resources.Resources) {
	a.mu.Lock()
	defer a.mu.Unlock()
	agent := a.reg.MustAgent(agentID)
	newTotal := agent.Total.Add(additional)

	a.reg.Reservations.Track(additional.Reserved())
	a.roleSorter.UpdateAgentTotal(string(agentID), newTotal)
	a.quotaRoleSorter.UpdateAgentTotal(string(agentID), newTotal.NonRevocable())
	for _, fs := range a.frameworkSorters {
		fs.UpdateAgentTotal(string(agentID), newTotal)
	}
	agent.Total = newTotal
	a.triggerAllocationLocked(agentID)
}

// UpdateUnavailability installs or clears agent's maintenance window.
func (a *Allocator) UpdateUnavailability(id registry.AgentID, unavailability *registry.Unavailability) {
	a.mu.Lock()
	defer a.mu.Unlock()
	agent := a.reg.MustAgent(id)
	agent.SetMaintenance(unavailability)
	a.triggerAllocationLocked(id)
}
