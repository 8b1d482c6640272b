package allocator

import (
	"hierarchical-allocator/internal/filters"
	"hierarchical-allocator/internal/registry"
)

// deallocateLocked produces inverse offers for agents under maintenance
// (spec.md §4.5): every framework that holds allocation on an agent with an
// active Unavailability window, is active, has not already been sent an
// outstanding inverse offer for it, and is not covered by an
// InverseOfferFilter gets one. Must be called with mu held.
func (a *Allocator) deallocateLocked(candidates []registry.AgentID) {
	if a.inverseOfferCallback == nil {
		return
	}

	byFramework := make(map[registry.FrameworkID]map[registry.AgentID]registry.Unavailability)
	for _, agentID := range candidates {
		agent, ok := a.reg.Agents[agentID]
		if !ok || agent.Maintenance == nil {
			continue
		}

		for _, f := range a.reg.Frameworks {
			if !f.Active {
				continue
			}
			if agent.Maintenance.OutstandingFrameworks.Contains(f.ID) {
				continue
			}

			hasAllocation := false
			f.Roles.Each(func(role string) bool {
				if !a.frameworkSorter(role).AllocationOnAgent(string(f.ID), string(agentID)).Empty() {
					hasAllocation = true
					return true
				}
				return false
			})
			if !hasAllocation {
				continue
			}

			key := filters.InverseKey{Framework: f.ID, Agent: agentID}
			if a.inverseFilters.IsFiltered(key) {
				continue
			}

			agent.Maintenance.OutstandingFrameworks.Add(f.ID)
			byAgent, ok := byFramework[f.ID]
			if !ok {
				byAgent = make(map[registry.AgentID]registry.Unavailability)
				byFramework[f.ID] = byAgent
			}
			byAgent[agentID] = agent.Maintenance.Unavailability
		}
	}

	for framework, unavailability := range byFramework {
		a.inverseOfferCallback(framework, unavailability)
	}
}

// UpdateInverseOffer records framework's response to an agent's inverse
// offer and, if filters are present, installs an InverseOfferFilter
// (spec.md §4.5; inverse filters are timeout-only, never resource-keyed).
func (a *Allocator) UpdateInverseOffer(agentID registry.AgentID, framework registry.FrameworkID, status registry.InverseOfferStatus, filterSpec *OfferFilterSpec) {
	a.mu.Lock()
	defer a.mu.Unlock()

	agent := a.reg.MustAgent(agentID)
	if agent.Maintenance != nil {
		agent.Maintenance.Statuses[framework] = status
		agent.Maintenance.OutstandingFrameworks.Remove(framework)
	}

	if filterSpec != nil {
		ttl := filters.ClampRefuseSeconds(filterSpec.RefuseSeconds, a.options.RefuseSecondsClamp)
		key := filters.InverseKey{Framework: framework, Agent: agentID}
		a.inverseFilters.Install(key, ttl)
	}
}

// GetInverseOfferStatuses reports every agent's maintenance response map,
// keyed by agent id then framework id.
func (a *Allocator) GetInverseOfferStatuses() map[registry.AgentID]map[registry.FrameworkID]registry.InverseOfferStatus {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[registry.AgentID]map[registry.FrameworkID]registry.InverseOfferStatus)
	for id, agent := range a.reg.Agents {
		if agent.Maintenance == nil || len(agent.Maintenance.Statuses) == 0 {
			continue
		}
		statuses := make(map[registry.FrameworkID]registry.InverseOfferStatus, len(agent.Maintenance.Statuses))
		for f, s := range agent.Maintenance.Statuses {
			statuses[f] = s
		}
		out[id] = statuses
	}
	return out
}
