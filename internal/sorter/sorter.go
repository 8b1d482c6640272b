// Package sorter implements the weighted Dominant Resource Fairness
// ordering used both for roles (at the top level) and for frameworks within
// a role. See spec.md §4.1.
package sorter

import "hierarchical-allocator/internal/resources"

// Sorter is the capability boundary §9 calls out: a polymorphic contract so
// tests can substitute a deterministic stub instead of the real DRF math.
type Sorter interface {
	// Add registers a new client with the given weight (1.0 if unsure).
	Add(client string, weight float64)
	// Remove drops a client and all of its bookkeeping.
	Remove(client string)
	Contains(client string) bool

	Activate(client string)
	Deactivate(client string)

	// AddAgentTotal/RemoveAgentTotal/UpdateAgentTotal maintain the
	// denominators shared by every client.
	AddAgentTotal(agent string, total resources.Resources)
	RemoveAgentTotal(agent string)
	UpdateAgentTotal(agent string, total resources.Resources)

	// Allocated/Unallocated maintain a client's numerator on one agent.
	Allocated(client, agent string, allocated resources.Resources)
	Unallocated(client, agent string, allocated resources.Resources)
	// Update applies a resource conversion: unallocated(consumed) then
	// allocated(converted), per spec.md §4.1.
	Update(client, agent string, consumed, converted resources.Resources)

	UpdateWeight(client string, weight float64)

	// AllocationOf returns everything currently tracked for client, summed
	// across agents.
	AllocationOf(client string) resources.Resources
	// AllocationOnAgent returns what client holds on one agent.
	AllocationOnAgent(client, agent string) resources.Resources
	// AllocatedAgents returns the agent ids client has any allocation on.
	AllocatedAgents(client string) []string

	// SetExcludedResourceNames configures resource names ignored by the
	// DRF share calculation (spec.md's fairnessExcludeResourceNames).
	SetExcludedResourceNames(names map[string]bool)

	// Sort returns active clients in ascending weighted-DRF-share order.
	Sort() []string

	Count() int
}
