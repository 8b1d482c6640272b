package allocator

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"hierarchical-allocator/internal/filters"
	"hierarchical-allocator/internal/logging"
	"hierarchical-allocator/internal/quota"
	"hierarchical-allocator/internal/registry"
	"hierarchical-allocator/internal/resources"
)

// offerSet accumulates per-(framework, role, agent) offers for one
// allocation run before they are flushed through offerCallback.
type offerSet map[registry.FrameworkID]map[string]map[registry.AgentID]resources.Resources

func (o offerSet) record(framework registry.FrameworkID, role string, agent registry.AgentID, r resources.Resources) {
	byRole, ok := o[framework]
	if !ok {
		byRole = make(map[string]map[registry.AgentID]resources.Resources)
		o[framework] = byRole
	}
	byAgent, ok := byRole[role]
	if !ok {
		byAgent = make(map[registry.AgentID]resources.Resources)
		byRole[role] = byAgent
	}
	byAgent[agent] = byAgent[agent].Add(r)
}

// runAllocationLocked executes one allocation batch over the currently
// coalesced candidate set (spec.md §4.4). Must be called with mu held.
func (a *Allocator) runAllocationLocked() {
	if a.paused {
		return
	}
	if len(a.allocationCandidates) == 0 {
		return
	}

	candidates := a.shuffledCandidatesLocked()
	a.allocationCandidates = make(map[registry.AgentID]bool)
	if len(candidates) == 0 {
		return
	}
	a.runCount++
	logging.BumpLogRunSeq()

	offers := make(offerSet)
	offeredShared := make(map[registry.AgentID]resources.Resources)

	consumedQuota := a.seedConsumedQuotaLocked()
	requiredHeadroom := quota.RequiredHeadroom(a.quota.Guarantees, consumedQuota)
	availableHeadroom := a.computeAvailableHeadroomLocked()
	guaranteedNames := guaranteedResourceNames(a.quota.Guarantees)

	a.heldBackForHeadroom = resources.Quantities{}
	a.heldBackAgentCount = 0

	// Stage 1: quota guarantee.
	for _, agentID := range candidates {
		agent, ok := a.reg.Agents[agentID]
		if !ok {
			continue
		}
		for _, roleName := range a.quotaRoleSorter.Sort() {
			role, ok := a.reg.Roles[roleName]
			if !ok || role.Quota == nil {
				continue
			}
			guarantee := *role.Quota
			for _, fid := range a.frameworkSorter(roleName).Sort() {
				framework := a.reg.Frameworks[registry.FrameworkID(fid)]
				if framework == nil {
					continue
				}
				a.allocateStage1(offers, offeredShared, consumedQuota, &requiredHeadroom, &availableHeadroom, guaranteedNames, agent, roleName, guarantee, framework)
			}
		}
	}

	// Stage 2: above guarantee.
	for _, agentID := range candidates {
		agent, ok := a.reg.Agents[agentID]
		if !ok {
			continue
		}
		for _, roleName := range a.roleSorter.Sort() {
			if role, ok := a.reg.Roles[roleName]; ok && role.Quota != nil {
				continue // already handled in stage 1
			}
			for _, fid := range a.frameworkSorter(roleName).Sort() {
				framework := a.reg.Frameworks[registry.FrameworkID(fid)]
				if framework == nil {
					continue
				}
				a.allocateStage2(offers, offeredShared, &availableHeadroom, requiredHeadroom, agent, roleName, framework)
			}
		}
	}

	if a.heldBackAgentCount > 0 {
		a.logger.WithFields(logrus.Fields{
			"heldBack": a.heldBackForHeadroom,
			"agents":   a.heldBackAgentCount,
		}).Debug("held back unreserved resources to keep quota headroom")
	}

	a.flushOffers(offers)
	a.deallocateLocked(candidates)
}

func (a *Allocator) shuffledCandidatesLocked() []registry.AgentID {
	out := make([]registry.AgentID, 0, len(a.allocationCandidates))
	for agentID := range a.allocationCandidates {
		agent, ok := a.reg.Agents[agentID]
		if !ok || !agent.Whitelisted || !agent.Activated {
			continue
		}
		out = append(out, agentID)
	}
	a.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// seedConsumedQuotaLocked computes consumedQuota[topRole] for every
// quota'ed role before stage 1 runs (spec.md §4.4, SUPPLEMENTED FEATURES).
func (a *Allocator) seedConsumedQuotaLocked() map[string]resources.Quantities {
	subRoleAllocation := make(map[string]resources.Resources)
	for roleName := range a.reg.Roles {
		subRoleAllocation[roleName] = a.roleSorter.AllocationOf(roleName)
	}

	consumed := make(map[string]resources.Quantities)
	for _, topRole := range a.quota.Roles() {
		reservationScalars := a.reg.Reservations.ReservationScalarQuantities(topRole)
		consumed[topRole] = quota.ConsumedQuota(topRole, registry.TopLevel, reservationScalars, subRoleAllocation)
	}
	return consumed
}

func (a *Allocator) computeAvailableHeadroomLocked() resources.Quantities {
	clusterTotal := resources.Quantities{}
	allocated := resources.Quantities{}
	reservedTotal := resources.Quantities{}
	reservedAllocated := resources.Quantities{}
	revocableTotal := resources.Quantities{}
	revocableAllocated := resources.Quantities{}

	for _, agent := range a.reg.Agents {
		clusterTotal = clusterTotal.Add(agent.Total.Scalars().ToQuantities())
		allocated = allocated.Add(agent.Allocated.Scalars().ToQuantities())
		reservedTotal = reservedTotal.Add(agent.Total.Reserved().Scalars().ToQuantities())
		reservedAllocated = reservedAllocated.Add(agent.Allocated.Reserved().Scalars().ToQuantities())
		revocableTotal = revocableTotal.Add(agent.Total.Revocable().Scalars().ToQuantities())
		revocableAllocated = revocableAllocated.Add(agent.Allocated.Revocable().Scalars().ToQuantities())
	}

	unallocatedReservations := reservedTotal.Sub(reservedAllocated)
	unallocatedRevocable := revocableTotal.Sub(revocableAllocated)
	return quota.AvailableHeadroom(clusterTotal, allocated, unallocatedReservations, unallocatedRevocable)
}

func guaranteedResourceNames(guarantees map[string]resources.Quantities) map[string]bool {
	out := make(map[string]bool)
	for _, g := range guarantees {
		for name := range g {
			out[name] = true
		}
	}
	return out
}

// allocateStage1 implements spec.md §4.4 stage 1 for one (agent, role, framework).
func (a *Allocator) allocateStage1(
	offers offerSet,
	offeredShared map[registry.AgentID]resources.Resources,
	consumedQuota map[string]resources.Quantities,
	requiredHeadroom *resources.Quantities,
	availableHeadroom *resources.Quantities,
	guaranteedNames map[string]bool,
	agent *registry.Agent,
	roleName string,
	guarantee resources.Quantities,
	framework *registry.Framework,
) {
	if !a.capableOf(framework, agent, roleName) {
		return
	}

	available := a.strippedAvailable(agent, offeredShared, framework)

	reservedForRole := available.ReservedFor(roleName).NonRevocable()
	guaranteeRemaining := guarantee.Sub(consumedQuota[roleName]).Max0()
	unreservedNonRevocable := available.Unreserved().NonRevocable()
	shrunkToGuarantee := resources.Shrink(unreservedNonRevocable, guaranteeRemaining, a.rng)

	toAllocate := reservedForRole.Add(shrunkToGuarantee)
	if toAllocate.Empty() {
		// No progress toward role's own guarantee on this agent: don't hand
		// it surplus or non-scalar resources in the same stage-1 pass.
		return
	}

	surplusHeadroom := availableHeadroom.Sub(*requiredHeadroom)
	unguaranteed := unreservedNonRevocable.WithoutNames(guaranteedNames)
	additionalSurplus := resources.Shrink(unguaranteed, surplusHeadroom, a.rng)
	toAllocate = toAllocate.Add(additionalSurplus)
	toAllocate = toAllocate.Add(available.Unreserved().NonScalars())

	if !a.passesAllocatableAndFilters(toAllocate, framework, roleName, agent) {
		return
	}

	a.commitOffer(offers, offeredShared, framework.ID, roleName, agent, toAllocate)
	a.quotaRoleSorter.Allocated(roleName, string(agent.ID), toAllocate)

	quotaSatisfyingPart := shrunkToGuarantee.ToQuantities()
	*requiredHeadroom = requiredHeadroom.Sub(quotaSatisfyingPart).Max0()
	*availableHeadroom = availableHeadroom.Sub(toAllocate.Unreserved().NonRevocable().Scalars().ToQuantities())
	consumedQuota[roleName] = consumedQuota[roleName].Add(quotaSatisfyingPart)
}

// allocateStage2 implements spec.md §4.4 stage 2 for one (agent, role, framework).
func (a *Allocator) allocateStage2(
	offers offerSet,
	offeredShared map[registry.AgentID]resources.Resources,
	availableHeadroom *resources.Quantities,
	requiredHeadroom resources.Quantities,
	agent *registry.Agent,
	roleName string,
	framework *registry.Framework,
) {
	if !a.capableOf(framework, agent, roleName) {
		return
	}

	available := a.strippedAvailable(agent, offeredShared, framework)

	ancestors := registry.Ancestors(roleName)
	reservedForHierarchy := available.ReservedForHierarchy(ancestors)
	unreserved := available.Unreserved()
	unreservedNonRevocableScalar := unreserved.NonRevocable().Scalars()

	afterHold := availableHeadroom.Sub(unreservedNonRevocableScalar.ToQuantities())
	var toAllocate resources.Resources
	held := !requiredHeadroom.LessOrEqual(afterHold)
	if held {
		toAllocate = reservedForHierarchy.Add(unreserved.Revocable()).Add(unreserved.NonScalars())
		a.heldBackForHeadroom = a.heldBackForHeadroom.Add(unreservedNonRevocableScalar.ToQuantities())
		a.heldBackAgentCount++
	} else {
		toAllocate = reservedForHierarchy.Add(unreserved)
	}

	if !a.passesAllocatableAndFilters(toAllocate, framework, roleName, agent) {
		return
	}

	a.commitOffer(offers, offeredShared, framework.ID, roleName, agent, toAllocate)

	if !held {
		*availableHeadroom = availableHeadroom.Sub(unreservedNonRevocableScalar.ToQuantities())
	}
}

// capableOf applies every implicit filter (spec.md §4.3, SUPPLEMENTED FEATURES).
func (a *Allocator) capableOf(f *registry.Framework, agent *registry.Agent, role string) bool {
	if f.Capabilities.MultiRole && !agent.Capabilities.MultiRole {
		return false
	}
	if registry.IsHierarchical(role) && !agent.Capabilities.HierarchicalRole {
		return false
	}
	if a.options.FilterGpuResources && agent.Capabilities.GPU && !f.Capabilities.GPU {
		return false
	}
	if a.options.Domain != nil && agent.Region != "" && agent.Region != a.options.Domain.Region && !f.Capabilities.RegionAware {
		return false
	}
	return true
}

func (a *Allocator) strippedAvailable(agent *registry.Agent, offeredShared map[registry.AgentID]resources.Resources, f *registry.Framework) resources.Resources {
	available := agent.Available().Subtract(offeredShared[agent.ID])
	if !f.Capabilities.Shared {
		available = available.NonShared()
	}
	if !f.Capabilities.Revocable {
		available = available.NonRevocable()
	}
	return available
}

func (a *Allocator) passesAllocatableAndFilters(toAllocate resources.Resources, f *registry.Framework, role string, agent *registry.Agent) bool {
	minSets := append(append([]resources.Quantities{}, f.MinAllocatable[role]...), a.globalMinAllocatable()...)
	if !resources.Allocatable(toAllocate, minSets) {
		return false
	}
	key := filters.OfferKey{Framework: f.ID, Role: role, Agent: agent.ID}
	return !a.offerFilters.IsFiltered(key, toAllocate)
}

func (a *Allocator) globalMinAllocatable() []resources.Quantities {
	if len(a.options.MinAllocatableResources) == 0 {
		return nil
	}
	out := make([]resources.Quantities, 0, len(a.options.MinAllocatableResources))
	for _, set := range a.options.MinAllocatableResources {
		q := resources.Quantities{}
		for name, amount := range set {
			q[name] = decimal.NewFromFloat(amount)
		}
		out = append(out, q)
	}
	return out
}

func (a *Allocator) commitOffer(offers offerSet, offeredShared map[registry.AgentID]resources.Resources, framework registry.FrameworkID, role string, agent *registry.Agent, toAllocate resources.Resources) {
	offers.record(framework, role, agent.ID, toAllocate)
	offeredShared[agent.ID] = offeredShared[agent.ID].Add(toAllocate.Shared())

	agent.Allocated = agent.Allocated.Add(toAllocate)
	a.frameworkSorter(role).Allocated(string(framework), string(agent.ID), toAllocate)
	a.roleSorter.Allocated(role, string(agent.ID), toAllocate)
}

func (a *Allocator) flushOffers(offers offerSet) {
	if a.offerCallback == nil {
		return
	}
	for framework, byRole := range offers {
		a.logger.WithFields(logrus.Fields{
			"framework": framework,
			"roles":     len(byRole),
		}).Debug("offering resources")
		a.offerCallback(framework, byRole)
	}
}
