package sorter

import (
	"sort"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/shopspring/decimal"

	"hierarchical-allocator/internal/resources"
)

// client holds one DRF participant's weight, activation state and
// per-agent allocation.
type client struct {
	name       string
	weight     decimal.Decimal
	active     bool
	allocation map[string]resources.Resources // agent -> allocated
}

// DRFSorter is the one production Sorter implementation, used for
// roleSorter, quotaRoleSorter and every per-role frameworkSorter (spec.md
// §4.1 names three distinct instances of the same contract).
//
// Clients live in an orderedmap so that Sort()'s tie-break among equal
// shares falls out of insertion order rather than a side-channel sequence
// counter.
type DRFSorter struct {
	clients       *orderedmap.OrderedMap[string, *client]
	totals        map[string]resources.Resources // agent -> total
	excludedNames map[string]bool
}

// New returns an empty DRFSorter.
func New() *DRFSorter {
	return &DRFSorter{
		clients: orderedmap.NewOrderedMap[string, *client](),
		totals:  make(map[string]resources.Resources),
	}
}

func (s *DRFSorter) Add(name string, weight float64) {
	if _, ok := s.clients.Get(name); ok {
		return
	}
	s.clients.Set(name, &client{
		name:       name,
		weight:     decimalFromFloat(weight, 1),
		active:     true,
		allocation: make(map[string]resources.Resources),
	})
}

func (s *DRFSorter) Remove(name string) {
	s.clients.Delete(name)
}

func (s *DRFSorter) Contains(name string) bool {
	_, ok := s.clients.Get(name)
	return ok
}

func (s *DRFSorter) Activate(name string) {
	if c, ok := s.clients.Get(name); ok {
		c.active = true
	}
}

func (s *DRFSorter) Deactivate(name string) {
	if c, ok := s.clients.Get(name); ok {
		c.active = false
	}
}

func (s *DRFSorter) AddAgentTotal(agent string, total resources.Resources) {
	s.totals[agent] = s.totals[agent].Add(total)
}

func (s *DRFSorter) RemoveAgentTotal(agent string) {
	delete(s.totals, agent)
}

func (s *DRFSorter) UpdateAgentTotal(agent string, total resources.Resources) {
	s.totals[agent] = total
}

func (s *DRFSorter) Allocated(name, agent string, allocated resources.Resources) {
	c, ok := s.clients.Get(name)
	if !ok {
		return
	}
	c.allocation[agent] = c.allocation[agent].Add(allocated)
}

func (s *DRFSorter) Unallocated(name, agent string, allocated resources.Resources) {
	c, ok := s.clients.Get(name)
	if !ok {
		return
	}
	c.allocation[agent] = c.allocation[agent].Subtract(allocated)
}

func (s *DRFSorter) Update(name, agent string, consumed, converted resources.Resources) {
	s.Unallocated(name, agent, consumed)
	s.Allocated(name, agent, converted)
}

func (s *DRFSorter) UpdateWeight(name string, weight float64) {
	if c, ok := s.clients.Get(name); ok {
		c.weight = decimalFromFloat(weight, 1)
	}
}

func (s *DRFSorter) AllocationOf(name string) resources.Resources {
	c, ok := s.clients.Get(name)
	if !ok {
		return resources.New()
	}
	total := resources.New()
	for _, r := range c.allocation {
		total = total.Add(r)
	}
	return total
}

func (s *DRFSorter) AllocationOnAgent(name, agent string) resources.Resources {
	c, ok := s.clients.Get(name)
	if !ok {
		return resources.New()
	}
	return c.allocation[agent]
}

func (s *DRFSorter) AllocatedAgents(name string) []string {
	c, ok := s.clients.Get(name)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(c.allocation))
	for agent, r := range c.allocation {
		if !r.Empty() {
			out = append(out, agent)
		}
	}
	return out
}

func (s *DRFSorter) SetExcludedResourceNames(names map[string]bool) {
	s.excludedNames = names
}

func (s *DRFSorter) Count() int {
	return s.clients.Len()
}

// Sort returns active clients ascending by weighted dominant share.
// dominantShare(c) = max over resource r of allocated(c,r)/total(r);
// weightedShare(c) = dominantShare(c) / weight(c). Ties preserve insertion
// order via a stable sort over the orderedmap's natural iteration order.
func (s *DRFSorter) Sort() []string {
	clusterTotal := s.clusterTotal()

	type scored struct {
		name  string
		share decimal.Decimal
	}
	var active []scored
	for el := s.clients.Front(); el != nil; el = el.Next() {
		c := el.Value
		if !c.active {
			continue
		}
		active = append(active, scored{name: c.name, share: s.weightedShare(c, clusterTotal)})
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].share.LessThan(active[j].share)
	})

	out := make([]string, len(active))
	for i, a := range active {
		out[i] = a.name
	}
	return out
}

func (s *DRFSorter) clusterTotal() resources.Quantities {
	total := resources.New()
	for _, r := range s.totals {
		total = total.Add(r)
	}
	return s.excludeNames(total.ToQuantities())
}

func (s *DRFSorter) weightedShare(c *client, clusterTotal resources.Quantities) decimal.Decimal {
	allocated := resources.New()
	for _, r := range c.allocation {
		allocated = allocated.Add(r)
	}
	allocatedQ := s.excludeNames(allocated.ToQuantities())

	dominant := decimal.Zero
	for name, total := range clusterTotal {
		if total.IsZero() {
			continue
		}
		share := allocatedQ.Get(name).Div(total)
		if share.GreaterThan(dominant) {
			dominant = share
		}
	}

	weight := c.weight
	if weight.IsZero() {
		weight = decimal.NewFromInt(1)
	}
	return dominant.Div(weight)
}

func (s *DRFSorter) excludeNames(q resources.Quantities) resources.Quantities {
	if len(s.excludedNames) == 0 {
		return q
	}
	out := make(resources.Quantities, len(q))
	for name, v := range q {
		if s.excludedNames[name] {
			continue
		}
		out[name] = v
	}
	return out
}

func decimalFromFloat(weight float64, fallback int64) decimal.Decimal {
	if weight <= 0 {
		return decimal.NewFromInt(fallback)
	}
	return decimal.NewFromFloat(weight)
}

var _ Sorter = (*DRFSorter)(nil)
