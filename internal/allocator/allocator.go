// Package allocator implements the hierarchical resource allocator's core
// engine: the periodic allocation loop, quota-headroom accounting, offer
// filter lifecycle, wDRF sorting and inverse-offer deallocation (spec.md
// THE CORE). Every mutator is serialized behind one mutex, mirroring the
// teacher's mutex-guarded manager/accountant structs; the master drives this
// type purely through message-style method calls.
package allocator

import (
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"hierarchical-allocator/internal/filters"
	"hierarchical-allocator/internal/logging"
	"hierarchical-allocator/internal/quota"
	"hierarchical-allocator/internal/registry"
	"hierarchical-allocator/internal/resources"
	"hierarchical-allocator/internal/sorter"
)

// Allocator is the single logical actor spec.md §2 and §5 describe. All
// public methods acquire mu; nothing inside the package touches shared
// state without holding it.
type Allocator struct {
	mu sync.Mutex

	reg   *registry.Registry
	quota *quota.Quota

	roleSorter       sorter.Sorter
	quotaRoleSorter  sorter.Sorter
	frameworkSorters map[string]sorter.Sorter // role -> frameworkSorter

	offerFilters   *filters.OfferFilterStore
	inverseFilters *filters.InverseOfferFilterStore

	options              Options
	offerCallback        OfferCallback
	inverseOfferCallback InverseOfferCallback

	allocationCandidates map[registry.AgentID]bool

	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup

	paused               bool
	expectedAgentCount   int
	resumeTimer          *time.Timer

	heldBackForHeadroom resources.Quantities
	heldBackAgentCount  int
	runCount            int64

	completedFrameworks []registry.FrameworkID

	rng    *rand.Rand
	logger *logrus.Logger
}

// New builds an unstarted Allocator. Call Initialize to install callbacks
// and start the periodic timer.
func New(options Options) *Allocator {
	a := &Allocator{
		reg:                  registry.New(),
		quota:                quota.New(),
		roleSorter:           sorter.New(),
		quotaRoleSorter:      sorter.New(),
		frameworkSorters:     make(map[string]sorter.Sorter),
		options:              options,
		allocationCandidates: make(map[registry.AgentID]bool),
		heldBackForHeadroom:  resources.Quantities{},
		rng:                  rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:               logging.GetAllocatorLogger(),
	}
	a.roleSorter.SetExcludedResourceNames(options.FairnessExcludeResourceNames)
	a.quotaRoleSorter.SetExcludedResourceNames(options.FairnessExcludeResourceNames)
	a.offerFilters = filters.NewOfferFilterStore(a.dispatch)
	a.inverseFilters = filters.NewInverseOfferFilterStore(a.dispatch)
	return a
}

// dispatch is the Dispatcher filters.OfferFilterStore/InverseOfferFilterStore
// use to safely re-enter the actor from an expiry timer's own goroutine.
func (a *Allocator) dispatch(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn()
}

// Initialize installs the master's callbacks and starts the periodic
// allocation timer (spec.md §6 "initialize(options, offerCallback,
// inverseOfferCallback)").
func (a *Allocator) Initialize(offerCallback OfferCallback, inverseOfferCallback InverseOfferCallback) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.offerCallback = offerCallback
	a.inverseOfferCallback = inverseOfferCallback

	a.stopCh = make(chan struct{})
	a.ticker = time.NewTicker(a.options.AllocationInterval)
	a.wg.Add(1)
	go a.tick()

	a.logger.WithField("interval", a.options.AllocationInterval).Info("allocator initialized")
}

// Stop halts the periodic timer. Safe to call once; not safe to call
// Initialize again afterwards.
func (a *Allocator) Stop() {
	a.mu.Lock()
	if a.stopCh == nil {
		a.mu.Unlock()
		return
	}
	close(a.stopCh)
	a.mu.Unlock()
	a.wg.Wait()
}

// tick mirrors the teacher's ticker+stopCh goroutine loop
// (internal/collectors/collector.go) to drive periodic allocation.
func (a *Allocator) tick() {
	defer a.wg.Done()
	for {
		select {
		case <-a.ticker.C:
			a.mu.Lock()
			for id := range a.reg.Agents {
				a.allocationCandidates[id] = true
			}
			a.runAllocationLocked()
			a.mu.Unlock()
		case <-a.stopCh:
			a.ticker.Stop()
			return
		}
	}
}

// triggerAllocation marks agent (or every active agent, if agent=="") as a
// candidate and runs an allocation pass immediately unless one is already
// in flight or the allocator is paused; must be called with mu held.
func (a *Allocator) triggerAllocationLocked(agent registry.AgentID) {
	if agent != "" {
		a.allocationCandidates[agent] = true
	} else {
		for id := range a.reg.Agents {
			a.allocationCandidates[id] = true
		}
	}
	a.runAllocationLocked()
}

func (a *Allocator) frameworkSorter(role string) sorter.Sorter {
	s, ok := a.frameworkSorters[role]
	if !ok {
		s = sorter.New()
		s.SetExcludedResourceNames(a.options.FairnessExcludeResourceNames)
		a.frameworkSorters[role] = s
	}
	return s
}

// RunCount reports how many allocation runs have executed, for tests.
// Metrics publication proper is out of scope.
func (a *Allocator) RunCount() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runCount
}

// HeldBack reports the last run's held-back headroom accounting (spec.md
// §4.4 stage 2, SUPPLEMENTED FEATURES).
func (a *Allocator) HeldBack() (resources.Quantities, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.heldBackForHeadroom.Clone(), a.heldBackAgentCount
}
