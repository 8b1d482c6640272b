// Package filters implements the offer-filter and inverse-offer-filter
// lifecycle (spec.md §4.3): time-bound refusals, installed by recoverResources
// / updateInverseOffer and expired by a one-shot timer.
//
// Expiry uses the "weak reference" pattern §9 calls for: each installed
// filter carries a generation token; the timer closure captures that token
// and, when it fires, only removes the filter if it is still the same
// instance. A filter cleared out-of-band (reviveOffers, updateAgent,
// framework removal) is simply absent by the time the timer fires, so the
// expiry is a no-op — no explicit cancellation bookkeeping is needed.
package filters

import (
	"time"

	"github.com/google/uuid"

	"hierarchical-allocator/internal/registry"
	"hierarchical-allocator/internal/resources"
)

// OfferKey identifies one (framework, role, agent) offer-filter slot.
type OfferKey struct {
	Framework registry.FrameworkID
	Role      string
	Agent     registry.AgentID
}

// InverseKey identifies one (framework, agent) inverse-offer-filter slot.
type InverseKey struct {
	Framework registry.FrameworkID
	Agent     registry.AgentID
}

type offerEntry struct {
	resources resources.Resources
	token     string
}

type inverseEntry struct {
	token string
}

// Dispatcher runs fn under the owning actor's serialized execution. The
// allocator supplies one backed by its own mutex; filter expiry timers fire
// on their own goroutine and must cross back through it before touching
// shared state.
type Dispatcher func(fn func())

// OfferFilterStore holds every active OfferFilter.
type OfferFilterStore struct {
	byKey    map[OfferKey]*offerEntry
	dispatch Dispatcher
}

// NewOfferFilterStore returns an empty store. dispatch is invoked (from a
// timer goroutine) whenever a filter expires.
func NewOfferFilterStore(dispatch Dispatcher) *OfferFilterStore {
	return &OfferFilterStore{byKey: make(map[OfferKey]*offerEntry), dispatch: dispatch}
}

// Install stores r as the refused superset for key, auto-expiring after ttl.
func (s *OfferFilterStore) Install(key OfferKey, r resources.Resources, ttl time.Duration) {
	token := uuid.NewString()
	s.byKey[key] = &offerEntry{resources: r, token: token}
	time.AfterFunc(ttl, func() {
		s.dispatch(func() { s.expire(key, token) })
	})
}

func (s *OfferFilterStore) expire(key OfferKey, token string) {
	cur, ok := s.byKey[key]
	if !ok || cur.token != token {
		return
	}
	delete(s.byKey, key)
}

// IsFiltered implements isFiltered's stored-filter check: true iff an
// active filter for key has resources that are a superset of r.
func (s *OfferFilterStore) IsFiltered(key OfferKey, r resources.Resources) bool {
	entry, ok := s.byKey[key]
	if !ok {
		return false
	}
	return entry.resources.Contains(r)
}

// Clear removes one filter explicitly.
func (s *OfferFilterStore) Clear(key OfferKey) {
	delete(s.byKey, key)
}

// ClearFramework removes every filter belonging to framework, regardless of
// role or agent (framework removal, full reviveOffers).
func (s *OfferFilterStore) ClearFramework(framework registry.FrameworkID) {
	for key := range s.byKey {
		if key.Framework == framework {
			delete(s.byKey, key)
		}
	}
}

// ClearFrameworkRole removes framework's filters scoped to one role
// (role-scoped reviveOffers).
func (s *OfferFilterStore) ClearFrameworkRole(framework registry.FrameworkID, role string) {
	for key := range s.byKey {
		if key.Framework == framework && key.Role == role {
			delete(s.byKey, key)
		}
	}
}

// ClearAgent removes every filter referencing agent (updateAgent attribute
// change, removeAgent).
func (s *OfferFilterStore) ClearAgent(agent registry.AgentID) {
	for key := range s.byKey {
		if key.Agent == agent {
			delete(s.byKey, key)
		}
	}
}

// InverseOfferFilterStore holds every active InverseOfferFilter
// (whole-agent, timeout only).
type InverseOfferFilterStore struct {
	byKey    map[InverseKey]*inverseEntry
	dispatch Dispatcher
}

func NewInverseOfferFilterStore(dispatch Dispatcher) *InverseOfferFilterStore {
	return &InverseOfferFilterStore{byKey: make(map[InverseKey]*inverseEntry), dispatch: dispatch}
}

func (s *InverseOfferFilterStore) Install(key InverseKey, ttl time.Duration) {
	token := uuid.NewString()
	s.byKey[key] = &inverseEntry{token: token}
	time.AfterFunc(ttl, func() {
		s.dispatch(func() { s.expire(key, token) })
	})
}

func (s *InverseOfferFilterStore) expire(key InverseKey, token string) {
	cur, ok := s.byKey[key]
	if !ok || cur.token != token {
		return
	}
	delete(s.byKey, key)
}

func (s *InverseOfferFilterStore) IsFiltered(key InverseKey) bool {
	_, ok := s.byKey[key]
	return ok
}

func (s *InverseOfferFilterStore) Clear(key InverseKey) {
	delete(s.byKey, key)
}

func (s *InverseOfferFilterStore) ClearAgent(agent registry.AgentID) {
	for key := range s.byKey {
		if key.Agent == agent {
			delete(s.byKey, key)
		}
	}
}

// ClampRefuseSeconds enforces spec.md §4.3's [0, 365 days] clamp with a
// default on invalid input.
func ClampRefuseSeconds(seconds float64, defaultValue time.Duration) time.Duration {
	const maxDuration = 365 * 24 * time.Hour
	if seconds < 0 {
		return defaultValue
	}
	d := time.Duration(seconds * float64(time.Second))
	if d > maxDuration {
		return maxDuration
	}
	return d
}

// EffectiveExpiry is max(allocationInterval, refuseSeconds), per spec.md §4.3.
func EffectiveExpiry(allocationInterval, refuseSeconds time.Duration) time.Duration {
	if refuseSeconds > allocationInterval {
		return refuseSeconds
	}
	return allocationInterval
}
