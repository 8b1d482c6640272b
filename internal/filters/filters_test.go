package filters

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"hierarchical-allocator/internal/resources"
)

func inlineDispatch() Dispatcher {
	var mu sync.Mutex
	return func(fn func()) {
		mu.Lock()
		defer mu.Unlock()
		fn()
	}
}

func TestIsFilteredContainmentSemantics(t *testing.T) {
	store := NewOfferFilterStore(inlineDispatch())
	key := OfferKey{Framework: "f1", Role: "r", Agent: "a1"}
	refused := resources.ScalarRole("cpus", "", decimal.NewFromInt(4))
	store.Install(key, refused, time.Hour)

	smallerOffer := resources.ScalarRole("cpus", "", decimal.NewFromInt(2))
	if !store.IsFiltered(key, smallerOffer) {
		t.Fatalf("expected a smaller offer to be filtered by a superset refusal")
	}

	largerOffer := resources.ScalarRole("cpus", "", decimal.NewFromInt(8))
	if store.IsFiltered(key, largerOffer) {
		t.Fatalf("did not expect a larger offer to be filtered")
	}
}

func TestUnknownKeyIsNotFiltered(t *testing.T) {
	store := NewOfferFilterStore(inlineDispatch())
	key := OfferKey{Framework: "f1", Role: "r", Agent: "a1"}
	if store.IsFiltered(key, resources.New()) {
		t.Fatalf("expected no filter to mean not filtered")
	}
}

func TestExpiryRemovesFilterAfterTTL(t *testing.T) {
	store := NewOfferFilterStore(inlineDispatch())
	key := OfferKey{Framework: "f1", Role: "r", Agent: "a1"}
	store.Install(key, resources.ScalarRole("cpus", "", decimal.NewFromInt(4)), 20*time.Millisecond)

	if !store.IsFiltered(key, resources.ScalarRole("cpus", "", decimal.NewFromInt(1))) {
		t.Fatalf("expected filter to be active immediately after install")
	}

	time.Sleep(80 * time.Millisecond)

	if store.IsFiltered(key, resources.ScalarRole("cpus", "", decimal.NewFromInt(1))) {
		t.Fatalf("expected filter to have expired")
	}
}

func TestClearedFilterMakesLateExpiryANoOp(t *testing.T) {
	store := NewOfferFilterStore(inlineDispatch())
	key := OfferKey{Framework: "f1", Role: "r", Agent: "a1"}
	store.Install(key, resources.ScalarRole("cpus", "", decimal.NewFromInt(4)), 20*time.Millisecond)

	store.Clear(key)
	store.Install(key, resources.ScalarRole("mem", "", decimal.NewFromInt(512)), time.Hour)

	time.Sleep(80 * time.Millisecond)

	// The stale timer from the first Install must not have clobbered the
	// second, still-valid filter (weak-reference generation check).
	if !store.IsFiltered(key, resources.ScalarRole("mem", "", decimal.NewFromInt(100))) {
		t.Fatalf("expected the reinstalled filter to survive the first filter's stale expiry")
	}
}

func TestClearFrameworkRemovesAllItsFilters(t *testing.T) {
	store := NewOfferFilterStore(inlineDispatch())
	k1 := OfferKey{Framework: "f1", Role: "r1", Agent: "a1"}
	k2 := OfferKey{Framework: "f1", Role: "r2", Agent: "a2"}
	store.Install(k1, resources.New(), time.Hour)
	store.Install(k2, resources.New(), time.Hour)

	store.ClearFramework("f1")

	if store.IsFiltered(k1, resources.New()) || store.IsFiltered(k2, resources.New()) {
		t.Fatalf("expected all of f1's filters to be cleared")
	}
}

func TestInverseOfferFilterIsTimeoutOnly(t *testing.T) {
	store := NewInverseOfferFilterStore(inlineDispatch())
	key := InverseKey{Framework: "f1", Agent: "a1"}
	store.Install(key, 20*time.Millisecond)

	if !store.IsFiltered(key) {
		t.Fatalf("expected inverse offer filter to be active immediately")
	}
	time.Sleep(80 * time.Millisecond)
	if store.IsFiltered(key) {
		t.Fatalf("expected inverse offer filter to have expired")
	}
}

func TestClampRefuseSecondsRange(t *testing.T) {
	if got := ClampRefuseSeconds(-1, 5*time.Second); got != 5*time.Second {
		t.Fatalf("expected default for negative input, got %v", got)
	}
	max := 365 * 24 * time.Hour
	if got := ClampRefuseSeconds(float64(400*24*3600), time.Second); got != max {
		t.Fatalf("expected clamp to 365 days, got %v", got)
	}
}

func TestEffectiveExpiryTakesMax(t *testing.T) {
	if got := EffectiveExpiry(10*time.Second, 60*time.Second); got != 60*time.Second {
		t.Fatalf("expected max(10s,60s)=60s, got %v", got)
	}
	if got := EffectiveExpiry(60*time.Second, 10*time.Second); got != 60*time.Second {
		t.Fatalf("expected max(60s,10s)=60s, got %v", got)
	}
}
