package resources

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
)

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestAddMergesMatchingScalarEntries(t *testing.T) {
	a := ScalarRole("cpus", "", d(2))
	b := ScalarRole("cpus", "", d(3))

	sum := a.Add(b)
	got := sum.ToQuantities().Get("cpus")
	if !got.Equal(d(5)) {
		t.Fatalf("expected cpus=5, got %s", got)
	}
}

func TestSubtractClampsAtZero(t *testing.T) {
	total := ScalarRole("cpus", "", d(4))
	used := ScalarRole("cpus", "", d(10))

	remaining := total.Subtract(used)
	got := remaining.ToQuantities().Get("cpus")
	if !got.IsZero() {
		t.Fatalf("expected cpus=0, got %s", got)
	}
}

func TestContainsSupersetSemantics(t *testing.T) {
	filterResources := ScalarRole("cpus", "", d(4)).Add(ScalarRole("mem", "", d(1024)))
	offer := ScalarRole("cpus", "", d(2))

	if !filterResources.Contains(offer) {
		t.Fatalf("expected filter resources to contain a smaller offer")
	}
	if offer.Contains(filterResources) {
		t.Fatalf("did not expect smaller offer to contain larger filter resources")
	}
}

func TestAllocatableEmptyIsFalse(t *testing.T) {
	if Allocatable(New(), nil) {
		t.Fatalf("empty resources must never be allocatable")
	}
}

func TestAllocatableNoRequirementsIsTrue(t *testing.T) {
	r := ScalarRole("cpus", "", d(1))
	if !Allocatable(r, nil) {
		t.Fatalf("non-empty resources with no requirement sets must be allocatable")
	}
}

func TestAllocatableAnyRequirementSatisfies(t *testing.T) {
	r := ScalarRole("cpus", "", d(1)).Add(ScalarRole("mem", "", d(512)))
	sets := []Quantities{
		{"cpus": d(4)},          // not satisfied
		{"mem": d(256)},         // satisfied
	}
	if !Allocatable(r, sets) {
		t.Fatalf("expected the mem requirement set to be satisfied")
	}
}

func TestShrinkCapsScalarAtTarget(t *testing.T) {
	r := ScalarRole("cpus", "", d(10))
	target := Quantities{"cpus": d(4)}

	got := Shrink(r, target, rand.New(rand.NewSource(1)))
	amount := got.ToQuantities().Get("cpus")
	if !amount.Equal(d(4)) {
		t.Fatalf("expected shrunk cpus=4, got %s", amount)
	}
}

func TestShrinkIgnoresNamesNotInTarget(t *testing.T) {
	r := ScalarRole("cpus", "", d(10)).Add(ScalarRole("mem", "", d(1024)))
	target := Quantities{"cpus": d(4)}

	got := Shrink(r, target, rand.New(rand.NewSource(1)))
	if !got.ToQuantities().Get("mem").IsZero() {
		t.Fatalf("expected mem to be excluded from shrink result")
	}
}

func TestShrinkIndivisibleItemsTakenWhole(t *testing.T) {
	items := New(
		IndivisibleItem("ports", "", d(1)),
		IndivisibleItem("ports", "", d(1)),
		IndivisibleItem("ports", "", d(1)),
	)
	target := Quantities{"ports": d(2)}

	got := Shrink(items, target, rand.New(rand.NewSource(7)))
	if len(got.Entries()) != 2 {
		t.Fatalf("expected exactly 2 whole port items, got %d", len(got.Entries()))
	}
}

func TestShrinkCanFallShortWithIndivisibleRemainder(t *testing.T) {
	items := New(IndivisibleItem("ports", "", d(3)))
	target := Quantities{"ports": d(2)}

	got := Shrink(items, target, rand.New(rand.NewSource(1)))
	if len(got.Entries()) != 0 {
		t.Fatalf("a single oversized indivisible item should be excluded, not split")
	}
}

func TestReservedForHierarchyMatchesAncestors(t *testing.T) {
	r := ScalarRole("cpus", "a", d(1)).Add(ScalarRole("cpus", "a/b", d(2))).Add(ScalarRole("cpus", "other", d(3)))

	got := r.ReservedForHierarchy([]string{"a/b", "a"})
	amount := got.ToQuantities().Get("cpus")
	if !amount.Equal(d(3)) {
		t.Fatalf("expected cpus=3 from role+ancestor reservations, got %s", amount)
	}
}
