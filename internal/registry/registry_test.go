package registry

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"hierarchical-allocator/internal/resources"
)

func TestTrackUntrackReservationsIsIdentity(t *testing.T) {
	tracker := NewReservationTracker()
	reserved := resources.ScalarRole("cpus", "a/b", decimal.NewFromInt(4))

	before := tracker.ReservationScalarQuantities("a/b").Clone()
	tracker.Track(reserved)
	tracker.Untrack(reserved)
	after := tracker.ReservationScalarQuantities("a/b")

	if !reflect.DeepEqual(before.Max0(), after.Max0()) {
		t.Fatalf("expected track+untrack to be identity, before=%v after=%v", before, after)
	}
}

func TestTrackRollsUpToAncestors(t *testing.T) {
	tracker := NewReservationTracker()
	reserved := resources.ScalarRole("cpus", "a/b/c", decimal.NewFromInt(4))
	tracker.Track(reserved)

	for _, role := range []string{"a/b/c", "a/b", "a"} {
		got := tracker.ReservationScalarQuantities(role).Get("cpus")
		if !got.Equal(decimal.NewFromInt(4)) {
			t.Fatalf("role %s: expected cpus=4, got %s", role, got)
		}
	}
}

func TestCollapseRoleIfEmptyRemovesUnquotedEmptyRole(t *testing.T) {
	reg := New()
	reg.EnsureRole("orphan")
	reg.CollapseRoleIfEmpty("orphan")

	if _, ok := reg.Roles["orphan"]; ok {
		t.Fatalf("expected empty unquota'ed role to collapse")
	}
}

func TestCollapseRoleIfEmptyKeepsQuotedRole(t *testing.T) {
	reg := New()
	role := reg.EnsureRole("q")
	q := resources.Quantities{"cpus": decimal.NewFromInt(4)}
	role.Quota = &q

	reg.CollapseRoleIfEmpty("q")
	if _, ok := reg.Roles["q"]; !ok {
		t.Fatalf("expected quota'ed role to survive collapse")
	}
}

func TestAncestorsIncludesSelfAndTopLevel(t *testing.T) {
	got := Ancestors("a/b/c")
	want := []string{"a/b/c", "a/b", "a"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestAddFrameworkThenRemoveWithNoAllocationsLeavesRegistryUnchanged(t *testing.T) {
	reg := New()
	role := reg.EnsureRole("r")
	before := role.Frameworks.Cardinality()

	f := NewFramework("f1", []string{"r"}, nil, Capabilities{}, true)
	reg.Frameworks[f.ID] = f
	role.Frameworks.Add(f.ID)

	delete(reg.Frameworks, f.ID)
	role.Frameworks.Remove(f.ID)
	reg.CollapseRoleIfEmpty("r")

	if _, ok := reg.Roles["r"]; ok != false {
		t.Fatalf("expected role to collapse back to empty state")
	}
	if role.Frameworks.Cardinality() != before {
		t.Fatalf("expected framework set to return to its original size")
	}
}
