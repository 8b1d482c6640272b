package quota

import (
	"testing"

	"github.com/shopspring/decimal"

	"hierarchical-allocator/internal/resources"
)

func TestSetQuotaTwiceOnSameRolePanics(t *testing.T) {
	q := New()
	q.Set("a", resources.Quantities{"cpus": decimal.NewFromInt(4)})

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected setting quota twice on the same role to panic")
		}
	}()
	q.Set("a", resources.Quantities{"cpus": decimal.NewFromInt(2)})
}

func TestRequiredHeadroomSumsDeficitsOnly(t *testing.T) {
	guarantees := map[string]resources.Quantities{
		"a": {"cpus": decimal.NewFromInt(10)},
		"b": {"cpus": decimal.NewFromInt(4)},
	}
	consumed := map[string]resources.Quantities{
		"a": {"cpus": decimal.NewFromInt(3)},
		"b": {"cpus": decimal.NewFromInt(6)}, // already over guarantee, contributes 0
	}

	got := RequiredHeadroom(guarantees, consumed).Get("cpus")
	if !got.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("expected required headroom cpus=7, got %s", got)
	}
}

func TestAvailableHeadroomNeverNegative(t *testing.T) {
	clusterTotal := resources.Quantities{"cpus": decimal.NewFromInt(4)}
	allocated := resources.Quantities{"cpus": decimal.NewFromInt(10)}

	got := AvailableHeadroom(clusterTotal, allocated, resources.Quantities{}, resources.Quantities{}).Get("cpus")
	if !got.IsZero() {
		t.Fatalf("expected available headroom to clamp at zero, got %s", got)
	}
}

func TestConsumedQuotaIncludesReservationsAndSubroleAllocation(t *testing.T) {
	reservations := resources.Quantities{"cpus": decimal.NewFromInt(2)}
	subRoleAlloc := map[string]resources.Resources{
		"q/sub": resources.ScalarRole("cpus", "", decimal.NewFromInt(3)),
		"other": resources.ScalarRole("cpus", "", decimal.NewFromInt(100)),
	}
	topLevelOf := func(role string) string {
		if role == "q/sub" {
			return "q"
		}
		return role
	}

	got := ConsumedQuota("q", topLevelOf, reservations, subRoleAlloc).Get("cpus")
	if !got.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected consumed quota cpus=5 (2 reserved + 3 subrole), got %s", got)
	}
}
