package host

import "testing"

func TestAfterColonTrimsAndSplits(t *testing.T) {
	got := afterColon("model name	: Intel(R) Xeon(R) CPU")
	want := "Intel(R) Xeon(R) CPU"
	if got != want {
		t.Fatalf("afterColon() = %q, want %q", got, want)
	}
}

func TestAfterColonNoColonReturnsEmpty(t *testing.T) {
	if got := afterColon("no colon here"); got != "" {
		t.Fatalf("afterColon() = %q, want empty", got)
	}
}

func TestToResourcesProducesExpectedQuantities(t *testing.T) {
	hc := &HostConfig{TotalCores: 8, MemMB: 16384}
	hc.L3Cache.TotalSizeMB = 32

	q := hc.ToResources().ToQuantities()
	if got := q.Get("cpus").IntPart(); got != 8 {
		t.Fatalf("cpus = %d, want 8", got)
	}
	if got := q.Get("mem").IntPart(); got != 16384 {
		t.Fatalf("mem = %d, want 16384", got)
	}
	if got, _ := q.Get("l3_cache").Float64(); got != 32 {
		t.Fatalf("l3_cache = %v, want 32", got)
	}
}
