package cmd

import "testing"

func TestQuantitiesFromFloatsConvertsEveryEntry(t *testing.T) {
	q := quantitiesFromFloats(map[string]float64{"cpus": 4, "mem": 8192})
	if got := q.Get("cpus").IntPart(); got != 4 {
		t.Fatalf("cpus = %d, want 4", got)
	}
	if got := q.Get("mem").IntPart(); got != 8192 {
		t.Fatalf("mem = %d, want 8192", got)
	}
}

func TestQuantitiesFromFloatsEmptyInputIsEmpty(t *testing.T) {
	q := quantitiesFromFloats(nil)
	if len(q) != 0 {
		t.Fatalf("len(q) = %d, want 0", len(q))
	}
}
