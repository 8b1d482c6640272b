package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestAllocatorLoggerStampsCurrentRunSeq(t *testing.T) {
	original := allocatorLogger.Out
	var buf bytes.Buffer
	allocatorLogger.SetOutput(&buf)
	defer allocatorLogger.SetOutput(original)

	seq := BumpLogRunSeq()
	GetAllocatorLogger().WithField("agent", "agent1").Info("offering resources")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected a JSON log line, got %q: %v", buf.String(), err)
	}
	if got, want := line["run"], float64(seq); got != want {
		t.Fatalf("run = %v, want %v", got, want)
	}
	if line["event"] != "offering resources" {
		t.Fatalf("event = %v, want %q", line["event"], "offering resources")
	}
}

func TestBumpLogRunSeqIsMonotonic(t *testing.T) {
	first := BumpLogRunSeq()
	second := BumpLogRunSeq()
	if second <= first {
		t.Fatalf("expected BumpLogRunSeq to be monotonically increasing, got %d then %d", first, second)
	}
}
