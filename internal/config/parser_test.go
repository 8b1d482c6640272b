package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "allocator.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
allocator:
  name: demo
  log_level: info
  allocation_interval_ms: 500
roles:
  team-a:
    index: 0
quotas:
  team-a:
    cpus: 4
agents:
  agent-1:
    index: 0
    resources:
      cpus: 8
      mem: 16384
`

func TestLoadConfigValidConfig(t *testing.T) {
	path := writeConfig(t, validConfig)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Allocator.Name != "demo" {
		t.Fatalf("name = %q, want demo", cfg.Allocator.Name)
	}
	if cfg.AllocationInterval().Milliseconds() != 500 {
		t.Fatalf("interval = %v, want 500ms", cfg.AllocationInterval())
	}
}

func TestLoadConfigMissingNameFails(t *testing.T) {
	path := writeConfig(t, `
agents:
  agent-1:
    index: 0
    resources: { cpus: 1 }
roles:
  r:
    index: 0
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for missing allocator name")
	}
}

func TestLoadConfigQuotaWithoutRoleFails(t *testing.T) {
	path := writeConfig(t, `
allocator:
  name: demo
roles:
  team-a:
    index: 0
quotas:
  team-b:
    cpus: 1
agents:
  agent-1:
    index: 0
    resources: { cpus: 1 }
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for quota with no matching role")
	}
}

func TestExpandEnvVarsSubstitutesKnownVars(t *testing.T) {
	t.Setenv("ALLOCATOR_REGION", "us-east")
	path := writeConfig(t, `
allocator:
  name: demo
  region: ${ALLOCATOR_REGION}
roles:
  team-a:
    index: 0
agents:
  agent-1:
    index: 0
    resources: { cpus: 1 }
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Allocator.Region != "us-east" {
		t.Fatalf("region = %q, want us-east", cfg.Allocator.Region)
	}
}

func TestAgentsSortedOrdersByIndex(t *testing.T) {
	cfg := &AllocatorConfig{
		Agents: map[string]Agent{
			"c": {Index: 2},
			"a": {Index: 0},
			"b": {Index: 1},
		},
	}
	got := cfg.AgentsSorted()
	want := []string{"a", "b", "c"}
	for i, name := range want {
		if got[i] != name {
			t.Fatalf("AgentsSorted()[%d] = %q, want %q", i, got[i], name)
		}
	}
}
