package config

import "time"

// AllocatorConfig is the YAML-loadable configuration for the demo master:
// allocator tuning knobs plus the seed roles/quotas/agents it registers on
// startup.
type AllocatorConfig struct {
	Allocator AllocatorSection   `yaml:"allocator"`
	Quotas    map[string]Quota   `yaml:"quotas"`
	Roles     map[string]Role    `yaml:"roles"`
	Agents    map[string]Agent   `yaml:"agents"`
}

type AllocatorSection struct {
	Name                             string   `yaml:"name"`
	LogLevel                        string   `yaml:"log_level"`
	AllocationIntervalMS             int      `yaml:"allocation_interval_ms"`
	AllocationHoldOffRecoveryMinutes int      `yaml:"allocation_hold_off_recovery_minutes"`
	AgentRecoveryFactor              float64  `yaml:"agent_recovery_factor"`
	FairnessExcludeResourceNames     []string `yaml:"fairness_exclude_resource_names"`
	FilterGPUResources               bool     `yaml:"filter_gpu_resources"`
	Region                           string   `yaml:"region"`
	MaxCompletedFrameworks           int      `yaml:"max_completed_frameworks"`
}

// Quota is one top-level role's guarantee, name -> amount.
type Quota map[string]float64

// Role configures one seed framework's subscriptions at startup.
type Role struct {
	Index      int      `yaml:"index"`
	Suppressed []string `yaml:"suppressed,omitempty"`
	MultiRole  bool     `yaml:"multi_role"`
	Revocable  bool     `yaml:"revocable"`
	Shared     bool     `yaml:"shared"`
}

// Agent configures one seed agent's resource total at startup.
type Agent struct {
	Index     int               `yaml:"index"`
	Resources map[string]float64 `yaml:"resources"`
	Region    string            `yaml:"region"`
	GPU       bool              `yaml:"gpu"`
}

func (c *AllocatorConfig) AllocationInterval() time.Duration {
	if c.Allocator.AllocationIntervalMS <= 0 {
		return time.Second
	}
	return time.Duration(c.Allocator.AllocationIntervalMS) * time.Millisecond
}

func (c *AllocatorConfig) AllocationHoldOffRecoveryTimeout() time.Duration {
	if c.Allocator.AllocationHoldOffRecoveryMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.Allocator.AllocationHoldOffRecoveryMinutes) * time.Minute
}

func (c *AllocatorConfig) AgentsSorted() []string {
	names := make([]string, 0, len(c.Agents))
	for name := range c.Agents {
		names = append(names, name)
	}
	for i := 0; i < len(names)-1; i++ {
		for j := i + 1; j < len(names); j++ {
			if c.Agents[names[i]].Index > c.Agents[names[j]].Index {
				names[i], names[j] = names[j], names[i]
			}
		}
	}
	return names
}

func (c *AllocatorConfig) RolesSorted() []string {
	names := make([]string, 0, len(c.Roles))
	for name := range c.Roles {
		names = append(names, name)
	}
	for i := 0; i < len(names)-1; i++ {
		for j := i + 1; j < len(names); j++ {
			if c.Roles[names[i]].Index > c.Roles[names[j]].Index {
				names[i], names[j] = names[j], names[i]
			}
		}
	}
	return names
}
