package allocator

import "time"

// DomainInfo carries the optional fault-domain/region attribute the
// implicit region-aware filter consults (spec.md §4.3, §6).
type DomainInfo struct {
	Region string
}

// Options holds every configuration knob spec.md §6 enumerates.
// allocationHoldOffRecoveryTimeout and agentRecoveryFactor default to fixed
// values (10 minutes, 0.8) and are exposed here so tests and the demo
// config can override them without relying on package-level constants.
type Options struct {
	AllocationInterval time.Duration

	AllocationHoldOffRecoveryTimeout time.Duration
	AgentRecoveryFactor              float64

	FairnessExcludeResourceNames map[string]bool
	MinAllocatableResources      []map[string]float64 // name -> amount, converted to resources.Quantities at use

	PublishPerFrameworkMetrics bool
	MaxCompletedFrameworks     int

	FilterGpuResources bool
	Domain             *DomainInfo

	RefuseSecondsClamp time.Duration
}

// DefaultOptions returns the spec's fixed defaults plus sane values for the
// user-configurable knobs.
func DefaultOptions() Options {
	return Options{
		AllocationInterval:               time.Second,
		AllocationHoldOffRecoveryTimeout: 10 * time.Minute,
		AgentRecoveryFactor:              0.8,
		FairnessExcludeResourceNames:     map[string]bool{},
		MaxCompletedFrameworks:           50,
		RefuseSecondsClamp:               365 * 24 * time.Hour,
	}
}
