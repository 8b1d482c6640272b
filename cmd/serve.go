package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"hierarchical-allocator/internal/allocator"
	"hierarchical-allocator/internal/config"
	"hierarchical-allocator/internal/host"
	"hierarchical-allocator/internal/logging"
	"hierarchical-allocator/internal/registry"
	"hierarchical-allocator/internal/resources"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a demo master driving the allocator from a config file",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	applyLogLevel(cmd)
	logger := logging.GetLogger()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Allocator.LogLevel != "" {
		_ = logging.SetAllocatorLogLevel(cfg.Allocator.LogLevel)
	}

	opts := allocator.DefaultOptions()
	opts.AllocationInterval = cfg.AllocationInterval()
	opts.AllocationHoldOffRecoveryTimeout = cfg.AllocationHoldOffRecoveryTimeout()
	if cfg.Allocator.AgentRecoveryFactor > 0 {
		opts.AgentRecoveryFactor = cfg.Allocator.AgentRecoveryFactor
	}
	opts.FilterGpuResources = cfg.Allocator.FilterGPUResources
	if cfg.Allocator.MaxCompletedFrameworks > 0 {
		opts.MaxCompletedFrameworks = cfg.Allocator.MaxCompletedFrameworks
	}
	if cfg.Allocator.Region != "" {
		opts.Domain = &allocator.DomainInfo{Region: cfg.Allocator.Region}
	}
	if len(cfg.Allocator.FairnessExcludeResourceNames) > 0 {
		excluded := make(map[string]bool, len(cfg.Allocator.FairnessExcludeResourceNames))
		for _, name := range cfg.Allocator.FairnessExcludeResourceNames {
			excluded[name] = true
		}
		opts.FairnessExcludeResourceNames = excluded
	}

	a := allocator.New(opts)

	for role, quota := range cfg.Quotas {
		a.SetQuota(role, quantitiesFromFloats(quota))
	}

	for _, name := range cfg.AgentsSorted() {
		agentCfg := cfg.Agents[name]
		total := resources.Unreserved(quantitiesFromFloats(agentCfg.Resources))
		caps := registry.AgentCapabilities{MultiRole: true, HierarchicalRole: true, GPU: agentCfg.GPU}
		a.AddAgent(registry.AgentID(name), total, caps, agentCfg.Region, nil)
		logger.WithField("agent", name).WithField("resources", agentCfg.Resources).Info("registered agent")
	}

	if len(cfg.Agents) == 0 {
		hc, err := host.GetHostConfig()
		if err != nil {
			return fmt.Errorf("probe local host for a seed agent: %w", err)
		}
		a.AddAgent(registry.AgentID(hc.Hostname), hc.ToResources(), registry.AgentCapabilities{MultiRole: true, HierarchicalRole: true}, "", nil)
		logger.WithField("agent", hc.Hostname).Info("registered local host as the only agent")
	}

	for _, name := range cfg.RolesSorted() {
		roleCfg := cfg.Roles[name]
		caps := registry.Capabilities{
			MultiRole:        roleCfg.MultiRole,
			HierarchicalRole: true,
			Revocable:        roleCfg.Revocable,
			Shared:           roleCfg.Shared,
		}
		a.AddFramework(registry.FrameworkID(name), []string{name}, roleCfg.Suppressed, caps, true, nil)
		logger.WithField("framework", name).Info("registered framework")
	}

	a.Initialize(
		func(framework registry.FrameworkID, offers map[string]map[registry.AgentID]resources.Resources) {
			for role, byAgent := range offers {
				for agentID, r := range byAgent {
					logger.WithField("framework", framework).WithField("role", role).WithField("agent", agentID).
						WithField("resources", r.ToQuantities()).Info("offer")
				}
			}
		},
		func(framework registry.FrameworkID, unavailability map[registry.AgentID]registry.Unavailability) {
			for agentID, u := range unavailability {
				logger.WithField("framework", framework).WithField("agent", agentID).
					WithField("start", u.Start).WithField("duration", u.Duration).Info("inverse offer")
			}
		},
	)
	defer a.Stop()

	logger.WithField("interval", opts.AllocationInterval).Info("allocator serving, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	return nil
}

func quantitiesFromFloats(values map[string]float64) resources.Quantities {
	q := make(resources.Quantities, len(values))
	for name, amount := range values {
		q[name] = decimal.NewFromFloat(amount)
	}
	return q
}
