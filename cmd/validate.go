package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"hierarchical-allocator/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate an allocator config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyLogLevel(cmd)

		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("config %s is invalid: %w", configPath, err)
		}

		fmt.Printf("config %s is valid: %d role(s), %d quota(s), %d agent(s)\n",
			configPath, len(cfg.Roles), len(cfg.Quotas), len(cfg.Agents))
		return nil
	},
}
