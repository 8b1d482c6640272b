package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"hierarchical-allocator/internal/host"
)

var probeHostCmd = &cobra.Command{
	Use:   "probe-host",
	Short: "Probe the local machine's topology and print it as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyLogLevel(cmd)

		hc, err := host.GetHostConfig()
		if err != nil {
			return fmt.Errorf("probe host: %w", err)
		}

		out, err := json.MarshalIndent(hc, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal host config: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}
