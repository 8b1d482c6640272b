package cmd

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"hierarchical-allocator/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:     "hierarchical-allocator",
	Short:   "A hierarchical, weighted-DRF resource allocator",
	Version: Version,
}

// Version is the version string the CLI reports.
const Version = "0.1.0-dev"

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "allocator.yaml", "path to the allocator config file")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(probeHostCmd)
	rootCmd.AddCommand(validateCmd)
}

// Execute runs the root command; the single entry point main() calls.
func Execute() error {
	loadEnvironment()
	return rootCmd.Execute()
}

// loadEnvironment mirrors the teacher's .env discovery: try the working
// directory first, then the directory the binary lives in.
func loadEnvironment() {
	logger := logging.GetLogger()

	envFile := ".env"
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logger.WithField("file", envFile).WithError(err).Warn("error loading .env file")
		}
		return
	}

	if execPath, err := os.Executable(); err == nil {
		appDir := filepath.Dir(execPath)
		envFile = filepath.Join(appDir, ".env")
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				logger.WithField("file", envFile).WithError(err).Warn("error loading .env file")
			}
		}
	}
}

func applyLogLevel(cmd *cobra.Command) {
	level, err := cmd.Flags().GetString("log-level")
	if err != nil || level == "" {
		return
	}
	if err := logging.SetLogLevel(level); err != nil {
		logging.GetLogger().WithField("level", level).WithError(err).Warn("invalid log level, keeping default")
		return
	}
	if err := logging.SetAllocatorLogLevel(level); err != nil {
		logging.GetLogger().WithField("level", level).WithError(err).Warn("invalid allocator log level, keeping default")
	}
}
