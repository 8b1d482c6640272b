package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"hierarchical-allocator/internal/logging"
)

func LoadConfig(filepath string) (*AllocatorConfig, error) {
	config, _, err := LoadConfigWithContent(filepath)
	return config, err
}

func LoadConfigWithContent(filepath string) (*AllocatorConfig, string, error) {
	logger := logging.GetLogger()

	data, err := os.ReadFile(filepath)
	if err != nil {
		logger.WithField("filepath", filepath).WithError(err).Error("failed to read config file")
		return nil, "", err
	}

	originalContent := string(data)
	expanded := expandEnvVars(originalContent)

	var config AllocatorConfig
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		logger.WithField("filepath", filepath).WithError(err).Error("failed to parse config file")
		return nil, "", err
	}

	if err := validateConfig(&config); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}

	return &config, originalContent, nil
}

func expandEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		envVar := strings.Trim(match, "${}")
		if value := os.Getenv(envVar); value != "" {
			return value
		}
		return match
	})
}

func validateConfig(config *AllocatorConfig) error {
	if config.Allocator.Name == "" {
		return fmt.Errorf("allocator name is required")
	}
	if len(config.Agents) == 0 {
		return fmt.Errorf("at least one agent must be defined")
	}
	if len(config.Roles) == 0 {
		return fmt.Errorf("at least one role must be defined")
	}

	indices := make(map[int]bool)
	for name, agent := range config.Agents {
		if len(agent.Resources) == 0 {
			return fmt.Errorf("agent %s: at least one resource must be defined", name)
		}
		if indices[agent.Index] {
			return fmt.Errorf("agent %s: index %d is already used", name, agent.Index)
		}
		indices[agent.Index] = true
	}

	for role, quota := range config.Quotas {
		if _, ok := config.Roles[role]; !ok {
			return fmt.Errorf("quota %s: no matching role defined", role)
		}
		if len(quota) == 0 {
			return fmt.Errorf("quota %s: at least one resource guarantee must be defined", role)
		}
	}

	return nil
}
