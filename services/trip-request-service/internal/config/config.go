// Package config loads trip-request-service's process configuration
// from the environment.
package config

import "github.com/ridehail/control-plane/shared/config"

// Config holds trip-request-service's configuration.
type Config struct {
	Port        string
	Environment string
}

// Load reads configuration from the environment, defaulting to the
// reference endpoint in spec.md §6.
func Load() *Config {
	return &Config{
		Port:        config.GetEnv("PORT", ":50052"),
		Environment: config.GetEnv("ENVIRONMENT", "development"),
	}
}
