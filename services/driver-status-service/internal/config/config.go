// Package config loads driver-status-service's process configuration
// from the environment.
package config

import "github.com/ridehail/control-plane/shared/config"

// Config holds driver-status-service's configuration.
type Config struct {
	Port        string
	Environment string
}

// Load reads configuration from the environment. spec.md §6 marks this
// service's endpoint implementation-defined; :50054 is this
// implementation's default.
func Load() *Config {
	return &Config{
		Port:        config.GetEnv("PORT", ":50054"),
		Environment: config.GetEnv("ENVIRONMENT", "development"),
	}
}
