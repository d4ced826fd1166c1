// Package config loads matching-service's process configuration from
// the environment.
package config

import (
	"github.com/ridehail/control-plane/shared/config"
)

// Config holds matching-service's configuration. The service is
// stateless (no database or cache of its own — see DESIGN.md), so this
// is deliberately small next to the teacher's monolithic per-service
// config.
type Config struct {
	Port          string
	Environment   string
	MaxCandidates int
}

// Load reads configuration from the environment, defaulting to the
// reference endpoint in spec.md §6.
func Load() *Config {
	return &Config{
		Port:          config.GetEnv("PORT", ":50051"),
		Environment:   config.GetEnv("ENVIRONMENT", "development"),
		MaxCandidates: config.GetEnvAsInt("MAX_CANDIDATES", 5),
	}
}
