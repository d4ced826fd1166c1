package config

import (
	"time"

	"github.com/ridehail/control-plane/shared/config"
)

// Config holds the pricing service's configuration.
type Config struct {
	Port            string
	Environment     string
	ConfigPath      string
	ReloadInterval  time.Duration
	DefaultCurrency string
}

// Load loads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:            config.GetEnv("PORT", ":50056"),
		Environment:     config.GetEnv("ENVIRONMENT", "development"),
		ConfigPath:      config.GetEnv("PRICING_CONFIG_PATH", "configs/pricing.yaml"),
		ReloadInterval:  config.GetEnvAsDuration("PRICING_RELOAD_INTERVAL", 60*time.Second),
		DefaultCurrency: config.GetEnv("DEFAULT_CURRENCY", "USD"),
	}
}
