// Package config loads trip-service's process configuration from the
// environment.
package config

import (
	"time"

	"github.com/ridehail/control-plane/shared/config"
)

// Config holds trip-service's configuration.
type Config struct {
	Port        string
	Environment string

	MongoURI      string
	MongoDatabase string

	PricingServiceAddress string
	RPCTimeout            time.Duration
	RPCMaxRetryAttempts   int
	RPCBackoff            time.Duration

	LockStripes int
}

// Load reads configuration from the environment. spec.md §6 gives
// TripService a reference default of :50053.
func Load() *Config {
	return &Config{
		Port:        config.GetEnv("PORT", ":50053"),
		Environment: config.GetEnv("ENVIRONMENT", "development"),

		MongoURI:      config.GetEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: config.GetEnv("MONGO_DATABASE", "ridehail"),

		PricingServiceAddress: config.GetEnv("PRICING_SERVICE_ADDRESS", "http://localhost:50056"),
		RPCTimeout:            config.GetEnvAsDuration("RPC_TIMEOUT", 2*time.Second),
		RPCMaxRetryAttempts:   config.GetEnvAsInt("RPC_MAX_RETRY_ATTEMPTS", 3),
		RPCBackoff:            config.GetEnvAsDuration("RPC_BACKOFF", 200*time.Millisecond),

		LockStripes: config.GetEnvAsInt("LOCK_STRIPES", 256),
	}
}
