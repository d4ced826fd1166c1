// Package config loads the orchestrator's process configuration from
// the environment: its own listen address plus every upstream service
// address TripWorkflow calls, per SPEC_FULL.md's ambient configuration
// section.
package config

import (
	"time"

	"github.com/ridehail/control-plane/shared/config"
)

// Config holds the orchestrator's configuration.
type Config struct {
	Port        string
	Environment string

	TripRequestServiceAddress  string
	MatchingServiceAddress     string
	PricingServiceAddress      string
	DriverStatusServiceAddress string
	TripServiceAddress         string

	RPCTimeout          time.Duration
	RPCMaxRetryAttempts int
	RPCBackoff          time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	IdempotencyTTL time.Duration
	MaxCandidates  int
}

// Load reads configuration from the environment. The orchestrator has
// no reference default port in spec.md §6's table (it is the caller of
// the five listed services, not a listed service itself); :50050 is
// this repo's own default.
func Load() *Config {
	return &Config{
		Port:        config.GetEnv("PORT", ":50050"),
		Environment: config.GetEnv("ENVIRONMENT", "development"),

		TripRequestServiceAddress:  config.GetEnv("TRIP_REQUEST_SERVICE_ADDRESS", "http://localhost:50052"),
		MatchingServiceAddress:     config.GetEnv("MATCHING_SERVICE_ADDRESS", "http://localhost:50051"),
		PricingServiceAddress:      config.GetEnv("PRICING_SERVICE_ADDRESS", "http://localhost:50056"),
		DriverStatusServiceAddress: config.GetEnv("DRIVER_STATUS_SERVICE_ADDRESS", "http://localhost:50054"),
		TripServiceAddress:         config.GetEnv("TRIP_SERVICE_ADDRESS", "http://localhost:50053"),

		RPCTimeout:          config.GetEnvAsDuration("RPC_TIMEOUT", 2*time.Second),
		RPCMaxRetryAttempts: config.GetEnvAsInt("RPC_MAX_RETRY_ATTEMPTS", 3),
		RPCBackoff:          config.GetEnvAsDuration("RPC_BACKOFF", 200*time.Millisecond),

		RedisAddr:     config.GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: config.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       config.GetEnvAsInt("REDIS_DB", 0),

		IdempotencyTTL: config.GetEnvAsDuration("IDEMPOTENCY_TTL", time.Hour),
		MaxCandidates:  config.GetEnvAsInt("MAX_CANDIDATES", 5),
	}
}
