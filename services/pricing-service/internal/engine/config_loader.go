// Package engine implements the PricingEngine: a hot-reloadable,
// validated fare configuration plus the pure calculation that turns a
// trip's estimated distance and duration into a fare breakdown.
package engine

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ridehail/control-plane/shared/errors"
	"github.com/ridehail/control-plane/shared/logger"
	"github.com/ridehail/control-plane/shared/models"
)

var allowedRoundingDenominations = map[float64]bool{
	0.5: true, 1: true, 3: true, 5: true,
}

// ConfigLoader owns the single writable PricingConfig snapshot. Reads take
// the mutex only long enough to copy out the current pointer; the reload
// watcher takes it only to swap the pointer, never while validating or
// parsing, so readers are never blocked on disk I/O.
type ConfigLoader struct {
	path           string
	reloadInterval time.Duration
	log            *logger.Logger

	mu           sync.Mutex
	current      *models.PricingConfig
	lastModified time.Time
	everLoaded   bool

	stopCh chan struct{}
}

// NewConfigLoader creates a loader for the YAML file at path, performs the
// initial synchronous load, and starts the background watcher. An initial
// load failure is returned to the caller — without at least one valid
// config ConfigUnavailable is the only failure mode the engine has.
func NewConfigLoader(path string, reloadInterval time.Duration, log *logger.Logger) (*ConfigLoader, error) {
	cl := &ConfigLoader{
		path:           path,
		reloadInterval: reloadInterval,
		log:            log,
		stopCh:         make(chan struct{}),
	}
	if err := cl.reload(); err != nil {
		return nil, err
	}
	go cl.watch()
	return cl, nil
}

// Snapshot returns the currently active config. Never returns nil once
// construction has succeeded.
func (cl *ConfigLoader) Snapshot() *models.PricingConfig {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.current
}

// Stop terminates the background watcher.
func (cl *ConfigLoader) Stop() {
	close(cl.stopCh)
}

// OverrideDefault replaces the active snapshot's default rate sheet with
// an operator-supplied one, validated the same way a file reload is. The
// override survives until the next file-backed reload overwrites it.
func (cl *ConfigLoader) OverrideDefault(rs models.RateSheet) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.current == nil {
		return errors.New(errors.ErrConfigUnavailable, "pricing_config", "no pricing config loaded")
	}
	next := *cl.current
	next.Default = rs
	if err := validate(&next); err != nil {
		return fmt.Errorf("validate fallback override: %w", err)
	}
	cl.current = &next
	return nil
}

func (cl *ConfigLoader) watch() {
	ticker := time.NewTicker(cl.reloadInterval)
	defer ticker.Stop()
	for {
		select {
		case <-cl.stopCh:
			return
		case <-ticker.C:
			if err := cl.reload(); err != nil {
				cl.log.WithError(err).Warn("pricing config reload failed, retaining previous config")
			}
		}
	}
}

// reload parses and validates the file at cl.path. On any failure the
// previously loaded config (if any) is retained untouched; this is the
// spec's "invalid reload -> previous valid config retained" rule.
func (cl *ConfigLoader) reload() error {
	info, err := os.Stat(cl.path)
	if err != nil {
		if cl.everLoaded {
			return nil
		}
		return errors.New(errors.ErrConfigUnavailable, "pricing_config", err.Error())
	}
	if cl.everLoaded && !info.ModTime().After(cl.lastModified) {
		return nil
	}

	raw, err := os.ReadFile(cl.path)
	if err != nil {
		return fmt.Errorf("read pricing config: %w", err)
	}

	var cfg models.PricingConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("parse pricing config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return fmt.Errorf("validate pricing config: %w", err)
	}
	cfg.LoadedAt = time.Now().UTC()

	cl.mu.Lock()
	cl.current = &cfg
	cl.lastModified = info.ModTime()
	cl.everLoaded = true
	cl.mu.Unlock()

	if cl.log != nil {
		cl.log.WithFields(logger.Fields{"path": cl.path, "version": cfg.Version}).Info("pricing config loaded")
	}
	return nil
}

// validate enforces spec.md §3's PricingConfig invariants: the configured
// per_km_rate falls within the economic constraints, rounding
// denominations are drawn from the allowed set, and every time-based
// multiplier has a start_hour within [0,23] and an end_hour within
// [0,24] (end_hour is the exclusive upper bound).
func validate(cfg *models.PricingConfig) error {
	min, max := cfg.EconomicConstraints.MinDriverRate, cfg.EconomicConstraints.MaxDriverRate
	if min > 0 && max > 0 && (cfg.Default.PerKmRate < min || cfg.Default.PerKmRate > max) {
		return fmt.Errorf("per_km_rate %v violates constraints [%v, %v]", cfg.Default.PerKmRate, min, max)
	}
	for _, d := range cfg.Default.RoundingDenominations {
		if !allowedRoundingDenominations[d] {
			return fmt.Errorf("invalid rounding denomination %v", d)
		}
	}
	for _, tb := range cfg.TimeBasedMultipliers {
		// EndHour may be 24 to mean "through the end of the day" (the
		// half-open range's exclusive upper bound), e.g. 23-24 covers
		// only hour 23.
		if tb.StartHour < 0 || tb.StartHour > 23 || tb.EndHour < 0 || tb.EndHour > 24 {
			return fmt.Errorf("invalid time range %d-%d", tb.StartHour, tb.EndHour)
		}
	}
	for zone, override := range cfg.ZoneOverrides {
		for _, d := range override.RoundingDenominations {
			if !allowedRoundingDenominations[d] {
				return fmt.Errorf("zone %s: invalid rounding denomination %v", zone, d)
			}
		}
	}
	return nil
}
