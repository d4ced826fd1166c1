package engine

import (
	"math"
	"math/rand"
	"time"

	"github.com/ridehail/control-plane/shared/errors"
	"github.com/ridehail/control-plane/shared/logger"
	"github.com/ridehail/control-plane/shared/models"
	"github.com/ridehail/control-plane/shared/utils"
)

// CalculateRequest is the input to one fare calculation, matching
// spec.md §4.1's input list.
type CalculateRequest struct {
	TripRequestID            string
	PassengerID              string
	MatchedDriverID          string
	Origin                   models.Location
	Destination              models.Location
	EstimatedDistanceMeters  float64
	EstimatedDurationSeconds float64
	DemandMultiplier         float64
	SupplyMultiplier         float64
	DriverAcceptanceRate     float64
	DriverRating             float64
	PricingSeed              int64
	Zone                     string
}

// Engine computes fares against the currently active PricingConfig
// snapshot. It holds no mutable pricing state itself — all hot-reloadable
// state lives in the ConfigLoader it wraps.
type Engine struct {
	loader *ConfigLoader
	log    *logger.Logger
}

// New creates an Engine backed by loader.
func New(loader *ConfigLoader, log *logger.Logger) *Engine {
	return &Engine{loader: loader, log: log}
}

// CalculatePrice implements spec.md §4.1's seven-step algorithm.
func (e *Engine) CalculatePrice(req CalculateRequest) (*models.PriceResult, error) {
	cfg := e.loader.Snapshot()
	if cfg == nil {
		return nil, errors.New(errors.ErrConfigUnavailable, "pricing_engine", "no pricing config has ever loaded")
	}

	rates, abVariant := resolveActiveRates(cfg, req.Zone, time.Now().UTC().Hour(), req.PricingSeed)

	distanceKm := req.EstimatedDistanceMeters / 1000.0
	durationMin := req.EstimatedDurationSeconds / 60.0

	base := rates.BaseFare
	distanceFare := rates.PerKmRate * distanceKm
	timeFare := rates.PerMinRate * durationMin
	subtotal := base + distanceFare + timeFare

	demand := req.DemandMultiplier
	if demand < 1.0 {
		demand = 1.0
	}
	effectiveSurge := math.Max(1.0, demand*rates.SurgeMultiplier)
	rawTotal := subtotal * effectiveSurge
	surgeComponent := rawTotal - subtotal

	if rates.MinimumFare > 0 && rawTotal < rates.MinimumFare {
		rawTotal = rates.MinimumFare
	}

	denominations := rates.RoundingDenominations
	if len(denominations) == 0 {
		denominations = []float64{0.5, 1, 3, 5}
	}
	roundedTotal := roundToDenomination(rawTotal, denominations)

	commission := roundedTotal * rates.CommissionPercent / 100.0
	driverPayout := roundedTotal - commission

	result := &models.PriceResult{
		CalculationID:      utils.GenerateID(),
		PassengerFareTotal: roundedTotal,
		DriverPayoutTotal:  driverPayout,
		PlatformCommission: commission,
		Breakdown: models.FareBreakdown{
			Base:     base,
			Distance: distanceFare,
			Time:     timeFare,
			Surge:    surgeComponent,
		},
		PricingModelVersion: cfg.Version,
		PriceExpiresAt:      time.Now().UTC().Add(5 * time.Minute),
		ABVariant:           abVariant,
	}

	operationalFloor := cfg.EconomicConstraints.OperationalCostFloor
	if !(result.PassengerFareTotal > result.DriverPayoutTotal && result.DriverPayoutTotal > operationalFloor) {
		return nil, errors.New(errors.ErrEconomicGuardrail, "pricing_engine",
			"passenger_fare_total must exceed driver_payout_total, which must exceed the operational cost floor")
	}

	return result, nil
}

// resolveActiveRates implements the resolution order grounded in
// original_source's get_active_config: default, overlaid by a zone
// override, overlaid by the first matching time-of-day multiplier
// (else surge 1.0), with an A/B variant picked deterministically from
// the pricing seed.
func resolveActiveRates(cfg *models.PricingConfig, zone string, currentHour int, seed int64) (models.ActiveRates, string) {
	rates := models.ActiveRates{RateSheet: cfg.Default, SurgeMultiplier: 1.0}

	if zone != "" {
		if override, ok := cfg.ZoneOverrides[zone]; ok {
			applyZoneOverride(&rates.RateSheet, override)
		}
	}

	for _, tb := range cfg.TimeBasedMultipliers {
		if tb.Contains(currentHour) {
			rates.SurgeMultiplier = tb.SurgeMultiplier
			break
		}
	}

	if len(cfg.ABTests) > 0 {
		variant := pickDeterministicVariant(cfg.ABTests, seed)
		rates.SurgeMultiplier *= variant.SurgeMultiplier
		return rates, variant.Name
	}
	return rates, ""
}

func applyZoneOverride(rs *models.RateSheet, override models.ZoneOverride) {
	if override.BaseFare != nil {
		rs.BaseFare = *override.BaseFare
	}
	if override.PerKmRate != nil {
		rs.PerKmRate = *override.PerKmRate
	}
	if override.PerMinRate != nil {
		rs.PerMinRate = *override.PerMinRate
	}
	if override.CommissionPercent != nil {
		rs.CommissionPercent = *override.CommissionPercent
	}
	if override.MinimumFare != nil {
		rs.MinimumFare = *override.MinimumFare
	}
	if len(override.RoundingDenominations) > 0 {
		rs.RoundingDenominations = override.RoundingDenominations
	}
}

// pickDeterministicVariant selects an A/B variant using a seeded RNG, so
// identical (config, seed) pairs always pick the same variant — the same
// determinism contract spec.md §9 requires for matching applies here.
func pickDeterministicVariant(variants []models.ABVariant, seed int64) models.ABVariant {
	r := rand.New(rand.NewSource(seed))
	return variants[r.Intn(len(variants))]
}

// roundToDenomination rounds value to the nearest multiple of the closest
// denomination in denominations, tie-breaking toward the smallest
// denomination when two candidate roundings are equally close.
func roundToDenomination(value float64, denominations []float64) float64 {
	best := value
	bestDiff := math.Inf(1)
	bestDenom := math.Inf(1)

	for _, d := range denominations {
		if d <= 0 {
			continue
		}
		candidate := math.Round(value/d) * d
		diff := math.Abs(candidate - value)
		if diff < bestDiff-1e-9 || (math.Abs(diff-bestDiff) <= 1e-9 && d < bestDenom) {
			best = candidate
			bestDiff = diff
			bestDenom = d
		}
	}
	return best
}
