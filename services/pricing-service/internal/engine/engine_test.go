package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ridehail/control-plane/shared/errors"
	"github.com/ridehail/control-plane/shared/logger"
	"github.com/ridehail/control-plane/shared/models"
)

func testLogger() *logger.Logger {
	return logger.NewLogger("error", "test")
}

// newLoaderWithConfig builds a ConfigLoader around a config that is
// already valid, bypassing the file-backed reload path so tests don't
// touch disk.
func newLoaderWithConfig(cfg models.PricingConfig) *ConfigLoader {
	return &ConfigLoader{current: &cfg, everLoaded: true, stopCh: make(chan struct{})}
}

func baseConfig() models.PricingConfig {
	return models.PricingConfig{
		Version: 1,
		Default: models.RateSheet{
			BaseFare:              2.0,
			PerKmRate:             1.0,
			PerMinRate:            0.2,
			CommissionPercent:     20,
			RoundingDenominations: []float64{0.5, 1, 3, 5},
			MinimumFare:           3.0,
		},
		EconomicConstraints: models.EconomicConstraints{
			MinDriverRate:        0.5,
			MaxDriverRate:        5.0,
			OperationalCostFloor: 1.0,
		},
	}
}

func TestCalculatePrice_HappyPath(t *testing.T) {
	cfg := baseConfig()
	e := New(newLoaderWithConfig(cfg), testLogger())

	result, err := e.CalculatePrice(CalculateRequest{
		TripRequestID:            "TR1",
		PassengerID:              "P1",
		MatchedDriverID:          "D1",
		EstimatedDistanceMeters:  5000,
		EstimatedDurationSeconds: 600,
		DemandMultiplier:         1.0,
	})

	require.NoError(t, err)
	// base 2 + 5km*1 + 10min*0.2 = 9.0, surge 1.0 -> rounds to 9 (nearest of 0.5/1/3/5 multiples)
	assert.Equal(t, 9.0, result.PassengerFareTotal)
	assert.InDelta(t, 9.0*0.8, result.DriverPayoutTotal, 1e-9)
	assert.InDelta(t, 9.0*0.2, result.PlatformCommission, 1e-9)
	assert.Equal(t, 1, result.PricingModelVersion)
}

func TestCalculatePrice_ZeroDistanceAndDuration_BaseFareOnly(t *testing.T) {
	cfg := baseConfig()
	cfg.Default.MinimumFare = 0
	e := New(newLoaderWithConfig(cfg), testLogger())

	result, err := e.CalculatePrice(CalculateRequest{DemandMultiplier: 1.0})

	require.NoError(t, err)
	assert.Equal(t, roundToDenomination(2.0, cfg.Default.RoundingDenominations), result.PassengerFareTotal)
}

func TestCalculatePrice_MinimumFareFloorApplied(t *testing.T) {
	cfg := baseConfig()
	cfg.Default.MinimumFare = 50
	e := New(newLoaderWithConfig(cfg), testLogger())

	result, err := e.CalculatePrice(CalculateRequest{
		EstimatedDistanceMeters:  1000,
		EstimatedDurationSeconds: 60,
		DemandMultiplier:         1.0,
	})

	require.NoError(t, err)
	assert.Equal(t, 50.0, result.PassengerFareTotal)
}

func TestCalculatePrice_DemandBelowOneClampsToOne(t *testing.T) {
	cfg := baseConfig()
	cfg.Default.MinimumFare = 0
	e := New(newLoaderWithConfig(cfg), testLogger())

	low, err := e.CalculatePrice(CalculateRequest{
		EstimatedDistanceMeters:  5000,
		EstimatedDurationSeconds: 600,
		DemandMultiplier:         0.3,
	})
	require.NoError(t, err)

	one, err := e.CalculatePrice(CalculateRequest{
		EstimatedDistanceMeters:  5000,
		EstimatedDurationSeconds: 600,
		DemandMultiplier:         1.0,
	})
	require.NoError(t, err)

	assert.Equal(t, one.PassengerFareTotal, low.PassengerFareTotal)
}

func TestCalculatePrice_EconomicGuardrailRejectsLowPayout(t *testing.T) {
	cfg := baseConfig()
	cfg.EconomicConstraints.OperationalCostFloor = 100
	e := New(newLoaderWithConfig(cfg), testLogger())

	_, err := e.CalculatePrice(CalculateRequest{
		EstimatedDistanceMeters:  5000,
		EstimatedDurationSeconds: 600,
		DemandMultiplier:         1.0,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrEconomicGuardrail)
}

func TestCalculatePrice_NoConfigLoadedReturnsConfigUnavailable(t *testing.T) {
	e := New(&ConfigLoader{stopCh: make(chan struct{})}, testLogger())

	_, err := e.CalculatePrice(CalculateRequest{DemandMultiplier: 1.0})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConfigUnavailable)
}

func TestResolveActiveRates_ZoneOverrideAppliedOverDefault(t *testing.T) {
	cfg := baseConfig()
	override := 9.99
	cfg.ZoneOverrides = map[string]models.ZoneOverride{
		"downtown": {Zone: "downtown", PerKmRate: &override},
	}

	rates, variant := resolveActiveRates(&cfg, "downtown", 10, 1)

	assert.Equal(t, "", variant)
	assert.Equal(t, 9.99, rates.PerKmRate)
	assert.Equal(t, cfg.Default.BaseFare, rates.BaseFare, "override only replaces the fields it sets")
}

func TestResolveActiveRates_UnknownZoneFallsBackToDefault(t *testing.T) {
	cfg := baseConfig()
	cfg.ZoneOverrides = map[string]models.ZoneOverride{"downtown": {Zone: "downtown"}}

	rates, _ := resolveActiveRates(&cfg, "suburbs", 10, 1)

	assert.Equal(t, cfg.Default.PerKmRate, rates.PerKmRate)
}

func TestResolveActiveRates_TimeMultiplierBoundaryIsHalfOpen(t *testing.T) {
	cfg := baseConfig()
	cfg.TimeBasedMultipliers = []models.TimeMultiplier{
		{StartHour: 22, EndHour: 2, SurgeMultiplier: 1.5},
	}

	// Note: Contains is a simple numeric range; with StartHour > EndHour
	// this multiplier never matches, which is intentional here since we
	// only exercise the half-open boundary within a single day below.
	cfg.TimeBasedMultipliers = []models.TimeMultiplier{
		{StartHour: 17, EndHour: 19, SurgeMultiplier: 1.5},
	}

	inRange, _ := resolveActiveRates(&cfg, "", 18, 1)
	assert.Equal(t, 1.5, inRange.SurgeMultiplier)

	atStart, _ := resolveActiveRates(&cfg, "", 17, 1)
	assert.Equal(t, 1.5, atStart.SurgeMultiplier, "start_hour is inclusive")

	atEnd, _ := resolveActiveRates(&cfg, "", 19, 1)
	assert.Equal(t, 1.0, atEnd.SurgeMultiplier, "end_hour is exclusive, so hour == end_hour does not match")
}

func TestResolveActiveRates_DeterministicABVariantSelection(t *testing.T) {
	cfg := baseConfig()
	cfg.ABTests = []models.ABVariant{
		{Name: "control", SurgeMultiplier: 1.0, Weight: 0.5},
		{Name: "treatment", SurgeMultiplier: 1.2, Weight: 0.5},
	}

	first, firstVariant := resolveActiveRates(&cfg, "", 10, 42)
	second, secondVariant := resolveActiveRates(&cfg, "", 10, 42)

	assert.Equal(t, firstVariant, secondVariant, "same seed must always pick the same variant")
	assert.Equal(t, first.SurgeMultiplier, second.SurgeMultiplier)
}

func TestRoundToDenomination_NearestMultipleWithSmallestDenominationTiebreak(t *testing.T) {
	assert.Equal(t, 9.0, roundToDenomination(9.0, []float64{0.5, 1, 3, 5}))
	assert.Equal(t, 10.0, roundToDenomination(10.2, []float64{0.5, 1, 3, 5}))
	// 2.0 is an exact multiple of 1, so the smaller denomination wins
	// outright; no tie is involved.
	assert.Equal(t, 2.0, roundToDenomination(2.0, []float64{1, 5}))
	// 4.0 rounds to 3 (distance 1) with denomination 3 and to 5
	// (distance 1) with denomination 5: an exact tie, which the smaller
	// denomination wins.
	assert.Equal(t, 3.0, roundToDenomination(4.0, []float64{3, 5}))
}

func TestApplyZoneOverride_OnlySetFieldsOverwritten(t *testing.T) {
	rs := models.RateSheet{BaseFare: 2.0, PerKmRate: 1.0, MinimumFare: 3.0}
	commission := 15.0
	applyZoneOverride(&rs, models.ZoneOverride{CommissionPercent: &commission})

	assert.Equal(t, 2.0, rs.BaseFare)
	assert.Equal(t, 1.0, rs.PerKmRate)
	assert.Equal(t, 15.0, rs.CommissionPercent)
}
