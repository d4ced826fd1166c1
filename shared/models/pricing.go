package models

import "time"

// FareBreakdown represents a detailed breakdown of a fare calculation, in
// the configured currency's major units (matching the YAML rate sheet,
// which is authored in major units, not cents).
type FareBreakdown struct {
	Base     float64 `json:"base"`
	Distance float64 `json:"distance"`
	Time     float64 `json:"time"`
	Surge    float64 `json:"surge"`
}

// PriceResult is the outcome of one PricingEngine.CalculatePrice call.
type PriceResult struct {
	CalculationID      string        `json:"calculation_id"`
	PassengerFareTotal float64       `json:"passenger_fare_total"`
	DriverPayoutTotal  float64       `json:"driver_payout_total"`
	PlatformCommission float64       `json:"platform_commission"`
	Breakdown          FareBreakdown `json:"breakdown"`
	PricingModelVersion int          `json:"pricing_model_version"`
	PriceExpiresAt     time.Time     `json:"price_expires_at"`
	ABVariant          string        `json:"ab_test_variant,omitempty"`
}

// TimeMultiplier applies a surge_multiplier to any current UTC hour in
// [StartHour, EndHour). EndHour is exclusive, matching spec.md's boundary
// rule that an hour exactly equal to end_hour is NOT in the range.
type TimeMultiplier struct {
	StartHour       int     `yaml:"start_hour" json:"start_hour"`
	EndHour         int     `yaml:"end_hour" json:"end_hour"`
	SurgeMultiplier float64 `yaml:"surge_multiplier" json:"surge_multiplier"`
}

// Contains reports whether hour falls in [StartHour, EndHour).
func (tm TimeMultiplier) Contains(hour int) bool {
	return hour >= tm.StartHour && hour < tm.EndHour
}

// ABVariant is a named pricing variant considered during deterministic
// A/B bucketing.
type ABVariant struct {
	Name             string  `yaml:"name" json:"name"`
	SurgeMultiplier  float64 `yaml:"surge_multiplier" json:"surge_multiplier"`
	Weight           float64 `yaml:"weight" json:"weight"`
}

// EconomicConstraints bounds the allowed per_km_rate and gives the
// operational cost floor the guardrail checks against.
type EconomicConstraints struct {
	MinDriverRate        float64 `yaml:"min_driver_rate" json:"min_driver_rate"`
	MaxDriverRate        float64 `yaml:"max_driver_rate" json:"max_driver_rate"`
	OperationalCostFloor float64 `yaml:"operational_cost_floor" json:"operational_cost_floor"`
}

// RateSheet is the set of fields that compose the `default` section and
// may be partially overridden per zone.
type RateSheet struct {
	BaseFare              float64   `yaml:"base_fare" json:"base_fare"`
	PerKmRate             float64   `yaml:"per_km_rate" json:"per_km_rate"`
	PerMinRate            float64   `yaml:"per_min_rate" json:"per_min_rate"`
	CommissionPercent     float64   `yaml:"commission_percent" json:"commission_percent"`
	RoundingDenominations []float64 `yaml:"rounding_denominations" json:"rounding_denominations"`
	MinimumFare           float64   `yaml:"minimum_fare" json:"minimum_fare"`
}

// ZoneOverride overlays a subset of RateSheet fields onto the default for
// a specific zone. A nil field (or an empty RoundingDenominations) means
// "not overridden" — the engine's applyZoneOverride replaces only the
// fields that are set, matching the Python original's dict-update
// overlay.
type ZoneOverride struct {
	Zone                  string    `yaml:"zone" json:"zone"`
	BaseFare              *float64  `yaml:"base_fare" json:"base_fare,omitempty"`
	PerKmRate             *float64  `yaml:"per_km_rate" json:"per_km_rate,omitempty"`
	PerMinRate            *float64  `yaml:"per_min_rate" json:"per_min_rate,omitempty"`
	CommissionPercent     *float64  `yaml:"commission_percent" json:"commission_percent,omitempty"`
	RoundingDenominations []float64 `yaml:"rounding_denominations" json:"rounding_denominations,omitempty"`
	MinimumFare           *float64  `yaml:"minimum_fare" json:"minimum_fare,omitempty"`
}

// PricingConfig is the process-wide, hot-reloadable fare configuration.
// A loaded PricingConfig is treated as immutable; reload produces a new
// value swapped atomically behind a pointer, never mutated in place.
type PricingConfig struct {
	Version               int                    `yaml:"version" json:"version"`
	Default               RateSheet              `yaml:"default" json:"default"`
	ZoneOverrides         map[string]ZoneOverride `yaml:"zone_overrides" json:"zone_overrides"`
	TimeBasedMultipliers  []TimeMultiplier        `yaml:"time_based_multipliers" json:"time_based_multipliers"`
	ABTests               []ABVariant             `yaml:"ab_tests" json:"ab_tests"`
	EconomicConstraints    EconomicConstraints     `yaml:"economic_constraints" json:"economic_constraints"`
	LoadedAt              time.Time               `yaml:"-" json:"loaded_at"`
}

// ActiveRates is the fully resolved rate sheet for one pricing call: the
// default overlaid with a zone override and a surge multiplier, plus the
// A/B variant name chosen (if any), carried for telemetry.
type ActiveRates struct {
	RateSheet
	SurgeMultiplier float64
	ABVariant       string
}
