package clients

import (
	"context"

	"github.com/ridehail/control-plane/shared/httpclient"
	"github.com/ridehail/control-plane/shared/models"
)

// PricingClient calls PricingService.CalculatePrice. This is a second,
// orchestrator-owned copy of trip-service's internal pricingclient: the
// saga's step 3 prices the trip before reserving a driver (so a
// guardrail rejection never leaves a driver reserved), while
// TripService.CreateTrip independently reprices at commit time (step 5)
// since time may have passed since step 3's quote. Both calls hit the
// same PricingService.
type PricingClient struct {
	http *httpclient.Client
}

// NewPricingClient creates a PricingClient bound to http.
func NewPricingClient(http *httpclient.Client) *PricingClient {
	return &PricingClient{http: http}
}

// CalculateRequest mirrors pricing-service's calculatePriceRequest body.
type CalculateRequest struct {
	TripRequestID            string          `json:"trip_request_id"`
	PassengerID              string          `json:"passenger_id"`
	MatchedDriverID          string          `json:"matched_driver_id"`
	Origin                   models.Location `json:"origin"`
	Destination              models.Location `json:"destination"`
	EstimatedDistanceMeters  float64         `json:"estimated_distance_meters"`
	EstimatedDurationSeconds float64         `json:"estimated_duration_seconds"`
	DemandMultiplier         float64         `json:"demand_multiplier"`
	SupplyMultiplier         float64         `json:"supply_multiplier"`
	DriverAcceptanceRate     float64         `json:"driver_acceptance_rate"`
	DriverRating             float64         `json:"driver_rating"`
	PricingSeed              int64           `json:"pricing_seed"`
	Zone                     string          `json:"zone"`
}

// CalculatePrice calls PricingService, retrying transient failures with
// fixed backoff per spec.md §4.6's RPC failure policy.
func (c *PricingClient) CalculatePrice(ctx context.Context, req CalculateRequest) (*models.PriceResult, error) {
	var result models.PriceResult
	err := c.http.CallWithRetry(ctx, func(ctx context.Context) error {
		return c.http.Do(ctx, "POST", "/api/v1/pricing/calculate", req, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
