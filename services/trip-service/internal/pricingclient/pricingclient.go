// Package pricingclient is trip-service's outbound RPC client to
// PricingService, built on shared/httpclient the way every cross-service
// call in this module is, per SPEC_FULL.md's transport note.
package pricingclient

import (
	"context"

	"github.com/ridehail/control-plane/shared/httpclient"
	"github.com/ridehail/control-plane/shared/models"
)

// Client calls PricingService.CalculatePrice.
type Client struct {
	http *httpclient.Client
}

// New creates a Client that sends its requests through http.
func New(http *httpclient.Client) *Client {
	return &Client{http: http}
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
func (c *Client) CalculatePrice(ctx context.Context, req CalculateRequest) (*models.PriceResult, error) {
	var result models.PriceResult
	err := c.http.CallWithRetry(ctx, func(ctx context.Context) error {
		return c.http.Do(ctx, "POST", "/api/v1/pricing/calculate", req, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
