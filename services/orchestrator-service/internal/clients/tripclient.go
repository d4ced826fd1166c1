package clients

import (
	"context"
	"fmt"

	"github.com/ridehail/control-plane/shared/httpclient"
	"github.com/ridehail/control-plane/shared/models"
)

// TripClient calls TripService.CreateTrip, the saga's commit point
// (step 5). Trip creation itself has no compensation: a failure here
// rolls back steps 1-4 instead (spec.md §4.6's step table).
type TripClient struct {
	http *httpclient.Client
}

// NewTripClient creates a TripClient bound to http.
func NewTripClient(http *httpclient.Client) *TripClient {
	return &TripClient{http: http}
}

// CreateTripRequest mirrors trip-service's createTripRequest body.
type CreateTripRequest struct {
	TripRequestID            string          `json:"trip_request_id"`
	PassengerID              string          `json:"passenger_id"`
	DriverID                 string          `json:"driver_id"`
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

// CreateTrip commits the trip.
func (c *TripClient) CreateTrip(ctx context.Context, req CreateTripRequest) (*models.Trip, error) {
	var result models.Trip
	err := c.http.CallWithRetry(ctx, func(ctx context.Context) error {
		return c.http.Do(ctx, "POST", "/api/v1/trips", req, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTripByID looks up a committed trip by id, used to replay an
// idempotent workflow result.
func (c *TripClient) GetTripByID(ctx context.Context, tripID string) (*models.Trip, error) {
	var result models.Trip
	err := c.http.CallWithRetry(ctx, func(ctx context.Context) error {
		return c.http.Do(ctx, "GET", fmt.Sprintf("/api/v1/trips/%s", tripID), nil, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
