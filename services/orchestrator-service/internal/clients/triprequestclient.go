// Package clients holds the orchestrator's outbound RPC clients to each
// of the five leaf services, every one built on shared/httpclient the
// way trip-service's pricingclient is, per SPEC_FULL.md's transport
// note. The orchestrator is the one component that calls all five.
package clients

import (
	"context"
	"fmt"

	"github.com/ridehail/control-plane/shared/httpclient"
	"github.com/ridehail/control-plane/shared/models"
)

// TripRequestClient calls TripRequestService's §4.4 operations.
type TripRequestClient struct {
	http *httpclient.Client
}

// NewTripRequestClient creates a TripRequestClient bound to http.
func NewTripRequestClient(http *httpclient.Client) *TripRequestClient {
	return &TripRequestClient{http: http}
}

type createTripRequestBody struct {
	PassengerID string          `json:"passenger_id"`
	Origin      models.Location `json:"origin"`
	Destination models.Location `json:"destination"`
}

// CreateTripRequest creates (or idempotently returns) a passenger's OPEN
// trip request, the saga's step 1.
func (c *TripRequestClient) CreateTripRequest(ctx context.Context, passengerID string, origin, destination models.Location) (*models.TripRequest, error) {
	var result models.TripRequest
	err := c.http.CallWithRetry(ctx, func(ctx context.Context) error {
		return c.http.Do(ctx, "POST", "/api/v1/trip-requests", createTripRequestBody{
			PassengerID: passengerID,
			Origin:      origin,
			Destination: destination,
		}, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

type cancelTripRequestBody struct {
	ExpectedVersion int `json:"expected_version"`
}

// CancelTripRequest transitions a trip request OPEN -> CANCELLED; used as
// the compensation for step 1 when a later step fails permanently.
func (c *TripRequestClient) CancelTripRequest(ctx context.Context, requestID string, expectedVersion int) (*models.TripRequest, error) {
	var result models.TripRequest
	err := c.http.CallWithRetry(ctx, func(ctx context.Context) error {
		return c.http.Do(ctx, "POST", fmt.Sprintf("/api/v1/trip-requests/%s/cancel", requestID), cancelTripRequestBody{
			ExpectedVersion: expectedVersion,
		}, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

type fulfillTripRequestBody struct {
	ExpectedVersion int `json:"expected_version"`
}

// FulfillTripRequest transitions a trip request OPEN -> FULFILLED once the
// Trip that references it has been created, per spec.md §3's "status
// transitions ... OPEN→FULFILLED when a Trip references it" rule.
func (c *TripRequestClient) FulfillTripRequest(ctx context.Context, requestID string, expectedVersion int) (*models.TripRequest, error) {
	var result models.TripRequest
	err := c.http.CallWithRetry(ctx, func(ctx context.Context) error {
		return c.http.Do(ctx, "POST", fmt.Sprintf("/api/v1/trip-requests/%s/fulfill", requestID), fulfillTripRequestBody{
			ExpectedVersion: expectedVersion,
		}, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTripRequest looks up a trip request by id.
func (c *TripRequestClient) GetTripRequest(ctx context.Context, requestID string) (*models.TripRequest, error) {
	var result models.TripRequest
	err := c.http.CallWithRetry(ctx, func(ctx context.Context) error {
		return c.http.Do(ctx, "GET", fmt.Sprintf("/api/v1/trip-requests/%s", requestID), nil, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
