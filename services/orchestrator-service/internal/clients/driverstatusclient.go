package clients

import (
	"context"
	"fmt"

	"github.com/ridehail/control-plane/shared/httpclient"
	"github.com/ridehail/control-plane/shared/models"
)

// DriverStatusClient calls DriverStatusService's §4.2 operations.
type DriverStatusClient struct {
	http *httpclient.Client
}

// NewDriverStatusClient creates a DriverStatusClient bound to http.
func NewDriverStatusClient(http *httpclient.Client) *DriverStatusClient {
	return &DriverStatusClient{http: http}
}

type updateDriverStatusBody struct {
	Available       bool   `json:"available"`
	ExpectedVersion int    `json:"expected_version"`
	IdempotencyKey  string `json:"idempotency_key"`
}

// UpdateDriverStatus reserves (available=false) or releases
// (available=true) a driver. The saga's step 4 forward action reserves;
// its compensation releases with a fresh idempotency key.
func (c *DriverStatusClient) UpdateDriverStatus(ctx context.Context, driverID string, available bool, expectedVersion int, idempotencyKey string) (*models.DriverStatus, error) {
	var result models.DriverStatus
	err := c.http.CallWithRetry(ctx, func(ctx context.Context) error {
		return c.http.Do(ctx, "PUT", fmt.Sprintf("/api/v1/drivers/%s/status", driverID), updateDriverStatusBody{
			Available:       available,
			ExpectedVersion: expectedVersion,
			IdempotencyKey:  idempotencyKey,
		}, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetDriverStatus looks up a driver's current status.
func (c *DriverStatusClient) GetDriverStatus(ctx context.Context, driverID string) (*models.DriverStatus, error) {
	var result models.DriverStatus
	err := c.http.CallWithRetry(ctx, func(ctx context.Context) error {
		return c.http.Do(ctx, "GET", fmt.Sprintf("/api/v1/drivers/%s/status", driverID), nil, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
