package service

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridehail/control-plane/services/trip-service/internal/pricingclient"
	apperrors "github.com/ridehail/control-plane/shared/errors"
	"github.com/ridehail/control-plane/shared/logger"
	"github.com/ridehail/control-plane/shared/models"
)

// fakeRepository is an in-memory Repository fake keyed by both trip id
// and trip_request_id, exercising the same uniqueness contract the Mongo
// implementation enforces via a unique index.
type fakeRepository struct {
	mu           sync.Mutex
	byID         map[string]*models.Trip
	byRequestID  map[string]string
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		byID:        make(map[string]*models.Trip),
		byRequestID: make(map[string]string),
	}
}

func (r *fakeRepository) Create(ctx context.Context, trip *models.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byRequestID[trip.TripRequestID]; ok {
		return apperrors.New(apperrors.ErrVersionConflict, "trip", "duplicate trip_request_id")
	}
	copy := *trip
	r.byID[trip.ID] = &copy
	r.byRequestID[trip.TripRequestID] = trip.ID
	return nil
}

func (r *fakeRepository) FindByID(ctx context.Context, id string) (*models.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	trip, ok := r.byID[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrNotFound, "trip", id)
	}
	copy := *trip
	return &copy, nil
}

func (r *fakeRepository) FindByTripRequestID(ctx context.Context, tripRequestID string) (*models.Trip, error) {
	r.mu.Lock()
	id, ok := r.byRequestID[tripRequestID]
	r.mu.Unlock()
	if !ok {
		return nil, apperrors.New(apperrors.ErrNotFound, "trip", tripRequestID)
	}
	return r.FindByID(ctx, id)
}

func (r *fakeRepository) CompareAndSwap(ctx context.Context, trip *models.Trip, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[trip.ID]
	if !ok {
		return apperrors.New(apperrors.ErrNotFound, "trip", trip.ID)
	}
	if stored.Version != expectedVersion {
		return apperrors.New(apperrors.ErrVersionConflict, "trip", trip.ID)
	}
	copy := *trip
	r.byID[trip.ID] = &copy
	return nil
}

// fakePricingClient returns a fixed quote, or err when it is set.
type fakePricingClient struct {
	result   *models.PriceResult
	err      error
	calls    int
}

func (f *fakePricingClient) CalculatePrice(ctx context.Context, req pricingclient.CalculateRequest) (*models.PriceResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testLogger() *logger.Logger {
	return logger.NewLogger("error", "test")
}

func TestCreateTrip_Succeeds(t *testing.T) {
	repo := newFakeRepository()
	pricing := &fakePricingClient{result: &models.PriceResult{PassengerFareTotal: 20, DriverPayoutTotal: 15}}
	svc := New(repo, pricing, 16, testLogger())

	trip, err := svc.CreateTrip(context.Background(), CreateTripRequest{
		TripRequestID: "req-1",
		PassengerID:   "p-1",
		DriverID:      "d-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusAccepted, trip.Status)
	assert.Equal(t, 1, trip.Version)
	assert.Equal(t, 1, pricing.calls)
}

func TestCreateTrip_IdempotentOnTripRequestID(t *testing.T) {
	repo := newFakeRepository()
	pricing := &fakePricingClient{result: &models.PriceResult{PassengerFareTotal: 20, DriverPayoutTotal: 15}}
	svc := New(repo, pricing, 16, testLogger())

	req := CreateTripRequest{TripRequestID: "req-1", PassengerID: "p-1", DriverID: "d-1"}
	first, err := svc.CreateTrip(context.Background(), req)
	require.NoError(t, err)

	second, err := svc.CreateTrip(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, pricing.calls, "second call must not re-invoke pricing")
}

func TestCreateTrip_PricingRejectedDoesNotPersistTrip(t *testing.T) {
	repo := newFakeRepository()
	pricing := &fakePricingClient{err: apperrors.New(apperrors.ErrEconomicGuardrail, "pricing_engine", "guardrail")}
	svc := New(repo, pricing, 16, testLogger())

	_, err := svc.CreateTrip(context.Background(), CreateTripRequest{TripRequestID: "req-1", PassengerID: "p-1", DriverID: "d-1"})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, apperrors.ErrPricingRejected))

	_, findErr := repo.FindByTripRequestID(context.Background(), "req-1")
	assert.True(t, stderrors.Is(findErr, apperrors.ErrNotFound))
}

func TestUpdateTripStatus_FollowsFSM(t *testing.T) {
	repo := newFakeRepository()
	pricing := &fakePricingClient{result: &models.PriceResult{PassengerFareTotal: 20, DriverPayoutTotal: 15}}
	svc := New(repo, pricing, 16, testLogger())

	trip, err := svc.CreateTrip(context.Background(), CreateTripRequest{TripRequestID: "req-1", PassengerID: "p-1", DriverID: "d-1"})
	require.NoError(t, err)

	updated, err := svc.UpdateTripStatus(context.Background(), trip.ID, models.TripStatusEnRoute, trip.Version)
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusEnRoute, updated.Status)
	assert.Equal(t, 2, updated.Version)

	_, err = svc.UpdateTripStatus(context.Background(), trip.ID, models.TripStatusAccepted, updated.Version)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, apperrors.ErrIllegalTransition))
}

func TestUpdateTripStatus_VersionConflict(t *testing.T) {
	repo := newFakeRepository()
	pricing := &fakePricingClient{result: &models.PriceResult{PassengerFareTotal: 20, DriverPayoutTotal: 15}}
	svc := New(repo, pricing, 16, testLogger())

	trip, err := svc.CreateTrip(context.Background(), CreateTripRequest{TripRequestID: "req-1", PassengerID: "p-1", DriverID: "d-1"})
	require.NoError(t, err)

	_, err = svc.UpdateTripStatus(context.Background(), trip.ID, models.TripStatusEnRoute, trip.Version+1)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, apperrors.ErrVersionConflict))
}

func TestCancelTrip_RejectsNonCancelReason(t *testing.T) {
	repo := newFakeRepository()
	pricing := &fakePricingClient{result: &models.PriceResult{PassengerFareTotal: 20, DriverPayoutTotal: 15}}
	svc := New(repo, pricing, 16, testLogger())

	trip, err := svc.CreateTrip(context.Background(), CreateTripRequest{TripRequestID: "req-1", PassengerID: "p-1", DriverID: "d-1"})
	require.NoError(t, err)

	_, err = svc.CancelTrip(context.Background(), trip.ID, models.TripStatusCompleted, trip.Version)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, apperrors.ErrValidation))
}

