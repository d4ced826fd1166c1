package workflow

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridehail/control-plane/services/orchestrator-service/internal/clients"
	"github.com/ridehail/control-plane/services/orchestrator-service/internal/idempotency"
	"github.com/ridehail/control-plane/shared/cache"
	apperrors "github.com/ridehail/control-plane/shared/errors"
	"github.com/ridehail/control-plane/shared/logger"
	"github.com/ridehail/control-plane/shared/models"
	"github.com/ridehail/control-plane/shared/utils"
)

// fakeTripRequests is an in-memory TripRequestClient fake mirroring
// trip-request-service's own store semantics closely enough to drive
// the saga and its compensation.
type fakeTripRequests struct {
	mu       sync.Mutex
	requests map[string]*models.TripRequest
}

func newFakeTripRequests() *fakeTripRequests {
	return &fakeTripRequests{requests: make(map[string]*models.TripRequest)}
}

func (f *fakeTripRequests) CreateTripRequest(ctx context.Context, passengerID string, origin, destination models.Location) (*models.TripRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.PassengerID == passengerID && r.Status == models.TripRequestStatusOpen {
			copy := *r
			return &copy, nil
		}
	}
	r := models.NewTripRequest(passengerID, origin, destination)
	f.requests[r.ID] = r
	copy := *r
	return &copy, nil
}

func (f *fakeTripRequests) CancelTripRequest(ctx context.Context, requestID string, expectedVersion int) (*models.TripRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[requestID]
	if !ok {
		return nil, apperrors.New(apperrors.ErrNotFound, "trip_request", requestID)
	}
	if err := r.ApplyTransition(models.TripRequestStatusCancelled, expectedVersion); err != nil {
		return nil, err
	}
	copy := *r
	return &copy, nil
}

func (f *fakeTripRequests) FulfillTripRequest(ctx context.Context, requestID string, expectedVersion int) (*models.TripRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[requestID]
	if !ok {
		return nil, apperrors.New(apperrors.ErrNotFound, "trip_request", requestID)
	}
	if err := r.ApplyTransition(models.TripRequestStatusFulfilled, expectedVersion); err != nil {
		return nil, err
	}
	copy := *r
	return &copy, nil
}

func (f *fakeTripRequests) GetTripRequest(ctx context.Context, requestID string) (*models.TripRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[requestID]
	if !ok {
		return nil, apperrors.New(apperrors.ErrNotFound, "trip_request", requestID)
	}
	copy := *r
	return &copy, nil
}

// fakeMatching always returns the first pool entry as the sole candidate,
// unless configured to return no candidates.
type fakeMatching struct {
	noCandidates bool
}

func (f *fakeMatching) GetCandidates(ctx context.Context, tripRequestID string, origin, destination models.Location, seed int64, maxCandidates int, pool []clients.PoolEntry) (*clients.CandidatesResult, error) {
	if f.noCandidates || len(pool) == 0 {
		return &clients.CandidatesResult{Candidates: nil, ReasonCode: "NO_DRIVERS_AVAILABLE"}, nil
	}
	return &clients.CandidatesResult{
		Candidates: []clients.ScoredCandidate{{DriverID: pool[0].DriverID, Score: 0, Probability: 1}},
	}, nil
}

// fakePricing returns a fixed, guardrail-passing quote unless configured
// to reject.
type fakePricing struct {
	reject bool
}

func (f *fakePricing) CalculatePrice(ctx context.Context, req clients.CalculateRequest) (*models.PriceResult, error) {
	if f.reject {
		return nil, apperrors.New(apperrors.ErrEconomicGuardrail, "pricing", "driver payout below floor")
	}
	return &models.PriceResult{
		CalculationID:      utils.GenerateID(),
		PassengerFareTotal: 20,
		DriverPayoutTotal:  15,
		PlatformCommission: 5,
	}, nil
}

// fakeDrivers is an in-memory DriverStatusClient fake.
type fakeDrivers struct {
	mu      sync.Mutex
	drivers map[string]*models.DriverStatus
}

func newFakeDrivers() *fakeDrivers {
	return &fakeDrivers{drivers: make(map[string]*models.DriverStatus)}
}

func (f *fakeDrivers) getOrCreate(driverID string) *models.DriverStatus {
	d, ok := f.drivers[driverID]
	if !ok {
		d = models.NewDriverStatus(driverID)
		f.drivers[driverID] = d
	}
	return d
}

func (f *fakeDrivers) UpdateDriverStatus(ctx context.Context, driverID string, available bool, expectedVersion int, idempotencyKey string) (*models.DriverStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.getOrCreate(driverID)
	var err error
	if available {
		err = d.Release(idempotencyKey, expectedVersion)
	} else {
		err = d.Reserve(idempotencyKey, expectedVersion)
	}
	if err != nil {
		return nil, err
	}
	copy := *d
	return &copy, nil
}

func (f *fakeDrivers) GetDriverStatus(ctx context.Context, driverID string) (*models.DriverStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.getOrCreate(driverID)
	copy := *d
	return &copy, nil
}

// fakeTrips is an in-memory TripClient fake, optionally forced to fail
// to exercise compensation.
type fakeTrips struct {
	mu      sync.Mutex
	trips   map[string]*models.Trip
	byReq   map[string]string
	failing bool
}

func newFakeTrips() *fakeTrips {
	return &fakeTrips{trips: make(map[string]*models.Trip), byReq: make(map[string]string)}
}

func (f *fakeTrips) CreateTrip(ctx context.Context, req clients.CreateTripRequest) (*models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, apperrors.New(apperrors.ErrPricingRejected, "trip", "forced failure")
	}
	if id, ok := f.byReq[req.TripRequestID]; ok {
		copy := *f.trips[id]
		return &copy, nil
	}
	trip := models.NewTrip(req.TripRequestID, req.PassengerID, req.DriverID, req.Origin, req.Destination)
	f.trips[trip.ID] = trip
	f.byReq[req.TripRequestID] = trip.ID
	copy := *trip
	return &copy, nil
}

func (f *fakeTrips) GetTripByID(ctx context.Context, tripID string) (*models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trips[tripID]
	if !ok {
		return nil, apperrors.New(apperrors.ErrNotFound, "trip", tripID)
	}
	copy := *t
	return &copy, nil
}

func testLogger() *logger.Logger {
	return logger.NewLogger("error", "test")
}

func samplePool() []clients.PoolEntry {
	return []clients.PoolEntry{
		{DriverID: "D1", Location: models.Location{Latitude: 39.60, Longitude: 67.80}},
		{DriverID: "D2", Location: models.Location{Latitude: 39.61, Longitude: 67.81}},
	}
}

func newTestWorkflow(tripRequests *fakeTripRequests, matching *fakeMatching, pricing *fakePricing, drivers *fakeDrivers, trips *fakeTrips) *Workflow {
	idemStore := idempotency.New(cache.NewMemoryCache(0), 0)
	return New(tripRequests, matching, pricing, drivers, trips, idemStore, nil, testLogger())
}

func TestCreateTrip_HappyPath(t *testing.T) {
	wf := newTestWorkflow(newFakeTripRequests(), &fakeMatching{}, &fakePricing{}, newFakeDrivers(), newFakeTrips())

	trip, err := wf.CreateTrip(context.Background(), Request{
		PassengerID: "P1",
		Origin:      models.Location{Latitude: 39.60, Longitude: 67.80},
		Destination: models.Location{Latitude: 39.65, Longitude: 67.85},
		DriverPool:  samplePool(),
		Seed:        42,
	})

	require.NoError(t, err)
	assert.Equal(t, models.TripStatusAccepted, trip.Status)
	assert.Equal(t, "D1", trip.DriverID)

	request, getErr := wf.tripRequests.GetTripRequest(context.Background(), trip.TripRequestID)
	require.NoError(t, getErr)
	assert.Equal(t, models.TripRequestStatusFulfilled, request.Status,
		"trip request must transition OPEN -> FULFILLED once the trip references it")
}

// TestCreateTrip_SecondRequestAfterFulfillmentStartsFresh guards against a
// regression where CreateTripRequest's OPEN-idempotency (spec.md §4.4)
// combined with a never-fulfilled request would return the passenger's
// original, already-terminal request/trip on every subsequent call.
func TestCreateTrip_SecondRequestAfterFulfillmentStartsFresh(t *testing.T) {
	tripRequests := newFakeTripRequests()
	drivers := newFakeDrivers()
	trips := newFakeTrips()
	wf := newTestWorkflow(tripRequests, &fakeMatching{}, &fakePricing{}, drivers, trips)

	first, err := wf.CreateTrip(context.Background(), Request{
		PassengerID: "P1",
		Origin:      models.Location{Latitude: 39.60, Longitude: 67.80},
		Destination: models.Location{Latitude: 39.65, Longitude: 67.85},
		DriverPool:  samplePool(),
		Seed:        42,
	})
	require.NoError(t, err)

	second, err := wf.CreateTrip(context.Background(), Request{
		PassengerID: "P1",
		Origin:      models.Location{Latitude: 39.62, Longitude: 67.82},
		Destination: models.Location{Latitude: 39.66, Longitude: 67.86},
		DriverPool:  samplePool(),
		Seed:        43,
	})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID, "second call must create a new trip, not replay the fulfilled one")
	assert.NotEqual(t, first.TripRequestID, second.TripRequestID)
	assert.Len(t, tripRequests.requests, 2)
}

func TestCreateTrip_Idempotent(t *testing.T) {
	tripRequests := newFakeTripRequests()
	drivers := newFakeDrivers()
	trips := newFakeTrips()
	wf := newTestWorkflow(tripRequests, &fakeMatching{}, &fakePricing{}, drivers, trips)

	req := Request{
		IdempotencyKey: "key-1",
		PassengerID:    "P1",
		Origin:         models.Location{Latitude: 39.60, Longitude: 67.80},
		Destination:    models.Location{Latitude: 39.65, Longitude: 67.85},
		DriverPool:     samplePool(),
		Seed:           42,
	}

	first, err := wf.CreateTrip(context.Background(), req)
	require.NoError(t, err)

	second, err := wf.CreateTrip(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, trips.trips, 1)
	assert.Len(t, tripRequests.requests, 1)
}

func TestCreateTrip_NoCandidatesCompensatesTripRequest(t *testing.T) {
	tripRequests := newFakeTripRequests()
	wf := newTestWorkflow(tripRequests, &fakeMatching{noCandidates: true}, &fakePricing{}, newFakeDrivers(), newFakeTrips())

	_, err := wf.CreateTrip(context.Background(), Request{
		PassengerID: "P1",
		Origin:      models.Location{Latitude: 39.60, Longitude: 67.80},
		Destination: models.Location{Latitude: 39.65, Longitude: 67.85},
		DriverPool:  samplePool(),
		Seed:        42,
	})

	require.Error(t, err)
	assert.True(t, apperrors.Classify(err) == apperrors.ClassPermanent)

	for _, r := range tripRequests.requests {
		assert.Equal(t, models.TripRequestStatusCancelled, r.Status)
	}
}

func TestCreateTrip_PricingGuardrailCompensatesTripRequest(t *testing.T) {
	tripRequests := newFakeTripRequests()
	wf := newTestWorkflow(tripRequests, &fakeMatching{}, &fakePricing{reject: true}, newFakeDrivers(), newFakeTrips())

	_, err := wf.CreateTrip(context.Background(), Request{
		PassengerID: "P1",
		Origin:      models.Location{Latitude: 39.60, Longitude: 67.80},
		Destination: models.Location{Latitude: 39.65, Longitude: 67.85},
		DriverPool:  samplePool(),
		Seed:        42,
	})

	require.Error(t, err)
	for _, r := range tripRequests.requests {
		assert.Equal(t, models.TripRequestStatusCancelled, r.Status)
	}
}

func TestCreateTrip_CommitFailureReleasesDriverAndCancelsRequest(t *testing.T) {
	tripRequests := newFakeTripRequests()
	drivers := newFakeDrivers()
	trips := newFakeTrips()
	trips.failing = true
	wf := newTestWorkflow(tripRequests, &fakeMatching{}, &fakePricing{}, drivers, trips)

	_, err := wf.CreateTrip(context.Background(), Request{
		PassengerID: "P1",
		Origin:      models.Location{Latitude: 39.60, Longitude: 67.80},
		Destination: models.Location{Latitude: 39.65, Longitude: 67.85},
		DriverPool:  samplePool(),
		Seed:        42,
	})

	require.Error(t, err)

	driver, getErr := drivers.GetDriverStatus(context.Background(), "D1")
	require.NoError(t, getErr)
	assert.True(t, driver.Available, "compensation should release the reserved driver")

	for _, r := range tripRequests.requests {
		assert.Equal(t, models.TripRequestStatusCancelled, r.Status)
	}
}
