// Package workflow implements TripWorkflow, the saga orchestrator of
// spec.md §4.6: create trip request -> match -> price -> reserve driver
// -> create trip, idempotent on a caller key, compensating in reverse
// order on permanent failure.
package workflow

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"github.com/ridehail/control-plane/services/orchestrator-service/internal/clients"
	"github.com/ridehail/control-plane/services/orchestrator-service/internal/idempotency"
	apperrors "github.com/ridehail/control-plane/shared/errors"
	"github.com/ridehail/control-plane/shared/events"
	"github.com/ridehail/control-plane/shared/logger"
	"github.com/ridehail/control-plane/shared/metrics"
	"github.com/ridehail/control-plane/shared/models"
)

// Request is everything a caller supplies to start a CreateTrip saga.
// DriverPool stands in for the driver-location stream spec.md's
// Non-goals exclude: the caller (the external gateway) resolves which
// drivers are currently visible and passes that pool through, the same
// contract matching-service's own handler exposes.
type Request struct {
	IdempotencyKey string
	PassengerID    string
	Origin         models.Location
	Destination    models.Location
	DriverPool     []clients.PoolEntry
	Seed           int64
	MaxCandidates  int

	EstimatedDistanceMeters  float64
	EstimatedDurationSeconds float64
	DemandMultiplier         float64
	SupplyMultiplier         float64
	DriverAcceptanceRate     float64
	DriverRating             float64
	Zone                     string
}

// StepTimeout bounds every individual saga step beyond whatever
// per-call timeout its httpclient.Client already carries, per spec.md
// §5's "every outbound RPC" suspension point.
const StepTimeout = 2 * time.Second

// TripRequestClient is the subset of clients.TripRequestClient the
// workflow calls; extracted so tests can substitute fakes without an
// HTTP server, the same split trip-service's PricingClient interface
// makes.
type TripRequestClient interface {
	CreateTripRequest(ctx context.Context, passengerID string, origin, destination models.Location) (*models.TripRequest, error)
	CancelTripRequest(ctx context.Context, requestID string, expectedVersion int) (*models.TripRequest, error)
	FulfillTripRequest(ctx context.Context, requestID string, expectedVersion int) (*models.TripRequest, error)
	GetTripRequest(ctx context.Context, requestID string) (*models.TripRequest, error)
}

// MatchingClient is the subset of clients.MatchingClient the workflow calls.
type MatchingClient interface {
	GetCandidates(ctx context.Context, tripRequestID string, origin, destination models.Location, seed int64, maxCandidates int, pool []clients.PoolEntry) (*clients.CandidatesResult, error)
}

// PricingClient is the subset of clients.PricingClient the workflow calls.
type PricingClient interface {
	CalculatePrice(ctx context.Context, req clients.CalculateRequest) (*models.PriceResult, error)
}

// DriverStatusClient is the subset of clients.DriverStatusClient the
// workflow calls.
type DriverStatusClient interface {
	UpdateDriverStatus(ctx context.Context, driverID string, available bool, expectedVersion int, idempotencyKey string) (*models.DriverStatus, error)
	GetDriverStatus(ctx context.Context, driverID string) (*models.DriverStatus, error)
}

// TripClient is the subset of clients.TripClient the workflow calls.
type TripClient interface {
	CreateTrip(ctx context.Context, req clients.CreateTripRequest) (*models.Trip, error)
	GetTripByID(ctx context.Context, tripID string) (*models.Trip, error)
}

// Workflow sequences the five leaf services into one saga.
type Workflow struct {
	tripRequests TripRequestClient
	matching     MatchingClient
	pricing      PricingClient
	drivers      DriverStatusClient
	trips        TripClient

	idempotency *idempotency.Store
	events      *events.EventPublisher
	log         *logger.Logger
}

// New creates a Workflow wired to every leaf service client.
func New(
	tripRequests TripRequestClient,
	matching MatchingClient,
	pricing PricingClient,
	drivers DriverStatusClient,
	trips TripClient,
	idempotencyStore *idempotency.Store,
	eventPublisher *events.EventPublisher,
	log *logger.Logger,
) *Workflow {
	return &Workflow{
		tripRequests: tripRequests,
		matching:     matching,
		pricing:      pricing,
		drivers:      drivers,
		trips:        trips,
		idempotency:  idempotencyStore,
		events:       eventPublisher,
		log:          log,
	}
}

// CreateTrip runs the saga, or replays a prior execution's result if
// req.IdempotencyKey (or one derived here) was already recorded.
func (w *Workflow) CreateTrip(ctx context.Context, req Request) (*models.Trip, error) {
	start := time.Now()
	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}

	if tripID, found, err := w.idempotency.Lookup(ctx, key); err == nil && found {
		w.publish(ctx, events.WorkflowIdempotentReplayEvent, key, nil)
		trip, getErr := w.trips.GetTripByID(ctx, tripID)
		if getErr != nil {
			return nil, getErr
		}
		metrics.RecordWorkflowExecution("idempotent_replay", time.Since(start))
		return trip, nil
	}

	log := &executionLog{}
	trip, err := w.run(ctx, req, log)
	if err != nil {
		w.compensate(ctx, log)
		metrics.RecordWorkflowExecution("failed", time.Since(start))
		return nil, err
	}

	won, recErr := w.idempotency.Record(ctx, key, trip.ID)
	if recErr != nil {
		w.log.WithContext(ctx).WithError(recErr).Warn("failed to record workflow idempotency key")
	} else if !won {
		// Lost the race to a concurrent execution of the same key; the
		// winner's trip is authoritative, not the one this goroutine
		// just (redundantly) created.
		if existingID, found, lookupErr := w.idempotency.Lookup(ctx, key); lookupErr == nil && found {
			if existing, getErr := w.trips.GetTripByID(ctx, existingID); getErr == nil {
				trip = existing
			}
		}
	}

	w.publish(ctx, events.WorkflowCompletedEvent, trip.ID, map[string]interface{}{"idempotency_key": key})
	metrics.RecordWorkflowExecution("success", time.Since(start))
	return trip, nil
}

// run executes the five forward steps in order, short-circuiting on the
// first permanent or retry-exhausted failure. Every client call already
// retries transient failures with fixed backoff and fails fast on
// permanent ones (shared/httpclient.CallWithRetry), so run only needs to
// decide what to log and when to stop.
func (w *Workflow) run(ctx context.Context, req Request, log *executionLog) (*models.Trip, error) {
	var tripRequestRecord *models.TripRequest
	_, err := w.step(ctx, stepCreateTripRequest, "", func(ctx context.Context) (string, error) {
		created, err := w.tripRequests.CreateTripRequest(ctx, req.PassengerID, req.Origin, req.Destination)
		if err != nil {
			return "", err
		}
		tripRequestRecord = created
		return created.ID, nil
	}, func(id string) { log.record(stepCreateTripRequest, id) })
	if err != nil {
		return nil, err
	}

	candidate, err := w.matchStep(ctx, req, tripRequestRecord.ID)
	if err != nil {
		return nil, err
	}

	priceResult, err := w.priceStep(ctx, req, tripRequestRecord.ID, candidate)
	if err != nil {
		return nil, err
	}

	driverKey := uuid.NewString()
	if _, err := w.reserveDriverStep(ctx, candidate, driverKey); err != nil {
		return nil, err
	}
	log.record(stepReserveDriver, candidate)

	_ = priceResult // step 3's quote only gates the reservation decision; TripService reprices authoritatively at commit time
	trip, err := w.createTripStep(ctx, req, tripRequestRecord, candidate)
	if err != nil {
		return nil, err
	}
	log.record(stepCreateTrip, trip.ID)

	return trip, nil
}

// step wraps one forward action with start/succeed/fail telemetry. On
// success, onSuccess (if given) appends the step to the execution log so
// compensate can unwind it later.
func (w *Workflow) step(ctx context.Context, name stepName, entityHint string, fn func(ctx context.Context) (string, error), onSuccess func(id string)) (string, error) {
	stepCtx, cancel := context.WithTimeout(ctx, StepTimeout)
	defer cancel()

	w.publish(ctx, events.WorkflowStepStartedEvent, entityHint, map[string]interface{}{"step": string(name)})
	id, err := fn(stepCtx)
	if err != nil {
		w.publish(ctx, events.WorkflowStepFailedEvent, entityHint, map[string]interface{}{"step": string(name), "error": err.Error()})
		return "", err
	}
	w.publish(ctx, events.WorkflowStepSucceededEvent, id, map[string]interface{}{"step": string(name)})
	if onSuccess != nil {
		onSuccess(id)
	}
	return id, nil
}

func (w *Workflow) matchStep(ctx context.Context, req Request, tripRequestID string) (string, error) {
	return w.step(ctx, stepMatch, tripRequestID, func(ctx context.Context) (string, error) {
		seed := req.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		maxCandidates := req.MaxCandidates
		if maxCandidates <= 0 {
			maxCandidates = 5
		}
		result, err := w.matching.GetCandidates(ctx, tripRequestID, req.Origin, req.Destination, seed, maxCandidates, req.DriverPool)
		if err != nil {
			return "", err
		}
		if len(result.Candidates) == 0 {
			return "", apperrors.New(apperrors.ErrNoDriversAvailable, "matching", result.ReasonCode)
		}
		return result.Candidates[0].DriverID, nil
	}, nil)
}

func (w *Workflow) priceStep(ctx context.Context, req Request, tripRequestID, driverID string) (*models.PriceResult, error) {
	var priceResult *models.PriceResult
	_, err := w.step(ctx, stepPrice, tripRequestID, func(ctx context.Context) (string, error) {
		result, err := w.pricing.CalculatePrice(ctx, clients.CalculateRequest{
			TripRequestID:            tripRequestID,
			PassengerID:              req.PassengerID,
			MatchedDriverID:          driverID,
			Origin:                   req.Origin,
			Destination:              req.Destination,
			EstimatedDistanceMeters:  req.EstimatedDistanceMeters,
			EstimatedDurationSeconds: req.EstimatedDurationSeconds,
			DemandMultiplier:         req.DemandMultiplier,
			SupplyMultiplier:         req.SupplyMultiplier,
			DriverAcceptanceRate:     req.DriverAcceptanceRate,
			DriverRating:             req.DriverRating,
			PricingSeed:              req.Seed,
			Zone:                     req.Zone,
		})
		if err != nil {
			return "", err
		}
		priceResult = result
		return result.CalculationID, nil
	}, nil)
	if err != nil {
		return nil, err
	}
	return priceResult, nil
}

func (w *Workflow) reserveDriverStep(ctx context.Context, driverID, idempotencyKey string) (int, error) {
	current, err := w.drivers.GetDriverStatus(ctx, driverID)
	expectedVersion := 1
	if err == nil {
		expectedVersion = current.Version
	} else if !stderrors.Is(err, apperrors.ErrNotFound) {
		return 0, err
	}

	var version int
	_, stepErr := w.step(ctx, stepReserveDriver, driverID, func(ctx context.Context) (string, error) {
		updated, err := w.drivers.UpdateDriverStatus(ctx, driverID, false, expectedVersion, idempotencyKey)
		if err != nil {
			return "", err
		}
		version = updated.Version
		return driverID, nil
	}, nil)
	if stepErr != nil {
		return 0, stepErr
	}
	return version, nil
}

func (w *Workflow) createTripStep(ctx context.Context, req Request, tripRequestRecord *models.TripRequest, driverID string) (*models.Trip, error) {
	var trip *models.Trip
	_, err := w.step(ctx, stepCreateTrip, tripRequestRecord.ID, func(ctx context.Context) (string, error) {
		created, err := w.trips.CreateTrip(ctx, clients.CreateTripRequest{
			TripRequestID:            tripRequestRecord.ID,
			PassengerID:              req.PassengerID,
			DriverID:                 driverID,
			Origin:                   req.Origin,
			Destination:              req.Destination,
			EstimatedDistanceMeters:  req.EstimatedDistanceMeters,
			EstimatedDurationSeconds: req.EstimatedDurationSeconds,
			DemandMultiplier:         req.DemandMultiplier,
			SupplyMultiplier:         req.SupplyMultiplier,
			DriverAcceptanceRate:     req.DriverAcceptanceRate,
			DriverRating:             req.DriverRating,
			PricingSeed:              req.Seed,
			Zone:                     req.Zone,
		})
		if err != nil {
			return "", err
		}
		trip = created
		return created.ID, nil
	}, nil)
	if err != nil {
		return nil, err
	}

	// Trip creation is the saga's commit point, so a failure fulfilling
	// the request here never unwinds it; spec.md §3's OPEN->FULFILLED
	// transition is the data-model consequence of that commit, not a
	// compensable step in its own right.
	fulfillCtx, cancel := context.WithTimeout(ctx, StepTimeout)
	_, fulfillErr := w.tripRequests.FulfillTripRequest(fulfillCtx, tripRequestRecord.ID, tripRequestRecord.Version)
	cancel()
	if fulfillErr != nil {
		w.log.WithContext(ctx).WithError(fulfillErr).WithFields(logger.Fields{"trip_request_id": tripRequestRecord.ID}).
			Warn("failed to fulfill trip request after trip creation")
	} else {
		w.publish(ctx, events.TripRequestFulfilledEvent, tripRequestRecord.ID, map[string]interface{}{"trip_id": trip.ID})
	}

	return trip, nil
}

// compensate unwinds every logged step in reverse order. Step failures
// during create_trip itself trigger compensation of steps 1-4 (the
// create_trip step is never itself in the log on failure, since it's
// only appended on success). Compensation errors are logged but never
// abort later steps' rollback, per spec.md §7.
func (w *Workflow) compensate(ctx context.Context, log *executionLog) {
	compCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, entry := range log.reverse() {
		switch entry.step {
		case stepReserveDriver:
			w.compensateReserveDriver(compCtx, entry.entityID)
		case stepCreateTripRequest:
			w.compensateCreateTripRequest(compCtx, entry.entityID)
		case stepCreateTrip, stepMatch, stepPrice:
			// create_trip is the saga's commit point and is never
			// compensated (spec.md §4.6's table); match and price have
			// no side effects to undo.
		}
	}
}

func (w *Workflow) compensateReserveDriver(ctx context.Context, driverID string) {
	current, err := w.drivers.GetDriverStatus(ctx, driverID)
	if err != nil {
		w.recordCompensationFailure(ctx, "reserve_driver", driverID, err)
		return
	}
	_, err = w.drivers.UpdateDriverStatus(ctx, driverID, true, current.Version, uuid.NewString())
	if err != nil {
		w.recordCompensationFailure(ctx, "reserve_driver", driverID, err)
		return
	}
	metrics.RecordWorkflowCompensation("reserve_driver", "success")
	w.publish(ctx, events.WorkflowCompensatedEvent, driverID, map[string]interface{}{"step": "reserve_driver"})
}

func (w *Workflow) compensateCreateTripRequest(ctx context.Context, tripRequestID string) {
	current, err := w.tripRequests.GetTripRequest(ctx, tripRequestID)
	if err != nil {
		w.recordCompensationFailure(ctx, "create_trip_request", tripRequestID, err)
		return
	}
	if current.Status != models.TripRequestStatusOpen {
		return
	}
	_, err = w.tripRequests.CancelTripRequest(ctx, tripRequestID, current.Version)
	if err != nil {
		w.recordCompensationFailure(ctx, "create_trip_request", tripRequestID, err)
		return
	}
	metrics.RecordWorkflowCompensation("create_trip_request", "success")
	w.publish(ctx, events.WorkflowCompensatedEvent, tripRequestID, map[string]interface{}{"step": "create_trip_request"})
}

func (w *Workflow) recordCompensationFailure(ctx context.Context, step, entityID string, err error) {
	metrics.RecordWorkflowCompensation(step, "failed")
	w.log.WithContext(ctx).WithError(err).WithFields(logger.Fields{
		"step":      step,
		"entity_id": entityID,
	}).Error("compensation step failed")
	w.publish(ctx, events.WorkflowCompensationFailedEvent, entityID, map[string]interface{}{"step": step, "error": err.Error()})
}

func (w *Workflow) publish(ctx context.Context, eventType events.EventType, entityID string, data map[string]interface{}) {
	if w.events == nil {
		return
	}
	event := events.NewEvent(eventType, entityID, 0, data, "trip-workflow")
	if err := w.events.PublishEvent(ctx, event); err != nil {
		w.log.WithContext(ctx).WithError(err).Warn("failed to publish workflow event")
	}
}
