// Package service implements TripService: the Trip entity's finite
// state machine and the synchronous PricingEngine invocation gating
// trip creation, per spec.md §4.5.
package service

import (
	"context"
	stderrors "errors"

	"github.com/ridehail/control-plane/services/trip-service/internal/pricingclient"
	"github.com/ridehail/control-plane/services/trip-service/internal/repository"
	"github.com/ridehail/control-plane/shared/concurrency"
	apperrors "github.com/ridehail/control-plane/shared/errors"
	"github.com/ridehail/control-plane/shared/logger"
	"github.com/ridehail/control-plane/shared/metrics"
	"github.com/ridehail/control-plane/shared/models"
)

// CreateTripRequest carries everything TripService needs to both
// persist a Trip and synchronously price it: the matched pair from
// TripRequestService/MatchingService, plus the market signals
// PricingEngine's CalculatePrice requires.
type CreateTripRequest struct {
	TripRequestID            string
	PassengerID               string
	DriverID                  string
	Origin                    models.Location
	Destination               models.Location
	EstimatedDistanceMeters   float64
	EstimatedDurationSeconds  float64
	DemandMultiplier          float64
	SupplyMultiplier          float64
	DriverAcceptanceRate      float64
	DriverRating              float64
	PricingSeed               int64
	Zone                      string
}

// PricingClient is the subset of pricingclient.Client TripService calls;
// extracted so tests can substitute a fake quote without an HTTP server.
type PricingClient interface {
	CalculatePrice(ctx context.Context, req pricingclient.CalculateRequest) (*models.PriceResult, error)
}

// TripService implements the §4.5 operations.
type TripService struct {
	repo    repository.Repository
	pricing PricingClient
	locks   *concurrency.KeyLocker
	log     *logger.Logger
}

// New creates a TripService.
func New(repo repository.Repository, pricing PricingClient, lockStripes int, log *logger.Logger) *TripService {
	return &TripService{
		repo:    repo,
		pricing: pricing,
		locks:   concurrency.NewKeyLocker(lockStripes),
		log:     log,
	}
}

// CreateTrip is idempotent on trip_request_id: a second call for the
// same request returns the previously created Trip without invoking
// PricingEngine again. Otherwise it synchronously prices the trip and,
// only on a successful, guardrail-passing quote, persists the Trip at
// version 1.
func (s *TripService) CreateTrip(ctx context.Context, req CreateTripRequest) (*models.Trip, error) {
	if existing, err := s.repo.FindByTripRequestID(ctx, req.TripRequestID); err == nil {
		return existing, nil
	} else if !stderrors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	priceResult, err := s.pricing.CalculatePrice(ctx, pricingclient.CalculateRequest{
		TripRequestID:            req.TripRequestID,
		PassengerID:              req.PassengerID,
		MatchedDriverID:          req.DriverID,
		Origin:                   req.Origin,
		Destination:              req.Destination,
		EstimatedDistanceMeters:  req.EstimatedDistanceMeters,
		EstimatedDurationSeconds: req.EstimatedDurationSeconds,
		DemandMultiplier:         req.DemandMultiplier,
		SupplyMultiplier:         req.SupplyMultiplier,
		DriverAcceptanceRate:     req.DriverAcceptanceRate,
		DriverRating:             req.DriverRating,
		PricingSeed:              req.PricingSeed,
		Zone:                     req.Zone,
	})
	if err != nil {
		metrics.RecordTripCreated("pricing_rejected")
		return nil, apperrors.New(apperrors.ErrPricingRejected, "trip", err.Error())
	}

	trip := models.NewTrip(req.TripRequestID, req.PassengerID, req.DriverID, req.Origin, req.Destination)
	trip.PriceResult = priceResult

	if err := s.repo.Create(ctx, trip); err != nil {
		if existing, findErr := s.repo.FindByTripRequestID(ctx, req.TripRequestID); findErr == nil {
			return existing, nil
		}
		return nil, err
	}

	metrics.RecordTripCreated(string(trip.Status))
	s.log.LogBusinessEvent(ctx, "trip_created", trip.ID, logger.Fields{
		"trip_request_id": trip.TripRequestID,
		"driver_id":       trip.DriverID,
	})
	return trip, nil
}

// UpdateTripStatus applies an FSM transition under the trip's stripe
// lock: load current, check expected_version, check FSM legality,
// write.
func (s *TripService) UpdateTripStatus(ctx context.Context, tripID string, newStatus models.TripStatus, expectedVersion int) (*models.Trip, error) {
	var result *models.Trip
	var opErr error

	s.locks.WithLock(tripID, func() {
		trip, err := s.repo.FindByID(ctx, tripID)
		if err != nil {
			opErr = err
			return
		}

		if err := trip.ApplyTransition(newStatus, expectedVersion); err != nil {
			if stderrors.Is(err, apperrors.ErrVersionConflict) {
				metrics.RecordVersionConflict()
			}
			opErr = err
			return
		}

		if err := s.repo.CompareAndSwap(ctx, trip, expectedVersion); err != nil {
			opErr = err
			return
		}

		if newStatus.IsTerminal() {
			metrics.RecordTripCompleted(string(newStatus))
		}
		result = trip
	})

	if opErr != nil {
		return nil, opErr
	}
	return result, nil
}

// CancelTrip applies a CANCELLED or CANCELLED_BY_DRIVER transition
// using the same protocol as UpdateTripStatus.
func (s *TripService) CancelTrip(ctx context.Context, tripID string, reason models.TripStatus, expectedVersion int) (*models.Trip, error) {
	if reason != models.TripStatusCancelled && reason != models.TripStatusCancelledByDriver {
		return nil, apperrors.New(apperrors.ErrValidation, "trip", "reason must be CANCELLED or CANCELLED_BY_DRIVER")
	}
	return s.UpdateTripStatus(ctx, tripID, reason, expectedVersion)
}

// GetTripByID returns the Trip with the given id.
func (s *TripService) GetTripByID(ctx context.Context, tripID string) (*models.Trip, error) {
	return s.repo.FindByID(ctx, tripID)
}

// GetTripByRequestID returns the Trip created for the given trip
// request.
func (s *TripService) GetTripByRequestID(ctx context.Context, tripRequestID string) (*models.Trip, error) {
	return s.repo.FindByTripRequestID(ctx, tripRequestID)
}
