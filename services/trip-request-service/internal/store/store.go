// Package store implements TripRequestService's entity store: requests
// keyed by id, plus a per-passenger index enforcing spec.md §3's
// invariant that at most one OPEN request exists per passenger at a
// time. Mutations are serialized per request_id by a striped lock; the
// per-passenger index is guarded by its own mutex since it spans
// multiple request records.
package store

import (
	"sync"

	"github.com/ridehail/control-plane/shared/concurrency"
	apperrors "github.com/ridehail/control-plane/shared/errors"
	"github.com/ridehail/control-plane/shared/models"
)

// Store holds every trip request and the open-request index.
type Store struct {
	mu       sync.RWMutex
	requests map[string]*models.TripRequest
	openByPassenger map[string]string // passenger_id -> request_id

	locks *concurrency.KeyLocker
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		requests:        make(map[string]*models.TripRequest),
		openByPassenger: make(map[string]string),
		locks:           concurrency.NewKeyLocker(256),
	}
}

// CreateTripRequest returns the passenger's existing OPEN request
// unchanged if one exists (idempotency), else creates a new OPEN
// request at version 1.
func (s *Store) CreateTripRequest(passengerID string, origin, destination models.Location) (*models.TripRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if requestID, ok := s.openByPassenger[passengerID]; ok {
		if existing, ok := s.requests[requestID]; ok {
			snapshot := *existing
			return &snapshot, nil
		}
	}

	req := models.NewTripRequest(passengerID, origin, destination)
	s.requests[req.ID] = req
	s.openByPassenger[passengerID] = req.ID

	snapshot := *req
	return &snapshot, nil
}

// CancelTripRequest applies a version-checked OPEN->CANCELLED
// transition.
func (s *Store) CancelTripRequest(requestID string, expectedVersion int) (*models.TripRequest, error) {
	return s.applyTransition(requestID, models.TripRequestStatusCancelled, expectedVersion)
}

// FulfillTripRequest applies a version-checked OPEN->FULFILLED
// transition, invoked once a Trip has been created that references this
// request. Fulfillment is not itself a compensable saga step — it is
// the data-model consequence of Trip creation succeeding.
func (s *Store) FulfillTripRequest(requestID string, expectedVersion int) (*models.TripRequest, error) {
	return s.applyTransition(requestID, models.TripRequestStatusFulfilled, expectedVersion)
}

func (s *Store) applyTransition(requestID string, newStatus models.TripRequestStatus, expectedVersion int) (*models.TripRequest, error) {
	var result *models.TripRequest
	var err error

	s.locks.WithLock(requestID, func() {
		s.mu.RLock()
		req, ok := s.requests[requestID]
		s.mu.RUnlock()
		if !ok {
			err = apperrors.New(apperrors.ErrNotFound, "trip_request", requestID)
			return
		}

		if applyErr := req.ApplyTransition(newStatus, expectedVersion); applyErr != nil {
			err = applyErr
			return
		}

		if newStatus != models.TripRequestStatusOpen {
			s.mu.Lock()
			if s.openByPassenger[req.PassengerID] == requestID {
				delete(s.openByPassenger, req.PassengerID)
			}
			s.mu.Unlock()
		}

		snapshot := *req
		result = &snapshot
	})

	return result, err
}

// GetTripRequest returns the request with the given id.
func (s *Store) GetTripRequest(requestID string) (*models.TripRequest, error) {
	s.mu.RLock()
	req, ok := s.requests[requestID]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.New(apperrors.ErrNotFound, "trip_request", requestID)
	}
	snapshot := *req
	return &snapshot, nil
}
