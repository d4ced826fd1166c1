// Package store implements DriverStatusService's entity store: an
// in-memory table of DriverStatus records guarded by a per-driver
// striped lock, per spec.md §5's "entity stores: per-key lock; no
// global lock" policy. Persistent storage design is explicitly out of
// scope (spec.md §1 Non-goals); this is the in-process stand-in the
// spec assumes exposes atomic compare-and-set on a version field.
package store

import (
	"sync"

	"github.com/ridehail/control-plane/shared/concurrency"
	apperrors "github.com/ridehail/control-plane/shared/errors"
	"github.com/ridehail/control-plane/shared/models"
)

// Store holds every driver's current status.
type Store struct {
	mu      sync.RWMutex
	drivers map[string]*models.DriverStatus
	locks   *concurrency.KeyLocker
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		drivers: make(map[string]*models.DriverStatus),
		locks:   concurrency.NewKeyLocker(256),
	}
}

// getOrCreate returns the existing record for driverID, creating a
// newly available one (version 1) on first sight. A driver the store
// has never heard of is assumed available, matching NewDriverStatus's
// default.
func (s *Store) getOrCreate(driverID string) *models.DriverStatus {
	s.mu.RLock()
	d, ok := s.drivers[driverID]
	s.mu.RUnlock()
	if ok {
		return d
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.drivers[driverID]; ok {
		return d
	}
	d = models.NewDriverStatus(driverID)
	s.drivers[driverID] = d
	return d
}

// UpdateDriverStatus applies a reserve (available=false) or release
// (available=true) transition under the driver's stripe lock, matching
// idempotency-key replay and optimistic version semantics to
// models.DriverStatus.
func (s *Store) UpdateDriverStatus(driverID string, available bool, expectedVersion int, idempotencyKey string) (*models.DriverStatus, error) {
	var result *models.DriverStatus
	var err error

	s.locks.WithLock(driverID, func() {
		d := s.getOrCreate(driverID)
		if available {
			err = d.Release(idempotencyKey, expectedVersion)
		} else {
			err = d.Reserve(idempotencyKey, expectedVersion)
		}
		if err == nil {
			snapshot := *d
			result = &snapshot
		}
	})

	return result, err
}

// GetDriverStatus returns the current status for driverID.
func (s *Store) GetDriverStatus(driverID string) (*models.DriverStatus, error) {
	var result *models.DriverStatus
	var found bool

	s.locks.WithLock(driverID, func() {
		s.mu.RLock()
		d, ok := s.drivers[driverID]
		s.mu.RUnlock()
		if ok {
			snapshot := *d
			result = &snapshot
			found = true
		}
	})

	if !found {
		return nil, apperrors.New(apperrors.ErrNotFound, "driver_status", driverID)
	}
	return result, nil
}
