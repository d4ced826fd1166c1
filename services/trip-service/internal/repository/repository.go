// Package repository defines TripService's persistence boundary: a
// single Repository interface backed in production by MongoDB's
// {_id, version} compare-and-set primitive, and in tests by an
// in-memory fake, so the service layer's FSM and locking logic can be
// exercised without a database.
package repository

import (
	"context"

	"github.com/ridehail/control-plane/shared/models"
)

// Repository persists Trip documents.
type Repository interface {
	// Create inserts a newly constructed Trip at version 1. It returns
	// apperrors.ErrVersionConflict if a Trip already exists for
	// trip.TripRequestID, the uniqueness invariant spec.md §4 assigns
	// to trip_request_id.
	Create(ctx context.Context, trip *models.Trip) error

	// FindByID returns the Trip with the given id, or
	// apperrors.ErrNotFound.
	FindByID(ctx context.Context, id string) (*models.Trip, error)

	// FindByTripRequestID returns the Trip created for the given trip
	// request, or apperrors.ErrNotFound. CreateTrip's idempotency check
	// is built on this lookup.
	FindByTripRequestID(ctx context.Context, tripRequestID string) (*models.Trip, error)

	// CompareAndSwap persists trip's current field values, succeeding
	// only if the stored document's version still equals
	// expectedVersion. It returns apperrors.ErrVersionConflict if the
	// stored version has moved on, or apperrors.ErrNotFound if the
	// trip no longer exists.
	CompareAndSwap(ctx context.Context, trip *models.Trip, expectedVersion int) error
}
