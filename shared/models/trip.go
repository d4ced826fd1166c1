package models

import (
	"time"

	apperrors "github.com/ridehail/control-plane/shared/errors"
	"github.com/ridehail/control-plane/shared/utils"
)

// TripStatus is the trip's place in its finite state machine.
type TripStatus string

const (
	TripStatusAccepted          TripStatus = "ACCEPTED"
	TripStatusEnRoute           TripStatus = "EN_ROUTE"
	TripStatusCompleted         TripStatus = "COMPLETED"
	TripStatusCancelled         TripStatus = "CANCELLED"
	TripStatusCancelledByDriver TripStatus = "CANCELLED_BY_DRIVER"
)

// tripTransitions is the adjacency map of legal status transitions.
// COMPLETED, CANCELLED, and CANCELLED_BY_DRIVER are sinks: they have no
// outgoing edges, so any transition attempted from them is illegal.
var tripTransitions = map[TripStatus][]TripStatus{
	TripStatusAccepted: {
		TripStatusEnRoute,
		TripStatusCancelled,
		TripStatusCancelledByDriver,
	},
	TripStatusEnRoute: {
		TripStatusCompleted,
		TripStatusCancelled,
		TripStatusCancelledByDriver,
	},
	TripStatusCompleted:         {},
	TripStatusCancelled:         {},
	TripStatusCancelledByDriver: {},
}

func isValidTripTransition(from, to TripStatus) bool {
	for _, allowed := range tripTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether status has no further legal transitions.
func (s TripStatus) IsTerminal() bool {
	return len(tripTransitions[s]) == 0
}

// Trip is the record created once a matched driver accepts a trip
// request. Every mutation is guarded by an optimistic Version check: the
// caller must present the version it last read, and a stale version is
// rejected rather than silently overwritten.
type Trip struct {
	ID            string     `json:"id" bson:"_id"`
	TripRequestID string     `json:"trip_request_id" bson:"trip_request_id"`
	PassengerID   string     `json:"passenger_id" bson:"passenger_id"`
	DriverID      string     `json:"driver_id" bson:"driver_id"`
	Origin        Location   `json:"origin" bson:"origin"`
	Destination   Location   `json:"destination" bson:"destination"`
	Status        TripStatus `json:"status" bson:"status"`
	Version       int        `json:"version" bson:"version"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at"`

	// PriceResult is the quote PricingEngine returned at creation time,
	// persisted alongside the trip so a later read reflects the fare the
	// passenger actually committed to rather than today's rates.
	PriceResult *PriceResult `json:"price_result,omitempty" bson:"price_result,omitempty"`
}

// NewTrip creates a newly ACCEPTED trip from a fulfilled trip request and
// the driver who was reserved for it.
func NewTrip(tripRequestID, passengerID, driverID string, origin, destination Location) *Trip {
	now := time.Now().UTC()
	return &Trip{
		ID:            utils.GenerateID(),
		TripRequestID: tripRequestID,
		PassengerID:   passengerID,
		DriverID:      driverID,
		Origin:        origin,
		Destination:   destination,
		Status:        TripStatusAccepted,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// ApplyTransition advances the trip to newStatus if expectedVersion
// matches the trip's current version and the transition is legal. It
// never mutates t on failure.
func (t *Trip) ApplyTransition(newStatus TripStatus, expectedVersion int) error {
	if t.Version != expectedVersion {
		return &VersionConflictError{Entity: "trip", ID: t.ID, Expected: expectedVersion, Actual: t.Version}
	}
	if !isValidTripTransition(t.Status, newStatus) {
		return &IllegalTransitionError{Entity: "trip", ID: t.ID, From: string(t.Status), To: string(newStatus)}
	}
	t.Status = newStatus
	t.Version++
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// VersionConflictError reports that a caller's expected version is stale.
type VersionConflictError struct {
	Entity   string
	ID       string
	Expected int
	Actual   int
}

func (e *VersionConflictError) Error() string {
	return e.Entity + " " + e.ID + ": version conflict"
}

// Unwrap lets errors.Is(err, apperrors.ErrVersionConflict) and
// apperrors.Classify recognize this concrete type as the sentinel's
// Concurrency class without the model package depending on HTTP/gRPC
// status mapping itself.
func (e *VersionConflictError) Unwrap() error {
	return apperrors.ErrVersionConflict
}

// IllegalTransitionError reports an attempted transition the FSM forbids.
type IllegalTransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *IllegalTransitionError) Error() string {
	return e.Entity + " " + e.ID + ": illegal transition " + e.From + " -> " + e.To
}

// Unwrap bridges this concrete type to apperrors.ErrIllegalTransition.
func (e *IllegalTransitionError) Unwrap() error {
	return apperrors.ErrIllegalTransition
}
