package models

import (
	"time"

	"github.com/ridehail/control-plane/shared/utils"
)

// TripRequestStatus is the request's place in its own small FSM, distinct
// from the Trip FSM created once the request is matched.
type TripRequestStatus string

const (
	TripRequestStatusOpen      TripRequestStatus = "OPEN"
	TripRequestStatusCancelled TripRequestStatus = "CANCELLED"
	TripRequestStatusFulfilled TripRequestStatus = "FULFILLED"
)

var tripRequestTransitions = map[TripRequestStatus][]TripRequestStatus{
	TripRequestStatusOpen:      {TripRequestStatusCancelled, TripRequestStatusFulfilled},
	TripRequestStatusCancelled: {},
	TripRequestStatusFulfilled: {},
}

func isValidTripRequestTransition(from, to TripRequestStatus) bool {
	for _, allowed := range tripRequestTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TripRequest is the passenger's ask for a ride before a driver has been
// matched and reserved. A request moves exactly once out of OPEN.
type TripRequest struct {
	ID          string            `json:"id" bson:"_id"`
	PassengerID string            `json:"passenger_id" bson:"passenger_id"`
	Origin      Location          `json:"origin" bson:"origin"`
	Destination Location          `json:"destination" bson:"destination"`
	Status      TripRequestStatus `json:"status" bson:"status"`
	Version     int               `json:"version" bson:"version"`
	CreatedAt   time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" bson:"updated_at"`
}

// NewTripRequest creates a newly OPEN trip request.
func NewTripRequest(passengerID string, origin, destination Location) *TripRequest {
	now := time.Now().UTC()
	return &TripRequest{
		ID:          utils.GenerateID(),
		PassengerID: passengerID,
		Origin:      origin,
		Destination: destination,
		Status:      TripRequestStatusOpen,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ApplyTransition moves the request to newStatus if expectedVersion
// matches and the transition is legal, leaving r untouched otherwise.
func (r *TripRequest) ApplyTransition(newStatus TripRequestStatus, expectedVersion int) error {
	if r.Version != expectedVersion {
		return &VersionConflictError{Entity: "trip_request", ID: r.ID, Expected: expectedVersion, Actual: r.Version}
	}
	if !isValidTripRequestTransition(r.Status, newStatus) {
		return &IllegalTransitionError{Entity: "trip_request", ID: r.ID, From: string(r.Status), To: string(newStatus)}
	}
	r.Status = newStatus
	r.Version++
	r.UpdatedAt = time.Now().UTC()
	return nil
}
