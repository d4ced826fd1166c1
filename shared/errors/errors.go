// Package errors defines the closed set of domain errors shared by every
// service in the trip orchestration core, and the classification used by
// the orchestrator to decide retry vs. compensate.
package errors

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

// Sentinel errors. Handlers and the orchestrator compare against these with
// errors.Is, never by matching error strings.
var (
	ErrNotFound           = errors.New("not_found")
	ErrVersionConflict    = errors.New("version_conflict")
	ErrIllegalTransition  = errors.New("illegal_transition")
	ErrEconomicGuardrail  = errors.New("economic_guardrail")
	ErrPricingRejected    = errors.New("pricing_rejected")
	ErrConfigUnavailable  = errors.New("config_unavailable")
	ErrNoDriversAvailable = errors.New("no_drivers_available")
	ErrValidation         = errors.New("validation")
	ErrUnavailable        = errors.New("unavailable")
	ErrTimeout            = errors.New("timeout")
)

// Class partitions errors the way the orchestrator's retry loop reasons
// about them.
type Class string

const (
	ClassValidation  Class = "validation"
	ClassPermanent   Class = "permanent"
	ClassConcurrency Class = "concurrency"
	ClassTransient   Class = "transient"
	ClassConfig      Class = "configuration"
)

// DomainError wraps a sentinel with a human-readable message and carries
// the entity the error concerns, for logging and telemetry.
type DomainError struct {
	Sentinel error
	Entity   string
	Message  string
}

func (e *DomainError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Entity, e.Sentinel)
	}
	return fmt.Sprintf("%s: %s: %s", e.Entity, e.Sentinel, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Sentinel
}

// New builds a DomainError rooted at one of the package sentinels.
func New(sentinel error, entity, message string) *DomainError {
	return &DomainError{Sentinel: sentinel, Entity: entity, Message: message}
}

// Classify maps any error returned by a service into a retry/compensate
// decision. Unrecognized errors are treated as permanent, since silently
// retrying an unknown failure mode is the behavior spec.md explicitly
// forbids for the orchestrator.
func Classify(err error) Class {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrValidation):
		return ClassValidation
	case errors.Is(err, ErrVersionConflict):
		return ClassConcurrency
	case errors.Is(err, ErrIllegalTransition),
		errors.Is(err, ErrEconomicGuardrail),
		errors.Is(err, ErrPricingRejected),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrNoDriversAvailable):
		return ClassPermanent
	case errors.Is(err, ErrConfigUnavailable):
		return ClassConfig
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrTimeout):
		return ClassTransient
	default:
		return ClassPermanent
	}
}

// IsRetryable reports whether the orchestrator's retry loop should attempt
// the step again rather than proceeding straight to compensation.
func IsRetryable(err error) bool {
	return Classify(err) == ClassTransient
}

// Code maps a domain error to the transport status-code taxonomy from
// spec.md §6, carried through grpc/codes purely as a vocabulary (the
// services speak JSON over HTTP, not protobuf — see SPEC_FULL.md's
// transport note).
func Code(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, ErrNotFound):
		return codes.NotFound
	case errors.Is(err, ErrVersionConflict):
		return codes.Aborted
	case errors.Is(err, ErrIllegalTransition),
		errors.Is(err, ErrEconomicGuardrail),
		errors.Is(err, ErrPricingRejected),
		errors.Is(err, ErrNoDriversAvailable):
		return codes.FailedPrecondition
	case errors.Is(err, ErrValidation):
		return codes.InvalidArgument
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrTimeout):
		return codes.Unavailable
	case errors.Is(err, ErrConfigUnavailable):
		return codes.Internal
	default:
		return codes.Unknown
	}
}

// HTTPStatus maps a domain error to the HTTP status carrying the same
// status-code taxonomy as Code, for the gin JSON error envelope.
func HTTPStatus(err error) int {
	switch Code(err) {
	case codes.NotFound:
		return 404
	case codes.Aborted:
		return 409
	case codes.FailedPrecondition:
		return 422
	case codes.InvalidArgument:
		return 400
	case codes.Unavailable:
		return 503
	case codes.Internal:
		return 500
	default:
		return 500
	}
}
