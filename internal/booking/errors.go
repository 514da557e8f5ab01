// Package booking implements the reservation core: creation with
// commit-time availability re-checks, the approval state machine,
// cancellation, completion and the read-side query layer. All writes
// touching one lab are serialized through a per-lab lock so that two
// concurrent requests for overlapping time can never both succeed.
package booking

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors surfaced to callers. Handlers translate these into
// HTTP statuses; none of them is swallowed inside the core.
var (
	// ErrLabNotFound is returned when the referenced lab does not exist.
	ErrLabNotFound = errors.New("lab not found")
	// ErrReservationNotFound is returned when the referenced reservation
	// does not exist.
	ErrReservationNotFound = errors.New("reservation not found")
	// ErrForbidden is returned when the actor lacks authority for the
	// requested action.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition is returned when the reservation's current
	// status does not permit the requested transition.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrCancellationWindowClosed is returned when a cancellation arrives
	// too close to the reservation's start time.
	ErrCancellationWindowClosed = errors.New("cancellation window closed")
)

// ValidationError flags malformed input: bad capacity, group size out
// of range, empty purpose, inverted time ranges and the like.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

// NewValidationError builds a ValidationError for a named field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// SlotConflictError is returned when a booking request overlaps an
// existing Pending or Approved reservation. It names the conflicting
// time range so the caller can render a useful message.
type SlotConflictError struct {
	LabID         uint64
	ReservationID uint64
	StartsAt      time.Time
	EndsAt        time.Time
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("slot conflict: lab %d already reserved %s to %s",
		e.LabID, e.StartsAt.Format(time.RFC3339), e.EndsAt.Format(time.RFC3339))
}

// IsSlotConflict reports whether err is a *SlotConflictError.
func IsSlotConflict(err error) bool {
	var sc *SlotConflictError
	return errors.As(err, &sc)
}
