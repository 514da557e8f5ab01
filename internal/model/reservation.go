package model

import "time"

// Reservation statuses. PENDING and APPROVED both occupy their time
// range for availability purposes; REJECTED, CANCELLED and COMPLETED
// are terminal and allow no further transitions.
const (
	StatusPending   = "PENDING"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
	StatusCompleted = "COMPLETED"
)

// TerminalStatus reports whether s permits no outgoing transitions.
func TerminalStatus(s string) bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Reservation records a requester's booking of a lab for a half-open
// time range [StartsAt, EndsAt). Reservations are retained forever for
// history and audit; lifecycle changes only move the Status forward
// through the state machine.
//
// Fields:
//  ID                 primary key identifier.
//  LabID              lab being reserved.
//  RequesterID        user who made the reservation.
//  RequesterRole      role of the requester (LECTURER or STUDENT).
//  StartsAt           when the reservation begins (UTC).
//  EndsAt             when the reservation ends; always after StartsAt.
//  Purpose            non-empty free-text reason for the booking.
//  GroupSize          number of attendees; 1..lab capacity.
//  Status             lifecycle state, see the Status* constants.
//  DecidedAt          when the approve/reject decision was made (nil
//                     while pending, and for system completions).
//  DecidedBy          user who decided; nil for automatic decisions.
//  CancellationReason requester- or admin-supplied reason, nil unless
//                     the reservation was cancelled.
//  CreatedAt          creation timestamp (UTC).
//  UpdatedAt          last update timestamp (UTC).
type Reservation struct {
	ID                 uint64     `json:"id"`                            // reservations.id
	LabID              uint64     `json:"lab_id"`                        // reservations.lab_id
	RequesterID        uint64     `json:"requester_id"`                  // reservations.requester_id
	RequesterRole      string     `json:"requester_role"`                // reservations.requester_role
	StartsAt           time.Time  `json:"starts_at"`                     // reservations.starts_at
	EndsAt             time.Time  `json:"ends_at"`                       // reservations.ends_at
	Purpose            string     `json:"purpose"`                       // reservations.purpose
	GroupSize          uint32     `json:"group_size"`                    // reservations.group_size
	Status             string     `json:"status"`                        // reservations.status
	DecidedAt          *time.Time `json:"decided_at,omitempty"`          // reservations.decided_at (nullable)
	DecidedBy          *uint64    `json:"decided_by,omitempty"`          // reservations.decided_by (nullable)
	CancellationReason *string    `json:"cancellation_reason,omitempty"` // reservations.cancellation_reason (nullable)
	CreatedAt          time.Time  `json:"created_at"`                    // reservations.created_at
	UpdatedAt          time.Time  `json:"updated_at"`                    // reservations.updated_at
}

// Active reports whether the reservation currently occupies its time
// range, i.e. blocks other bookings of the same lab.
func (r *Reservation) Active() bool {
	return r.Status == StatusPending || r.Status == StatusApproved
}

// Overlaps reports whether two half-open ranges [s1,e1) and [s2,e2)
// intersect.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// TimeSlot is a contiguous interval during which a lab is open and not
// occupied by a Pending or Approved reservation. Slots are derived by
// the availability engine and never stored.
type TimeSlot struct {
	LabID    uint64    `json:"lab_id"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}
