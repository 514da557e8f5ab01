package model

import "time"

// Audit actions recorded for reservation lifecycle transitions.
const (
	AuditCreate   = "create"
	AuditApprove  = "approve"
	AuditReject   = "reject"
	AuditCancel   = "cancel"
	AuditComplete = "complete"
)

// AuditRecord captures a single successful reservation transition for
// the admin history views. Records are append-only.
//
// Fields:
//  ID            opaque identifier (UUID).
//  ReservationID reservation the transition applied to.
//  ActorID       user who performed the action; 0 for system sweeps.
//  Action        one of the Audit* constants.
//  FromStatus    status before the transition; empty on creation.
//  ToStatus      status after the transition.
//  Note          optional context, e.g. a cancellation reason.
//  At            when the transition happened (UTC).
type AuditRecord struct {
	ID            string    `json:"id"`             // audit_log.id
	ReservationID uint64    `json:"reservation_id"` // audit_log.reservation_id
	ActorID       uint64    `json:"actor_id"`       // audit_log.actor_id
	Action        string    `json:"action"`         // audit_log.action
	FromStatus    string    `json:"from_status"`    // audit_log.from_status
	ToStatus      string    `json:"to_status"`      // audit_log.to_status
	Note          string    `json:"note,omitempty"` // audit_log.note
	At            time.Time `json:"at"`             // audit_log.created_at
}
