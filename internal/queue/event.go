// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationDecidedEvent is published whenever a reservation changes
// status: created, approved, rejected, cancelled or completed. It carries
// enough information for downstream consumers to log or notify without
// querying the primary database.
type ReservationDecidedEvent struct {
	EventID       string `json:"event_id"`
	ReservationID uint64 `json:"reservation_id"`
	LabID         uint64 `json:"lab_id"`
	LabName       string `json:"lab_name"`
	RequesterID   uint64 `json:"requester_id"`
	RequesterRole string `json:"requester_role"`
	Action        string `json:"action"`
	FromStatus    string `json:"from_status"`
	ToStatus      string `json:"to_status"`
	ActorID       uint64 `json:"actor_id"` // 0 when the system acted
	Note          string `json:"note,omitempty"`
	StartsAt      string `json:"starts_at"`
	EndsAt        string `json:"ends_at"`
	OccurredAt    string `json:"occurred_at"`
}
