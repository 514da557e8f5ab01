package repository

import (
	"context"
	"database/sql"

	"github.com/labreserve/labreserve/internal/model"
)

// AuditRepo appends and lists reservation transition records. The
// audit_log table is append-only; rows are never updated or deleted.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo returns a new AuditRepo bound to the given database.
func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// Append inserts a single audit record.
func (r *AuditRepo) Append(ctx context.Context, rec model.AuditRecord) error {
	const q = `INSERT INTO audit_log (id, reservation_id, actor_id, action, from_status, to_status, note, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		rec.ID, rec.ReservationID, rec.ActorID, rec.Action,
		rec.FromStatus, rec.ToStatus, rec.Note, rec.At.UTC())
	return err
}

// ListByReservation returns a reservation's audit trail in
// chronological order, id as tie-break.
func (r *AuditRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]model.AuditRecord, error) {
	const q = `SELECT id, reservation_id, actor_id, action, from_status, to_status, note, created_at
	           FROM audit_log
	           WHERE reservation_id = ?
	           ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.AuditRecord, 0)
	for rows.Next() {
		var rec model.AuditRecord
		if err := rows.Scan(
			&rec.ID, &rec.ReservationID, &rec.ActorID, &rec.Action,
			&rec.FromStatus, &rec.ToStatus, &rec.Note, &rec.At,
		); err != nil {
			return nil, err
		}
		rec.At = rec.At.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
