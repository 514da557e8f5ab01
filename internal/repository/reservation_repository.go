package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/labreserve/labreserve/internal/booking"
	"github.com/labreserve/labreserve/internal/model"
)

// ReservationRepo provides persistence for reservations on MySQL. It
// satisfies booking.ReservationStore. Rows are never deleted; lifecycle
// changes only update the status columns. The (lab_id, starts_at,
// ends_at) index keeps the overlap listing cheap. All timestamps are
// stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given
// database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, lab_id, requester_id, requester_role, starts_at, ends_at, purpose,
	group_size, status, decided_at, decided_by, cancellation_reason, created_at, updated_at`

// Insert stores a new reservation and populates its generated ID and
// timestamps by reading the row back.
func (r *ReservationRepo) Insert(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations
	           (lab_id, requester_id, requester_role, starts_at, ends_at, purpose, group_size, status, decided_at, decided_by)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q,
		res.LabID, res.RequesterID, res.RequesterRole,
		res.StartsAt.UTC(), res.EndsAt.UTC(), res.Purpose, res.GroupSize, res.Status,
		nullableTime(res.DecidedAt), res.DecidedBy,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	stored, err := r.Get(ctx, res.ID)
	if err != nil {
		return err
	}
	*res = *stored
	return nil
}

// Get retrieves a reservation by ID. It returns
// booking.ErrReservationNotFound when no row exists.
func (r *ReservationRepo) Get(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrReservationNotFound
		}
		return nil, err
	}
	return res, nil
}

// Update persists the mutable lifecycle fields of a reservation.
func (r *ReservationRepo) Update(ctx context.Context, res *model.Reservation) error {
	const q = `UPDATE reservations
	           SET status = ?, decided_at = ?, decided_by = ?, cancellation_reason = ?, updated_at = UTC_TIMESTAMP()
	           WHERE id = ?`
	result, err := r.db.ExecContext(ctx, q,
		res.Status, nullableTime(res.DecidedAt), res.DecidedBy, res.CancellationReason, res.ID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the row is missing or nothing changed; distinguish.
		if _, err := r.Get(ctx, res.ID); err != nil {
			return err
		}
	}
	return nil
}

// ListActiveInRange returns Pending and Approved reservations of the
// lab overlapping [from, to), ordered by start time then id.
func (r *ReservationRepo) ListActiveInRange(ctx context.Context, labID uint64, from, to time.Time) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + `
	           FROM reservations
	           WHERE lab_id = ? AND status IN (?, ?) AND starts_at < ? AND ends_at > ?
	           ORDER BY starts_at, id`
	rows, err := r.db.QueryContext(ctx, q, labID, model.StatusPending, model.StatusApproved, to.UTC(), from.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// ListDueCompletion returns Approved reservations whose end time has
// passed, ordered by id.
func (r *ReservationRepo) ListDueCompletion(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + `
	           FROM reservations
	           WHERE status = ? AND ends_at <= ?
	           ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, model.StatusApproved, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// Search applies the query criteria and returns one page of matching
// reservations plus the total match count. Free text matches the
// purpose and the lab name; ordering ties break by id ascending.
func (r *ReservationRepo) Search(ctx context.Context, q booking.Query) ([]model.Reservation, int64, error) {
	where := []string{"1=1"}
	args := []any{}
	if q.Status != "" {
		where = append(where, "r.status = ?")
		args = append(args, q.Status)
	}
	if q.LabID != 0 {
		where = append(where, "r.lab_id = ?")
		args = append(args, q.LabID)
	}
	if q.RequesterID != 0 {
		where = append(where, "r.requester_id = ?")
		args = append(args, q.RequesterID)
	}
	if !q.From.IsZero() {
		where = append(where, "r.ends_at > ?")
		args = append(args, q.From.UTC())
	}
	if !q.To.IsZero() {
		where = append(where, "r.starts_at < ?")
		args = append(args, q.To.UTC())
	}
	if text := strings.TrimSpace(q.Text); text != "" {
		where = append(where, "(LOWER(r.purpose) LIKE ? OR LOWER(l.name) LIKE ?)")
		p := "%" + strings.ToLower(text) + "%"
		args = append(args, p, p)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	countSQL := `SELECT COUNT(*)
	             FROM reservations r
	             JOIN labs l ON l.id = r.lab_id
	             WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := sortColumn(q.SortBy)
	dir := "ASC"
	if q.SortDesc {
		dir = "DESC"
	}
	dataSQL := `SELECT ` + prefixedReservationColumns() + `
	            FROM reservations r
	            JOIN labs l ON l.id = r.lab_id
	            WHERE ` + cond + `
	            ORDER BY ` + order + ` ` + dir + `, r.id ASC
	            LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), q.PageSize, (q.Page-1)*q.PageSize)
	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out, err := collectReservations(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// sortColumn maps a query sort field to a whitelisted column. The
// whitelist keeps user input out of the ORDER BY clause.
func sortColumn(sortBy string) string {
	switch sortBy {
	case booking.SortCreatedAt:
		return "r.created_at"
	case booking.SortStatus:
		return "r.status"
	default:
		return "r.starts_at"
	}
}

func prefixedReservationColumns() string {
	cols := strings.Split(reservationColumns, ",")
	for i, c := range cols {
		cols[i] = "r." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func collectReservations(rows *sql.Rows) ([]model.Reservation, error) {
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var (
		res       model.Reservation
		decidedAt sql.NullTime
		decidedBy sql.NullInt64
		reason    sql.NullString
	)
	if err := row.Scan(
		&res.ID, &res.LabID, &res.RequesterID, &res.RequesterRole,
		&res.StartsAt, &res.EndsAt, &res.Purpose, &res.GroupSize, &res.Status,
		&decidedAt, &decidedBy, &reason, &res.CreatedAt, &res.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if decidedAt.Valid {
		t := decidedAt.Time.UTC()
		res.DecidedAt = &t
	}
	if decidedBy.Valid {
		v := uint64(decidedBy.Int64)
		res.DecidedBy = &v
	}
	if reason.Valid {
		s := reason.String
		res.CancellationReason = &s
	}
	res.StartsAt = res.StartsAt.UTC()
	res.EndsAt = res.EndsAt.UTC()
	return &res, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
