package repository // repository holds data access logic for domain entities

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/labreserve/labreserve/internal/booking"
	"github.com/labreserve/labreserve/internal/model"
)

// LabRepo provides persistence for the lab catalog on MySQL. Equipment
// and operating hours live in JSON columns; everything else is plain.
// It satisfies booking.LabStore. All timestamps are stored in UTC.
type LabRepo struct {
	db *sql.DB
}

// NewLabRepo constructs a LabRepo with the given DB handle.
func NewLabRepo(db *sql.DB) *LabRepo { return &LabRepo{db: db} }

// DB exposes the underlying handle so the caller can share it with
// other repositories.
func (r *LabRepo) DB() *sql.DB { return r.db }

const labColumns = `id, name, location, capacity, equipment, operating_hours, max_reservation_min, is_active, created_at, updated_at`

// GetLab retrieves a lab by ID. It returns booking.ErrLabNotFound when
// no row exists.
func (r *LabRepo) GetLab(ctx context.Context, id uint64) (*model.Lab, error) {
	const q = `SELECT ` + labColumns + ` FROM labs WHERE id = ?`
	lab, err := scanLab(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrLabNotFound
		}
		return nil, err
	}
	return lab, nil
}

// ListLabs returns labs matching the filter ordered by id. Equipment
// filtering matches against the JSON-encoded equipment column.
func (r *LabRepo) ListLabs(ctx context.Context, f booking.LabFilter) ([]model.Lab, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.ActiveOnly {
		where = append(where, "is_active = 1")
	}
	if f.Name != "" {
		where = append(where, "LOWER(name) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Name)+"%")
	}
	if f.MinCap > 0 {
		where = append(where, "capacity >= ?")
		args = append(args, f.MinCap)
	}
	if f.Equipment != "" {
		where = append(where, "LOWER(equipment) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Equipment)+"%")
	}
	q := `SELECT ` + labColumns + ` FROM labs WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	labs := make([]model.Lab, 0)
	for rows.Next() {
		lab, err := scanLab(rows)
		if err != nil {
			return nil, err
		}
		labs = append(labs, *lab)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return labs, nil
}

// CreateLab inserts a new lab and populates its ID and timestamps by
// reading the row back.
func (r *LabRepo) CreateLab(ctx context.Context, lab *model.Lab) error {
	equip, hours, err := encodeLab(lab)
	if err != nil {
		return err
	}
	const q = `INSERT INTO labs (name, location, capacity, equipment, operating_hours, max_reservation_min, is_active)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, lab.Name, lab.Location, lab.Capacity, equip, hours, lab.MaxReservationMin, lab.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	lab.ID = uint64(id)
	stored, err := r.GetLab(ctx, lab.ID)
	if err != nil {
		return err
	}
	*lab = *stored
	return nil
}

// UpdateLab persists all mutable lab fields. It returns
// booking.ErrLabNotFound when the lab does not exist.
func (r *LabRepo) UpdateLab(ctx context.Context, lab *model.Lab) error {
	equip, hours, err := encodeLab(lab)
	if err != nil {
		return err
	}
	const q = `UPDATE labs
	           SET name = ?, location = ?, capacity = ?, equipment = ?, operating_hours = ?, max_reservation_min = ?, is_active = ?, updated_at = UTC_TIMESTAMP()
	           WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, lab.Name, lab.Location, lab.Capacity, equip, hours, lab.MaxReservationMin, lab.IsActive, lab.ID); err != nil {
		return err
	}
	stored, err := r.GetLab(ctx, lab.ID)
	if err != nil {
		return err
	}
	*lab = *stored
	return nil
}

func encodeLab(lab *model.Lab) (equipment, hours []byte, err error) {
	if lab.Equipment == nil {
		lab.Equipment = []string{}
	}
	equipment, err = json.Marshal(lab.Equipment)
	if err != nil {
		return nil, nil, err
	}
	hours, err = json.Marshal(lab.Hours)
	if err != nil {
		return nil, nil, err
	}
	return equipment, hours, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanLab(row rowScanner) (*model.Lab, error) {
	var (
		lab       model.Lab
		equipment []byte
		hours     []byte
	)
	if err := row.Scan(
		&lab.ID, &lab.Name, &lab.Location, &lab.Capacity,
		&equipment, &hours, &lab.MaxReservationMin, &lab.IsActive,
		&lab.CreatedAt, &lab.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(equipment) > 0 {
		if err := json.Unmarshal(equipment, &lab.Equipment); err != nil {
			return nil, err
		}
	}
	if len(hours) > 0 {
		if err := json.Unmarshal(hours, &lab.Hours); err != nil {
			return nil, err
		}
	}
	return &lab, nil
}
