package booking

import (
	"context"
	"time"

	"github.com/labreserve/labreserve/internal/model"
)

// LabFilter narrows ListLabs. Zero values mean "no filter".
type LabFilter struct {
	ActiveOnly bool
	Name       string // substring match, case-insensitive
	MinCap     uint32
	Equipment  string // labs carrying this equipment item
}

// Sortable fields for reservation queries. Anything else falls back to
// SortStartsAt.
const (
	SortStartsAt  = "starts_at"
	SortCreatedAt = "created_at"
	SortStatus    = "status"
)

// Query describes the read-side criteria for listing reservations.
// All filters are optional; Page is 1-based.
type Query struct {
	Status      string
	LabID       uint64
	RequesterID uint64
	From        time.Time
	To          time.Time
	Text        string // free text over purpose and lab name
	SortBy      string
	SortDesc    bool
	Page        int
	PageSize    int
}

// LabStore is the persistence contract for the lab catalog.
// Implementations return ErrLabNotFound for unknown IDs.
type LabStore interface {
	GetLab(ctx context.Context, id uint64) (*model.Lab, error)
	ListLabs(ctx context.Context, f LabFilter) ([]model.Lab, error)
	CreateLab(ctx context.Context, lab *model.Lab) error
	UpdateLab(ctx context.Context, lab *model.Lab) error
}

// ReservationStore is the persistence contract for reservations.
// Implementations return ErrReservationNotFound for unknown IDs and
// must keep every record forever (no physical deletes).
type ReservationStore interface {
	Insert(ctx context.Context, r *model.Reservation) error
	Get(ctx context.Context, id uint64) (*model.Reservation, error)
	Update(ctx context.Context, r *model.Reservation) error
	// ListActiveInRange returns Pending and Approved reservations of the
	// lab whose [StartsAt, EndsAt) overlaps [from, to), ordered by start.
	ListActiveInRange(ctx context.Context, labID uint64, from, to time.Time) ([]model.Reservation, error)
	// ListDueCompletion returns Approved reservations with EndsAt <= now.
	ListDueCompletion(ctx context.Context, now time.Time) ([]model.Reservation, error)
	// Search applies Query filters and returns one page plus the total
	// match count. Ordering ties are broken by id ascending.
	Search(ctx context.Context, q Query) ([]model.Reservation, int64, error)
}

// AuditStore records reservation transitions for the admin history
// views. Append must never be skipped on a successful transition.
type AuditStore interface {
	Append(ctx context.Context, rec model.AuditRecord) error
	ListByReservation(ctx context.Context, reservationID uint64) ([]model.AuditRecord, error)
}
