package booking

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/labreserve/labreserve/internal/availability"
	"github.com/labreserve/labreserve/internal/model"
)

// Settings carries the booking policy knobs loaded from configuration.
// The core never mutates them.
type Settings struct {
	// MinUnit is the shortest bookable duration.
	MinUnit time.Duration
	// DefaultMaxDuration caps a reservation for labs without their own
	// max_reservation_min override.
	DefaultMaxDuration time.Duration
	// CancellationWindow is how long before the start a requester may
	// still cancel. Admins are only bounded by the start time itself.
	CancellationWindow time.Duration
	// AllowLateCancel lifts the cancellation window for requesters.
	AllowLateCancel bool
	// AutoApprove maps a role to whether its reservations skip the
	// approval step and commit directly as Approved.
	AutoApprove map[string]bool
	// PeerApproval lets lecturers decide student reservations.
	PeerApproval bool
}

// Notifier receives a callback after every successful reservation
// transition. Implementations must not fail the transition; publishing
// errors are their own problem to log.
type Notifier interface {
	ReservationChanged(ctx context.Context, r model.Reservation, rec model.AuditRecord)
}

// Service is the reservation core. It owns the per-lab write locks and
// is safe for use by any number of concurrent callers. Reads go
// straight to the stores; writes for one lab are serialized.
type Service struct {
	labs         LabStore
	reservations ReservationStore
	audit        AuditStore
	settings     Settings
	notifier     Notifier
	locks        *lockTable
	now          func() time.Time
}

// NewService wires the reservation core. labs, reservations and audit
// must be non-nil; notifier may be nil when eventing is disabled.
func NewService(labs LabStore, reservations ReservationStore, audit AuditStore, settings Settings, notifier Notifier) *Service {
	if labs == nil || reservations == nil || audit == nil {
		panic("nil store passed to booking.NewService")
	}
	if settings.MinUnit <= 0 {
		settings.MinUnit = 30 * time.Minute
	}
	if settings.DefaultMaxDuration <= 0 {
		settings.DefaultMaxDuration = 4 * time.Hour
	}
	return &Service{
		labs:         labs,
		reservations: reservations,
		audit:        audit,
		settings:     settings,
		notifier:     notifier,
		locks:        newLockTable(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the service clock. Tests use it to pin "now".
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// --- Lab catalog -------------------------------------------------------

// GetLab returns a lab by ID.
func (s *Service) GetLab(ctx context.Context, id uint64) (*model.Lab, error) {
	return s.labs.GetLab(ctx, id)
}

// ListLabs returns labs matching the filter.
func (s *Service) ListLabs(ctx context.Context, f LabFilter) ([]model.Lab, error) {
	return s.labs.ListLabs(ctx, f)
}

// CreateLab validates and stores a new lab. New labs start active.
func (s *Service) CreateLab(ctx context.Context, lab *model.Lab) error {
	if err := validateLab(lab); err != nil {
		return err
	}
	lab.IsActive = true
	return s.labs.CreateLab(ctx, lab)
}

// LabPatch is a partial lab update; nil fields are left untouched.
type LabPatch struct {
	Name              *string
	Location          *string
	Capacity          *uint32
	Equipment         *[]string
	Hours             *model.WeekHours
	MaxReservationMin *uint32
	IsActive          *bool
}

// UpdateLab applies a patch to an existing lab. Existing Pending and
// Approved reservations are deliberately left untouched: they were
// validated against the lab as it stood and stay frozen through their
// normal lifecycle even if hours or capacity shrink afterwards.
func (s *Service) UpdateLab(ctx context.Context, id uint64, p LabPatch) (*model.Lab, error) {
	lab, err := s.labs.GetLab(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Name != nil {
		lab.Name = *p.Name
	}
	if p.Location != nil {
		lab.Location = *p.Location
	}
	if p.Capacity != nil {
		lab.Capacity = *p.Capacity
	}
	if p.Equipment != nil {
		lab.Equipment = *p.Equipment
	}
	if p.Hours != nil {
		lab.Hours = *p.Hours
	}
	if p.MaxReservationMin != nil {
		lab.MaxReservationMin = *p.MaxReservationMin
	}
	if p.IsActive != nil {
		lab.IsActive = *p.IsActive
	}
	if err := validateLab(lab); err != nil {
		return nil, err
	}
	if err := s.labs.UpdateLab(ctx, lab); err != nil {
		return nil, err
	}
	return lab, nil
}

// DisableLab soft-disables a lab. The lab disappears from availability
// and rejects new reservations; existing ones keep their lifecycle.
func (s *Service) DisableLab(ctx context.Context, id uint64) error {
	off := false
	_, err := s.UpdateLab(ctx, id, LabPatch{IsActive: &off})
	return err
}

func validateLab(lab *model.Lab) error {
	if strings.TrimSpace(lab.Name) == "" {
		return NewValidationError("name", "must not be empty")
	}
	if lab.Capacity == 0 {
		return NewValidationError("capacity", "must be positive")
	}
	if err := lab.Hours.Validate(); err != nil {
		return NewValidationError("operating_hours", err.Error())
	}
	return nil
}

// --- Availability ------------------------------------------------------

// OpenSlots computes the bookable slots of a lab between from and to.
// A disabled lab yields no slots. The result reflects a consistent
// snapshot of the reservation set; it may be stale by the time the
// caller books, which is why CreateReservation re-checks under the lab
// lock.
func (s *Service) OpenSlots(ctx context.Context, labID uint64, from, to time.Time) ([]model.TimeSlot, error) {
	lab, err := s.labs.GetLab(ctx, labID)
	if err != nil {
		return nil, err
	}
	if !lab.IsActive {
		return []model.TimeSlot{}, nil
	}
	existing, err := s.reservations.ListActiveInRange(ctx, labID, from, to)
	if err != nil {
		return nil, err
	}
	return availability.ComputeOpenSlots(lab, existing, from, to, s.limitsFor(lab))
}

func (s *Service) limitsFor(lab *model.Lab) availability.Limits {
	return availability.Limits{
		MinUnit:     s.settings.MinUnit,
		MaxDuration: lab.MaxDuration(s.settings.DefaultMaxDuration),
	}
}

// --- Reservation lifecycle ---------------------------------------------

// CreateRequest carries a booking submission.
type CreateRequest struct {
	LabID         uint64
	RequesterID   uint64
	RequesterRole string
	StartsAt      time.Time
	EndsAt        time.Time
	Purpose       string
	GroupSize     uint32
}

// CreateReservation validates the request, re-checks availability at
// the instant of commit under the lab's write lock, and inserts the
// reservation as Pending (or Approved directly, when the requester's
// role is configured for auto-approval). Overlap with any Pending or
// Approved reservation fails with a SlotConflictError naming the
// conflicting range; of two near-simultaneous submissions the one
// serialized first wins.
func (s *Service) CreateReservation(ctx context.Context, req CreateRequest) (*model.Reservation, error) {
	lab, err := s.labs.GetLab(ctx, req.LabID)
	if err != nil {
		return nil, err
	}
	if !lab.IsActive {
		return nil, NewValidationError("lab_id", "lab is disabled")
	}
	if !model.RequesterRole(req.RequesterRole) {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(req.Purpose) == "" {
		return nil, NewValidationError("purpose", "must not be empty")
	}
	if req.GroupSize == 0 || req.GroupSize > lab.Capacity {
		return nil, NewValidationError("group_size", "must be between 1 and the lab capacity")
	}
	now := s.now()
	if !req.EndsAt.After(req.StartsAt) {
		return nil, NewValidationError("ends_at", "must be after starts_at")
	}
	if req.StartsAt.Before(now) {
		return nil, NewValidationError("starts_at", "must be in the future")
	}
	dur := req.EndsAt.Sub(req.StartsAt)
	lim := s.limitsFor(lab)
	if dur < lim.MinUnit {
		return nil, NewValidationError("ends_at", "reservation is shorter than the minimum bookable unit")
	}
	if dur > lim.MaxDuration {
		return nil, NewValidationError("ends_at", "reservation exceeds the lab's maximum duration")
	}

	// Serialize the availability re-check and the insert per lab.
	lock := s.locks.forLab(lab.ID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.reservations.ListActiveInRange(ctx, lab.ID, req.StartsAt, req.EndsAt)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		e := &existing[i]
		if model.Overlaps(req.StartsAt, req.EndsAt, e.StartsAt, e.EndsAt) {
			return nil, &SlotConflictError{
				LabID:         lab.ID,
				ReservationID: e.ID,
				StartsAt:      e.StartsAt,
				EndsAt:        e.EndsAt,
			}
		}
	}
	free, err := availability.FreeIntervals(lab, existing, req.StartsAt, req.EndsAt)
	if err != nil {
		return nil, NewValidationError("starts_at", err.Error())
	}
	if !availability.Fits(free, req.StartsAt, req.EndsAt) {
		return nil, NewValidationError("starts_at", "requested range is outside the lab's operating hours")
	}

	r := &model.Reservation{
		LabID:         lab.ID,
		RequesterID:   req.RequesterID,
		RequesterRole: req.RequesterRole,
		StartsAt:      req.StartsAt,
		EndsAt:        req.EndsAt,
		Purpose:       strings.TrimSpace(req.Purpose),
		GroupSize:     req.GroupSize,
		Status:        model.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if s.settings.AutoApprove[req.RequesterRole] {
		r.Status = model.StatusApproved
		decided := now
		r.DecidedAt = &decided
	}
	if err := s.reservations.Insert(ctx, r); err != nil {
		return nil, err
	}
	s.record(ctx, r, req.RequesterID, model.AuditCreate, "", r.Status, "")
	return r, nil
}

// Decide transitions a Pending reservation to Approved or Rejected.
// Admins may always decide; lecturers only when peer approval is
// enabled, only for student requests, and never their own.
func (s *Service) Decide(ctx context.Context, reservationID uint64, decision string, actorID uint64, actorRole string) (*model.Reservation, error) {
	if decision != model.StatusApproved && decision != model.StatusRejected {
		return nil, NewValidationError("decision", "must be APPROVED or REJECTED")
	}
	if !s.mayDecide(actorRole) {
		return nil, ErrForbidden
	}
	r, err := s.reservations.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	lock := s.locks.forLab(r.LabID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock; a concurrent decide or cancel may have won.
	if r, err = s.reservations.Get(ctx, reservationID); err != nil {
		return nil, err
	}
	if r.Status != model.StatusPending {
		return nil, ErrInvalidTransition
	}
	if actorRole == model.RoleLecturer {
		if r.RequesterRole != model.RoleStudent || r.RequesterID == actorID {
			return nil, ErrForbidden
		}
	}

	before := r.Status
	now := s.now()
	r.Status = decision
	r.DecidedAt = &now
	r.DecidedBy = &actorID
	r.UpdatedAt = now
	if err := s.reservations.Update(ctx, r); err != nil {
		return nil, err
	}
	action := model.AuditApprove
	if decision == model.StatusRejected {
		action = model.AuditReject
	}
	s.record(ctx, r, actorID, action, before, r.Status, "")
	return r, nil
}

func (s *Service) mayDecide(role string) bool {
	if role == model.RoleAdmin {
		return true
	}
	return role == model.RoleLecturer && s.settings.PeerApproval
}

// Cancel transitions a Pending or Approved reservation to Cancelled.
// The requester may cancel until the configured window before the
// start (unless late cancellation is allowed); admins may cancel any
// time before the reservation starts.
func (s *Service) Cancel(ctx context.Context, reservationID uint64, actorID uint64, actorRole string, reason string) (*model.Reservation, error) {
	r, err := s.reservations.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	lock := s.locks.forLab(r.LabID)
	lock.Lock()
	defer lock.Unlock()

	if r, err = s.reservations.Get(ctx, reservationID); err != nil {
		return nil, err
	}
	if model.TerminalStatus(r.Status) {
		return nil, ErrInvalidTransition
	}
	isAdmin := actorRole == model.RoleAdmin
	if !isAdmin && r.RequesterID != actorID {
		return nil, ErrForbidden
	}
	now := s.now()
	if !now.Before(r.StartsAt) {
		return nil, ErrCancellationWindowClosed
	}
	if !isAdmin && !s.settings.AllowLateCancel {
		if now.After(r.StartsAt.Add(-s.settings.CancellationWindow)) {
			return nil, ErrCancellationWindowClosed
		}
	}

	before := r.Status
	r.Status = model.StatusCancelled
	r.DecidedAt = &now
	r.DecidedBy = &actorID
	if reason = strings.TrimSpace(reason); reason != "" {
		r.CancellationReason = &reason
	}
	r.UpdatedAt = now
	if err := s.reservations.Update(ctx, r); err != nil {
		return nil, err
	}
	s.record(ctx, r, actorID, model.AuditCancel, before, r.Status, reason)
	return r, nil
}

// Complete transitions an elapsed Approved reservation to Completed.
// It is system-driven bookkeeping, invoked by the sweeper rather than
// by users, and requires the reservation's end time to have passed.
func (s *Service) Complete(ctx context.Context, reservationID uint64) (*model.Reservation, error) {
	r, err := s.reservations.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	lock := s.locks.forLab(r.LabID)
	lock.Lock()
	defer lock.Unlock()

	if r, err = s.reservations.Get(ctx, reservationID); err != nil {
		return nil, err
	}
	if r.Status != model.StatusApproved {
		return nil, ErrInvalidTransition
	}
	now := s.now()
	if now.Before(r.EndsAt) {
		return nil, ErrInvalidTransition
	}

	before := r.Status
	r.Status = model.StatusCompleted
	r.UpdatedAt = now
	if err := s.reservations.Update(ctx, r); err != nil {
		return nil, err
	}
	s.record(ctx, r, 0, model.AuditComplete, before, r.Status, "")
	return r, nil
}

// SweepCompletions completes every Approved reservation whose end time
// has passed. It returns how many transitions were applied; individual
// failures abort the sweep so the next tick retries.
func (s *Service) SweepCompletions(ctx context.Context) (int, error) {
	due, err := s.reservations.ListDueCompletion(ctx, s.now())
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range due {
		if _, err := s.Complete(ctx, due[i].ID); err != nil {
			// A racing cancel may have flipped the status; skip it.
			if err == ErrInvalidTransition {
				continue
			}
			return n, err
		}
		n++
	}
	return n, nil
}

// --- Read side ---------------------------------------------------------

// GetReservation returns a reservation by ID.
func (s *Service) GetReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	return s.reservations.Get(ctx, id)
}

// QueryReservations lists reservations matching the criteria along
// with the total match count. It is a pure read with deterministic
// ordering; requesting a page past the end yields an empty page.
func (s *Service) QueryReservations(ctx context.Context, q Query) ([]model.Reservation, int64, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}
	switch q.SortBy {
	case SortStartsAt, SortCreatedAt, SortStatus:
	default:
		q.SortBy = SortStartsAt
	}
	return s.reservations.Search(ctx, q)
}

// History returns the audit trail of a reservation in chronological
// order.
func (s *Service) History(ctx context.Context, reservationID uint64) ([]model.AuditRecord, error) {
	if _, err := s.reservations.Get(ctx, reservationID); err != nil {
		return nil, err
	}
	return s.audit.ListByReservation(ctx, reservationID)
}

// record appends an audit entry and fires the notifier. Audit failures
// are deliberately not propagated: the transition has already committed
// and the caller-facing result must reflect that.
func (s *Service) record(ctx context.Context, r *model.Reservation, actorID uint64, action, from, to, note string) {
	rec := model.AuditRecord{
		ID:            uuid.NewString(),
		ReservationID: r.ID,
		ActorID:       actorID,
		Action:        action,
		FromStatus:    from,
		ToStatus:      to,
		Note:          note,
		At:            s.now(),
	}
	_ = s.audit.Append(ctx, rec)
	if s.notifier != nil {
		s.notifier.ReservationChanged(ctx, *r, rec)
	}
}
