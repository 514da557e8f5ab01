// Package memstore provides an in-memory implementation of the booking
// store interfaces backed by maps and a read-write mutex. It powers the
// test suite and local development without a database; the durable
// implementation lives in internal/repository. Reads return copies so
// callers can never alias store state, and each method is atomic: a
// reader observes either the pre- or post-write state of a transition,
// never a partial one.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/labreserve/labreserve/internal/booking"
	"github.com/labreserve/labreserve/internal/model"
)

// Store holds all entities in memory. The zero value is not usable;
// call New.
type Store struct {
	mu           sync.RWMutex
	labs         map[uint64]model.Lab
	reservations map[uint64]model.Reservation
	audit        []model.AuditRecord
	nextLabID    uint64
	nextResID    uint64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		labs:         make(map[uint64]model.Lab),
		reservations: make(map[uint64]model.Reservation),
		nextLabID:    1,
		nextResID:    1,
	}
}

// --- booking.LabStore --------------------------------------------------

// GetLab returns a copy of the lab or booking.ErrLabNotFound.
func (s *Store) GetLab(_ context.Context, id uint64) (*model.Lab, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lab, ok := s.labs[id]
	if !ok {
		return nil, booking.ErrLabNotFound
	}
	out := copyLab(lab)
	return &out, nil
}

// ListLabs returns labs matching the filter ordered by id.
func (s *Store) ListLabs(_ context.Context, f booking.LabFilter) ([]model.Lab, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Lab, 0, len(s.labs))
	for _, lab := range s.labs {
		if f.ActiveOnly && !lab.IsActive {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(lab.Name), strings.ToLower(f.Name)) {
			continue
		}
		if f.MinCap > 0 && lab.Capacity < f.MinCap {
			continue
		}
		if f.Equipment != "" && !hasEquipment(lab.Equipment, f.Equipment) {
			continue
		}
		out = append(out, copyLab(lab))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateLab assigns the next id and stores the lab.
func (s *Store) CreateLab(_ context.Context, lab *model.Lab) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	lab.ID = s.nextLabID
	s.nextLabID++
	lab.CreatedAt = now
	lab.UpdatedAt = now
	s.labs[lab.ID] = copyLab(*lab)
	return nil
}

// UpdateLab replaces a stored lab.
func (s *Store) UpdateLab(_ context.Context, lab *model.Lab) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.labs[lab.ID]; !ok {
		return booking.ErrLabNotFound
	}
	lab.UpdatedAt = time.Now().UTC()
	s.labs[lab.ID] = copyLab(*lab)
	return nil
}

// --- booking.ReservationStore ------------------------------------------

// Insert assigns the next id and stores the reservation.
func (s *Store) Insert(_ context.Context, r *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.nextResID
	s.nextResID++
	s.reservations[r.ID] = copyReservation(*r)
	return nil
}

// Get returns a copy of the reservation or booking.ErrReservationNotFound.
func (s *Store) Get(_ context.Context, id uint64) (*model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, booking.ErrReservationNotFound
	}
	out := copyReservation(r)
	return &out, nil
}

// Update replaces a stored reservation.
func (s *Store) Update(_ context.Context, r *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[r.ID]; !ok {
		return booking.ErrReservationNotFound
	}
	s.reservations[r.ID] = copyReservation(*r)
	return nil
}

// ListActiveInRange returns Pending/Approved reservations of the lab
// overlapping [from, to), ordered by start time then id.
func (s *Store) ListActiveInRange(_ context.Context, labID uint64, from, to time.Time) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Reservation
	for _, r := range s.reservations {
		if r.LabID != labID || !r.Active() {
			continue
		}
		if model.Overlaps(r.StartsAt, r.EndsAt, from, to) {
			out = append(out, copyReservation(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListDueCompletion returns Approved reservations with EndsAt <= now.
func (s *Store) ListDueCompletion(_ context.Context, now time.Time) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Reservation
	for _, r := range s.reservations {
		if r.Status == model.StatusApproved && !r.EndsAt.After(now) {
			out = append(out, copyReservation(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Search applies the query filters and returns one page plus the total
// match count. Free-text matches the purpose and the lab name.
func (s *Store) Search(_ context.Context, q booking.Query) ([]model.Reservation, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text := strings.ToLower(strings.TrimSpace(q.Text))
	var matches []model.Reservation
	for _, r := range s.reservations {
		if q.Status != "" && r.Status != q.Status {
			continue
		}
		if q.LabID != 0 && r.LabID != q.LabID {
			continue
		}
		if q.RequesterID != 0 && r.RequesterID != q.RequesterID {
			continue
		}
		if !q.From.IsZero() && !r.EndsAt.After(q.From) {
			continue
		}
		if !q.To.IsZero() && !r.StartsAt.Before(q.To) {
			continue
		}
		if text != "" {
			labName := ""
			if lab, ok := s.labs[r.LabID]; ok {
				labName = strings.ToLower(lab.Name)
			}
			if !strings.Contains(strings.ToLower(r.Purpose), text) && !strings.Contains(labName, text) {
				continue
			}
		}
		matches = append(matches, copyReservation(r))
	}
	sortReservations(matches, q.SortBy, q.SortDesc)
	total := int64(len(matches))
	start := (q.Page - 1) * q.PageSize
	if start >= len(matches) {
		return []model.Reservation{}, total, nil
	}
	end := start + q.PageSize
	if end > len(matches) {
		end = len(matches)
	}
	return matches[start:end], total, nil
}

func sortReservations(rs []model.Reservation, sortBy string, desc bool) {
	less := func(i, j int) bool {
		var cmp int
		switch sortBy {
		case booking.SortCreatedAt:
			cmp = compareTimes(rs[i].CreatedAt, rs[j].CreatedAt)
		case booking.SortStatus:
			cmp = strings.Compare(rs[i].Status, rs[j].Status)
		default:
			cmp = compareTimes(rs[i].StartsAt, rs[j].StartsAt)
		}
		if desc {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp < 0
		}
		// stable tie-break regardless of direction
		return rs[i].ID < rs[j].ID
	}
	sort.Slice(rs, less)
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// --- booking.AuditStore ------------------------------------------------

// Append stores an audit record.
func (s *Store) Append(_ context.Context, rec model.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, rec)
	return nil
}

// ListByReservation returns the reservation's audit trail in insertion
// order.
func (s *Store) ListByReservation(_ context.Context, reservationID uint64) ([]model.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.AuditRecord, 0, 4)
	for _, rec := range s.audit {
		if rec.ReservationID == reservationID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// --- helpers -----------------------------------------------------------

func copyLab(lab model.Lab) model.Lab {
	out := lab
	out.Equipment = append([]string(nil), lab.Equipment...)
	if lab.Hours != nil {
		out.Hours = make(model.WeekHours, len(lab.Hours))
		for d, h := range lab.Hours {
			out.Hours[d] = h
		}
	}
	return out
}

func copyReservation(r model.Reservation) model.Reservation {
	out := r
	if r.DecidedAt != nil {
		t := *r.DecidedAt
		out.DecidedAt = &t
	}
	if r.DecidedBy != nil {
		v := *r.DecidedBy
		out.DecidedBy = &v
	}
	if r.CancellationReason != nil {
		v := *r.CancellationReason
		out.CancellationReason = &v
	}
	return out
}

func hasEquipment(list []string, want string) bool {
	for _, e := range list {
		if strings.EqualFold(e, want) {
			return true
		}
	}
	return false
}
