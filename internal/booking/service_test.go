package booking_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/labreserve/labreserve/internal/booking"
	"github.com/labreserve/labreserve/internal/memstore"
	"github.com/labreserve/labreserve/internal/model"
)

// monday is a fixed Monday; the test clock sits at 08:00 that morning
// unless a test overrides it.
var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time {
	return time.Date(monday.Year(), monday.Month(), monday.Day(), hour, min, 0, 0, time.UTC)
}

func defaultSettings() booking.Settings {
	return booking.Settings{
		MinUnit:            30 * time.Minute,
		DefaultMaxDuration: 8 * time.Hour,
		CancellationWindow: 24 * time.Hour,
		AutoApprove:        map[string]bool{},
	}
}

func newTestService(t *testing.T, settings booking.Settings) (*booking.Service, *memstore.Store, uint64) {
	t.Helper()
	store := memstore.New()
	svc := booking.NewService(store, store, store, settings, nil)
	svc.SetClock(func() time.Time { return at(8, 0) })
	lab := &model.Lab{
		Name:     "Physics Lab",
		Location: "Science Block 2",
		Capacity: 30,
		Hours: model.WeekHours{
			time.Monday:  {OpenMin: 9 * 60, CloseMin: 17 * 60},
			time.Tuesday: {OpenMin: 9 * 60, CloseMin: 17 * 60},
		},
	}
	if err := svc.CreateLab(context.Background(), lab); err != nil {
		t.Fatalf("create lab: %v", err)
	}
	return svc, store, lab.ID
}

func mustCreate(t *testing.T, svc *booking.Service, labID uint64, start, end time.Time) *model.Reservation {
	t.Helper()
	r, err := svc.CreateReservation(context.Background(), booking.CreateRequest{
		LabID:         labID,
		RequesterID:   10,
		RequesterRole: model.RoleStudent,
		StartsAt:      start,
		EndsAt:        end,
		Purpose:       "circuits practical",
		GroupSize:     4,
	})
	if err != nil {
		t.Fatalf("create reservation: %v", err)
	}
	return r
}

func TestCreateReservation_Pending(t *testing.T) {
	svc, _, labID := newTestService(t, defaultSettings())
	r := mustCreate(t, svc, labID, at(10, 0), at(12, 0))
	if r.Status != model.StatusPending {
		t.Fatalf("expected PENDING, got %s", r.Status)
	}
	if r.ID == 0 {
		t.Fatal("expected an assigned id")
	}
	if r.DecidedAt != nil || r.DecidedBy != nil {
		t.Fatal("a pending reservation must not carry decision stamps")
	}
}

func TestCreateReservation_AutoApproveByPolicy(t *testing.T) {
	settings := defaultSettings()
	settings.AutoApprove = map[string]bool{model.RoleLecturer: true}
	svc, _, labID := newTestService(t, settings)

	r, err := svc.CreateReservation(context.Background(), booking.CreateRequest{
		LabID:         labID,
		RequesterID:   7,
		RequesterRole: model.RoleLecturer,
		StartsAt:      at(10, 0),
		EndsAt:        at(12, 0),
		Purpose:       "optics lecture prep",
		GroupSize:     1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Status != model.StatusApproved {
		t.Fatalf("lecturer reservations should auto-approve, got %s", r.Status)
	}
	if r.DecidedAt == nil {
		t.Fatal("auto-approved reservation must stamp decided_at")
	}
	if r.DecidedBy != nil {
		t.Fatal("automatic decisions carry no decided_by")
	}
}

func TestCreateReservation_Validation(t *testing.T) {
	svc, _, labID := newTestService(t, defaultSettings())
	base := booking.CreateRequest{
		LabID:         labID,
		RequesterID:   10,
		RequesterRole: model.RoleStudent,
		StartsAt:      at(10, 0),
		EndsAt:        at(12, 0),
		Purpose:       "practical",
		GroupSize:     4,
	}
	cases := []struct {
		name   string
		mutate func(*booking.CreateRequest)
	}{
		{"group size over capacity", func(r *booking.CreateRequest) { r.GroupSize = 31 }},
		{"group size zero", func(r *booking.CreateRequest) { r.GroupSize = 0 }},
		{"empty purpose", func(r *booking.CreateRequest) { r.Purpose = "   " }},
		{"inverted range", func(r *booking.CreateRequest) { r.EndsAt = r.StartsAt.Add(-time.Hour) }},
		{"start in the past", func(r *booking.CreateRequest) { r.StartsAt = at(7, 0); r.EndsAt = at(7, 30) }},
		{"below minimum unit", func(r *booking.CreateRequest) { r.EndsAt = r.StartsAt.Add(10 * time.Minute) }},
		{"over maximum duration", func(r *booking.CreateRequest) { r.EndsAt = r.StartsAt.Add(9 * time.Hour) }},
		{"outside operating hours", func(r *booking.CreateRequest) { r.StartsAt = at(18, 0); r.EndsAt = at(19, 0) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)
			_, err := svc.CreateReservation(context.Background(), req)
			if !booking.IsValidation(err) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestCreateReservation_UnknownLabAndBadRole(t *testing.T) {
	svc, _, labID := newTestService(t, defaultSettings())
	_, err := svc.CreateReservation(context.Background(), booking.CreateRequest{
		LabID: 999, RequesterID: 10, RequesterRole: model.RoleStudent,
		StartsAt: at(10, 0), EndsAt: at(11, 0), Purpose: "x", GroupSize: 1,
	})
	if err != booking.ErrLabNotFound {
		t.Fatalf("expected ErrLabNotFound, got %v", err)
	}
	_, err = svc.CreateReservation(context.Background(), booking.CreateRequest{
		LabID: labID, RequesterID: 10, RequesterRole: model.RoleAdmin,
		StartsAt: at(10, 0), EndsAt: at(11, 0), Purpose: "x", GroupSize: 1,
	})
	if err != booking.ErrForbidden {
		t.Fatalf("admins do not book labs: expected ErrForbidden, got %v", err)
	}
}

func TestCreateReservation_SlotConflict(t *testing.T) {
	svc, _, labID := newTestService(t, defaultSettings())
	first := mustCreate(t, svc, labID, at(10, 0), at(12, 0))

	_, err := svc.CreateReservation(context.Background(), booking.CreateRequest{
		LabID:         labID,
		RequesterID:   11,
		RequesterRole: model.RoleLecturer,
		StartsAt:      at(11, 0),
		EndsAt:        at(13, 0),
		Purpose:       "overlapping request",
		GroupSize:     2,
	})
	if !booking.IsSlotConflict(err) {
		t.Fatalf("expected SlotConflictError, got %v", err)
	}
	sc := err.(*booking.SlotConflictError)
	if sc.ReservationID != first.ID {
		t.Fatalf("conflict must name reservation %d, got %d", first.ID, sc.ReservationID)
	}
	if !sc.StartsAt.Equal(first.StartsAt) || !sc.EndsAt.Equal(first.EndsAt) {
		t.Fatalf("conflict must name the overlapping range, got %v-%v", sc.StartsAt, sc.EndsAt)
	}

	// an adjacent booking touching the boundary is fine
	if _, err := svc.CreateReservation(context.Background(), booking.CreateRequest{
		LabID: labID, RequesterID: 11, RequesterRole: model.RoleLecturer,
		StartsAt: at(12, 0), EndsAt: at(13, 0), Purpose: "back to back", GroupSize: 2,
	}); err != nil {
		t.Fatalf("touching ranges do not overlap: %v", err)
	}
}

func TestCreateReservation_ConcurrentSameSlot(t *testing.T) {
	svc, _, labID := newTestService(t, defaultSettings())

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateReservation(context.Background(), booking.CreateRequest{
				LabID:         labID,
				RequesterID:   uint64(100 + i),
				RequesterRole: model.RoleStudent,
				StartsAt:      at(10, 0),
				EndsAt:        at(12, 0),
				Purpose:       "same slot race",
				GroupSize:     1,
			})
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case booking.IsSlotConflict(err):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 {
		t.Fatalf("exactly one concurrent request must win, got %d", won)
	}
}

// TestNoOverlapInvariant throws randomized overlapping and disjoint
// requests at one lab and asserts the store never holds two active
// reservations with intersecting ranges.
func TestNoOverlapInvariant(t *testing.T) {
	svc, store, labID := newTestService(t, defaultSettings())
	rng := rand.New(rand.NewSource(42))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		start := at(9, 0).Add(time.Duration(rng.Intn(14)) * 30 * time.Minute)
		end := start.Add(time.Duration(1+rng.Intn(4)) * 30 * time.Minute)
		if end.After(at(17, 0)) {
			end = at(17, 0)
		}
		if !end.After(start) {
			continue
		}
		wg.Add(1)
		go func(start, end time.Time, i int) {
			defer wg.Done()
			_, _ = svc.CreateReservation(context.Background(), booking.CreateRequest{
				LabID:         labID,
				RequesterID:   uint64(1000 + i),
				RequesterRole: model.RoleStudent,
				StartsAt:      start,
				EndsAt:        end,
				Purpose:       "fuzzed request",
				GroupSize:     1,
			})
		}(start, end, i)
	}
	wg.Wait()

	active, err := store.ListActiveInRange(context.Background(), labID, monday, monday.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) == 0 {
		t.Fatal("expected at least one committed reservation")
	}
	for i := range active {
		for j := i + 1; j < len(active); j++ {
			if model.Overlaps(active[i].StartsAt, active[i].EndsAt, active[j].StartsAt, active[j].EndsAt) {
				t.Fatalf("overlap between reservation %d (%v-%v) and %d (%v-%v)",
					active[i].ID, active[i].StartsAt, active[i].EndsAt,
					active[j].ID, active[j].StartsAt, active[j].EndsAt)
			}
		}
	}
}

// TestOfferedSlotAlwaysBookable books the first slot the engine offers
// and expects success: availability and creation agree on the rules.
func TestOfferedSlotAlwaysBookable(t *testing.T) {
	svc, _, labID := newTestService(t, defaultSettings())
	mustCreate(t, svc, labID, at(10, 0), at(12, 0))

	slots, err := svc.OpenSlots(context.Background(), labID, monday, monday.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("open slots: %v", err)
	}
	if len(slots) == 0 {
		t.Fatal("expected open slots")
	}
	for _, slot := range slots {
		if _, err := svc.CreateReservation(context.Background(), booking.CreateRequest{
			LabID:         labID,
			RequesterID:   55,
			RequesterRole: model.RoleLecturer,
			StartsAt:      slot.StartsAt,
			EndsAt:        slot.EndsAt,
			Purpose:       "booking an offered slot",
			GroupSize:     2,
		}); err != nil {
			t.Fatalf("offered slot %v-%v must be bookable: %v", slot.StartsAt, slot.EndsAt, err)
		}
	}
}

func TestDecide_ApproveAndTerminalIdempotence(t *testing.T) {
	svc, _, labID := newTestService(t, defaultSettings())
	r := mustCreate(t, svc, labID, at(10, 0), at(12, 0))

	const adminID = 1
	decided, err := svc.Decide(context.Background(), r.ID, model.StatusApproved, adminID, model.RoleAdmin)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decided.Status != model.StatusApproved {
		t.Fatalf("expected APPROVED, got %s", decided.Status)
	}
	if decided.DecidedBy == nil || *decided.DecidedBy != adminID {
		t.Fatalf("decided_by must be the admin, got %v", decided.DecidedBy)
	}
	if decided.DecidedAt == nil {
		t.Fatal("decided_at must be stamped")
	}

	if _, err := svc.Decide(context.Background(), r.ID, model.StatusApproved, adminID, model.RoleAdmin); err != booking.ErrInvalidTransition {
		t.Fatalf("second decide must fail with ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.Decide(context.Background(), r.ID, model.StatusRejected, adminID, model.RoleAdmin); err != booking.ErrInvalidTransition {
		t.Fatalf("decide on non-pending must fail, got %v", err)
	}
}

func TestDecide_Authority(t *testing.T) {
	settings := defaultSettings()
	settings.PeerApproval = true
	svc, _, labID := newTestService(t, settings)
	r := mustCreate(t, svc, labID, at(10, 0), at(12, 0)) // requester 10, student

	// students never decide
	if _, err := svc.Decide(context.Background(), r.ID, model.StatusApproved, 10, model.RoleStudent); err != booking.ErrForbidden {
		t.Fatalf("expected ErrForbidden for student, got %v", err)
	}
	// a lecturer may decide a student request when peer approval is on
	if _, err := svc.Decide(context.Background(), r.ID, model.StatusRejected, 20, model.RoleLecturer); err != nil {
		t.Fatalf("peer approval should let a lecturer decide: %v", err)
	}

	// but not with peer approval disabled
	svc2, _, labID2 := newTestService(t, defaultSettings())
	r2 := mustCreate(t, svc2, labID2, at(10, 0), at(12, 0))
	if _, err := svc2.Decide(context.Background(), r2.ID, model.StatusApproved, 20, model.RoleLecturer); err != booking.ErrForbidden {
		t.Fatalf("expected ErrForbidden without peer approval, got %v", err)
	}
}

func TestDecide_LecturerCannotDecideOwnOrPeerLecturer(t *testing.T) {
	settings := defaultSettings()
	settings.PeerApproval = true
	svc, _, labID := newTestService(t, settings)

	own, err := svc.CreateReservation(context.Background(), booking.CreateRequest{
		LabID: labID, RequesterID: 20, RequesterRole: model.RoleLecturer,
		StartsAt: at(13, 0), EndsAt: at(14, 0), Purpose: "own slot", GroupSize: 1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Decide(context.Background(), own.ID, model.StatusApproved, 20, model.RoleLecturer); err != booking.ErrForbidden {
		t.Fatalf("lecturer deciding own request must be forbidden, got %v", err)
	}
	if _, err := svc.Decide(context.Background(), own.ID, model.StatusApproved, 21, model.RoleLecturer); err != booking.ErrForbidden {
		t.Fatalf("peer approval covers student requests only, got %v", err)
	}
}

func TestDecide_BadDecision(t *testing.T) {
	svc, _, labID := newTestService(t, defaultSettings())
	r := mustCreate(t, svc, labID, at(10, 0), at(12, 0))
	if _, err := svc.Decide(context.Background(), r.ID, "MAYBE", 1, model.RoleAdmin); !booking.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCancel_WindowEnforcement(t *testing.T) {
	svc, _, labID := newTestService(t, defaultSettings())
	// clock 08:00, start 10:00, window 24h: the requester is too late
	r := mustCreate(t, svc, labID, at(10, 0), at(12, 0))
	if _, err := svc.Cancel(context.Background(), r.ID, 10, model.RoleStudent, "overslept"); err != booking.ErrCancellationWindowClosed {
		t.Fatalf("expected ErrCancellationWindowClosed, got %v", err)
	}

	// an admin may still cancel before the start
	cancelled, err := svc.Cancel(context.Background(), r.ID, 1, model.RoleAdmin, "room maintenance")
	if err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
	if cancelled.Status != model.StatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", cancelled.Status)
	}
	if cancelled.CancellationReason == nil || *cancelled.CancellationReason != "room maintenance" {
		t.Fatalf("expected the reason to be recorded, got %v", cancelled.CancellationReason)
	}
}

func TestCancel_RequesterInsideWindow(t *testing.T) {
	svc, _, labID := newTestService(t, defaultSettings())
	// book tomorrow: more than 24h ahead of the 08:00 clock? 10:00 next
	// day is 26h out, inside the allowed window.
	tuesday := monday.AddDate(0, 0, 1)
	start := time.Date(tuesday.Year(), tuesday.Month(), tuesday.Day(), 10, 0, 0, 0, time.UTC)
	r := mustCreate(t, svc, labID, start, start.Add(2*time.Hour))

	if _, err := svc.Cancel(context.Background(), r.ID, 99, model.RoleStudent, ""); err != booking.ErrForbidden {
		t.Fatalf("only the requester or an admin may cancel, got %v", err)
	}
	cancelled, err := svc.Cancel(context.Background(), r.ID, 10, model.RoleStudent, "clash with lecture")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != model.StatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", cancelled.Status)
	}
	// terminal states stay terminal
	if _, err := svc.Cancel(context.Background(), r.ID, 10, model.RoleStudent, "again"); err != booking.ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition on re-cancel, got %v", err)
	}
}

func TestCancel_AllowLateCancelPolicy(t *testing.T) {
	settings := defaultSettings()
	settings.AllowLateCancel = true
	svc, _, labID := newTestService(t, settings)
	r := mustCreate(t, svc, labID, at(10, 0), at(12, 0))
	if _, err := svc.Cancel(context.Background(), r.ID, 10, model.RoleStudent, "late but allowed"); err != nil {
		t.Fatalf("late cancellation should be allowed by policy: %v", err)
	}
}

func TestCancel_AfterStartFailsForEveryone(t *testing.T) {
	svc, _, labID := newTestService(t, defaultSettings())
	r := mustCreate(t, svc, labID, at(10, 0), at(12, 0))
	svc.SetClock(func() time.Time { return at(10, 30) })
	if _, err := svc.Cancel(context.Background(), r.ID, 1, model.RoleAdmin, ""); err != booking.ErrCancellationWindowClosed {
		t.Fatalf("expected ErrCancellationWindowClosed after start, got %v", err)
	}
}

func TestCompleteAndSweep(t *testing.T) {
	svc, _, labID := newTestService(t, defaultSettings())
	r := mustCreate(t, svc, labID, at(10, 0), at(12, 0))
	if _, err := svc.Decide(context.Background(), r.ID, model.StatusApproved, 1, model.RoleAdmin); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// not yet elapsed
	if _, err := svc.Complete(context.Background(), r.ID); err != booking.ErrInvalidTransition {
		t.Fatalf("completion before end time must fail, got %v", err)
	}

	svc.SetClock(func() time.Time { return at(12, 0) })
	n, err := svc.SweepCompletions(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 completion, got %d", n)
	}
	got, err := svc.GetReservation(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", got.Status)
	}
	// terminal: completing again fails, sweeping again is a no-op
	if _, err := svc.Complete(context.Background(), r.ID); err != booking.ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if n, err := svc.SweepCompletions(context.Background()); err != nil || n != 0 {
		t.Fatalf("expected idle sweep, got n=%d err=%v", n, err)
	}
}

func TestQueryReservations_RoundTripAndFilters(t *testing.T) {
	svc, _, labID := newTestService(t, defaultSettings())
	a := mustCreate(t, svc, labID, at(9, 0), at(10, 0))
	b := mustCreate(t, svc, labID, at(10, 0), at(11, 0))
	c := mustCreate(t, svc, labID, at(11, 0), at(12, 0))
	if _, err := svc.Decide(context.Background(), b.ID, model.StatusRejected, 1, model.RoleAdmin); err != nil {
		t.Fatalf("reject: %v", err)
	}

	// round trip: everything ever created comes back exactly once
	all, total, err := svc.QueryReservations(context.Background(), booking.Query{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Fatalf("expected all 3 reservations, got total=%d len=%d", total, len(all))
	}
	seen := map[uint64]int{}
	for _, r := range all {
		seen[r.ID]++
	}
	for _, id := range []uint64{a.ID, b.ID, c.ID} {
		if seen[id] != 1 {
			t.Fatalf("reservation %d returned %d times", id, seen[id])
		}
	}

	// default ordering: starts_at ascending, id tie-break
	for i := 1; i < len(all); i++ {
		if all[i].StartsAt.Before(all[i-1].StartsAt) {
			t.Fatalf("results not ordered by starts_at: %v after %v", all[i].StartsAt, all[i-1].StartsAt)
		}
	}

	// status filter
	rejected, total, err := svc.QueryReservations(context.Background(), booking.Query{Status: model.StatusRejected})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 1 || rejected[0].ID != b.ID {
		t.Fatalf("expected only the rejected reservation, got %+v", rejected)
	}

	// free text over purpose
	text, _, err := svc.QueryReservations(context.Background(), booking.Query{Text: "circuits"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(text) != 3 {
		t.Fatalf("expected purpose text match, got %d", len(text))
	}
	// free text over lab name
	byLab, _, err := svc.QueryReservations(context.Background(), booking.Query{Text: "physics"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(byLab) != 3 {
		t.Fatalf("expected lab name text match, got %d", len(byLab))
	}

	// date range: only reservations overlapping [10:00, 11:00)
	ranged, _, err := svc.QueryReservations(context.Background(), booking.Query{From: at(10, 0), To: at(11, 0)})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(ranged) != 1 || ranged[0].ID != b.ID {
		t.Fatalf("expected the 10:00 reservation only, got %+v", ranged)
	}
}

func TestQueryReservations_Pagination(t *testing.T) {
	svc, _, labID := newTestService(t, defaultSettings())
	for h := 9; h < 14; h++ {
		mustCreate(t, svc, labID, at(h, 0), at(h, 30))
	}
	page1, total, err := svc.QueryReservations(context.Background(), booking.Query{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 5 || len(page1) != 2 {
		t.Fatalf("expected total 5 page of 2, got total=%d len=%d", total, len(page1))
	}
	page3, total, err := svc.QueryReservations(context.Background(), booking.Query{Page: 3, PageSize: 2})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 5 || len(page3) != 1 {
		t.Fatalf("expected last page of 1, got total=%d len=%d", total, len(page3))
	}
	// past the end: empty page, not an error
	empty, total, err := svc.QueryReservations(context.Background(), booking.Query{Page: 9, PageSize: 2})
	if err != nil {
		t.Fatalf("query past the end must not error: %v", err)
	}
	if total != 5 || len(empty) != 0 {
		t.Fatalf("expected empty page, got total=%d len=%d", total, len(empty))
	}
}

func TestHistory_AuditTrail(t *testing.T) {
	svc, _, labID := newTestService(t, defaultSettings())
	r := mustCreate(t, svc, labID, at(10, 0), at(12, 0))
	if _, err := svc.Decide(context.Background(), r.ID, model.StatusApproved, 1, model.RoleAdmin); err != nil {
		t.Fatalf("approve: %v", err)
	}
	svc.SetClock(func() time.Time { return at(12, 0) })
	if _, err := svc.Complete(context.Background(), r.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	trail, err := svc.History(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	wantActions := []string{model.AuditCreate, model.AuditApprove, model.AuditComplete}
	if len(trail) != len(wantActions) {
		t.Fatalf("expected %d audit records, got %d", len(wantActions), len(trail))
	}
	for i, rec := range trail {
		if rec.Action != wantActions[i] {
			t.Fatalf("record %d: expected %s, got %s", i, wantActions[i], rec.Action)
		}
		if rec.ID == "" {
			t.Fatal("audit record without id")
		}
	}
	if trail[1].FromStatus != model.StatusPending || trail[1].ToStatus != model.StatusApproved {
		t.Fatalf("approve record must carry before/after states, got %s -> %s", trail[1].FromStatus, trail[1].ToStatus)
	}
	if trail[2].ActorID != 0 {
		t.Fatalf("system completion must record actor 0, got %d", trail[2].ActorID)
	}

	if _, err := svc.History(context.Background(), 999); err != booking.ErrReservationNotFound {
		t.Fatalf("expected ErrReservationNotFound, got %v", err)
	}
}

func TestDisabledLab_NoSlotsNoBookings(t *testing.T) {
	svc, _, labID := newTestService(t, defaultSettings())
	existing := mustCreate(t, svc, labID, at(10, 0), at(12, 0))
	if err := svc.DisableLab(context.Background(), labID); err != nil {
		t.Fatalf("disable: %v", err)
	}

	slots, err := svc.OpenSlots(context.Background(), labID, monday, monday.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("open slots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("disabled lab must advertise no slots, got %+v", slots)
	}
	_, err = svc.CreateReservation(context.Background(), booking.CreateRequest{
		LabID: labID, RequesterID: 10, RequesterRole: model.RoleStudent,
		StartsAt: at(13, 0), EndsAt: at(14, 0), Purpose: "x", GroupSize: 1,
	})
	if !booking.IsValidation(err) {
		t.Fatalf("expected ValidationError on disabled lab, got %v", err)
	}

	// existing reservations are frozen, not dropped: still cancellable
	if _, err := svc.Cancel(context.Background(), existing.ID, 1, model.RoleAdmin, "lab closed"); err != nil {
		t.Fatalf("cancel on frozen reservation: %v", err)
	}
}

func TestLabValidation(t *testing.T) {
	svc, _, _ := newTestService(t, defaultSettings())
	cases := []struct {
		name string
		lab  model.Lab
	}{
		{"empty name", model.Lab{Capacity: 5}},
		{"zero capacity", model.Lab{Name: "Chem Lab"}},
		{"close before open", model.Lab{
			Name: "Chem Lab", Capacity: 5,
			Hours: model.WeekHours{time.Monday: {OpenMin: 10 * 60, CloseMin: 9 * 60}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lab := tc.lab
			if err := svc.CreateLab(context.Background(), &lab); !booking.IsValidation(err) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}
