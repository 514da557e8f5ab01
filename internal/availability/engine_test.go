package availability

import (
	"testing"
	"time"

	"github.com/labreserve/labreserve/internal/model"
)

func physicsLab() *model.Lab {
	return &model.Lab{
		ID:       1,
		Name:     "Physics Lab",
		Capacity: 30,
		IsActive: true,
		Hours: model.WeekHours{
			time.Monday:    {OpenMin: 9 * 60, CloseMin: 17 * 60},
			time.Tuesday:   {OpenMin: 9 * 60, CloseMin: 17 * 60},
			time.Wednesday: {OpenMin: 9 * 60, CloseMin: 17 * 60},
			time.Thursday:  {OpenMin: 9 * 60, CloseMin: 17 * 60},
			time.Friday:    {OpenMin: 9 * 60, CloseMin: 17 * 60},
		},
	}
}

// monday is a fixed Monday used across tests.
var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func at(base time.Time, hour, min int) time.Time {
	return time.Date(base.Year(), base.Month(), base.Day(), hour, min, 0, 0, time.UTC)
}

func limits(minUnit, max time.Duration) Limits {
	return Limits{MinUnit: minUnit, MaxDuration: max}
}

func TestComputeOpenSlots_EmptyDaySingleSlot(t *testing.T) {
	lab := physicsLab()
	slots, err := ComputeOpenSlots(lab, nil, monday, monday.AddDate(0, 0, 1), limits(30*time.Minute, 8*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d: %+v", len(slots), slots)
	}
	if !slots[0].StartsAt.Equal(at(monday, 9, 0)) || !slots[0].EndsAt.Equal(at(monday, 17, 0)) {
		t.Fatalf("expected 09:00-17:00, got %v-%v", slots[0].StartsAt, slots[0].EndsAt)
	}
}

func TestComputeOpenSlots_MaxDurationSplitting(t *testing.T) {
	lab := physicsLab()
	slots, err := ComputeOpenSlots(lab, nil, monday, monday.AddDate(0, 0, 1), limits(30*time.Minute, 4*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][2]time.Time{
		{at(monday, 9, 0), at(monday, 13, 0)},
		{at(monday, 13, 0), at(monday, 17, 0)},
	}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d: %+v", len(want), len(slots), slots)
	}
	for i, w := range want {
		if !slots[i].StartsAt.Equal(w[0]) || !slots[i].EndsAt.Equal(w[1]) {
			t.Fatalf("slot %d: expected %v-%v, got %v-%v", i, w[0], w[1], slots[i].StartsAt, slots[i].EndsAt)
		}
	}
}

func TestComputeOpenSlots_PendingReservationExcluded(t *testing.T) {
	lab := physicsLab()
	existing := []model.Reservation{{
		LabID:    1,
		StartsAt: at(monday, 10, 0),
		EndsAt:   at(monday, 12, 0),
		Status:   model.StatusPending,
	}}
	slots, err := ComputeOpenSlots(lab, existing, monday, monday.AddDate(0, 0, 1), limits(30*time.Minute, 8*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range slots {
		if model.Overlaps(s.StartsAt, s.EndsAt, at(monday, 10, 0), at(monday, 12, 0)) {
			t.Fatalf("slot %v-%v overlaps the pending reservation", s.StartsAt, s.EndsAt)
		}
	}
	want := [][2]time.Time{
		{at(monday, 9, 0), at(monday, 10, 0)},
		{at(monday, 12, 0), at(monday, 17, 0)},
	}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d: %+v", len(want), len(slots), slots)
	}
	for i, w := range want {
		if !slots[i].StartsAt.Equal(w[0]) || !slots[i].EndsAt.Equal(w[1]) {
			t.Fatalf("slot %d: expected %v-%v, got %v-%v", i, w[0], w[1], slots[i].StartsAt, slots[i].EndsAt)
		}
	}
}

func TestComputeOpenSlots_TerminalStatusesIgnored(t *testing.T) {
	lab := physicsLab()
	existing := []model.Reservation{
		{LabID: 1, StartsAt: at(monday, 9, 0), EndsAt: at(monday, 17, 0), Status: model.StatusCancelled},
		{LabID: 1, StartsAt: at(monday, 9, 0), EndsAt: at(monday, 17, 0), Status: model.StatusRejected},
	}
	slots, err := ComputeOpenSlots(lab, existing, monday, monday.AddDate(0, 0, 1), limits(30*time.Minute, 8*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("cancelled/rejected reservations must not occupy time, got %+v", slots)
	}
}

func TestComputeOpenSlots_FullyBookedDay(t *testing.T) {
	lab := physicsLab()
	existing := []model.Reservation{{
		LabID:    1,
		StartsAt: at(monday, 9, 0),
		EndsAt:   at(monday, 17, 0),
		Status:   model.StatusApproved,
	}}
	slots, err := ComputeOpenSlots(lab, existing, monday, monday.AddDate(0, 0, 1), limits(30*time.Minute, 8*time.Hour))
	if err != nil {
		t.Fatalf("a fully booked day is not an error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %+v", slots)
	}
}

func TestComputeOpenSlots_ClosedDay(t *testing.T) {
	lab := physicsLab()
	sunday := monday.AddDate(0, 0, -1)
	slots, err := ComputeOpenSlots(lab, nil, sunday, monday, limits(30*time.Minute, 8*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots on a closed day, got %+v", slots)
	}
}

func TestComputeOpenSlots_ShortRemainderDropped(t *testing.T) {
	lab := physicsLab()
	// occupy everything except 16:45-17:00, below the 30 minute unit
	existing := []model.Reservation{{
		LabID:    1,
		StartsAt: at(monday, 9, 0),
		EndsAt:   at(monday, 16, 45),
		Status:   model.StatusApproved,
	}}
	slots, err := ComputeOpenSlots(lab, existing, monday, monday.AddDate(0, 0, 1), limits(30*time.Minute, 8*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("remainder below the minimum unit must be dropped, got %+v", slots)
	}
}

func TestComputeOpenSlots_InvalidRange(t *testing.T) {
	lab := physicsLab()
	if _, err := ComputeOpenSlots(lab, nil, monday, monday, limits(30*time.Minute, time.Hour)); err != ErrInvalidRange {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestSubtract(t *testing.T) {
	win := Interval{Start: at(monday, 9, 0), End: at(monday, 17, 0)}
	cases := []struct {
		name string
		busy []Interval
		want []Interval
	}{
		{
			name: "no busy",
			want: []Interval{win},
		},
		{
			name: "middle hole",
			busy: []Interval{{at(monday, 12, 0), at(monday, 13, 0)}},
			want: []Interval{
				{at(monday, 9, 0), at(monday, 12, 0)},
				{at(monday, 13, 0), at(monday, 17, 0)},
			},
		},
		{
			name: "overlapping busy merged by subtraction",
			busy: []Interval{
				{at(monday, 10, 0), at(monday, 12, 0)},
				{at(monday, 11, 0), at(monday, 13, 0)},
			},
			want: []Interval{
				{at(monday, 9, 0), at(monday, 10, 0)},
				{at(monday, 13, 0), at(monday, 17, 0)},
			},
		},
		{
			name: "busy extends past window edges",
			busy: []Interval{{at(monday, 8, 0), at(monday, 10, 0)}, {at(monday, 16, 0), at(monday, 18, 0)}},
			want: []Interval{{at(monday, 10, 0), at(monday, 16, 0)}},
		},
		{
			name: "window swallowed",
			busy: []Interval{{at(monday, 8, 0), at(monday, 18, 0)}},
			want: nil,
		},
		{
			name: "touching ranges do not overlap",
			busy: []Interval{{at(monday, 7, 0), at(monday, 9, 0)}, {at(monday, 17, 0), at(monday, 19, 0)}},
			want: []Interval{win},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Subtract(win, tc.busy)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d intervals, got %d: %+v", len(tc.want), len(got), got)
			}
			for i := range got {
				if !got[i].Start.Equal(tc.want[i].Start) || !got[i].End.Equal(tc.want[i].End) {
					t.Fatalf("interval %d: expected %v-%v, got %v-%v",
						i, tc.want[i].Start, tc.want[i].End, got[i].Start, got[i].End)
				}
			}
		})
	}
}

func TestFits(t *testing.T) {
	free := []Interval{
		{at(monday, 9, 0), at(monday, 12, 0)},
		{at(monday, 14, 0), at(monday, 17, 0)},
	}
	cases := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"exact interval", at(monday, 9, 0), at(monday, 12, 0), true},
		{"inside interval", at(monday, 10, 0), at(monday, 11, 0), true},
		{"straddles hole", at(monday, 11, 0), at(monday, 15, 0), false},
		{"inside hole", at(monday, 12, 30), at(monday, 13, 30), false},
		{"past closing", at(monday, 16, 0), at(monday, 18, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Fits(free, tc.start, tc.end); got != tc.want {
				t.Fatalf("Fits(%v, %v) = %v, want %v", tc.start, tc.end, got, tc.want)
			}
		})
	}
}
