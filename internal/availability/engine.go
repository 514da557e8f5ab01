// Package availability computes the open time slots of a lab over a
// date range. The computation is a pure function of the lab's operating
// hours and the set of reservations that currently occupy time (status
// PENDING or APPROVED): it enumerates the opening window of each day,
// subtracts occupied ranges, and chunks what remains into bookable
// slots. Callers that need transactional certainty re-run the engine
// under the lab's write lock before committing a reservation.
package availability

import (
	"errors"
	"sort"
	"time"

	"github.com/labreserve/labreserve/internal/model"
)

// ErrInvalidRange is returned when the requested date range is empty
// or inverted.
var ErrInvalidRange = errors.New("invalid date range")

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Limits bounds the slots the engine may offer. MinUnit is the shortest
// bookable duration; MaxDuration caps a single slot, splitting longer
// free stretches into consecutive chunks.
type Limits struct {
	MinUnit     time.Duration
	MaxDuration time.Duration
}

// Subtract removes every interval in busy from win and returns the
// remaining sub-intervals in ascending order. Busy intervals may
// overlap each other and may extend past the window edges.
func Subtract(win Interval, busy []Interval) []Interval {
	free := []Interval{win}
	for _, b := range busy {
		if !b.End.After(b.Start) {
			continue
		}
		next := free[:0:0]
		for _, f := range free {
			if !b.Start.Before(f.End) || !f.Start.Before(b.End) {
				// no overlap with this free piece
				next = append(next, f)
				continue
			}
			if f.Start.Before(b.Start) {
				next = append(next, Interval{Start: f.Start, End: b.Start})
			}
			if b.End.Before(f.End) {
				next = append(next, Interval{Start: b.End, End: f.End})
			}
		}
		free = next
	}
	return free
}

// chunk splits a free interval into slots no longer than lim.MaxDuration
// and no shorter than lim.MinUnit. The tail piece is emitted only when
// it still meets the minimum unit.
func chunk(labID uint64, f Interval, lim Limits) []model.TimeSlot {
	var out []model.TimeSlot
	cur := f.Start
	for f.End.Sub(cur) >= lim.MinUnit {
		end := cur.Add(lim.MaxDuration)
		if end.After(f.End) {
			end = f.End
		}
		out = append(out, model.TimeSlot{LabID: labID, StartsAt: cur, EndsAt: end})
		cur = end
	}
	return out
}

// FreeIntervals returns the un-occupied portions of the lab's operating
// windows between from and to, in ascending order. A day with no
// operating hours contributes nothing; a fully booked day yields no
// intervals for that day rather than an error. Only Active (Pending or
// Approved) reservations should be passed in.
func FreeIntervals(lab *model.Lab, reservations []model.Reservation, from, to time.Time) ([]Interval, error) {
	if !to.After(from) {
		return nil, ErrInvalidRange
	}
	busy := make([]Interval, 0, len(reservations))
	for _, r := range reservations {
		if r.Active() {
			busy = append(busy, Interval{Start: r.StartsAt, End: r.EndsAt})
		}
	}

	var free []Interval
	for day := dayStart(from); day.Before(to); day = day.AddDate(0, 0, 1) {
		winStart, winEnd, ok := lab.Hours.WindowOn(day)
		if !ok {
			continue
		}
		// clamp the window to the requested range
		if winStart.Before(from) {
			winStart = from
		}
		if winEnd.After(to) {
			winEnd = to
		}
		if !winEnd.After(winStart) {
			continue
		}
		free = append(free, Subtract(Interval{Start: winStart, End: winEnd}, busy)...)
	}
	return free, nil
}

// ComputeOpenSlots returns the bookable slots of a lab between from and
// to, ordered ascending by start time. The result is finite, bounded by
// the range, and deterministic for a given reservation set.
func ComputeOpenSlots(lab *model.Lab, reservations []model.Reservation, from, to time.Time, lim Limits) ([]model.TimeSlot, error) {
	free, err := FreeIntervals(lab, reservations, from, to)
	if err != nil {
		return nil, err
	}
	slots := make([]model.TimeSlot, 0, len(free))
	for _, f := range free {
		slots = append(slots, chunk(lab.ID, f, lim)...)
	}
	sort.SliceStable(slots, func(i, j int) bool {
		if !slots[i].StartsAt.Equal(slots[j].StartsAt) {
			return slots[i].StartsAt.Before(slots[j].StartsAt)
		}
		return slots[i].LabID < slots[j].LabID
	})
	return slots, nil
}

// Fits reports whether [start, end) lies entirely within one of the
// free intervals. It is the commit-time re-check used by the booking
// service: any slot previously offered by ComputeOpenSlots fits, but a
// stale slot that has since been taken does not.
func Fits(free []Interval, start, end time.Time) bool {
	for _, f := range free {
		if !start.Before(f.Start) && !end.After(f.End) {
			return true
		}
	}
	return false
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
