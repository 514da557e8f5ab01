package model

import (
	"fmt"
	"time"
)

// DayHours describes the opening window of a lab on a single weekday.
// Times are minutes-of-day in the service timezone (UTC); a lab that is
// closed on a weekday simply has no DayHours entry for it.
//
// Fields:
//  OpenMin   minute of day the lab opens (0..1439).
//  CloseMin  minute of day the lab closes; must be greater than OpenMin.
type DayHours struct {
	OpenMin  int `json:"open_min"`  // labs.operating_hours JSON
	CloseMin int `json:"close_min"` // labs.operating_hours JSON
}

// WeekHours maps a weekday to its opening window. Weekdays follow
// time.Weekday numbering (Sunday = 0). The map is stored as a JSON
// column on the labs table.
type WeekHours map[time.Weekday]DayHours

// Validate checks every configured window for a positive duration and
// in-range minute values.
func (w WeekHours) Validate() error {
	for day, h := range w {
		if h.OpenMin < 0 || h.CloseMin > 24*60 {
			return fmt.Errorf("operating hours out of range on %s", day)
		}
		if h.CloseMin <= h.OpenMin {
			return fmt.Errorf("close must be after open on %s", day)
		}
	}
	return nil
}

// WindowOn returns the opening window of the given date as concrete
// timestamps, or ok=false when the lab is closed that day. The date's
// own location is preserved.
func (w WeekHours) WindowOn(date time.Time) (start, end time.Time, ok bool) {
	h, found := w[date.Weekday()]
	if !found {
		return time.Time{}, time.Time{}, false
	}
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return midnight.Add(time.Duration(h.OpenMin) * time.Minute),
		midnight.Add(time.Duration(h.CloseMin) * time.Minute),
		true
}

// Lab represents a bookable laboratory room. Labs are never deleted
// once reservations reference them; admins soft-disable them instead,
// which removes the lab from availability without touching history.
//
// Fields:
//  ID               primary key identifier.
//  Name             human readable lab name, unique.
//  Location         building/room description.
//  Capacity         maximum group size; always positive.
//  Equipment        set of installed equipment names.
//  Hours            per-weekday opening windows.
//  MaxReservationMin longest reservation allowed, in minutes;
//                   0 means the service-wide default applies.
//  IsActive         whether the lab accepts new reservations.
//  CreatedAt        creation timestamp (UTC).
//  UpdatedAt        last update timestamp (UTC).
type Lab struct {
	ID                uint64    `json:"id"`                  // labs.id
	Name              string    `json:"name"`                // labs.name
	Location          string    `json:"location"`            // labs.location
	Capacity          uint32    `json:"capacity"`            // labs.capacity
	Equipment         []string  `json:"equipment"`           // labs.equipment JSON
	Hours             WeekHours `json:"operating_hours"`     // labs.operating_hours JSON
	MaxReservationMin uint32    `json:"max_reservation_min"` // labs.max_reservation_min
	IsActive          bool      `json:"is_active"`           // labs.is_active
	CreatedAt         time.Time `json:"created_at"`          // labs.created_at
	UpdatedAt         time.Time `json:"updated_at"`          // labs.updated_at
}

// MaxDuration returns the lab's maximum reservation duration, falling
// back to def when the lab has no override configured.
func (l *Lab) MaxDuration(def time.Duration) time.Duration {
	if l.MaxReservationMin == 0 {
		return def
	}
	return time.Duration(l.MaxReservationMin) * time.Minute
}
