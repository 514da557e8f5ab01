package handler // handler package contains lab catalog handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/labreserve/labreserve/internal/booking"
	"github.com/labreserve/labreserve/internal/model"
)

// LabHandler exposes the lab catalog and the availability endpoint.
type LabHandler struct {
	Svc *booking.Service
}

func NewLabHandler(svc *booking.Service) *LabHandler {
	if svc == nil {
		panic("nil service passed to NewLabHandler")
	}
	return &LabHandler{Svc: svc}
}

// ----- DTOs -----

// dayHoursReq carries an opening window as "HH:MM" wall-clock strings.
type dayHoursReq struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

type labReq struct {
	Name              string                 `json:"name"`
	Location          string                 `json:"location"`
	Capacity          uint32                 `json:"capacity"`
	Equipment         []string               `json:"equipment"`
	Hours             map[string]dayHoursReq `json:"operating_hours"`
	MaxReservationMin uint32                 `json:"max_reservation_min"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// parseClock converts "HH:MM" to minutes of day.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// parseWeekHours converts the request hours map into model.WeekHours.
func parseWeekHours(in map[string]dayHoursReq) (model.WeekHours, error) {
	out := make(model.WeekHours, len(in))
	for name, win := range in {
		day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		open, err := parseClock(win.Open)
		if err != nil {
			return nil, err
		}
		cls, err := parseClock(win.Close)
		if err != nil {
			return nil, err
		}
		out[day] = model.DayHours{OpenMin: open, CloseMin: cls}
	}
	return out, nil
}

// ----- Handlers -----

// CreateLab handles POST /v1/labs (admin only).
func (h *LabHandler) CreateLab(c echo.Context) error {
	var req labReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	hours, err := parseWeekHours(req.Hours)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	lab := &model.Lab{
		Name:              strings.TrimSpace(req.Name),
		Location:          strings.TrimSpace(req.Location),
		Capacity:          req.Capacity,
		Equipment:         req.Equipment,
		Hours:             hours,
		MaxReservationMin: req.MaxReservationMin,
	}
	if err := h.Svc.CreateLab(c.Request().Context(), lab); err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, lab)
}

// UpdateLab handles PATCH /v1/labs/:id (admin only). Absent fields are
// left untouched.
func (h *LabHandler) UpdateLab(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req struct {
		Name              *string                `json:"name"`
		Location          *string                `json:"location"`
		Capacity          *uint32                `json:"capacity"`
		Equipment         *[]string              `json:"equipment"`
		Hours             map[string]dayHoursReq `json:"operating_hours"`
		MaxReservationMin *uint32                `json:"max_reservation_min"`
		IsActive          *bool                  `json:"is_active"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	patch := booking.LabPatch{
		Name:              req.Name,
		Location:          req.Location,
		Capacity:          req.Capacity,
		Equipment:         req.Equipment,
		MaxReservationMin: req.MaxReservationMin,
		IsActive:          req.IsActive,
	}
	if req.Hours != nil {
		hours, err := parseWeekHours(req.Hours)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		patch.Hours = &hours
	}
	lab, err := h.Svc.UpdateLab(c.Request().Context(), id, patch)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, lab)
}

// DisableLab handles DELETE /v1/labs/:id (admin only). Labs are soft
// disabled; existing reservations are untouched.
func (h *LabHandler) DisableLab(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Svc.DisableLab(c.Request().Context(), id); err != nil {
		return bookingError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetLab handles GET /v1/labs/:id.
func (h *LabHandler) GetLab(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	lab, err := h.Svc.GetLab(c.Request().Context(), id)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, lab)
}

// ListLabs handles GET /v1/labs with optional filters: ?active=true,
// ?name=phys, ?min_capacity=10, ?equipment=oscilloscope.
func (h *LabHandler) ListLabs(c echo.Context) error {
	f := booking.LabFilter{
		Name:      strings.TrimSpace(c.QueryParam("name")),
		Equipment: strings.TrimSpace(c.QueryParam("equipment")),
	}
	if v := c.QueryParam("active"); v == "true" || v == "1" {
		f.ActiveOnly = true
	}
	if v := c.QueryParam("min_capacity"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid min_capacity"})
		}
		f.MinCap = uint32(n)
	}
	labs, err := h.Svc.ListLabs(c.Request().Context(), f)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"labs": labs, "count": len(labs)})
}

// Availability handles GET /v1/labs/:id/availability?from=...&to=...
// Bounds are RFC3339; from defaults to now and to defaults to seven
// days later.
func (h *LabHandler) Availability(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	now := time.Now().UTC()
	from := now
	to := now.Add(7 * 24 * time.Hour)
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from, want RFC3339"})
		}
		from = t.UTC()
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to, want RFC3339"})
		}
		to = t.UTC()
	}
	slots, err := h.Svc.OpenSlots(c.Request().Context(), id, from, to)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"lab_id": id, "slots": slots, "count": len(slots)})
}
