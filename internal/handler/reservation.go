package handler // handler package contains reservation lifecycle handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/labreserve/labreserve/internal/booking"
	"github.com/labreserve/labreserve/internal/model"
)

// ReservationHandler exposes the reservation lifecycle: submission,
// decision, cancellation, queries and history.
type ReservationHandler struct {
	Svc *booking.Service
}

func NewReservationHandler(svc *booking.Service) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{Svc: svc}
}

// ----- DTOs -----

type createReservationReq struct {
	LabID     uint64    `json:"lab_id"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Purpose   string    `json:"purpose"`
	GroupSize uint32    `json:"group_size"`
}

type decisionReq struct {
	Decision string `json:"decision"` // APPROVED | REJECTED
}

type cancelReq struct {
	Reason string `json:"reason"`
}

// ----- Handlers -----

// Create handles POST /v1/reservations. The requester is taken from the
// access token; admins manage labs but do not book them.
func (h *ReservationHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	r, err := h.Svc.CreateReservation(c.Request().Context(), booking.CreateRequest{
		LabID:         req.LabID,
		RequesterID:   uid,
		RequesterRole: getRole(c),
		StartsAt:      req.StartsAt,
		EndsAt:        req.EndsAt,
		Purpose:       strings.TrimSpace(req.Purpose),
		GroupSize:     req.GroupSize,
	})
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// Decide handles PATCH /v1/reservations/:id/decision. Admins decide any
// pending reservation; lecturers may decide student requests when peer
// approval is enabled, never their own.
func (h *ReservationHandler) Decide(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req decisionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	decision := strings.ToUpper(strings.TrimSpace(req.Decision))
	r, err := h.Svc.Decide(c.Request().Context(), id, decision, uid, getRole(c))
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Cancel handles PATCH /v1/reservations/:id/cancel. Requesters may
// cancel inside the policy window; admins bypass the window but nobody
// cancels a reservation that has already started.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req cancelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	r, err := h.Svc.Cancel(c.Request().Context(), id, uid, getRole(c), strings.TrimSpace(req.Reason))
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	r, err := h.Svc.GetReservation(c.Request().Context(), id)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Query handles GET /v1/reservations with filters, sorting and paging.
// Non-admin callers only see their own reservations.
func (h *ReservationHandler) Query(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	q := booking.Query{
		Status: strings.ToUpper(strings.TrimSpace(c.QueryParam("status"))),
		Text:   strings.TrimSpace(c.QueryParam("q")),
		SortBy: strings.TrimSpace(c.QueryParam("sort")),
	}
	if v := c.QueryParam("lab_id"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lab_id"})
		}
		q.LabID = n
	}
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from, want RFC3339"})
		}
		q.From = t.UTC()
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to, want RFC3339"})
		}
		q.To = t.UTC()
	}
	if v := c.QueryParam("order"); strings.EqualFold(v, "desc") {
		q.SortDesc = true
	}
	if v := c.QueryParam("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.Page = n
		}
	}
	if v := c.QueryParam("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.PageSize = n
		}
	}

	// Scope the query: students and lecturers see their own bookings,
	// admins see everything and may filter by requester_id.
	if getRole(c) == model.RoleAdmin {
		if v := c.QueryParam("requester_id"); v != "" {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid requester_id"})
			}
			q.RequesterID = n
		}
	} else {
		q.RequesterID = uid
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}
	items, total, err := h.Svc.QueryReservations(c.Request().Context(), q)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservations": items,
		"total":        total,
		"page":         q.Page,
		"page_size":    q.PageSize,
	})
}

// History handles GET /v1/reservations/:id/history and returns the
// audit trail in chronological order.
func (h *ReservationHandler) History(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	recs, err := h.Svc.History(c.Request().Context(), id)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation_id": id, "history": recs})
}
