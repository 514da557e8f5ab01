package handler // handler defines http handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/labreserve/labreserve/internal/availability"
	"github.com/labreserve/labreserve/internal/booking"
)

// getUserID extracts the user_id from echo.Context and converts it to
// uint64. JWTAuth stores it as uint64 but older tokens may surface other
// numeric types.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// getRole extracts the role claim placed in context by JWTAuth.
func getRole(c echo.Context) string {
	if s, ok := c.Get("role").(string); ok {
		return s
	}
	return ""
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// bookingError translates reservation-core errors into HTTP responses.
// Unknown errors become a 500 with a generic message so internal detail
// never leaks to clients.
func bookingError(c echo.Context, err error) error {
	var verr *booking.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Msg, "field": verr.Field})
	}
	var conflict *booking.SlotConflictError
	if errors.As(err, &conflict) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":          "time slot already taken",
			"lab_id":         conflict.LabID,
			"reservation_id": conflict.ReservationID,
			"starts_at":      conflict.StartsAt,
			"ends_at":        conflict.EndsAt,
		})
	}
	switch {
	case errors.Is(err, availability.ErrInvalidRange):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid time range"})
	case errors.Is(err, booking.ErrLabNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "lab not found"})
	case errors.Is(err, booking.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	case errors.Is(err, booking.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, booking.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation is not in a state that allows this action"})
	case errors.Is(err, booking.ErrCancellationWindowClosed):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "cancellation window has closed"})
	}
	c.Logger().Errorf("internal error: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
