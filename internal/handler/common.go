package handler // handler defines http handlers

import (
	"errors"  // errors provides sentinel comparisons for getUserID and error mapping
	"net/http" // HTTP status codes
	"strconv" // strconv converts strings to numeric types

	"github.com/labstack/echo/v4" // echo defines request context types

	"github.com/iliyamo/workspace-reservation/internal/booking" // booking holds the engine's error taxonomy
)

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) { // begin getUserID helper
	v := c.Get("user_id") // fetch user_id from context
	switch t := v.(type) { // perform type switch on the value
	case uint64: // when already uint64
		return t, nil // return directly
	case int: // when stored as int
		return uint64(t), nil // convert to uint64
	case int64: // when stored as int64
		return uint64(t), nil // convert to uint64
	case float64: // when stored as float64
		return uint64(t), nil // convert to uint64
	case string: // when stored as string
		if n, err := strconv.ParseUint(t, 10, 64); err == nil { // parse string to uint64
			return n, nil // return parsed number
		}
	} // end type switch
	return 0, errors.New("invalid user_id in context") // return error if value is missing or invalid
}

// writeBookingError translates the booking engine's error taxonomy into
// HTTP responses: validation failures map to 400, conflicts and
// state-guard violations to 409, ownership to 403, lookups to 404.
// Anything unrecognized is an internal error.
func writeBookingError(c echo.Context, err error) error {
	var transition *booking.InvalidTransitionError
	switch {
	case errors.Is(err, booking.ErrInvalidTimeRange),
		errors.Is(err, booking.ErrStartInPast),
		errors.Is(err, booking.ErrEmptyReason),
		errors.Is(err, booking.ErrEmptyMeetingName):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrTimeConflict):
		return c.JSON(http.StatusConflict, echo.Map{
			"error": err.Error(),
			"hint":  "use GET /v1/resources/:id/slots to find an alternative window",
		})
	case errors.Is(err, booking.ErrResourceUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, booking.ErrNotOwner):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.As(err, &transition):
		return c.JSON(http.StatusConflict, echo.Map{"error": transition.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
