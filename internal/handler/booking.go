package handler

import (
	"net/http" // HTTP status codes
	"strconv"  // parsing path parameters
	"time"     // formatting durations in responses

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/workspace-reservation/internal/booking"  // booking engine
	"github.com/iliyamo/workspace-reservation/internal/model"    // domain types
	"github.com/iliyamo/workspace-reservation/internal/timeutil" // time parsing and display conversion
)

// BookingHandler exposes the reservation lifecycle over HTTP.  All
// methods assume that JWT authentication has already been performed by
// middleware and extract the calling user from the context; the engine
// enforces ownership, availability and state-machine guards.
type BookingHandler struct {
	Svc *booking.Service // the availability engine and state machine
}

// NewBookingHandler constructs a BookingHandler.  The service must be non-nil.
func NewBookingHandler(svc *booking.Service) *BookingHandler {
	if svc == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Svc: svc}
}

// bookingResponse is the JSON shape of a booking.  Times are converted
// to the office display zone here, at the presentation boundary; the
// engine and the database never see anything but UTC.
type bookingResponse struct {
	ID                 uint64  `json:"id"`
	ResourceID         uint64  `json:"resource_id"`
	ResourceType       string  `json:"resource_type"`
	UserID             uint64  `json:"user_id"`
	MeetingName        string  `json:"meeting_name"`
	ParticipantCount   *uint32 `json:"participant_count,omitempty"`
	StartTime          string  `json:"start_time"`
	EndTime            string  `json:"end_time"`
	SessionStatus      string  `json:"session_status"`
	CancellationReason *string `json:"cancellation_reason,omitempty"`
	CancelledAt        *string `json:"cancelled_at,omitempty"`
}

func toBookingResponse(b *model.Booking) bookingResponse {
	resp := bookingResponse{
		ID:                 b.ID,
		ResourceID:         b.ResourceID,
		ResourceType:       string(b.ResourceType),
		UserID:             b.UserID,
		MeetingName:        b.MeetingName,
		ParticipantCount:   b.ParticipantCount,
		StartTime:          timeutil.FormatDisplay(b.StartTime),
		EndTime:            timeutil.FormatDisplay(b.EndTime),
		SessionStatus:      string(b.SessionStatus),
		CancellationReason: b.CancellationReason,
	}
	if b.CancelledAt != nil {
		s := timeutil.FormatDisplay(*b.CancelledAt)
		resp.CancelledAt = &s
	}
	return resp
}

// checkInResponse is the JSON shape of a check-in record.
type checkInResponse struct {
	BookingID          uint64  `json:"booking_id"`
	CheckInTime        *string `json:"check_in_time,omitempty"`
	CheckOutTime       *string `json:"check_out_time,omitempty"`
	IsCheckedIn        bool    `json:"is_checked_in"`
	IsCheckedOut       bool    `json:"is_checked_out"`
	ActualDurationSecs int64   `json:"actual_duration_secs"`
}

func toCheckInResponse(rec *model.CheckInRecord) checkInResponse {
	resp := checkInResponse{
		BookingID:          rec.BookingID,
		IsCheckedIn:        rec.IsCheckedIn,
		IsCheckedOut:       rec.IsCheckedOut,
		ActualDurationSecs: int64(rec.ActualDuration / time.Second),
	}
	if rec.CheckInTime != nil {
		s := timeutil.FormatDisplay(*rec.CheckInTime)
		resp.CheckInTime = &s
	}
	if rec.CheckOutTime != nil {
		s := timeutil.FormatDisplay(*rec.CheckOutTime)
		resp.CheckOutTime = &s
	}
	return resp
}

// Create handles POST /v1/bookings.  The body carries the resource, the
// window and the meeting description; timestamps may be RFC3339 or bare
// wall-clock strings interpreted in the office zone.  Success returns
// 201 with the stored booking; conflicts return 409 so clients can ask
// for alternative slots.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		ResourceID       uint64  `json:"resource_id"`
		StartTime        string  `json:"start_time"`
		EndTime          string  `json:"end_time"`
		MeetingName      string  `json:"meeting_name"`
		ParticipantCount *uint32 `json:"participant_count"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ResourceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "resource_id is required"})
	}
	start, err := timeutil.ParseInput(body.StartTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_time: " + err.Error()})
	}
	end, err := timeutil.ParseInput(body.EndTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end_time: " + err.Error()})
	}

	b, err := h.Svc.Create(c.Request().Context(), booking.CreateRequest{
		ResourceID:       body.ResourceID,
		UserID:           userID,
		MeetingName:      body.MeetingName,
		ParticipantCount: body.ParticipantCount,
		StartTime:        start,
		EndTime:          end,
	})
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusCreated, toBookingResponse(b))
}

// Cancel handles POST /v1/bookings/:id/cancel.  The body must carry a
// non-empty reason; only the owner may cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.Svc.Cancel(c.Request().Context(), bookingID, userID, body.Reason); err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "cancelled"})
}

// CheckIn handles POST /v1/bookings/:id/check-in.
func (h *BookingHandler) CheckIn(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	rec, err := h.Svc.CheckIn(c.Request().Context(), bookingID, userID)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, toCheckInResponse(rec))
}

// CheckOut handles POST /v1/bookings/:id/check-out.
func (h *BookingHandler) CheckOut(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	rec, err := h.Svc.CheckOut(c.Request().Context(), bookingID, userID)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, toCheckInResponse(rec))
}

// Get handles GET /v1/bookings/:id for the owning user.
func (h *BookingHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Svc.Get(c.Request().Context(), bookingID, userID)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// ListMine handles GET /v1/bookings, returning the caller's bookings.
// An optional ?date=2006-01-02 query restricts the result to bookings
// touching that calendar day in the office zone.
func (h *BookingHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var date *time.Time
	if ds := c.QueryParam("date"); ds != "" {
		d, err := timeutil.ParseDate(ds)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		date = &d
	}
	bookings, err := h.Svc.ListByUser(c.Request().Context(), userID, date)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// AlternativeSlots handles GET /v1/resources/:id/slots.  Query
// parameters: date (2006-01-02), start_time and end_time describing the
// rejected request whose duration should be preserved.  The response
// lists free same-duration windows inside the working day, ascending.
func (h *BookingHandler) AlternativeSlots(c echo.Context) error {
	resourceID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid resource id"})
	}
	date, err := timeutil.ParseDate(c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date: " + err.Error()})
	}
	start, err := timeutil.ParseInput(c.QueryParam("start_time"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_time: " + err.Error()})
	}
	end, err := timeutil.ParseInput(c.QueryParam("end_time"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end_time: " + err.Error()})
	}

	slots, err := h.Svc.FindAlternativeSlots(c.Request().Context(), resourceID, date, start, end)
	if err != nil {
		return writeBookingError(c, err)
	}
	type slotResponse struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	out := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotResponse{
			Start: timeutil.FormatDisplay(s.Start),
			End:   timeutil.FormatDisplay(s.End),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"slots": out})
}

// parseIDParam parses the :id path parameter as a positive uint64.
func parseIDParam(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.ErrBadRequest
	}
	return id, nil
}
