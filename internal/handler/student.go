package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/exam-registration/internal/booking"
	"github.com/iliyamo/exam-registration/internal/repository"
)

// StudentHandler serves the booking flow of a signed-in student: browse
// sessions, review a choice, confirm it, and manage own appointments.
type StudentHandler struct {
	Bookings *booking.Manager
}

func NewStudentHandler(m *booking.Manager) *StudentHandler {
	if m == nil {
		panic("nil booking manager passed to NewStudentHandler")
	}
	return &StudentHandler{Bookings: m}
}

type selectionReq struct {
	ExamID                  uint64 `json:"exam_id" validate:"required"`
	LocationID              uint64 `json:"location_id" validate:"required"`
	TimeslotID              int    `json:"timeslot_id" validate:"required"`
	ReplacingRegistrationID uint64 `json:"replacing_registration_id"`
}

type appointmentsQuery struct {
	Query     string `query:"q" validate:"max=100"`
	StartDate string `query:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `query:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// Sessions handles GET /v1/sessions.
func (h *StudentHandler) Sessions(c echo.Context) error {
	list, err := h.Bookings.ListSessions(c.Request().Context())
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Review handles POST /v1/bookings/review. Nothing is written.
func (h *StudentHandler) Review(c echo.Context) error {
	who, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req selectionReq
	if err := bindValid(c, &req); err != nil {
		return respondErr(c, err)
	}
	rv, err := h.Bookings.Review(c.Request().Context(), who, booking.ReviewInput{
		ExamID:                  req.ExamID,
		LocationID:              req.LocationID,
		TimeslotID:              req.TimeslotID,
		ReplacingRegistrationID: req.ReplacingRegistrationID,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, rv)
}

// Confirm handles POST /v1/bookings. A replacing_registration_id turns
// the booking into a reschedule.
func (h *StudentHandler) Confirm(c echo.Context) error {
	who, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req selectionReq
	if err := bindValid(c, &req); err != nil {
		return respondErr(c, err)
	}
	conf, err := h.Bookings.Confirm(c.Request().Context(), who, booking.ConfirmInput{
		ExamID:                  req.ExamID,
		TimeslotID:              req.TimeslotID,
		LocationID:              req.LocationID,
		ReplacingRegistrationID: req.ReplacingRegistrationID,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, conf)
}

// Appointments handles GET /v1/appointments.
func (h *StudentHandler) Appointments(c echo.Context) error {
	who, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var q appointmentsQuery
	if err := bindValid(c, &q); err != nil {
		return respondErr(c, err)
	}
	rows, err := h.Bookings.MyAppointments(c.Request().Context(), who, repository.AppointmentFilter{
		Query:     strings.TrimSpace(q.Query),
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"registrations": rows, "count": len(rows)})
}

// Cancel handles POST /v1/appointments/:id/cancel.
func (h *StudentHandler) Cancel(c echo.Context) error {
	return cancelRegistration(c, h.Bookings)
}

// Reschedule handles POST /v1/appointments/:id/reschedule. It returns the
// id to pass as replacing_registration_id to review and confirm.
func (h *StudentHandler) Reschedule(c echo.Context) error {
	who, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return fail(c, http.StatusBadRequest, "validation", "invalid registration id")
	}
	ticket, err := h.Bookings.StartReschedule(c.Request().Context(), who, id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, ticket)
}

func cancelRegistration(c echo.Context, m *booking.Manager) error {
	who, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return fail(c, http.StatusBadRequest, "validation", "invalid registration id")
	}
	res, err := m.Cancel(c.Request().Context(), who, id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
