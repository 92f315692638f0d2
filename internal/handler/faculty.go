package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/exam-registration/internal/booking"
	"github.com/iliyamo/exam-registration/internal/repository"
)

// FacultyHandler serves the faculty views over all registrations.
type FacultyHandler struct {
	Bookings *booking.Manager
}

func NewFacultyHandler(m *booking.Manager) *FacultyHandler {
	if m == nil {
		panic("nil booking manager passed to NewFacultyHandler")
	}
	return &FacultyHandler{Bookings: m}
}

type searchQuery struct {
	Query string `query:"q" validate:"max=100"`
}

type printLogQuery struct {
	StartDate string `query:"start_date" json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `query:"end_date" json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Exam      string `query:"exam" json:"exam,omitempty" validate:"max=100"`
	Status    string `query:"status" json:"status,omitempty" validate:"omitempty,oneof=Active Canceled"`
}

// Search handles GET /v1/faculty/registrations?q=.
func (h *FacultyHandler) Search(c echo.Context) error {
	var q searchQuery
	if err := bindValid(c, &q); err != nil {
		return respondErr(c, err)
	}
	rows, err := h.Bookings.FacultySearch(c.Request().Context(), strings.TrimSpace(q.Query))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"registrations": rows, "count": len(rows)})
}

// PrintLog handles GET /v1/faculty/print-log.
func (h *FacultyHandler) PrintLog(c echo.Context) error {
	var q printLogQuery
	if err := bindValid(c, &q); err != nil {
		return respondErr(c, err)
	}
	f := repository.LogFilter{
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Exam:      strings.TrimSpace(q.Exam),
		Status:    q.Status,
	}
	rows, err := h.Bookings.PrintLog(c.Request().Context(), f)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"filter": q, "registrations": rows, "count": len(rows)})
}

// Cancel handles POST /v1/faculty/registrations/:id/cancel.
func (h *FacultyHandler) Cancel(c echo.Context) error {
	return cancelRegistration(c, h.Bookings)
}
