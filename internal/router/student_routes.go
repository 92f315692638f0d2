package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/exam-registration/internal/handler"
	"github.com/iliyamo/exam-registration/internal/middleware"
	"github.com/iliyamo/exam-registration/internal/model"
)

// RegisterStudent registers the student booking flow. All routes require a
// valid JWT and the STUDENT role. Writes that change seat usage draw from
// the booking rate limit and invalidate the cached listing.
func RegisterStudent(v1 *echo.Group, h *handler.StudentHandler, jwtSecret string, cache *middleware.ListingCache, writes echo.MiddlewareFunc) {
	student := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStudent),
	}
	booking := with(student, writes, cache.InvalidateOnSuccess())

	v1.GET("/sessions", h.Sessions, with(student, cache.Middleware())...)
	v1.POST("/bookings/review", h.Review, student...)
	v1.POST("/bookings", h.Confirm, booking...)

	v1.GET("/appointments", h.Appointments, student...)
	v1.POST("/appointments/:id/cancel", h.Cancel, booking...)
	v1.POST("/appointments/:id/reschedule", h.Reschedule, with(student, writes)...)
}
