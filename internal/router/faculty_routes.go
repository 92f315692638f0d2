package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/exam-registration/internal/handler"
	"github.com/iliyamo/exam-registration/internal/middleware"
	"github.com/iliyamo/exam-registration/internal/model"
)

// RegisterFaculty registers the faculty views under /v1/faculty. Faculty
// may search, print and cancel any registration.
func RegisterFaculty(v1 *echo.Group, h *handler.FacultyHandler, jwtSecret string, cache *middleware.ListingCache, writes echo.MiddlewareFunc) {
	faculty := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleFaculty),
	}
	v1.GET("/faculty/registrations", h.Search, faculty...)
	v1.GET("/faculty/print-log", h.PrintLog, faculty...)
	v1.POST("/faculty/registrations/:id/cancel", h.Cancel, with(faculty, writes, cache.InvalidateOnSuccess())...)
}
