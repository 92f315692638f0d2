package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/exam-registration/internal/booking"
	"github.com/iliyamo/exam-registration/internal/middleware"
)

// errorBody is the shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func fail(c echo.Context, status int, kind, msg string) error {
	return c.JSON(status, errorBody{Error: kind, Message: msg})
}

// bindValid binds the request into dst and runs the registered validator.
func bindValid(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return &invalidInput{msg: "malformed request"}
	}
	return c.Validate(dst)
}

// caller builds the booking caller from the identity JWTAuth stored.
func caller(c echo.Context) (booking.Caller, bool) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return booking.Caller{}, false
	}
	return booking.Caller{UserID: id.UserID, Role: id.Role, Name: id.Name, Email: id.Email}, true
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// respondErr maps an error from the booking layer to its HTTP response.
func respondErr(c echo.Context, err error) error {
	var in *invalidInput
	if errors.As(err, &in) {
		return fail(c, http.StatusBadRequest, "validation", in.msg)
	}
	status, kind := http.StatusInternalServerError, "internal"
	switch booking.KindOf(err) {
	case booking.ErrValidation:
		status, kind = http.StatusBadRequest, "validation"
	case booking.ErrNotFound:
		status, kind = http.StatusNotFound, "not_found"
	case booking.ErrCapacity:
		status, kind = http.StatusConflict, "capacity"
	case booking.ErrDuplicate:
		status, kind = http.StatusConflict, "duplicate"
	case booking.ErrTransient:
		status, kind = http.StatusServiceUnavailable, "transient"
	default:
		slog.Default().Error("unclassified handler error", "path", c.Path(), "err", err)
		return fail(c, status, kind, "internal error")
	}
	return fail(c, status, kind, err.Error())
}

func unauthorized(c echo.Context) error {
	return fail(c, http.StatusUnauthorized, "unauthorized", "authentication required")
}
