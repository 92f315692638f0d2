package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/exam-registration/internal/booking"
	"github.com/iliyamo/exam-registration/internal/config"
	"github.com/iliyamo/exam-registration/internal/database"
	"github.com/iliyamo/exam-registration/internal/handler"
	"github.com/iliyamo/exam-registration/internal/repository"
	"github.com/iliyamo/exam-registration/internal/testutil"
)

type api struct {
	t  *testing.T
	e  *echo.Echo
	fx testutil.Fixture
}

func newAPI(t *testing.T) *api {
	t.Helper()
	db := testutil.NewDB(t)
	fx := testutil.Seed(t, db)

	cfg := config.Config{JWTSecret: "router-secret", AccessTTLMin: 15, RefreshTTLDays: 1, BcryptCost: 4}
	regs := repository.NewRegistrationRepo(db, database.DriverSQLite)
	m := booking.NewManager(repository.NewSessionRepo(db), regs, nil, booking.DefaultPolicy())

	e := echo.New()
	e.Validator = handler.NewValidator()
	Register(e, Deps{
		DB:        db,
		JWTSecret: cfg.JWTSecret,
		Auth:      handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewRefreshTokenStore(db)),
		Student:   handler.NewStudentHandler(m),
		Faculty:   handler.NewFacultyHandler(m),
	})
	return &api{t: t, e: e, fx: fx}
}

func (a *api) do(method, path, token, body string) (int, map[string]any) {
	a.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	out := map[string]any{}
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func (a *api) login(email string) (access, refresh string) {
	a.t.Helper()
	code, body := a.do(http.MethodPost, "/v1/auth/login", "", `{"email":"`+email+`","password":"`+testutil.Password+`"}`)
	require.Equal(a.t, http.StatusOK, code, body)
	return body["access"].(map[string]any)["token"].(string), body["refresh"].(map[string]any)["token"].(string)
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAuthFlow(t *testing.T) {
	a := newAPI(t)

	code, body := a.do(http.MethodPost, "/v1/auth/login", "", `{"email":"ana@campus.edu","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthorized", body["error"])

	code, body = a.do(http.MethodPost, "/v1/auth/login", "", `{"email":"not-an-email","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", body["error"])
	assert.Contains(t, body["message"], "email")

	access, refresh := a.login("ana@campus.edu")
	code, body = a.do(http.MethodGet, "/v1/me", access, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Ana Lopez", body["name"])
	assert.Equal(t, "STUDENT", body["role"])

	code, body = a.do(http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+refresh+`"}`)
	require.Equal(t, http.StatusOK, code)
	rotated := body["refresh"].(map[string]any)["token"].(string)

	code, _ = a.do(http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+refresh+`"}`)
	assert.Equal(t, http.StatusUnauthorized, code, "rotated token is revoked")

	code, _ = a.do(http.MethodPost, "/v1/auth/logout", "", `{"refresh_token":"`+rotated+`"}`)
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = a.do(http.MethodPost, "/v1/auth/logout", "", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.do(http.MethodPost, "/v1/auth/logout", access, "")
	assert.Equal(t, http.StatusNoContent, code)
}

func TestRoleGates(t *testing.T) {
	a := newAPI(t)
	ana, _ := a.login("ana@campus.edu")
	zed, _ := a.login("zed@campus.edu")

	code, _ := a.do(http.MethodGet, "/v1/sessions", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = a.do(http.MethodGet, "/v1/sessions", zed, "")
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = a.do(http.MethodGet, "/v1/faculty/registrations", ana, "")
	assert.Equal(t, http.StatusForbidden, code)
}

func TestBookingFlow(t *testing.T) {
	a := newAPI(t)
	ana, _ := a.login("ana@campus.edu")
	ben, _ := a.login("ben@campus.edu")
	zed, _ := a.login("zed@campus.edu")

	code, body := a.do(http.MethodGet, "/v1/sessions", ana, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["sessions"], 5)
	assert.Equal(t, []any{"2030-05-10", "2030-05-12", "2030-05-13"}, body["dates"])
	assert.Len(t, body["timeslots"], 9)

	code, body = a.do(http.MethodPost, "/v1/bookings/review", ana, `{"exam_id":1,"location_id":2,"timeslot_id":3}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, testutil.CapMidtermSouth, body["remaining_seats"])
	assert.Equal(t, "10:00", body["start_time"])

	code, body = a.do(http.MethodPost, "/v1/bookings/review", ana, `{"exam_id":1,"location_id":2}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["message"], "timeslot_id is required")

	code, body = a.do(http.MethodPost, "/v1/bookings", ana, `{"exam_id":1,"location_id":2,"timeslot_id":3}`)
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "CSN001", body["confirmation_code"])
	assert.Equal(t, "Active", body["status"])
	first := body["registration_id"].(float64)

	code, body = a.do(http.MethodPost, "/v1/bookings", ben, `{"exam_id":1,"location_id":2,"timeslot_id":3}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "capacity", body["error"])

	code, body = a.do(http.MethodPost, "/v1/bookings", ana, `{"exam_id":1,"location_id":1,"timeslot_id":3}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "duplicate", body["error"])

	code, body = a.do(http.MethodPost, "/v1/bookings", ana, `{"exam_id":1,"location_id":1,"timeslot_id":12}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", body["error"])

	code, body = a.do(http.MethodPost, "/v1/appointments/1/reschedule", ana, "")
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, first, body["replacing_registration_id"])

	code, body = a.do(http.MethodPost, "/v1/bookings", ana, `{"exam_id":1,"location_id":1,"timeslot_id":4,"replacing_registration_id":1}`)
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "CSN002", body["confirmation_code"])
	assert.Equal(t, first, body["replaced_registration_id"])

	code, body = a.do(http.MethodGet, "/v1/appointments", ana, "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["count"])

	code, _ = a.do(http.MethodGet, "/v1/appointments?start_date=2030-13-01", ana, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = a.do(http.MethodPost, "/v1/appointments/2/cancel", ben, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["error"])

	code, body = a.do(http.MethodGet, "/v1/faculty/registrations?q=ana", zed, "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["count"])

	code, body = a.do(http.MethodGet, "/v1/faculty/print-log?status=Active", zed, "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])

	code, _ = a.do(http.MethodGet, "/v1/faculty/print-log?status=Bogus", zed, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = a.do(http.MethodGet, "/v1/faculty/print-log?start_date=2030-06-01&end_date=2030-05-01", zed, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["message"], "start date")

	code, body = a.do(http.MethodPost, "/v1/faculty/registrations/2/cancel", zed, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["already_canceled"])

	code, body = a.do(http.MethodPost, "/v1/appointments/2/cancel", ana, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["already_canceled"])

	code, _ = a.do(http.MethodPost, "/v1/faculty/registrations/abc/cancel", zed, "")
	assert.Equal(t, http.StatusBadRequest, code)
}
