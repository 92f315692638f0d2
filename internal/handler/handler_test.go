package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/exam-registration/internal/booking"
)

func TestRespondErrMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{&booking.Error{Kind: booking.ErrValidation, Msg: "bad"}, http.StatusBadRequest, "validation"},
		{&booking.Error{Kind: booking.ErrNotFound, Msg: "gone"}, http.StatusNotFound, "not_found"},
		{&booking.Error{Kind: booking.ErrCapacity, Msg: "full"}, http.StatusConflict, "capacity"},
		{&booking.Error{Kind: booking.ErrDuplicate, Msg: "twice"}, http.StatusConflict, "duplicate"},
		{&booking.Error{Kind: booking.ErrTransient, Msg: "later"}, http.StatusServiceUnavailable, "transient"},
		{&invalidInput{msg: "x is required"}, http.StatusBadRequest, "validation"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	e := echo.New()
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		require.NoError(t, respondErr(c, tc.err))
		assert.Equal(t, tc.status, rec.Code, tc.kind)
		assert.Contains(t, rec.Body.String(), `"error":"`+tc.kind+`"`)
	}
}

func TestRespondErrHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, respondErr(c, errors.New("dial tcp 10.0.0.5:3306: refused")))
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestValidatorMessages(t *testing.T) {
	v := NewValidator()

	err := v.Validate(&printLogQuery{StartDate: "05/10/2030", Status: "Pending"})
	var in *invalidInput
	require.ErrorAs(t, err, &in)
	assert.Contains(t, in.msg, "start_date must be a date formatted as 2006-01-02")
	assert.Contains(t, in.msg, "status must be one of: Active Canceled")

	require.NoError(t, v.Validate(&printLogQuery{StartDate: "2030-05-10", Status: "Canceled"}))
	require.NoError(t, v.Validate(&appointmentsQuery{}))

	err = v.Validate(&selectionReq{ExamID: 1})
	require.ErrorAs(t, err, &in)
	assert.Contains(t, in.msg, "location_id is required")
	assert.Contains(t, in.msg, "timeslot_id is required")
}

func TestPathID(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	for raw, want := range map[string]bool{"7": true, "0": false, "-1": false, "x": false} {
		c.SetParamValues(raw)
		_, ok := pathID(c, "id")
		assert.Equal(t, want, ok, raw)
	}
}

func TestHealthWithoutDB(t *testing.T) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)
	require.NoError(t, Health(nil)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
