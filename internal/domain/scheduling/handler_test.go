package scheduling

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicore/hms/internal/platform/auth"
)

func newTestHandler(t *testing.T) (*Handler, *echo.Echo, *fixture) {
	f := newFixture(t)
	return NewHandler(f.svc), echo.New(), f
}

func asPrincipal(req *http.Request, role auth.Role, id int64) *http.Request {
	return req.WithContext(auth.WithPrincipal(req.Context(), role, id))
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %T (%v)", err, err)
	return he.Code
}

func TestHandler_CreateAppointment_FillsCallingPatient(t *testing.T) {
	h, e, f := newTestHandler(t)
	sl := f.slots.add(10, testNow.Add(time.Hour))

	body := `{"doctor_id":10,"free_slot_id":` + itoa(sl.ID) + `,"reason":"fever"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(asPrincipal(jsonRequest(http.MethodPost, "/api/v1/appointments", body), auth.RolePatient, 1), rec)

	require.NoError(t, h.CreateAppointment(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var a Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, int64(1), a.PatientID)
	assert.Equal(t, StatusPending, a.Status)
	assert.Equal(t, "Patient:1", a.CreatedBy)
}

func TestHandler_CreateAppointment_ForOtherPatient(t *testing.T) {
	h, e, f := newTestHandler(t)
	sl := f.slots.add(10, testNow.Add(time.Hour))

	body := `{"patient_id":2,"doctor_id":10,"free_slot_id":` + itoa(sl.ID) + `}`
	c := e.NewContext(asPrincipal(jsonRequest(http.MethodPost, "/", body), auth.RolePatient, 1), httptest.NewRecorder())

	assert.Equal(t, http.StatusForbidden, httpCode(t, h.CreateAppointment(c)))
}

func TestHandler_CreateAppointment_ErrorCodes(t *testing.T) {
	h, e, f := newTestHandler(t)
	sl := f.slots.add(10, testNow.Add(time.Hour))
	f.book(t, 2, 10, sl.ID)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"unknown doctor", `{"doctor_id":99,"free_slot_id":1}`, http.StatusUnprocessableEntity},
		{"unknown slot", `{"doctor_id":10,"free_slot_id":999}`, http.StatusUnprocessableEntity},
		{"missing slot id", `{"doctor_id":10}`, http.StatusBadRequest},
		{"slot taken", `{"doctor_id":10,"free_slot_id":` + itoa(sl.ID) + `}`, http.StatusConflict},
		{"malformed", `{"doctor_id":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := e.NewContext(asPrincipal(jsonRequest(http.MethodPost, "/", tt.body), auth.RolePatient, 1), httptest.NewRecorder())
			assert.Equal(t, tt.want, httpCode(t, h.CreateAppointment(c)))
		})
	}
}

func TestHandler_AvailableSlots_DefaultsToCaller(t *testing.T) {
	h, e, f := newTestHandler(t)
	s1 := f.slots.add(10, testNow.Add(time.Hour))
	f.slots.add(10, testNow.Add(2*time.Hour))
	f.book(t, 1, 10, s1.ID)

	rec := httptest.NewRecorder()
	c := e.NewContext(asPrincipal(httptest.NewRequest(http.MethodGet, "/", nil), auth.RolePatient, 1), rec)
	c.SetParamNames("id")
	c.SetParamValues("10")

	require.NoError(t, h.AvailableSlots(c))
	var got []FreeSlot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 1)

	c = e.NewContext(asPrincipal(httptest.NewRequest(http.MethodGet, "/", nil), auth.RoleDoctor, 10), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("10")
	assert.Equal(t, http.StatusBadRequest, httpCode(t, h.AvailableSlots(c)), "doctors must name a patient")
}

func TestHandler_AvailableSlots_OtherPatient(t *testing.T) {
	h, e, f := newTestHandler(t)
	sl := f.slots.add(10, testNow.Add(time.Hour))
	f.book(t, 2, 10, sl.ID)

	request := func(role auth.Role, id int64) (echo.Context, *httptest.ResponseRecorder) {
		rec := httptest.NewRecorder()
		c := e.NewContext(asPrincipal(httptest.NewRequest(http.MethodGet, "/?patient_id=2", nil), role, id), rec)
		c.SetParamNames("id")
		c.SetParamValues("10")
		return c, rec
	}

	c, _ := request(auth.RolePatient, 1)
	assert.Equal(t, http.StatusForbidden, httpCode(t, h.AvailableSlots(c)))

	for _, role := range []auth.Role{auth.RoleDoctor, auth.RoleAdmin} {
		c, rec := request(role, 10)
		require.NoError(t, h.AvailableSlots(c), string(role))
		var got []FreeSlot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Empty(t, got, "patient 2 already holds the only slot")
	}
}

func TestHandler_CancelAppointment(t *testing.T) {
	h, e, f := newTestHandler(t)
	sl := f.slots.add(10, testNow.Add(time.Hour))
	a := f.book(t, 1, 10, sl.ID)

	c := e.NewContext(asPrincipal(httptest.NewRequest(http.MethodPost, "/", nil), auth.RolePatient, 2), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(itoa(a.ID))
	assert.Equal(t, http.StatusForbidden, httpCode(t, h.CancelAppointment(c)))

	rec := httptest.NewRecorder()
	c = e.NewContext(asPrincipal(httptest.NewRequest(http.MethodPost, "/", nil), auth.RolePatient, 1), rec)
	c.SetParamNames("id")
	c.SetParamValues(itoa(a.ID))
	require.NoError(t, h.CancelAppointment(c))
	assert.JSONEq(t, `{"id":`+itoa(a.ID)+`,"cancelled":true}`, rec.Body.String())

	c = e.NewContext(asPrincipal(httptest.NewRequest(http.MethodPost, "/", nil), auth.RolePatient, 1), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(itoa(a.ID))
	assert.Equal(t, http.StatusNotFound, httpCode(t, h.CancelAppointment(c)))
}

func TestHandler_UpdateStatus(t *testing.T) {
	h, e, f := newTestHandler(t)
	sl := f.slots.add(10, testNow.Add(time.Hour))
	a := f.book(t, 1, 10, sl.ID)

	call := func(doctorID int64, body string) (*httptest.ResponseRecorder, error) {
		rec := httptest.NewRecorder()
		c := e.NewContext(asPrincipal(jsonRequest(http.MethodPut, "/", body), auth.RoleDoctor, doctorID), rec)
		c.SetParamNames("id")
		c.SetParamValues(itoa(a.ID))
		return rec, h.UpdateStatus(c)
	}

	_, err := call(11, `{"status":"Approved"}`)
	assert.Equal(t, http.StatusForbidden, httpCode(t, err), "another doctor")

	_, err = call(10, `{"status":"Rescheduled"}`)
	assert.Equal(t, http.StatusBadRequest, httpCode(t, err))

	_, err = call(10, `{"status":"Completed"}`)
	assert.Equal(t, http.StatusConflict, httpCode(t, err))

	rec, err := call(10, `{"status":"Approved"}`)
	require.NoError(t, err)
	var got Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, StatusConfirmed, got.Status)
}

func TestHandler_MarkPaid(t *testing.T) {
	h, e, f := newTestHandler(t)
	sl := f.slots.add(10, testNow.Add(time.Hour))
	a := f.book(t, 1, 10, sl.ID)

	rec := httptest.NewRecorder()
	c := e.NewContext(asPrincipal(httptest.NewRequest(http.MethodPost, "/", nil), auth.RoleAdmin, 1), rec)
	c.SetParamNames("id")
	c.SetParamValues(itoa(a.ID))
	require.NoError(t, h.MarkPaid(c))
	assert.JSONEq(t, `{"id":`+itoa(a.ID)+`,"paid":true}`, rec.Body.String())

	c = e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("999")
	assert.Equal(t, http.StatusNotFound, httpCode(t, h.MarkPaid(c)))
}

func TestHandler_ListAppointments_ScopedToCaller(t *testing.T) {
	h, e, f := newTestHandler(t)
	f.book(t, 1, 10, f.slots.add(10, testNow.Add(time.Hour)).ID)
	f.book(t, 2, 11, f.slots.add(11, testNow.Add(time.Hour)).ID)

	list := func(req *http.Request) (int, error) {
		rec := httptest.NewRecorder()
		if err := h.ListAppointments(e.NewContext(req, rec)); err != nil {
			return 0, err
		}
		var body struct {
			Total int `json:"total"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body.Total, nil
	}

	n, err := list(asPrincipal(httptest.NewRequest(http.MethodGet, "/?patient_id=2", nil), auth.RolePatient, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, n, "a patient's filter is forced to themselves")

	n, err = list(asPrincipal(httptest.NewRequest(http.MethodGet, "/", nil), auth.RoleAdmin, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = list(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, httpCode(t, err))
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h, e, _ := newTestHandler(t)
	h.RegisterRoutes(e.Group("/api/v1"))

	want := map[string]bool{
		"GET /api/v1/doctors/:id/available-slots": false,
		"POST /api/v1/appointments":               false,
		"POST /api/v1/appointments/:id/cancel":    false,
		"PUT /api/v1/appointments/:id/status":     false,
		"POST /api/v1/appointments/:id/pay":       false,
		"POST /api/v1/slots/generate":             false,
	}
	for _, r := range e.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, seen := range want {
		assert.True(t, seen, "route %s not registered", route)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
