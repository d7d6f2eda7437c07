package calendar

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test setup helper
func setupHandlerTest(t *testing.T) *Handler {
	t.Helper()
	store := NewStore(nil)
	require.NoError(t, store.CreateCalendar("Work", "UTC"))
	require.NoError(t, store.UseCalendar("Work"))
	return NewHandler(NewGuard(store))
}

func jsonRequest(t *testing.T, method, target string, body any, vars map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return mux.SetURLVars(req, vars)
}

func TestCreateEvent_Recurring(t *testing.T) {
	handler := setupHandlerTest(t)
	start := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	dto := CreateEventDTO{
		Name:      "Standup",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Recurrence: &RecurrenceDTO{
			Days:  []string{"WE"},
			Count: 3,
		},
	}

	w := httptest.NewRecorder()
	handler.CreateEvent(w, jsonRequest(t, http.MethodPost, "/api/event", dto, nil))

	assert.Equal(t, http.StatusCreated, w.Code)
	var created []EventDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	require.Len(t, created, 3)
	assert.True(t, created[2].StartTime.Equal(time.Date(2025, 3, 26, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, []string{"Wednesday"}, created[0].RecurrenceDays)
}

func TestCreateEvent_ConflictAnswers409(t *testing.T) {
	handler := setupHandlerTest(t)
	start := time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC)

	w := httptest.NewRecorder()
	handler.CreateEvent(w, jsonRequest(t, http.MethodPost, "/api/event", CreateEventDTO{Name: "A", StartTime: start, EndTime: start.Add(time.Hour)}, nil))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	handler.CreateEvent(w, jsonRequest(t, http.MethodPost, "/api/event", CreateEventDTO{Name: "B", StartTime: start.Add(30 * time.Minute), EndTime: start.Add(90 * time.Minute)}, nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateEvent_InvalidWeekday(t *testing.T) {
	handler := setupHandlerTest(t)
	start := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	dto := CreateEventDTO{Name: "X", StartTime: start, EndTime: start.Add(time.Hour), Recurrence: &RecurrenceDTO{Days: []string{"someday"}, Count: 1}}

	w := httptest.NewRecorder()
	handler.CreateEvent(w, jsonRequest(t, http.MethodPost, "/api/event", dto, nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetEvents_InvalidFromDate(t *testing.T) {
	handler := setupHandlerTest(t)
	req := jsonRequest(t, http.MethodGet, "/api/calendar/Work/event?from=invalid-date&to=2023-01-02T15:04:05Z", nil, map[string]string{"calendar": "Work"})

	w := httptest.NewRecorder()
	handler.GetEvents(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var errResponse struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&errResponse))
	assert.Contains(t, errResponse.Error, "Invalid from (date) format")
	assert.Contains(t, errResponse.Details, "RFC3339")
}

func TestGetEvents_UnknownCalendar(t *testing.T) {
	handler := setupHandlerTest(t)
	req := jsonRequest(t, http.MethodGet, "/api/calendar/Home/event?from=2025-03-01T00:00:00Z&to=2025-03-31T00:00:00Z", nil, map[string]string{"calendar": "Home"})

	w := httptest.NewRecorder()
	handler.GetEvents(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCalendarLifecycle(t *testing.T) {
	handler := setupHandlerTest(t)

	w := httptest.NewRecorder()
	handler.CreateCalendar(w, jsonRequest(t, http.MethodPost, "/api/calendar", CalendarDTO{Name: "Home", Timezone: "Europe/Warsaw"}, nil))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	handler.CreateCalendar(w, jsonRequest(t, http.MethodPost, "/api/calendar", CalendarDTO{Name: "home", Timezone: "UTC"}, nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = httptest.NewRecorder()
	handler.UseCalendar(w, jsonRequest(t, http.MethodPut, "/api/calendar/Home/active", nil, map[string]string{"calendar": "Home"}))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	handler.ListCalendars(w, jsonRequest(t, http.MethodGet, "/api/calendar", nil, nil))
	var calendars []CalendarDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&calendars))
	assert.Equal(t, []CalendarDTO{
		{Name: "Home", Timezone: "Europe/Warsaw", Active: true},
		{Name: "Work", Timezone: "UTC"},
	}, calendars)

	w = httptest.NewRecorder()
	handler.DeleteCalendar(w, jsonRequest(t, http.MethodDelete, "/api/calendar/Home", nil, map[string]string{"calendar": "Home"}))
	assert.Equal(t, http.StatusNoContent, w.Code)

	start := time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC)
	w = httptest.NewRecorder()
	handler.CreateEvent(w, jsonRequest(t, http.MethodPost, "/api/event", CreateEventDTO{Name: "A", StartTime: start, EndTime: start.Add(time.Hour)}, nil))
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestEditEvents_And_Status(t *testing.T) {
	handler := setupHandlerTest(t)
	start := time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC)
	w := httptest.NewRecorder()
	handler.CreateEvent(w, jsonRequest(t, http.MethodPost, "/api/event", CreateEventDTO{Name: "A", StartTime: start, EndTime: start.Add(time.Hour)}, nil))
	require.Equal(t, http.StatusCreated, w.Code)
	vars := map[string]string{"calendar": "Work"}

	w = httptest.NewRecorder()
	handler.EditEvents(w, jsonRequest(t, http.MethodPut, "/api/calendar/Work/events", PropertyEditDTO{Property: "name", Name: "A", Value: "B", All: true}, vars))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"edited":1}`, w.Body.String())

	w = httptest.NewRecorder()
	handler.GetStatus(w, jsonRequest(t, http.MethodGet, "/api/calendar/Work/status?at=2025-03-20T10:30:00Z", nil, vars))
	assert.Equal(t, http.StatusOK, w.Code)
	var status StatusDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.True(t, status.Busy)
	require.Len(t, status.Events, 1)
	assert.Equal(t, "B", status.Events[0].Name)

	w = httptest.NewRecorder()
	handler.GetAvailability(w, jsonRequest(t, http.MethodGet, "/api/calendar/Work/availability?date=2025-03-20", nil, vars))
	assert.JSONEq(t, `{"available":false}`, w.Body.String())
}

func TestParseWeekday(t *testing.T) {
	testCases := []struct {
		in   string
		want time.Weekday
	}{
		{"Monday", time.Monday},
		{"tue", time.Tuesday},
		{"TH", time.Thursday},
		{"sa", time.Saturday},
		{" sunday ", time.Sunday},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseWeekday(tc.in)
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
	_, err := ParseWeekday("x")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetAvailability_ReadsDateInCalendarZone(t *testing.T) {
	store := NewStore(nil)
	require.NoError(t, store.CreateCalendar("Home", "America/New_York"))
	loc, err := store.Location("Home")
	require.NoError(t, err)
	_, err = store.AddEvents("Home", []EventSpec{{Name: "Dinner", StartTime: time.Date(2025, 3, 12, 20, 0, 0, 0, loc), EndTime: time.Date(2025, 3, 12, 21, 0, 0, 0, loc)}})
	require.NoError(t, err)
	handler := NewHandler(NewGuard(store))
	vars := map[string]string{"calendar": "Home"}

	w := httptest.NewRecorder()
	handler.GetAvailability(w, jsonRequest(t, http.MethodGet, "/api/calendar/Home/availability?date=2025-03-13", nil, vars))
	assert.JSONEq(t, `{"available":true}`, w.Body.String())

	w = httptest.NewRecorder()
	handler.GetAvailability(w, jsonRequest(t, http.MethodGet, "/api/calendar/Home/availability?date=2025-03-12", nil, vars))
	assert.JSONEq(t, `{"available":false}`, w.Body.String())

	w = httptest.NewRecorder()
	handler.GetAvailability(w, jsonRequest(t, http.MethodGet, "/api/calendar/Home/availability?date=12.03.2025", nil, vars))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
