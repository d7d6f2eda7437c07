package calendar

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/klokku/calendars/internal/rest"
	log "github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

type Handler struct {
	guard *Guard
}

type CalendarDTO struct {
	Name       string `json:"name"`
	Timezone   string `json:"timezone"`
	EventCount int    `json:"eventCount"`
	Active     bool   `json:"active"`
}

type EventDTO struct {
	UID                string    `json:"uid"`
	Name               string    `json:"name"`
	StartTime          time.Time `json:"start"`
	EndTime            time.Time `json:"end"`
	Description        string    `json:"description"`
	Location           string    `json:"location"`
	IsPublic           bool      `json:"isPublic"`
	IsPartOfRecurrence bool      `json:"isPartOfRecurrence"`
	RecurrenceDays     []string  `json:"recurrenceDays,omitempty"`
	AutoDecline        bool      `json:"autoDecline"`
}

type RecurrenceDTO struct {
	Days  []string `json:"days"`
	Count int      `json:"count,omitempty"`
	// Until is a date (2006-01-02).
	Until string `json:"until,omitempty"`
}

type CreateEventDTO struct {
	Name        string         `json:"name"`
	StartTime   time.Time      `json:"start"`
	EndTime     time.Time      `json:"end"`
	Description string         `json:"description"`
	Location    string         `json:"location"`
	IsPublic    bool           `json:"isPublic"`
	AutoDecline bool           `json:"autoDecline"`
	Recurrence  *RecurrenceDTO `json:"recurrence,omitempty"`
}

type PropertyEditDTO struct {
	Property  string     `json:"property"`
	Name      string     `json:"name"`
	StartTime *time.Time `json:"start,omitempty"`
	EndTime   *time.Time `json:"end,omitempty"`
	Value     string     `json:"value"`
	All       bool       `json:"all"`
}

type CopyDTO struct {
	Name        string    `json:"name,omitempty"`
	StartTime   time.Time `json:"start,omitempty"`
	From        time.Time `json:"from,omitempty"`
	To          time.Time `json:"to,omitempty"`
	Target      string    `json:"target"`
	TargetStart time.Time `json:"targetStart"`
}

type StatusDTO struct {
	Busy   bool       `json:"busy"`
	Events []EventDTO `json:"events"`
}

func NewHandler(guard *Guard) *Handler {
	return &Handler{guard}
}

func (h *Handler) ListCalendars(w http.ResponseWriter, r *http.Request) {
	var dtos []CalendarDTO
	err := h.guard.Do(func(store *Store) error {
		current, hasCurrent := store.CurrentCalendar()
		for _, info := range store.Calendars() {
			dtos = append(dtos, CalendarDTO{
				Name:       info.Name,
				Timezone:   info.Timezone,
				EventCount: info.EventCount,
				Active:     hasCurrent && calendarKey(current.Name) == calendarKey(info.Name),
			})
		}
		return nil
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if dtos == nil {
		dtos = []CalendarDTO{}
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateCalendar(w http.ResponseWriter, r *http.Request) {
	var dto CalendarDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err := h.guard.Do(func(store *Store) error {
		return store.CreateCalendar(dto.Name, dto.Timezone)
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, CalendarDTO{Name: dto.Name, Timezone: dto.Timezone})
}

func (h *Handler) EditCalendar(w http.ResponseWriter, r *http.Request) {
	var dto PropertyEditDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err := h.guard.Do(func(store *Store) error {
		return store.EditCalendar(mux.Vars(r)["calendar"], dto.Property, dto.Value)
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteCalendar(w http.ResponseWriter, r *http.Request) {
	err := h.guard.Do(func(store *Store) error {
		return store.DeleteCalendar(mux.Vars(r)["calendar"])
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UseCalendar(w http.ResponseWriter, r *http.Request) {
	err := h.guard.Do(func(store *Store) error {
		return store.UseCalendar(mux.Vars(r)["calendar"])
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateEvent adds a single or recurring event to the active calendar.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var dto CreateEventDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	spec, err := dtoToSpec(dto)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid recurrence", err.Error())
		return
	}
	var added []Event
	err = h.guard.Do(func(store *Store) error {
		added, err = store.AddEvent(spec)
		return err
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, eventsToDTOs(added))
}

func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	from, ok := queryTime(w, r, "from")
	if !ok {
		return
	}
	to, ok := queryTime(w, r, "to")
	if !ok {
		return
	}
	var events []Event
	err := h.guard.Do(func(store *Store) (err error) {
		events, err = store.EventsInRange(mux.Vars(r)["calendar"], from, to)
		return err
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, eventsToDTOs(events))
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	at, ok := queryTime(w, r, "at")
	if !ok {
		return
	}
	var events []Event
	err := h.guard.Do(func(store *Store) (err error) {
		events, err = store.EventsAt(mux.Vars(r)["calendar"], at)
		return err
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, StatusDTO{Busy: len(events) > 0, Events: eventsToDTOs(events)})
}

func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	var date *time.Time
	if dateString := r.URL.Query().Get("date"); dateString != "" {
		parsed, err := time.Parse(dateLayout, dateString)
		if err != nil {
			rest.WriteError(w, http.StatusBadRequest, "Invalid date format", "'date' must be in 2006-01-02 format")
			return
		}
		date = &parsed
	}
	available := false
	err := h.guard.Do(func(store *Store) error {
		available = store.IsCalendarAvailable(mux.Vars(r)["calendar"], date)
		return nil
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, map[string]bool{"available": available})
}

func (h *Handler) EditEvent(w http.ResponseWriter, r *http.Request) {
	var dto PropertyEditDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if dto.StartTime == nil || dto.EndTime == nil {
		rest.WriteError(w, http.StatusBadRequest, "Missing event interval", "'start' and 'end' identify the event")
		return
	}
	err := h.guard.Do(func(store *Store) error {
		return store.EditEvent(mux.Vars(r)["calendar"], dto.Property, dto.Name, *dto.StartTime, *dto.EndTime, dto.Value)
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) EditEvents(w http.ResponseWriter, r *http.Request) {
	var dto PropertyEditDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var edited int
	err := h.guard.Do(func(store *Store) (err error) {
		edited, err = store.EditEvents(mux.Vars(r)["calendar"], dto.Property, dto.Name, dto.StartTime, dto.Value, dto.All)
		return err
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, map[string]int{"edited": edited})
}

// CopyEvent copies one event, identified by name and start, to another calendar.
func (h *Handler) CopyEvent(w http.ResponseWriter, r *http.Request) {
	var dto CopyDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var copied Event
	err := h.guard.Do(func(store *Store) (err error) {
		copied, err = store.CopyEvent(mux.Vars(r)["calendar"], dto.StartTime, dto.Name, dto.Target, dto.TargetStart)
		return err
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, eventToDTO(copied))
}

// CopyEvents copies every event starting within [from, to] to another calendar.
func (h *Handler) CopyEvents(w http.ResponseWriter, r *http.Request) {
	var dto CopyDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var copied []Event
	err := h.guard.Do(func(store *Store) (err error) {
		copied, err = store.CopyEvents(mux.Vars(r)["calendar"], dto.From, dto.To, dto.Target, dto.TargetStart)
		return err
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, eventsToDTOs(copied))
}

func writeStoreError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Errorf("calendar operation failed: %v", err)
	}
	rest.WriteError(w, status, err.Error(), "")
}

func queryTime(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, r.URL.Query().Get(name))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest,
			fmt.Sprintf("Invalid %s (date) format", name),
			fmt.Sprintf("'%s' must be in RFC3339 format", name))
		return time.Time{}, false
	}
	return t, true
}

func dtoToSpec(dto CreateEventDTO) (EventSpec, error) {
	spec := EventSpec{
		Name:        dto.Name,
		StartTime:   dto.StartTime,
		EndTime:     dto.EndTime,
		Description: dto.Description,
		Location:    dto.Location,
		IsPublic:    dto.IsPublic,
		AutoDecline: dto.AutoDecline,
	}
	if dto.Recurrence == nil {
		return spec, nil
	}
	spec.IsRecurring = true
	spec.RecurrenceCount = dto.Recurrence.Count
	for _, day := range dto.Recurrence.Days {
		weekday, err := ParseWeekday(day)
		if err != nil {
			return EventSpec{}, err
		}
		spec.RecurrenceDays = append(spec.RecurrenceDays, weekday)
	}
	if dto.Recurrence.Until != "" {
		until, err := time.Parse(dateLayout, dto.Recurrence.Until)
		if err != nil {
			return EventSpec{}, fmt.Errorf("'until' must be in %s format", dateLayout)
		}
		spec.RecurrenceEndDate = until
	}
	return spec, nil
}

// ParseWeekday accepts full English weekday names, their three-letter
// abbreviations and two-letter iCalendar codes, in any case.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for day := time.Sunday; day <= time.Saturday; day++ {
		name := strings.ToLower(day.String())
		if s == name || s == name[:3] || s == name[:2] {
			return day, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", ErrValidation, s)
}

func eventsToDTOs(events []Event) []EventDTO {
	dtos := make([]EventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, eventToDTO(e))
	}
	return dtos
}

func eventToDTO(e Event) EventDTO {
	dto := EventDTO{
		UID:                e.UID.String(),
		Name:               e.Name,
		StartTime:          e.StartTime,
		EndTime:            e.EndTime,
		Description:        e.Description,
		Location:           e.Location,
		IsPublic:           e.IsPublic,
		IsPartOfRecurrence: e.IsPartOfRecurrence,
		AutoDecline:        e.AutoDecline,
	}
	for _, day := range e.RecurrenceDays {
		dto.RecurrenceDays = append(dto.RecurrenceDays, day.String())
	}
	return dto
}
