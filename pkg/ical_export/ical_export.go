package ical_export

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/emersion/go-ical"
	"github.com/gorilla/mux"
	"github.com/klokku/calendars/internal/rest"
	"github.com/klokku/calendars/internal/utils"
	"github.com/klokku/calendars/pkg/calendar"
	log "github.com/sirupsen/logrus"
)

const productID = "-//klokku//calendars//EN"

// Encode renders events as an iCalendar document. Timed events are written in
// UTC; all-day events use DATE values with an exclusive end.
func Encode(calendarName string, events []calendar.Event, now time.Time) (string, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText("X-WR-CALNAME", calendarName)

	for _, e := range events {
		vevent := ical.NewEvent()
		vevent.Props.SetText(ical.PropUID, e.UID.String())
		vevent.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
		vevent.Props.SetText(ical.PropSummary, e.Name)
		if e.Description != "" {
			vevent.Props.SetText(ical.PropDescription, e.Description)
		}
		if e.Location != "" {
			vevent.Props.SetText(ical.PropLocation, e.Location)
		}
		if e.IsAllDay() {
			vevent.Props.SetDate(ical.PropDateTimeStart, e.StartTime)
			vevent.Props.SetDate(ical.PropDateTimeEnd, e.StartTime.AddDate(0, 0, 1))
		} else {
			vevent.Props.SetDateTime(ical.PropDateTimeStart, e.StartTime.UTC())
			vevent.Props.SetDateTime(ical.PropDateTimeEnd, e.EndTime.UTC())
		}
		if e.IsPublic {
			vevent.Props.SetText(ical.PropClass, "PUBLIC")
		} else {
			vevent.Props.SetText(ical.PropClass, "PRIVATE")
		}
		cal.Children = append(cal.Children, vevent.Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", fmt.Errorf("failed to encode calendar %q: %w", calendarName, err)
	}
	return buf.String(), nil
}

type Handler struct {
	guard *calendar.Guard
	clock utils.Clock
}

func NewHandler(guard *calendar.Guard, clock utils.Clock) *Handler {
	return &Handler{guard: guard, clock: clock}
}

func (h *Handler) ExportCalendar(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["calendar"]
	var events []calendar.Event
	err := h.guard.Do(func(store *calendar.Store) (err error) {
		events, err = store.Events(name)
		return err
	})
	if err != nil {
		rest.WriteError(w, calendar.HTTPStatus(err), err.Error(), "")
		return
	}
	text, err := Encode(name, events, h.clock.Now())
	if err != nil {
		log.Errorf("iCalendar export failed: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Export failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, text); err != nil {
		log.Errorf("failed to write iCalendar export: %v", err)
	}
}
