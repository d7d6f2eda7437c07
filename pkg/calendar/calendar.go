package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Calendar is a named, timezone-tagged list of events kept in insertion
// order. Calendars are owned by a Store and never handed out directly.
type Calendar struct {
	name     string
	timezone string
	location *time.Location
	events   []Event
}

// Info is a read-only view of a calendar.
type Info struct {
	Name       string
	Timezone   string
	EventCount int
}

func newCalendar(name, timezone string) (*Calendar, error) {
	loc, err := loadLocation(timezone)
	if err != nil {
		return nil, err
	}
	return &Calendar{name: name, timezone: timezone, location: loc}, nil
}

func (c *Calendar) info() Info {
	return Info{Name: c.name, Timezone: c.timezone, EventCount: len(c.events)}
}

func (c *Calendar) snapshot() []Event {
	events := make([]Event, 0, len(c.events))
	for _, e := range c.events {
		events = append(events, e.clone())
	}
	return events
}

func (c *Calendar) find(name string, start time.Time) (int, bool) {
	for i, e := range c.events {
		if e.Name == name && e.StartTime.Equal(start) {
			return i, true
		}
	}
	return -1, false
}

func loadLocation(timezone string) (*time.Location, error) {
	if strings.TrimSpace(timezone) == "" {
		return nil, fmt.Errorf("%w: timezone is required", ErrInvalidTimezone)
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, timezone)
	}
	return loc, nil
}

func calendarKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
