package calendar

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MinDuration is the shortest event accepted. Exports keep minute precision,
// so anything shorter could not be read back.
const MinDuration = time.Minute

// Event is one concrete occurrence stored in a calendar.
type Event struct {
	UID         uuid.UUID
	Name        string
	StartTime   time.Time
	EndTime     time.Time
	Description string
	Location    string
	IsPublic    bool
	// IsPartOfRecurrence and RecurrenceDays describe the series the event was
	// generated from. They are kept for display and editing only.
	IsPartOfRecurrence bool
	RecurrenceDays     []time.Weekday
	AutoDecline        bool
}

// EventSpec is everything needed to create one event or a recurring series.
// A zero RecurrenceEndDate means "not set".
type EventSpec struct {
	Name        string
	StartTime   time.Time
	EndTime     time.Time
	Description string
	Location    string
	IsPublic    bool
	AutoDecline bool

	IsRecurring       bool
	RecurrenceDays    []time.Weekday
	RecurrenceCount   int
	RecurrenceEndDate time.Time
}

func (e Event) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

// IsAllDay reports whether the event spans 00:00:00 to 23:59:59 of one date.
func (e Event) IsAllDay() bool {
	if !sameDate(e.StartTime, e.EndTime) {
		return false
	}
	h, m, s := e.StartTime.Clock()
	if h != 0 || m != 0 || s != 0 {
		return false
	}
	h, m, s = e.EndTime.Clock()
	return h == 23 && m == 59 && s == 59
}

func (e Event) clone() Event {
	e.RecurrenceDays = slices.Clone(e.RecurrenceDays)
	return e
}

// NewEvent validates a non-recurring spec and returns the event it describes.
func NewEvent(spec EventSpec) (Event, error) {
	if err := spec.validateBase(); err != nil {
		return Event{}, err
	}
	if spec.IsRecurring {
		return Event{}, fmt.Errorf("%w: recurring spec %q must be expanded", ErrValidation, spec.Name)
	}
	if spec.RecurrenceCount != 0 || len(spec.RecurrenceDays) > 0 || !spec.RecurrenceEndDate.IsZero() {
		return Event{}, fmt.Errorf("%w: recurrence fields are only allowed on recurring events", ErrValidation)
	}
	return Event{
		Name:        spec.Name,
		StartTime:   spec.StartTime,
		EndTime:     spec.EndTime,
		Description: spec.Description,
		Location:    spec.Location,
		IsPublic:    spec.IsPublic,
		AutoDecline: spec.AutoDecline,
	}, nil
}

func (s EventSpec) validateBase() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: event name is required", ErrValidation)
	}
	if s.StartTime.IsZero() || s.EndTime.IsZero() {
		return fmt.Errorf("%w: event start and end are required", ErrValidation)
	}
	if !s.EndTime.After(s.StartTime) {
		return fmt.Errorf("%w: event end must be after start", ErrValidation)
	}
	if s.EndTime.Sub(s.StartTime) < MinDuration {
		return fmt.Errorf("%w: event must last at least %s", ErrValidation, MinDuration)
	}
	return nil
}

func (s EventSpec) validateRecurrence() error {
	if !sameDate(s.StartTime, s.EndTime) {
		return fmt.Errorf("%w: recurring event must start and end on the same day", ErrValidation)
	}
	hasCount := s.RecurrenceCount != 0
	hasEndDate := !s.RecurrenceEndDate.IsZero()
	if hasCount == hasEndDate {
		return fmt.Errorf("%w: exactly one of recurrence count and end date must be set", ErrValidation)
	}
	if hasCount && s.RecurrenceCount < 1 {
		return fmt.Errorf("%w: recurrence count must be at least 1", ErrValidation)
	}
	if len(s.RecurrenceDays) == 0 {
		return fmt.Errorf("%w: recurring event needs at least one weekday", ErrValidation)
	}
	return nil
}

func (s EventSpec) in(loc *time.Location) EventSpec {
	s.StartTime = s.StartTime.In(loc)
	s.EndTime = s.EndTime.In(loc)
	if !s.RecurrenceEndDate.IsZero() {
		// The end date is a calendar date, so its wall date is kept.
		y, m, d := s.RecurrenceEndDate.Date()
		s.RecurrenceEndDate = time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
	return s
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
