package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klokku/calendars/internal/event_bus"
	log "github.com/sirupsen/logrus"
)

// DateTimeLayout is the wall-clock format accepted for start/end edits, in
// the calendar's zone. RFC 3339 values are accepted too.
const DateTimeLayout = "2006-01-02T15:04"

var editableProperties = map[string]bool{
	"name":        true,
	"start":       true,
	"end":         true,
	"description": true,
	"location":    true,
	"ispublic":    true,
}

// AddEvent creates a single event or a whole recurring series in the active
// calendar. Nothing is stored if any occurrence conflicts.
func (s *Store) AddEvent(spec EventSpec) ([]Event, error) {
	if err := spec.validateBase(); err != nil {
		return nil, err
	}
	cal, err := s.active()
	if err != nil {
		return nil, err
	}
	planned, err := plan(spec, cal.location)
	if err != nil {
		return nil, err
	}
	if err := checkConflicts(cal.events, planned); err != nil {
		return nil, err
	}
	return s.commit(cal, planned), nil
}

// AddEvents creates a batch of events in one calendar. The whole batch is
// validated, including conflicts between its own members, before anything is
// stored; a single failure rejects the batch.
func (s *Store) AddEvents(name string, specs []EventSpec) ([]Event, error) {
	cal, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	var planned []Event
	for i, spec := range specs {
		events, err := plan(spec, cal.location)
		if err != nil {
			return nil, fmt.Errorf("event %d (%s): %w", i+1, spec.Name, err)
		}
		if err := checkConflicts(append(cal.events[:len(cal.events):len(cal.events)], planned...), events); err != nil {
			return nil, fmt.Errorf("event %d (%s): %w", i+1, spec.Name, err)
		}
		planned = append(planned, events...)
	}
	return s.commit(cal, planned), nil
}

// Restore adds previously exported events to a calendar without conflict
// checks. Stored data may overlap after edits, and a snapshot of it must load
// back as it was. Each spec is still validated and nothing is stored if any
// spec is invalid.
func (s *Store) Restore(name string, specs []EventSpec) ([]Event, error) {
	cal, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	var planned []Event
	for i, spec := range specs {
		events, err := plan(spec, cal.location)
		if err != nil {
			return nil, fmt.Errorf("event %d (%s): %w", i+1, spec.Name, err)
		}
		planned = append(planned, events...)
	}
	return s.commit(cal, planned), nil
}

// EditEvent changes one property of the event identified by name, start and
// end.
func (s *Store) EditEvent(calendarName, property, eventName string, from, to time.Time, value string) error {
	if err := checkProperty(property); err != nil {
		return err
	}
	cal, err := s.resolve(calendarName)
	if err != nil {
		return err
	}
	for i, e := range cal.events {
		if e.Name != eventName || !e.StartTime.Equal(from) || !e.EndTime.Equal(to) {
			continue
		}
		updated, err := applyProperty(e, property, value, cal.location)
		if err != nil {
			return err
		}
		cal.events[i] = updated
		s.publish(cal, event_bus.EventsEdited, 1)
		return nil
	}
	return fmt.Errorf("%w: event %q from %s to %s", ErrNotFound, eventName, from.Format(time.RFC3339), to.Format(time.RFC3339))
}

// EditEvents changes one property on every event with the given name, or
// only on those starting at from when it is set. With editAll false only the
// first match is edited. Every match is validated before any is changed.
func (s *Store) EditEvents(calendarName, property, eventName string, from *time.Time, value string, editAll bool) (int, error) {
	if err := checkProperty(property); err != nil {
		return 0, err
	}
	cal, err := s.resolve(calendarName)
	if err != nil {
		return 0, err
	}
	var matches []int
	for i, e := range cal.events {
		if e.Name != eventName {
			continue
		}
		if from != nil && !e.StartTime.Equal(*from) {
			continue
		}
		matches = append(matches, i)
		if !editAll {
			break
		}
	}
	if len(matches) == 0 {
		return 0, fmt.Errorf("%w: no event named %q", ErrNotFound, eventName)
	}

	updated := make([]Event, len(matches))
	for n, i := range matches {
		if updated[n], err = applyProperty(cal.events[i], property, value, cal.location); err != nil {
			return 0, err
		}
	}
	for n, i := range matches {
		cal.events[i] = updated[n]
	}
	s.publish(cal, event_bus.EventsEdited, len(matches))
	return len(matches), nil
}

// CopyEvent copies the event named eventName starting at sourceStart into
// the target calendar so that it starts at targetStart, keeping its duration.
func (s *Store) CopyEvent(sourceName string, sourceStart time.Time, eventName string, targetName string, targetStart time.Time) (Event, error) {
	source, err := s.resolve(sourceName)
	if err != nil {
		return Event{}, err
	}
	target, err := s.resolve(targetName)
	if err != nil {
		return Event{}, err
	}
	i, ok := source.find(eventName, sourceStart)
	if !ok {
		return Event{}, fmt.Errorf("%w: event %q at %s in %q", ErrNotFound, eventName, sourceStart.Format(time.RFC3339), source.name)
	}
	copied := moved(source.events[i], targetStart.In(target.location))
	if err := checkConflicts(target.events, []Event{copied}); err != nil {
		return Event{}, err
	}
	return s.commit(target, []Event{copied})[0], nil
}

// CopyEvents copies every event starting within [rangeStart, rangeEnd] into
// the target calendar. Each copy keeps its offset from rangeStart, applied to
// targetStart, and its duration. Nothing is copied if any copy conflicts.
func (s *Store) CopyEvents(sourceName string, rangeStart, rangeEnd time.Time, targetName string, targetStart time.Time) ([]Event, error) {
	if rangeEnd.Before(rangeStart) {
		return nil, fmt.Errorf("%w: range end is before range start", ErrValidation)
	}
	source, err := s.resolve(sourceName)
	if err != nil {
		return nil, err
	}
	target, err := s.resolve(targetName)
	if err != nil {
		return nil, err
	}
	targetStart = targetStart.In(target.location)

	var planned []Event
	for _, e := range source.events {
		if e.StartTime.Before(rangeStart) || e.StartTime.After(rangeEnd) {
			continue
		}
		copied := moved(e, targetStart.Add(e.StartTime.Sub(rangeStart)))
		if err := checkConflicts(append(target.events[:len(target.events):len(target.events)], planned...), []Event{copied}); err != nil {
			return nil, err
		}
		planned = append(planned, copied)
	}
	if len(planned) == 0 {
		log.Debugf("no events of %q start between %s and %s", source.name, rangeStart, rangeEnd)
		return []Event{}, nil
	}
	return s.commit(target, planned), nil
}

func (s *Store) commit(cal *Calendar, planned []Event) []Event {
	added := make([]Event, 0, len(planned))
	if len(planned) == 0 {
		return added
	}
	for _, e := range planned {
		e.UID = uuid.New()
		cal.events = append(cal.events, e)
		added = append(added, e.clone())
	}
	log.Debugf("added %d event(s) to calendar %q", len(added), cal.name)
	s.publish(cal, event_bus.EventsAdded, len(added))
	return added
}

// plan turns a spec into the events it would create in a calendar located
// in loc.
func plan(spec EventSpec, loc *time.Location) ([]Event, error) {
	spec = spec.in(loc)
	if spec.IsRecurring {
		return ExpandRecurrence(spec)
	}
	e, err := NewEvent(spec)
	if err != nil {
		return nil, err
	}
	return []Event{e}, nil
}

func checkConflicts(existing []Event, planned []Event) error {
	for _, e := range planned {
		if Conflicts(e.StartTime, e.EndTime, existing) {
			return fmt.Errorf("%w: %q from %s to %s", ErrConflict, e.Name, e.StartTime.Format(time.RFC3339), e.EndTime.Format(time.RFC3339))
		}
	}
	return nil
}

func moved(e Event, start time.Time) Event {
	duration := e.Duration()
	e = e.clone()
	e.UID = uuid.Nil
	e.StartTime = start
	e.EndTime = start.Add(duration)
	return e
}

func checkProperty(property string) error {
	if !editableProperties[strings.ToLower(property)] {
		return fmt.Errorf("%w: unknown event property %q", ErrValidation, property)
	}
	return nil
}

func applyProperty(e Event, property, value string, loc *time.Location) (Event, error) {
	switch strings.ToLower(property) {
	case "name":
		if strings.TrimSpace(value) == "" {
			return e, fmt.Errorf("%w: event name is required", ErrValidation)
		}
		e.Name = value
	case "start":
		start, err := parseDateTime(value, loc)
		if err != nil {
			return e, err
		}
		if e.EndTime.Sub(start) < MinDuration {
			return e, fmt.Errorf("%w: start must be at least %s before end %s", ErrValidation, MinDuration, e.EndTime.Format(DateTimeLayout))
		}
		e.StartTime = start
	case "end":
		end, err := parseDateTime(value, loc)
		if err != nil {
			return e, err
		}
		if end.Sub(e.StartTime) < MinDuration {
			return e, fmt.Errorf("%w: end must be at least %s after start %s", ErrValidation, MinDuration, e.StartTime.Format(DateTimeLayout))
		}
		e.EndTime = end
	case "description":
		e.Description = value
	case "location":
		e.Location = value
	case "ispublic":
		public, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return e, fmt.Errorf("%w: ispublic must be true or false", ErrValidation)
		}
		e.IsPublic = public
	default:
		return e, fmt.Errorf("%w: unknown event property %q", ErrValidation, property)
	}
	return e, nil
}

func parseDateTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range []string{DateTimeLayout, "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not a date-time (%s)", ErrValidation, value, DateTimeLayout)
}
