package calendar

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/klokku/calendars/internal/event_bus"
	log "github.com/sirupsen/logrus"
)

// Store owns every calendar and the active-calendar pointer. It is not safe
// for concurrent use; hosts serialize access through a Guard.
//
// Operations taking a calendar name treat "" as the active calendar.
type Store struct {
	calendars map[string]*Calendar
	current   *Calendar
	eventBus  *event_bus.EventBus
}

// NewStore creates an empty store. eventBus may be nil.
func NewStore(eventBus *event_bus.EventBus) *Store {
	return &Store{
		calendars: make(map[string]*Calendar),
		eventBus:  eventBus,
	}
}

func (s *Store) CreateCalendar(name, timezone string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: calendar name is required", ErrValidation)
	}
	key := calendarKey(name)
	if _, exists := s.calendars[key]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	cal, err := newCalendar(name, timezone)
	if err != nil {
		return err
	}
	s.calendars[key] = cal
	log.Debugf("created calendar %q (%s)", name, timezone)
	s.publish(cal, event_bus.CalendarCreated, 0)
	return nil
}

// UseCalendar makes the named calendar the active one.
func (s *Store) UseCalendar(name string) error {
	cal, err := s.lookup(name)
	if err != nil {
		return err
	}
	s.current = cal
	return nil
}

// CurrentCalendar returns the active calendar, if any.
func (s *Store) CurrentCalendar() (Info, bool) {
	if s.current == nil {
		return Info{}, false
	}
	return s.current.info(), true
}

// Calendars lists every calendar ordered by name.
func (s *Store) Calendars() []Info {
	infos := make([]Info, 0, len(s.calendars))
	for _, cal := range s.calendars {
		infos = append(infos, cal.info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return calendarKey(infos[i].Name) < calendarKey(infos[j].Name)
	})
	return infos
}

// EditCalendar changes the "name" or "timezone" of a calendar.
func (s *Store) EditCalendar(name, property, value string) error {
	cal, err := s.resolve(name)
	if err != nil {
		return err
	}
	switch strings.ToLower(property) {
	case "name":
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: calendar name is required", ErrValidation)
		}
		newKey := calendarKey(value)
		oldKey := calendarKey(cal.name)
		if existing, ok := s.calendars[newKey]; ok && existing != cal {
			return fmt.Errorf("%w: %q", ErrDuplicateName, value)
		}
		previous := cal.name
		delete(s.calendars, oldKey)
		cal.name = value
		s.calendars[newKey] = cal
		s.publishChange(event_bus.CalendarChanged{Calendar: value, Previous: previous, Change: event_bus.CalendarRenamed})
		return nil
	case "timezone":
		return s.RetimeZoneChange(cal.name, cal.timezone, value)
	default:
		return fmt.Errorf("%w: unknown calendar property %q", ErrValidation, property)
	}
}

// RetimeZoneChange moves a calendar from oldZone to newZone. Stored instants
// are kept and re-expressed in the new zone, so their wall clock shifts.
func (s *Store) RetimeZoneChange(name, oldZone, newZone string) error {
	cal, err := s.resolve(name)
	if err != nil {
		return err
	}
	if cal.timezone != oldZone {
		return fmt.Errorf("%w: calendar %q is in %s, not %s", ErrValidation, cal.name, cal.timezone, oldZone)
	}
	loc, err := loadLocation(newZone)
	if err != nil {
		return err
	}
	for i := range cal.events {
		cal.events[i].StartTime = cal.events[i].StartTime.In(loc)
		cal.events[i].EndTime = cal.events[i].EndTime.In(loc)
	}
	cal.timezone = newZone
	cal.location = loc
	log.Debugf("calendar %q moved from %s to %s (%d events)", cal.name, oldZone, newZone, len(cal.events))
	s.publish(cal, event_bus.CalendarRetimed, len(cal.events))
	return nil
}

// DeleteCalendar removes a calendar and its events. Deleting the active
// calendar clears the active pointer.
func (s *Store) DeleteCalendar(name string) error {
	cal, err := s.lookup(name)
	if err != nil {
		return err
	}
	delete(s.calendars, calendarKey(cal.name))
	if s.current == cal {
		s.current = nil
	}
	s.publish(cal, event_bus.CalendarDeleted, len(cal.events))
	return nil
}

// Location returns the time zone of a calendar.
func (s *Store) Location(name string) (*time.Location, error) {
	cal, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	return cal.location, nil
}

// Events returns copies of all events of a calendar in insertion order.
func (s *Store) Events(name string) ([]Event, error) {
	cal, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	return cal.snapshot(), nil
}

// EventsInRange returns the events starting within [from, to], both ends
// included, ordered by start time.
func (s *Store) EventsInRange(name string, from, to time.Time) ([]Event, error) {
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("%w: range start and end are required", ErrValidation)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end is before range start", ErrValidation)
	}
	cal, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	result := make([]Event, 0)
	for _, e := range cal.events {
		if !e.StartTime.Before(from) && !e.StartTime.After(to) {
			result = append(result, e.clone())
		}
	}
	sortByStart(result)
	return result, nil
}

// EventsAt returns the events whose [start, end) interval contains instant.
func (s *Store) EventsAt(name string, instant time.Time) ([]Event, error) {
	if instant.IsZero() {
		return nil, fmt.Errorf("%w: instant is required", ErrValidation)
	}
	cal, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	result := make([]Event, 0)
	for _, e := range cal.events {
		if !instant.Before(e.StartTime) && instant.Before(e.EndTime) {
			result = append(result, e.clone())
		}
	}
	sortByStart(result)
	return result, nil
}

// IsBusy reports whether any event is in progress at instant.
func (s *Store) IsBusy(name string, instant time.Time) (bool, error) {
	events, err := s.EventsAt(name, instant)
	if err != nil {
		return false, err
	}
	return len(events) > 0, nil
}

// IsCalendarAvailable reports whether the calendar exists and, when date is
// given, has no event starting on that date. Only the year, month and day of
// date are used; they name a date in the calendar's zone.
func (s *Store) IsCalendarAvailable(name string, date *time.Time) bool {
	cal, err := s.lookup(name)
	if err != nil {
		return false
	}
	if date == nil {
		return true
	}
	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, cal.location)
	for _, e := range cal.events {
		if sameDate(e.StartTime, day) {
			return false
		}
	}
	return true
}

func (s *Store) lookup(name string) (*Calendar, error) {
	cal, ok := s.calendars[calendarKey(name)]
	if !ok {
		return nil, fmt.Errorf("%w: calendar %q", ErrNotFound, name)
	}
	return cal, nil
}

func (s *Store) resolve(name string) (*Calendar, error) {
	if name == "" {
		return s.active()
	}
	return s.lookup(name)
}

func (s *Store) active() (*Calendar, error) {
	if s.current == nil {
		return nil, ErrNoCalendarSelected
	}
	return s.current, nil
}

func (s *Store) publish(cal *Calendar, change event_bus.CalendarChange, count int) {
	s.publishChange(event_bus.CalendarChanged{
		Calendar: cal.name,
		Change:   change,
		Events:   count,
	})
}

func (s *Store) publishChange(changed event_bus.CalendarChanged) {
	if s.eventBus == nil {
		return
	}
	err := s.eventBus.Publish(event_bus.NewEvent(context.Background(), event_bus.CalendarChangedEvent, changed))
	if err != nil {
		log.Errorf("failed to publish %s for calendar %q: %v", changed.Change, changed.Calendar, err)
	}
}

func sortByStart(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})
}
