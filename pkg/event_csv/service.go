package event_csv

import (
	"fmt"

	"github.com/klokku/calendars/pkg/calendar"
	log "github.com/sirupsen/logrus"
)

// Service moves events between calendars and interchange CSV text. Reading
// and writing files is left to callers.
type Service struct {
	guard *calendar.Guard
	mode  Mode
}

func NewService(guard *calendar.Guard, mode Mode) *Service {
	return &Service{guard: guard, mode: mode}
}

// Import decodes text in the calendar's zone and adds every event. Nothing is
// added unless the whole file is valid and free of conflicts.
func (s *Service) Import(calendarName string, text string) ([]calendar.Event, error) {
	var added []calendar.Event
	err := s.guard.Do(func(store *calendar.Store) error {
		loc, err := store.Location(calendarName)
		if err != nil {
			return err
		}
		specs, err := NewDecoder(loc, s.mode).Decode(text)
		if err != nil {
			return err
		}
		added, err = store.AddEvents(calendarName, specs)
		if err != nil {
			return fmt.Errorf("failed to add imported events: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Infof("imported %d event(s) into calendar %q", len(added), calendarName)
	return added, nil
}

// Restore decodes text in the calendar's zone and adds every event without
// conflict checks, for reloading a calendar's own export.
func (s *Service) Restore(calendarName string, text string) ([]calendar.Event, error) {
	var added []calendar.Event
	err := s.guard.Do(func(store *calendar.Store) error {
		loc, err := store.Location(calendarName)
		if err != nil {
			return err
		}
		specs, err := NewDecoder(loc, s.mode).Decode(text)
		if err != nil {
			return err
		}
		added, err = store.Restore(calendarName, specs)
		if err != nil {
			return fmt.Errorf("failed to restore events: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Infof("restored %d event(s) into calendar %q", len(added), calendarName)
	return added, nil
}

// Export renders every event of a calendar in insertion order.
func (s *Service) Export(calendarName string) (string, error) {
	var events []calendar.Event
	err := s.guard.Do(func(store *calendar.Store) (err error) {
		events, err = store.Events(calendarName)
		return err
	})
	if err != nil {
		return "", err
	}
	return Encode(events), nil
}
