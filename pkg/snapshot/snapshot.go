package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klokku/calendars/internal/event_bus"
	"github.com/klokku/calendars/internal/utils"
	"github.com/klokku/calendars/pkg/calendar"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Codec reads and writes one calendar as CSV text.
type Codec interface {
	Restore(calendarName string, text string) ([]calendar.Event, error)
	Export(calendarName string) (string, error)
}

// Snapshot keeps a single CSV file in step with one calendar. Changes seen on
// the event bus mark it dirty; Flush rewrites the file only when dirty.
type Snapshot struct {
	path     string
	calendar string
	codec    Codec
	clock    utils.Clock
	cron     *cron.Cron

	dirty       atomic.Bool
	mu          sync.Mutex
	lastWritten time.Time
	unsubscribe func()
}

func New(path, calendarName string, codec Codec, bus *event_bus.EventBus, clock utils.Clock) *Snapshot {
	s := &Snapshot{
		path:     path,
		calendar: calendarName,
		codec:    codec,
		clock:    clock,
	}
	s.unsubscribe = event_bus.SubscribeTyped(bus, event_bus.CalendarChangedEvent, func(e event_bus.EventT[event_bus.CalendarChanged]) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if e.Data.Change == event_bus.CalendarRenamed && calendarKey(e.Data.Previous) == calendarKey(s.calendar) {
			s.calendar = e.Data.Calendar
		}
		s.dirty.Store(true)
		return nil
	})
	return s
}

// Load imports the snapshot file into the calendar. A missing file is not an
// error.
func (s *Snapshot) Load() (int, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		log.Infof("No snapshot found at %s, starting empty", s.path)
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read snapshot %s: %w", s.path, err)
	}
	added, err := s.codec.Restore(s.calendarName(), string(data))
	if err != nil {
		return 0, fmt.Errorf("failed to load snapshot %s: %w", s.path, err)
	}
	s.dirty.Store(false)
	log.Infof("Loaded %d event(s) from snapshot %s", len(added), s.path)
	return len(added), nil
}

// Flush writes the calendar to the snapshot file if it changed since the last
// write. The file is replaced atomically.
func (s *Snapshot) Flush() error {
	if !s.dirty.Swap(false) {
		return nil
	}
	name := s.calendarName()
	text, err := s.codec.Export(name)
	if err != nil {
		if errors.Is(err, calendar.ErrNotFound) {
			log.Warnf("Snapshot calendar %q no longer exists, skipping write", name)
			return nil
		}
		s.dirty.Store(true)
		return fmt.Errorf("failed to export calendar %q: %w", name, err)
	}
	if err := writeFile(s.path, text); err != nil {
		s.dirty.Store(true)
		return err
	}
	s.mu.Lock()
	s.lastWritten = s.clock.Now()
	s.mu.Unlock()
	log.Infof("Snapshot of calendar %q written to %s", name, s.path)
	return nil
}

func (s *Snapshot) LastWritten() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastWritten
}

// Start schedules Flush with a cron spec such as "@every 1m".
func (s *Snapshot) Start(schedule string) error {
	logger := cron.PrintfLogger(log.StandardLogger())
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(logger)))
	_, err := s.cron.AddFunc(schedule, func() {
		if err := s.Flush(); err != nil {
			log.Errorf("snapshot flush failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("add snapshot job %q: %w", schedule, err)
	}
	s.cron.Start()
	log.Infof("Snapshot scheduler started (schedule: %s, path: %s)", schedule, s.path)
	return nil
}

// Stop waits for a running flush, then writes any pending changes.
func (s *Snapshot) Stop() error {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.unsubscribe()
	return s.Flush()
}

func (s *Snapshot) calendarName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calendar
}

func calendarKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func writeFile(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}
