package app

import (
	"fmt"

	"github.com/klokku/calendars/internal/config"
	"github.com/klokku/calendars/internal/event_bus"
	"github.com/klokku/calendars/internal/utils"
	"github.com/klokku/calendars/pkg/calendar"
	"github.com/klokku/calendars/pkg/event_csv"
	"github.com/klokku/calendars/pkg/ical_export"
	"github.com/klokku/calendars/pkg/snapshot"
	log "github.com/sirupsen/logrus"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	EventBus *event_bus.EventBus
	Clock    utils.Clock

	Store           *calendar.Store
	Guard           *calendar.Guard
	CalendarHandler *calendar.Handler

	CsvService *event_csv.Service
	CsvHandler *event_csv.Handler

	IcalHandler *ical_export.Handler

	// Snapshot is nil when snapshots are disabled.
	Snapshot *snapshot.Snapshot
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(cfg config.Application) (*Dependencies, error) {
	deps := &Dependencies{}

	deps.EventBus = event_bus.NewEventBus()
	event_bus.SubscribeTyped(deps.EventBus, event_bus.CalendarChangedEvent, func(e event_bus.EventT[event_bus.CalendarChanged]) error {
		log.Debugf("calendar %q: %s (%d events)", e.Data.Calendar, e.Data.Change, e.Data.Events)
		return nil
	})
	deps.Clock = &utils.SystemClock{}

	deps.Store = calendar.NewStore(deps.EventBus)
	if err := deps.Store.CreateCalendar(cfg.Calendar.Name, cfg.Calendar.Timezone); err != nil {
		return nil, fmt.Errorf("failed to create default calendar: %w", err)
	}
	if err := deps.Store.UseCalendar(cfg.Calendar.Name); err != nil {
		return nil, err
	}
	deps.Guard = calendar.NewGuard(deps.Store)
	deps.CalendarHandler = calendar.NewHandler(deps.Guard)

	mode, err := event_csv.ParseMode(cfg.Import.Mode)
	if err != nil {
		return nil, err
	}
	deps.CsvService = event_csv.NewService(deps.Guard, mode)
	deps.CsvHandler = event_csv.NewHandler(deps.CsvService)

	deps.IcalHandler = ical_export.NewHandler(deps.Guard, deps.Clock)

	if cfg.Snapshot.Enabled {
		deps.Snapshot = snapshot.New(cfg.Snapshot.Path, cfg.Calendar.Name, deps.CsvService, deps.EventBus, deps.Clock)
	}

	return deps, nil
}
