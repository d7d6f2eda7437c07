package event_bus

// CalendarChangedEvent is published by the calendar store after every
// committed mutation.
const CalendarChangedEvent EventType = "calendar.changed"

type CalendarChange string

const (
	CalendarCreated CalendarChange = "calendar.created"
	CalendarRenamed CalendarChange = "calendar.renamed"
	CalendarRetimed CalendarChange = "calendar.retimed"
	CalendarDeleted CalendarChange = "calendar.deleted"
	EventsAdded     CalendarChange = "events.added"
	EventsEdited    CalendarChange = "events.edited"
)

type CalendarChanged struct {
	Calendar string
	// Previous is the old name of a renamed calendar.
	Previous string
	Change   CalendarChange
	// Events is the number of events the change touched.
	Events int
}
