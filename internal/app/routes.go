package app

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Calendars
	r.HandleFunc("/api/calendar", deps.CalendarHandler.ListCalendars).Methods("GET")
	r.HandleFunc("/api/calendar", deps.CalendarHandler.CreateCalendar).Methods("POST")
	r.HandleFunc("/api/calendar/{calendar}", deps.CalendarHandler.EditCalendar).Methods("PUT")
	r.HandleFunc("/api/calendar/{calendar}", deps.CalendarHandler.DeleteCalendar).Methods("DELETE")
	r.HandleFunc("/api/calendar/{calendar}/active", deps.CalendarHandler.UseCalendar).Methods("PUT")

	// Events
	r.HandleFunc("/api/event", deps.CalendarHandler.CreateEvent).Methods("POST")
	r.HandleFunc("/api/calendar/{calendar}/event", deps.CalendarHandler.GetEvents).Queries("from", "{from}", "to", "{to}").Methods("GET")
	r.HandleFunc("/api/calendar/{calendar}/event", deps.CalendarHandler.EditEvent).Methods("PUT")
	r.HandleFunc("/api/calendar/{calendar}/events", deps.CalendarHandler.EditEvents).Methods("PUT")
	r.HandleFunc("/api/calendar/{calendar}/copy", deps.CalendarHandler.CopyEvent).Methods("POST")
	r.HandleFunc("/api/calendar/{calendar}/copy-range", deps.CalendarHandler.CopyEvents).Methods("POST")

	// Queries
	r.HandleFunc("/api/calendar/{calendar}/status", deps.CalendarHandler.GetStatus).Queries("at", "{at}").Methods("GET")
	r.HandleFunc("/api/calendar/{calendar}/availability", deps.CalendarHandler.GetAvailability).Methods("GET")

	// Import / export
	r.HandleFunc("/api/calendar/{calendar}/export.csv", deps.CsvHandler.ExportCalendar).Methods("GET")
	r.HandleFunc("/api/calendar/{calendar}/import", deps.CsvHandler.ImportCalendar).Methods("POST")
	r.HandleFunc("/api/calendar/{calendar}/export.ics", deps.IcalHandler.ExportCalendar).Methods("GET")
}
