package calendar

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// maxOccurrences caps a single expansion so an end date far in the future
// cannot materialize an unbounded series.
const maxOccurrences = 5000

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// ExpandRecurrence turns a recurring spec into its concrete occurrences, in
// date order. Every date from the template's start date onwards whose weekday
// is in RecurrenceDays gets one occurrence, until RecurrenceCount occurrences
// were produced or the date passes RecurrenceEndDate.
func ExpandRecurrence(spec EventSpec) ([]Event, error) {
	if err := spec.validateBase(); err != nil {
		return nil, err
	}
	if !spec.IsRecurring {
		return nil, fmt.Errorf("%w: %q is not a recurring event", ErrValidation, spec.Name)
	}
	if err := spec.validateRecurrence(); err != nil {
		return nil, err
	}
	if spec.RecurrenceCount > maxOccurrences {
		return nil, fmt.Errorf("%w: recurrence count exceeds %d", ErrValidation, maxOccurrences)
	}

	loc := spec.StartTime.Location()
	option := rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: spec.StartTime,
		Count:   spec.RecurrenceCount,
	}
	for _, day := range spec.RecurrenceDays {
		option.Byweekday = append(option.Byweekday, rruleWeekdays[day])
	}
	if !spec.RecurrenceEndDate.IsZero() {
		y, m, d := spec.RecurrenceEndDate.Date()
		option.Until = time.Date(y, m, d, 23, 59, 59, 0, loc)
	}

	rule, err := rrule.NewRRule(option)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid recurrence: %v", ErrValidation, err)
	}
	var starts []time.Time
	next := rule.Iterator()
	for start, ok := next(); ok; start, ok = next() {
		if len(starts) == maxOccurrences {
			return nil, fmt.Errorf("%w: recurrence produces more than %d occurrences", ErrValidation, maxOccurrences)
		}
		starts = append(starts, start)
	}
	if len(starts) == 0 {
		return nil, fmt.Errorf("%w: recurrence of %q produces no occurrences", ErrValidation, spec.Name)
	}

	endHour, endMinute, endSecond := spec.EndTime.Clock()
	occurrences := make([]Event, 0, len(starts))
	for _, start := range starts {
		y, m, d := start.Date()
		occurrences = append(occurrences, Event{
			Name:               spec.Name,
			StartTime:          start,
			EndTime:            time.Date(y, m, d, endHour, endMinute, endSecond, spec.EndTime.Nanosecond(), loc),
			Description:        spec.Description,
			Location:           spec.Location,
			IsPublic:           spec.IsPublic,
			IsPartOfRecurrence: true,
			RecurrenceDays:     append([]time.Weekday(nil), spec.RecurrenceDays...),
			AutoDecline:        spec.AutoDecline,
		})
	}
	return occurrences, nil
}
