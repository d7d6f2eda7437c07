package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandRecurrence_Count(t *testing.T) {
	// Wednesday
	start := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	spec := EventSpec{
		Name:            "Standup",
		StartTime:       start,
		EndTime:         start.Add(time.Hour),
		Description:     "daily sync",
		Location:        "Room 1",
		IsPublic:        true,
		IsRecurring:     true,
		RecurrenceDays:  []time.Weekday{time.Wednesday},
		RecurrenceCount: 3,
	}

	occurrences, err := ExpandRecurrence(spec)

	require.NoError(t, err)
	require.Len(t, occurrences, 3)
	wantDates := []time.Time{
		time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 19, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 26, 10, 0, 0, 0, time.UTC),
	}
	for i, o := range occurrences {
		assert.Equal(t, wantDates[i], o.StartTime)
		assert.Equal(t, wantDates[i].Add(time.Hour), o.EndTime)
		assert.True(t, o.IsPartOfRecurrence)
		assert.Equal(t, "daily sync", o.Description)
		assert.Equal(t, "Room 1", o.Location)
		assert.True(t, o.IsPublic)
		assert.Equal(t, []time.Weekday{time.Wednesday}, o.RecurrenceDays)
	}
}

func TestExpandRecurrence_CountOnSeveralWeekdays(t *testing.T) {
	// Monday
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	days := []time.Weekday{time.Tuesday, time.Thursday}
	occurrences, err := ExpandRecurrence(EventSpec{
		Name:            "Gym",
		StartTime:       start,
		EndTime:         start.Add(90 * time.Minute),
		IsRecurring:     true,
		RecurrenceDays:  days,
		RecurrenceCount: 5,
	})

	require.NoError(t, err)
	require.Len(t, occurrences, 5)
	for i, o := range occurrences {
		assert.Contains(t, days, o.StartTime.Weekday())
		if i > 0 {
			assert.True(t, o.StartTime.After(occurrences[i-1].StartTime))
		}
	}
	assert.Equal(t, time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC), occurrences[0].StartTime)
	assert.Equal(t, time.Date(2025, 3, 18, 9, 0, 0, 0, time.UTC), occurrences[4].StartTime)
}

func TestExpandRecurrence_EndDate(t *testing.T) {
	start := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	endDate := time.Date(2025, 3, 26, 0, 0, 0, 0, time.UTC)
	occurrences, err := ExpandRecurrence(EventSpec{
		Name:              "Review",
		StartTime:         start,
		EndTime:           start.Add(time.Hour),
		IsRecurring:       true,
		RecurrenceDays:    []time.Weekday{time.Monday, time.Wednesday},
		RecurrenceEndDate: endDate,
	})

	require.NoError(t, err)
	// Mar 12, 17, 19, 24, 26
	assert.Len(t, occurrences, 5)
	for _, o := range occurrences {
		assert.False(t, startOfDay(o.StartTime).After(endDate))
	}
	assert.Equal(t, time.Date(2025, 3, 26, 10, 0, 0, 0, time.UTC), occurrences[4].StartTime)
}

func TestExpandRecurrence_KeepsWallClockInZone(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// DST starts on 2025-03-09 in New York
	start := time.Date(2025, 3, 6, 10, 0, 0, 0, newYork)
	occurrences, err := ExpandRecurrence(EventSpec{
		Name:            "Call",
		StartTime:       start,
		EndTime:         start.Add(30 * time.Minute),
		IsRecurring:     true,
		RecurrenceDays:  []time.Weekday{time.Thursday},
		RecurrenceCount: 2,
	})

	require.NoError(t, err)
	require.Len(t, occurrences, 2)
	assert.Equal(t, 10, occurrences[1].StartTime.Hour())
	assert.Equal(t, 30, occurrences[1].EndTime.Minute())
}

func TestExpandRecurrence_Invalid(t *testing.T) {
	start := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	valid := EventSpec{
		Name:            "Standup",
		StartTime:       start,
		EndTime:         start.Add(time.Hour),
		IsRecurring:     true,
		RecurrenceDays:  []time.Weekday{time.Wednesday},
		RecurrenceCount: 3,
	}
	testCases := []struct {
		name   string
		modify func(s *EventSpec)
	}{
		{"Empty weekday set is rejected", func(s *EventSpec) { s.RecurrenceDays = nil }},
		{"Count and end date together", func(s *EventSpec) { s.RecurrenceEndDate = start.AddDate(0, 1, 0) }},
		{"Neither count nor end date", func(s *EventSpec) { s.RecurrenceCount = 0 }},
		{"Negative count", func(s *EventSpec) { s.RecurrenceCount = -2 }},
		{"Spans two days", func(s *EventSpec) { s.EndTime = start.AddDate(0, 0, 1) }},
		{"Missing name", func(s *EventSpec) { s.Name = " " }},
		{"End before start", func(s *EventSpec) { s.EndTime = start.Add(-time.Hour) }},
		{"Too many occurrences", func(s *EventSpec) { s.RecurrenceCount = maxOccurrences + 1 }},
		{"Far end date", func(s *EventSpec) {
			s.RecurrenceCount = 0
			s.RecurrenceDays = []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday}
			s.RecurrenceEndDate = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
		}},
		{"End date before start", func(s *EventSpec) {
			s.RecurrenceCount = 0
			s.RecurrenceEndDate = start.AddDate(0, 0, -7)
		}},
		{"Shorter than a minute", func(s *EventSpec) { s.EndTime = start.Add(30 * time.Second) }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			spec := valid
			tc.modify(&spec)
			_, err := ExpandRecurrence(spec)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
