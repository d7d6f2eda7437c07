package calendar

import "time"

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// intersect. Touching endpoints do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// Conflicts reports whether [start,end) overlaps any of the given events.
func Conflicts(start, end time.Time, existing []Event) bool {
	for _, e := range existing {
		if Overlaps(start, end, e.StartTime, e.EndTime) {
			return true
		}
	}
	return false
}
