package event_csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klokku/calendars/pkg/calendar"
	log "github.com/sirupsen/logrus"
)

// Header is the first line of every interchange file.
const Header = "Subject,Start Date,Start Time,End Date,End Time,All Day Event,Description,Location,Private"

const columnCount = 9

const (
	dateLayout = "01/02/2006"
	timeLayout = "03:04 PM"
)

var (
	dateLayouts = []string{dateLayout, "1/2/2006"}
	timeLayouts = []string{timeLayout, "3:04 PM"}
)

var ErrInvalidHeader = errors.New("invalid CSV header")

// ImportValidationError carries every line-tagged problem found in a file.
type ImportValidationError struct {
	Messages []string
}

func (e *ImportValidationError) Error() string {
	return strings.Join(e.Messages, "\n")
}

// Mode selects how rows with too few columns are treated.
type Mode int

const (
	// Strict reports missing columns as missing values.
	Strict Mode = iota
	// Lenient silently skips rows with too few columns.
	Lenient
)

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return Strict, nil
	case "lenient":
		return Lenient, nil
	default:
		return Strict, fmt.Errorf("unknown CSV import mode %q", s)
	}
}

// Encode renders events as interchange CSV, one row per event in the given
// order. Times are written in each event's own location.
func Encode(events []calendar.Event) string {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteString("\n")
	for _, e := range events {
		startTime, endTime := e.StartTime.Format(timeLayout), e.EndTime.Format(timeLayout)
		allDay := e.IsAllDay()
		if allDay {
			startTime, endTime = "", ""
		}
		fmt.Fprintf(&b, "%s,%s,%s,%s,%s,%s,%s,%s,%s\n",
			quote(e.Name),
			e.StartTime.Format(dateLayout),
			startTime,
			e.EndTime.Format(dateLayout),
			endTime,
			boolString(allDay),
			quote(e.Description),
			quote(e.Location),
			boolString(!e.IsPublic),
		)
	}
	return b.String()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func boolString(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// Decoder turns interchange CSV into event specs for one calendar.
type Decoder struct {
	location *time.Location
	mode     Mode
}

func NewDecoder(location *time.Location, mode Mode) *Decoder {
	return &Decoder{location: location, mode: mode}
}

// Decode validates every row before returning. The first line must be the
// header verbatim and fails immediately otherwise; any other problem is collected and the whole file is rejected
// with an *ImportValidationError listing all of them.
func (d *Decoder) Decode(text string) ([]calendar.EventSpec, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	firstLine, _, _ := strings.Cut(text, "\n")
	if strings.TrimSuffix(firstLine, "\r") != Header {
		return nil, fmt.Errorf("Line 1: %w, expected %q", ErrInvalidHeader, Header)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("Line 1: %w: %v", ErrInvalidHeader, err)
	}

	var specs []calendar.EventSpec
	var messages []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				messages = append(messages, fmt.Sprintf("Line %d: %v", parseErr.StartLine, parseErr.Err))
				continue
			}
			return nil, err
		}
		line, _ := reader.FieldPos(0)
		if len(record) < columnCount {
			if d.mode == Lenient {
				log.Debugf("skipping CSV line %d with %d columns", line, len(record))
				continue
			}
			record = append(record, make([]string, columnCount-len(record))...)
		}

		spec, problems := d.decodeRow(record)
		for _, problem := range problems {
			messages = append(messages, fmt.Sprintf("Line %d: %s", line, problem))
		}
		if len(problems) == 0 {
			specs = append(specs, spec)
		}
	}

	if len(messages) > 0 {
		return nil, &ImportValidationError{Messages: messages}
	}
	return specs, nil
}

type row struct {
	subject, startDate, startTime, endDate, endTime, allDay, description, location, private string
}

func (d *Decoder) decodeRow(record []string) (calendar.EventSpec, []string) {
	r := row{
		subject:     strings.TrimSpace(record[0]),
		startDate:   strings.TrimSpace(record[1]),
		startTime:   strings.TrimSpace(record[2]),
		endDate:     strings.TrimSpace(record[3]),
		endTime:     strings.TrimSpace(record[4]),
		allDay:      strings.TrimSpace(record[5]),
		description: record[6],
		location:    record[7],
		private:     strings.TrimSpace(record[8]),
	}

	var problems []string
	if r.subject == "" {
		problems = append(problems, "Event name is mandatory")
	}
	if r.startDate == "" {
		problems = append(problems, "Start date is mandatory")
	}
	if r.endDate == "" {
		problems = append(problems, "End date is mandatory")
	}
	allDay, allDayOk := parseBool(r.allDay)
	if !allDayOk {
		problems = append(problems, "All Day Event must be TRUE or FALSE")
	}
	private, privateOk := parseBool(r.private)
	if !privateOk {
		problems = append(problems, "Private must be TRUE or FALSE")
	}
	if allDayOk && !allDay {
		if r.startTime == "" {
			problems = append(problems, "Start time is mandatory for non-all-day events")
		}
		if r.endTime == "" {
			problems = append(problems, "End time is mandatory for non-all-day events")
		}
	}
	if len(problems) > 0 {
		return calendar.EventSpec{}, problems
	}

	start, end, err := d.interval(r, allDay)
	if err != nil {
		return calendar.EventSpec{}, []string{"Invalid date/time format"}
	}
	if !end.After(start) {
		return calendar.EventSpec{}, []string{"End date/time must be after start date/time"}
	}
	return calendar.EventSpec{
		Name:        r.subject,
		StartTime:   start,
		EndTime:     end,
		Description: r.description,
		Location:    r.location,
		IsPublic:    !private,
		AutoDecline: true,
	}, nil
}

func (d *Decoder) interval(r row, allDay bool) (time.Time, time.Time, error) {
	startDate, err := parseDate(r.startDate, d.location)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endDate, err := parseDate(r.endDate, d.location)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if allDay {
		y, m, day := endDate.Date()
		return startDate, time.Date(y, m, day, 23, 59, 59, 0, endDate.Location()), nil
	}
	start, err := atClock(startDate, r.startTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := atClock(endDate, r.endTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func parseDate(value string, loc *time.Location) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func atClock(date time.Time, value string) (time.Time, error) {
	value = strings.ToUpper(value)
	var err error
	for _, layout := range timeLayouts {
		var clock time.Time
		if clock, err = time.Parse(layout, value); err == nil {
			return time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), 0, 0, date.Location()), nil
		}
	}
	return time.Time{}, err
}

func parseBool(value string) (bool, bool) {
	switch strings.ToUpper(value) {
	case "TRUE":
		return true, true
	case "FALSE":
		return false, true
	default:
		return false, false
	}
}
