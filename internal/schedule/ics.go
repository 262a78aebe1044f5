package schedule

import (
	"errors"
	"fmt"
	"os"
	"strings"

	ics "github.com/arran4/golang-ical"
)

// ErrMalformedSchedule marks a calendar file that failed validation. A file
// that fails to load never replaces a previously loaded event set.
var ErrMalformedSchedule = errors.New("malformed schedule file")

// LoadICS reads and validates the calendar at path. A missing file is not an
// error: it simply yields no events. Events whose summary matches none of
// the recognized kinds are skipped, as the lab calendar also carries
// lectures and deadlines that do not gate the lab.
func LoadICS(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open schedule file: %w", err)
	}
	defer f.Close()

	cal, err := ics.ParseCalendar(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSchedule, err)
	}

	var events []Event
	for _, component := range cal.Events() {
		kind := classify(summaryOf(component))
		if kind == SignalNone {
			continue
		}

		start, err := component.GetStartAt()
		if err != nil {
			return nil, fmt.Errorf("%w: event has no valid DTSTART: %v", ErrMalformedSchedule, err)
		}
		end, err := component.GetEndAt()
		if err != nil {
			return nil, fmt.Errorf("%w: event has no valid DTEND: %v", ErrMalformedSchedule, err)
		}
		if !end.After(start) {
			return nil, fmt.Errorf("%w: event ends before it starts", ErrMalformedSchedule)
		}

		events = append(events, Event{Kind: kind, Start: start, End: end})
	}
	return events, nil
}

func summaryOf(event *ics.VEvent) string {
	prop := event.GetProperty(ics.ComponentPropertySummary)
	if prop == nil {
		return ""
	}
	return prop.Value
}

// classify maps an event summary to a signal kind by keyword, mirroring how
// the lab calendar is actually written ("Lab Maintenance", "Lab OH",
// "EECS Lab Section ...").
func classify(summary string) Signal {
	s := strings.ToLower(summary)
	switch {
	case strings.Contains(s, "maintenance"):
		return SignalMaintenance
	case strings.Contains(s, "office hours"), strings.Contains(s, "lab oh"):
		return SignalOfficeHours
	case strings.Contains(s, "section"), strings.Contains(s, "restricted"):
		return SignalRestrictedSession
	default:
		return SignalNone
	}
}
