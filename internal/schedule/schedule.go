// Package schedule evaluates the uploaded course calendar against the
// current instant. Exactly one implementation of this logic exists; the
// prober, the claim evaluator, and the HTTP handlers all consume it through
// the cached Source.
package schedule

import "time"

// Signal is the schedule authority's verdict for one instant. Values are
// ordered by precedence: when several events overlap, the highest wins.
type Signal int

const (
	SignalNone Signal = iota
	SignalOfficeHours
	SignalRestrictedSession
	SignalMaintenance
)

// String returns the wire/display name of the signal.
func (s Signal) String() string {
	switch s {
	case SignalOfficeHours:
		return "office_hours"
	case SignalRestrictedSession:
		return "restricted_session"
	case SignalMaintenance:
		return "maintenance"
	default:
		return "none"
	}
}

// Event is one time-boxed calendar event, matched by half-open interval
// containment: Start <= now < End.
type Event struct {
	Kind  Signal
	Start time.Time
	End   time.Time
}

// Active reports whether the event covers the instant.
func (e Event) Active(now time.Time) bool {
	return !now.Before(e.Start) && now.Before(e.End)
}

// Resolve returns the highest-precedence signal among events active at now.
// It is a pure function of the event set and the instant: repeated calls
// within the same instant produce the same output regardless of event order.
func Resolve(events []Event, now time.Time) Signal {
	signal := SignalNone
	for _, e := range events {
		if e.Active(now) && e.Kind > signal {
			signal = e.Kind
		}
	}
	return signal
}
