// Package labstate derives the display-level lab state from the schedule
// authority, admin overrides, and live occupancy counts. The state is
// recomputed per query and never stored.
package labstate

import (
	"context"
	"log"
	"time"

	"lab-status-backend/internal/registry"
	"lab-status-backend/internal/schedule"
	"lab-status-backend/internal/store"
)

// State is the derived operational state of the lab.
type State string

const (
	StateOpen            State = "open"
	StateFull            State = "full"
	StateRestricted      State = "restricted"
	StateMaintenance     State = "maintenance"
	StateOfficeHoursOpen State = "office_hours_open"
	StateOfficeHoursFull State = "office_hours_full"
)

// Valid reports whether s is one of the defined states; used to vet manual
// overrides coming from the admin surface.
func (s State) Valid() bool {
	switch s {
	case StateOpen, StateFull, StateRestricted, StateMaintenance,
		StateOfficeHoursOpen, StateOfficeHoursFull:
		return true
	}
	return false
}

// Display colors, carried over from the lab room floor plan.
const (
	colorGreen  = "#C8F9BE"
	colorRed    = "#FE9193"
	colorYellow = "#FFE9A8"
)

var stateColors = map[State]string{
	StateOpen:            colorGreen,
	StateFull:            colorRed,
	StateRestricted:      colorYellow,
	StateMaintenance:     colorRed,
	StateOfficeHoursOpen: colorGreen,
	StateOfficeHoursFull: colorRed,
}

// TypeCount is the availability summary for one station type.
type TypeCount struct {
	Available    int  `json:"available"`
	Total        int  `json:"total"`
	QueueVisible bool `json:"queue_visible"`
}

// LabState is the full derived state handed to the presentation layer.
type LabState struct {
	State      State                `json:"state"`
	Color      string               `json:"color"`
	Signal     string               `json:"signal"`
	Counts     map[string]TypeCount `json:"counts"`
	Overridden bool                 `json:"overridden"`
	Stale      bool                 `json:"stale"`
}

// Resolver merges schedule, overrides, and occupancy into one LabState.
type Resolver struct {
	store      store.Store
	reg        *registry.Registry
	sched      *schedule.Source
	staleAfter time.Duration
}

// NewResolver creates a resolver over the shared store and schedule source.
func NewResolver(s store.Store, reg *registry.Registry, sched *schedule.Source, staleAfter time.Duration) *Resolver {
	return &Resolver{store: s, reg: reg, sched: sched, staleAfter: staleAfter}
}

// Resolve computes the lab state for the given instant. It never fails: on a
// store error it returns a best-effort state flagged as stale. Priority:
// manual global override, then schedule maintenance, then the full/open
// split with schedule office-hours or restricted-session factored in.
func (r *Resolver) Resolve(ctx context.Context, now time.Time, manualOverride State) LabState {
	records, err := r.store.Records(ctx)
	if err != nil {
		log.Printf("Error reading occupancy for state resolution: %v", err)
	}

	counts := make(map[string]TypeCount, len(r.reg.Types()))
	for _, t := range r.reg.Types() {
		counts[t] = TypeCount{Total: len(r.reg.IDsOfType(t))}
	}

	stale := err != nil
	for _, record := range records {
		if record.ObservedAt.IsZero() || now.Sub(record.ObservedAt) > r.staleAfter {
			stale = true
		}
		if record.Effective() {
			continue
		}
		t, terr := r.reg.TypeOf(record.StationID)
		if terr != nil {
			continue
		}
		c := counts[t]
		c.Available++
		counts[t] = c
	}

	anyAvailable := false
	for t, c := range counts {
		c.QueueVisible = c.Available == 0
		counts[t] = c
		if c.Available > 0 {
			anyAvailable = true
		}
	}

	signal := r.sched.Resolve(now)

	state := resolveState(manualOverride, signal, anyAvailable)
	return LabState{
		State:      state,
		Color:      stateColors[state],
		Signal:     signal.String(),
		Counts:     counts,
		Overridden: manualOverride.Valid(),
		Stale:      stale,
	}
}

func resolveState(manual State, signal schedule.Signal, anyAvailable bool) State {
	if manual.Valid() {
		return manual
	}
	switch signal {
	case schedule.SignalMaintenance:
		return StateMaintenance
	case schedule.SignalRestrictedSession:
		return StateRestricted
	case schedule.SignalOfficeHours:
		if anyAvailable {
			return StateOfficeHoursOpen
		}
		return StateOfficeHoursFull
	default:
		if anyAvailable {
			return StateOpen
		}
		return StateFull
	}
}
