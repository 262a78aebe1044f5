// Package detect computes occupancy transitions between two persisted
// snapshots. It is a pure function: the claim evaluator feeds it the
// previous cycle's snapshot and writes the current one back afterwards.
package detect

import "sort"

// Transition is one station's observed occupancy flip.
type Transition struct {
	StationID int
	Freed     bool // true: occupied -> free, false: free -> occupied
}

// Diff returns the transitions between two snapshots in ascending station id
// order. Stations absent from either side are unknown and excluded; absence
// is never synthesized into a transition.
func Diff(previous, current map[int]bool) []Transition {
	var transitions []Transition
	for id, occupied := range current {
		prev, known := previous[id]
		if !known || prev == occupied {
			continue
		}
		transitions = append(transitions, Transition{StationID: id, Freed: prev && !occupied})
	}
	sort.Slice(transitions, func(i, j int) bool {
		return transitions[i].StationID < transitions[j].StationID
	})
	return transitions
}
