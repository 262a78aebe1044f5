package registry

import (
	"fmt"
	"sort"

	"lab-status-backend/config"
)

// ErrUnknownStation is returned for ids outside the configured registry.
var ErrUnknownStation = fmt.Errorf("unknown station")

// Station is one configured station.
type Station struct {
	ID   int
	Type string
	Host string
}

// Registry is the static partition of station ids into typed groups.
// It is built once from configuration and is safe for concurrent reads.
type Registry struct {
	byID   map[int]Station
	byType map[string][]int
	ids    []int
	types  []string
}

// New builds a registry from the configured station list.
func New(stations []config.StationConfig) *Registry {
	r := &Registry{
		byID:   make(map[int]Station, len(stations)),
		byType: make(map[string][]int),
	}
	for _, s := range stations {
		st := Station{ID: s.ID, Type: s.Type, Host: s.Host}
		r.byID[st.ID] = st
		r.byType[st.Type] = append(r.byType[st.Type], st.ID)
		r.ids = append(r.ids, st.ID)
	}
	sort.Ints(r.ids)
	for t, ids := range r.byType {
		sort.Ints(ids)
		r.types = append(r.types, t)
	}
	sort.Strings(r.types)
	return r
}

// Station returns the station for an id.
func (r *Registry) Station(id int) (Station, error) {
	s, ok := r.byID[id]
	if !ok {
		return Station{}, fmt.Errorf("%w: %d", ErrUnknownStation, id)
	}
	return s, nil
}

// TypeOf returns the type of a station id.
func (r *Registry) TypeOf(id int) (string, error) {
	s, err := r.Station(id)
	if err != nil {
		return "", err
	}
	return s.Type, nil
}

// Known reports whether the id belongs to the registry.
func (r *Registry) Known(id int) bool {
	_, ok := r.byID[id]
	return ok
}

// KnownType reports whether the type has at least one station.
func (r *Registry) KnownType(t string) bool {
	return len(r.byType[t]) > 0
}

// IDs returns all station ids in ascending order.
func (r *Registry) IDs() []int {
	out := make([]int, len(r.ids))
	copy(out, r.ids)
	return out
}

// IDsOfType returns the station ids of one type in ascending order.
func (r *Registry) IDsOfType(t string) []int {
	ids := r.byType[t]
	out := make([]int, len(ids))
	copy(out, ids)
	return out
}

// Types returns the configured station types in sorted order.
func (r *Registry) Types() []string {
	out := make([]string, len(r.types))
	copy(out, r.types)
	return out
}
