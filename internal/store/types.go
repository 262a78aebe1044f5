package store

import "time"

// OccupancyRecord is one station's occupancy as seen by readers: the raw
// probed bit plus the admin override masking it, if any.
type OccupancyRecord struct {
	StationID  int       `json:"station_id"`
	Occupied   bool      `json:"occupied"`
	ObservedAt time.Time `json:"observed_at"`
	Override   *bool     `json:"override,omitempty"`
}

// Effective returns the occupancy bit with the override applied.
func (r OccupancyRecord) Effective() bool {
	if r.Override != nil {
		return *r.Override
	}
	return r.Occupied
}

// Queue reorder directions.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)
