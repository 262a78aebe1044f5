package model

import "time"

// StationStatus holds the last probed occupancy bit for a station (hot table).
type StationStatus struct {
	StationID  int       `gorm:"primaryKey"`
	Occupied   bool      `gorm:"not null"`
	ObservedAt time.Time `gorm:"not null"`
}

// StationOverride is an admin-forced occupancy value masking the probed one.
// Row presence means the override is set; clearing deletes the row.
type StationOverride struct {
	StationID int       `gorm:"primaryKey"`
	Occupied  bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// GlobalOverride is the single-row manual lab state override. An empty State
// means no override is active.
type GlobalOverride struct {
	ID        int       `gorm:"primaryKey"`
	State     string    `gorm:"size:32;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// PreviousState is one station's occupancy bit as of the last completed
// evaluation cycle, persisted so the change detector survives restarts.
type PreviousState struct {
	StationID int  `gorm:"primaryKey"`
	Occupied  bool `gorm:"not null"`
}
