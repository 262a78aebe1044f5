package model

import "time"

// QueueEntry is one waiting identity in a per-station-type FIFO queue.
// An identity appears at most once per type; Position is the list index.
type QueueEntry struct {
	ID          int64     `gorm:"autoIncrement;primaryKey"`
	StationType string    `gorm:"size:32;not null;uniqueIndex:idx_queue_type_identity,priority:1;index:idx_queue_type_position,priority:1"`
	Identity    string    `gorm:"size:256;not null;uniqueIndex:idx_queue_type_identity,priority:2"`
	DisplayName string    `gorm:"size:256;not null"`
	Position    int       `gorm:"not null;index:idx_queue_type_position,priority:2"`
	JoinedAt    time.Time `gorm:"not null"`
}
