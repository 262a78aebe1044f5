package model

import "time"

// PushSubscription holds a browser push subscription registered by a queue
// member; Identity links it to the queue/claim owner.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	Identity  string    `gorm:"size:256;not null;index"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}
