package model

import "time"

// Claim statuses. Only pending and confirmed claims are persisted; expired
// and superseded are terminal and leave the active set immediately.
const (
	ClaimPending    = "pending"
	ClaimConfirmed  = "confirmed"
	ClaimExpired    = "expired"
	ClaimSuperseded = "superseded"
)

// Claim is a time-boxed exclusive offer of a freed station to a queue head.
type Claim struct {
	Token       string    `gorm:"primaryKey;size:64"`
	StationID   int       `gorm:"not null;index"`
	StationType string    `gorm:"size:32;not null;index"`
	Identity    string    `gorm:"size:256;not null;index"`
	DisplayName string    `gorm:"size:256;not null"`
	CreatedAt   time.Time `gorm:"not null"`
	ExpiresAt   time.Time `gorm:"not null"`
	Confirmed   bool      `gorm:"not null"`
}

// Active reports whether the claim still blocks its station at the given
// instant: confirmed claims never lapse on their own, pending ones do.
func (c Claim) Active(now time.Time) bool {
	return c.Confirmed || now.Before(c.ExpiresAt)
}
