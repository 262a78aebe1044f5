package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"lab-status-backend/internal/model"
	"lab-status-backend/internal/registry"
)

// Store defines the contract every persistence backend must satisfy. Each
// method is atomic: a concurrent reader never observes a partially-written
// list or record. Cross-method read-modify-write spans are the caller's
// responsibility and go through the lock guard.
type Store interface {
	DB() *gorm.DB

	// Occupancy.
	SetOccupancy(ctx context.Context, stationID int, occupied bool, observedAt time.Time) error
	Occupancy(ctx context.Context, stationID int) (OccupancyRecord, error)
	Records(ctx context.Context) ([]OccupancyRecord, error)
	EffectiveSnapshot(ctx context.Context) (map[int]bool, error)

	// Admin overrides.
	SetOverride(ctx context.Context, stationID int, forced *bool) error
	Overrides(ctx context.Context) (map[int]bool, error)
	SetGlobalOverride(ctx context.Context, state string) error
	GlobalOverride(ctx context.Context) (string, error)

	// Per-type FIFO queues.
	Enqueue(ctx context.Context, stationType, identity, displayName string, now time.Time) error
	QueueEntries(ctx context.Context, stationType string) ([]model.QueueEntry, error)
	DequeueHead(ctx context.Context, stationType string) (*model.QueueEntry, error)
	RemoveFromQueue(ctx context.Context, stationType, identity string) error
	Reorder(ctx context.Context, stationType, identity, direction string) error
	Reposition(ctx context.Context, stationType, identity string, newIndex int) error

	// Claims.
	CreateClaim(ctx context.Context, claim model.Claim) error
	ActiveClaims(ctx context.Context) ([]model.Claim, error)
	ClaimByToken(ctx context.Context, token string) (model.Claim, error)
	MarkClaimConfirmed(ctx context.Context, token string) error
	DeleteClaim(ctx context.Context, token string) error

	// Change-detector snapshot.
	PreviousStates(ctx context.Context) (map[int]bool, error)
	SavePreviousStates(ctx context.Context, states map[int]bool) error

	// Push subscriptions.
	UpsertSubscription(ctx context.Context, sub model.PushSubscription) error
	SubscriptionsForIdentity(ctx context.Context, identity string) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	reg *registry.Registry
}

// NewGormStore creates a new GORM-backed store over the given registry.
func NewGormStore(db *gorm.DB, reg *registry.Registry) Store {
	return &gormStore{db: db, reg: reg}
}

// DB exposes the underlying handle for wiring (notification worker, tests).
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// SeedStations ensures every registered station has exactly one occupancy
// record. New stations start occupied with a zero observation time, so they
// read as unavailable and stale until the first probe reports them.
func SeedStations(db *gorm.DB, reg *registry.Registry) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, id := range reg.IDs() {
			var count int64
			if err := tx.Model(&model.StationStatus{}).Where("station_id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				if err := tx.Create(&model.StationStatus{StationID: id, Occupied: true}).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}
