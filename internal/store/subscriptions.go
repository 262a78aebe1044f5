package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"lab-status-backend/internal/model"
)

// UpsertSubscription registers or refreshes a push subscription, keyed by
// endpoint.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub model.PushSubscription) error {
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"identity", "p256dh", "auth"}),
	}).Create(&sub).Error; err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

// SubscriptionsForIdentity returns every push subscription registered by one
// identity.
func (s *gormStore) SubscriptionsForIdentity(ctx context.Context, identity string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("identity = ?", identity).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to read subscriptions for %s: %w", identity, err)
	}
	return subs, nil
}

// DeleteSubscription drops a subscription by endpoint (unsubscribe or a 410
// from the push service).
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription %s: %w", endpoint, err)
	}
	return nil
}
