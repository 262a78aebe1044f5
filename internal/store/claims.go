package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"lab-status-backend/internal/model"
)

// CreateClaim persists a freshly minted claim.
func (s *gormStore) CreateClaim(ctx context.Context, claim model.Claim) error {
	if err := s.db.WithContext(ctx).Create(&claim).Error; err != nil {
		return fmt.Errorf("failed to create claim for station %d: %w", claim.StationID, err)
	}
	return nil
}

// ActiveClaims returns every persisted claim (pending or confirmed) in
// creation order.
func (s *gormStore) ActiveClaims(ctx context.Context) ([]model.Claim, error) {
	var claims []model.Claim
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&claims).Error; err != nil {
		return nil, fmt.Errorf("failed to read claims: %w", err)
	}
	return claims, nil
}

// ClaimByToken looks up one claim; ErrTokenUnknown if it was never issued or
// has already left the active set.
func (s *gormStore) ClaimByToken(ctx context.Context, token string) (model.Claim, error) {
	var claim model.Claim
	err := s.db.WithContext(ctx).First(&claim, "token = ?", token).Error
	if err == gorm.ErrRecordNotFound {
		return model.Claim{}, ErrTokenUnknown
	}
	if err != nil {
		return model.Claim{}, fmt.Errorf("failed to read claim: %w", err)
	}
	return claim, nil
}

// MarkClaimConfirmed flips a claim to confirmed.
func (s *gormStore) MarkClaimConfirmed(ctx context.Context, token string) error {
	result := s.db.WithContext(ctx).Model(&model.Claim{}).
		Where("token = ?", token).
		Update("confirmed", true)
	if result.Error != nil {
		return fmt.Errorf("failed to confirm claim: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTokenUnknown
	}
	return nil
}

// DeleteClaim removes a claim from the active set (expiry, supersession, or
// clearing a confirmed claim once its station is occupied).
func (s *gormStore) DeleteClaim(ctx context.Context, token string) error {
	result := s.db.WithContext(ctx).Delete(&model.Claim{}, "token = ?", token)
	if result.Error != nil {
		return fmt.Errorf("failed to delete claim: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTokenUnknown
	}
	return nil
}
