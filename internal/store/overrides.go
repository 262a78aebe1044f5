package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lab-status-backend/internal/model"
)

// SetOverride forces a station's occupancy value; a nil value clears the
// override. Clearing an override that is not set fails with ErrNotFound so
// admin actions on stale state surface instead of silently succeeding.
func (s *gormStore) SetOverride(ctx context.Context, stationID int, forced *bool) error {
	if !s.reg.Known(stationID) {
		return fmt.Errorf("%w: %d", ErrUnknownStation, stationID)
	}

	if forced == nil {
		result := s.db.WithContext(ctx).Delete(&model.StationOverride{}, "station_id = ?", stationID)
		if result.Error != nil {
			return fmt.Errorf("failed to clear override for station %d: %w", stationID, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: no override set for station %d", ErrNotFound, stationID)
		}
		return nil
	}

	override := model.StationOverride{StationID: stationID, Occupied: *forced}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "station_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"occupied", "updated_at"}),
	}).Create(&override).Error; err != nil {
		return fmt.Errorf("failed to set override for station %d: %w", stationID, err)
	}
	return nil
}

// Overrides returns the forced occupancy value per station, for stations
// that have one.
func (s *gormStore) Overrides(ctx context.Context) (map[int]bool, error) {
	var overrides []model.StationOverride
	if err := s.db.WithContext(ctx).Find(&overrides).Error; err != nil {
		return nil, fmt.Errorf("failed to read overrides: %w", err)
	}
	out := make(map[int]bool, len(overrides))
	for _, o := range overrides {
		out[o.StationID] = o.Occupied
	}
	return out, nil
}

// SetGlobalOverride stores the manual lab-wide state override; an empty
// state clears it.
func (s *gormStore) SetGlobalOverride(ctx context.Context, state string) error {
	record := model.GlobalOverride{ID: 1, State: state, UpdatedAt: time.Now().UTC()}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at"}),
	}).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to set global override: %w", err)
	}
	return nil
}

// GlobalOverride returns the manual lab-wide state override, or "" if none.
func (s *gormStore) GlobalOverride(ctx context.Context) (string, error) {
	var record model.GlobalOverride
	err := s.db.WithContext(ctx).First(&record, "id = ?", 1).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", fmt.Errorf("failed to read global override: %w", err)
	}
	return record.State, nil
}
