package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"lab-status-backend/internal/model"
)

// PreviousStates loads the occupancy snapshot written by the last completed
// evaluation cycle. An empty map means no cycle has run yet.
func (s *gormStore) PreviousStates(ctx context.Context) (map[int]bool, error) {
	var rows []model.PreviousState
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read previous states: %w", err)
	}
	states := make(map[int]bool, len(rows))
	for _, r := range rows {
		states[r.StationID] = r.Occupied
	}
	return states, nil
}

// SavePreviousStates replaces the snapshot atomically, so a crashed cycle
// never leaves a half-written baseline for the change detector.
func (s *gormStore) SavePreviousStates(ctx context.Context, states map[int]bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.PreviousState{}).Error; err != nil {
			return fmt.Errorf("failed to clear previous states: %w", err)
		}
		for id, occupied := range states {
			if err := tx.Create(&model.PreviousState{StationID: id, Occupied: occupied}).Error; err != nil {
				return fmt.Errorf("failed to save previous state for station %d: %w", id, err)
			}
		}
		return nil
	})
}
