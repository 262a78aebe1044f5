package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lab-status-backend/internal/model"
)

// SetOccupancy durably upserts one station's probed occupancy bit. It is
// idempotent: re-reporting the same observation is a no-op for readers.
func (s *gormStore) SetOccupancy(ctx context.Context, stationID int, occupied bool, observedAt time.Time) error {
	if !s.reg.Known(stationID) {
		return fmt.Errorf("%w: %d", ErrUnknownStation, stationID)
	}

	record := model.StationStatus{StationID: stationID, Occupied: occupied, ObservedAt: observedAt}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "station_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"occupied", "observed_at"}),
	}).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to upsert occupancy for station %d: %w", stationID, err)
	}
	return nil
}

// Occupancy returns one station's record with any override attached.
func (s *gormStore) Occupancy(ctx context.Context, stationID int) (OccupancyRecord, error) {
	if !s.reg.Known(stationID) {
		return OccupancyRecord{}, fmt.Errorf("%w: %d", ErrUnknownStation, stationID)
	}

	var status model.StationStatus
	if err := s.db.WithContext(ctx).First(&status, "station_id = ?", stationID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			// Seeding guarantees a record per known station; treat a gap as
			// occupied-and-stale rather than failing the read path.
			status = model.StationStatus{StationID: stationID, Occupied: true}
		} else {
			return OccupancyRecord{}, fmt.Errorf("failed to read occupancy for station %d: %w", stationID, err)
		}
	}

	record := OccupancyRecord{StationID: status.StationID, Occupied: status.Occupied, ObservedAt: status.ObservedAt}
	var override model.StationOverride
	err := s.db.WithContext(ctx).First(&override, "station_id = ?", stationID).Error
	switch err {
	case nil:
		v := override.Occupied
		record.Override = &v
	case gorm.ErrRecordNotFound:
	default:
		return OccupancyRecord{}, fmt.Errorf("failed to read override for station %d: %w", stationID, err)
	}
	return record, nil
}

// Records returns every known station's record in ascending id order.
func (s *gormStore) Records(ctx context.Context) ([]OccupancyRecord, error) {
	var statuses []model.StationStatus
	if err := s.db.WithContext(ctx).Order("station_id asc").Find(&statuses).Error; err != nil {
		return nil, fmt.Errorf("failed to read station statuses: %w", err)
	}
	overrides, err := s.Overrides(ctx)
	if err != nil {
		return nil, err
	}

	statusMap := make(map[int]model.StationStatus, len(statuses))
	for _, st := range statuses {
		statusMap[st.StationID] = st
	}

	records := make([]OccupancyRecord, 0, len(s.reg.IDs()))
	for _, id := range s.reg.IDs() {
		st, ok := statusMap[id]
		if !ok {
			st = model.StationStatus{StationID: id, Occupied: true}
		}
		record := OccupancyRecord{StationID: id, Occupied: st.Occupied, ObservedAt: st.ObservedAt}
		if v, ok := overrides[id]; ok {
			forced := v
			record.Override = &forced
		}
		records = append(records, record)
	}
	return records, nil
}

// EffectiveSnapshot returns the override-applied occupancy bit for every
// known station.
func (s *gormStore) EffectiveSnapshot(ctx context.Context) (map[int]bool, error) {
	records, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}
	snapshot := make(map[int]bool, len(records))
	for _, r := range records {
		snapshot[r.StationID] = r.Effective()
	}
	return snapshot, nil
}
