package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"lab-status-backend/internal/model"
)

// Enqueue appends an identity to a station type's queue. The presence check
// and the append run in one transaction so two concurrent calls for the same
// identity can never both succeed; the unique index is the backstop.
func (s *gormStore) Enqueue(ctx context.Context, stationType, identity, displayName string, now time.Time) error {
	if !s.reg.KnownType(stationType) {
		return fmt.Errorf("%w: type %q", ErrUnknownStation, stationType)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.QueueEntry{}).
			Where("station_type = ? AND identity = ?", stationType, identity).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check queue membership: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("%w: %s", ErrAlreadyQueued, identity)
		}

		var tail int
		row := tx.Model(&model.QueueEntry{}).
			Where("station_type = ?", stationType).
			Select("COALESCE(MAX(position), -1)").
			Row()
		if err := row.Scan(&tail); err != nil {
			return fmt.Errorf("failed to find queue tail: %w", err)
		}

		entry := model.QueueEntry{
			StationType: stationType,
			Identity:    identity,
			DisplayName: displayName,
			Position:    tail + 1,
			JoinedAt:    now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to enqueue %s: %w", identity, err)
		}
		return nil
	})
}

// QueueEntries returns the queue for a station type in FIFO order.
func (s *gormStore) QueueEntries(ctx context.Context, stationType string) ([]model.QueueEntry, error) {
	var entries []model.QueueEntry
	if err := s.db.WithContext(ctx).
		Where("station_type = ?", stationType).
		Order("position asc, id asc").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to read queue for %s: %w", stationType, err)
	}
	return entries, nil
}

// DequeueHead removes and returns the first entry, or nil if the queue is
// empty. Remaining entries shift down one position.
func (s *gormStore) DequeueHead(ctx context.Context, stationType string) (*model.QueueEntry, error) {
	var head model.QueueEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("station_type = ?", stationType).
			Order("position asc, id asc").
			First(&head).Error; err != nil {
			return err
		}
		return removeEntry(tx, head)
	})
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue head for %s: %w", stationType, err)
	}
	return &head, nil
}

// RemoveFromQueue removes one identity's entry. Removing an absent entry
// (for example one that just got dequeued by a racing cascade) fails with
// ErrNotFound rather than corrupting positions.
func (s *gormStore) RemoveFromQueue(ctx context.Context, stationType, identity string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry model.QueueEntry
		if err := tx.Where("station_type = ? AND identity = ?", stationType, identity).
			First(&entry).Error; err != nil {
			return err
		}
		return removeEntry(tx, entry)
	})
	if err == gorm.ErrRecordNotFound {
		return fmt.Errorf("%w: %s not queued for %s", ErrNotFound, identity, stationType)
	}
	if err != nil {
		return fmt.Errorf("failed to remove %s from %s queue: %w", identity, stationType, err)
	}
	return nil
}

// Reorder swaps an entry with its neighbor in the given direction. At the
// queue boundary the call is a no-op.
func (s *gormStore) Reorder(ctx context.Context, stationType, identity, direction string) error {
	if direction != DirectionUp && direction != DirectionDown {
		return fmt.Errorf("invalid direction %q", direction)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry model.QueueEntry
		if err := tx.Where("station_type = ? AND identity = ?", stationType, identity).
			First(&entry).Error; err != nil {
			return err
		}

		neighborPos := entry.Position - 1
		if direction == DirectionDown {
			neighborPos = entry.Position + 1
		}

		var neighbor model.QueueEntry
		err := tx.Where("station_type = ? AND position = ?", stationType, neighborPos).
			First(&neighbor).Error
		if err == gorm.ErrRecordNotFound {
			return nil // boundary
		}
		if err != nil {
			return err
		}

		if err := tx.Model(&model.QueueEntry{}).Where("id = ?", entry.ID).
			Update("position", neighbor.Position).Error; err != nil {
			return err
		}
		return tx.Model(&model.QueueEntry{}).Where("id = ?", neighbor.ID).
			Update("position", entry.Position).Error
	})
	if err == gorm.ErrRecordNotFound {
		return fmt.Errorf("%w: %s not queued for %s", ErrNotFound, identity, stationType)
	}
	if err != nil {
		return fmt.Errorf("failed to reorder %s in %s queue: %w", identity, stationType, err)
	}
	return nil
}

// Reposition moves an entry to an absolute index, clamped to the valid
// range; entries in between shift accordingly.
func (s *gormStore) Reposition(ctx context.Context, stationType, identity string, newIndex int) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry model.QueueEntry
		if err := tx.Where("station_type = ? AND identity = ?", stationType, identity).
			First(&entry).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&model.QueueEntry{}).
			Where("station_type = ?", stationType).
			Count(&count).Error; err != nil {
			return err
		}

		if newIndex < 0 {
			newIndex = 0
		}
		if newIndex > int(count)-1 {
			newIndex = int(count) - 1
		}
		if newIndex == entry.Position {
			return nil
		}

		if newIndex < entry.Position {
			if err := tx.Model(&model.QueueEntry{}).
				Where("station_type = ? AND position >= ? AND position < ?", stationType, newIndex, entry.Position).
				Update("position", gorm.Expr("position + 1")).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Model(&model.QueueEntry{}).
				Where("station_type = ? AND position > ? AND position <= ?", stationType, entry.Position, newIndex).
				Update("position", gorm.Expr("position - 1")).Error; err != nil {
				return err
			}
		}
		return tx.Model(&model.QueueEntry{}).Where("id = ?", entry.ID).
			Update("position", newIndex).Error
	})
	if err == gorm.ErrRecordNotFound {
		return fmt.Errorf("%w: %s not queued for %s", ErrNotFound, identity, stationType)
	}
	if err != nil {
		return fmt.Errorf("failed to reposition %s in %s queue: %w", identity, stationType, err)
	}
	return nil
}

// removeEntry deletes an entry and shifts everything behind it forward.
func removeEntry(tx *gorm.DB, entry model.QueueEntry) error {
	if err := tx.Delete(&model.QueueEntry{}, entry.ID).Error; err != nil {
		return err
	}
	return tx.Model(&model.QueueEntry{}).
		Where("station_type = ? AND position > ?", entry.StationType, entry.Position).
		Update("position", gorm.Expr("position - 1")).Error
}
