package store

import (
	"context"
	"time"

	"github.com/pacekeeper/pacekeeper/pkg/models"
)

// ReadingStore persists the append-only emotional reading log.
type ReadingStore struct {
	store *Store
}

// NewReadingStore creates a new reading store.
func NewReadingStore(store *Store) *ReadingStore {
	return &ReadingStore{store: store}
}

// Append writes one reading. Readings are never updated.
func (s *ReadingStore) Append(ctx context.Context, userID string, r models.EmotionalStateReading) error {
	row := EmotionalReading{
		ID:             r.ID,
		UserID:         userID,
		Label:          string(r.Label),
		Intensity:      r.Intensity,
		Utterance:      r.Utterance,
		Degraded:       r.Degraded,
		CreatedAt:      r.At.Format(time.RFC3339),
		CreatedAtEpoch: r.At.UnixMilli(),
	}
	return s.store.DB.WithContext(ctx).Create(&row).Error
}

// Recent returns the last n readings, oldest first.
func (s *ReadingStore) Recent(ctx context.Context, userID string, n int) ([]models.EmotionalStateReading, error) {
	var rows []EmotionalReading
	err := s.store.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at_epoch DESC").
		Limit(n).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	readings := make([]models.EmotionalStateReading, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		readings = append(readings, models.EmotionalStateReading{
			ID:        row.ID,
			Label:     models.EmotionalLabel(row.Label),
			Intensity: row.Intensity,
			Utterance: row.Utterance,
			Degraded:  row.Degraded,
			At:        time.UnixMilli(row.CreatedAtEpoch),
		})
	}
	return readings, nil
}
