package store

import (
	"context"
	"time"

	"github.com/pacekeeper/pacekeeper/pkg/models"
)

// InterventionStore persists the append-only intervention log.
type InterventionStore struct {
	store *Store
}

// NewInterventionStore creates a new intervention store.
func NewInterventionStore(store *Store) *InterventionStore {
	return &InterventionStore{store: store}
}

// Append writes one intervention record.
func (s *InterventionStore) Append(ctx context.Context, userID string, iv models.Intervention) error {
	row := Intervention{
		ID:               iv.ID,
		UserID:           userID,
		Level:            string(iv.Level),
		Action:           string(iv.Action),
		TriggerLabel:     string(iv.TriggerLabel),
		TriggerIntensity: iv.TriggerIntensity,
		Message:          iv.Message,
		SegmentID:        iv.SegmentID,
		Escalated:        iv.Escalated,
		Acceptance:       string(iv.Acceptance),
		CreatedAt:        iv.At.Format(time.RFC3339),
		CreatedAtEpoch:   iv.At.UnixMilli(),
	}
	return s.store.DB.WithContext(ctx).Create(&row).Error
}

// RecentSince returns interventions at or after the given time, oldest
// first. Used for repeat suppression.
func (s *InterventionStore) RecentSince(ctx context.Context, userID string, since time.Time) ([]models.Intervention, error) {
	var rows []Intervention
	err := s.store.DB.WithContext(ctx).
		Where("user_id = ? AND created_at_epoch >= ?", userID, since.UnixMilli()).
		Order("created_at_epoch ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]models.Intervention, 0, len(rows))
	for i := range rows {
		out = append(out, rowToIntervention(&rows[i]))
	}
	return out, nil
}

// Last returns the most recent intervention, or nil when the log is empty.
func (s *InterventionStore) Last(ctx context.Context, userID string) (*models.Intervention, error) {
	var rows []Intervention
	err := s.store.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at_epoch DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	iv := rowToIntervention(&rows[0])
	return &iv, nil
}

// SetAcceptance records the user's reaction once it is derived from
// their next utterance. Acceptance is the one mutable column: the
// decision itself never changes.
func (s *InterventionStore) SetAcceptance(ctx context.Context, id string, acceptance models.Acceptance) error {
	return s.store.DB.WithContext(ctx).
		Model(&Intervention{}).
		Where("id = ?", id).
		Update("acceptance", string(acceptance)).Error
}

func rowToIntervention(row *Intervention) models.Intervention {
	return models.Intervention{
		ID:               row.ID,
		Level:            models.InterventionLevel(row.Level),
		Action:           models.InterventionAction(row.Action),
		TriggerLabel:     models.EmotionalLabel(row.TriggerLabel),
		TriggerIntensity: row.TriggerIntensity,
		Message:          row.Message,
		SegmentID:        row.SegmentID,
		Escalated:        row.Escalated,
		Acceptance:       models.Acceptance(row.Acceptance),
		At:               time.UnixMilli(row.CreatedAtEpoch),
	}
}
