package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/pacekeeper/pacekeeper/pkg/models"
)

// ScheduleStore persists per-day schedules: a header row with the derived
// settings plus one row per segment.
type ScheduleStore struct {
	store *Store
}

// NewScheduleStore creates a new schedule store.
func NewScheduleStore(store *Store) *ScheduleStore {
	return &ScheduleStore{store: store}
}

// SaveDay writes the full schedule for one user-day, replacing whatever
// was there. Replace-not-append is what makes morning analysis idempotent
// per day.
func (s *ScheduleStore) SaveDay(ctx context.Context, userID string, model *models.ScheduleModel) error {
	return s.store.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND day = ?", userID, model.Day).
			Delete(&ScheduleDay{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? AND day = ?", userID, model.Day).
			Delete(&ScheduleSegment{}).Error; err != nil {
			return err
		}

		header := ScheduleDay{
			UserID:             userID,
			Day:                model.Day,
			WorkMinutes:        model.WorkMinutes,
			BreakMinutes:       model.BreakMinutes,
			MaxConsecutiveWork: model.MaxConsecutiveWork,
			Sensitivity:        string(model.Sensitivity),
			DayEnded:           model.DayEnded,
		}
		if err := tx.Create(&header).Error; err != nil {
			return err
		}

		for i, seg := range model.Segments {
			row := segmentToRow(userID, model.Day, i, seg)
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadDay reads one user-day schedule. Returns (nil, nil) when the day
// has no schedule yet.
func (s *ScheduleStore) LoadDay(ctx context.Context, userID, day string) (*models.ScheduleModel, error) {
	var header ScheduleDay
	err := s.store.DB.WithContext(ctx).
		First(&header, "user_id = ? AND day = ?", userID, day).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rows []ScheduleSegment
	err = s.store.DB.WithContext(ctx).
		Where("user_id = ? AND day = ?", userID, day).
		Order("ordinal ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	model := &models.ScheduleModel{
		Day:                day,
		WorkMinutes:        header.WorkMinutes,
		BreakMinutes:       header.BreakMinutes,
		MaxConsecutiveWork: header.MaxConsecutiveWork,
		Sensitivity:        models.Sensitivity(header.Sensitivity),
		DayEnded:           header.DayEnded,
	}
	for i := range rows {
		model.Segments = append(model.Segments, rowToSegment(&rows[i]))
	}
	return model, nil
}

func segmentToRow(userID, day string, ordinal int, seg *models.ScheduleSegment) ScheduleSegment {
	row := ScheduleSegment{
		ID:             seg.ID,
		UserID:         userID,
		Day:            day,
		Ordinal:        ordinal,
		Kind:           string(seg.Kind),
		Status:         string(seg.Status),
		PlannedMinutes: seg.PlannedMinutes,
		ActualMinutes:  seg.ActualMinutes,
		AdaptedBy:      seg.AdaptedBy,
	}
	if !seg.StartedAt.IsZero() {
		row.StartedAtEpoch = seg.StartedAt.UnixMilli()
	}
	if !seg.CompletedAt.IsZero() {
		row.CompletedAtEpoch = seg.CompletedAt.UnixMilli()
	}
	return row
}

func rowToSegment(row *ScheduleSegment) *models.ScheduleSegment {
	seg := &models.ScheduleSegment{
		ID:             row.ID,
		Kind:           models.SegmentKind(row.Kind),
		Status:         models.SegmentStatus(row.Status),
		PlannedMinutes: row.PlannedMinutes,
		ActualMinutes:  row.ActualMinutes,
		AdaptedBy:      row.AdaptedBy,
	}
	if row.StartedAtEpoch > 0 {
		seg.StartedAt = time.UnixMilli(row.StartedAtEpoch)
	}
	if row.CompletedAtEpoch > 0 {
		seg.CompletedAt = time.UnixMilli(row.CompletedAtEpoch)
	}
	return seg
}
