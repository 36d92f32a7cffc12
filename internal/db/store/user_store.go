package store

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pacekeeper/pacekeeper/pkg/models"
)

// UserStore provides user-related database operations.
type UserStore struct {
	store *Store
}

// NewUserStore creates a new user store.
func NewUserStore(store *Store) *UserStore {
	return &UserStore{store: store}
}

// GetOrCreate fetches a user, creating the row on first interaction.
func (s *UserStore) GetOrCreate(ctx context.Context, id string) (*models.UserContext, error) {
	row := User{ID: id}
	err := s.store.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return nil, err
	}

	if err := s.store.DB.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return rowToUser(&row)
}

// Get fetches a user. Returns (nil, nil) when the user does not exist.
func (s *UserStore) Get(ctx context.Context, id string) (*models.UserContext, error) {
	var row User
	err := s.store.DB.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rowToUser(&row)
}

// UpdatePattern persists the long-term pattern summary.
func (s *UserStore) UpdatePattern(ctx context.Context, id string, pattern models.PatternSummary) error {
	data, err := json.Marshal(pattern)
	if err != nil {
		return err
	}
	return s.store.DB.WithContext(ctx).
		Model(&User{}).
		Where("id = ?", id).
		Update("pattern_json", string(data)).Error
}

func rowToUser(row *User) (*models.UserContext, error) {
	u := &models.UserContext{ID: row.ID}
	if row.PatternJSON != "" {
		if err := json.Unmarshal([]byte(row.PatternJSON), &u.Pattern); err != nil {
			return nil, err
		}
	}
	if row.CreatedAtEpoch > 0 {
		u.CreatedAt = time.UnixMilli(row.CreatedAtEpoch)
	}
	return u, nil
}
