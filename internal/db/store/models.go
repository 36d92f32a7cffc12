package store

import (
	"time"

	"gorm.io/gorm"
)

// GORM models. Timestamps follow the RFC3339-string-plus-epoch convention
// so rows stay readable in the sqlite shell while queries sort on the
// integer column.

// User holds per-user settings and the long-term pattern summary.
type User struct {
	ID             string `gorm:"primaryKey"`
	PatternJSON    string `gorm:"type:text;column:pattern_json"`
	CreatedAt      string `gorm:"not null"`
	CreatedAtEpoch int64  `gorm:"not null"`
}

func (User) TableName() string { return "users" }

// BeforeCreate hook to ensure timestamps are set.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.CreatedAtEpoch == 0 {
		u.CreatedAtEpoch = time.Now().UnixMilli()
	}
	if u.CreatedAt == "" {
		u.CreatedAt = time.Now().Format(time.RFC3339)
	}
	return nil
}

// ScheduleDay is the per-day schedule header: the settings derived by
// morning analysis plus the day-ended flag.
type ScheduleDay struct {
	ID                 int64  `gorm:"primaryKey;autoIncrement"`
	UserID             string `gorm:"index:idx_schedule_days_user_day,unique,priority:1;not null"`
	Day                string `gorm:"index:idx_schedule_days_user_day,unique,priority:2;not null"`
	WorkMinutes        int    `gorm:"not null"`
	BreakMinutes       int    `gorm:"not null"`
	MaxConsecutiveWork int    `gorm:"not null"`
	Sensitivity        string `gorm:"type:text;check:sensitivity IN ('low', 'medium', 'high');not null"`
	DayEnded           bool   `gorm:"default:false"`
}

func (ScheduleDay) TableName() string { return "schedule_days" }

// ScheduleSegment is one planned unit of a day's schedule.
type ScheduleSegment struct {
	ID               string `gorm:"primaryKey"`
	UserID           string `gorm:"index:idx_segments_user_day,priority:1;not null"`
	Day              string `gorm:"index:idx_segments_user_day,priority:2;not null"`
	Ordinal          int    `gorm:"not null"`
	Kind             string `gorm:"type:text;check:kind IN ('work', 'break', 'mandatory_rest');not null"`
	Status           string `gorm:"type:text;check:status IN ('pending', 'active', 'completed', 'aborted');not null"`
	PlannedMinutes   int    `gorm:"not null"`
	ActualMinutes    int    `gorm:"default:0"`
	StartedAtEpoch   int64  `gorm:"default:0"`
	CompletedAtEpoch int64  `gorm:"default:0"`
	AdaptedBy        string `gorm:"type:text"`
}

func (ScheduleSegment) TableName() string { return "schedule_segments" }

// EmotionalReading is one append-only classification record.
type EmotionalReading struct {
	ID             string  `gorm:"primaryKey"`
	UserID         string  `gorm:"index;not null"`
	Label          string  `gorm:"type:text;not null"`
	Intensity      float64 `gorm:"type:real;default:0"`
	Utterance      string  `gorm:"type:text"`
	Degraded       bool    `gorm:"default:false"`
	CreatedAt      string  `gorm:"not null"`
	CreatedAtEpoch int64   `gorm:"index:idx_readings_created,sort:desc;not null"`
}

func (EmotionalReading) TableName() string { return "emotional_readings" }

// Intervention is one append-only decision record.
type Intervention struct {
	ID               string  `gorm:"primaryKey"`
	UserID           string  `gorm:"index;not null"`
	Level            string  `gorm:"type:text;check:level IN ('none', 'gentle', 'firm', 'mandatory');not null"`
	Action           string  `gorm:"type:text;not null"`
	TriggerLabel     string  `gorm:"type:text;not null"`
	TriggerIntensity float64 `gorm:"type:real;default:0"`
	Message          string  `gorm:"type:text"`
	SegmentID        string  `gorm:"type:text"`
	Escalated        bool    `gorm:"default:false"`
	Acceptance       string  `gorm:"type:text;check:acceptance IN ('unknown', 'accepted', 'resisted');default:'unknown'"`
	CreatedAt        string  `gorm:"not null"`
	CreatedAtEpoch   int64   `gorm:"index:idx_interventions_created,sort:desc;not null"`
}

func (Intervention) TableName() string { return "interventions" }
