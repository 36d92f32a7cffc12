package models

import (
	"time"
)

// MaxReadingHistory bounds the rolling reading history kept per user.
const MaxReadingHistory = 20

// PatternSummary is the long-term behavioral aggregate for a user,
// updated at the end of each work segment or intervention.
type PatternSummary struct {
	HyperfocusEpisodes    int     `json:"hyperfocus_episodes"`
	InterventionsAccepted int     `json:"interventions_accepted"`
	InterventionsResisted int     `json:"interventions_resisted"`
	WorkSegmentsCompleted int     `json:"work_segments_completed"`
	BreaksAccepted        int     `json:"breaks_accepted"`
	AvgAcceptedBreakMin   float64 `json:"avg_accepted_break_min"`
}

// UserContext is the per-user root aggregate. It exclusively owns the
// current day's schedule and the append-only reading and intervention logs.
type UserContext struct {
	ID       string         `json:"id"`
	Schedule *ScheduleModel `json:"schedule,omitempty"` // nil until morning analysis runs
	// RecentReadings is a bounded ordered history, most-recent-last.
	RecentReadings   []EmotionalStateReading `json:"recent_readings"`
	Pattern          PatternSummary          `json:"pattern"`
	LastIntervention *Intervention           `json:"last_intervention,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
}

// AppendReading appends a reading to the rolling history, trimming to
// MaxReadingHistory.
func (u *UserContext) AppendReading(r EmotionalStateReading) {
	u.RecentReadings = append(u.RecentReadings, r)
	if len(u.RecentReadings) > MaxReadingHistory {
		u.RecentReadings = u.RecentReadings[len(u.RecentReadings)-MaxReadingHistory:]
	}
}
