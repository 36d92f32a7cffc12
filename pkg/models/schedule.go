// Package models contains domain models for pacekeeper.
package models

import (
	"time"
)

// SegmentKind is the kind of a schedule segment.
type SegmentKind string

const (
	SegmentWork          SegmentKind = "work"
	SegmentBreak         SegmentKind = "break"
	SegmentMandatoryRest SegmentKind = "mandatory_rest"
)

// SegmentStatus tracks the lifecycle of a schedule segment.
// Transitions: pending -> active -> completed, or active/pending -> aborted.
type SegmentStatus string

const (
	SegmentPending   SegmentStatus = "pending"
	SegmentActive    SegmentStatus = "active"
	SegmentCompleted SegmentStatus = "completed"
	SegmentAborted   SegmentStatus = "aborted"
)

// Sensitivity controls how aggressively the intervention engine reacts
// to borderline signals.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// ScheduleSegment is a single planned work or break unit.
// Completed segments are immutable; the engine only mutates
// pending and active ones.
type ScheduleSegment struct {
	ID             string        `json:"id"`
	Kind           SegmentKind   `json:"kind"`
	PlannedMinutes int           `json:"planned_minutes"`
	ActualMinutes  int           `json:"actual_minutes"`
	Status         SegmentStatus `json:"status"`
	StartedAt      time.Time     `json:"started_at,omitempty"`
	CompletedAt    time.Time     `json:"completed_at,omitempty"`
	// AdaptedBy references the intervention that last modified this
	// segment, empty when the segment still matches the morning plan.
	AdaptedBy string `json:"adapted_by,omitempty"`
}

// ScheduleModel is the full plan for one user-day: an ordered segment
// sequence plus the settings derived from morning analysis.
type ScheduleModel struct {
	Day                string             `json:"day"` // YYYY-MM-DD
	Segments           []*ScheduleSegment `json:"segments"`
	WorkMinutes        int                `json:"work_minutes"`
	BreakMinutes       int                `json:"break_minutes"`
	MaxConsecutiveWork int                `json:"max_consecutive_work"`
	Sensitivity        Sensitivity        `json:"sensitivity"`
	DayEnded           bool               `json:"day_ended"`
}

// Active returns the currently active segment, or nil.
// At most one segment is active at any time.
func (m *ScheduleModel) Active() *ScheduleSegment {
	for _, seg := range m.Segments {
		if seg.Status == SegmentActive {
			return seg
		}
	}
	return nil
}

// NextPending returns the first pending segment, or nil.
func (m *ScheduleModel) NextPending() *ScheduleSegment {
	for _, seg := range m.Segments {
		if seg.Status == SegmentPending {
			return seg
		}
	}
	return nil
}

// NextPendingOfKind returns the first pending segment of the given kind, or nil.
func (m *ScheduleModel) NextPendingOfKind(kind SegmentKind) *ScheduleSegment {
	for _, seg := range m.Segments {
		if seg.Status == SegmentPending && seg.Kind == kind {
			return seg
		}
	}
	return nil
}

// ConsecutiveWorkCompleted counts completed work segments since the last
// completed mandatory rest. Ordinary breaks between work blocks do not
// clear the budget; only a mandatory rest does.
func (m *ScheduleModel) ConsecutiveWorkCompleted() int {
	count := 0
	for _, seg := range m.Segments {
		switch {
		case seg.Status != SegmentCompleted:
			continue
		case seg.Kind == SegmentWork:
			count++
		case seg.Kind == SegmentMandatoryRest:
			count = 0
		}
	}
	return count
}

// ScheduleSummary is the wire-level view of a schedule returned by the API.
type ScheduleSummary struct {
	Day                string             `json:"day"`
	Segments           []*ScheduleSegment `json:"segments"`
	WorkMinutes        int                `json:"work_minutes"`
	BreakMinutes       int                `json:"break_minutes"`
	MaxConsecutiveWork int                `json:"max_consecutive_work"`
	Sensitivity        Sensitivity        `json:"sensitivity"`
	DayEnded           bool               `json:"day_ended"`
}

// Summary builds the wire view of the model.
func (m *ScheduleModel) Summary() *ScheduleSummary {
	return &ScheduleSummary{
		Day:                m.Day,
		Segments:           m.Segments,
		WorkMinutes:        m.WorkMinutes,
		BreakMinutes:       m.BreakMinutes,
		MaxConsecutiveWork: m.MaxConsecutiveWork,
		Sensitivity:        m.Sensitivity,
		DayEnded:           m.DayEnded,
	}
}
