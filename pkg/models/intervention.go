package models

import (
	"time"
)

// InterventionLevel is the severity of an intervention decision.
type InterventionLevel string

const (
	LevelNone      InterventionLevel = "none"
	LevelGentle    InterventionLevel = "gentle"
	LevelFirm      InterventionLevel = "firm"
	LevelMandatory InterventionLevel = "mandatory"
)

// levelRank orders levels for severity comparison and escalation.
var levelRank = map[InterventionLevel]int{
	LevelNone:      0,
	LevelGentle:    1,
	LevelFirm:      2,
	LevelMandatory: 3,
}

// Rank returns the severity rank of a level.
func (l InterventionLevel) Rank() int { return levelRank[l] }

// Escalate returns the next level up. Mandatory does not escalate further.
func (l InterventionLevel) Escalate() InterventionLevel {
	switch l {
	case LevelGentle:
		return LevelFirm
	case LevelFirm:
		return LevelMandatory
	default:
		return l
	}
}

// InterventionAction names the schedule mutation (if any) an intervention
// applied.
type InterventionAction string

const (
	ActionNone              InterventionAction = "none"
	ActionShrinkCurrent     InterventionAction = "shrink_current"
	ActionExtendBreak       InterventionAction = "extend_break"
	ActionMandatoryRest     InterventionAction = "mandatory_rest"
	ActionEndDay            InterventionAction = "end_day"
	ActionSimplifyNextBlock InterventionAction = "simplify_next_block"
)

// Acceptance is the user's reaction to an intervention, derived from
// their next utterance.
type Acceptance string

const (
	AcceptanceUnknown  Acceptance = "unknown"
	AcceptanceAccepted Acceptance = "accepted"
	AcceptanceResisted Acceptance = "resisted"
)

// Intervention records one decision made by the intervention engine.
// Appended to the user's log on every invocation, no-ops included, so
// the pattern updater can learn from the full decision history.
type Intervention struct {
	ID               string             `json:"id"`
	Level            InterventionLevel  `json:"level"`
	Action           InterventionAction `json:"action"`
	TriggerLabel     EmotionalLabel     `json:"trigger_label"`
	TriggerIntensity float64            `json:"trigger_intensity"`
	Message          string             `json:"message"`
	SegmentID        string             `json:"segment_id,omitempty"`
	Escalated        bool               `json:"escalated"`
	Acceptance       Acceptance         `json:"acceptance"`
	At               time.Time          `json:"at"`
}
