package models

import (
	"time"
)

// EmotionalLabel is one of the closed set of states the classifier
// can report. Exactly one label per reading.
type EmotionalLabel string

const (
	LabelFrustrated   EmotionalLabel = "frustrated"
	LabelOverwhelmed  EmotionalLabel = "overwhelmed"
	LabelExhausted    EmotionalLabel = "exhausted"
	LabelHyperfocus   EmotionalLabel = "hyperfocusing"
	LabelAvoidant     EmotionalLabel = "avoidant"
	LabelEnergized    EmotionalLabel = "energized"
	LabelNeutral      EmotionalLabel = "neutral"
)

// labelPriority is the fixed tie-break order. Mandatory-risk states
// (hyperfocusing, overwhelmed, exhausted) outrank the rest so downstream
// logic always gets a single decision input.
var labelPriority = map[EmotionalLabel]int{
	LabelHyperfocus:  6,
	LabelOverwhelmed: 5,
	LabelExhausted:   4,
	LabelFrustrated:  3,
	LabelAvoidant:    2,
	LabelEnergized:   1,
	LabelNeutral:     0,
}

// Priority returns the tie-break rank of a label. Unknown labels rank
// below neutral.
func (l EmotionalLabel) Priority() int {
	p, ok := labelPriority[l]
	if !ok {
		return -1
	}
	return p
}

// Valid reports whether the label belongs to the closed set.
func (l EmotionalLabel) Valid() bool {
	_, ok := labelPriority[l]
	return ok
}

// EmotionalStateReading is a timestamped classification result.
// Immutable once created; appended to the user's history, never mutated.
type EmotionalStateReading struct {
	ID        string         `json:"id"`
	Label     EmotionalLabel `json:"label"`
	Intensity float64        `json:"intensity"` // 0.0 - 1.0
	Utterance string         `json:"utterance"`
	// Degraded marks a reading produced without a confident external
	// analysis (collaborator down or confidence below threshold).
	// Callers must not treat a degraded neutral as a true neutral signal.
	Degraded bool      `json:"degraded"`
	At       time.Time `json:"at"`
}
