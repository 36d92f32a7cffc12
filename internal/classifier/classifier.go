// Package classifier maps free-text utterances to emotional state readings.
// The language-analysis backend is pluggable; gating and tie-breaking live
// here so every backend produces the same downstream contract.
package classifier

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pacekeeper/pacekeeper/pkg/models"
)

// DefaultConfidenceThreshold is the minimum intensity below which a
// reading is downgraded to neutral instead of a forced guess.
const DefaultConfidenceThreshold = 0.4

// Classifier turns one utterance (plus optional recent history for
// context) into exactly one reading. Implementations are pure over their
// inputs; callers persist the result. A backend failure never surfaces as
// an error: it yields a degraded neutral reading instead.
type Classifier interface {
	Classify(ctx context.Context, utterance string, history []models.EmotionalStateReading) models.EmotionalStateReading
}

// newReading builds a reading with ID and timestamp filled in.
func newReading(label models.EmotionalLabel, intensity float64, utterance string, degraded bool) models.EmotionalStateReading {
	return models.EmotionalStateReading{
		ID:        uuid.NewString(),
		Label:     label,
		Intensity: intensity,
		Utterance: utterance,
		Degraded:  degraded,
		At:        time.Now(),
	}
}

// DegradedNeutral is the fallback reading when the analysis collaborator
// is unavailable.
func DegradedNeutral(utterance string) models.EmotionalStateReading {
	return newReading(models.LabelNeutral, 0, utterance, true)
}

// gate applies the confidence threshold: low-confidence results become
// degraded neutrals rather than forced guesses.
func gate(label models.EmotionalLabel, intensity float64, utterance string, threshold float64) models.EmotionalStateReading {
	if !label.Valid() {
		label = models.LabelNeutral
	}
	if intensity < threshold && label != models.LabelNeutral {
		return newReading(models.LabelNeutral, intensity, utterance, true)
	}
	if intensity < 0 {
		intensity = 0
	}
	if intensity > 1 {
		intensity = 1
	}
	return newReading(label, intensity, utterance, false)
}

// pickLabel resolves a multi-label score map to a single label using the
// fixed priority order for ties.
func pickLabel(scores map[models.EmotionalLabel]float64) (models.EmotionalLabel, float64) {
	best := models.LabelNeutral
	bestScore := 0.0
	for label, score := range scores {
		if score > bestScore || (score == bestScore && score > 0 && label.Priority() > best.Priority()) {
			best = label
			bestScore = score
		}
	}
	return best, bestScore
}
