package classifier

import (
	"context"
	"strings"

	"github.com/pacekeeper/pacekeeper/pkg/models"
)

// labelMarkers are the lexical signals for each label. Mirrors the
// fallback keyword detection in the original prototype so the offline
// path behaves like the degraded LLM path.
var labelMarkers = map[models.EmotionalLabel][]string{
	models.LabelFrustrated: {
		"this is stupid", "i hate", "annoying", "ugh", "so frustrating",
		"frustrated", "not working", "why won't",
	},
	models.LabelOverwhelmed: {
		"too much", "where to start", "overwhelmed", "impossible",
		"can't cope", "drowning", "so many things", "all at once",
	},
	models.LabelExhausted: {
		"tired", "exhausted", "brain fog", "can't focus", "drained",
		"burnt out", "burned out", "no energy", "wiped",
	},
	models.LabelHyperfocus: {
		"more minutes", "almost done", "one more", "just a few more",
		"can't stop now", "in the zone", "keep going", "nearly there",
		"don't want to stop",
	},
	models.LabelAvoidant: {
		"maybe later", "don't feel like", "procrastinat", "tomorrow instead",
		"keep putting it off", "avoiding", "anything but this",
	},
	models.LabelEnergized: {
		"energized", "motivated", "feeling great", "let's go", "ready to",
		"pumped", "good to go",
	},
}

// Lexical is a keyword-based classifier. It is both the offline backend
// and the fallback when the LLM response cannot be parsed.
type Lexical struct {
	// Threshold is the confidence gate; zero means DefaultConfidenceThreshold.
	Threshold float64
}

// NewLexical creates a lexical classifier with the default threshold.
func NewLexical() *Lexical {
	return &Lexical{Threshold: DefaultConfidenceThreshold}
}

// Classify scores each label by marker hits and returns the single best
// reading. Never returns an error path; unusable input is a neutral reading.
func (c *Lexical) Classify(_ context.Context, utterance string, history []models.EmotionalStateReading) models.EmotionalStateReading {
	threshold := c.Threshold
	if threshold == 0 {
		threshold = DefaultConfidenceThreshold
	}

	lower := strings.ToLower(utterance)
	scores := make(map[models.EmotionalLabel]float64)
	for label, markers := range labelMarkers {
		hits := 0
		for _, marker := range markers {
			if strings.Contains(lower, marker) {
				hits++
			}
		}
		if hits > 0 {
			score := 0.5 + 0.2*float64(hits-1)
			if score > 0.95 {
				score = 0.95
			}
			scores[label] = score
		}
	}

	label, intensity := pickLabel(scores)

	// A repeated state in recent history reads as a stronger signal.
	if label != models.LabelNeutral {
		for i := len(history) - 1; i >= 0; i-- {
			if history[i].Degraded {
				continue
			}
			if history[i].Label == label {
				intensity += 0.1
				if intensity > 0.95 {
					intensity = 0.95
				}
			}
			break
		}
	}

	return gate(label, intensity, utterance, threshold)
}
