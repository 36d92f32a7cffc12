// Package morning turns the morning conversation into the day's initial
// schedule: energy and stress are derived from the classifier plus lexical
// signals, then mapped onto block length, break length, block budget, and
// intervention sensitivity.
package morning

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pacekeeper/pacekeeper/internal/classifier"
	"github.com/pacekeeper/pacekeeper/pkg/models"
)

// MaxFollowups caps clarifying questions. After this many the analyzer
// finalizes on defaults; it never fails to produce a schedule.
const MaxFollowups = 2

// EnergyLevel is the derived morning energy.
type EnergyLevel string

const (
	EnergyLow    EnergyLevel = "low"
	EnergyMedium EnergyLevel = "medium"
	EnergyHigh   EnergyLevel = "high"
)

// StressLevel is the derived morning stress.
type StressLevel string

const (
	StressNone     StressLevel = "none"
	StressMild     StressLevel = "mild"
	StressModerate StressLevel = "moderate"
	StressHigh     StressLevel = "high"
)

var stressRank = map[StressLevel]int{
	StressNone: 0, StressMild: 1, StressModerate: 2, StressHigh: 3,
}

// Analysis is the derived morning state behind a generated schedule.
type Analysis struct {
	Energy    EnergyLevel                  `json:"energy"`
	Stress    StressLevel                  `json:"stress"`
	TaskCount int                          `json:"task_count"`
	Reading   models.EmotionalStateReading `json:"reading"`
	Defaulted bool                         `json:"defaulted"`
}

// Result is either a finalized schedule or a clarifying follow-up.
type Result struct {
	Model    *models.ScheduleModel
	Analysis Analysis
	// FollowupQuestion is non-empty when the analyzer wants one more
	// turn before finalizing.
	FollowupQuestion string
}

var followupQuestions = []string{
	"How are you feeling this morning, and what's on your plate today?",
	"Got it. Roughly how many things do you need to get done, and how is your energy?",
}

// Analyzer builds the day's initial ScheduleModel from morning utterances.
type Analyzer struct {
	classifier classifier.Classifier
}

// New creates a morning analyzer over the given classifier.
func New(c classifier.Classifier) *Analyzer {
	return &Analyzer{classifier: c}
}

// Analyze consumes the morning conversation so far. utterances holds every
// user turn, oldest first; followupsUsed counts questions already asked.
// Non-informative input triggers a follow-up until MaxFollowups, then the
// medium-medium defaults apply. Re-running for the same day replaces the
// model, so the operation is idempotent per day.
func (a *Analyzer) Analyze(ctx context.Context, day string, utterances []string, followupsUsed int) Result {
	combined := strings.TrimSpace(strings.Join(utterances, " "))

	if !informative(combined) && followupsUsed < MaxFollowups {
		q := followupQuestions[followupsUsed%len(followupQuestions)]
		return Result{FollowupQuestion: q}
	}

	analysis := a.derive(ctx, combined)
	if !informative(combined) {
		analysis.Defaulted = true
	}
	model := buildModel(day, analysis)

	log.Info().
		Str("day", day).
		Str("energy", string(analysis.Energy)).
		Str("stress", string(analysis.Stress)).
		Int("work_minutes", model.WorkMinutes).
		Int("break_minutes", model.BreakMinutes).
		Int("max_blocks", model.MaxConsecutiveWork).
		Str("sensitivity", string(model.Sensitivity)).
		Msg("Morning analysis finalized")

	return Result{Model: model, Analysis: analysis}
}

// informative reports whether the text carries any usable signal.
func informative(text string) bool {
	if len(strings.Fields(text)) < 3 {
		return false
	}
	sig := extractSignals(strings.ToLower(text))
	return sig.taskCount > 0 || sig.deadline || sig.stress || sig.overwhelm ||
		sig.lowEnergy || sig.highEnergy
}

// derive combines classifier output with lexical signals into energy and
// stress levels.
func (a *Analyzer) derive(ctx context.Context, combined string) Analysis {
	if combined == "" {
		return Analysis{
			Energy:    EnergyMedium,
			Stress:    StressNone,
			Reading:   classifier.DegradedNeutral(""),
			Defaulted: true,
		}
	}

	sig := extractSignals(combined)
	reading := a.classifier.Classify(ctx, combined, nil)

	energy := EnergyMedium
	switch {
	case reading.Label == models.LabelExhausted && !reading.Degraded, sig.lowEnergy:
		energy = EnergyLow
	case reading.Label == models.LabelEnergized && !reading.Degraded, sig.highEnergy:
		energy = EnergyHigh
	}

	stress := StressNone
	switch {
	case sig.overwhelm, reading.Label == models.LabelOverwhelmed && !reading.Degraded && reading.Intensity >= 0.6:
		stress = StressHigh
	case sig.stress, sig.deadline:
		stress = StressModerate
	case sig.taskCount >= 4:
		stress = StressMild
	}

	return Analysis{
		Energy:    energy,
		Stress:    stress,
		TaskCount: sig.taskCount,
		Reading:   reading,
	}
}

// buildModel applies the lookup from derived state to schedule settings
// and lays out the day's segments.
func buildModel(day string, analysis Analysis) *models.ScheduleModel {
	work, brk, maxBlocks, sensitivity := lookup(analysis)

	model := &models.ScheduleModel{
		Day:                day,
		WorkMinutes:        work,
		BreakMinutes:       brk,
		MaxConsecutiveWork: maxBlocks,
		Sensitivity:        sensitivity,
	}

	for i := 0; i < maxBlocks; i++ {
		model.Segments = append(model.Segments, &models.ScheduleSegment{
			ID:             uuid.NewString(),
			Kind:           models.SegmentWork,
			PlannedMinutes: work,
			Status:         models.SegmentPending,
		})
		if i < maxBlocks-1 {
			model.Segments = append(model.Segments, &models.ScheduleSegment{
				ID:             uuid.NewString(),
				Kind:           models.SegmentBreak,
				PlannedMinutes: brk,
				Status:         models.SegmentPending,
			})
		}
	}
	model.Segments = append(model.Segments, &models.ScheduleSegment{
		ID:             uuid.NewString(),
		Kind:           models.SegmentMandatoryRest,
		PlannedMinutes: 20,
		Status:         models.SegmentPending,
	})

	return model
}

// lookup maps energy and stress onto the schedule settings. Lower blocks
// for low energy or raised stress, longer breaks under high stress, a
// tighter block budget when overwhelm risk is up.
func lookup(analysis Analysis) (work, brk, maxBlocks int, sensitivity models.Sensitivity) {
	relaxed := analysis.Energy == EnergyHigh && analysis.Stress == StressNone

	switch {
	case analysis.Energy == EnergyLow, stressRank[analysis.Stress] >= stressRank[StressModerate]:
		work = 25
	case relaxed:
		work = 45
	default:
		work = 35
	}

	switch {
	case analysis.Stress == StressHigh:
		brk = 20
	case relaxed:
		brk = 10
	default:
		brk = 15
	}

	switch {
	case analysis.Stress == StressHigh:
		maxBlocks = 2
	case relaxed:
		maxBlocks = 4
	default:
		maxBlocks = 3
	}

	switch {
	case stressRank[analysis.Stress] >= stressRank[StressModerate]:
		sensitivity = models.SensitivityHigh
	case relaxed:
		sensitivity = models.SensitivityLow
	default:
		sensitivity = models.SensitivityMedium
	}
	return work, brk, maxBlocks, sensitivity
}
