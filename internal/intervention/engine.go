// Package intervention decides whether and how to act on a classified
// utterance: no action, a gentle nudge, a firm redirection, or mandatory
// enforcement, plus the schedule mutations that back the decision up.
package intervention

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pacekeeper/pacekeeper/internal/schedule"
	"github.com/pacekeeper/pacekeeper/pkg/models"
)

// Policy holds the escalation thresholds and cool-down settings. These
// are configurable constants, not algorithmic truth: only their ordering
// is load-bearing.
type Policy struct {
	GentleOvertimeMin    int     `yaml:"gentle_overtime_min"`
	FirmOvertimeMin      int     `yaml:"firm_overtime_min"`
	MandatoryOvertimeMin int     `yaml:"mandatory_overtime_min"`
	OverwhelmIntensity   float64 `yaml:"overwhelm_intensity"`
	ExhaustedIntensity   float64 `yaml:"exhausted_intensity"`
	AvoidantIntensity    float64 `yaml:"avoidant_intensity"`
	CooldownMin          int     `yaml:"cooldown_min"`
	// Sensitivity nudges: high sensitivity reacts this much earlier,
	// low this much later.
	OvertimeAdjustMin int     `yaml:"overtime_adjust_min"`
	IntensityAdjust   float64 `yaml:"intensity_adjust"`
}

// CooldownWindow is the repeat-suppression window as a duration.
func (p Policy) CooldownWindow() time.Duration {
	return time.Duration(p.CooldownMin) * time.Minute
}

// DefaultPolicy returns the thresholds from the v3.0 decision table.
func DefaultPolicy() Policy {
	return Policy{
		GentleOvertimeMin:    5,
		FirmOvertimeMin:      15,
		MandatoryOvertimeMin: 30,
		OverwhelmIntensity:   0.7,
		ExhaustedIntensity:   0.6,
		AvoidantIntensity:    0.3,
		CooldownMin:          10,
		OvertimeAdjustMin:    2,
		IntensityAdjust:      0.1,
	}
}

// Input is everything a single decision needs.
type Input struct {
	Reading          models.EmotionalStateReading
	Sensitivity      models.Sensitivity
	HasActiveSegment bool
	ActiveSegmentID  string
	ActiveKind       models.SegmentKind
	ElapsedMinutes   int
	PlannedMinutes   int
	BreakMinutes     int
	// Recent holds today's prior interventions, most-recent-last, for
	// repeat suppression.
	Recent []models.Intervention
	Now    time.Time
}

// Decision is the outcome of one invocation: the record to append plus
// the schedule mutations to apply (in order), if any.
type Decision struct {
	Intervention models.Intervention
	Mutations    []schedule.Mutation
}

// Engine evaluates the decision table. Policy is swappable at runtime
// (config reload); decisions themselves are pure over their input.
type Engine struct {
	mu     sync.RWMutex
	policy Policy
}

// New creates a decision engine with the given policy.
func New(policy Policy) *Engine {
	return &Engine{policy: policy}
}

// SetPolicy replaces the thresholds, e.g. after a config file reload.
func (e *Engine) SetPolicy(p Policy) {
	e.mu.Lock()
	e.policy = p
	e.mu.Unlock()
	log.Info().Msg("Intervention policy updated")
}

// Policy returns the current thresholds.
func (e *Engine) Policy() Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.policy
}

// Decide runs the decision table against one reading. Every invocation
// yields an Intervention record, no-ops included, so the log stays a
// complete audit trail for pattern learning.
func (e *Engine) Decide(in Input) Decision {
	p := e.Policy().adjust(in.Sensitivity)

	label, level := p.baseLevel(in)

	escalated := false
	if level != models.LevelNone && e.inCooldown(in, label, level) {
		next := level.Escalate()
		if next != level {
			level = next
			escalated = true
		}
	}

	mutations, action, segmentID := p.actionFor(label, level, in)

	record := models.Intervention{
		ID:               uuid.NewString(),
		Level:            level,
		Action:           action,
		TriggerLabel:     in.Reading.Label,
		TriggerIntensity: in.Reading.Intensity,
		Message:          messageFor(label, level),
		SegmentID:        segmentID,
		Escalated:        escalated,
		Acceptance:       models.AcceptanceUnknown,
		At:               in.Now,
	}

	if level != models.LevelNone {
		log.Info().
			Str("label", string(label)).
			Str("level", string(level)).
			Str("action", string(action)).
			Bool("escalated", escalated).
			Msg("Intervention decided")
	}

	return Decision{Intervention: record, Mutations: mutations}
}

// adjust shifts thresholds by sensitivity: high reacts earlier, low later.
func (p Policy) adjust(s models.Sensitivity) Policy {
	switch s {
	case models.SensitivityHigh:
		p.GentleOvertimeMin -= p.OvertimeAdjustMin
		p.FirmOvertimeMin -= p.OvertimeAdjustMin
		p.MandatoryOvertimeMin -= p.OvertimeAdjustMin
		p.OverwhelmIntensity -= p.IntensityAdjust
		p.ExhaustedIntensity -= p.IntensityAdjust
	case models.SensitivityLow:
		p.GentleOvertimeMin += p.OvertimeAdjustMin
		p.FirmOvertimeMin += p.OvertimeAdjustMin
		p.MandatoryOvertimeMin += p.OvertimeAdjustMin
		p.OverwhelmIntensity += p.IntensityAdjust
		p.ExhaustedIntensity += p.IntensityAdjust
	}
	return p
}

// baseLevel evaluates the decision table rows. Rows are checked in
// severity order with hyperfocus first, so the most severe match wins and
// hyperfocus takes equal-severity ties (it carries health risk).
func (p Policy) baseLevel(in Input) (models.EmotionalLabel, models.InterventionLevel) {
	// Degraded readings are guesses made without the backend; they are
	// logged for the audit trail but never acted on.
	if in.Reading.Degraded {
		return in.Reading.Label, models.LevelNone
	}

	overtime := in.ElapsedMinutes - in.PlannedMinutes

	if in.Reading.Label == models.LabelHyperfocus && in.HasActiveSegment && in.ActiveKind == models.SegmentWork {
		switch {
		case overtime >= p.MandatoryOvertimeMin:
			return models.LabelHyperfocus, models.LevelMandatory
		case overtime >= p.FirmOvertimeMin:
			return models.LabelHyperfocus, models.LevelFirm
		case overtime >= p.GentleOvertimeMin:
			return models.LabelHyperfocus, models.LevelGentle
		}
		return models.LabelHyperfocus, models.LevelNone
	}

	switch in.Reading.Label {
	case models.LabelExhausted:
		if in.Reading.Intensity >= p.ExhaustedIntensity {
			return models.LabelExhausted, models.LevelMandatory
		}
	case models.LabelOverwhelmed:
		if in.Reading.Intensity >= p.OverwhelmIntensity {
			return models.LabelOverwhelmed, models.LevelFirm
		}
	case models.LabelAvoidant:
		if in.Reading.Intensity >= p.AvoidantIntensity {
			return models.LabelAvoidant, models.LevelGentle
		}
	}

	// frustrated, energized, neutral: no adaptation
	return in.Reading.Label, models.LevelNone
}

// inCooldown reports whether the same (label, level) pair already fired
// inside the cool-down window.
func (e *Engine) inCooldown(in Input, label models.EmotionalLabel, level models.InterventionLevel) bool {
	p := e.Policy()
	for i := len(in.Recent) - 1; i >= 0; i-- {
		prev := in.Recent[i]
		if in.Now.Sub(prev.At) > p.CooldownWindow() {
			return false
		}
		if prev.TriggerLabel == label && prev.Level == level {
			return true
		}
	}
	return false
}

// actionFor maps (label, level) to the schedule mutations backing the
// decision. Decisions stay valid with no active segment: overwhelm then
// lands on the next pending block instead.
func (p Policy) actionFor(label models.EmotionalLabel, level models.InterventionLevel, in Input) ([]schedule.Mutation, models.InterventionAction, string) {
	switch {
	case label == models.LabelHyperfocus && level == models.LevelFirm:
		// End the block now; the break that follows gets topped up for
		// the overrun.
		return []schedule.Mutation{
			{Kind: schedule.MutateShrinkCurrent, Minutes: in.ElapsedMinutes},
			{Kind: schedule.MutateExtendBreak, Minutes: in.BreakMinutes + 5},
		}, models.ActionShrinkCurrent, in.ActiveSegmentID

	case label == models.LabelHyperfocus && level == models.LevelMandatory:
		// Rest goes in first so ending the block activates it.
		return []schedule.Mutation{
			{Kind: schedule.MutateMandatoryRest, Minutes: schedule.MinMandatoryRestMinutes},
			{Kind: schedule.MutateShrinkCurrent, Minutes: in.ElapsedMinutes},
		}, models.ActionMandatoryRest, in.ActiveSegmentID

	case label == models.LabelOverwhelmed && level == models.LevelFirm:
		if !in.HasActiveSegment {
			return []schedule.Mutation{
				{Kind: schedule.MutateSimplifyNextBlock},
			}, models.ActionSimplifyNextBlock, ""
		}
		remaining := in.PlannedMinutes - in.ElapsedMinutes
		target := in.ElapsedMinutes + remaining/2
		return []schedule.Mutation{
			{Kind: schedule.MutateShrinkCurrent, Minutes: target},
			{Kind: schedule.MutateExtendBreak, Minutes: in.BreakMinutes + 5},
		}, models.ActionShrinkCurrent, in.ActiveSegmentID

	case label == models.LabelOverwhelmed && level == models.LevelMandatory:
		muts := []schedule.Mutation{
			{Kind: schedule.MutateMandatoryRest, Minutes: schedule.MinMandatoryRestMinutes},
		}
		if in.HasActiveSegment {
			muts = append(muts, schedule.Mutation{Kind: schedule.MutateShrinkCurrent, Minutes: in.ElapsedMinutes})
		}
		return muts, models.ActionMandatoryRest, in.ActiveSegmentID

	case label == models.LabelExhausted && level == models.LevelMandatory:
		return []schedule.Mutation{
			{Kind: schedule.MutateEndDay},
		}, models.ActionEndDay, in.ActiveSegmentID

	case label == models.LabelAvoidant && level.Rank() >= models.LevelFirm.Rank():
		// Escalated avoidance: shrink the next block to something
		// startable instead of just talking.
		return []schedule.Mutation{
			{Kind: schedule.MutateSimplifyNextBlock},
		}, models.ActionSimplifyNextBlock, ""
	}

	return nil, models.ActionNone, ""
}

// messageFor is the user-facing line for each (label, level).
func messageFor(label models.EmotionalLabel, level models.InterventionLevel) string {
	switch {
	case label == models.LabelHyperfocus && level == models.LevelGentle:
		return "You're past your planned stop. Good moment to find a stopping point."
	case label == models.LabelHyperfocus && level == models.LevelFirm:
		return "This block is over. Save your work; your break starts now."
	case label == models.LabelHyperfocus && level == models.LevelMandatory:
		return "Hard stop. You've run far past the block; a mandatory rest is on your schedule."
	case label == models.LabelOverwhelmed && level == models.LevelFirm:
		return "Let's make this smaller. The current block is shorter now and the next break is longer."
	case label == models.LabelOverwhelmed && level == models.LevelMandatory:
		return "Step away for a real rest. Everything else can wait twenty minutes."
	case label == models.LabelExhausted && level == models.LevelMandatory:
		return "Your day is done. Rest is the productive move now."
	case label == models.LabelAvoidant && level == models.LevelGentle:
		return "Try the smallest possible version of the task: two minutes, one step."
	case label == models.LabelAvoidant:
		return "The next block is now short enough to just start."
	case level == models.LevelNone:
		return ""
	}
	return "Noted. I'm keeping an eye on how this block goes."
}
