// Package schedule owns the per-day schedule state machine: segment
// lifecycle, mandatory-rest enforcement, and adaptation mutations.
package schedule

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pacekeeper/pacekeeper/pkg/models"
)

var (
	// ErrDayEnded is returned for operations attempted after end-day.
	// Not fatal; callers should stop retrying.
	ErrDayEnded = errors.New("schedule: day has ended")
	// ErrInvalidMutation is returned when a mutation targets a segment
	// that is not in the required state. Surfaced, never silently dropped.
	ErrInvalidMutation = errors.New("schedule: invalid mutation")
)

const (
	// MinSegmentMinutes is the hard floor for any shrink mutation.
	MinSegmentMinutes = 10
	// MinMandatoryRestMinutes is the shortest mandatory rest the engine
	// will insert.
	MinMandatoryRestMinutes = 20
)

// MutationKind identifies a schedule adaptation.
type MutationKind string

const (
	MutateShrinkCurrent     MutationKind = "shrink_current"
	MutateExtendBreak       MutationKind = "extend_break"
	MutateMandatoryRest     MutationKind = "insert_mandatory_rest"
	MutateEndDay            MutationKind = "end_day"
	MutateSimplifyNextBlock MutationKind = "simplify_next_block"
)

// Mutation is one adaptation request against the live schedule.
type Mutation struct {
	Kind           MutationKind
	Minutes        int
	InterventionID string
}

// Engine mutates a single user's ScheduleModel. It is not safe for
// concurrent use; the session manager serializes access per user.
type Engine struct {
	model *models.ScheduleModel
	now   func() time.Time
}

// NewEngine wraps a schedule model. The model is owned by the engine
// until the caller persists it.
func NewEngine(model *models.ScheduleModel) *Engine {
	return &Engine{model: model, now: time.Now}
}

// Model returns the underlying schedule model.
func (e *Engine) Model() *models.ScheduleModel { return e.model }

// ElapsedInCurrent returns minutes elapsed in the active segment.
// Pure query: zero when nothing is active.
func (e *Engine) ElapsedInCurrent() int {
	active := e.model.Active()
	if active == nil || active.StartedAt.IsZero() {
		return 0
	}
	return int(e.now().Sub(active.StartedAt).Minutes())
}

// AdvanceToNext completes the current active segment (if any) and
// activates the next pending one. Running out of plan is not a failure:
// the plan auto-extends with default-length segments. A mandatory rest is
// inserted before any work segment once max-consecutive-work completed
// work blocks have run without a rest.
func (e *Engine) AdvanceToNext() error {
	if e.model.DayEnded {
		return ErrDayEnded
	}

	if active := e.model.Active(); active != nil {
		e.complete(active)
	}
	e.activateNext()
	return nil
}

// ApplyAdaptation applies one mutation to the live schedule.
func (e *Engine) ApplyAdaptation(m Mutation) error {
	if e.model.DayEnded {
		return ErrDayEnded
	}

	switch m.Kind {
	case MutateShrinkCurrent:
		return e.shrinkCurrent(m)
	case MutateExtendBreak:
		return e.extendBreak(m)
	case MutateMandatoryRest:
		return e.insertMandatoryRest(m)
	case MutateEndDay:
		return e.endDay()
	case MutateSimplifyNextBlock:
		return e.simplifyNextBlock(m)
	default:
		return ErrInvalidMutation
	}
}

// shrinkCurrent reduces the active segment's planned duration, never
// below max(MinSegmentMinutes, elapsed). A shrink down to elapsed ends
// the block immediately and activates the next segment.
func (e *Engine) shrinkCurrent(m Mutation) error {
	active := e.model.Active()
	if active == nil {
		return ErrInvalidMutation
	}

	elapsed := e.ElapsedInCurrent()
	floor := MinSegmentMinutes
	if elapsed > floor {
		floor = elapsed
	}
	// The floor can sit above the current plan when the block has run
	// over; the shrink then lands at elapsed and the block ends now.
	newPlanned := m.Minutes
	if newPlanned < floor {
		newPlanned = floor
	}
	active.PlannedMinutes = newPlanned
	active.AdaptedBy = m.InterventionID

	log.Debug().Str("segment", active.ID).Int("planned", newPlanned).Int("elapsed", elapsed).Msg("Segment shrunk")

	if elapsed >= newPlanned {
		e.complete(active)
		e.activateNext()
	}
	return nil
}

// extendBreak lengthens the active break, or the next pending one. When
// the plan holds no upcoming break, one is appended so the extension
// always lands somewhere.
func (e *Engine) extendBreak(m Mutation) error {
	minutes := m.Minutes
	if minutes <= 0 {
		minutes = e.model.BreakMinutes
	}

	target := e.model.Active()
	if target == nil || target.Kind != models.SegmentBreak {
		target = e.model.NextPendingOfKind(models.SegmentBreak)
	}
	if target == nil {
		e.model.Segments = append(e.model.Segments, &models.ScheduleSegment{
			ID:             uuid.NewString(),
			Kind:           models.SegmentBreak,
			PlannedMinutes: minutes,
			Status:         models.SegmentPending,
			AdaptedBy:      m.InterventionID,
		})
		return nil
	}
	if minutes > target.PlannedMinutes {
		target.PlannedMinutes = minutes
	}
	target.AdaptedBy = m.InterventionID
	return nil
}

// insertMandatoryRest places a mandatory rest directly after the active
// segment (or before the next pending one).
func (e *Engine) insertMandatoryRest(m Mutation) error {
	minutes := m.Minutes
	if minutes < MinMandatoryRestMinutes {
		minutes = MinMandatoryRestMinutes
	}
	rest := &models.ScheduleSegment{
		ID:             uuid.NewString(),
		Kind:           models.SegmentMandatoryRest,
		PlannedMinutes: minutes,
		Status:         models.SegmentPending,
		AdaptedBy:      m.InterventionID,
	}
	e.insertAfterActive(rest)
	return nil
}

// endDay completes the active segment, aborts everything still pending,
// and halts further scheduling for the day.
func (e *Engine) endDay() error {
	if active := e.model.Active(); active != nil {
		e.complete(active)
	}
	for _, seg := range e.model.Segments {
		if seg.Status == models.SegmentPending {
			seg.Status = models.SegmentAborted
		}
	}
	e.model.DayEnded = true
	log.Info().Str("day", e.model.Day).Msg("Day ended")
	return nil
}

// simplifyNextBlock shrinks the next pending work segment. Used when an
// overwhelm intervention fires with nothing active.
func (e *Engine) simplifyNextBlock(m Mutation) error {
	next := e.model.NextPendingOfKind(models.SegmentWork)
	if next == nil {
		return ErrInvalidMutation
	}
	minutes := m.Minutes
	if minutes <= 0 {
		minutes = next.PlannedMinutes / 2
	}
	if minutes < MinSegmentMinutes {
		minutes = MinSegmentMinutes
	}
	if minutes < next.PlannedMinutes {
		next.PlannedMinutes = minutes
	}
	next.AdaptedBy = m.InterventionID
	return nil
}

// complete finishes a segment, recording actual elapsed minutes.
// Completed segments are immutable from here on.
func (e *Engine) complete(seg *models.ScheduleSegment) {
	now := e.now()
	if !seg.StartedAt.IsZero() {
		seg.ActualMinutes = int(now.Sub(seg.StartedAt).Minutes())
	}
	seg.Status = models.SegmentCompleted
	seg.CompletedAt = now
}

// activateNext activates the next pending segment, inserting a mandatory
// rest first when the consecutive-work budget is spent, and auto-extending
// the plan when nothing is pending.
func (e *Engine) activateNext() {
	next := e.model.NextPending()
	if next == nil {
		next = e.autoExtend()
	}

	if next.Kind != models.SegmentMandatoryRest &&
		e.model.MaxConsecutiveWork > 0 &&
		e.model.ConsecutiveWorkCompleted() >= e.model.MaxConsecutiveWork {
		rest := &models.ScheduleSegment{
			ID:             uuid.NewString(),
			Kind:           models.SegmentMandatoryRest,
			PlannedMinutes: MinMandatoryRestMinutes,
			Status:         models.SegmentPending,
		}
		e.insertBefore(rest, next)
		next = rest
		log.Debug().Str("day", e.model.Day).Msg("Mandatory rest inserted before next work block")
	}

	next.Status = models.SegmentActive
	next.StartedAt = e.now()
}

// autoExtend appends a segment of the opposite kind to the last one, so
// the day keeps alternating work and breaks at the model's defaults.
func (e *Engine) autoExtend() *models.ScheduleSegment {
	kind := models.SegmentWork
	minutes := e.model.WorkMinutes
	if n := len(e.model.Segments); n > 0 && e.model.Segments[n-1].Kind == models.SegmentWork {
		kind = models.SegmentBreak
		minutes = e.model.BreakMinutes
	}
	seg := &models.ScheduleSegment{
		ID:             uuid.NewString(),
		Kind:           kind,
		PlannedMinutes: minutes,
		Status:         models.SegmentPending,
	}
	e.model.Segments = append(e.model.Segments, seg)
	return seg
}

// insertAfterActive inserts seg directly after the active segment, or
// before the first pending one when nothing is active.
func (e *Engine) insertAfterActive(seg *models.ScheduleSegment) {
	for i, s := range e.model.Segments {
		if s.Status == models.SegmentActive {
			e.insertAt(i+1, seg)
			return
		}
	}
	if next := e.model.NextPending(); next != nil {
		e.insertBefore(seg, next)
		return
	}
	e.model.Segments = append(e.model.Segments, seg)
}

func (e *Engine) insertBefore(seg, before *models.ScheduleSegment) {
	for i, s := range e.model.Segments {
		if s == before {
			e.insertAt(i, seg)
			return
		}
	}
	e.model.Segments = append(e.model.Segments, seg)
}

func (e *Engine) insertAt(i int, seg *models.ScheduleSegment) {
	e.model.Segments = append(e.model.Segments, nil)
	copy(e.model.Segments[i+1:], e.model.Segments[i:])
	e.model.Segments[i] = seg
}
