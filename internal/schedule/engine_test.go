// Package schedule owns the per-day schedule state machine: segment
// lifecycle, mandatory-rest enforcement, and adaptation mutations.
package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/pacekeeper/pacekeeper/pkg/models"
)

// EngineSuite is a test suite for the schedule engine.
type EngineSuite struct {
	suite.Suite
	now time.Time
}

func (s *EngineSuite) SetupTest() {
	s.now = time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

// engine wraps a model with a fixed clock.
func (s *EngineSuite) engine(m *models.ScheduleModel) *Engine {
	e := NewEngine(m)
	e.now = func() time.Time { return s.now }
	return e
}

// plan builds a standard day: maxBlocks work segments with breaks
// between, plus a trailing rest, all pending.
func (s *EngineSuite) plan(work, brk, maxBlocks int) *models.ScheduleModel {
	m := &models.ScheduleModel{
		Day:                "2026-08-29",
		WorkMinutes:        work,
		BreakMinutes:       brk,
		MaxConsecutiveWork: maxBlocks,
		Sensitivity:        models.SensitivityMedium,
	}
	id := 0
	add := func(kind models.SegmentKind, minutes int) {
		id++
		m.Segments = append(m.Segments, &models.ScheduleSegment{
			ID:             string(rune('a' + id - 1)),
			Kind:           kind,
			PlannedMinutes: minutes,
			Status:         models.SegmentPending,
		})
	}
	for i := 0; i < maxBlocks; i++ {
		add(models.SegmentWork, work)
		if i < maxBlocks-1 {
			add(models.SegmentBreak, brk)
		}
	}
	add(models.SegmentMandatoryRest, 20)
	return m
}

// advance moves the clock and completes the current segment.
func (s *EngineSuite) advance(e *Engine, minutes int) {
	s.now = s.now.Add(time.Duration(minutes) * time.Minute)
	s.Require().NoError(e.AdvanceToNext())
}

// TestAdvanceActivatesFirst tests starting the day.
func (s *EngineSuite) TestAdvanceActivatesFirst() {
	m := s.plan(35, 15, 3)
	e := s.engine(m)

	s.Require().NoError(e.AdvanceToNext())
	active := m.Active()
	s.Require().NotNil(active)
	s.Equal(models.SegmentWork, active.Kind)
	s.Equal(s.now, active.StartedAt)
}

// TestAdvanceCompletesAndActivatesNext tests the normal rotation keeps
// exactly one segment active and records actual minutes.
func (s *EngineSuite) TestAdvanceCompletesAndActivatesNext() {
	m := s.plan(35, 15, 3)
	e := s.engine(m)
	s.Require().NoError(e.AdvanceToNext())

	s.advance(e, 35)

	s.Equal(models.SegmentCompleted, m.Segments[0].Status)
	s.Equal(35, m.Segments[0].ActualMinutes)
	active := m.Active()
	s.Require().NotNil(active)
	s.Equal(models.SegmentBreak, active.Kind)

	count := 0
	for _, seg := range m.Segments {
		if seg.Status == models.SegmentActive {
			count++
		}
	}
	s.Equal(1, count)
}

// TestMandatoryRestInsertion tests that a rest is forced once the
// consecutive-work budget is spent, for each budget value. The plans
// interleave ordinary breaks between work blocks; those must not feed
// the budget back.
func (s *EngineSuite) TestMandatoryRestInsertion() {
	for _, maxBlocks := range []int{2, 3, 4} {
		m := &models.ScheduleModel{
			Day:                "2026-08-29",
			WorkMinutes:        25,
			BreakMinutes:       10,
			MaxConsecutiveWork: maxBlocks,
		}
		// Alternating work and break blocks, no planned rest.
		for i := 0; i < maxBlocks; i++ {
			m.Segments = append(m.Segments,
				&models.ScheduleSegment{
					ID:             string(rune('a' + 2*i)),
					Kind:           models.SegmentWork,
					PlannedMinutes: 25,
					Status:         models.SegmentPending,
				},
				&models.ScheduleSegment{
					ID:             string(rune('a' + 2*i + 1)),
					Kind:           models.SegmentBreak,
					PlannedMinutes: 10,
					Status:         models.SegmentPending,
				})
		}
		e := s.engine(m)
		s.Require().NoError(e.AdvanceToNext())
		for i := 0; i < maxBlocks-1; i++ {
			s.advance(e, 25) // complete work
			s.Equal(i+1, m.ConsecutiveWorkCompleted(), "maxBlocks=%d", maxBlocks)
			s.advance(e, 10) // complete break, budget untouched
			s.Equal(i+1, m.ConsecutiveWorkCompleted(), "maxBlocks=%d", maxBlocks)
		}

		// The final work block spends the budget; a rest must activate
		// ahead of the planned break.
		s.advance(e, 25)
		s.Equal(maxBlocks, m.ConsecutiveWorkCompleted(), "maxBlocks=%d", maxBlocks)
		active := m.Active()
		s.Require().NotNil(active, "maxBlocks=%d", maxBlocks)
		s.Equal(models.SegmentMandatoryRest, active.Kind, "maxBlocks=%d", maxBlocks)
		s.Equal(MinMandatoryRestMinutes, active.PlannedMinutes)

		// Completing the rest clears the budget and the day resumes.
		s.advance(e, MinMandatoryRestMinutes)
		s.Equal(0, m.ConsecutiveWorkCompleted(), "maxBlocks=%d", maxBlocks)
		active = m.Active()
		s.Require().NotNil(active, "maxBlocks=%d", maxBlocks)
		s.Equal(models.SegmentBreak, active.Kind, "maxBlocks=%d", maxBlocks)
	}
}

// TestMandatoryRestOnAutoExtend tests the budget holds when the plan has
// run out: the auto-extended continuation may not reach a work block
// until a rest completes.
func (s *EngineSuite) TestMandatoryRestOnAutoExtend() {
	m := &models.ScheduleModel{
		Day:                "2026-08-29",
		WorkMinutes:        25,
		BreakMinutes:       10,
		MaxConsecutiveWork: 2,
	}
	for i, kind := range []models.SegmentKind{models.SegmentWork, models.SegmentBreak, models.SegmentWork} {
		m.Segments = append(m.Segments, &models.ScheduleSegment{
			ID:             string(rune('a' + i)),
			Kind:           kind,
			PlannedMinutes: 25,
			Status:         models.SegmentPending,
		})
	}
	e := s.engine(m)
	s.Require().NoError(e.AdvanceToNext())
	s.advance(e, 25) // first work
	s.advance(e, 10) // break, budget stays at 1
	s.advance(e, 25) // second work spends the budget, plan exhausted

	active := m.Active()
	s.Require().NotNil(active)
	s.Equal(models.SegmentMandatoryRest, active.Kind)

	found := false
	for _, seg := range m.Segments {
		if seg.Kind == models.SegmentMandatoryRest {
			found = true
		}
	}
	s.True(found)

	// Only after the rest completes may work come back.
	s.advance(e, MinMandatoryRestMinutes)
	s.Equal(0, m.ConsecutiveWorkCompleted())
	s.advance(e, 10)
	active = m.Active()
	s.Require().NotNil(active)
	s.Equal(models.SegmentWork, active.Kind)
}

// TestAutoExtend tests the plan grows with alternating segments when it
// runs out instead of failing.
func (s *EngineSuite) TestAutoExtend() {
	m := s.plan(35, 15, 2)
	e := s.engine(m)
	s.Require().NoError(e.AdvanceToNext())
	for range m.Segments {
		s.advance(e, 20)
	}

	active := m.Active()
	s.Require().NotNil(active)
	s.False(m.DayEnded)
}

// TestShrinkCurrent tests the shrink floor.
func (s *EngineSuite) TestShrinkCurrent() {
	m := s.plan(35, 15, 3)
	e := s.engine(m)
	s.Require().NoError(e.AdvanceToNext())

	err := e.ApplyAdaptation(Mutation{Kind: MutateShrinkCurrent, Minutes: 3, InterventionID: "iv1"})
	s.Require().NoError(err)
	s.Equal(MinSegmentMinutes, m.Segments[0].PlannedMinutes)
	s.Equal("iv1", m.Segments[0].AdaptedBy)
	s.Equal(models.SegmentActive, m.Segments[0].Status)
}

// TestShrinkPastElapsedEndsBlock tests that shrinking a block already run
// over lands at elapsed and ends it immediately.
func (s *EngineSuite) TestShrinkPastElapsedEndsBlock() {
	m := s.plan(25, 15, 3)
	e := s.engine(m)
	s.Require().NoError(e.AdvanceToNext())
	s.now = s.now.Add(40 * time.Minute)

	err := e.ApplyAdaptation(Mutation{Kind: MutateShrinkCurrent, Minutes: 40})
	s.Require().NoError(err)
	s.Equal(models.SegmentCompleted, m.Segments[0].Status)
	s.Equal(40, m.Segments[0].PlannedMinutes)

	active := m.Active()
	s.Require().NotNil(active)
	s.Equal(models.SegmentBreak, active.Kind)
}

// TestShrinkWithoutActive tests the invalid-mutation path.
func (s *EngineSuite) TestShrinkWithoutActive() {
	m := s.plan(35, 15, 3)
	e := s.engine(m)
	err := e.ApplyAdaptation(Mutation{Kind: MutateShrinkCurrent, Minutes: 20})
	s.ErrorIs(err, ErrInvalidMutation)
}

// TestExtendBreak tests targeting order: active break, next pending
// break, appended break.
func (s *EngineSuite) TestExtendBreak() {
	m := s.plan(35, 15, 3)
	e := s.engine(m)
	s.Require().NoError(e.AdvanceToNext())

	// Work active: the extension lands on the next pending break.
	s.Require().NoError(e.ApplyAdaptation(Mutation{Kind: MutateExtendBreak, Minutes: 20}))
	s.Equal(20, m.Segments[1].PlannedMinutes)

	// Extending never shortens.
	s.Require().NoError(e.ApplyAdaptation(Mutation{Kind: MutateExtendBreak, Minutes: 12}))
	s.Equal(20, m.Segments[1].PlannedMinutes)

	s.advance(e, 35)
	s.Equal(models.SegmentBreak, m.Active().Kind)
	s.Require().NoError(e.ApplyAdaptation(Mutation{Kind: MutateExtendBreak, Minutes: 25}))
	s.Equal(25, m.Active().PlannedMinutes)
}

// TestExtendBreakAppendsWhenNonePlanned tests the extension always lands
// somewhere.
func (s *EngineSuite) TestExtendBreakAppendsWhenNonePlanned() {
	m := &models.ScheduleModel{
		Day: "2026-08-29", WorkMinutes: 35, BreakMinutes: 15,
		Segments: []*models.ScheduleSegment{
			{ID: "a", Kind: models.SegmentWork, PlannedMinutes: 35, Status: models.SegmentActive, StartedAt: s.now},
		},
	}
	e := s.engine(m)
	s.Require().NoError(e.ApplyAdaptation(Mutation{Kind: MutateExtendBreak, Minutes: 20}))
	s.Require().Len(m.Segments, 2)
	s.Equal(models.SegmentBreak, m.Segments[1].Kind)
	s.Equal(20, m.Segments[1].PlannedMinutes)
	s.Equal(models.SegmentPending, m.Segments[1].Status)
}

// TestInsertMandatoryRest tests placement directly after the active
// segment with the minimum length enforced.
func (s *EngineSuite) TestInsertMandatoryRest() {
	m := s.plan(35, 15, 3)
	e := s.engine(m)
	s.Require().NoError(e.AdvanceToNext())

	s.Require().NoError(e.ApplyAdaptation(Mutation{Kind: MutateMandatoryRest, Minutes: 5}))
	s.Equal(models.SegmentMandatoryRest, m.Segments[1].Kind)
	s.Equal(MinMandatoryRestMinutes, m.Segments[1].PlannedMinutes)

	// Ending the current block activates the rest.
	s.advance(e, 35)
	s.Equal(models.SegmentMandatoryRest, m.Active().Kind)
}

// TestEndDay tests completion of the active segment, aborting the rest,
// and rejection of further operations.
func (s *EngineSuite) TestEndDay() {
	m := s.plan(35, 15, 3)
	e := s.engine(m)
	s.Require().NoError(e.AdvanceToNext())

	s.Require().NoError(e.ApplyAdaptation(Mutation{Kind: MutateEndDay}))
	s.True(m.DayEnded)
	s.Equal(models.SegmentCompleted, m.Segments[0].Status)
	for _, seg := range m.Segments[1:] {
		s.Equal(models.SegmentAborted, seg.Status)
	}

	s.ErrorIs(e.AdvanceToNext(), ErrDayEnded)
	s.ErrorIs(e.ApplyAdaptation(Mutation{Kind: MutateExtendBreak}), ErrDayEnded)
}

// TestSimplifyNextBlock tests shrinking the next pending work block.
func (s *EngineSuite) TestSimplifyNextBlock() {
	m := s.plan(35, 15, 3)
	e := s.engine(m)

	// Default target is half the plan.
	s.Require().NoError(e.ApplyAdaptation(Mutation{Kind: MutateSimplifyNextBlock, InterventionID: "iv2"}))
	s.Equal(17, m.Segments[0].PlannedMinutes)
	s.Equal("iv2", m.Segments[0].AdaptedBy)

	// Never below the segment floor.
	s.Require().NoError(e.ApplyAdaptation(Mutation{Kind: MutateSimplifyNextBlock}))
	s.Equal(MinSegmentMinutes, m.Segments[0].PlannedMinutes)
}

// TestSimplifyWithNoPendingWork tests the invalid-mutation path.
func (s *EngineSuite) TestSimplifyWithNoPendingWork() {
	m := &models.ScheduleModel{Day: "2026-08-29"}
	e := s.engine(m)
	s.ErrorIs(e.ApplyAdaptation(Mutation{Kind: MutateSimplifyNextBlock}), ErrInvalidMutation)
}

// TestElapsedInCurrent tests the elapsed query.
func (s *EngineSuite) TestElapsedInCurrent() {
	m := s.plan(35, 15, 3)
	e := s.engine(m)
	s.Equal(0, e.ElapsedInCurrent())

	s.Require().NoError(e.AdvanceToNext())
	s.now = s.now.Add(12 * time.Minute)
	s.Equal(12, e.ElapsedInCurrent())
}

// TestUnknownMutation tests rejection of unknown mutation kinds.
func (s *EngineSuite) TestUnknownMutation() {
	e := s.engine(s.plan(35, 15, 3))
	s.ErrorIs(e.ApplyAdaptation(Mutation{Kind: "teleport"}), ErrInvalidMutation)
}
