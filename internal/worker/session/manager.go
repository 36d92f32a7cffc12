// Package session provides per-user session orchestration for pacekeeper.
// All state transitions for one user (schedule mutation, intervention
// decision, reading append) happen under that user's lock, so concurrent
// requests for the same user serialize while different users run in
// parallel.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pacekeeper/pacekeeper/internal/classifier"
	"github.com/pacekeeper/pacekeeper/internal/db/store"
	"github.com/pacekeeper/pacekeeper/internal/intervention"
	"github.com/pacekeeper/pacekeeper/internal/morning"
	"github.com/pacekeeper/pacekeeper/internal/patterns"
	"github.com/pacekeeper/pacekeeper/internal/privacy"
	"github.com/pacekeeper/pacekeeper/internal/schedule"
	"github.com/pacekeeper/pacekeeper/pkg/models"
)

// ErrNoSchedule is returned when a segment operation runs before morning
// analysis has produced a schedule for today.
var ErrNoSchedule = errors.New("session: no schedule for today")

// UserSession is the in-memory state for one user: the loaded context
// plus the pending morning conversation.
type UserSession struct {
	mu sync.Mutex

	userID string
	user   *models.UserContext

	morningUtterances []string
	followupsUsed     int
}

// Manager owns all user sessions and wires the decision core together.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*UserSession

	users         *store.UserStore
	schedules     *store.ScheduleStore
	readings      *store.ReadingStore
	interventions *store.InterventionStore

	classifier classifier.Classifier
	analyzer   *morning.Analyzer
	decider    *intervention.Engine
	patterns   *patterns.Updater

	now func() time.Time
}

// Deps are the collaborators a Manager needs.
type Deps struct {
	Users         *store.UserStore
	Schedules     *store.ScheduleStore
	Readings      *store.ReadingStore
	Interventions *store.InterventionStore
	Classifier    classifier.Classifier
	Decider       *intervention.Engine
	Patterns      *patterns.Updater
}

// NewManager creates a session manager.
func NewManager(d Deps) *Manager {
	return &Manager{
		sessions:      make(map[string]*UserSession),
		users:         d.Users,
		schedules:     d.Schedules,
		readings:      d.Readings,
		interventions: d.Interventions,
		classifier:    d.Classifier,
		analyzer:      morning.New(d.Classifier),
		decider:       d.Decider,
		patterns:      d.Patterns,
		now:           time.Now,
	}
}

// MorningResult is the outcome of one morning-analysis turn.
type MorningResult struct {
	Summary          *models.ScheduleSummary `json:"schedule_summary,omitempty"`
	FollowupQuestion string                  `json:"followup_question,omitempty"`
}

// StateCheckResult is the outcome of one live state check.
type StateCheckResult struct {
	Reading      models.EmotionalStateReading `json:"reading"`
	Intervention models.Intervention          `json:"intervention"`
	// Summary is set when the check mutated the schedule.
	Summary *models.ScheduleSummary `json:"updated_schedule_summary,omitempty"`
}

// Status is the read-only view for UI polling.
type Status struct {
	ActiveSegment     *models.ScheduleSegment `json:"active_segment,omitempty"`
	ElapsedMinutes    int                     `json:"elapsed_minutes"`
	NextSegmentEtaMin int                     `json:"next_segment_eta_min"`
	Sensitivity       models.Sensitivity      `json:"sensitivity"`
	LastIntervention  *models.Intervention    `json:"last_intervention,omitempty"`
	DayEnded          bool                    `json:"day_ended"`
	HasSchedule       bool                    `json:"has_schedule"`
}

// session returns (creating if needed) the per-user session.
func (m *Manager) session(userID string) *UserSession {
	m.mu.RLock()
	s, ok := m.sessions[userID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok = m.sessions[userID]; ok {
		return s
	}
	s = &UserSession{userID: userID}
	m.sessions[userID] = s
	return s
}

// ActiveSessionCount returns the number of loaded user sessions.
func (m *Manager) ActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// today is the schedule day key.
func (m *Manager) today() string {
	return m.now().Format("2006-01-02")
}

// ensure loads the user context and today's schedule into the session,
// resetting day-scoped state at the first touch of a new day.
func (m *Manager) ensure(ctx context.Context, s *UserSession) error {
	if s.user == nil {
		user, err := m.users.GetOrCreate(ctx, s.userID)
		if err != nil {
			return err
		}
		recent, err := m.readings.Recent(ctx, s.userID, models.MaxReadingHistory)
		if err != nil {
			return err
		}
		user.RecentReadings = recent
		last, err := m.interventions.Last(ctx, s.userID)
		if err != nil {
			return err
		}
		user.LastIntervention = last
		s.user = user
	}

	today := m.today()
	if s.user.Schedule != nil && s.user.Schedule.Day != today {
		// New day: the schedule resets, the pattern summary carries over.
		s.user.Schedule = nil
		s.morningUtterances = nil
		s.followupsUsed = 0
	}
	if s.user.Schedule == nil {
		model, err := m.schedules.LoadDay(ctx, s.userID, today)
		if err != nil {
			return err
		}
		s.user.Schedule = model
	}
	return nil
}

// StartMorningAnalysis runs one turn of the morning conversation. It may
// ask up to two clarifying follow-ups, then always finalizes a schedule.
// Re-running after finalization starts over and replaces today's model.
func (m *Manager) StartMorningAnalysis(ctx context.Context, userID, utterance string) (*MorningResult, error) {
	s := m.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := m.ensure(ctx, s); err != nil {
		return nil, err
	}

	if s.user.Schedule != nil && len(s.morningUtterances) == 0 {
		// Fresh conversation over an existing schedule: this is a redo.
		s.followupsUsed = 0
	}
	s.morningUtterances = append(s.morningUtterances, utterance)

	res := m.analyzer.Analyze(ctx, m.today(), s.morningUtterances, s.followupsUsed)
	if res.FollowupQuestion != "" {
		s.followupsUsed++
		return &MorningResult{FollowupQuestion: res.FollowupQuestion}, nil
	}

	// Start the day: the first segment goes active immediately.
	eng := schedule.NewEngine(res.Model)
	if err := eng.AdvanceToNext(); err != nil {
		return nil, err
	}

	if err := m.schedules.SaveDay(ctx, s.userID, res.Model); err != nil {
		return nil, err
	}
	s.user.Schedule = res.Model
	s.morningUtterances = nil
	s.followupsUsed = 0

	if !res.Analysis.Reading.Degraded {
		res.Analysis.Reading.Utterance = privacy.Clean(res.Analysis.Reading.Utterance)
		s.user.AppendReading(res.Analysis.Reading)
		if err := m.readings.Append(ctx, s.userID, res.Analysis.Reading); err != nil {
			log.Warn().Err(err).Msg("Failed to persist morning reading")
		}
	}

	return &MorningResult{Summary: res.Model.Summary()}, nil
}

// StateCheck handles one user utterance during the day: classify, decide,
// mutate, record. Invoked on every message; always appends an
// intervention record, no-ops included.
func (m *Manager) StateCheck(ctx context.Context, userID, utterance string) (*StateCheckResult, error) {
	s := m.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := m.ensure(ctx, s); err != nil {
		return nil, err
	}

	// The new utterance first settles the previous intervention's outcome.
	if err := m.patterns.ResolveAcceptance(ctx, s.user, utterance); err != nil {
		log.Warn().Err(err).Msg("Failed to resolve intervention acceptance")
	}

	reading := m.classifier.Classify(ctx, utterance, s.user.RecentReadings)
	// The classifier sees the raw utterance; the stored copy is scrubbed.
	reading.Utterance = privacy.Clean(reading.Utterance)
	s.user.AppendReading(reading)
	if err := m.readings.Append(ctx, s.userID, reading); err != nil {
		return nil, err
	}

	decision := m.decide(ctx, s, reading)

	mutated := false
	if s.user.Schedule != nil && len(decision.Mutations) > 0 {
		var err error
		mutated, err = m.applyMutations(ctx, s, decision.Mutations, decision.Intervention.ID)
		if err != nil {
			return nil, err
		}
	}

	if err := m.interventions.Append(ctx, s.userID, decision.Intervention); err != nil {
		return nil, err
	}
	s.user.LastIntervention = &decision.Intervention
	if err := m.patterns.OnIntervention(ctx, s.user, decision.Intervention); err != nil {
		log.Warn().Err(err).Msg("Failed to update pattern summary")
	}

	result := &StateCheckResult{Reading: reading, Intervention: decision.Intervention}
	if mutated {
		result.Summary = s.user.Schedule.Summary()
	}
	return result, nil
}

// decide builds the decision input from current state and runs the table.
func (m *Manager) decide(ctx context.Context, s *UserSession, reading models.EmotionalStateReading) intervention.Decision {
	now := m.now()

	in := intervention.Input{
		Reading:     reading,
		Sensitivity: models.SensitivityMedium,
		Now:         now,
	}
	if s.user.Schedule != nil {
		in.Sensitivity = s.user.Schedule.Sensitivity
		in.BreakMinutes = s.user.Schedule.BreakMinutes
		if active := s.user.Schedule.Active(); active != nil {
			eng := schedule.NewEngine(s.user.Schedule)
			in.HasActiveSegment = true
			in.ActiveSegmentID = active.ID
			in.ActiveKind = active.Kind
			in.ElapsedMinutes = eng.ElapsedInCurrent()
			in.PlannedMinutes = active.PlannedMinutes
		}
	}

	recent, err := m.interventions.RecentSince(ctx, s.userID, now.Add(-m.decider.Policy().CooldownWindow()))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load recent interventions, skipping repeat suppression")
	} else {
		in.Recent = recent
	}

	return m.decider.Decide(in)
}

// applyMutations applies the decision's mutations to the live schedule.
// An ErrInvalidMutation is retried once against freshly loaded state
// before surfacing; ErrDayEnded is absorbed (the record still lands in
// the log).
func (m *Manager) applyMutations(ctx context.Context, s *UserSession, muts []schedule.Mutation, interventionID string) (bool, error) {
	for i := range muts {
		muts[i].InterventionID = interventionID
	}

	err := applyAll(s.user.Schedule, muts)
	if errors.Is(err, schedule.ErrInvalidMutation) {
		fresh, lerr := m.schedules.LoadDay(ctx, s.userID, m.today())
		if lerr == nil && fresh != nil {
			s.user.Schedule = fresh
			err = applyAll(fresh, muts)
		}
	}
	if errors.Is(err, schedule.ErrDayEnded) {
		log.Debug().Msg("Mutation skipped, day already ended")
		return false, nil
	}
	if errors.Is(err, schedule.ErrInvalidMutation) {
		log.Warn().Err(err).Msg("Mutation rejected after retry")
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := m.schedules.SaveDay(ctx, s.userID, s.user.Schedule); err != nil {
		return false, err
	}
	return true, nil
}

func applyAll(model *models.ScheduleModel, muts []schedule.Mutation) error {
	eng := schedule.NewEngine(model)
	for _, mut := range muts {
		if err := eng.ApplyAdaptation(mut); err != nil {
			return err
		}
	}
	return nil
}

// CompleteCurrentSegment advances the schedule when an external timer
// fires: completes the active segment, activates the next one, and folds
// the finished segment into the pattern summary.
func (m *Manager) CompleteCurrentSegment(ctx context.Context, userID string) (*models.ScheduleSummary, error) {
	s := m.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := m.ensure(ctx, s); err != nil {
		return nil, err
	}
	if s.user.Schedule == nil {
		return nil, ErrNoSchedule
	}

	finished := s.user.Schedule.Active()

	eng := schedule.NewEngine(s.user.Schedule)
	if err := eng.AdvanceToNext(); err != nil {
		return nil, err
	}

	if err := m.schedules.SaveDay(ctx, s.userID, s.user.Schedule); err != nil {
		return nil, err
	}

	if finished != nil {
		if err := m.patterns.OnSegmentComplete(ctx, s.user, finished); err != nil {
			log.Warn().Err(err).Msg("Failed to update pattern summary")
		}
	}

	return s.user.Schedule.Summary(), nil
}

// GetStatus returns the read-only status view. Safe to call arbitrarily
// often; no side effects beyond lazily loading the session.
func (m *Manager) GetStatus(ctx context.Context, userID string) (*Status, error) {
	s := m.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := m.ensure(ctx, s); err != nil {
		return nil, err
	}

	status := &Status{
		Sensitivity:      models.SensitivityMedium,
		LastIntervention: s.user.LastIntervention,
	}
	sched := s.user.Schedule
	if sched == nil {
		return status, nil
	}

	status.HasSchedule = true
	status.Sensitivity = sched.Sensitivity
	status.DayEnded = sched.DayEnded

	if active := sched.Active(); active != nil {
		eng := schedule.NewEngine(sched)
		status.ActiveSegment = active
		status.ElapsedMinutes = eng.ElapsedInCurrent()
		eta := active.PlannedMinutes - status.ElapsedMinutes
		if eta < 0 {
			eta = 0
		}
		status.NextSegmentEtaMin = eta
	}
	return status, nil
}
