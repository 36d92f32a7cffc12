// Package patterns maintains the long-term behavioral summary per user:
// hyperfocus frequency, intervention acceptance, and accepted break
// lengths, fed by completed segments and resolved interventions.
package patterns

import (
	"context"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/pacekeeper/pacekeeper/internal/db/store"
	"github.com/pacekeeper/pacekeeper/pkg/models"
)

var acceptMarkers = []string{
	"ok", "okay", "fine", "sure", "alright", "sounds good", "will do",
	"you're right", "good call", "taking a break", "stopping now",
}

var resistMarkers = []string{
	"no", "not yet", "more minutes", "just a", "almost done", "keep going",
	"can't stop", "don't want", "one more", "later",
}

// DeriveAcceptance classifies the user's reaction to the previous
// intervention from their next utterance. Resistance markers win ties:
// "ok but just five more minutes" is resistance.
func DeriveAcceptance(utterance string) models.Acceptance {
	lower := strings.ToLower(utterance)
	for _, m := range resistMarkers {
		if containsMarker(lower, m) {
			return models.AcceptanceResisted
		}
	}
	for _, m := range acceptMarkers {
		if containsMarker(lower, m) {
			return models.AcceptanceAccepted
		}
	}
	return models.AcceptanceUnknown
}

// containsMarker matches single-word markers on word boundaries so "no"
// does not fire on "now" or "ok" on "broke". Phrases match as substrings.
func containsMarker(lower, marker string) bool {
	if strings.ContainsRune(marker, ' ') {
		return strings.Contains(lower, marker)
	}
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	}) {
		if w == marker {
			return true
		}
	}
	return false
}

// Updater applies pattern-summary updates and persists them.
type Updater struct {
	users         *store.UserStore
	interventions *store.InterventionStore
}

// NewUpdater creates a pattern updater.
func NewUpdater(users *store.UserStore, interventions *store.InterventionStore) *Updater {
	return &Updater{users: users, interventions: interventions}
}

// OnSegmentComplete folds a finished segment into the summary.
func (u *Updater) OnSegmentComplete(ctx context.Context, user *models.UserContext, seg *models.ScheduleSegment) error {
	switch seg.Kind {
	case models.SegmentWork:
		user.Pattern.WorkSegmentsCompleted++
	case models.SegmentBreak, models.SegmentMandatoryRest:
		minutes := seg.ActualMinutes
		if minutes == 0 {
			minutes = seg.PlannedMinutes
		}
		n := user.Pattern.BreaksAccepted
		user.Pattern.AvgAcceptedBreakMin = (user.Pattern.AvgAcceptedBreakMin*float64(n) + float64(minutes)) / float64(n+1)
		user.Pattern.BreaksAccepted = n + 1
	}
	return u.users.UpdatePattern(ctx, user.ID, user.Pattern)
}

// OnIntervention folds a new decision into the summary.
func (u *Updater) OnIntervention(ctx context.Context, user *models.UserContext, iv models.Intervention) error {
	if iv.TriggerLabel == models.LabelHyperfocus && iv.Level.Rank() >= models.LevelFirm.Rank() {
		user.Pattern.HyperfocusEpisodes++
		return u.users.UpdatePattern(ctx, user.ID, user.Pattern)
	}
	return nil
}

// ResolveAcceptance derives the user's reaction to the last unresolved
// intervention from their next utterance, and records it on both the
// intervention row and the pattern summary.
func (u *Updater) ResolveAcceptance(ctx context.Context, user *models.UserContext, utterance string) error {
	last := user.LastIntervention
	if last == nil || last.Level == models.LevelNone || last.Acceptance != models.AcceptanceUnknown {
		return nil
	}

	acc := DeriveAcceptance(utterance)
	if acc == models.AcceptanceUnknown {
		return nil
	}

	if err := u.interventions.SetAcceptance(ctx, last.ID, acc); err != nil {
		return err
	}
	last.Acceptance = acc

	switch acc {
	case models.AcceptanceAccepted:
		user.Pattern.InterventionsAccepted++
	case models.AcceptanceResisted:
		user.Pattern.InterventionsResisted++
	}

	log.Debug().Str("intervention", last.ID).Str("acceptance", string(acc)).Msg("Intervention outcome resolved")
	return u.users.UpdatePattern(ctx, user.ID, user.Pattern)
}
