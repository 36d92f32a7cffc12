package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacekeeper/pacekeeper/pkg/models"
)

func appendIntervention(t *testing.T, ivs *InterventionStore, id string, at time.Time, level models.InterventionLevel) {
	t.Helper()
	require.NoError(t, ivs.Append(context.Background(), "alex", models.Intervention{
		ID:           id,
		Level:        level,
		Action:       models.ActionNone,
		TriggerLabel: models.LabelHyperfocus,
		Acceptance:   models.AcceptanceUnknown,
		At:           at,
	}))
}

func TestInterventionStore_RecentSince(t *testing.T) {
	st := testStore(t)
	ivs := NewInterventionStore(st)
	base := time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		appendIntervention(t, ivs, fmt.Sprintf("iv-%d", i), base.Add(time.Duration(i)*5*time.Minute), models.LevelGentle)
	}

	recent, err := ivs.RecentSince(context.Background(), "alex", base.Add(6*time.Minute))
	require.NoError(t, err)
	require.Len(t, recent, 2)
	// Oldest first.
	assert.Equal(t, "iv-2", recent[0].ID)
	assert.Equal(t, "iv-3", recent[1].ID)
}

func TestInterventionStore_Last(t *testing.T) {
	st := testStore(t)
	ivs := NewInterventionStore(st)
	ctx := context.Background()
	base := time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)

	last, err := ivs.Last(ctx, "alex")
	require.NoError(t, err)
	assert.Nil(t, last)

	appendIntervention(t, ivs, "iv-0", base, models.LevelGentle)
	appendIntervention(t, ivs, "iv-1", base.Add(10*time.Minute), models.LevelFirm)

	last, err = ivs.Last(ctx, "alex")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "iv-1", last.ID)
	assert.Equal(t, models.LevelFirm, last.Level)
}

func TestInterventionStore_SetAcceptance(t *testing.T) {
	st := testStore(t)
	ivs := NewInterventionStore(st)
	ctx := context.Background()

	appendIntervention(t, ivs, "iv-0", time.Now(), models.LevelFirm)
	require.NoError(t, ivs.SetAcceptance(ctx, "iv-0", models.AcceptanceResisted))

	last, err := ivs.Last(ctx, "alex")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, models.AcceptanceResisted, last.Acceptance)
}
