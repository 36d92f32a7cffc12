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

func TestReadingStore_AppendAndRecent(t *testing.T) {
	st := testStore(t)
	readings := NewReadingStore(st)
	ctx := context.Background()

	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		r := models.EmotionalStateReading{
			ID:        fmt.Sprintf("r-%d", i),
			Label:     models.LabelNeutral,
			Intensity: float64(i) / 10,
			Utterance: fmt.Sprintf("utterance %d", i),
			At:        base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, readings.Append(ctx, "alex", r))
	}

	recent, err := readings.Recent(ctx, "alex", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)

	// Last three, oldest first.
	assert.Equal(t, "r-2", recent[0].ID)
	assert.Equal(t, "r-4", recent[2].ID)
	assert.Equal(t, base.Add(4*time.Minute).UnixMilli(), recent[2].At.UnixMilli())
}

func TestReadingStore_DegradedFlagSurvives(t *testing.T) {
	st := testStore(t)
	readings := NewReadingStore(st)
	ctx := context.Background()

	r := models.EmotionalStateReading{
		ID: "r-1", Label: models.LabelNeutral, Degraded: true, At: time.Now(),
	}
	require.NoError(t, readings.Append(ctx, "alex", r))

	recent, err := readings.Recent(ctx, "alex", 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.True(t, recent[0].Degraded)
}

func TestReadingStore_UsersIsolated(t *testing.T) {
	st := testStore(t)
	readings := NewReadingStore(st)
	ctx := context.Background()

	require.NoError(t, readings.Append(ctx, "alex", models.EmotionalStateReading{
		ID: "r-1", Label: models.LabelEnergized, At: time.Now(),
	}))

	recent, err := readings.Recent(ctx, "blake", 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
