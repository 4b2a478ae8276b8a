package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetGridData(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.generate(t).Suggestions[0]
	_, err := env.engine.AcceptSuggestion(ctx, s.ID, Decision{}, 7)
	require.NoError(t, err)

	grid, err := env.engine.GetGridData(ctx, homeOrg, monday, monday.AddDate(0, 0, 7))
	require.NoError(t, err)

	require.Len(t, grid.Days, 7)
	assert.Equal(t, monday, grid.Days[0])
	require.Len(t, grid.Rows, 3)

	alice := grid.Rows[0]
	assert.Equal(t, int64(1), alice.Staff.ID)
	require.Len(t, alice.Days[0], 1)
	assert.Equal(t, monday.Add(9*time.Hour), alice.Days[0][0].Start)
	assert.InDelta(t, 1.0, alice.ScheduledHours, 1e-9)
	assert.InDelta(t, 1.0/40.0, alice.UtilizationRatio, 1e-9)

	bob := grid.Rows[1]
	assert.Zero(t, bob.ScheduledHours)
	assert.Empty(t, bob.Days[0])

	require.Len(t, grid.Unscheduled, 3)
	for _, req := range grid.Unscheduled {
		assert.NotEqual(t, int64(3), req.PatientID)
	}
}
