package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	id, err := parseID("staff_id", "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "abc", "0", "-3"} {
		_, err := parseID("staff_id", bad)
		assert.Error(t, err, bad)
	}
}

func TestWeekRange(t *testing.T) {
	start, end, err := weekRange([]string{"2025-01-06"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.Local), start)
	assert.Equal(t, time.Date(2025, 1, 13, 0, 0, 0, 0, time.Local), end)

	_, end, err = weekRange([]string{"2025-01-06", "2025-01-20"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 20, 0, 0, 0, 0, time.Local), end)

	_, _, err = weekRange([]string{"06/01/2025"})
	assert.Error(t, err)
}

func TestParseDateTime(t *testing.T) {
	got, err := parseDateTime("start", "2025-01-06T09:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 6, 9, 30, 0, 0, time.Local), got)

	_, err = parseDateTime("start", "2025-01-06")
	assert.Error(t, err)
}

func TestSlotLabel(t *testing.T) {
	start := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	assert.Equal(t, "Mon 06 Jan 09:00-10:00", slotLabel(&start, &end))
	assert.Equal(t, "-", slotLabel(nil, nil))
}
