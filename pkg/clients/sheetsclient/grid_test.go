package sheetsclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTabTitle(t *testing.T) {
	monday := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "Mon Jan 06 2025 - Sun Jan 12 2025", tabTitle(monday, monday.AddDate(0, 0, 7)))
	assert.Equal(t, "Mon Jan 06 2025 - Sun Jan 19 2025", tabTitle(monday, monday.AddDate(0, 0, 14)))
}

func TestMergeExtraColumns(t *testing.T) {
	fresh := [][]any{
		{"Staff", "Mon 06 Jan", "Scheduled Hours"},
		{"Alice", "09:00-10:00 patient 3", 1.0},
		{"Bob", "", 0.0},
	}

	t.Run("keeps hand-added columns by staff", func(t *testing.T) {
		existing := [][]any{
			{"Staff", "Mon 06 Jan", "Scheduled Hours", "Notes", "Cover"},
			{"Bob", "old", "2", "driving test", "Carol"},
			{"Alice", "old", "1", "prefers mornings"},
			{"Dave", "old", "4", "left"},
		}

		merged := mergeExtraColumns(existing, fresh)

		assert.Equal(t, [][]any{
			{"Staff", "Mon 06 Jan", "Scheduled Hours", "Notes", "Cover"},
			{"Alice", "09:00-10:00 patient 3", 1.0, "prefers mornings"},
			{"Bob", "", 0.0, "driving test", "Carol"},
		}, merged)
	})

	t.Run("no extra columns", func(t *testing.T) {
		existing := [][]any{{"Staff", "Mon 06 Jan", "Scheduled Hours"}, {"Alice", "x", "1"}}
		assert.Equal(t, fresh, mergeExtraColumns(existing, fresh))
	})

	t.Run("empty tab", func(t *testing.T) {
		assert.Equal(t, fresh, mergeExtraColumns(nil, fresh))
	})
}
