package sheetsclient

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/sheets/v4"
)

// PublishGrid writes a schedule table (header row first, staff label in the
// first column) to the tab for the week range. A new tab is created if
// needed. On an existing tab, columns to the right of the table that
// schedulers added by hand (notes, cover, ...) keep their values for the
// staff member on that row.
func (c *Client) PublishGrid(ctx context.Context, spreadsheetID string, weekStart, weekEnd time.Time, table [][]any) (string, error) {
	if len(table) == 0 {
		return "", fmt.Errorf("grid table has no header")
	}

	title := tabTitle(weekStart, weekEnd)

	exists, err := c.hasSheet(ctx, spreadsheetID, title)
	if err != nil {
		return "", err
	}

	rows := table
	if exists {
		existing, err := c.GetValues(ctx, spreadsheetID, fmt.Sprintf("%s!A1:ZZ", title))
		if err != nil {
			return "", fmt.Errorf("failed to read existing tab data: %w", err)
		}
		rows = mergeExtraColumns(existing, table)

		if _, err := c.service.Spreadsheets.Values.Clear(spreadsheetID, title, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
			return "", fmt.Errorf("failed to clear existing tab: %w", err)
		}
	} else if _, err := c.CreateSheet(ctx, spreadsheetID, title); err != nil {
		return "", fmt.Errorf("failed to create tab: %w", err)
	}

	_, err = c.service.Spreadsheets.Values.Update(
		spreadsheetID,
		fmt.Sprintf("%s!A1", title),
		&sheets.ValueRange{Values: rows},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to write grid to tab: %w", err)
	}

	return title, nil
}

// tabTitle names a tab by its first and last day, e.g.
// "Mon Jan 06 2025 - Sun Jan 12 2025". weekEnd is exclusive.
func tabTitle(weekStart, weekEnd time.Time) string {
	return fmt.Sprintf("%s - %s",
		weekStart.Format("Mon Jan 02 2006"),
		weekEnd.AddDate(0, 0, -1).Format("Mon Jan 02 2006"),
	)
}

// mergeExtraColumns appends the existing tab's columns beyond the width of
// the fresh header to the fresh rows, matching rows on the first cell.
// Values of staff no longer on the grid are dropped.
func mergeExtraColumns(existing, fresh [][]any) [][]any {
	if len(existing) == 0 {
		return fresh
	}

	width := len(fresh[0])
	extraHeader := tail(existing[0], width)
	if len(extraHeader) == 0 {
		return fresh
	}

	extras := make(map[string][]any, len(existing))
	for _, row := range existing[1:] {
		if len(row) == 0 {
			continue
		}
		extras[fmt.Sprint(row[0])] = tail(row, width)
	}

	merged := make([][]any, len(fresh))
	merged[0] = append(append([]any{}, fresh[0]...), extraHeader...)
	for i, row := range fresh[1:] {
		out := append([]any{}, row...)
		for len(out) < width {
			out = append(out, "")
		}
		if len(row) > 0 {
			out = append(out, extras[fmt.Sprint(row[0])]...)
		}
		merged[i+1] = out
	}
	return merged
}

func tail(row []any, from int) []any {
	if len(row) <= from {
		return nil
	}
	return row[from:]
}
