// Package export renders scheduling data for people who work in spreadsheets
package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/carebridge/care-matching/pkg/core/model"
	"github.com/carebridge/care-matching/pkg/core/services"
)

const (
	scheduleSheet    = "Schedule"
	unscheduledSheet = "Unscheduled"
)

var unscheduledHeader = []string{
	"Patient",
	"Service Type",
	"Week Start",
	"Remaining Visits",
	"Remaining Minutes",
	"Preferred Window",
}

// GridXLSX renders the grid as a workbook: one schedule row per staff
// member with a column per day, and a sheet of unscheduled requirements
func GridXLSX(grid *services.GridData) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(scheduleSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(unscheduledSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	cellStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cell style: %w", err)
	}

	schedule := ScheduleTable(grid)
	for i, values := range schedule {
		style := cellStyle
		if i == 0 {
			style = headerStyle
		}
		if err := writeRow(f, scheduleSheet, i+1, values, style); err != nil {
			return nil, err
		}
	}
	if err := setWidths(f, scheduleSheet, len(schedule[0]), 22); err != nil {
		return nil, err
	}

	for i, values := range UnscheduledTable(grid) {
		style := 0
		if i == 0 {
			style = headerStyle
		}
		if err := writeRow(f, unscheduledSheet, i+1, values, style); err != nil {
			return nil, err
		}
	}
	if err := setWidths(f, unscheduledSheet, len(unscheduledHeader), 18); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ScheduleTable lays the grid out as rows: a header, then one row per staff
// member with a cell per day followed by scheduled hours and utilization
func ScheduleTable(grid *services.GridData) [][]any {
	header := []any{"Staff"}
	for _, day := range grid.Days {
		header = append(header, day.Format("Mon 02 Jan"))
	}
	header = append(header, "Scheduled Hours", "Utilization")

	table := [][]any{header}
	for _, row := range grid.Rows {
		values := []any{staffLabel(row.Staff)}
		for _, assignments := range row.Days {
			values = append(values, visitsCell(assignments))
		}
		values = append(values, row.ScheduledHours, fmt.Sprintf("%.0f%%", row.UtilizationRatio*100))
		table = append(table, values)
	}
	return table
}

// UnscheduledTable lists the requirements still to place, with a header
func UnscheduledTable(grid *services.GridData) [][]any {
	header := make([]any, len(unscheduledHeader))
	for i, h := range unscheduledHeader {
		header[i] = h
	}

	table := [][]any{header}
	for _, req := range grid.Unscheduled {
		start, end := req.PreferredWindowMinutes()
		table = append(table, []any{
			req.PatientID,
			req.ServiceTypeID,
			req.WeekStart.Format(time.DateOnly),
			req.RemainingFrequencyPerWeek,
			req.RemainingDurationMinutes,
			fmt.Sprintf("%s-%s", clock(start), clock(end)),
		})
	}
	return table
}

func writeRow(f *excelize.File, sheet string, row int, values []any, style int) error {
	for i, value := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
		if style != 0 {
			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return fmt.Errorf("failed to set style on %s: %w", cell, err)
			}
		}
	}
	return nil
}

func setWidths(f *excelize.File, sheet string, columns int, width float64) error {
	last, err := excelize.ColumnNumberToName(columns)
	if err != nil {
		return fmt.Errorf("failed to convert column number: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", last, width); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	return nil
}

func staffLabel(s model.Staff) string {
	if s.IsPartner() {
		return s.Name + " (partner)"
	}
	return s.Name
}

// visitsCell lists a day's visits, one per line
func visitsCell(assignments []model.Assignment) string {
	lines := make([]string, len(assignments))
	for i, a := range assignments {
		line := fmt.Sprintf("%s-%s patient %d", a.Start.Format("15:04"), a.End.Format("15:04"), a.PatientID)
		if a.SSPOAcceptanceStatus == model.SSPOPending {
			line += " (awaiting partner)"
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func clock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
