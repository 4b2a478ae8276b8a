package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/carebridge/care-matching/pkg/core/model"
)

// GridRow is one staff member's line of the scheduling grid
type GridRow struct {
	Staff model.Staff

	// Days holds the assignments starting on each grid day, in start order
	Days [][]model.Assignment

	ScheduledHours float64

	// UtilizationRatio is scheduled hours over the weekly ceiling for the
	// weeks the grid spans. Zero when no ceiling is configured.
	UtilizationRatio float64
}

// GridData is the manual scheduling grid for an organization
type GridData struct {
	OrganizationID int64
	WeekStart      time.Time
	WeekEnd        time.Time
	Days           []time.Time
	Rows           []GridRow
	Unscheduled    []model.CareRequirement
}

// GetGridData builds the scheduling grid over [weekStart, weekEnd): every
// staff member's assignments by day and load, plus what is still unscheduled
func (e *Engine) GetGridData(ctx context.Context, orgID int64, weekStart, weekEnd time.Time) (*GridData, error) {
	if err := validateRange(weekStart, weekEnd); err != nil {
		return nil, err
	}

	snap, err := e.loadSnapshot(ctx, orgID, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}

	grid := &GridData{
		OrganizationID: orgID,
		WeekStart:      weekStart,
		WeekEnd:        weekEnd,
		Rows:           []GridRow{},
		Unscheduled:    []model.CareRequirement{},
	}
	for day := model.StartOfDay(weekStart); day.Before(weekEnd); day = day.AddDate(0, 0, 1) {
		grid.Days = append(grid.Days, day)
	}
	weeks := math.Ceil(float64(len(grid.Days)) / 7)

	for _, staff := range snap.Staff() {
		row := GridRow{
			Staff: *staff,
			Days:  make([][]model.Assignment, len(grid.Days)),
		}
		for _, a := range snap.Assignments(staff.ID) {
			if a.Start.Before(weekStart) || !a.Start.Before(weekEnd) {
				continue
			}
			if i := dayIndex(grid.Days, a.Start); i >= 0 {
				row.Days[i] = append(row.Days[i], a)
			}
			row.ScheduledHours += a.Hours()
		}
		if staff.MaxWeeklyHours > 0 {
			row.UtilizationRatio = row.ScheduledHours / (staff.MaxWeeklyHours * weeks)
		}
		grid.Rows = append(grid.Rows, row)
	}

	for _, window := range weekWindows(weekStart, weekEnd) {
		reqs, err := e.store.GetUnscheduledRequirements(ctx, orgID, window[0], window[1], nil)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch requirements: %w", err)
		}
		grid.Unscheduled = append(grid.Unscheduled, reqs...)
	}

	e.logger.Debug("Grid data built",
		zap.Int64("organization_id", orgID),
		zap.Int("staff", len(grid.Rows)),
		zap.Int("unscheduled", len(grid.Unscheduled)))
	return grid, nil
}

func dayIndex(days []time.Time, t time.Time) int {
	day := model.StartOfDay(t)
	for i, d := range days {
		if d.Equal(day) {
			return i
		}
	}
	return -1
}
