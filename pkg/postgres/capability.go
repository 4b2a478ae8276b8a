package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carebridge/care-matching/pkg/core/model"
)

// GetCapabilityProfiles retrieves every partner capability profile for a
// service type. Activity and expiry are left to the ranker.
func (d *DB) GetCapabilityProfiles(ctx context.Context, serviceTypeID int64) ([]model.CapabilityProfile, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT c.organization_id, o.name, c.service_type_id,
		       c.max_weekly_hours, c.current_utilization_hours,
		       c.quality_score, c.acceptance_rate, c.completion_rate,
		       c.service_areas, c.available_days, c.window_start_minute, c.window_end_minute,
		       c.min_notice_hours, c.special_care_flags, c.active, c.effective_to
		FROM sspo_capability c
		JOIN organization o ON o.id = c.organization_id
		WHERE c.service_type_id = $1
		ORDER BY c.organization_id
	`, serviceTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query capability profiles: %w", err)
	}

	profiles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.CapabilityProfile, error) {
		var p model.CapabilityProfile
		var days []int16
		err := row.Scan(&p.OrganizationID, &p.OrganizationName, &p.ServiceTypeID,
			&p.MaxWeeklyHours, &p.CurrentUtilizationHours,
			&p.QualityScore, &p.AcceptanceRate, &p.CompletionRate,
			&p.ServiceAreas, &days, &p.WindowStartMinute, &p.WindowEndMinute,
			&p.MinNoticeHours, &p.SpecialCareFlags, &p.Active, &p.EffectiveTo)
		for _, day := range days {
			p.AvailableDays = append(p.AvailableDays, time.Weekday(day))
		}
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan capability profiles: %w", err)
	}
	return profiles, nil
}
