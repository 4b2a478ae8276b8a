package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carebridge/care-matching/pkg/core/model"
)

// GetUnscheduledRequirements derives requirements from active care plan
// services: the planned weekly visits minus the active assignments already
// placed in the window
func (d *DB) GetUnscheduledRequirements(ctx context.Context, orgID int64, weekStart, weekEnd time.Time, patientID *int64) ([]model.CareRequirement, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT cps.organization_id, cps.patient_id, cps.service_type_id,
		       cps.frequency_per_week - COALESCE(placed.visits, 0) AS remaining_visits,
		       cps.duration_minutes,
		       cps.preferred_start_minute, cps.preferred_end_minute,
		       COALESCE(cps.visit_pattern, '')
		FROM care_plan_service cps
		LEFT JOIN LATERAL (
			SELECT COUNT(*)::int AS visits
			FROM assignment a
			WHERE a.patient_id = cps.patient_id
			  AND a.service_type_id = cps.service_type_id
			  AND a.status <> 'cancelled'
			  AND a.start_at >= $2 AND a.start_at < $3
		) placed ON TRUE
		WHERE cps.organization_id = $1
		  AND cps.active
		  AND (cps.starts_on IS NULL OR cps.starts_on < $3)
		  AND (cps.ends_on IS NULL OR cps.ends_on >= $2)
		  AND ($4::bigint IS NULL OR cps.patient_id = $4)
		  AND cps.frequency_per_week > COALESCE(placed.visits, 0)
		ORDER BY cps.patient_id, cps.service_type_id
	`, orgID, weekStart, weekEnd, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query care plan services: %w", err)
	}

	reqs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.CareRequirement, error) {
		r := model.CareRequirement{WeekStart: weekStart, WeekEnd: weekEnd}
		var visitMinutes int
		err := row.Scan(&r.OrganizationID, &r.PatientID, &r.ServiceTypeID,
			&r.RemainingFrequencyPerWeek, &visitMinutes,
			&r.PreferredStartMinute, &r.PreferredEndMinute, &r.VisitPattern)
		r.RemainingDurationMinutes = r.RemainingFrequencyPerWeek * visitMinutes
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan care plan services: %w", err)
	}
	return reqs, nil
}
