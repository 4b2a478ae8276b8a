package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carebridge/care-matching/pkg/core/model"
)

const assignmentColumns = `
	id::text, organization_id, staff_id, patient_id, service_type_id, start_at, end_at,
	status, sspo_acceptance_status, suggestion_id::text, created_at`

// GetAssignments retrieves the organization's active assignments starting in [from, to)
func (d *DB) GetAssignments(ctx context.Context, orgID int64, from, to time.Time) ([]model.Assignment, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignment
		WHERE organization_id = $1 AND status <> 'cancelled'
		  AND start_at >= $2 AND start_at < $3
		ORDER BY staff_id, start_at
	`, orgID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	assignments, err := pgx.CollectRows(rows, scanAssignment)
	if err != nil {
		return nil, fmt.Errorf("failed to scan assignments: %w", err)
	}
	return assignments, nil
}

// GetStaffAssignments retrieves one staff member's active assignments overlapping [from, to)
func (d *DB) GetStaffAssignments(ctx context.Context, staffID int64, from, to time.Time) ([]model.Assignment, error) {
	return staffAssignments(ctx, d.pool, staffID, from, to)
}

// GetContinuity retrieves the distinct (staff, patient, service) pairs with active assignments
func (d *DB) GetContinuity(ctx context.Context, orgID int64) ([]model.ContinuityKey, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT DISTINCT staff_id, patient_id, service_type_id
		FROM assignment
		WHERE organization_id = $1 AND status <> 'cancelled'
		ORDER BY staff_id, patient_id, service_type_id
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query continuity: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowToStructByPos[model.ContinuityKey])
	if err != nil {
		return nil, fmt.Errorf("failed to scan continuity: %w", err)
	}
	return keys, nil
}

// staffAssignments reads a staff member's active assignments overlapping [from, to)
func staffAssignments(ctx context.Context, q querier, staffID int64, from, to time.Time) ([]model.Assignment, error) {
	rows, err := q.Query(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignment
		WHERE staff_id = $1 AND status <> 'cancelled'
		  AND start_at < $3 AND end_at > $2
		ORDER BY start_at
	`, staffID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query staff assignments: %w", err)
	}
	assignments, err := pgx.CollectRows(rows, scanAssignment)
	if err != nil {
		return nil, fmt.Errorf("failed to scan staff assignments: %w", err)
	}
	return assignments, nil
}

func insertAssignment(ctx context.Context, q querier, a *model.Assignment) error {
	var suggestionID *string
	if a.SuggestionID != "" {
		suggestionID = &a.SuggestionID
	}

	_, err := q.Exec(ctx, `
		INSERT INTO assignment (id, organization_id, staff_id, patient_id, service_type_id,
			start_at, end_at, status, sspo_acceptance_status, suggestion_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, a.ID, a.OrganizationID, a.StaffID, a.PatientID, a.ServiceTypeID,
		a.Start.UTC(), a.End.UTC(), string(a.Status), string(a.SSPOAcceptanceStatus), suggestionID, a.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert assignment: %w", err)
	}
	return nil
}

func scanAssignment(row pgx.CollectableRow) (model.Assignment, error) {
	var a model.Assignment
	var status, sspoStatus string
	var suggestionID *string
	err := row.Scan(&a.ID, &a.OrganizationID, &a.StaffID, &a.PatientID, &a.ServiceTypeID, &a.Start, &a.End,
		&status, &sspoStatus, &suggestionID, &a.CreatedAt)
	a.Status = model.AssignmentStatus(status)
	a.SSPOAcceptanceStatus = model.SSPOAcceptanceStatus(sspoStatus)
	if suggestionID != nil {
		a.SuggestionID = *suggestionID
	}
	return a, err
}
