package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carebridge/care-matching/pkg/core/model"
)

const suggestionColumns = `
	id::text, organization_id, patient_id, service_type_id, week_start, week_end,
	suggested_staff_id, suggested_start, suggested_end, match_tier, confidence_score,
	scoring_factors, warnings, outcome, outcome_at, outcome_user_id,
	final_staff_id, final_start, final_end, modifications, rejection_reason,
	time_to_decision_seconds, created_assignment_id::text, source, created_at`

// InsertPendingSuggestion stores a pending suggestion. The partial unique
// index on pending rows makes a concurrent duplicate a no-op, after which
// the row that won is returned.
func (d *DB) InsertPendingSuggestion(ctx context.Context, s *model.Suggestion) (*model.Suggestion, bool, error) {
	factors, warnings := s.ScoringFactors, s.Warnings
	if factors == nil {
		factors = []model.Reason{}
	}
	if warnings == nil {
		warnings = []model.Violation{}
	}

	tag, err := d.pool.Exec(ctx, `
		INSERT INTO suggestion (id, organization_id, patient_id, service_type_id, week_start, week_end,
			suggested_staff_id, suggested_start, suggested_end, match_tier, confidence_score,
			scoring_factors, warnings, outcome, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 'pending', $14, $15)
		ON CONFLICT (patient_id, service_type_id, week_start) WHERE outcome = 'pending' DO NOTHING
	`, s.ID, s.OrganizationID, s.PatientID, s.ServiceTypeID, s.WeekStart.UTC(), s.WeekEnd.UTC(),
		s.SuggestedStaffID, s.SuggestedStart, s.SuggestedEnd, string(s.MatchTier), s.ConfidenceScore,
		factors, warnings, s.Source, s.CreatedAt.UTC())
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert suggestion: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return s, true, nil
	}

	rows, err := d.pool.Query(ctx, `
		SELECT `+suggestionColumns+`
		FROM suggestion
		WHERE patient_id = $1 AND service_type_id = $2 AND week_start = $3 AND outcome = 'pending'
	`, s.PatientID, s.ServiceTypeID, s.WeekStart.UTC())
	if err != nil {
		return nil, false, fmt.Errorf("failed to query pending suggestion: %w", err)
	}
	existing, err := pgx.CollectExactlyOneRow(rows, scanSuggestion)
	if errors.Is(err, pgx.ErrNoRows) {
		// the pending row was decided between the insert and the read
		return nil, false, &model.ConflictError{Reason: "pending suggestion changed during generation"}
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to scan pending suggestion: %w", err)
	}
	return &existing, false, nil
}

// GetSuggestion retrieves a suggestion by ID
func (d *DB) GetSuggestion(ctx context.Context, id string) (*model.Suggestion, error) {
	return getSuggestion(ctx, d.pool, id, false)
}

// UpdateSuggestionOutcome writes a decision onto a pending row
func (d *DB) UpdateSuggestionOutcome(ctx context.Context, s *model.Suggestion) error {
	return updateSuggestionOutcome(ctx, d.pool, s)
}

// ExpirePendingSuggestions moves every pending suggestion whose week has ended to expired
func (d *DB) ExpirePendingSuggestions(ctx context.Context, now time.Time) ([]model.Suggestion, error) {
	rows, err := d.pool.Query(ctx, `
		UPDATE suggestion
		SET outcome = 'expired',
		    outcome_at = $1,
		    outcome_user_id = $2,
		    time_to_decision_seconds = GREATEST(EXTRACT(EPOCH FROM ($1 - created_at)), 0)::bigint
		WHERE outcome = 'pending' AND week_end <= $1
		RETURNING `+suggestionColumns+`
	`, now.UTC(), model.SystemUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to expire suggestions: %w", err)
	}
	expired, err := pgx.CollectRows(rows, scanSuggestion)
	if err != nil {
		return nil, fmt.Errorf("failed to scan expired suggestions: %w", err)
	}
	return expired, nil
}

// CountOutcomes counts the organization's suggestions created in [from, to) by outcome
func (d *DB) CountOutcomes(ctx context.Context, orgID int64, from, to time.Time) (map[model.Outcome]int, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT outcome, COUNT(*)::int
		FROM suggestion
		WHERE organization_id = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY outcome
	`, orgID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to count suggestion outcomes: %w", err)
	}

	counts := make(map[model.Outcome]int)
	var outcome string
	var n int
	_, err = pgx.ForEachRow(rows, []any{&outcome, &n}, func() error {
		counts[model.Outcome(outcome)] = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan suggestion outcomes: %w", err)
	}
	return counts, nil
}

func getSuggestion(ctx context.Context, q querier, id string, forUpdate bool) (*model.Suggestion, error) {
	sql := `SELECT ` + suggestionColumns + ` FROM suggestion WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}

	rows, err := q.Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestion: %w", err)
	}
	s, err := pgx.CollectExactlyOneRow(rows, scanSuggestion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NewNotFound("suggestion", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan suggestion: %w", err)
	}
	return &s, nil
}

// updateSuggestionOutcome only touches pending rows, so a decision that
// lost a race reports a conflict instead of overwriting the winner
func updateSuggestionOutcome(ctx context.Context, q querier, s *model.Suggestion) error {
	tag, err := q.Exec(ctx, `
		UPDATE suggestion
		SET outcome = $2, outcome_at = $3, outcome_user_id = $4,
		    final_staff_id = $5, final_start = $6, final_end = $7,
		    modifications = $8, rejection_reason = $9,
		    time_to_decision_seconds = $10, created_assignment_id = $11
		WHERE id = $1 AND outcome = 'pending'
	`, s.ID, string(s.Outcome), s.OutcomeAt, s.OutcomeUserID,
		s.FinalStaffID, s.FinalStart, s.FinalEnd,
		s.Modifications, s.RejectionReason,
		s.TimeToDecisionSeconds, s.CreatedAssignmentID)
	if err != nil {
		return fmt.Errorf("failed to update suggestion outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &model.ConflictError{Reason: fmt.Sprintf("suggestion %s is no longer pending", s.ID)}
	}
	return nil
}

func scanSuggestion(row pgx.CollectableRow) (model.Suggestion, error) {
	var s model.Suggestion
	var tier, outcome string
	err := row.Scan(&s.ID, &s.OrganizationID, &s.PatientID, &s.ServiceTypeID, &s.WeekStart, &s.WeekEnd,
		&s.SuggestedStaffID, &s.SuggestedStart, &s.SuggestedEnd, &tier, &s.ConfidenceScore,
		&s.ScoringFactors, &s.Warnings, &outcome, &s.OutcomeAt, &s.OutcomeUserID,
		&s.FinalStaffID, &s.FinalStart, &s.FinalEnd, &s.Modifications, &s.RejectionReason,
		&s.TimeToDecisionSeconds, &s.CreatedAssignmentID, &s.Source, &s.CreatedAt)
	s.MatchTier = model.MatchTier(tier)
	s.Outcome = model.Outcome(outcome)
	return s, err
}
