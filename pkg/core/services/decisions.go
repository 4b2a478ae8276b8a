package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/carebridge/care-matching/pkg/core/ledger"
	"github.com/carebridge/care-matching/pkg/core/model"
)

// RejectSuggestion closes a pending suggestion without creating an assignment
func (e *Engine) RejectSuggestion(ctx context.Context, suggestionID, reason string, userID int64) (*model.Suggestion, error) {
	s, err := e.store.GetSuggestion(ctx, suggestionID)
	if err != nil {
		return nil, err
	}

	err = ledger.Transition(s, ledger.Decision{
		Outcome:         model.OutcomeRejected,
		UserID:          userID,
		At:              e.now(),
		Modifications:   []model.Modification{},
		RejectionReason: reason,
	})
	if err != nil {
		return nil, err
	}
	if err := e.store.UpdateSuggestionOutcome(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to update suggestion: %w", err)
	}

	e.logger.Info("Suggestion rejected",
		zap.String("suggestion_id", s.ID),
		zap.Int64("user_id", userID),
		zap.Int64p("suggested_staff_id", s.SuggestedStaffID),
		zap.String("reason", reason),
		zap.Int64p("time_to_decision_seconds", s.TimeToDecisionSeconds))

	e.publish(ctx, s)
	return s, nil
}

// ExpireSuggestions moves every pending suggestion whose week has ended to
// expired and returns how many moved. Running it again is a no-op.
func (e *Engine) ExpireSuggestions(ctx context.Context) (int, error) {
	now := e.now()
	expired, err := e.store.ExpirePendingSuggestions(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire suggestions: %w", err)
	}

	for i := range expired {
		e.publish(ctx, &expired[i])
	}

	e.logger.Info("Expiry sweep finished",
		zap.Time("now", now),
		zap.Int("expired", len(expired)))
	return len(expired), nil
}

// LedgerStats computes acceptance analytics over the organization's
// suggestions created in [from, to)
func (e *Engine) LedgerStats(ctx context.Context, orgID int64, from, to time.Time) (ledger.Stats, error) {
	if err := validateRange(from, to); err != nil {
		return ledger.Stats{}, err
	}

	byOutcome, err := e.store.CountOutcomes(ctx, orgID, from, to)
	if err != nil {
		return ledger.Stats{}, fmt.Errorf("failed to count outcomes: %w", err)
	}

	var counts ledger.Counts
	for outcome, n := range byOutcome {
		counts.Add(outcome, n)
	}
	return ledger.ComputeStats(counts), nil
}
