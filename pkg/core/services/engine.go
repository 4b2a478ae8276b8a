// Package services exposes the matching engine's operations: suggestion
// generation, validation, acceptance, the ledger and the marketplace.
// Every call is request scoped; all shared state lives in the store.
package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/carebridge/care-matching/pkg/core/constraints"
	"github.com/carebridge/care-matching/pkg/core/marketplace"
	"github.com/carebridge/care-matching/pkg/core/model"
	"github.com/carebridge/care-matching/pkg/core/scoring"
	"github.com/carebridge/care-matching/pkg/core/suggest"
	"github.com/carebridge/care-matching/pkg/db"
)

// PartnerNotifier tells a partner organization about an assignment awaiting its acceptance
type PartnerNotifier interface {
	NotifyPartnerAssignment(ctx context.Context, notice model.PartnerNotice) error
}

// Explainer turns a suggestion's structured reasons into rationale text
type Explainer interface {
	Explain(ctx context.Context, s *model.Suggestion) (string, error)
}

// OutcomePublisher records ledger transitions for analytics
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, s *model.Suggestion) error
}

// Settings are the tunable parts of the engine
type Settings struct {
	Constraints constraints.Config
	Weights     scoring.Weights
	Proximity   scoring.ProximityConfig

	// MarketplaceFallback ranks partner organizations for requirements no internal staff can take
	MarketplaceFallback bool

	// PartnerOptions caps the partners listed per uncovered requirement
	PartnerOptions int
}

// DefaultSettings returns the documented defaults
func DefaultSettings() Settings {
	return Settings{
		Constraints:         constraints.DefaultConfig(),
		Weights:             scoring.DefaultWeights(),
		Proximity:           scoring.DefaultProximity(),
		MarketplaceFallback: true,
		PartnerOptions:      3,
	}
}

// Deps are the engine's collaborators. Notifier, Explainer, Publisher and
// Now are optional.
type Deps struct {
	Store     db.Database
	Logger    *zap.Logger
	Notifier  PartnerNotifier
	Explainer Explainer
	Publisher OutcomePublisher
	Now       func() time.Time
}

// Engine runs the matching operations
type Engine struct {
	store     db.Database
	logger    *zap.Logger
	notifier  PartnerNotifier
	explainer Explainer
	publisher OutcomePublisher
	now       func() time.Time

	settings  Settings
	checker   *constraints.Checker
	scorer    *scoring.Scorer
	generator *suggest.Generator
	ranker    *marketplace.Ranker
}

// NewEngine validates the settings and wires the engine
func NewEngine(deps Deps, settings Settings) (*Engine, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("engine requires a store")
	}

	scorer, err := scoring.NewScorer(settings.Weights, settings.Proximity)
	if err != nil {
		return nil, fmt.Errorf("invalid scoring settings: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	checker := constraints.NewChecker(settings.Constraints)
	return &Engine{
		store:     deps.Store,
		logger:    logger,
		notifier:  deps.Notifier,
		explainer: deps.Explainer,
		publisher: deps.Publisher,
		now:       now,
		settings:  settings,
		checker:   checker,
		scorer:    scorer,
		generator: suggest.NewGenerator(checker, scorer),
		ranker:    marketplace.NewRankerWithClock(now),
	}, nil
}

// loadSnapshot reads everything scoring and the hard rules need for an
// organization over [from, to), once, so that one call sees one state
func (e *Engine) loadSnapshot(ctx context.Context, orgID int64, from, to time.Time) (*model.Snapshot, error) {
	staff, err := e.store.GetStaff(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch staff: %w", err)
	}

	// one day of margin catches visits running over midnight into the window
	assignments, err := e.store.GetAssignments(ctx, orgID, from.AddDate(0, 0, -1), to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assignments: %w", err)
	}

	continuity, err := e.store.GetContinuity(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch continuity: %w", err)
	}

	serviceTypes, err := e.store.GetServiceTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch service types: %w", err)
	}

	patients, err := e.store.GetPatients(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch patients: %w", err)
	}

	e.logger.Debug("Snapshot loaded",
		zap.Int64("organization_id", orgID),
		zap.Int("staff", len(staff)),
		zap.Int("assignments", len(assignments)),
		zap.Int("patients", len(patients)))

	return model.NewSnapshot(model.SnapshotInput{
		Now:          e.now(),
		Staff:        staff,
		Assignments:  assignments,
		Continuity:   continuity,
		ServiceTypes: serviceTypes,
		Patients:     patients,
	}), nil
}

// publish records a transition. Failures are logged and never fail the decision.
func (e *Engine) publish(ctx context.Context, s *model.Suggestion) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.PublishOutcome(ctx, s); err != nil {
		e.logger.Warn("Failed to publish suggestion outcome",
			zap.String("suggestion_id", s.ID),
			zap.String("outcome", string(s.Outcome)),
			zap.Error(err))
	}
}

// weekWindows splits [start, end) at Monday boundaries
func weekWindows(start, end time.Time) [][2]time.Time {
	var windows [][2]time.Time
	for week := model.WeekStartOf(start); week.Before(end); week = week.AddDate(0, 0, 7) {
		from := week
		if from.Before(start) {
			from = start
		}
		to := week.AddDate(0, 0, 7)
		if to.After(end) {
			to = end
		}
		windows = append(windows, [2]time.Time{from, to})
	}
	return windows
}

func validateRange(start, end time.Time) error {
	if !end.After(start) {
		return fmt.Errorf("week end %s must be after week start %s",
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	return nil
}
