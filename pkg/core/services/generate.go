package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carebridge/care-matching/pkg/core/marketplace"
	"github.com/carebridge/care-matching/pkg/core/model"
)

// GenerationResult is the outcome of a generateSuggestions call
type GenerationResult struct {
	// Suggestions are the ledger rows, in requirement order. Rows that
	// were already pending are returned unchanged.
	Suggestions []model.Suggestion
	Created     int
	Existing    int

	// PartnerOptions lists ranked partner organizations for suggestions
	// no internal staff member could take, keyed by suggestion ID
	PartnerOptions map[string][]marketplace.RankedOrganization
}

// GenerateSuggestions produces and records one pending suggestion per
// unscheduled requirement of the organization in [weekStart, weekEnd)
func (e *Engine) GenerateSuggestions(ctx context.Context, orgID int64, weekStart, weekEnd time.Time) (*GenerationResult, error) {
	return e.generate(ctx, orgID, weekStart, weekEnd, nil, model.SourceAutoAssign)
}

// ServiceSuggestion is the suggestion for one patient and service, with the
// ranked alternatives and optional rationale text
type ServiceSuggestion struct {
	Suggestion     model.Suggestion
	Alternatives   []model.CandidateScore
	PartnerOptions []marketplace.RankedOrganization
	Explanation    string
}

// GetSuggestionForService generates the suggestion for one patient and
// service type. With explain set, rationale text is fetched from the
// explanation service; a failure there is logged and leaves it empty.
func (e *Engine) GetSuggestionForService(ctx context.Context, orgID, patientID, serviceTypeID int64, weekStart, weekEnd time.Time, explain bool) (*ServiceSuggestion, error) {
	if err := validateRange(weekStart, weekEnd); err != nil {
		return nil, err
	}

	snap, err := e.loadSnapshot(ctx, orgID, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}

	var req *model.CareRequirement
	for _, window := range weekWindows(weekStart, weekEnd) {
		reqs, err := e.store.GetUnscheduledRequirements(ctx, orgID, window[0], window[1], &patientID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch requirements: %w", err)
		}
		for i := range reqs {
			if reqs[i].ServiceTypeID == serviceTypeID {
				req = &reqs[i]
				break
			}
		}
		if req != nil {
			break
		}
	}
	if req == nil {
		return nil, model.NewNotFound("unscheduled requirement", fmt.Sprintf("patient %d service %d", patientID, serviceTypeID))
	}

	draft := e.generator.Suggest(req, snap, model.SourceManualGrid)
	stored, err := e.record(ctx, &draft)
	if err != nil {
		return nil, err
	}

	result := &ServiceSuggestion{Suggestion: *stored}
	for _, c := range e.generator.RankCandidates(req, snap) {
		result.Alternatives = append(result.Alternatives, c.Score)
	}
	if stored.SuggestedStaffID == nil {
		result.PartnerOptions, err = e.partnerOptions(ctx, stored, snap)
		if err != nil {
			return nil, err
		}
	}

	if explain && e.explainer != nil && stored.SuggestedStaffID != nil {
		text, err := e.explainer.Explain(ctx, stored)
		if err != nil {
			e.logger.Warn("Failed to fetch explanation", zap.String("suggestion_id", stored.ID), zap.Error(err))
		} else {
			result.Explanation = text
		}
	}

	return result, nil
}

func (e *Engine) generate(ctx context.Context, orgID int64, weekStart, weekEnd time.Time, patientID *int64, source string) (*GenerationResult, error) {
	if err := validateRange(weekStart, weekEnd); err != nil {
		return nil, err
	}

	e.logger.Debug("Generating suggestions",
		zap.Int64("organization_id", orgID),
		zap.Time("week_start", weekStart),
		zap.Time("week_end", weekEnd))

	snap, err := e.loadSnapshot(ctx, orgID, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}

	var reqs []model.CareRequirement
	for _, window := range weekWindows(weekStart, weekEnd) {
		weekReqs, err := e.store.GetUnscheduledRequirements(ctx, orgID, window[0], window[1], patientID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch requirements: %w", err)
		}
		reqs = append(reqs, weekReqs...)
	}
	e.logger.Debug("Found unscheduled requirements", zap.Int("count", len(reqs)))

	result := &GenerationResult{PartnerOptions: make(map[string][]marketplace.RankedOrganization)}
	for _, draft := range e.generator.Generate(reqs, snap, source) {
		stored, err := e.record(ctx, &draft)
		if err != nil {
			return nil, err
		}
		if stored.ID == draft.ID {
			result.Created++
		} else {
			result.Existing++
		}
		result.Suggestions = append(result.Suggestions, *stored)

		if stored.SuggestedStaffID == nil {
			options, err := e.partnerOptions(ctx, stored, snap)
			if err != nil {
				return nil, err
			}
			if len(options) > 0 {
				result.PartnerOptions[stored.ID] = options
			}
		}
	}

	e.logger.Info("Suggestions generated",
		zap.Int64("organization_id", orgID),
		zap.Int("created", result.Created),
		zap.Int("existing", result.Existing),
		zap.Int("uncovered", len(result.PartnerOptions)))

	return result, nil
}

// record writes a draft to the ledger, returning the pending row already
// there for the same requirement if there is one
func (e *Engine) record(ctx context.Context, draft *model.Suggestion) (*model.Suggestion, error) {
	draft.ID = uuid.New().String()
	stored, created, err := e.store.InsertPendingSuggestion(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("failed to record suggestion: %w", err)
	}
	if !created {
		e.logger.Debug("Suggestion already pending",
			zap.String("suggestion_id", stored.ID),
			zap.Int64("patient_id", stored.PatientID),
			zap.Int64("service_type_id", stored.ServiceTypeID))
	}
	return stored, nil
}

// partnerOptions ranks partner organizations for a suggestion no internal
// staff member could take
func (e *Engine) partnerOptions(ctx context.Context, s *model.Suggestion, snap *model.Snapshot) ([]marketplace.RankedOrganization, error) {
	if !e.settings.MarketplaceFallback {
		return nil, nil
	}

	profiles, err := e.store.GetCapabilityProfiles(ctx, s.ServiceTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch capability profiles: %w", err)
	}

	patient, _ := snap.Patient(s.PatientID)
	ranked := e.ranker.FindMatchingOrganizations(marketplace.Query{
		ServiceTypeID: s.ServiceTypeID,
		Patient:       patient,
	}, profiles)

	if limit := e.settings.PartnerOptions; limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
