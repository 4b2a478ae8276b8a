package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/carebridge/care-matching/pkg/core/marketplace"
	"github.com/carebridge/care-matching/pkg/core/model"
)

// FindMatchingOrganizations ranks the partner organizations able to take a
// patient's service. requestedStart is optional; estimatedHours of zero
// only requires some headroom.
func (e *Engine) FindMatchingOrganizations(ctx context.Context, serviceTypeID, patientID int64, requestedStart *time.Time, estimatedHours float64) ([]marketplace.RankedOrganization, error) {
	if estimatedHours < 0 {
		return nil, &model.ValidationError{Errors: []model.Violation{{
			Kind:    KindInvalidInput,
			Message: "estimated hours must not be negative",
		}}}
	}

	patient, err := e.store.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if _, err := e.store.GetServiceType(ctx, serviceTypeID); err != nil {
		return nil, err
	}

	profiles, err := e.store.GetCapabilityProfiles(ctx, serviceTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch capability profiles: %w", err)
	}

	ranked := e.ranker.FindMatchingOrganizations(marketplace.Query{
		ServiceTypeID:  serviceTypeID,
		Patient:        patient,
		RequestedStart: requestedStart,
		EstimatedHours: estimatedHours,
	}, profiles)

	e.logger.Debug("Partner organizations matched",
		zap.Int64("service_type_id", serviceTypeID),
		zap.Int64("patient_id", patientID),
		zap.Int("profiles", len(profiles)),
		zap.Int("matched", len(ranked)))
	return ranked, nil
}

// GetSspoRankings ranks every current partner profile for a service type by
// capability score alone
func (e *Engine) GetSspoRankings(ctx context.Context, serviceTypeID int64) ([]marketplace.RankedOrganization, error) {
	profiles, err := e.store.GetCapabilityProfiles(ctx, serviceTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch capability profiles: %w", err)
	}
	return e.ranker.Rankings(serviceTypeID, profiles), nil
}
