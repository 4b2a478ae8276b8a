package constraints

import (
	"fmt"
	"time"

	"github.com/carebridge/care-matching/pkg/core/model"
)

// TravelDistanceRule warns when the patient lives beyond the travel threshold
type TravelDistanceRule struct{}

func (r *TravelDistanceRule) Name() string {
	return "TravelDistance"
}

func (r *TravelDistanceRule) Evaluate(cfg Config, facts *Facts, p Proposal) ([]model.Violation, []model.Violation) {
	if cfg.TravelThresholdKm <= 0 || facts.Patient == nil {
		return nil, nil
	}

	km, ok := model.DistanceKm(facts.Staff.Location, facts.Patient.Location)
	if !ok || km <= cfg.TravelThresholdKm {
		return nil, nil
	}

	return nil, []model.Violation{{
		Kind:    KindTravelDistance,
		Message: fmt.Sprintf("patient is %.1fkm away, threshold is %.1fkm", km, cfg.TravelThresholdKm),
	}}
}

// ProficiencyRule warns for each required skill the staff member holds below competent
type ProficiencyRule struct{}

func (r *ProficiencyRule) Name() string {
	return "Proficiency"
}

func (r *ProficiencyRule) Evaluate(cfg Config, facts *Facts, p Proposal) ([]model.Violation, []model.Violation) {
	if facts.ServiceType == nil {
		return nil, nil
	}

	var warnings []model.Violation
	for _, req := range facts.ServiceType.RequiredSkills {
		skill, ok := facts.Staff.Skill(req.SkillID, p.Start)
		if !ok || skill.Proficiency >= model.ProficiencyCompetent {
			continue
		}
		warnings = append(warnings, model.Violation{
			Kind:    KindSkillBelowCompetent,
			Message: fmt.Sprintf("skill %d held at level %d, below competent", req.SkillID, skill.Proficiency),
		})
	}
	return nil, warnings
}

// MinimumNoticeRule warns when the visit starts within the notice window
type MinimumNoticeRule struct{}

func (r *MinimumNoticeRule) Name() string {
	return "MinimumNotice"
}

func (r *MinimumNoticeRule) Evaluate(cfg Config, facts *Facts, p Proposal) ([]model.Violation, []model.Violation) {
	if cfg.MinimumNotice <= 0 || facts.Now.IsZero() {
		return nil, nil
	}

	lead := p.Start.Sub(facts.Now)
	if lead >= cfg.MinimumNotice {
		return nil, nil
	}

	return nil, []model.Violation{{
		Kind:    KindShortNotice,
		Message: fmt.Sprintf("starts in %s, minimum notice is %s", lead.Round(time.Minute), cfg.MinimumNotice),
	}}
}

// PendingTimeOffRule warns when an unresolved time-off request overlaps the visit
type PendingTimeOffRule struct{}

func (r *PendingTimeOffRule) Name() string {
	return "PendingTimeOff"
}

func (r *PendingTimeOffRule) Evaluate(cfg Config, facts *Facts, p Proposal) ([]model.Violation, []model.Violation) {
	var warnings []model.Violation
	for _, off := range facts.Staff.TimeOff {
		if off.Status != model.TimeOffPending {
			continue
		}
		if model.Overlaps(p.Start, p.End, off.Start, off.End) {
			warnings = append(warnings, model.Violation{
				Kind: KindPendingTimeOff,
				Message: fmt.Sprintf("pending time-off request %s to %s",
					off.Start.Format(timeLayout), off.End.Format(timeLayout)),
			})
		}
	}
	return nil, warnings
}
