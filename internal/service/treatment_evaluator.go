package service

import (
	"github.com/trialscout-server/internal/domain"
)

// TreatmentPoints are the bonuses awarded by the treatment-history rules.
type TreatmentPoints struct {
	CDK46Received   int
	CDK46Unsure     int
	TDXdNotReceived int
	NoPriorImmuno   int
}

// DefaultTreatmentPoints returns the calibrated bonuses.
func DefaultTreatmentPoints() TreatmentPoints {
	return TreatmentPoints{
		CDK46Received:   15,
		CDK46Unsure:     7,
		TDXdNotReceived: 0,
		NoPriorImmuno:   10,
	}
}

// TreatmentEvaluator applies the fixed treatment-history rules.
type TreatmentEvaluator struct {
	points TreatmentPoints
}

// NewTreatmentEvaluator creates an evaluator with the given bonuses.
func NewTreatmentEvaluator(points TreatmentPoints) *TreatmentEvaluator {
	return &TreatmentEvaluator{points: points}
}

// Evaluate runs every applicable rule. A single violation makes the whole
// evaluation false; otherwise any unsure exposure makes it unknown.
func (e *TreatmentEvaluator) Evaluate(patient domain.PatientProfile, req domain.TrialRequirement) domain.TreatmentEvaluation {
	var rules []domain.RuleOutcome

	if patient.CancerType == domain.CancerBreast && req.Biomarkers.RequiresCDK46i {
		rules = append(rules, e.cdk46Required(patient.PriorTreatments.Breast.CDK46Inhibitors))
	}
	if patient.CancerType == domain.CancerBreast && req.TreatmentHistory.Excludes("T-DXd", "trastuzumab deruxtecan") {
		rules = append(rules, e.priorTDXdExcluded(patient.PriorTreatments.Breast.TrastuzumabDeruxtecan))
	}
	if patient.CancerType == domain.CancerLung && req.TreatmentHistory.Excludes("PD-1/PD-L1") {
		rules = append(rules, e.priorImmunoExcluded(patient.PriorTreatments.Lung.Immunotherapy))
	}

	eval := domain.TreatmentEvaluation{
		Matches: domain.OutcomeTrue,
		Rules:   []domain.RuleOutcome{},
	}
	for _, r := range rules {
		eval.Score += r.Points
		switch r.Matches {
		case domain.OutcomeFalse:
			eval.Matches = domain.OutcomeFalse
		case domain.OutcomeUnknown:
			if eval.Matches != domain.OutcomeFalse {
				eval.Matches = domain.OutcomeUnknown
			}
		}
		eval.Rules = append(eval.Rules, r)
	}
	return eval
}

func (e *TreatmentEvaluator) cdk46Required(exposure domain.Exposure) domain.RuleOutcome {
	r := domain.RuleOutcome{Rule: domain.RuleCDK46Required}
	switch exposure {
	case domain.ExposureYes:
		r.Matches = domain.OutcomeTrue
		r.Points = e.points.CDK46Received
		r.Reasoning = "Patient received CDK4/6 inhibitor therapy as required"
	case domain.ExposureNo:
		r.Matches = domain.OutcomeFalse
		r.Reasoning = "Trial requires prior CDK4/6 inhibitor; patient has not received one"
	default:
		r.Matches = domain.OutcomeUnknown
		r.Points = e.points.CDK46Unsure
		r.Reasoning = "CDK4/6 inhibitor exposure unknown - confirm treatment history"
	}
	return r
}

func (e *TreatmentEvaluator) priorTDXdExcluded(exposure domain.Exposure) domain.RuleOutcome {
	r := domain.RuleOutcome{Rule: domain.RulePriorTDXdExcluded}
	switch exposure {
	case domain.ExposureYes:
		r.Matches = domain.OutcomeFalse
		r.Reasoning = "Patient received trastuzumab deruxtecan (T-DXd); trial excludes prior T-DXd"
	case domain.ExposureNo:
		r.Matches = domain.OutcomeTrue
		r.Points = e.points.TDXdNotReceived
		r.Reasoning = "No prior trastuzumab deruxtecan (T-DXd) exposure reported"
	default:
		r.Matches = domain.OutcomeUnknown
		r.Reasoning = "Verify patient has not received trastuzumab deruxtecan (T-DXd) previously"
	}
	return r
}

func (e *TreatmentEvaluator) priorImmunoExcluded(exposure domain.Exposure) domain.RuleOutcome {
	r := domain.RuleOutcome{Rule: domain.RulePriorImmunoExcluded}
	switch exposure {
	case domain.ExposureYes:
		r.Matches = domain.OutcomeFalse
		r.Reasoning = "Patient received prior immunotherapy; trial excludes prior PD-1/PD-L1 therapy"
	case domain.ExposureNo:
		r.Matches = domain.OutcomeTrue
		r.Points = e.points.NoPriorImmuno
		r.Reasoning = "No prior PD-1/PD-L1 therapy as required"
	default:
		r.Matches = domain.OutcomeUnknown
		r.Reasoning = "Prior immunotherapy status unknown - confirm treatment history"
	}
	return r
}
