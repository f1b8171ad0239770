package service

import (
	"github.com/trialscout-server/internal/domain"
)

const (
	baseScore    = 50
	scoreFloor   = 10
	scoreCeiling = 99

	treatmentMismatchPenalty = 20
)

var biomarkerBucket = map[domain.BiomarkerCategory]int{
	domain.BiomarkerMatches:     35,
	domain.BiomarkerPartial:     15,
	domain.BiomarkerUnknown:     20,
	domain.BiomarkerDoesntMatch: -30,
}

var stageBucket = map[domain.MatchOutcome]int{
	domain.OutcomeTrue:    15,
	domain.OutcomeUnknown: 5,
	domain.OutcomeFalse:   -20,
}

// Aggregate combines the three evaluations into a MatchResult. The score is
// clamped to [10, 99]; reasons are bucketed by their own outcome.
func Aggregate(bio domain.BiomarkerEvaluation, stage domain.StageEvaluation, treatment domain.TreatmentEvaluation) domain.MatchResult {
	r := domain.MatchResult{
		BiomarkerMatchCategory: bio.OverallMatch,
		WhyMatched:             []string{},
		WhyCantMatch:           []string{},
		WhatToConfirm:          []string{},
		BiomarkerDetails:       append([]domain.BiomarkerDetail{}, bio.Details...),
	}

	for _, d := range bio.Details {
		bucketReason(&r, d.Matches, d.Reasoning)
	}
	bucketReason(&r, stage.Matches, stage.Reasoning)
	for _, rule := range treatment.Rules {
		bucketReason(&r, rule.Matches, rule.Reasoning)
	}

	score := baseScore + biomarkerBucket[bio.OverallMatch] + stageBucket[stage.Matches] + treatment.Score
	if treatment.Matches == domain.OutcomeFalse {
		score -= treatmentMismatchPenalty
	}
	r.MatchScore = clamp(score, scoreFloor, scoreCeiling)

	switch {
	case len(r.WhyCantMatch) > 0:
		r.MatchConfidence = domain.ConfidenceLow
		r.EligibilityVerdict = domain.VerdictLikelyNotEligible
	case bio.OverallMatch == domain.BiomarkerMatches && stage.Matches == domain.OutcomeTrue && treatment.Matches != domain.OutcomeFalse:
		r.MatchConfidence = domain.ConfidenceHigh
		r.EligibilityVerdict = domain.VerdictPossiblyEligible
	default:
		// Unknown evaluator outputs and residual partial cases share a tier.
		r.MatchConfidence = domain.ConfidenceMedium
		r.EligibilityVerdict = domain.VerdictPossiblyEligible
	}

	return r
}

func bucketReason(r *domain.MatchResult, o domain.MatchOutcome, reason string) {
	switch o {
	case domain.OutcomeTrue:
		r.WhyMatched = append(r.WhyMatched, reason)
	case domain.OutcomeFalse:
		r.WhyCantMatch = append(r.WhyCantMatch, reason)
	default:
		r.WhatToConfirm = append(r.WhatToConfirm, reason)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
