package domain

import (
	"time"
)

// BiomarkerDetail is one evaluated biomarker constraint.
type BiomarkerDetail struct {
	Biomarker string       `json:"biomarker"`
	Required  string       `json:"required"`
	Patient   string       `json:"patient"`
	Matches   MatchOutcome `json:"matches"`
	Reasoning string       `json:"reasoning"`
}

// BiomarkerEvaluation is the output of the biomarker evaluator.
type BiomarkerEvaluation struct {
	OverallMatch BiomarkerCategory `json:"overallMatch"`
	Score        int               `json:"score"`
	MaxScore     int               `json:"maxScore"`
	Details      []BiomarkerDetail `json:"details"`
}

// StageEvaluation is the output of the stage evaluator.
type StageEvaluation struct {
	Matches   MatchOutcome `json:"matches"`
	Reasoning string       `json:"reasoning"`
}

// TreatmentRule names one fixed treatment-history rule.
type TreatmentRule string

const (
	RuleCDK46Required       TreatmentRule = "cdk46i_required"
	RulePriorTDXdExcluded   TreatmentRule = "prior_tdxd_excluded"
	RulePriorImmunoExcluded TreatmentRule = "prior_immunotherapy_excluded"
)

// RuleOutcome is the result of one treatment-history rule.
type RuleOutcome struct {
	Rule      TreatmentRule `json:"rule"`
	Matches   MatchOutcome  `json:"matches"`
	Points    int           `json:"points"`
	Reasoning string        `json:"reasoning"`
}

// TreatmentEvaluation is the output of the treatment-history evaluator.
type TreatmentEvaluation struct {
	Matches MatchOutcome  `json:"matches"`
	Score   int           `json:"score"`
	Rules   []RuleOutcome `json:"rules"`
}

// MatchResult is the engine output for one patient and one trial.
type MatchResult struct {
	TrialID                string            `json:"trialId"`
	MatchScore             int               `json:"matchScore"`
	MatchConfidence        Confidence        `json:"matchConfidence"`
	EligibilityVerdict     Verdict           `json:"eligibilityVerdict"`
	BiomarkerMatchCategory BiomarkerCategory `json:"biomarkerMatchCategory"`
	WhyMatched             []string          `json:"whyMatched"`
	WhyCantMatch           []string          `json:"whyCantMatch"`
	WhatToConfirm          []string          `json:"whatToConfirm"`
	BiomarkerDetails       []BiomarkerDetail `json:"biomarkerDetails"`
	Registered             bool              `json:"registered"`
}

// RankedMatch pairs a catalog trial with its match result.
type RankedMatch struct {
	Trial  Trial       `json:"trial"`
	Result MatchResult `json:"result"`
}

// MatchResponse is the full response for one matching request.
type MatchResponse struct {
	Matches                []RankedMatch `json:"matches"`
	TotalTrialsEvaluated   int           `json:"total_trials_evaluated"`
	PossiblyEligibleCount  int           `json:"possibly_eligible_count"`
	LikelyNotEligibleCount int           `json:"likely_not_eligible"`
	DatasetVersion         string        `json:"dataset_version"`
	RegistryVersion        string        `json:"registry_version"`
	GeneratedAt            time.Time     `json:"generated_at"`
	RequestID              string        `json:"request_id,omitempty"`
	Cached                 bool          `json:"cached"`
}
