package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trialscout-server/internal/domain"
)

var (
	allCategories = []domain.BiomarkerCategory{
		domain.BiomarkerMatches, domain.BiomarkerPartial, domain.BiomarkerUnknown, domain.BiomarkerDoesntMatch,
	}
	allOutcomes = []domain.MatchOutcome{domain.OutcomeTrue, domain.OutcomeUnknown, domain.OutcomeFalse}
)

func TestAggregate_ScoreIsBounded(t *testing.T) {
	for _, cat := range allCategories {
		for _, stage := range allOutcomes {
			for _, treat := range allOutcomes {
				for _, bonus := range []int{0, 7, 10, 15, 22, 25, 500} {
					r := Aggregate(
						domain.BiomarkerEvaluation{OverallMatch: cat},
						domain.StageEvaluation{Matches: stage, Reasoning: "stage"},
						domain.TreatmentEvaluation{Matches: treat, Score: bonus},
					)
					assert.GreaterOrEqual(t, r.MatchScore, 10)
					assert.LessOrEqual(t, r.MatchScore, 99)
				}
			}
		}
	}
}

func TestAggregate_Score(t *testing.T) {
	tests := []struct {
		name   string
		cat    domain.BiomarkerCategory
		stage  domain.MatchOutcome
		treat  domain.TreatmentEvaluation
		expect int
	}{
		{"best case clamps to ceiling", domain.BiomarkerMatches, domain.OutcomeTrue,
			domain.TreatmentEvaluation{Matches: domain.OutcomeTrue, Score: 15}, 99},
		{"partial with unknown stage", domain.BiomarkerPartial, domain.OutcomeUnknown,
			domain.TreatmentEvaluation{Matches: domain.OutcomeTrue}, 70},
		{"unknown biomarkers", domain.BiomarkerUnknown, domain.OutcomeTrue,
			domain.TreatmentEvaluation{Matches: domain.OutcomeUnknown, Score: 7}, 92},
		{"treatment mismatch penalty", domain.BiomarkerMatches, domain.OutcomeTrue,
			domain.TreatmentEvaluation{Matches: domain.OutcomeFalse}, 80},
		{"worst case clamps to floor", domain.BiomarkerDoesntMatch, domain.OutcomeFalse,
			domain.TreatmentEvaluation{Matches: domain.OutcomeFalse}, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Aggregate(
				domain.BiomarkerEvaluation{OverallMatch: tt.cat},
				domain.StageEvaluation{Matches: tt.stage},
				tt.treat,
			)
			assert.Equal(t, tt.expect, r.MatchScore)
		})
	}
}

func TestAggregate_MismatchDominates(t *testing.T) {
	mismatch := domain.BiomarkerDetail{Biomarker: "ER", Matches: domain.OutcomeFalse, Reasoning: "ER mismatch"}

	for _, stage := range allOutcomes {
		for _, treat := range allOutcomes {
			r := Aggregate(
				domain.BiomarkerEvaluation{OverallMatch: domain.BiomarkerDoesntMatch, Details: []domain.BiomarkerDetail{mismatch}},
				domain.StageEvaluation{Matches: stage, Reasoning: "stage"},
				domain.TreatmentEvaluation{Matches: treat, Score: 15},
			)
			assert.Equal(t, domain.VerdictLikelyNotEligible, r.EligibilityVerdict)
			assert.Equal(t, domain.ConfidenceLow, r.MatchConfidence)
			assert.Contains(t, r.WhyCantMatch, "ER mismatch")
		}
	}
}

func TestAggregate_Tiers(t *testing.T) {
	t.Run("high needs biomarker match and stage true", func(t *testing.T) {
		r := Aggregate(
			domain.BiomarkerEvaluation{OverallMatch: domain.BiomarkerMatches},
			domain.StageEvaluation{Matches: domain.OutcomeTrue, Reasoning: "ok"},
			domain.TreatmentEvaluation{Matches: domain.OutcomeUnknown, Rules: []domain.RuleOutcome{
				{Matches: domain.OutcomeUnknown, Reasoning: "confirm"},
			}},
		)
		assert.Equal(t, domain.ConfidenceHigh, r.MatchConfidence)
		assert.Equal(t, domain.VerdictPossiblyEligible, r.EligibilityVerdict)
		assert.Equal(t, []string{"confirm"}, r.WhatToConfirm)
	})

	t.Run("unknown stage is medium", func(t *testing.T) {
		r := Aggregate(
			domain.BiomarkerEvaluation{OverallMatch: domain.BiomarkerMatches},
			domain.StageEvaluation{Matches: domain.OutcomeUnknown, Reasoning: "Cancer stage not provided"},
			domain.TreatmentEvaluation{Matches: domain.OutcomeTrue},
		)
		assert.Equal(t, domain.ConfidenceMedium, r.MatchConfidence)
		assert.Equal(t, domain.VerdictPossiblyEligible, r.EligibilityVerdict)
		assert.Equal(t, []string{"Cancer stage not provided"}, r.WhatToConfirm)
	})

	t.Run("partial biomarkers are medium", func(t *testing.T) {
		r := Aggregate(
			domain.BiomarkerEvaluation{OverallMatch: domain.BiomarkerPartial},
			domain.StageEvaluation{Matches: domain.OutcomeTrue},
			domain.TreatmentEvaluation{Matches: domain.OutcomeTrue},
		)
		assert.Equal(t, domain.ConfidenceMedium, r.MatchConfidence)
	})
}

func TestAggregate_ReasonsPartitionEvaluations(t *testing.T) {
	bio := domain.BiomarkerEvaluation{
		OverallMatch: domain.BiomarkerDoesntMatch,
		Details: []domain.BiomarkerDetail{
			{Matches: domain.OutcomeTrue, Reasoning: "a"},
			{Matches: domain.OutcomeFalse, Reasoning: "b"},
			{Matches: domain.OutcomeUnknown, Reasoning: "c"},
		},
	}
	stage := domain.StageEvaluation{Matches: domain.OutcomeTrue, Reasoning: "d"}
	treatment := domain.TreatmentEvaluation{
		Matches: domain.OutcomeUnknown,
		Rules: []domain.RuleOutcome{
			{Matches: domain.OutcomeUnknown, Reasoning: "e"},
			{Matches: domain.OutcomeTrue, Reasoning: "f"},
		},
	}

	r := Aggregate(bio, stage, treatment)
	assert.Equal(t, []string{"a", "d", "f"}, r.WhyMatched)
	assert.Equal(t, []string{"b"}, r.WhyCantMatch)
	assert.Equal(t, []string{"c", "e"}, r.WhatToConfirm)
	assert.Equal(t, bio.Details, r.BiomarkerDetails)
}
