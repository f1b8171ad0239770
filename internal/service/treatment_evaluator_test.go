package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialscout-server/internal/domain"
)

func TestTreatmentEvaluator_CDK46Required(t *testing.T) {
	eval := NewTreatmentEvaluator(DefaultTreatmentPoints())
	req := withBiomarkers(domain.BiomarkerRequirements{RequiresCDK46i: true})

	tests := []struct {
		exposure domain.Exposure
		want     domain.MatchOutcome
		points   int
	}{
		{domain.ExposureYes, domain.OutcomeTrue, 15},
		{domain.ExposureUnsure, domain.OutcomeUnknown, 7},
		{domain.ExposureNo, domain.OutcomeFalse, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.exposure), func(t *testing.T) {
			p := breastPatient()
			p.PriorTreatments.Breast.CDK46Inhibitors = tt.exposure

			got := eval.Evaluate(p, req)
			require.Len(t, got.Rules, 1)
			assert.Equal(t, domain.RuleCDK46Required, got.Rules[0].Rule)
			assert.Equal(t, tt.want, got.Matches)
			assert.Equal(t, tt.points, got.Score)
		})
	}
}

func TestTreatmentEvaluator_CDK46OnlyForBreast(t *testing.T) {
	eval := NewTreatmentEvaluator(DefaultTreatmentPoints())
	got := eval.Evaluate(lungPatient(), withBiomarkers(domain.BiomarkerRequirements{RequiresCDK46i: true}))

	assert.Equal(t, domain.OutcomeTrue, got.Matches)
	assert.Equal(t, 0, got.Score)
	assert.Empty(t, got.Rules)
}

func TestTreatmentEvaluator_PriorTDXdExcluded(t *testing.T) {
	eval := NewTreatmentEvaluator(DefaultTreatmentPoints())
	req := domain.TrialRequirement{
		TreatmentHistory: domain.TreatmentHistoryRequirements{ExcludePriorClasses: []string{"T-DXd"}},
	}

	tests := []struct {
		exposure  domain.Exposure
		want      domain.MatchOutcome
		reasoning string
	}{
		{domain.ExposureYes, domain.OutcomeFalse, "Patient received trastuzumab deruxtecan (T-DXd); trial excludes prior T-DXd"},
		{domain.ExposureNo, domain.OutcomeTrue, "No prior trastuzumab deruxtecan (T-DXd) exposure reported"},
		{domain.ExposureUnsure, domain.OutcomeUnknown, "Verify patient has not received trastuzumab deruxtecan (T-DXd) previously"},
	}

	for _, tt := range tests {
		t.Run(string(tt.exposure), func(t *testing.T) {
			p := breastPatient()
			p.PriorTreatments.Breast.TrastuzumabDeruxtecan = tt.exposure

			got := eval.Evaluate(p, req)
			require.Len(t, got.Rules, 1)
			assert.Equal(t, tt.want, got.Matches)
			assert.Equal(t, 0, got.Score)
			assert.Equal(t, tt.reasoning, got.Rules[0].Reasoning)
		})
	}
}

func TestTreatmentEvaluator_PriorImmunotherapyExcluded(t *testing.T) {
	eval := NewTreatmentEvaluator(DefaultTreatmentPoints())
	req := domain.TrialRequirement{
		TreatmentHistory: domain.TreatmentHistoryRequirements{ExcludePriorClasses: []string{"pd-1/pd-l1"}},
	}

	tests := []struct {
		exposure domain.Exposure
		want     domain.MatchOutcome
		points   int
	}{
		{domain.ExposureNo, domain.OutcomeTrue, 10},
		{domain.ExposureYes, domain.OutcomeFalse, 0},
		{domain.ExposureUnsure, domain.OutcomeUnknown, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.exposure), func(t *testing.T) {
			p := lungPatient()
			p.PriorTreatments.Lung.Immunotherapy = tt.exposure

			got := eval.Evaluate(p, req)
			assert.Equal(t, tt.want, got.Matches)
			assert.Equal(t, tt.points, got.Score)
		})
	}

	// Breast patients are not subject to the lung immunotherapy rule.
	assert.Empty(t, eval.Evaluate(breastPatient(), req).Rules)
}

func TestTreatmentEvaluator_Aggregation(t *testing.T) {
	eval := NewTreatmentEvaluator(DefaultTreatmentPoints())
	req := domain.TrialRequirement{
		Biomarkers:       domain.BiomarkerRequirements{RequiresCDK46i: true},
		TreatmentHistory: domain.TreatmentHistoryRequirements{ExcludePriorClasses: []string{"trastuzumab deruxtecan"}},
	}

	t.Run("false dominates unknown", func(t *testing.T) {
		p := breastPatient()
		p.PriorTreatments.Breast.CDK46Inhibitors = domain.ExposureUnsure
		p.PriorTreatments.Breast.TrastuzumabDeruxtecan = domain.ExposureYes

		got := eval.Evaluate(p, req)
		assert.Equal(t, domain.OutcomeFalse, got.Matches)
		assert.Equal(t, 7, got.Score)
		assert.Len(t, got.Rules, 2)
	})

	t.Run("unknown dominates true", func(t *testing.T) {
		p := breastPatient()
		p.PriorTreatments.Breast.TrastuzumabDeruxtecan = domain.ExposureUnsure

		got := eval.Evaluate(p, req)
		assert.Equal(t, domain.OutcomeUnknown, got.Matches)
		assert.Equal(t, 15, got.Score)
	})

	t.Run("no rules is true", func(t *testing.T) {
		got := eval.Evaluate(breastPatient(), domain.TrialRequirement{})
		assert.Equal(t, domain.OutcomeTrue, got.Matches)
		assert.NotNil(t, got.Rules)
		assert.Empty(t, got.Rules)
	})
}
