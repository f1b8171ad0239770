package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/trialscout-server/internal/domain"
	"github.com/trialscout-server/internal/registry"
)

type fakeLookup struct {
	version string
	entries map[string]domain.TrialRequirement
}

func (f *fakeLookup) Lookup(id string) (domain.TrialRequirement, bool) {
	req, ok := f.entries[id]
	return req.Clone(), ok
}

func (f *fakeLookup) Version() string {
	return f.version
}

func defaultRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.LoadDefault()
	require.NoError(t, err)
	return reg
}

func TestMatchEngine_HER2LowScenario(t *testing.T) {
	lookup := &fakeLookup{version: "test", entries: map[string]domain.TrialRequirement{
		"her2_low": withBiomarkers(domain.BiomarkerRequirements{
			HER2:           domain.RequireHER2Low,
			ER:             domain.RequireReceptorPositive,
			RequiresCDK46i: true,
		}),
	}}
	engine := NewMatchEngine(lookup)

	t.Run("HER2-low patient is a high-confidence match", func(t *testing.T) {
		result, err := engine.Evaluate(breastPatient(), "her2_low")
		require.NoError(t, err)

		assert.Equal(t, "her2_low", result.TrialID)
		assert.True(t, result.Registered)
		assert.Equal(t, domain.BiomarkerMatches, result.BiomarkerMatchCategory)
		assert.Equal(t, domain.VerdictPossiblyEligible, result.EligibilityVerdict)
		assert.Equal(t, domain.ConfidenceHigh, result.MatchConfidence)
		assert.Equal(t, 99, result.MatchScore)
		assert.Empty(t, result.WhyCantMatch)
		assert.Contains(t, result.WhyMatched, "No stage requirement")
	})

	t.Run("IHC 0 patient does not meet HER2-low", func(t *testing.T) {
		p := breastPatient()
		p.Biomarkers.Expression.HER2 = domain.HER2Zero

		result, err := engine.Evaluate(p, "her2_low")
		require.NoError(t, err)

		assert.Equal(t, domain.BiomarkerDoesntMatch, result.BiomarkerMatchCategory)
		assert.Equal(t, domain.VerdictLikelyNotEligible, result.EligibilityVerdict)
		assert.Equal(t, domain.ConfidenceLow, result.MatchConfidence)
		assert.Equal(t, []string{
			"Patient is HER2-negative (IHC 0), which does not meet HER2-low criteria. HER2-low requires IHC 1+ or IHC 2+/ISH-.",
		}, result.WhyCantMatch)
	})
}

func TestMatchEngine_EarlyStagePatientOnMetastaticTrial(t *testing.T) {
	engine := NewMatchEngine(defaultRegistry(t))

	p := breastPatient()
	p.Stage = domain.StageI
	p.Biomarkers.Expression.HER2 = domain.HER2Positive

	result, err := engine.Evaluate(p, "bc_trial_006")
	require.NoError(t, err)

	assert.Equal(t, domain.BiomarkerMatches, result.BiomarkerMatchCategory)
	assert.Equal(t, domain.VerdictLikelyNotEligible, result.EligibilityVerdict)
	assert.Equal(t, domain.ConfidenceLow, result.MatchConfidence)
	assert.Equal(t, 65, result.MatchScore)
	assert.Equal(t, []string{"This trial requires metastatic disease (Stage IV). Patient has Stage I disease."}, result.WhyCantMatch)
}

func TestMatchEngine_MetastaticPatientOnNeoadjuvantTrial(t *testing.T) {
	engine := NewMatchEngine(defaultRegistry(t))

	p := domain.PatientProfile{CancerType: domain.CancerBreast, Stage: domain.StageIV}
	p.Biomarkers.HormoneReceptors.ER = domain.TriStateAbsent
	p.Biomarkers.HormoneReceptors.PR = domain.TriStateAbsent
	p.Biomarkers.Expression.HER2 = domain.HER2Zero

	result, err := engine.Evaluate(p, "bc_trial_007")
	require.NoError(t, err)

	assert.Equal(t, domain.BiomarkerMatches, result.BiomarkerMatchCategory)
	assert.Equal(t, domain.VerdictLikelyNotEligible, result.EligibilityVerdict)
	assert.Len(t, result.WhyCantMatch, 1)
	assert.Contains(t, result.WhyCantMatch[0], "early-stage trial for Stage II-III disease")
}

func TestMatchEngine_TDXdDefaultNeedsConfirmation(t *testing.T) {
	engine := NewMatchEngine(defaultRegistry(t))

	result, err := engine.Evaluate(breastPatient(), "bc_trial_002")
	require.NoError(t, err)

	assert.Equal(t, domain.ConfidenceHigh, result.MatchConfidence)
	assert.Contains(t, result.WhatToConfirm, "Verify patient has not received trastuzumab deruxtecan (T-DXd) previously")
	assert.NotContains(t, result.WhyMatched, "Verify patient has not received trastuzumab deruxtecan (T-DXd) previously")

	p := breastPatient()
	p.PriorTreatments.Breast.TrastuzumabDeruxtecan = domain.ExposureYes
	result, err = engine.Evaluate(p, "bc_trial_002")
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictLikelyNotEligible, result.EligibilityVerdict)
}

func TestMatchEngine_NullExposureIsUnsure(t *testing.T) {
	engine := NewMatchEngine(defaultRegistry(t))

	payload := `{
		"cancerType": "breast",
		"stage": "IV",
		"biomarkerProfile": {
			"expression": {"HER2": "low"},
			"hormoneReceptors": {"ER": "present", "PR": "present"}
		},
		"priorTreatments": {"breast": {"cdk46Inhibitors": null}}
	}`
	var p domain.PatientProfile
	require.NoError(t, json.Unmarshal([]byte(payload), &p))
	assert.Equal(t, domain.ExposureUnsure, p.Normalize().PriorTreatments.Breast.CDK46Inhibitors)

	result, err := engine.Evaluate(p, "bc_trial_002")
	require.NoError(t, err)

	assert.Equal(t, domain.VerdictPossiblyEligible, result.EligibilityVerdict)
	assert.NotContains(t, result.WhyCantMatch, "Trial requires prior CDK4/6 inhibitor; patient has not received one")
}

func TestMatchEngine_UnregisteredTrial(t *testing.T) {
	engine := NewMatchEngine(defaultRegistry(t))

	result, err := engine.Evaluate(breastPatient(), "NCT00000000")
	require.NoError(t, err)

	assert.False(t, result.Registered)
	assert.Equal(t, domain.BiomarkerMatches, result.BiomarkerMatchCategory)
	assert.Equal(t, domain.ConfidenceHigh, result.MatchConfidence)
	assert.Equal(t, 99, result.MatchScore)
}

func TestMatchEngine_InvalidPatient(t *testing.T) {
	engine := NewMatchEngine(defaultRegistry(t))

	_, err := engine.Evaluate(domain.PatientProfile{}, "bc_trial_001")
	assert.True(t, errors.Is(err, domain.ErrMissingCancerType))

	_, err = engine.EvaluateAll(context.Background(), domain.PatientProfile{CancerType: "skin"}, []string{"bc_trial_001"})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "cancerType", verr.Field)
}

func TestMatchEngine_Idempotent(t *testing.T) {
	engine := NewMatchEngine(defaultRegistry(t))
	p := breastPatient()

	first, err := engine.Evaluate(p, "bc_trial_004")
	require.NoError(t, err)
	second, err := engine.Evaluate(p, "bc_trial_004")
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated evaluation differs (-first +second):\n%s", diff)
	}
}

// Every evaluated biomarker, the stage check and each treatment rule
// contributes exactly one reason.
func TestMatchEngine_ReasonsAreComplete(t *testing.T) {
	reg := defaultRegistry(t)
	engine := NewMatchEngine(reg)

	her2Levels := []domain.HER2Level{domain.HER2Zero, domain.HER2Low, domain.HER2Positive, domain.HER2Unknown}
	states := []domain.TriState{domain.TriStatePresent, domain.TriStateAbsent, domain.TriStateUnknown}
	exposures := []domain.Exposure{domain.ExposureYes, domain.ExposureNo, domain.ExposureUnsure}
	stages := []domain.Stage{"", domain.StageI, domain.StageII, domain.StageIII, domain.StageIV}

	for _, id := range reg.IDs() {
		req, _ := reg.Lookup(id)
		for _, her2 := range her2Levels {
			for _, er := range states {
				for _, exp := range exposures {
					for _, stage := range stages {
						for _, ct := range []domain.CancerType{domain.CancerBreast, domain.CancerLung} {
							p := domain.PatientProfile{CancerType: ct, Stage: stage}
							p.Biomarkers.Expression.HER2 = her2
							p.Biomarkers.HormoneReceptors.ER = er
							p.Biomarkers.HormoneReceptors.PR = er
							p.Biomarkers.Genetic.KRASG12C = er
							p.PriorTreatments.Breast.CDK46Inhibitors = exp
							p.PriorTreatments.Lung.Immunotherapy = exp
							p = p.Normalize()

							result, err := engine.Evaluate(p, id)
							require.NoError(t, err)

							treatment := NewTreatmentEvaluator(DefaultTreatmentPoints()).Evaluate(p, req)
							reasons := len(result.WhyMatched) + len(result.WhyCantMatch) + len(result.WhatToConfirm)
							assert.Equal(t, len(result.BiomarkerDetails)+1+len(treatment.Rules), reasons)

							assert.GreaterOrEqual(t, result.MatchScore, 10)
							assert.LessOrEqual(t, result.MatchScore, 99)
							if len(result.WhyCantMatch) > 0 {
								assert.Equal(t, domain.VerdictLikelyNotEligible, result.EligibilityVerdict)
							}
						}
					}
				}
			}
		}
	}
}

func TestMatchEngine_EvaluateAll(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg := defaultRegistry(t)
	engine := NewMatchEngine(reg, WithConcurrency(3))
	ids := append(reg.IDs(), "unregistered")

	results, err := engine.EvaluateAll(context.Background(), breastPatient(), ids)
	require.NoError(t, err)
	require.Len(t, results, len(ids))

	for i, id := range ids {
		assert.Equal(t, id, results[i].TrialID)
		single, err := engine.Evaluate(breastPatient(), id)
		require.NoError(t, err)
		if diff := cmp.Diff(single, results[i]); diff != "" {
			t.Errorf("trial %s differs from single evaluation (-single +batch):\n%s", id, diff)
		}
	}
}

func TestMatchEngine_EvaluateAllCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine := NewMatchEngine(defaultRegistry(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.EvaluateAll(ctx, breastPatient(), []string{"bc_trial_001", "bc_trial_002"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSortResults(t *testing.T) {
	results := []domain.MatchResult{
		{TrialID: "c", MatchScore: 90, MatchConfidence: domain.ConfidenceLow},
		{TrialID: "b", MatchScore: 60, MatchConfidence: domain.ConfidenceHigh},
		{TrialID: "a", MatchScore: 60, MatchConfidence: domain.ConfidenceHigh},
		{TrialID: "d", MatchScore: 80, MatchConfidence: domain.ConfidenceMedium},
		{TrialID: "e", MatchScore: 95, MatchConfidence: domain.ConfidenceHigh},
	}
	SortResults(results)

	got := make([]string, len(results))
	for i, r := range results {
		got[i] = r.TrialID
	}
	assert.Equal(t, []string{"e", "a", "b", "d", "c"}, got)
}
