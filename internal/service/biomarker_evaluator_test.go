package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialscout-server/internal/domain"
)

func breastPatient() domain.PatientProfile {
	p := domain.PatientProfile{
		CancerType: domain.CancerBreast,
		Stage:      domain.StageIV,
	}
	p.Biomarkers.HormoneReceptors.ER = domain.TriStatePresent
	p.Biomarkers.HormoneReceptors.PR = domain.TriStatePresent
	p.Biomarkers.Expression.HER2 = domain.HER2Low
	p.PriorTreatments.Breast.CDK46Inhibitors = domain.ExposureYes
	return p.Normalize()
}

func lungPatient() domain.PatientProfile {
	p := domain.PatientProfile{
		CancerType: domain.CancerLung,
		Stage:      domain.StageIV,
	}
	p.Biomarkers.Genetic.KRASG12C = domain.TriStatePresent
	p.Biomarkers.Expression.PDL1 = domain.PDL1High
	p.PriorTreatments.Lung.Immunotherapy = domain.ExposureNo
	return p.Normalize()
}

func withBiomarkers(b domain.BiomarkerRequirements) domain.TrialRequirement {
	return domain.TrialRequirement{Biomarkers: b}
}

func TestBiomarkerEvaluator_NoConstraintsIsVacuousMatch(t *testing.T) {
	eval := NewBiomarkerEvaluator(DefaultBiomarkerWeights())

	for _, patient := range []domain.PatientProfile{breastPatient(), lungPatient()} {
		got := eval.Evaluate(patient, domain.TrialRequirement{})
		assert.Equal(t, domain.BiomarkerMatches, got.OverallMatch)
		assert.Equal(t, 100, got.Score)
		assert.Equal(t, 0, got.MaxScore)
		assert.NotNil(t, got.Details)
		assert.Empty(t, got.Details)
	}
}

func TestBiomarkerEvaluator_CancerTypeScoping(t *testing.T) {
	eval := NewBiomarkerEvaluator(DefaultBiomarkerWeights())

	t.Run("breast constraints ignored for lung patient", func(t *testing.T) {
		got := eval.Evaluate(lungPatient(), withBiomarkers(domain.BiomarkerRequirements{HER2: domain.RequireHER2Positive}))
		assert.Equal(t, domain.BiomarkerMatches, got.OverallMatch)
		assert.Equal(t, 100, got.Score)
		assert.Empty(t, got.Details)
	})

	t.Run("lung constraints ignored for breast patient", func(t *testing.T) {
		got := eval.Evaluate(breastPatient(), withBiomarkers(domain.BiomarkerRequirements{KRASG12C: true, PDL1: domain.RequirePDL1High}))
		assert.Equal(t, domain.BiomarkerMatches, got.OverallMatch)
		assert.Empty(t, got.Details)
	})

	t.Run("any is not a constraint", func(t *testing.T) {
		got := eval.Evaluate(breastPatient(), withBiomarkers(domain.BiomarkerRequirements{HER2: domain.RequireHER2Any, ER: domain.RequireReceptorAny}))
		assert.Equal(t, domain.BiomarkerMatches, got.OverallMatch)
		assert.Equal(t, 100, got.Score)
		assert.Empty(t, got.Details)
	})
}

func TestBiomarkerEvaluator_HER2Low(t *testing.T) {
	eval := NewBiomarkerEvaluator(DefaultBiomarkerWeights())
	req := withBiomarkers(domain.BiomarkerRequirements{HER2: domain.RequireHER2Low})

	tests := []struct {
		name      string
		her2      domain.HER2Level
		outcome   domain.MatchOutcome
		category  domain.BiomarkerCategory
		score     int
		reasoning string
	}{
		{"low matches", domain.HER2Low, domain.OutcomeTrue, domain.BiomarkerMatches, 30,
			"Patient is HER2-low (IHC 1+ or IHC 2+/ISH-), matches trial requirement per FDA 2022 guidance for T-DXd eligibility"},
		{"IHC 0 is not low", domain.HER2Zero, domain.OutcomeFalse, domain.BiomarkerDoesntMatch, 0,
			"Patient is HER2-negative (IHC 0), which does not meet HER2-low criteria. HER2-low requires IHC 1+ or IHC 2+/ISH-."},
		{"positive exceeds low", domain.HER2Positive, domain.OutcomeFalse, domain.BiomarkerDoesntMatch, 0,
			"Patient is HER2-positive, which exceeds HER2-low threshold. HER2-low trials are for IHC 1+ or IHC 2+/ISH-, not HER2-positive disease."},
		{"unknown gets half credit", domain.HER2Unknown, domain.OutcomeUnknown, domain.BiomarkerUnknown, 15,
			"HER2 status not provided - IHC testing required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := breastPatient()
			p.Biomarkers.Expression.HER2 = tt.her2

			got := eval.Evaluate(p, req)
			require.Len(t, got.Details, 1)
			assert.Equal(t, tt.outcome, got.Details[0].Matches)
			assert.Equal(t, tt.reasoning, got.Details[0].Reasoning)
			assert.Equal(t, tt.category, got.OverallMatch)
			assert.Equal(t, tt.score, got.Score)
			assert.Equal(t, 30, got.MaxScore)
		})
	}
}

func TestEvaluateHER2_Negative(t *testing.T) {
	d := EvaluateHER2(domain.HER2Zero, domain.RequireHER2Negative)
	assert.Equal(t, domain.OutcomeTrue, d.Matches)

	d = EvaluateHER2(domain.HER2Low, domain.RequireHER2Negative)
	assert.Equal(t, domain.OutcomeFalse, d.Matches)
	assert.Equal(t, "Patient is HER2-low, does not match HER2-negative (IHC 0) requirement", d.Reasoning)
}

func TestDeriveTripleNegative(t *testing.T) {
	tests := []struct {
		name string
		er   domain.TriState
		pr   domain.TriState
		her2 domain.HER2Level
		want domain.TriState
	}{
		{"all negative IHC 0", domain.TriStateAbsent, domain.TriStateAbsent, domain.HER2Zero, domain.TriStatePresent},
		{"receptors negative HER2 untested", domain.TriStateAbsent, domain.TriStateAbsent, domain.HER2Unknown, domain.TriStatePresent},
		{"ER positive", domain.TriStatePresent, domain.TriStateAbsent, domain.HER2Zero, domain.TriStateAbsent},
		{"PR positive with unknown ER", domain.TriStateUnknown, domain.TriStatePresent, domain.HER2Unknown, domain.TriStateAbsent},
		{"HER2 low", domain.TriStateAbsent, domain.TriStateAbsent, domain.HER2Low, domain.TriStateAbsent},
		{"HER2 positive", domain.TriStateUnknown, domain.TriStateUnknown, domain.HER2Positive, domain.TriStateAbsent},
		{"ER unknown", domain.TriStateUnknown, domain.TriStateAbsent, domain.HER2Zero, domain.TriStateUnknown},
		{"nothing tested", domain.TriStateUnknown, domain.TriStateUnknown, domain.HER2Unknown, domain.TriStateUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var profile domain.BiomarkerProfile
			profile.HormoneReceptors.ER = tt.er
			profile.HormoneReceptors.PR = tt.pr
			profile.Expression.HER2 = tt.her2
			assert.Equal(t, tt.want, DeriveTripleNegative(profile))
		})
	}
}

func TestBiomarkerEvaluator_Thresholds(t *testing.T) {
	eval := NewBiomarkerEvaluator(DefaultBiomarkerWeights())
	req := withBiomarkers(domain.BiomarkerRequirements{HER2: domain.RequireHER2Low, ER: domain.RequireReceptorPositive})

	t.Run("one match one unknown is partial", func(t *testing.T) {
		p := breastPatient()
		p.Biomarkers.Expression.HER2 = domain.HER2Unknown

		got := eval.Evaluate(p, req)
		assert.Equal(t, 40, got.Score)
		assert.Equal(t, 55, got.MaxScore)
		assert.Equal(t, domain.BiomarkerPartial, got.OverallMatch)
	})

	t.Run("all unknown", func(t *testing.T) {
		p := breastPatient()
		p.Biomarkers.Expression.HER2 = domain.HER2Unknown
		p.Biomarkers.HormoneReceptors.ER = domain.TriStateUnknown

		got := eval.Evaluate(p, req)
		assert.Equal(t, 27, got.Score)
		assert.Equal(t, domain.BiomarkerUnknown, got.OverallMatch)
	})

	t.Run("mismatch overrides percentage", func(t *testing.T) {
		p := breastPatient()
		p.Biomarkers.HormoneReceptors.ER = domain.TriStateAbsent

		got := eval.Evaluate(p, req)
		assert.Equal(t, 30, got.Score)
		assert.Equal(t, domain.BiomarkerDoesntMatch, got.OverallMatch)
	})

	t.Run("exactly eighty percent matches", func(t *testing.T) {
		w := DefaultBiomarkerWeights()
		w.DriverMutation = Weight{Full: 10, Unknown: 6}
		custom := NewBiomarkerEvaluator(w)

		p := lungPatient()
		p.Biomarkers.Genetic.MET = domain.TriStateUnknown

		got := custom.Evaluate(p, withBiomarkers(domain.BiomarkerRequirements{KRASG12C: true, MET: true}))
		assert.Equal(t, 16, got.Score)
		assert.Equal(t, 20, got.MaxScore)
		assert.Equal(t, domain.BiomarkerMatches, got.OverallMatch)
	})

	t.Run("just under eighty percent is partial", func(t *testing.T) {
		w := DefaultBiomarkerWeights()
		w.DriverMutation = Weight{Full: 100, Unknown: 59}
		custom := NewBiomarkerEvaluator(w)

		p := lungPatient()
		p.Biomarkers.Genetic.MET = domain.TriStateUnknown

		got := custom.Evaluate(p, withBiomarkers(domain.BiomarkerRequirements{KRASG12C: true, MET: true}))
		assert.Equal(t, 159, got.Score)
		assert.Equal(t, domain.BiomarkerPartial, got.OverallMatch)
	})
}

func TestBiomarkerEvaluator_LungDrivers(t *testing.T) {
	eval := NewBiomarkerEvaluator(DefaultBiomarkerWeights())
	req := withBiomarkers(domain.BiomarkerRequirements{
		KRASG12C: true,
		MET:      true,
		RET:      true,
		ALK:      true,
		PDL1:     domain.RequirePDL1High,
	})

	p := lungPatient()
	p.Biomarkers.Genetic.MET = domain.TriStatePresent
	p.Biomarkers.Genetic.RET = domain.TriStatePresent
	p.Biomarkers.Genetic.ALK = domain.TriStatePresent

	got := eval.Evaluate(p, req)
	require.Len(t, got.Details, 5)
	assert.Equal(t, 4*35+25, got.MaxScore)
	assert.Equal(t, got.MaxScore, got.Score)
	assert.Equal(t, domain.BiomarkerMatches, got.OverallMatch)

	names := make([]string, len(got.Details))
	for i, d := range got.Details {
		names[i] = d.Biomarker
	}
	assert.Equal(t, []string{"KRAS G12C", "MET", "RET", "ALK", "PD-L1"}, names)
}

func TestBiomarkerEvaluator_UnknownNeverScoresAsMismatch(t *testing.T) {
	eval := NewBiomarkerEvaluator(DefaultBiomarkerWeights())
	req := withBiomarkers(domain.BiomarkerRequirements{KRASG12C: true})

	absent := lungPatient()
	absent.Biomarkers.Genetic.KRASG12C = domain.TriStateAbsent
	unknown := lungPatient()
	unknown.Biomarkers.Genetic.KRASG12C = domain.TriStateUnknown
	present := lungPatient()

	a := eval.Evaluate(absent, req)
	u := eval.Evaluate(unknown, req)
	p := eval.Evaluate(present, req)

	assert.Less(t, a.Score, u.Score)
	assert.Less(t, u.Score, p.Score)
	assert.Equal(t, domain.BiomarkerDoesntMatch, a.OverallMatch)
	assert.Equal(t, domain.BiomarkerUnknown, u.OverallMatch)
	assert.Equal(t, domain.BiomarkerMatches, p.OverallMatch)
}
