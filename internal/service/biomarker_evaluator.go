package service

import (
	"github.com/trialscout-server/internal/domain"
)

// Weight is the point value of one biomarker constraint: Full on a
// confirmed match, Unknown when the patient value was never tested.
type Weight struct {
	Full    int
	Unknown int
}

// BiomarkerWeights holds the per-constraint point values.
type BiomarkerWeights struct {
	TripleNegative  Weight
	HER2            Weight
	HormoneReceptor Weight
	ESR1            Weight
	DriverMutation  Weight
	PDL1            Weight
}

// DefaultBiomarkerWeights returns the calibrated weights.
func DefaultBiomarkerWeights() BiomarkerWeights {
	return BiomarkerWeights{
		TripleNegative:  Weight{Full: 40, Unknown: 20},
		HER2:            Weight{Full: 30, Unknown: 15},
		HormoneReceptor: Weight{Full: 25, Unknown: 12},
		ESR1:            Weight{Full: 25, Unknown: 12},
		DriverMutation:  Weight{Full: 35, Unknown: 15},
		PDL1:            Weight{Full: 25, Unknown: 12},
	}
}

const (
	vacuousBiomarkerScore = 100
	matchThresholdPct     = 80
	partialThresholdPct   = 50
)

// BiomarkerEvaluator scores a patient's biomarkers against a trial's
// biomarker constraints.
type BiomarkerEvaluator struct {
	weights BiomarkerWeights
}

// NewBiomarkerEvaluator creates an evaluator with the given weights.
func NewBiomarkerEvaluator(weights BiomarkerWeights) *BiomarkerEvaluator {
	return &BiomarkerEvaluator{weights: weights}
}

// Evaluate returns the biomarker evaluation for one patient and requirement.
// Breast constraints apply only to breast patients and lung constraints only
// to lung patients.
func (e *BiomarkerEvaluator) Evaluate(patient domain.PatientProfile, req domain.TrialRequirement) domain.BiomarkerEvaluation {
	reqs := req.Biomarkers
	if reqs.IsEmpty() {
		return vacuousBiomarkerMatch()
	}

	t := &tally{}
	profile := patient.Biomarkers

	switch patient.CancerType {
	case domain.CancerBreast:
		if reqs.RequiresTripleNegative {
			t.add(EvaluateTripleNegative(profile), e.weights.TripleNegative)
		}
		if reqs.HER2.Constrains() {
			t.add(EvaluateHER2(profile.Expression.HER2, reqs.HER2), e.weights.HER2)
		}
		if reqs.ER.Constrains() {
			t.add(EvaluateReceptor(profile.HormoneReceptors.ER, reqs.ER, "ER"), e.weights.HormoneReceptor)
		}
		if reqs.ESR1 {
			t.add(EvaluateMutation(profile.HormoneReceptors.ESR1, "ESR1"), e.weights.ESR1)
		}
	case domain.CancerLung:
		if reqs.KRASG12C {
			t.add(EvaluateMutation(profile.Genetic.KRASG12C, "KRAS G12C"), e.weights.DriverMutation)
		}
		if reqs.MET {
			t.add(EvaluateMutation(profile.Genetic.MET, "MET"), e.weights.DriverMutation)
		}
		if reqs.RET {
			t.add(EvaluateMutation(profile.Genetic.RET, "RET"), e.weights.DriverMutation)
		}
		if reqs.ALK {
			t.add(EvaluateMutation(profile.Genetic.ALK, "ALK"), e.weights.DriverMutation)
		}
		if reqs.PDL1.Constrains() {
			t.add(EvaluatePDL1(profile.Expression.PDL1, reqs.PDL1), e.weights.PDL1)
		}
	}

	if t.maxScore == 0 {
		return vacuousBiomarkerMatch()
	}

	return domain.BiomarkerEvaluation{
		OverallMatch: t.category(),
		Score:        t.score,
		MaxScore:     t.maxScore,
		Details:      t.details,
	}
}

func vacuousBiomarkerMatch() domain.BiomarkerEvaluation {
	return domain.BiomarkerEvaluation{
		OverallMatch: domain.BiomarkerMatches,
		Score:        vacuousBiomarkerScore,
		Details:      []domain.BiomarkerDetail{},
	}
}

type tally struct {
	score    int
	maxScore int
	details  []domain.BiomarkerDetail
}

func (t *tally) add(d domain.BiomarkerDetail, w Weight) {
	t.maxScore += w.Full
	switch d.Matches {
	case domain.OutcomeTrue:
		t.score += w.Full
	case domain.OutcomeUnknown:
		t.score += w.Unknown
	}
	t.details = append(t.details, d)
}

// category applies the override and threshold rules in order. Integer
// comparison keeps the thresholds exact.
func (t *tally) category() domain.BiomarkerCategory {
	allUnknown := true
	for _, d := range t.details {
		if d.Matches == domain.OutcomeFalse {
			return domain.BiomarkerDoesntMatch
		}
		if d.Matches != domain.OutcomeUnknown {
			allUnknown = false
		}
	}

	switch {
	case t.score*100 >= matchThresholdPct*t.maxScore:
		return domain.BiomarkerMatches
	case allUnknown:
		return domain.BiomarkerUnknown
	case t.score*100 >= partialThresholdPct*t.maxScore:
		return domain.BiomarkerPartial
	default:
		return domain.BiomarkerDoesntMatch
	}
}
