package service

import (
	"fmt"
	"strings"

	"github.com/trialscout-server/internal/domain"
)

// EvaluateStage checks the patient's stage against the trial's allowed
// stages. Two category errors are hard overrides rather than scored
// mismatches: a metastatic patient on an early-stage trial, and an
// early-stage patient on a metastatic-only trial.
func EvaluateStage(patient domain.PatientProfile, req domain.TrialRequirement) domain.StageEvaluation {
	if len(req.AllowedStages) == 0 {
		return domain.StageEvaluation{Matches: domain.OutcomeTrue, Reasoning: "No stage requirement"}
	}
	if patient.Stage == "" {
		return domain.StageEvaluation{Matches: domain.OutcomeUnknown, Reasoning: "Cancer stage not provided"}
	}

	earlyStageOnly := (req.AllowsStage(domain.StageII) || req.AllowsStage(domain.StageIII)) &&
		!req.AllowsStage(domain.StageIV)
	if earlyStageOnly && patient.Stage == domain.StageIV {
		trialType := "early-stage"
		if req.TreatmentHistory.RequiresFirstLine {
			trialType = "neoadjuvant (pre-surgery)"
		}
		return domain.StageEvaluation{
			Matches:   domain.OutcomeFalse,
			Reasoning: fmt.Sprintf("This is a %s trial for Stage II-III disease. Patient has metastatic disease (Stage IV) and is not eligible.", trialType),
		}
	}

	metastaticOnly := len(req.AllowedStages) == 1 && req.AllowedStages[0] == domain.StageIV
	if metastaticOnly && patient.Stage != domain.StageIV {
		return domain.StageEvaluation{
			Matches:   domain.OutcomeFalse,
			Reasoning: fmt.Sprintf("This trial requires metastatic disease (Stage IV). Patient has Stage %s disease.", patient.Stage),
		}
	}

	if req.AllowsStage(patient.Stage) {
		return domain.StageEvaluation{
			Matches:   domain.OutcomeTrue,
			Reasoning: fmt.Sprintf("Stage %s matches trial requirement", patient.Stage),
		}
	}

	labels := make([]string, len(req.AllowedStages))
	for i, s := range req.AllowedStages {
		labels[i] = string(s)
	}
	return domain.StageEvaluation{
		Matches:   domain.OutcomeFalse,
		Reasoning: fmt.Sprintf("Stage %s does not match trial requirement (requires %s)", patient.Stage, strings.Join(labels, " or ")),
	}
}
