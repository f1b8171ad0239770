package service

import (
	"fmt"

	"github.com/trialscout-server/internal/domain"
)

// DeriveTripleNegative computes triple-negative status from ER, PR and HER2.
// Present needs ER and PR absent with HER2 at IHC 0 or untested; any
// positive receptor or HER2 low/positive makes it absent.
func DeriveTripleNegative(profile domain.BiomarkerProfile) domain.TriState {
	er := profile.HormoneReceptors.ER
	pr := profile.HormoneReceptors.PR
	her2 := profile.Expression.HER2

	if er == domain.TriStateAbsent && pr == domain.TriStateAbsent &&
		(her2 == domain.HER2Zero || her2 == domain.HER2Unknown) {
		return domain.TriStatePresent
	}
	if er == domain.TriStatePresent || pr == domain.TriStatePresent ||
		her2 == domain.HER2Positive || her2 == domain.HER2Low {
		return domain.TriStateAbsent
	}
	return domain.TriStateUnknown
}

// EvaluateTripleNegative builds the triple-negative detail.
func EvaluateTripleNegative(profile domain.BiomarkerProfile) domain.BiomarkerDetail {
	d := domain.BiomarkerDetail{
		Biomarker: "Triple-Negative Status",
		Required:  "ER-, PR-, HER2-",
	}
	switch DeriveTripleNegative(profile) {
	case domain.TriStatePresent:
		d.Patient = "Triple-negative confirmed"
		d.Matches = domain.OutcomeTrue
		d.Reasoning = "Triple-negative breast cancer confirmed"
	case domain.TriStateUnknown:
		d.Patient = "Unknown"
		d.Matches = domain.OutcomeUnknown
		d.Reasoning = "Triple-negative status needs confirmation"
	default:
		d.Patient = "Not triple-negative"
		d.Matches = domain.OutcomeFalse
		d.Reasoning = "Patient is not triple-negative (has ER+, PR+, or HER2+)"
	}
	return d
}

// EvaluateHER2 compares a patient's HER2 level against a HER2 requirement.
// Negative means IHC 0 only; low excludes both IHC 0 and positive.
func EvaluateHER2(patient domain.HER2Level, required domain.HER2Requirement) domain.BiomarkerDetail {
	d := domain.BiomarkerDetail{
		Biomarker: "HER2",
		Required:  string(required),
		Patient:   string(patient),
	}

	if patient == domain.HER2Unknown || patient == "" {
		d.Patient = string(domain.HER2Unknown)
		d.Matches = domain.OutcomeUnknown
		d.Reasoning = "HER2 status not provided - IHC testing required"
		return d
	}

	var matched bool
	switch required {
	case domain.RequireHER2Positive:
		matched = patient == domain.HER2Positive
		if matched {
			d.Reasoning = "Patient is HER2-positive (IHC 3+ or IHC 2+/ISH+), matches trial requirement"
		} else {
			d.Reasoning = fmt.Sprintf("Patient is HER2-%s, does not match HER2-positive requirement", patient)
		}
	case domain.RequireHER2Negative:
		matched = patient == domain.HER2Zero
		if matched {
			d.Reasoning = "Patient is HER2-negative (IHC 0), matches trial requirement"
		} else {
			d.Reasoning = fmt.Sprintf("Patient is HER2-%s, does not match HER2-negative (IHC 0) requirement", patient)
		}
	case domain.RequireHER2Low:
		matched = patient == domain.HER2Low
		switch {
		case matched:
			d.Reasoning = "Patient is HER2-low (IHC 1+ or IHC 2+/ISH-), matches trial requirement per FDA 2022 guidance for T-DXd eligibility"
		case patient == domain.HER2Zero:
			d.Reasoning = "Patient is HER2-negative (IHC 0), which does not meet HER2-low criteria. HER2-low requires IHC 1+ or IHC 2+/ISH-."
		case patient == domain.HER2Positive:
			d.Reasoning = "Patient is HER2-positive, which exceeds HER2-low threshold. HER2-low trials are for IHC 1+ or IHC 2+/ISH-, not HER2-positive disease."
		default:
			d.Reasoning = fmt.Sprintf("Patient is HER2-%s, does not match HER2-low requirement", patient)
		}
	default:
		d.Reasoning = "Unable to determine HER2 match"
	}

	d.Matches = outcomeOf(matched)
	return d
}

// EvaluateReceptor compares a hormone receptor state against a
// positive/negative requirement.
func EvaluateReceptor(patient domain.TriState, required domain.ReceptorRequirement, name string) domain.BiomarkerDetail {
	d := domain.BiomarkerDetail{
		Biomarker: name,
		Required:  string(required),
	}
	if patient != domain.TriStatePresent && patient != domain.TriStateAbsent {
		d.Patient = "unknown"
		d.Matches = domain.OutcomeUnknown
		d.Reasoning = name + " status not provided - testing required"
		return d
	}

	status := "negative"
	if patient == domain.TriStatePresent {
		status = "positive"
	}
	d.Patient = status

	matched := (patient == domain.TriStatePresent) == (required == domain.RequireReceptorPositive)
	d.Matches = outcomeOf(matched)
	if matched {
		d.Reasoning = fmt.Sprintf("Patient is %s-%s, matches trial requirement", name, status)
	} else {
		d.Reasoning = fmt.Sprintf("Patient is %s-%s, does not match %s-%s requirement", name, status, name, required)
	}
	return d
}

// EvaluateMutation checks that a required alteration is present.
func EvaluateMutation(patient domain.TriState, name string) domain.BiomarkerDetail {
	d := domain.BiomarkerDetail{
		Biomarker: name,
		Required:  "present",
	}
	switch patient {
	case domain.TriStatePresent:
		d.Patient = "present"
		d.Matches = domain.OutcomeTrue
		d.Reasoning = "Patient has " + name + " mutation, matches trial requirement"
	case domain.TriStateAbsent:
		d.Patient = "absent"
		d.Matches = domain.OutcomeFalse
		d.Reasoning = "Patient does not have " + name + " mutation"
	default:
		d.Patient = "unknown"
		d.Matches = domain.OutcomeUnknown
		d.Reasoning = name + " status unknown - genomic testing required"
	}
	return d
}

// EvaluatePDL1 compares PD-L1 expression against a high/low requirement.
func EvaluatePDL1(patient domain.PDL1Level, required domain.PDL1Requirement) domain.BiomarkerDetail {
	d := domain.BiomarkerDetail{
		Biomarker: "PD-L1",
		Required:  string(required),
		Patient:   string(patient),
	}
	if patient == domain.PDL1Unknown || patient == "" {
		d.Patient = string(domain.PDL1Unknown)
		d.Matches = domain.OutcomeUnknown
		d.Reasoning = "PD-L1 expression not provided - testing required"
		return d
	}

	matched := string(patient) == string(required)
	d.Matches = outcomeOf(matched)
	if matched {
		d.Reasoning = fmt.Sprintf("Patient is PD-L1 %s, matches trial requirement", patient)
	} else {
		d.Reasoning = fmt.Sprintf("Patient is PD-L1 %s, does not match PD-L1 %s requirement", patient, required)
	}
	return d
}

func outcomeOf(b bool) domain.MatchOutcome {
	if b {
		return domain.OutcomeTrue
	}
	return domain.OutcomeFalse
}
