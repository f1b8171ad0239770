// Package domain contains the core entities of the trial eligibility matcher:
// patient profiles, trial requirements, evaluation details and match results.
//
// Every clinical observation is modeled as an explicit enumeration. A value that
// was never tested is "unknown" (or "unsure" for treatment exposure) and is a
// first-class member of its domain, never an alias for false.
package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// TriState is the state of a single biomarker.
type TriState string

const (
	TriStatePresent TriState = "present"
	TriStateAbsent  TriState = "absent"
	TriStateUnknown TriState = "unknown"
)

// IsValid reports whether t is one of the three defined states.
func (t TriState) IsValid() bool {
	switch t {
	case TriStatePresent, TriStateAbsent, TriStateUnknown:
		return true
	default:
		return false
	}
}

func (t TriState) String() string {
	return string(t)
}

// OrUnknown maps the zero value to TriStateUnknown.
func (t TriState) OrUnknown() TriState {
	if t == "" {
		return TriStateUnknown
	}
	return t
}

// Exposure records whether a patient received a treatment class.
// Unsure is distinct from both yes and no.
type Exposure string

const (
	ExposureYes    Exposure = "yes"
	ExposureNo     Exposure = "no"
	ExposureUnsure Exposure = "unsure"
)

// IsValid reports whether e is a defined exposure value.
func (e Exposure) IsValid() bool {
	switch e {
	case ExposureYes, ExposureNo, ExposureUnsure:
		return true
	default:
		return false
	}
}

func (e Exposure) String() string {
	return string(e)
}

// OrUnsure maps the zero value to ExposureUnsure.
func (e Exposure) OrUnsure() Exposure {
	if e == "" {
		return ExposureUnsure
	}
	return e
}

// MarshalJSON emits true, false or "unsure".
func (e Exposure) MarshalJSON() ([]byte, error) {
	switch e {
	case ExposureYes:
		return []byte("true"), nil
	case ExposureNo:
		return []byte("false"), nil
	case "", ExposureUnsure:
		return []byte(`"unsure"`), nil
	default:
		return nil, fmt.Errorf("marshaling exposure: %w", ErrInvalidExposure)
	}
}

// UnmarshalJSON accepts booleans as well as the string forms. null leaves
// e unset, which Normalize turns into ExposureUnsure.
func (e *Exposure) UnmarshalJSON(data []byte) error {
	if isJSONNull(data) {
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			*e = ExposureYes
		} else {
			*e = ExposureNo
		}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("unmarshaling exposure: %w", err)
	}
	switch s {
	case "yes", "true":
		*e = ExposureYes
	case "no", "false":
		*e = ExposureNo
	case "unsure", "unknown", "":
		*e = ExposureUnsure
	default:
		return fmt.Errorf("unmarshaling exposure %q: %w", s, ErrInvalidExposure)
	}
	return nil
}

// MatchOutcome is the tri-valued result of one evaluated constraint.
type MatchOutcome string

const (
	OutcomeTrue    MatchOutcome = "true"
	OutcomeFalse   MatchOutcome = "false"
	OutcomeUnknown MatchOutcome = "unknown"
)

// IsValid reports whether o is a defined outcome.
func (o MatchOutcome) IsValid() bool {
	switch o {
	case OutcomeTrue, OutcomeFalse, OutcomeUnknown:
		return true
	default:
		return false
	}
}

func (o MatchOutcome) String() string {
	return string(o)
}

// MarshalJSON emits true, false or "unknown".
func (o MatchOutcome) MarshalJSON() ([]byte, error) {
	switch o {
	case OutcomeTrue:
		return []byte("true"), nil
	case OutcomeFalse:
		return []byte("false"), nil
	case OutcomeUnknown:
		return []byte(`"unknown"`), nil
	default:
		return nil, fmt.Errorf("marshaling match outcome %q: %w", string(o), ErrInvalidOutcome)
	}
}

// UnmarshalJSON accepts booleans or "unknown". null leaves o unset.
func (o *MatchOutcome) UnmarshalJSON(data []byte) error {
	if isJSONNull(data) {
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			*o = OutcomeTrue
		} else {
			*o = OutcomeFalse
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("unmarshaling match outcome: %w", err)
	}
	v := MatchOutcome(s)
	if !v.IsValid() {
		return fmt.Errorf("unmarshaling match outcome %q: %w", s, ErrInvalidOutcome)
	}
	*o = v
	return nil
}

func isJSONNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// CancerType is the primary tumor site.
type CancerType string

const (
	CancerBreast CancerType = "breast"
	CancerLung   CancerType = "lung"
)

// IsValid reports whether c is a supported cancer type.
func (c CancerType) IsValid() bool {
	return c == CancerBreast || c == CancerLung
}

func (c CancerType) String() string {
	return string(c)
}

// Stage is the disease stage label. The empty Stage means "not provided".
type Stage string

const (
	StageI   Stage = "I"
	StageII  Stage = "II"
	StageIII Stage = "III"
	StageIV  Stage = "IV"
)

// IsValid reports whether s is one of the four stage labels.
func (s Stage) IsValid() bool {
	switch s {
	case StageI, StageII, StageIII, StageIV:
		return true
	default:
		return false
	}
}

func (s Stage) String() string {
	return string(s)
}

// HER2Level follows the FDA 2022 categories. HER2Zero is IHC 0, HER2Low is
// IHC 1+ or IHC 2+/ISH-, HER2Positive is IHC 3+ or IHC 2+/ISH+.
type HER2Level string

const (
	HER2Zero     HER2Level = "0"
	HER2Low      HER2Level = "low"
	HER2Positive HER2Level = "positive"
	HER2Unknown  HER2Level = "unknown"
)

// IsValid reports whether h is a defined HER2 level.
func (h HER2Level) IsValid() bool {
	switch h {
	case HER2Zero, HER2Low, HER2Positive, HER2Unknown:
		return true
	default:
		return false
	}
}

// PDL1Level is PD-L1 expression.
type PDL1Level string

const (
	PDL1Low     PDL1Level = "low"
	PDL1High    PDL1Level = "high"
	PDL1Unknown PDL1Level = "unknown"
)

// IsValid reports whether p is a defined PD-L1 level.
func (p PDL1Level) IsValid() bool {
	switch p {
	case PDL1Low, PDL1High, PDL1Unknown:
		return true
	default:
		return false
	}
}

// EGFRSubtype is the EGFR alteration subtype.
type EGFRSubtype string

const (
	EGFRExon19Del EGFRSubtype = "exon19_del"
	EGFRL858R     EGFRSubtype = "l858r"
	EGFRExon20Ins EGFRSubtype = "exon20_ins"
	EGFRT790M     EGFRSubtype = "t790m"
	EGFROther     EGFRSubtype = "other"
	EGFRUnknown   EGFRSubtype = "unknown"
)

// IsValid reports whether s is a defined EGFR subtype.
func (s EGFRSubtype) IsValid() bool {
	switch s {
	case EGFRExon19Del, EGFRL858R, EGFRExon20Ins, EGFRT790M, EGFROther, EGFRUnknown:
		return true
	default:
		return false
	}
}

// LineOfTherapy is where the patient is in their treatment sequence.
type LineOfTherapy string

const (
	LineFirst           LineOfTherapy = "first"
	LinePostTargeted    LineOfTherapy = "post_targeted"
	LinePostChemoImmuno LineOfTherapy = "post_chemo_immuno"
	LineLater           LineOfTherapy = "later_line"
	LineNone            LineOfTherapy = "none"
)

// IsValid reports whether l is a defined line of therapy.
func (l LineOfTherapy) IsValid() bool {
	switch l {
	case LineFirst, LinePostTargeted, LinePostChemoImmuno, LineLater, LineNone:
		return true
	default:
		return false
	}
}

// BiomarkerCategory summarizes a biomarker evaluation.
type BiomarkerCategory string

const (
	BiomarkerMatches     BiomarkerCategory = "matches"
	BiomarkerPartial     BiomarkerCategory = "partial"
	BiomarkerUnknown     BiomarkerCategory = "unknown"
	BiomarkerDoesntMatch BiomarkerCategory = "doesnt_match"
)

// Confidence is the tier attached to a match result.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank orders tiers for sorting; lower ranks sort first.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 0
	case ConfidenceMedium:
		return 1
	default:
		return 2
	}
}

// Verdict is the binary eligibility classification.
type Verdict string

const (
	VerdictPossiblyEligible  Verdict = "possibly_eligible"
	VerdictLikelyNotEligible Verdict = "likely_not_eligible"
)

// LogFields returns structured logging fields for a verdict and its tier.
func (v Verdict) LogFields(c Confidence) map[string]any {
	return map[string]any{
		"verdict":    string(v),
		"confidence": string(c),
	}
}

// Domain-specific errors
var (
	ErrNotFound          = errors.New("not found")
	ErrMissingCancerType = errors.New("cancer type is required")
	ErrInvalidRegistry   = errors.New("invalid trial requirement registry")
	ErrInvalidExposure   = errors.New("invalid treatment exposure")
	ErrInvalidOutcome    = errors.New("invalid match outcome")
)
