package domain

import (
	"strings"
)

// HER2Requirement is the HER2 category a trial requires.
type HER2Requirement string

const (
	RequireHER2Positive HER2Requirement = "positive"
	RequireHER2Negative HER2Requirement = "negative"
	RequireHER2Low      HER2Requirement = "low"
	RequireHER2Any      HER2Requirement = "any"
)

// IsValid reports whether r is a defined HER2 requirement; empty is valid.
func (r HER2Requirement) IsValid() bool {
	switch r {
	case "", RequireHER2Positive, RequireHER2Negative, RequireHER2Low, RequireHER2Any:
		return true
	default:
		return false
	}
}

// Constrains reports whether r limits eligibility at all.
func (r HER2Requirement) Constrains() bool {
	return r != "" && r != RequireHER2Any
}

// ReceptorRequirement is the required status of a hormone receptor.
type ReceptorRequirement string

const (
	RequireReceptorPositive ReceptorRequirement = "positive"
	RequireReceptorNegative ReceptorRequirement = "negative"
	RequireReceptorAny      ReceptorRequirement = "any"
)

// IsValid reports whether r is a defined receptor requirement; empty is valid.
func (r ReceptorRequirement) IsValid() bool {
	switch r {
	case "", RequireReceptorPositive, RequireReceptorNegative, RequireReceptorAny:
		return true
	default:
		return false
	}
}

// Constrains reports whether r limits eligibility at all.
func (r ReceptorRequirement) Constrains() bool {
	return r != "" && r != RequireReceptorAny
}

// PDL1Requirement is the required PD-L1 expression.
type PDL1Requirement string

const (
	RequirePDL1High PDL1Requirement = "high"
	RequirePDL1Low  PDL1Requirement = "low"
	RequirePDL1Any  PDL1Requirement = "any"
)

// IsValid reports whether r is a defined PD-L1 requirement; empty is valid.
func (r PDL1Requirement) IsValid() bool {
	switch r {
	case "", RequirePDL1High, RequirePDL1Low, RequirePDL1Any:
		return true
	default:
		return false
	}
}

// Constrains reports whether r limits eligibility at all.
func (r PDL1Requirement) Constrains() bool {
	return r != "" && r != RequirePDL1Any
}

// BiomarkerRequirements is the sparse set of biomarker constraints for a trial.
type BiomarkerRequirements struct {
	HER2                   HER2Requirement     `json:"HER2,omitempty" yaml:"HER2,omitempty"`
	ER                     ReceptorRequirement `json:"ER,omitempty" yaml:"ER,omitempty"`
	PR                     ReceptorRequirement `json:"PR,omitempty" yaml:"PR,omitempty"`
	ESR1                   bool                `json:"ESR1,omitempty" yaml:"ESR1,omitempty"`
	PIK3CA                 bool                `json:"PIK3CA,omitempty" yaml:"PIK3CA,omitempty"`
	BRCA                   bool                `json:"BRCA,omitempty" yaml:"BRCA,omitempty"`
	EGFR                   bool                `json:"EGFR,omitempty" yaml:"EGFR,omitempty"`
	ALK                    bool                `json:"ALK,omitempty" yaml:"ALK,omitempty"`
	ROS1                   bool                `json:"ROS1,omitempty" yaml:"ROS1,omitempty"`
	KRASG12C               bool                `json:"KRAS_G12C,omitempty" yaml:"KRAS_G12C,omitempty"`
	MET                    bool                `json:"MET,omitempty" yaml:"MET,omitempty"`
	RET                    bool                `json:"RET,omitempty" yaml:"RET,omitempty"`
	BRAF                   bool                `json:"BRAF,omitempty" yaml:"BRAF,omitempty"`
	NTRK                   bool                `json:"NTRK,omitempty" yaml:"NTRK,omitempty"`
	PDL1                   PDL1Requirement     `json:"PDL1,omitempty" yaml:"PDL1,omitempty"`
	RequiresTripleNegative bool                `json:"requiresTripleNegative,omitempty" yaml:"requiresTripleNegative,omitempty"`
	RequiresCDK46i         bool                `json:"requiresCDK46i,omitempty" yaml:"requiresCDK46i,omitempty"`
}

// IsEmpty reports whether no biomarker key was declared. An explicit "any"
// counts as declared.
func (b BiomarkerRequirements) IsEmpty() bool {
	return b == BiomarkerRequirements{}
}

// TreatmentHistoryRequirements are the prior-therapy constraints.
type TreatmentHistoryRequirements struct {
	RequiresPriorTherapy bool     `json:"requiresPriorTherapy,omitempty" yaml:"requiresPriorTherapy,omitempty"`
	RequiresFirstLine    bool     `json:"requiresFirstLine,omitempty" yaml:"requiresFirstLine,omitempty"`
	ExcludePriorClasses  []string `json:"excludePriorClasses,omitempty" yaml:"excludePriorClasses,omitempty"`
}

// Excludes reports whether any excluded class matches one of names,
// compared case-insensitively.
func (t TreatmentHistoryRequirements) Excludes(names ...string) bool {
	for _, class := range t.ExcludePriorClasses {
		for _, name := range names {
			if strings.EqualFold(strings.TrimSpace(class), name) {
				return true
			}
		}
	}
	return false
}

// ExclusionRequirements are carried for display; they are not scored.
type ExclusionRequirements struct {
	BrainMetsExcluded       bool `json:"brainMetsExcluded,omitempty" yaml:"brainMetsExcluded,omitempty"`
	ActiveBrainMetsExcluded bool `json:"activeBrainMetsExcluded,omitempty" yaml:"activeBrainMetsExcluded,omitempty"`
}

// TrialRequirement is the structured eligibility record of one trial.
type TrialRequirement struct {
	Biomarkers       BiomarkerRequirements        `json:"biomarkers" yaml:"biomarkers"`
	AllowedStages    []Stage                      `json:"stage,omitempty" yaml:"stage,omitempty"`
	TreatmentHistory TreatmentHistoryRequirements `json:"treatmentHistory" yaml:"treatmentHistory"`
	Exclusions       ExclusionRequirements        `json:"exclusions" yaml:"exclusions"`
}

// AllowsStage reports whether s is in the allowed set.
func (r TrialRequirement) AllowsStage(s Stage) bool {
	for _, allowed := range r.AllowedStages {
		if allowed == s {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can never mutate registry data.
func (r TrialRequirement) Clone() TrialRequirement {
	c := r
	if r.AllowedStages != nil {
		c.AllowedStages = append([]Stage(nil), r.AllowedStages...)
	}
	if r.TreatmentHistory.ExcludePriorClasses != nil {
		c.TreatmentHistory.ExcludePriorClasses = append([]string(nil), r.TreatmentHistory.ExcludePriorClasses...)
	}
	return c
}
