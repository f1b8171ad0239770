package domain

import (
	"fmt"
)

// EGFRStatus carries the EGFR state and its subtype.
type EGFRStatus struct {
	State   TriState    `json:"state"`
	Subtype EGFRSubtype `json:"subtype"`
}

// GeneticMarkers are the driver alterations and fusions (lung).
type GeneticMarkers struct {
	EGFR     EGFRStatus `json:"EGFR"`
	ALK      TriState   `json:"ALK"`
	ROS1     TriState   `json:"ROS1"`
	BRAF     TriState   `json:"BRAF"`
	KRASG12C TriState   `json:"KRAS_G12C"`
	MET      TriState   `json:"MET"`
	RET      TriState   `json:"RET"`
	NTRK     TriState   `json:"NTRK"`
}

// ExpressionMarkers are the scored expression levels.
type ExpressionMarkers struct {
	PDL1 PDL1Level `json:"PDL1"`
	HER2 HER2Level `json:"HER2"`
}

// HormoneReceptors are the breast-specific markers.
type HormoneReceptors struct {
	ER     TriState `json:"ER"`
	PR     TriState `json:"PR"`
	BRCA12 TriState `json:"BRCA1_2"`
	PIK3CA TriState `json:"PIK3CA"`
	ESR1   TriState `json:"ESR1"`
}

// BiomarkerProfile is the patient's complete biomarker record.
type BiomarkerProfile struct {
	Genetic          GeneticMarkers    `json:"genetic"`
	Expression       ExpressionMarkers `json:"expression"`
	HormoneReceptors HormoneReceptors  `json:"hormoneReceptors"`
}

// BreastTreatments records prior breast cancer therapy exposure.
type BreastTreatments struct {
	EndocrineTherapy      Exposure `json:"endocrineTherapy"`
	CDK46Inhibitors       Exposure `json:"cdk46Inhibitors"`
	AntiHER2              Exposure `json:"antiHer2"`
	ADCs                  Exposure `json:"adcs"`
	TrastuzumabDeruxtecan Exposure `json:"trastuzumabDeruxtecan"`
}

// LungTreatments records prior lung cancer therapy exposure.
type LungTreatments struct {
	Immunotherapy   Exposure `json:"immunotherapy"`
	TargetedTherapy Exposure `json:"targetedTherapy"`
	PlatinumChemo   Exposure `json:"platinumChemo"`
}

// PriorTreatments groups exposure records by cancer type.
type PriorTreatments struct {
	Breast BreastTreatments `json:"breast"`
	Lung   LungTreatments   `json:"lung"`
}

// PatientProfile is the clinical profile submitted for matching.
type PatientProfile struct {
	CancerType      CancerType       `json:"cancerType"`
	Stage           Stage            `json:"stage,omitempty"`
	Biomarkers      BiomarkerProfile `json:"biomarkerProfile"`
	LineOfTherapy   LineOfTherapy    `json:"lineOfTherapy"`
	PriorTreatments PriorTreatments  `json:"priorTreatments"`
	ECOGStatus      *int             `json:"ecogStatus,omitempty"`
	BrainMetastases TriState         `json:"brainMetastases"`
	ZipCode         string           `json:"zipCode,omitempty"`
}

// Normalize returns a copy of p with every unset optional field replaced by
// its unknown, unsure or none variant.
func (p PatientProfile) Normalize() PatientProfile {
	n := p

	g := &n.Biomarkers.Genetic
	g.EGFR.State = g.EGFR.State.OrUnknown()
	if g.EGFR.Subtype == "" {
		g.EGFR.Subtype = EGFRUnknown
	}
	g.ALK = g.ALK.OrUnknown()
	g.ROS1 = g.ROS1.OrUnknown()
	g.BRAF = g.BRAF.OrUnknown()
	g.KRASG12C = g.KRASG12C.OrUnknown()
	g.MET = g.MET.OrUnknown()
	g.RET = g.RET.OrUnknown()
	g.NTRK = g.NTRK.OrUnknown()

	if n.Biomarkers.Expression.PDL1 == "" {
		n.Biomarkers.Expression.PDL1 = PDL1Unknown
	}
	if n.Biomarkers.Expression.HER2 == "" {
		n.Biomarkers.Expression.HER2 = HER2Unknown
	}

	h := &n.Biomarkers.HormoneReceptors
	h.ER = h.ER.OrUnknown()
	h.PR = h.PR.OrUnknown()
	h.BRCA12 = h.BRCA12.OrUnknown()
	h.PIK3CA = h.PIK3CA.OrUnknown()
	h.ESR1 = h.ESR1.OrUnknown()

	b := &n.PriorTreatments.Breast
	b.EndocrineTherapy = b.EndocrineTherapy.OrUnsure()
	b.CDK46Inhibitors = b.CDK46Inhibitors.OrUnsure()
	b.AntiHER2 = b.AntiHER2.OrUnsure()
	b.ADCs = b.ADCs.OrUnsure()
	b.TrastuzumabDeruxtecan = b.TrastuzumabDeruxtecan.OrUnsure()

	l := &n.PriorTreatments.Lung
	l.Immunotherapy = l.Immunotherapy.OrUnsure()
	l.TargetedTherapy = l.TargetedTherapy.OrUnsure()
	l.PlatinumChemo = l.PlatinumChemo.OrUnsure()

	if n.LineOfTherapy == "" {
		n.LineOfTherapy = LineNone
	}
	n.BrainMetastases = n.BrainMetastases.OrUnknown()

	if n.ECOGStatus != nil {
		v := *n.ECOGStatus
		n.ECOGStatus = &v
	}
	return n
}

// Validate checks that the profile can be evaluated. It expects a normalized
// profile; a missing cancer type returns ErrMissingCancerType.
func (p PatientProfile) Validate() error {
	if p.CancerType == "" {
		return ErrMissingCancerType
	}
	if !p.CancerType.IsValid() {
		return NewValidationError("cancerType", "must be breast or lung", p.CancerType)
	}
	if p.Stage != "" && !p.Stage.IsValid() {
		return NewValidationError("stage", "must be I, II, III or IV", p.Stage)
	}
	if !p.LineOfTherapy.IsValid() {
		return NewValidationError("lineOfTherapy", "unsupported line of therapy", p.LineOfTherapy)
	}
	if p.ECOGStatus != nil && (*p.ECOGStatus < 0 || *p.ECOGStatus > 4) {
		return NewValidationError("ecogStatus", "must be between 0 and 4", *p.ECOGStatus)
	}
	if !p.Biomarkers.Expression.HER2.IsValid() {
		return NewValidationError("biomarkerProfile.expression.HER2", "must be 0, low, positive or unknown", p.Biomarkers.Expression.HER2)
	}
	if !p.Biomarkers.Expression.PDL1.IsValid() {
		return NewValidationError("biomarkerProfile.expression.PDL1", "must be low, high or unknown", p.Biomarkers.Expression.PDL1)
	}
	if !p.Biomarkers.Genetic.EGFR.Subtype.IsValid() {
		return NewValidationError("biomarkerProfile.genetic.EGFR.subtype", "unsupported EGFR subtype", p.Biomarkers.Genetic.EGFR.Subtype)
	}
	if !p.BrainMetastases.IsValid() {
		return NewValidationError("brainMetastases", "must be present, absent or unknown", p.BrainMetastases)
	}

	for _, f := range p.triStates() {
		if !f.state.IsValid() {
			return NewValidationError(f.field, "must be present, absent or unknown", f.state)
		}
	}
	return nil
}

type triStateField struct {
	field string
	state TriState
}

func (p PatientProfile) triStates() []triStateField {
	g := p.Biomarkers.Genetic
	h := p.Biomarkers.HormoneReceptors
	return []triStateField{
		{"biomarkerProfile.genetic.EGFR.state", g.EGFR.State},
		{"biomarkerProfile.genetic.ALK", g.ALK},
		{"biomarkerProfile.genetic.ROS1", g.ROS1},
		{"biomarkerProfile.genetic.BRAF", g.BRAF},
		{"biomarkerProfile.genetic.KRAS_G12C", g.KRASG12C},
		{"biomarkerProfile.genetic.MET", g.MET},
		{"biomarkerProfile.genetic.RET", g.RET},
		{"biomarkerProfile.genetic.NTRK", g.NTRK},
		{"biomarkerProfile.hormoneReceptors.ER", h.ER},
		{"biomarkerProfile.hormoneReceptors.PR", h.PR},
		{"biomarkerProfile.hormoneReceptors.BRCA1_2", h.BRCA12},
		{"biomarkerProfile.hormoneReceptors.PIK3CA", h.PIK3CA},
		{"biomarkerProfile.hormoneReceptors.ESR1", h.ESR1},
	}
}

// LogFields returns fields that identify the profile shape without
// reproducing clinical values in logs.
func (p PatientProfile) LogFields() map[string]any {
	return map[string]any{
		"cancer_type":     string(p.CancerType),
		"stage":           string(p.Stage),
		"line_of_therapy": string(p.LineOfTherapy),
	}
}

// String implements fmt.Stringer.
func (p PatientProfile) String() string {
	return fmt.Sprintf("PatientProfile{cancerType=%s stage=%s}", p.CancerType, p.Stage)
}
