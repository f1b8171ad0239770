package domain

import (
	"fmt"
	"strings"
	"time"
)

// TrialStatus is the recruitment status of a trial.
type TrialStatus string

const (
	StatusRecruiting          TrialStatus = "recruiting"
	StatusActiveNotRecruiting TrialStatus = "active_not_recruiting"
	StatusCompleted           TrialStatus = "completed"
)

// IsValid reports whether s is a known status.
func (s TrialStatus) IsValid() bool {
	switch s {
	case StatusRecruiting, StatusActiveNotRecruiting, StatusCompleted:
		return true
	default:
		return false
	}
}

// Trial is the descriptive catalog record of a clinical trial. Eligibility
// requirements live in the requirement registry under the same ID.
type Trial struct {
	ID          string      `json:"id"`
	NCTNumber   string      `json:"nct_number"`
	Title       string      `json:"title"`
	Phase       string      `json:"phase"`
	Sponsor     string      `json:"sponsor"`
	Status      TrialStatus `json:"status"`
	Location    string      `json:"location"`
	Distance    int         `json:"distance"`
	CancerType  CancerType  `json:"cancer_type"`
	Summary     string      `json:"summary"`
	LastUpdated time.Time   `json:"last_updated"`

	EligibilityCriteria []EligibilityCriterion `json:"eligibility_criteria"`
	MetadataFields      []MetadataField        `json:"metadata_fields"`
}

// EligibilityCriterion is one human-readable inclusion or exclusion line
// shown on a trial's detail page. Category is free text such as biomarker,
// stage, ecog or treatment_history.
type EligibilityCriterion struct {
	Criterion string `json:"criterion"`
	Category  string `json:"category"`
	Required  bool   `json:"required"`
}

// MetadataField is a dotted key/value pair attached to a trial, for example
// burden.visitsPerMonth.
type MetadataField struct {
	FieldName  string `json:"field_name"`
	FieldValue string `json:"field_value"`
}

// Metadata returns the value stored under name, if any.
func (t *Trial) Metadata(name string) (string, bool) {
	for _, f := range t.MetadataFields {
		if f.FieldName == name {
			return f.FieldValue, true
		}
	}
	return "", false
}

// IsNCTNumber reports whether ref looks like a ClinicalTrials.gov
// identifier rather than a catalog ID.
func IsNCTNumber(ref string) bool {
	return len(ref) > 3 && strings.EqualFold(ref[:3], "NCT")
}

// Validate checks the fields every catalog entry needs.
func (t *Trial) Validate() error {
	if t.ID == "" {
		return NewValidationError("id", "trial ID is required", t.ID)
	}
	for i, c := range t.EligibilityCriteria {
		if strings.TrimSpace(c.Criterion) == "" {
			return NewValidationError(fmt.Sprintf("eligibility_criteria[%d].criterion", i), "criterion text is required", c.Criterion)
		}
	}
	for i, f := range t.MetadataFields {
		if f.FieldName == "" {
			return NewValidationError(fmt.Sprintf("metadata_fields[%d].field_name", i), "field name is required", f.FieldName)
		}
	}
	if t.Title == "" {
		return NewValidationError("title", "title is required", t.Title)
	}
	if !t.CancerType.IsValid() {
		return NewValidationError("cancer_type", "must be breast or lung", t.CancerType)
	}
	if !t.Status.IsValid() {
		return NewValidationError("status", "unknown trial status", t.Status)
	}
	return nil
}

const (
	DefaultTrialLimit = 100
	MaxTrialLimit     = 1000
)

// TrialFilter narrows a catalog listing.
type TrialFilter struct {
	CancerType CancerType
	Status     TrialStatus
	Skip       int
	Limit      int
}

// Normalized returns f with paging bounds applied.
func (f TrialFilter) Normalized() TrialFilter {
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Limit <= 0 {
		f.Limit = DefaultTrialLimit
	}
	if f.Limit > MaxTrialLimit {
		f.Limit = MaxTrialLimit
	}
	return f
}
