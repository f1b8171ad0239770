package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/trialscout-server/internal/domain"
)

// Validate checks a registry document against the requirement schema. All
// problems are reported together, each naming the trial and field.
func Validate(doc Document) error {
	var errs []error

	if strings.TrimSpace(doc.Version) == "" {
		errs = append(errs, domain.NewValidationError("version", "registry version is required", doc.Version))
	}

	ids := make([]string, 0, len(doc.Trials))
	for id := range doc.Trials {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		errs = append(errs, validateRequirement(id, doc.Trials[id])...)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrInvalidRegistry, errors.Join(errs...))
}

func validateRequirement(id string, req domain.TrialRequirement) []error {
	var errs []error
	field := func(name string) string { return fmt.Sprintf("trials.%s.%s", id, name) }

	if strings.TrimSpace(id) == "" {
		errs = append(errs, domain.NewValidationError("trials", "trial ID must not be empty", id))
	}

	b := req.Biomarkers
	if !b.HER2.IsValid() {
		errs = append(errs, domain.NewValidationError(field("biomarkers.HER2"), "must be positive, negative, low or any", b.HER2))
	}
	if !b.ER.IsValid() {
		errs = append(errs, domain.NewValidationError(field("biomarkers.ER"), "must be positive, negative or any", b.ER))
	}
	if !b.PR.IsValid() {
		errs = append(errs, domain.NewValidationError(field("biomarkers.PR"), "must be positive, negative or any", b.PR))
	}
	if !b.PDL1.IsValid() {
		errs = append(errs, domain.NewValidationError(field("biomarkers.PDL1"), "must be high, low or any", b.PDL1))
	}

	seen := make(map[domain.Stage]bool, len(req.AllowedStages))
	for _, s := range req.AllowedStages {
		if !s.IsValid() {
			errs = append(errs, domain.NewValidationError(field("stage"), "unknown stage label", s))
			continue
		}
		if seen[s] {
			errs = append(errs, domain.NewValidationError(field("stage"), "duplicate stage label", s))
		}
		seen[s] = true
	}

	for _, class := range req.TreatmentHistory.ExcludePriorClasses {
		if strings.TrimSpace(class) == "" {
			errs = append(errs, domain.NewValidationError(field("treatmentHistory.excludePriorClasses"), "drug class must not be empty", class))
		}
	}

	return errs
}
