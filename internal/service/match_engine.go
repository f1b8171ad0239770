package service

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/trialscout-server/internal/domain"
)

const defaultEngineConcurrency = 8

// MatchEngine evaluates patients against registered trial requirements.
// It holds no mutable state; the registry is read-only after construction.
type MatchEngine struct {
	registry    domain.RequirementLookup
	biomarkers  *BiomarkerEvaluator
	treatments  *TreatmentEvaluator
	concurrency int
}

// EngineOption configures a MatchEngine.
type EngineOption func(*MatchEngine)

// WithConcurrency bounds the number of trials evaluated in parallel.
func WithConcurrency(n int) EngineOption {
	return func(e *MatchEngine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithBiomarkerWeights overrides the biomarker point values.
func WithBiomarkerWeights(w BiomarkerWeights) EngineOption {
	return func(e *MatchEngine) {
		e.biomarkers = NewBiomarkerEvaluator(w)
	}
}

// WithTreatmentPoints overrides the treatment-history bonuses.
func WithTreatmentPoints(p TreatmentPoints) EngineOption {
	return func(e *MatchEngine) {
		e.treatments = NewTreatmentEvaluator(p)
	}
}

// NewMatchEngine creates an engine over the given registry.
func NewMatchEngine(registry domain.RequirementLookup, opts ...EngineOption) *MatchEngine {
	e := &MatchEngine{
		registry:    registry,
		biomarkers:  NewBiomarkerEvaluator(DefaultBiomarkerWeights()),
		treatments:  NewTreatmentEvaluator(DefaultTreatmentPoints()),
		concurrency: defaultEngineConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegistryVersion returns the version of the backing registry.
func (e *MatchEngine) RegistryVersion() string {
	return e.registry.Version()
}

// Requirement returns the registered requirement for trialID.
func (e *MatchEngine) Requirement(trialID string) (domain.TrialRequirement, bool) {
	return e.registry.Lookup(trialID)
}

// Evaluate matches one patient against one trial. An unregistered trial is
// evaluated as having no requirements.
func (e *MatchEngine) Evaluate(patient domain.PatientProfile, trialID string) (domain.MatchResult, error) {
	p, err := prepare(patient)
	if err != nil {
		return domain.MatchResult{}, err
	}
	return e.evaluate(p, trialID), nil
}

// EvaluateRequirement matches a normalized, validated patient against an
// explicit requirement, bypassing the registry.
func (e *MatchEngine) EvaluateRequirement(patient domain.PatientProfile, trialID string, req domain.TrialRequirement) domain.MatchResult {
	bio := e.biomarkers.Evaluate(patient, req)
	stage := EvaluateStage(patient, req)
	treatment := e.treatments.Evaluate(patient, req)

	result := Aggregate(bio, stage, treatment)
	result.TrialID = trialID
	return result
}

// EvaluateAll matches one patient against every trial ID. Results are in
// input order; evaluation stops early if ctx is cancelled.
func (e *MatchEngine) EvaluateAll(ctx context.Context, patient domain.PatientProfile, trialIDs []string) ([]domain.MatchResult, error) {
	p, err := prepare(patient)
	if err != nil {
		return nil, err
	}

	results := make([]domain.MatchResult, len(trialIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, id := range trialIDs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.evaluate(p, id)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluating trials: %w", err)
	}
	return results, nil
}

func (e *MatchEngine) evaluate(p domain.PatientProfile, trialID string) domain.MatchResult {
	req, ok := e.registry.Lookup(trialID)
	result := e.EvaluateRequirement(p, trialID, req)
	result.Registered = ok
	return result
}

func prepare(patient domain.PatientProfile) (domain.PatientProfile, error) {
	p := patient.Normalize()
	if err := p.Validate(); err != nil {
		return domain.PatientProfile{}, fmt.Errorf("invalid patient profile: %w", err)
	}
	return p, nil
}

// SortResults orders results by confidence tier, then score descending,
// then trial ID.
func SortResults(results []domain.MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return lessResult(results[i], results[j])
	})
}

func lessResult(a, b domain.MatchResult) bool {
	if a.MatchConfidence.Rank() != b.MatchConfidence.Rank() {
		return a.MatchConfidence.Rank() < b.MatchConfidence.Rank()
	}
	if a.MatchScore != b.MatchScore {
		return a.MatchScore > b.MatchScore
	}
	return a.TrialID < b.TrialID
}
