package domain

import (
	"context"
	"time"
)

// RequirementLookup resolves a trial ID to its eligibility requirements.
// The boolean is false when the trial is not registered.
type RequirementLookup interface {
	Lookup(trialID string) (TrialRequirement, bool)
	Version() string
}

// TrialCatalog stores descriptive trial records.
type TrialCatalog interface {
	List(ctx context.Context, filter TrialFilter) ([]Trial, error)
	Get(ctx context.Context, id string) (*Trial, error)
	GetByNCT(ctx context.Context, nctNumber string) (*Trial, error)
	Upsert(ctx context.Context, trial *Trial) error
	Count(ctx context.Context) (int, error)
	// LatestUpdate returns the newest last_updated in the catalog, or the
	// zero time when the catalog is empty.
	LatestUpdate(ctx context.Context) (time.Time, error)
}

// ListAllTrials pages through catalog until a short page comes back and
// returns every trial matching filter. filter.Skip and filter.Limit are
// ignored.
func ListAllTrials(ctx context.Context, catalog TrialCatalog, filter TrialFilter) ([]Trial, error) {
	filter.Skip = 0
	filter.Limit = MaxTrialLimit

	all := []Trial{}
	for {
		page, err := catalog.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < filter.Limit {
			return all, nil
		}
		filter.Skip += len(page)
	}
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// MatchCache stores computed match responses by profile key.
type MatchCache interface {
	Get(ctx context.Context, key string) (*MatchResponse, bool, error)
	Set(ctx context.Context, key string, resp *MatchResponse, ttl time.Duration) error
	Stats() CacheStats
}
