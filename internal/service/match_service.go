package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/trialscout-server/internal/cache"
	"github.com/trialscout-server/internal/domain"
)

// MatchServiceConfig tunes the match service.
type MatchServiceConfig struct {
	DatasetVersion string
	ResultTTL      time.Duration
}

// ServiceInfo describes the data the service is matching against.
type ServiceInfo struct {
	RegistryVersion string            `json:"registry_version"`
	DatasetVersion  string            `json:"dataset_version"`
	TotalTrials     int               `json:"total_trials"`
	LastUpdated     string            `json:"last_updated"`
	Cache           domain.CacheStats `json:"cache"`
}

// catalogPinger is implemented by catalogs backed by a live connection.
type catalogPinger interface {
	Ping(ctx context.Context) error
}

// MatchService matches patient profiles against the trial catalog.
type MatchService struct {
	engine  *MatchEngine
	catalog domain.TrialCatalog
	cache   domain.MatchCache
	config  MatchServiceConfig
	logger  *logrus.Logger
	now     func() time.Time
}

// NewMatchService creates a match service. cache may be nil.
func NewMatchService(
	engine *MatchEngine,
	catalog domain.TrialCatalog,
	matchCache domain.MatchCache,
	config MatchServiceConfig,
	logger *logrus.Logger,
) *MatchService {
	return &MatchService{
		engine:  engine,
		catalog: catalog,
		cache:   matchCache,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// Match evaluates the patient against every catalog trial of the same
// cancer type and returns the ranked results.
func (s *MatchService) Match(ctx context.Context, patient domain.PatientProfile) (*domain.MatchResponse, error) {
	startTime := s.now()

	p := patient.Normalize()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid patient profile: %w", err)
	}

	requestID := uuid.New().String()
	logger := s.logger.WithFields(logrus.Fields(p.LogFields())).WithField("request_id", requestID)

	key, err := cache.Key(p, s.engine.RegistryVersion(), s.config.DatasetVersion)
	if err != nil {
		return nil, err
	}

	if resp := s.cached(ctx, key, logger); resp != nil {
		resp.RequestID = requestID
		resp.Cached = true
		logger.WithField("matches", len(resp.Matches)).Debug("Served match from cache")
		return resp, nil
	}

	trials, err := domain.ListAllTrials(ctx, s.catalog, domain.TrialFilter{CancerType: p.CancerType})
	if err != nil {
		return nil, fmt.Errorf("listing candidate trials: %w", err)
	}

	ids := make([]string, len(trials))
	for i, t := range trials {
		ids[i] = t.ID
	}

	results, err := s.engine.EvaluateAll(ctx, p, ids)
	if err != nil {
		return nil, err
	}

	resp := &domain.MatchResponse{
		Matches:              make([]domain.RankedMatch, len(trials)),
		TotalTrialsEvaluated: len(trials),
		DatasetVersion:       s.config.DatasetVersion,
		RegistryVersion:      s.engine.RegistryVersion(),
		GeneratedAt:          s.now().UTC(),
	}
	for i, t := range trials {
		r := results[i]
		trialLog := logger.WithFields(logrus.Fields(r.EligibilityVerdict.LogFields(r.MatchConfidence))).
			WithFields(logrus.Fields{"trial_id": t.ID, "score": r.MatchScore})
		if !r.Registered {
			trialLog.Debug("Trial has no registered requirements, evaluated as unconstrained")
		} else {
			trialLog.Debug("Evaluated trial")
		}
		if r.EligibilityVerdict == domain.VerdictPossiblyEligible {
			resp.PossiblyEligibleCount++
		} else {
			resp.LikelyNotEligibleCount++
		}
		resp.Matches[i] = domain.RankedMatch{Trial: t, Result: r}
	}
	RankMatches(resp.Matches)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp, s.config.ResultTTL); err != nil {
			logger.WithError(err).Warn("Failed to cache match response")
		}
	}

	out := *resp
	out.RequestID = requestID

	logger.WithFields(logrus.Fields{
		"trials_evaluated":  resp.TotalTrialsEvaluated,
		"possibly_eligible": resp.PossiblyEligibleCount,
		"duration_ms":       s.now().Sub(startTime).Milliseconds(),
	}).Info("Matched patient against trial catalog")

	return &out, nil
}

func (s *MatchService) cached(ctx context.Context, key string, logger *logrus.Entry) *domain.MatchResponse {
	if s.cache == nil {
		return nil
	}
	resp, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.WithError(err).Warn("Match cache lookup failed, evaluating directly")
		return nil
	}
	if !ok {
		return nil
	}
	out := *resp
	return &out
}

// RankMatches orders possibly eligible trials first, then by confidence
// tier, score descending and trial ID.
func RankMatches(matches []domain.RankedMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i].Result, matches[j].Result
		aEligible := a.EligibilityVerdict == domain.VerdictPossiblyEligible
		bEligible := b.EligibilityVerdict == domain.VerdictPossiblyEligible
		if aEligible != bEligible {
			return aEligible
		}
		return lessResult(a, b)
	})
}

// Trial returns one catalog trial. ref is either a catalog ID or an NCT
// number.
func (s *MatchService) Trial(ctx context.Context, ref string) (*domain.Trial, error) {
	if domain.IsNCTNumber(ref) {
		return s.catalog.GetByNCT(ctx, ref)
	}
	return s.catalog.Get(ctx, ref)
}

// ListTrials returns catalog trials matching filter.
func (s *MatchService) ListTrials(ctx context.Context, filter domain.TrialFilter) ([]domain.Trial, error) {
	return s.catalog.List(ctx, filter)
}

// Requirement returns the registry entry for id. Unregistered trials get
// the empty requirement and false.
func (s *MatchService) Requirement(id string) (domain.TrialRequirement, bool) {
	return s.engine.Requirement(id)
}

// Info reports registry and catalog versions and sizes. LastUpdated is the
// newest trial's last_updated date, or "N/A" for an empty catalog.
func (s *MatchService) Info(ctx context.Context) (*ServiceInfo, error) {
	if p, ok := s.catalog.(catalogPinger); ok {
		if err := p.Ping(ctx); err != nil {
			return nil, fmt.Errorf("catalog unreachable: %w", err)
		}
	}

	count, err := s.catalog.Count(ctx)
	if err != nil {
		return nil, err
	}
	latest, err := s.catalog.LatestUpdate(ctx)
	if err != nil {
		return nil, err
	}

	info := &ServiceInfo{
		RegistryVersion: s.engine.RegistryVersion(),
		DatasetVersion:  s.config.DatasetVersion,
		TotalTrials:     count,
		LastUpdated:     "N/A",
	}
	if !latest.IsZero() {
		info.LastUpdated = latest.UTC().Format(time.DateOnly)
	}
	if s.cache != nil {
		info.Cache = s.cache.Stats()
	}
	return info, nil
}
