package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const maxRegistryBytes = 4 << 20

// RemoteConfig configures a RemoteSource.
type RemoteConfig struct {
	URL        string
	Timeout    time.Duration
	RateLimit  int // requests per second
	RetryCount int
	HTTPClient *http.Client
}

// RemoteSource fetches a registry document over HTTP.
type RemoteSource struct {
	url       string
	client    *http.Client
	rateLimit *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	retries   int
	logger    *logrus.Logger
}

// errRetryable marks failures worth another attempt.
var errRetryable = errors.New("retryable registry fetch failure")

// NewRemoteSource creates a remote registry source.
func NewRemoteSource(config RemoteConfig, logger *logrus.Logger) *RemoteSource {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 1
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "RequirementRegistry",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &RemoteSource{
		url:       config.URL,
		client:    client,
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		breaker:   breaker,
		retries:   config.RetryCount,
		logger:    logger,
	}
}

// Fetch downloads, parses and validates the registry.
func (s *RemoteSource) Fetch(ctx context.Context) (*Registry, error) {
	var lastErr error

	for attempt := 0; attempt <= s.retries; attempt++ {
		if err := s.rateLimit.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}

		result, err := s.breaker.Execute(func() (interface{}, error) {
			return s.fetchOnce(ctx)
		})
		if err == nil {
			doc := result.(Document)
			return New(doc, "remote:"+s.url)
		}

		lastErr = err
		s.logger.WithFields(logrus.Fields{
			"url":     s.url,
			"attempt": attempt + 1,
			"error":   err,
		}).Warn("Registry fetch failed")

		if !errors.Is(err, errRetryable) {
			break
		}
	}

	return nil, fmt.Errorf("fetching registry from %s: %w", s.url, lastErr)
}

func (s *RemoteSource) fetchOnce(ctx context.Context) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return Document{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Document{}, ctx.Err()
		}
		return Document{}, fmt.Errorf("%w: %v", errRetryable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Document{}, fmt.Errorf("%w: status %d", errRetryable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRegistryBytes))
	if err != nil {
		return Document{}, fmt.Errorf("%w: reading body: %v", errRetryable, err)
	}

	format := FormatYAML
	if strings.Contains(resp.Header.Get("Content-Type"), "json") {
		format = FormatJSON
	}
	return Parse(body, format)
}
