package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type sliceCatalog struct {
	trials  []Trial
	filters []TrialFilter
	failAt  int
}

func (c *sliceCatalog) List(_ context.Context, filter TrialFilter) ([]Trial, error) {
	c.filters = append(c.filters, filter)
	if c.failAt > 0 && len(c.filters) == c.failAt {
		return nil, errors.New("connection reset")
	}
	if filter.Skip >= len(c.trials) {
		return nil, nil
	}
	end := min(filter.Skip+filter.Limit, len(c.trials))
	return c.trials[filter.Skip:end], nil
}

func (c *sliceCatalog) Get(context.Context, string) (*Trial, error)      { return nil, ErrNotFound }
func (c *sliceCatalog) GetByNCT(context.Context, string) (*Trial, error) { return nil, ErrNotFound }
func (c *sliceCatalog) Upsert(context.Context, *Trial) error             { return nil }
func (c *sliceCatalog) Count(context.Context) (int, error)               { return len(c.trials), nil }
func (c *sliceCatalog) LatestUpdate(context.Context) (time.Time, error)  { return time.Time{}, nil }

func trialsN(n int) []Trial {
	out := make([]Trial, n)
	for i := range out {
		out[i] = Trial{ID: fmt.Sprintf("trial_%05d", i)}
	}
	return out
}

func TestListAllTrials(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		wantCalls int
	}{
		{"empty catalog", 0, 1},
		{"single short page", 14, 1},
		{"exact page multiple", 2 * MaxTrialLimit, 3},
		{"partial last page", 2*MaxTrialLimit + 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &sliceCatalog{trials: trialsN(tt.total)}
			got, err := ListAllTrials(context.Background(), c, TrialFilter{CancerType: CancerLung, Skip: 7, Limit: 3})
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(got) != tt.total {
				t.Errorf("Expected %d trials, got %d", tt.total, len(got))
			}
			if got == nil {
				t.Error("Expected a non-nil slice")
			}
			if len(c.filters) != tt.wantCalls {
				t.Errorf("Expected %d List calls, got %d", tt.wantCalls, len(c.filters))
			}
			for i, f := range c.filters {
				if f.CancerType != CancerLung || f.Limit != MaxTrialLimit || f.Skip != i*MaxTrialLimit {
					t.Errorf("Unexpected filter on call %d: %+v", i, f)
				}
			}
		})
	}
}

func TestListAllTrialsError(t *testing.T) {
	c := &sliceCatalog{trials: trialsN(MaxTrialLimit + 5), failAt: 2}
	if _, err := ListAllTrials(context.Background(), c, TrialFilter{}); err == nil {
		t.Fatal("Expected error from second page")
	}
}
