package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/trialscout-server/internal/domain"
)

// MatchTrialsParams defines parameters for the match_trials tool
type MatchTrialsParams struct {
	Patient json.RawMessage `json:"patient"`
}

// GetTrialParams defines parameters for the get_trial tool
type GetTrialParams struct {
	TrialID string `json:"trial_id" jsonschema:"catalog trial ID or NCT number, e.g. bc_trial_002 or NCT05234567"`
}

// GetTrialResult is the get_trial payload
type GetTrialResult struct {
	Trial       *domain.Trial           `json:"trial"`
	Registered  bool                    `json:"registered"`
	Requirement domain.TrialRequirement `json:"requirement"`
}

// ListTrialsParams defines parameters for the list_trials tool
type ListTrialsParams struct {
	CancerType string `json:"cancer_type,omitempty" jsonschema:"breast or lung"`
	Status     string `json:"status,omitempty" jsonschema:"recruiting, active_not_recruiting or completed"`
	Skip       int    `json:"skip,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

func (s *Server) handleMatchTrials(ctx context.Context, req *mcp.CallToolRequest, params MatchTrialsParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolMatchTrials).Info("Tool invoked")

	if len(params.Patient) == 0 {
		return s.createErrorResult("Missing required parameter", errors.New("patient is required")), nil, nil
	}

	var profile domain.PatientProfile
	if err := json.Unmarshal(params.Patient, &profile); err != nil {
		return s.createErrorResult("Invalid patient profile", err), nil, nil
	}

	resp, err := s.matcher.Match(ctx, profile)
	if err != nil {
		return s.toolError(ToolMatchTrials, err), nil, nil
	}

	return s.jsonResult(resp)
}

func (s *Server) handleGetTrial(ctx context.Context, req *mcp.CallToolRequest, params GetTrialParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithFields(logrus.Fields{
		"tool":     ToolGetTrial,
		"trial_id": params.TrialID,
	}).Info("Tool invoked")

	if params.TrialID == "" {
		return s.createErrorResult("Missing required parameter", errors.New("trial_id is required")), nil, nil
	}

	trial, err := s.matcher.Trial(ctx, params.TrialID)
	if err != nil {
		return s.toolError(ToolGetTrial, err), nil, nil
	}

	requirement, registered := s.matcher.Requirement(trial.ID)
	return s.jsonResult(GetTrialResult{
		Trial:       trial,
		Registered:  registered,
		Requirement: requirement,
	})
}

func (s *Server) handleListTrials(ctx context.Context, req *mcp.CallToolRequest, params ListTrialsParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolListTrials).Info("Tool invoked")

	filter := domain.TrialFilter{
		CancerType: domain.CancerType(params.CancerType),
		Status:     domain.TrialStatus(params.Status),
		Skip:       params.Skip,
		Limit:      params.Limit,
	}
	if filter.CancerType != "" && !filter.CancerType.IsValid() {
		return s.createErrorResult("Invalid parameter", fmt.Errorf("unknown cancer_type %q", params.CancerType)), nil, nil
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return s.createErrorResult("Invalid parameter", fmt.Errorf("unknown status %q", params.Status)), nil, nil
	}

	trials, err := s.matcher.ListTrials(ctx, filter.Normalized())
	if err != nil {
		return s.toolError(ToolListTrials, err), nil, nil
	}
	return s.jsonResult(trials)
}

// toolError turns a service error into an error result. Internal failures
// are logged and reported without detail.
func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrMissingCancerType), errors.As(err, &verr):
		return s.createErrorResult("Invalid patient profile", err)
	case errors.Is(err, domain.ErrNotFound):
		return s.createErrorResult("Trial not found", err)
	default:
		s.logger.WithField("tool", tool).WithError(err).Error("Tool failed")
		return s.createErrorResult("Internal error", errors.New("the request could not be completed"))
	}
}

func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%s: %v", message, err)},
		},
	}
}

func (s *Server) jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encoding tool result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}
