// Package mcp exposes trial matching as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/trialscout-server/internal/domain"
)

const (
	serverName    = "trialscout"
	serverVersion = "v0.1.0"
)

// Tool names.
const (
	ToolMatchTrials = "match_trials"
	ToolGetTrial    = "get_trial"
	ToolListTrials  = "list_trials"
)

// Matcher is the backend the tools call.
type Matcher interface {
	Match(ctx context.Context, patient domain.PatientProfile) (*domain.MatchResponse, error)
	Trial(ctx context.Context, id string) (*domain.Trial, error)
	ListTrials(ctx context.Context, filter domain.TrialFilter) ([]domain.Trial, error)
	Requirement(id string) (domain.TrialRequirement, bool)
}

// Server wraps an MCP server with the trial matching tools registered
type Server struct {
	matcher   Matcher
	mcpServer *mcp.Server
	logger    *logrus.Logger
}

// NewServer creates the MCP server and registers its tools
func NewServer(matcher Matcher, logger *logrus.Logger) *Server {
	s := &Server{
		matcher: matcher,
		logger:  logger,
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    serverName,
			Version: serverVersion,
		}, nil),
	}
	s.registerTools()
	return s
}

// Run serves MCP over stdin/stdout until ctx is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.WithFields(logrus.Fields{
		"server":    serverName,
		"transport": "stdio",
	}).Info("Starting MCP server")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

func (s *Server) registerTools() {
	// Exposure fields accept booleans or strings, so the patient schema is
	// left open and validated by the service.
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolMatchTrials,
		Description: "Match a cancer patient's biomarker, stage and treatment-history profile " +
			"against the trial catalog. Returns ranked trials with score, confidence tier and " +
			"the reasons each trial matched, cannot match, or needs confirmation.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"patient": {
					Type:        "object",
					Description: "Patient profile: cancerType (breast|lung), stage (I-IV), biomarkerProfile, priorTreatments.",
				},
			},
			Required: []string{"patient"},
		},
	}, s.handleMatchTrials)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolGetTrial,
		Description: "Get one trial's catalog record and its eligibility requirements.",
	}, s.handleGetTrial)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolListTrials,
		Description: "List catalog trials, optionally filtered by cancer type and recruitment status.",
	}, s.handleListTrials)

	s.logger.WithField("tool_count", 3).Debug("Registered MCP tools")
}
