package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/trialscout-server/internal/domain"
	"github.com/trialscout-server/internal/middleware"
)

// RequirementResponse is the body of GET /trials/:id/requirements.
type RequirementResponse struct {
	TrialID     string                  `json:"trial_id"`
	Registered  bool                    `json:"registered"`
	Requirement domain.TrialRequirement `json:"requirement"`
}

// TrialListResponse is the body of GET /trials.
type TrialListResponse struct {
	Trials []domain.Trial `json:"trials"`
	Count  int            `json:"count"`
	Skip   int            `json:"skip"`
	Limit  int            `json:"limit"`
}

func (s *Server) handleHealth(c *gin.Context) {
	info, err := s.service.Info(c.Request.Context())
	if err != nil {
		s.logger.WithError(err).Error("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"timestamp": time.Now().UTC(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"dataset_version":  info.DatasetVersion,
		"registry_version": info.RegistryVersion,
		"total_trials":     info.TotalTrials,
		"last_updated":     info.LastUpdated,
		"cache":            info.Cache,
		"timestamp":        time.Now().UTC(),
	})
}

func (s *Server) handleMatch(c *gin.Context) {
	var profile domain.PatientProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		s.abort(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "Invalid patient profile JSON", err)
		return
	}

	resp, err := s.service.Match(c.Request.Context(), profile)
	if err != nil {
		s.abortServiceError(c, err)
		return
	}

	resp.RequestID = middleware.GetCorrelationID(c)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListTrials(c *gin.Context) {
	filter := domain.TrialFilter{
		CancerType: domain.CancerType(c.Query("cancer_type")),
		Status:     domain.TrialStatus(c.Query("status")),
	}
	if filter.CancerType != "" && !filter.CancerType.IsValid() {
		s.abort(c, http.StatusBadRequest, domain.ErrCodeValidation, "cancer_type must be breast or lung", nil)
		return
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		s.abort(c, http.StatusBadRequest, domain.ErrCodeValidation, "unknown status", nil)
		return
	}

	var err error
	if filter.Skip, err = queryInt(c, "skip"); err != nil || filter.Skip < 0 {
		s.abort(c, http.StatusBadRequest, domain.ErrCodeValidation, "skip must be a non-negative integer", err)
		return
	}
	if filter.Limit, err = queryInt(c, "limit"); err != nil || filter.Limit < 0 {
		s.abort(c, http.StatusBadRequest, domain.ErrCodeValidation, "limit must be a non-negative integer", err)
		return
	}
	filter = filter.Normalized()

	trials, err := s.service.ListTrials(c.Request.Context(), filter)
	if err != nil {
		s.abortServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, TrialListResponse{
		Trials: trials,
		Count:  len(trials),
		Skip:   filter.Skip,
		Limit:  filter.Limit,
	})
}

func (s *Server) handleGetTrial(c *gin.Context) {
	trial, err := s.service.Trial(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abortServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, trial)
}

// handleGetRequirements accepts a catalog ID or an NCT number; NCT numbers
// are resolved through the catalog first.
func (s *Server) handleGetRequirements(c *gin.Context) {
	id := c.Param("id")
	if domain.IsNCTNumber(id) {
		trial, err := s.service.Trial(c.Request.Context(), id)
		if err != nil {
			s.abortServiceError(c, err)
			return
		}
		id = trial.ID
	}
	req, ok := s.service.Requirement(id)
	c.JSON(http.StatusOK, RequirementResponse{
		TrialID:     id,
		Registered:  ok,
		Requirement: req,
	})
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// abortServiceError maps service errors onto HTTP statuses.
func (s *Server) abortServiceError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrMissingCancerType), errors.As(err, &verr):
		s.abort(c, http.StatusBadRequest, domain.ErrCodeValidation, "Invalid patient profile", err)
	case errors.Is(err, domain.ErrNotFound):
		s.abort(c, http.StatusNotFound, domain.ErrCodeNotFound, "Trial not found", nil)
	case errors.Is(err, context.DeadlineExceeded):
		middleware.TimeoutResponse(c)
	case errors.Is(err, context.Canceled):
		c.Abort()
	default:
		s.logger.WithFields(logrus.Fields{
			"correlation_id": middleware.GetCorrelationID(c),
			"path":           c.FullPath(),
		}).WithError(err).Error("Request failed")
		s.abort(c, http.StatusInternalServerError, domain.ErrCodeInternalServer, "Internal server error", nil)
	}
}

func (s *Server) abort(c *gin.Context, status int, code, message string, cause error) {
	details := ""
	if cause != nil {
		details = cause.Error()
		_ = c.Error(cause)
	}
	c.AbortWithStatusJSON(status, domain.NewAPIError(code, message, details, middleware.GetCorrelationID(c)))
}
