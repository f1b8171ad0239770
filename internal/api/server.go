package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/trialscout-server/internal/domain"
	"github.com/trialscout-server/internal/middleware"
	"github.com/trialscout-server/internal/service"
)

const shutdownTimeout = 30 * time.Second

// MatchService is the backend the HTTP handlers call.
type MatchService interface {
	Match(ctx context.Context, patient domain.PatientProfile) (*domain.MatchResponse, error)
	Trial(ctx context.Context, id string) (*domain.Trial, error)
	ListTrials(ctx context.Context, filter domain.TrialFilter) ([]domain.Trial, error)
	Requirement(id string) (domain.TrialRequirement, bool)
	Info(ctx context.Context) (*service.ServiceInfo, error)
}

// Server represents the HTTP server
type Server struct {
	config  *domain.Config
	service MatchService
	logger  *logrus.Logger
	router  *gin.Engine
	server  *http.Server
	stream  *streamHandler
}

// NewServer creates a new HTTP server instance
func NewServer(config *domain.Config, svc MatchService, logger *logrus.Logger) *Server {
	if config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(config.CORS.AllowedOrigins))
	if config.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(config.RateLimit.RequestsPerHour, config.RateLimit.Burst)
		router.Use(limiter.Middleware())
	}

	s := &Server{
		config:  config,
		service: svc,
		logger:  logger,
		router:  router,
		stream:  newStreamHandler(svc, config.CORS.AllowedOrigins, logger),
	}
	s.setupRoutes()

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serving HTTP: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	s.stream.closeAll()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	timeout := middleware.RequestTimeout(s.config.Server.RequestTimeout)

	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/health", s.handleHealth)
		v1.POST("/match", timeout, s.handleMatch)
		v1.GET("/trials", timeout, s.handleListTrials)
		v1.GET("/trials/:id", timeout, s.handleGetTrial)
		v1.GET("/trials/:id/requirements", s.handleGetRequirements)
		v1.GET("/match/stream", s.stream.handle)
	}
}
