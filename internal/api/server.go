// Package api exposes the summary and timesheet operations over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Afrawles/autum/internal/autum"
	"github.com/Afrawles/autum/internal/config"
	"github.com/Afrawles/autum/internal/report"
)

// Service is the application behind the HTTP handlers.
type Service interface {
	Summarize(ctx context.Context, req autum.SummaryRequest) (*report.ActivitySummary, error)
	Timesheet(ctx context.Context, req autum.TimesheetRequest, progress autum.ProgressFunc) ([]report.TimesheetEntry, error)
	Readiness(ctx context.Context) autum.Readiness
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Env       string    `json:"env"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

type Server struct {
	svc     Service
	cfg     config.ServerConfig
	logger  *slog.Logger
	started time.Time
}

func NewServer(svc Service, cfg config.ServerConfig, logger *slog.Logger) *Server {
	return &Server{svc: svc, cfg: cfg, logger: logger, started: time.Now()}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(s.logger))
	r.Use(CORS(s.cfg.CORSAllowedOrigins))

	r.GET("/", s.handleRoot)
	r.GET("/health", s.handleHealth)
	r.GET("/readiness", s.handleReadiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/activity/summary", s.handleSummary)
	r.POST("/timesheet/generate", s.handleTimesheet)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
	})
	return r
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to Autum API"})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Service:   "autum",
		Env:       s.cfg.Env,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Timestamp: time.Now(),
	})
}

func (s *Server) handleReadiness(c *gin.Context) {
	readiness := s.svc.Readiness(c.Request.Context())
	status := http.StatusOK
	if !readiness.Ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, readiness)
}

func (s *Server) handleSummary(c *gin.Context) {
	var req autum.SummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body: " + err.Error()})
		return
	}

	summary, err := s.svc.Summarize(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleTimesheet(c *gin.Context) {
	var req autum.TimesheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body: " + err.Error()})
		return
	}

	entries, err := s.svc.Timesheet(c.Request.Context(), req, nil)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) fail(c *gin.Context, err error) {
	if errors.Is(err, autum.ErrInvalidRequest) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	s.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests
// for up to 30 seconds.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr, "env", s.cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutdown signal received, shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server shutdown complete")
	return nil
}
