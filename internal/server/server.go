// Package server exposes the recommendation pipeline over HTTP.
//
// Routes:
//
//	GET  /health
//	GET  /metrics
//	POST /v1/recommendations
//	POST /v1/businesses/:id/recommendations
//	GET  /v1/businesses/:id/insights
//	GET  /v1/businesses/:id/competitors/:name/history
//	POST /v1/diagnostics
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Veraticus/rivalwatch/internal/common"
	"github.com/Veraticus/rivalwatch/internal/engine"
	"github.com/Veraticus/rivalwatch/internal/model"
	"github.com/Veraticus/rivalwatch/internal/pipeline"
)

const shutdownTimeout = 10 * time.Second

// Recommender is the part of the pipeline the API serves.
type Recommender interface {
	HandleRequest(ctx context.Context, req pipeline.Request) (model.Recommendation, error)
	HandleBusinessSnapshot(ctx context.Context, businessID, userID string, disableMemory bool) (model.Recommendation, error)
	BusinessInsights(ctx context.Context, businessID string) (pipeline.Insights, error)
	CompetitorHistory(ctx context.Context, businessID, competitor string) (pipeline.History, error)
	RuleDiagnostics(ctx model.ExtractedContext) engine.Diagnostics
}

// Server is the HTTP API.
type Server struct {
	svc      Recommender
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	router   *gin.Engine
}

// New builds the router. A nil gatherer disables /metrics.
func New(svc Recommender, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	s := &Server{
		svc:      svc,
		gatherer: gatherer,
		logger:   common.LoggerOrDefault(logger),
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/health", healthCheck)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/v1")
	v1.POST("/recommendations", s.handleRecommendation)
	v1.POST("/businesses/:id/recommendations", s.handleSnapshotRecommendation)
	v1.GET("/businesses/:id/insights", s.handleInsights)
	v1.GET("/businesses/:id/competitors/:name/history", s.handleHistory)
	v1.POST("/diagnostics", s.handleDiagnostics)

	s.router = router
	return s
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
