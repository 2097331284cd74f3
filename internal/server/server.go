// Package server exposes the pipeline and the stored papers over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/abhisek/bloomsbot/internal/config"
	"github.com/abhisek/bloomsbot/internal/metrics"
	"github.com/abhisek/bloomsbot/internal/paper"
	"github.com/abhisek/bloomsbot/internal/pipeline"
	"github.com/abhisek/bloomsbot/internal/store"
	"github.com/abhisek/bloomsbot/internal/tracing"
)

// Runner is the part of the pipeline the server drives.
type Runner interface {
	Run(ctx context.Context, in pipeline.Input) (*pipeline.Output, error)
	DefaultSpec() paper.Spec
}

// Deps are the server's collaborators. Papers, Metrics and Tracer are
// optional.
type Deps struct {
	Pipeline Runner
	Papers   store.PaperRepo
	Metrics  *metrics.Metrics
	Tracer   trace.TracerProvider
	Logger   *zap.Logger
}

type Server struct {
	cfg    config.ServerConfig
	deps   Deps
	logger *zap.Logger
	router *gin.Engine
}

// New builds the router. Mode follows cfg.Mode.
func New(cfg config.ServerConfig, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	s := &Server{cfg: cfg, deps: deps, logger: logger.Named("http")}
	r := gin.New()
	r.MaxMultipartMemory = cfg.MaxUploadMB << 20
	r.Use(recovery(s.logger), requestLogger(s.logger))
	if deps.Tracer != nil {
		r.Use(tracing.GinMiddleware(deps.Tracer))
	}
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	r.GET("/healthz", s.health)
	api := r.Group("/api")
	{
		api.POST("/generate", s.generate)
		api.GET("/papers", s.listPapers)
		api.GET("/papers/:id", s.getPaper)
	}
	r.NoRoute(func(c *gin.Context) { fail(c, http.StatusNotFound, "resource not found") })

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves on cfg.Addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.cfg.Addr))
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

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
