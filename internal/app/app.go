// Package app builds the long-lived dependencies of a bloomsbot process
// from its configuration and tears them down again.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/abhisek/bloomsbot/internal/classify"
	"github.com/abhisek/bloomsbot/internal/config"
	"github.com/abhisek/bloomsbot/internal/generate"
	"github.com/abhisek/bloomsbot/internal/llm"
	"github.com/abhisek/bloomsbot/internal/logging"
	"github.com/abhisek/bloomsbot/internal/metrics"
	"github.com/abhisek/bloomsbot/internal/pipeline"
	"github.com/abhisek/bloomsbot/internal/store"
	"github.com/abhisek/bloomsbot/internal/tracing"
)

// Options override parts of the wiring. Zero values use the config.
type Options struct {
	// DBPath overrides store.path.
	DBPath string
	// Provider replaces the env-resolved LLM provider.
	Provider llm.Provider
	// Logger replaces the logger built from the log config.
	Logger *zap.Logger
	// NoLLM skips provider resolution for commands that only read the store.
	NoLLM bool
}

// App holds the wired components. Store, Provider, Classifier and Pipeline
// are nil when disabled by config or Options.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Store      *store.Store
	Provider   llm.Provider
	Classifier classify.Classifier
	Pipeline   *pipeline.Pipeline
	Metrics    *metrics.Metrics
	Tracer     trace.TracerProvider

	closers []func(context.Context) error
}

// New wires an App. On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, opts Options) (_ *App, err error) {
	a := &App{Config: cfg, Metrics: metrics.New()}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	a.Logger = opts.Logger
	if a.Logger == nil {
		logger, err := logging.New(cfg.Log)
		if err != nil {
			return nil, err
		}
		a.Logger = logger
		a.closers = append(a.closers, func(context.Context) error {
			_ = logger.Sync()
			return nil
		})
	}

	tp, shutdown, err := tracing.New(cfg.Tracing, a.Logger)
	if err != nil {
		return nil, err
	}
	a.Tracer = tp
	a.closers = append(a.closers, shutdown)

	if !cfg.Store.Disabled {
		if err := a.openStore(opts.DBPath); err != nil {
			return nil, err
		}
	}

	if opts.NoLLM {
		return a, nil
	}

	a.Provider = opts.Provider
	if a.Provider == nil {
		llmCfg, err := llm.Resolve()
		if err != nil {
			return nil, fmt.Errorf("LLM provider not configured: %w", err)
		}
		var events store.EventRepo
		if a.Store != nil {
			events = a.Store.EventRepo()
		}
		a.Provider, err = llm.NewProvider(ctx, llmCfg, events, a.Logger)
		if err != nil {
			return nil, err
		}
	}

	a.Classifier = a.buildClassifier(ctx)

	p, err := a.buildPipeline()
	if err != nil {
		return nil, err
	}
	a.Pipeline = p
	return a, nil
}

func (a *App) openStore(override string) error {
	path := override
	if path == "" {
		path = a.Config.Store.Path
	}
	var err error
	if path == "" {
		path, err = store.DefaultDBPath()
	} else {
		err = store.EnsureDir(path)
	}
	if err != nil {
		return fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.Store = st
	a.closers = append(a.closers, func(context.Context) error {
		a.Logger.Debug("store closed", zap.String("path", path))
		return st.Close()
	})
	a.Logger.Debug("store opened", zap.String("path", path))
	return nil
}

// buildClassifier stacks the LLM classifier, the optional heuristic
// fallback and the result cache.
func (a *App) buildClassifier(ctx context.Context) classify.Classifier {
	cc := a.Config.Classifier
	var c classify.Classifier = classify.NewLLMClassifier(a.Provider, cc.LLM)
	if cc.HeuristicFallback {
		c = classify.Chain{c, &classify.HeuristicClassifier{}}
	}
	if cc.CacheTTL <= 0 {
		return c
	}
	return classify.NewCached(c, a.buildCache(ctx), cc.CacheTTL, a.Logger)
}

// buildCache prefers Redis and falls back to process memory when Redis is
// not configured or unreachable.
func (a *App) buildCache(ctx context.Context) classify.Cache {
	rc := a.Config.Redis
	if rc.Addr == "" {
		return classify.NewMemoryCache()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		a.Logger.Warn("redis unavailable, using in-memory classification cache",
			zap.String("addr", rc.Addr), zap.Error(err))
		_ = client.Close()
		return classify.NewMemoryCache()
	}
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })
	return classify.NewRedisCache(client, rc.Prefix)
}

func (a *App) buildPipeline() (*pipeline.Pipeline, error) {
	cfg := a.Config
	spec, err := cfg.PaperSpec()
	if err != nil {
		return nil, err
	}
	marks, err := cfg.MarkScheme()
	if err != nil {
		return nil, err
	}
	deps := pipeline.Deps{
		Generator:  generate.New(a.Provider, cfg.Generation),
		Classifier: a.Classifier,
		Metrics:    a.Metrics,
		Tracer:     a.Tracer,
		Logger:     a.Logger,
	}
	if a.Store != nil {
		deps.Papers = a.Store.PaperRepo()
	}
	return pipeline.New(pipeline.Settings{
		Chunking:         cfg.Chunking,
		Rules:            cfg.Rules(),
		SyllabusKeywords: cfg.Validation.SyllabusKeywords,
		KeywordLimit:     cfg.Validation.KeywordLimit,
		Classify:         cfg.Classifier.AdapterConfig,
		Search:           cfg.Paper.Options,
		Marks:            marks,
		Spec:             spec,
		KeepPapers:       cfg.Store.KeepPapers,
	}, deps)
}

// Close releases everything in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
