package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/abhisek/bloomsbot/internal/classify"
	"github.com/abhisek/bloomsbot/internal/config"
	"github.com/abhisek/bloomsbot/internal/llm"
	"github.com/abhisek/bloomsbot/internal/store"
)

func testOptions(t *testing.T) Options {
	return Options{
		DBPath:   store.MemoryDSN,
		Provider: llm.NewMockProvider(),
		Logger:   zaptest.NewLogger(t),
	}
}

func TestNew_WiresEverything(t *testing.T) {
	a, err := New(context.Background(), config.Default(), testOptions(t))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })

	assert.NotNil(t, a.Store)
	assert.NotNil(t, a.Pipeline)
	assert.NotNil(t, a.Metrics)
	assert.NotNil(t, a.Tracer)
	_, cached := a.Classifier.(*classify.Cached)
	assert.True(t, cached, "default config caches classifications")
	assert.Equal(t, "llm", a.Classifier.Name())
	assert.Equal(t, 50, a.Pipeline.DefaultSpec().TotalMarks)
}

func TestNew_HeuristicFallbackWithoutCache(t *testing.T) {
	cfg := config.Default()
	cfg.Classifier.HeuristicFallback = true
	cfg.Classifier.CacheTTL = 0

	a, err := New(context.Background(), cfg, testOptions(t))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })

	chain, ok := a.Classifier.(classify.Chain)
	require.True(t, ok)
	assert.Len(t, chain, 2)
}

func TestNew_UnreachableRedisFallsBack(t *testing.T) {
	cfg := config.Default()
	cfg.Redis.Addr = "127.0.0.1:1"

	a, err := New(context.Background(), cfg, testOptions(t))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })
	assert.NotNil(t, a.Pipeline)
}

func TestNew_StoreDisabledAndNoLLM(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Disabled = true
	opts := testOptions(t)
	opts.NoLLM = true

	a, err := New(context.Background(), cfg, opts)
	require.NoError(t, err)
	assert.Nil(t, a.Store)
	assert.Nil(t, a.Pipeline)
	assert.Nil(t, a.Provider)
	assert.NoError(t, a.Close(context.Background()))
}

func TestNew_MissingCredentials(t *testing.T) {
	clearCredentials(t)
	opts := testOptions(t)
	opts.Provider = nil

	_, err := New(context.Background(), config.Default(), opts)
	require.ErrorContains(t, err, "LLM provider not configured")
}

func clearCredentials(t *testing.T) {
	for _, k := range []string{
		"BLOOMSBOT_LLM_PROVIDER", "BLOOMSBOT_OPENAI_API_KEY", "BLOOMSBOT_ANTHROPIC_API_KEY",
		"BLOOMSBOT_GEMINI_API_KEY", "BLOOMSBOT_OPENROUTER_API_KEY",
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "OPENROUTER_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestNew_ErrorsCloseWhatWasOpened(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	tests := []struct {
		name        string
		setup       func(t *testing.T, cfg *config.Config, opts *Options)
		wantErr     string
		storeOpened bool
	}{
		{
			name: "invalid paper target",
			setup: func(t *testing.T, cfg *config.Config, opts *Options) {
				cfg.Paper.TotalMarks = 0
			},
			wantErr:     "total_marks",
			storeOpened: true,
		},
		{
			name: "missing credentials",
			setup: func(t *testing.T, cfg *config.Config, opts *Options) {
				clearCredentials(t)
				opts.Provider = nil
			},
			wantErr:     "LLM provider not configured",
			storeOpened: true,
		},
		{
			name: "store cannot be opened",
			setup: func(t *testing.T, cfg *config.Config, opts *Options) {
				opts.DBPath = filepath.Join(blocker, "bloomsbot.db")
			},
			wantErr: "resolve DB path",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			cfg := config.Default()
			opts := testOptions(t)
			opts.Logger = zap.New(core)
			tt.setup(t, cfg, &opts)

			var (
				a   *App
				err error
			)
			require.NotPanics(t, func() { a, err = New(context.Background(), cfg, opts) })
			require.ErrorContains(t, err, tt.wantErr)
			assert.Nil(t, a)

			opened := logs.FilterMessage("store opened").Len()
			closed := logs.FilterMessage("store closed").Len()
			if tt.storeOpened {
				assert.Equal(t, 1, opened)
				assert.Equal(t, 1, closed, "an opened store is closed on failure")
			} else {
				assert.Zero(t, opened)
				assert.Zero(t, closed)
			}
		})
	}
}
