package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Level = "warn"

	log, err := newLogger(cfg, &buf)
	require.NoError(t, err)
	log.Info("chunked syllabus")
	log.Warn("classification failed", zap.String("question_id", "q-1"))
	require.NoError(t, log.Sync())

	out := buf.String()
	assert.NotContains(t, out, "chunked syllabus")
	assert.Contains(t, out, "classification failed")
	assert.Contains(t, out, "q-1")
}

func TestNew_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bloomsbot.log")
	cfg := DefaultConfig()
	cfg.File = path

	log, err := newLogger(cfg, &bytes.Buffer{})
	require.NoError(t, err)
	log.Info("paper assembled", zap.Int("total_marks", 50))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "paper assembled", entry["msg"])
	assert.Equal(t, float64(50), entry["total_marks"])
}

func TestNew_BadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "loud"
	_, err := New(cfg)
	assert.Error(t, err)
}
