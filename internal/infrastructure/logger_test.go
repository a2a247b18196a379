package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespipeline/internal/config"
)

// readLogLines parses every JSON line of a log file
func readLogLines(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "log output is not valid JSON")
		entries = append(entries, entry)
	}
	return entries
}

func TestInitializeLogger(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "logs", "pipeline.log")
	cfg := config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}

	logger, err := InitializeLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Info("workbook loaded", "rows", 12)
	require.NoError(t, CloseLogFile())

	entries := readLogLines(t, logFile)
	require.Len(t, entries, 1)
	assert.Equal(t, "workbook loaded", entries[0]["msg"])
	assert.Equal(t, float64(12), entries[0]["rows"])
	assert.Equal(t, "INFO", entries[0]["level"])
}

func TestRunIDInjection(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "pipeline.log")
	logger, err := InitializeLogger(config.LoggingConfig{
		Level:    "debug",
		Output:   "file",
		FilePath: logFile,
	})
	require.NoError(t, err)

	ctx := WithRunID(context.Background(), "run-123")
	logger.InfoContext(ctx, "with run")
	logger.Info("without run")
	require.NoError(t, CloseLogFile())

	entries := readLogLines(t, logFile)
	require.Len(t, entries, 2)
	assert.Equal(t, "run-123", entries[0]["run_id"])
	_, present := entries[1]["run_id"]
	assert.False(t, present)
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level   string
		debugOn bool
		infoOn  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, false},
		{"bogus", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			lvl := parseLogLevel(tt.level)
			assert.Equal(t, tt.debugOn, lvl <= slog.LevelDebug)
			assert.Equal(t, tt.infoOn, lvl <= slog.LevelInfo)
		})
	}
}

func TestEnsureRunID(t *testing.T) {
	ctx := EnsureRunID(context.Background())
	runID := GetRunID(ctx)
	assert.NotEmpty(t, runID)

	// existing IDs are kept
	assert.Equal(t, runID, GetRunID(EnsureRunID(ctx)))
	assert.Empty(t, GetRunID(context.Background()))
}

func TestLoggerHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	WithComponent(logger, "loader").Info("component test")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "loader", entry["component"])

	buf.Reset()
	WithError(logger, os.ErrNotExist).Info("error test")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Contains(t, entry["error"], "file does not exist")

	assert.Same(t, logger, WithError(logger, nil))
}
