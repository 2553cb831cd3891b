package atrionlog

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerEmitsJSONLines(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(Config{Level: LevelInfo, Format: FormatJSON, Output: &buf})
	logger.Infof("route %s admitted", "checkout")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "route checkout admitted", decoded["message"])
	assert.Equal(t, "info", decoded["level"])
}

func TestZerologLoggerRespectsLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(Config{Level: LevelError, Format: FormatJSON, Output: &buf})
	logger.Infof("should be suppressed")
	assert.Empty(t, buf.String())

	logger.Errorf("should appear")
	assert.NotEmpty(t, buf.String())
}

func TestWithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(Config{Level: LevelInfo, Format: FormatJSON, Output: &buf})
	child := logger.With(map[string]any{"routeId": "checkout"})
	child.Infof("tick")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "checkout", decoded["routeId"])
}

func TestNoopLoggerDiscardsEverything(t *testing.T) {
	assert.NotPanics(t, func() {
		NoopLogger.Debugf("x")
		NoopLogger.Infof("x")
		NoopLogger.Warnf("x")
		NoopLogger.Errorf("x")
		child := NoopLogger.With(map[string]any{"a": 1})
		child.Infof("still noop")
	})
}
