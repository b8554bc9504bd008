package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel(" error "))
	assert.Equal(t, LevelInfo, ParseLevel(""))
	assert.Equal(t, LevelInfo, ParseLevel("loud"))
}

func TestLoggerText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("test", LevelInfo)
	logger.SetOutput(&buf)

	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger.WithFields(map[string]interface{}{"year": 2024, "day": 40}).
		WithError(errors.New("boom")).
		Warn("Saved photo")

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, "[WARN]")
	assert.Contains(t, line, "Saved photo")
	assert.True(t, strings.HasSuffix(line, "day=40 error=boom year=2024"), line)
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("threesixtyfive", LevelDebug)
	logger.SetOutput(&buf)
	logger.SetJSON(true)

	logger.WithField("remote_id", "r101").Infof("saved %d photos", 3)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "threesixtyfive", entry["service"])
	assert.Equal(t, "saved 3 photos", entry["msg"])
	assert.Equal(t, "r101", entry["remote_id"])
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger("test", LevelInfo)
	parent.SetOutput(&buf)

	_ = parent.WithField("child", true)
	parent.Info("plain")

	assert.NotContains(t, buf.String(), "child=")
}
