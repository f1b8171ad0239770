package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("debug", "json", &buf)

	logger.WithField("trial_id", "bc_trial_002").Debug("evaluated")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "evaluated", entry["message"])
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "bc_trial_002", entry["trial_id"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewWithOutput_TextAndFallbackLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("loud", "text", &buf)

	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	logger.Debug("hidden")
	logger.Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}
