package logger

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
	log := NewWithOutput("debug", &buf)

	log.WithField("method", "test").Debug("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "test", entry["method"])
	assert.Equal(t, "debug", entry["level"])
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	log := New("loud")

	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}
