package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutputProduction(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(&buf, false)

	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())

	logger.WithFields(logrus.Fields{"count": 3}).Info("blobs counted")
	logger.Debug("hidden")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "blobs counted", entry["msg"])
	assert.Equal(t, float64(3), entry["count"])
}

func TestNewWithOutputDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(&buf, true)

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.Contains(t, buf.String(), "Debug logging enabled")
}
