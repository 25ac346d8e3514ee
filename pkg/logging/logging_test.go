package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New("debug", FormatText, &buf)
		require.NoError(t, err)

		logger.WithField("path", "ride.fit").Debug("read capture")

		assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
		assert.Contains(t, buf.String(), "read capture")
		assert.Contains(t, buf.String(), "path=ride.fit")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New("info", FormatJSON, &buf)
		require.NoError(t, err)

		logger.Debug("hidden")
		logger.WithField("drops", 2).Info("recovered")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "recovered", entry["msg"])
		assert.Equal(t, float64(2), entry["drops"])
	})

	t.Run("empty level is info", func(t *testing.T) {
		logger, err := New("", "", nil)
		require.NoError(t, err)
		assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := New("loud", FormatText, nil)
		assert.ErrorContains(t, err, "invalid log level")
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := New("info", "xml", nil)
		assert.ErrorContains(t, err, "invalid log format")
	})
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Error("nobody hears this")
	assert.NotNil(t, logger)
}
