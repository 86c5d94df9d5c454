package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/waste-classifier/internal/config"
)

func TestNewLogger(t *testing.T) {
	t.Run("creates logger with JSON format", func(t *testing.T) {
		logger, err := NewLogger(&config.LogConfig{Level: "info", Format: "json"})

		assert.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("creates logger with console format", func(t *testing.T) {
		logger, err := NewLogger(&config.LogConfig{Level: "debug", Format: "console"})

		assert.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("defaults to error level for invalid level", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := newLogger(&config.LogConfig{Level: "invalid", Format: "json"}, &buf)
		require.NoError(t, err)

		logger.Warn("suppressed")
		logger.Error("visible")
		require.NoError(t, logger.Sync())

		assert.NotContains(t, buf.String(), "suppressed")
		assert.Contains(t, buf.String(), "visible")
	})

	t.Run("debug level emits debug entries", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := newLogger(&config.LogConfig{Level: "debug", Format: "json"}, &buf)
		require.NoError(t, err)

		logger.Debug("loading model")
		require.NoError(t, logger.Sync())

		assert.Contains(t, buf.String(), `"message":"loading model"`)
		assert.Contains(t, buf.String(), `"level":"debug"`)
	})
}
