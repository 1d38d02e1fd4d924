package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("console only", func(t *testing.T) {
		logger, err := New(Config{Level: "info", Console: true})
		require.NoError(t, err)
		assert.Nil(t, logger.file)
		assert.Nil(t, logger.Redactor())
		assert.NoError(t, logger.Close())
	})

	t.Run("file output", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "logs", "yordamchi.log")

		logger, err := New(Config{Level: "debug", File: logFile})
		require.NoError(t, err)

		logger.Debug().Int64("user_id", 42).Msg("event routed")
		require.NoError(t, logger.Close())

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"user_id":42`)
		assert.Contains(t, string(data), "event routed")
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		logger, err := New(Config{Level: "loud"})
		require.NoError(t, err)
		defer logger.Close()
		assert.Equal(t, zerolog.InfoLevel, logger.GetZerolog().GetLevel())
	})

	t.Run("installs the global logger", func(t *testing.T) {
		logger, err := New(Config{Level: "warn"})
		require.NoError(t, err)
		defer logger.Close()
		assert.Equal(t, zerolog.WarnLevel, log.Logger.GetLevel())
	})
}

func TestNewRedactsConfiguredSecrets(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "yordamchi.log")

	logger, err := New(Config{
		Level:     "info",
		File:      logFile,
		Redaction: true,
		Secrets:   []string{"weather-key-0123"},
	})
	require.NoError(t, err)
	require.NotNil(t, logger.Redactor())

	logger.Info().
		Str("url", "https://api.openweathermap.org/data/2.5/weather?q=Bukhara&key=weather-key-0123").
		Str("provider", "gsk_abcdefghijklmnopqrstuvwxyz012345").
		Msg("weather lookup")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "weather-key-0123")
	assert.NotContains(t, string(data), "gsk_abcdef")
	assert.Contains(t, string(data), "q=Bukhara")
}

func TestLoggerMethods(t *testing.T) {
	logger, err := New(Config{Level: "debug", File: filepath.Join(t.TempDir(), "test.log")})
	require.NoError(t, err)
	defer logger.Close()

	for name, event := range map[string]*zerolog.Event{
		"debug": logger.Debug(),
		"info":  logger.Info(),
		"warn":  logger.Warn(),
		"error": logger.Error(),
	} {
		t.Run(name, func(t *testing.T) {
			require.NotNil(t, event)
			event.Msg(name + " message")
		})
	}
}

func TestComponent(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "yordamchi.log")
	logger, err := New(Config{Level: "info", File: logFile})
	require.NoError(t, err)

	child := logger.Component("gate")
	child.Info().Msg("decision")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"gate"`)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console)
	assert.True(t, cfg.Pretty)
	assert.True(t, cfg.Redaction)
	assert.Equal(t, 100, cfg.MaxSize)
	assert.Equal(t, 7, cfg.MaxAge)
	assert.True(t, cfg.Compress)
}

func TestNewWithRotation(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "rotated.log")

	logger, err := New(Config{Level: "info", File: logFile, MaxSize: 1, MaxAge: 1})
	require.NoError(t, err)
	_, ok := logger.file.(*RotatingWriter)
	assert.True(t, ok)

	logger.Info().Msg("rotating")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rotating")
}
