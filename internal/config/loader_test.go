package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/path/to/config.json")
	assert.NotNil(t, loader)
	assert.Equal(t, "/path/to/config.json", loader.GetConfigPath())
}

func TestLoaderLoad(t *testing.T) {
	t.Run("load default config when file doesn't exist", func(t *testing.T) {
		tmpDir := t.TempDir()
		cfg, err := NewLoader(filepath.Join(tmpDir, "nonexistent.json")).Load()

		require.NoError(t, err)
		assert.Equal(t, "llama-3.3-70b-versatile", cfg.AI.Model)
		assert.Equal(t, 60, cfg.Telegram.PollTimeout)
	})

	t.Run("load config from file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")

		testConfig := `{
			"telegram": {"bot_token": "123:abc"},
			"ai": {"api_key": "gsk_test", "temperature": 0.2},
			"gate": {"enabled": true, "channel": "@news"},
			"registry": {"driver": "sqlite"},
			"timeouts": {"chat": 45}
		}`
		require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0644))

		cfg, err := NewLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
		assert.Equal(t, "gsk_test", cfg.AI.APIKey)
		assert.Equal(t, 0.2, cfg.AI.Temperature)
		assert.Equal(t, "llama-3.3-70b-versatile", cfg.AI.Model)
		assert.True(t, cfg.Gate.Enabled)
		assert.Equal(t, "@news", cfg.Gate.Channel)
		assert.Equal(t, 45, cfg.Timeouts.Chat)
		assert.Equal(t, 10, cfg.Timeouts.Weather)
		assert.Equal(t, filepath.Join(cfg.DataDir, "users.db"), cfg.Registry.Path)
	})

	t.Run("set default paths", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")
		require.NoError(t, os.WriteFile(configPath, []byte(`{"data_dir": "`+tmpDir+`"}`), 0644))

		cfg, err := NewLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, tmpDir, cfg.DataDir)
		assert.Equal(t, filepath.Join(tmpDir, "yordamchi.log"), cfg.Logging.File)
		assert.Equal(t, filepath.Join(tmpDir, "audit.log"), cfg.Logging.AuditFile)
		assert.Equal(t, filepath.Join(tmpDir, "sessions.json"), cfg.Session.SnapshotPath)
		assert.Equal(t, filepath.Join(tmpDir, "users.json"), cfg.Registry.Path)
	})

	t.Run("environment overrides", func(t *testing.T) {
		tmpDir := t.TempDir()
		t.Setenv("YORDAMCHI_TELEGRAM_BOT_TOKEN", "999:env")
		t.Setenv("YORDAMCHI_AI_MAX_TOKENS", "512")
		t.Setenv("YORDAMCHI_GATE_ENABLED", "true")

		cfg, err := NewLoader(filepath.Join(tmpDir, "missing.json")).Load()

		require.NoError(t, err)
		assert.Equal(t, "999:env", cfg.Telegram.BotToken)
		assert.Equal(t, 512, cfg.AI.MaxTokens)
		assert.True(t, cfg.Gate.Enabled)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "invalid.json")
		require.NoError(t, os.WriteFile(configPath, []byte("invalid json"), 0644))

		_, err := NewLoader(configPath).Load()
		assert.Error(t, err)
	})
}

func TestLoaderSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.json")

	cfg := validConfig()
	cfg.Gate.Channel = "@saved"
	loader := NewLoader(configPath)
	require.NoError(t, loader.Save(cfg))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg.Telegram.BotToken, loaded.Telegram.BotToken)
	assert.Equal(t, "@saved", loaded.Gate.Channel)
}

func TestLoadConvenience(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}
