package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureWritesAnswers(t *testing.T) {
	path := useConfig(t, map[string]interface{}{
		"weather": map[string]interface{}{"api_key": "kept-weather-key"},
	})

	answers := strings.Join([]string{
		"123456:ABC-def_ghi", // token
		"",                   // provider: keep openai
		"gsk_wizardkey",      // api key
		"",                   // model
		"y",                  // gate
		"not a channel",      // rejected, asked again
		"@yordamchi_news",    // channel
		"",                   // weather key: keep
		"debug",              // log level
	}, "\n") + "\n"

	cmd := GetRootCmd()
	cmd.SetArgs([]string{"configure"})
	cmd.SetIn(strings.NewReader(answers))
	output := &bytes.Buffer{}
	cmd.SetOut(output)
	t.Cleanup(func() { cmd.SetIn(nil) })

	require.NoError(t, cmd.Execute())
	assert.Contains(t, output.String(), "invalid gate channel")
	assert.Contains(t, output.String(), "Configuration saved to: "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var saved struct {
		Telegram struct {
			BotToken string `json:"bot_token"`
		} `json:"telegram"`
		AI struct {
			Provider string `json:"provider"`
			APIKey   string `json:"api_key"`
		} `json:"ai"`
		Gate struct {
			Enabled    bool   `json:"enabled"`
			Channel    string `json:"channel"`
			ChannelURL string `json:"channel_url"`
		} `json:"gate"`
		Weather struct {
			APIKey string `json:"api_key"`
		} `json:"weather"`
		Logging struct {
			Level string `json:"level"`
		} `json:"logging"`
	}
	require.NoError(t, json.Unmarshal(data, &saved))

	assert.Equal(t, "123456:ABC-def_ghi", saved.Telegram.BotToken)
	assert.Equal(t, "openai", saved.AI.Provider)
	assert.Equal(t, "gsk_wizardkey", saved.AI.APIKey)
	assert.True(t, saved.Gate.Enabled)
	assert.Equal(t, "@yordamchi_news", saved.Gate.Channel)
	assert.Equal(t, "https://t.me/yordamchi_news", saved.Gate.ChannelURL)
	assert.Equal(t, "kept-weather-key", saved.Weather.APIKey)
	assert.Equal(t, "debug", saved.Logging.Level)
}

func TestConfigureAbortsOnClosedInput(t *testing.T) {
	path := useConfig(t, map[string]interface{}{})
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	cmd := GetRootCmd()
	cmd.SetArgs([]string{"configure"})
	cmd.SetIn(strings.NewReader(""))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() { cmd.SetIn(nil) })

	err = cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration failed")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
