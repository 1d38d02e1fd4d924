package telegram

import (
	"context"
	"os"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/yordamchi/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		token := os.Getenv("TELEGRAM_BOT_TOKEN")
		if token == "" {
			t.Skip("TELEGRAM_BOT_TOKEN not set")
		}

		cfg := &config.TelegramConfig{BotToken: token}

		bot, err := New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, bot.API())
		assert.NotEmpty(t, bot.Username())
		assert.Equal(t, token, bot.Token())
	})

	t.Run("nil config", func(t *testing.T) {
		bot, err := New(nil)
		assert.Error(t, err)
		assert.Nil(t, bot)
		assert.Contains(t, err.Error(), "config is required")
	})

	t.Run("empty bot token", func(t *testing.T) {
		bot, err := New(&config.TelegramConfig{})
		assert.Error(t, err)
		assert.Nil(t, bot)
		assert.Contains(t, err.Error(), "bot token is required")
	})
}

func TestBotRun(t *testing.T) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		t.Skip("TELEGRAM_BOT_TOKEN not set")
	}

	bot, err := New(&config.TelegramConfig{BotToken: token, PollTimeout: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- bot.Run(ctx, func(context.Context, tgbotapi.Update) {})
	}()

	require.Eventually(t, bot.IsRunning, 5*time.Second, 50*time.Millisecond)
	assert.Error(t, bot.Run(ctx, func(context.Context, tgbotapi.Update) {}), "second Run must fail")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("bot did not stop")
	}
	assert.False(t, bot.IsRunning())
}

func TestValidateToken(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		err := ValidateToken("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	})

	t.Run("real token", func(t *testing.T) {
		token := os.Getenv("TELEGRAM_BOT_TOKEN")
		if token == "" {
			t.Skip("TELEGRAM_BOT_TOKEN not set")
		}
		assert.NoError(t, ValidateToken(token))
	})
}
