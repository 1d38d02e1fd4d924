package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

var (
	telegramTokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)
	channelPattern       = regexp.MustCompile(`^(@[A-Za-z][A-Za-z0-9_]{3,}|-?\d+)$`)
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAPIKey validates an API key format
func (v *Validator) ValidateAPIKey(key string, provider string) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}

	switch provider {
	case "anthropic":
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
	case "openai":
		// Groq and OpenAI keys share the endpoint shape but not the prefix.
		if !strings.HasPrefix(key, "sk-") && !strings.HasPrefix(key, "gsk_") {
			return fmt.Errorf("invalid API key format (should start with sk- or gsk_)")
		}
	}

	return nil
}

// ValidateTelegramToken validates a Telegram bot token
func (v *Validator) ValidateTelegramToken(token string) error {
	if token == "" {
		return fmt.Errorf("telegram bot token cannot be empty")
	}

	// Telegram bot tokens have format: <bot_id>:<token>
	if !telegramTokenPattern.MatchString(token) {
		return fmt.Errorf("invalid Telegram bot token format")
	}

	return nil
}

// ValidateChannel validates a gate channel reference
func (v *Validator) ValidateChannel(channel string) error {
	if !channelPattern.MatchString(channel) {
		return fmt.Errorf("invalid gate channel %q (use @username or a numeric chat id)", channel)
	}
	return nil
}

// ValidateURL validates an absolute http(s) URL
func (v *Validator) ValidateURL(raw string, field string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", field, raw)
	}
	return nil
}

// ValidateSchedule validates a cron schedule
func (v *Validator) ValidateSchedule(spec string, field string) error {
	if spec == "" {
		return nil // Job disabled
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("%s: invalid schedule %q: %w", field, spec, err)
	}
	return nil
}

// ValidateTemperature validates temperature value
func (v *Validator) ValidateTemperature(temp float64) error {
	if temp < 0 || temp > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", temp)
	}
	return nil
}

// ValidateMaxTokens validates max tokens value
func (v *Validator) ValidateMaxTokens(tokens int) error {
	if tokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", tokens)
	}
	if tokens > 200000 {
		return fmt.Errorf("max tokens too large (max 200000), got %d", tokens)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if cfg.Telegram.BotToken != "" {
		if err := v.ValidateTelegramToken(cfg.Telegram.BotToken); err != nil {
			errors = append(errors, err)
		}
	}
	if cfg.Telegram.DedupeTTLSeconds < 0 {
		errors = append(errors, fmt.Errorf("telegram dedupe_ttl_seconds must be >= 0"))
	}
	if cfg.Telegram.PollTimeout < 0 {
		errors = append(errors, fmt.Errorf("telegram poll_timeout must be >= 0"))
	}

	if cfg.AI.APIKey != "" {
		if err := v.ValidateAPIKey(cfg.AI.APIKey, cfg.AI.Provider); err != nil {
			errors = append(errors, fmt.Errorf("ai: %w", err))
		}
	}
	if cfg.AI.BaseURL != "" {
		if err := v.ValidateURL(cfg.AI.BaseURL, "ai.base_url"); err != nil {
			errors = append(errors, err)
		}
	}
	if err := v.ValidateTemperature(cfg.AI.Temperature); err != nil {
		errors = append(errors, fmt.Errorf("ai: %w", err))
	}
	if cfg.AI.MaxTokens != 0 {
		if err := v.ValidateMaxTokens(cfg.AI.MaxTokens); err != nil {
			errors = append(errors, fmt.Errorf("ai: %w", err))
		}
	}

	if cfg.Gate.Enabled {
		if err := v.ValidateChannel(cfg.Gate.Channel); err != nil {
			errors = append(errors, err)
		}
	}
	if cfg.Gate.ChannelURL != "" {
		if err := v.ValidateURL(cfg.Gate.ChannelURL, "gate.channel_url"); err != nil {
			errors = append(errors, err)
		}
	}

	if cfg.FileHost.URL != "" {
		if err := v.ValidateURL(cfg.FileHost.URL, "filehost.url"); err != nil {
			errors = append(errors, err)
		}
	}

	for field, spec := range map[string]string{
		"maintenance.registry_flush":   cfg.Maintenance.RegistryFlush,
		"maintenance.session_snapshot": cfg.Maintenance.SessionSnapshot,
		"maintenance.queue_prune":      cfg.Maintenance.QueuePrune,
	} {
		if err := v.ValidateSchedule(spec, field); err != nil {
			errors = append(errors, err)
		}
	}

	t := cfg.Timeouts
	for field, seconds := range map[string]int{
		"chat": t.Chat, "vision": t.Vision, "transcription": t.Transcription, "speech": t.Speech,
		"weather": t.Weather, "render": t.Render, "upload": t.Upload, "media": t.Media, "gate": t.Gate,
	} {
		if seconds < 0 {
			errors = append(errors, fmt.Errorf("timeouts.%s must be >= 0", field))
		}
	}

	// Validate logging
	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	return errors
}
