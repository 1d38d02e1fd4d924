package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config represents the main yordamchi configuration
type Config struct {
	// Telegram
	Telegram TelegramConfig `json:"telegram" mapstructure:"telegram"`

	// Membership gate
	Gate GateConfig `json:"gate" mapstructure:"gate"`

	// AI provider
	AI AIConfig `json:"ai" mapstructure:"ai"`

	// Weather service
	Weather WeatherConfig `json:"weather" mapstructure:"weather"`

	// File rendering
	Render RenderConfig `json:"render" mapstructure:"render"`

	// Optional file host for document links
	FileHost FileHostConfig `json:"filehost" mapstructure:"filehost"`

	// User registry
	Registry RegistryConfig `json:"registry" mapstructure:"registry"`

	// Sessions
	Session SessionConfig `json:"session" mapstructure:"session"`

	// Localized texts
	Locale LocaleConfig `json:"locale" mapstructure:"locale"`

	// Metrics endpoint
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Background jobs
	Maintenance MaintenanceConfig `json:"maintenance" mapstructure:"maintenance"`

	// Adapter timeouts
	Timeouts TimeoutsConfig `json:"timeouts" mapstructure:"timeouts"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken            string `json:"bot_token" mapstructure:"bot_token"`
	PollTimeout         int    `json:"poll_timeout" mapstructure:"poll_timeout"` // seconds
	DropPendingUpdates  bool   `json:"drop_pending_updates" mapstructure:"drop_pending_updates"`
	DedupeTTLSeconds    int    `json:"dedupe_ttl_seconds" mapstructure:"dedupe_ttl_seconds"`
	MaxMediaMB          int    `json:"max_media_mb" mapstructure:"max_media_mb"`
	ShutdownWaitSeconds int    `json:"shutdown_wait_seconds" mapstructure:"shutdown_wait_seconds"`
	// MaxPendingPerUser caps updates waiting behind a user's current one; extras are dropped.
	MaxPendingPerUser int `json:"max_pending_per_user" mapstructure:"max_pending_per_user"`
}

// GateConfig holds the channel-membership gate settings
type GateConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// Channel is a public @username or a numeric chat id.
	Channel    string `json:"channel" mapstructure:"channel"`
	ChannelURL string `json:"channel_url" mapstructure:"channel_url"`
}

// AIConfig holds AI provider configuration
type AIConfig struct {
	Provider           string  `json:"provider" mapstructure:"provider"` // openai, anthropic
	APIKey             string  `json:"api_key" mapstructure:"api_key"`
	BaseURL            string  `json:"base_url" mapstructure:"base_url"`
	Model              string  `json:"model" mapstructure:"model"`
	VisionModel        string  `json:"vision_model" mapstructure:"vision_model"`
	TranscriptionModel string  `json:"transcription_model" mapstructure:"transcription_model"`
	SpeechModel        string  `json:"speech_model" mapstructure:"speech_model"`
	Voice              string  `json:"voice" mapstructure:"voice"`
	Temperature        float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens          int     `json:"max_tokens" mapstructure:"max_tokens"`
	SpeechMaxChars     int     `json:"speech_max_chars" mapstructure:"speech_max_chars"`
}

// WeatherConfig holds weather service settings
type WeatherConfig struct {
	APIKey          string `json:"api_key" mapstructure:"api_key"`
	BaseURL         string `json:"base_url" mapstructure:"base_url"`
	CacheSize       int    `json:"cache_size" mapstructure:"cache_size"`
	CacheTTLSeconds int    `json:"cache_ttl_seconds" mapstructure:"cache_ttl_seconds"`
}

// RenderConfig tunes generated files
type RenderConfig struct {
	QRSize        int     `json:"qr_size" mapstructure:"qr_size"`
	SheetFormat   string  `json:"sheet_format" mapstructure:"sheet_format"` // xlsx, csv
	CaptionFontPt float64 `json:"caption_font_pt" mapstructure:"caption_font_pt"`
	TitleMaxChars int     `json:"title_max_chars" mapstructure:"title_max_chars"`
}

// FileHostConfig holds the optional upload endpoint
type FileHostConfig struct {
	URL       string `json:"url" mapstructure:"url"`
	FieldName string `json:"field_name" mapstructure:"field_name"`
	MaxMB     int    `json:"max_mb" mapstructure:"max_mb"`
}

// RegistryConfig selects the user registry backend
type RegistryConfig struct {
	Driver string `json:"driver" mapstructure:"driver"` // json, sqlite, none
	Path   string `json:"path" mapstructure:"path"`
}

// SessionConfig holds session snapshot settings
type SessionConfig struct {
	SnapshotPath string `json:"snapshot_path" mapstructure:"snapshot_path"`
	Restore      bool   `json:"restore" mapstructure:"restore"`
}

// LocaleConfig holds the text override file
type LocaleConfig struct {
	OverridePath string `json:"override_path" mapstructure:"override_path"`
	Watch        bool   `json:"watch" mapstructure:"watch"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Host    string `json:"host" mapstructure:"host"`
	Port    int    `json:"port" mapstructure:"port"`
	// TraceSampleRatio is the share of updates traced, 0 to 1.
	TraceSampleRatio float64 `json:"trace_sample_ratio" mapstructure:"trace_sample_ratio"`
}

// MaintenanceConfig holds cron schedules for background jobs
type MaintenanceConfig struct {
	RegistryFlush   string `json:"registry_flush" mapstructure:"registry_flush"`
	SessionSnapshot string `json:"session_snapshot" mapstructure:"session_snapshot"`
	QueuePrune      string `json:"queue_prune" mapstructure:"queue_prune"`
	IdleLaneMinutes int    `json:"idle_lane_minutes" mapstructure:"idle_lane_minutes"`
}

// TimeoutsConfig bounds each adapter call, in seconds
type TimeoutsConfig struct {
	Chat          int `json:"chat" mapstructure:"chat"`
	Vision        int `json:"vision" mapstructure:"vision"`
	Transcription int `json:"transcription" mapstructure:"transcription"`
	Speech        int `json:"speech" mapstructure:"speech"`
	Weather       int `json:"weather" mapstructure:"weather"`
	Render        int `json:"render" mapstructure:"render"`
	Upload        int `json:"upload" mapstructure:"upload"`
	Media         int `json:"media" mapstructure:"media"`
	Gate          int `json:"gate" mapstructure:"gate"`
}

// Duration converts a seconds field into a time.Duration.
func Duration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
	AuditFile string `json:"audit_file" mapstructure:"audit_file"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			PollTimeout:         60,
			DropPendingUpdates:  true,
			DedupeTTLSeconds:    600,
			MaxMediaMB:          20,
			ShutdownWaitSeconds: 30,
			MaxPendingPerUser:   32,
		},
		Gate: GateConfig{
			Enabled: false,
		},
		AI: AIConfig{
			Provider:           "openai",
			BaseURL:            "https://api.groq.com/openai/v1",
			Model:              "llama-3.3-70b-versatile",
			VisionModel:        "meta-llama/llama-4-scout-17b-16e-instruct",
			TranscriptionModel: "whisper-large-v3",
			Temperature:        0.7,
			MaxTokens:          2000,
			SpeechMaxChars:     1000,
		},
		Weather: WeatherConfig{
			BaseURL:         "https://api.openweathermap.org",
			CacheSize:       256,
			CacheTTLSeconds: 600,
		},
		Render: RenderConfig{
			QRSize:        512,
			SheetFormat:   "xlsx",
			CaptionFontPt: 36,
			TitleMaxChars: 80,
		},
		FileHost: FileHostConfig{
			FieldName: "file",
			MaxMB:     20,
		},
		Registry: RegistryConfig{
			Driver: "json",
		},
		Session: SessionConfig{
			Restore: true,
		},
		Locale: LocaleConfig{
			Watch: true,
		},
		Metrics: MetricsConfig{
			Enabled:          false,
			Host:             "127.0.0.1",
			Port:             9090,
			TraceSampleRatio: 1,
		},
		Maintenance: MaintenanceConfig{
			RegistryFlush:   "@every 1m",
			SessionSnapshot: "@every 5m",
			QueuePrune:      "@every 10m",
			IdleLaneMinutes: 30,
		},
		Timeouts: TimeoutsConfig{
			Chat:          30,
			Vision:        60,
			Transcription: 60,
			Speech:        30,
			Weather:       10,
			Render:        20,
			Upload:        60,
			Media:         30,
			Gate:          10,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		DataDir: "",
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot token is required")
	}

	if c.AI.APIKey == "" {
		return fmt.Errorf("no AI credentials configured: ai.api_key is required")
	}
	if c.AI.Provider != "openai" && c.AI.Provider != "anthropic" {
		return fmt.Errorf("invalid AI provider %s (must be: openai, anthropic)", c.AI.Provider)
	}

	if c.Gate.Enabled && c.Gate.Channel == "" {
		return fmt.Errorf("gate.channel is required when the gate is enabled")
	}

	switch c.Registry.Driver {
	case "", "none", "json", "sqlite":
	default:
		return fmt.Errorf("invalid registry driver: %s", c.Registry.Driver)
	}

	if c.Render.SheetFormat != "" && c.Render.SheetFormat != "xlsx" && c.Render.SheetFormat != "csv" {
		return fmt.Errorf("invalid render.sheet_format: %s", c.Render.SheetFormat)
	}

	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port: %d", c.Metrics.Port)
	}

	return nil
}
