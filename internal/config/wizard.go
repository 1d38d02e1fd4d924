package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewWizard creates a new configuration wizard on stdin/stdout
func NewWizard() *Wizard {
	return NewWizardWithIO(os.Stdin, os.Stdout)
}

// NewWizardWithIO creates a wizard reading answers from in
func NewWizardWithIO(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run runs the interactive configuration wizard, starting from base when given
func (w *Wizard) Run(base *Config) (*Config, error) {
	w.println("=== Yordamchi Configuration Wizard ===")
	w.println()

	cfg := base
	if cfg == nil {
		cfg = DefaultConfig()
	}
	validator := NewValidator()

	// Telegram
	w.println("Telegram Configuration:")
	for {
		token, err := w.ask("Telegram Bot Token", cfg.Telegram.BotToken)
		if err != nil {
			return nil, err
		}
		if err := validator.ValidateTelegramToken(token); err != nil {
			w.printf("Error: %v\n", err)
			continue
		}
		cfg.Telegram.BotToken = token
		break
	}
	w.println()

	// AI provider
	w.println("AI Provider:")
	w.println("  openai    - any OpenAI-compatible endpoint, Groq by default")
	w.println("  anthropic - Claude (no voice or speech support)")
	provider, err := w.ask("Provider", cfg.AI.Provider)
	if err != nil {
		return nil, err
	}
	if provider != "openai" && provider != "anthropic" {
		w.printf("Warning: unknown provider %s, using openai\n", provider)
		provider = "openai"
	}
	if provider != cfg.AI.Provider && provider == "anthropic" {
		cfg.AI.BaseURL = ""
		cfg.AI.Model = ""
		cfg.AI.VisionModel = ""
		cfg.AI.TranscriptionModel = ""
	}
	cfg.AI.Provider = provider

	for {
		key, err := w.ask("API Key", cfg.AI.APIKey)
		if err != nil {
			return nil, err
		}
		if err := validator.ValidateAPIKey(key, provider); err != nil {
			w.printf("Error: %v\n", err)
			continue
		}
		cfg.AI.APIKey = key
		break
	}

	model, err := w.ask("Chat model", cfg.AI.Model)
	if err != nil {
		return nil, err
	}
	cfg.AI.Model = model
	w.println()

	// Gate
	w.println("Subscription Gate:")
	enable, err := w.ask("Require channel membership? (y/n)", yesNo(cfg.Gate.Enabled))
	if err != nil {
		return nil, err
	}
	cfg.Gate.Enabled = strings.EqualFold(enable, "y")
	if cfg.Gate.Enabled {
		for {
			channel, err := w.ask("Channel (@username or chat id)", cfg.Gate.Channel)
			if err != nil {
				return nil, err
			}
			if err := validator.ValidateChannel(channel); err != nil {
				w.printf("Error: %v\n", err)
				continue
			}
			cfg.Gate.Channel = channel
			break
		}
		if strings.HasPrefix(cfg.Gate.Channel, "@") && cfg.Gate.ChannelURL == "" {
			cfg.Gate.ChannelURL = "https://t.me/" + strings.TrimPrefix(cfg.Gate.Channel, "@")
		}
	}
	w.println()

	// Weather
	w.println("Weather (OpenWeatherMap):")
	key, err := w.ask("API Key (Enter to skip)", cfg.Weather.APIKey)
	if err != nil {
		return nil, err
	}
	cfg.Weather.APIKey = key
	w.println()

	// Log Level
	w.println("Logging:")
	level, err := w.ask("Log level (debug/info/warn/error)", cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateLogLevel(level); err != nil {
		w.printf("Warning: %v, using default (info)\n", err)
		level = "info"
	}
	cfg.Logging.Level = level

	w.println()
	w.println("Configuration complete!")

	return cfg, nil
}

// ask prints a prompt and returns the answer, or def on an empty line.
func (w *Wizard) ask(prompt, def string) (string, error) {
	if def != "" && !strings.Contains(strings.ToLower(prompt), "key") && !strings.Contains(strings.ToLower(prompt), "token") {
		w.printf("%s [%s]: ", prompt, def)
	} else if def != "" {
		w.printf("%s [keep current]: ", prompt)
	} else {
		w.printf("%s: ", prompt)
	}
	line, err := w.readLine()
	if err != nil {
		return "", err
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (w *Wizard) println(a ...interface{}) {
	fmt.Fprintln(w.out, a...)
}

func (w *Wizard) printf(format string, a ...interface{}) {
	fmt.Fprintf(w.out, format, a...)
}

func yesNo(b bool) string {
	if b {
		return "y"
	}
	return "n"
}
