package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harun/yordamchi/internal/observability"
	"github.com/harun/yordamchi/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrEmptyReply is returned when a provider answers without content.
var ErrEmptyReply = errors.New("provider returned an empty reply")

// ErrUnsupported is returned by adapters for capabilities the provider lacks.
var ErrUnsupported = errors.New("capability not supported by provider")

// Message is one chat turn sent to a provider.
type Message struct {
	Role    string
	Content string
}

// ChatCompleter produces the assistant reply to an ordered conversation.
type ChatCompleter interface {
	Complete(ctx context.Context, system string, turns []Message) (string, error)
}

// Describer turns an image into text.
type Describer interface {
	Describe(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
}

// Transcriber turns recorded speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, fileName string) (string, error)
}

// Speaker synthesizes speech. The result is MP3 encoded.
type Speaker interface {
	Speak(ctx context.Context, text, lang string) ([]byte, error)
}

// Config selects a provider and its models.
type Config struct {
	Provider           string
	APIKey             string
	BaseURL            string
	Model              string
	VisionModel        string
	TranscriptionModel string
	SpeechModel        string
	Voice              string
	Temperature        float64
	MaxTokens          int
	Timeout            time.Duration
}

// Adapters bundles the capabilities built from one Config.
type Adapters struct {
	Chat        ChatCompleter
	Vision      Describer
	Transcriber Transcriber
	Speaker     Speaker
}

// New builds the adapters for cfg.Provider ("openai" or "anthropic").
// OpenAI-compatible endpoints (Groq included) use "openai" with a BaseURL.
func New(cfg Config) (*Adapters, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: api key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	switch cfg.Provider {
	case "", "openai":
		p := NewOpenAIProvider(cfg)
		return &Adapters{Chat: p, Vision: p, Transcriber: p, Speaker: p}, nil
	case "anthropic":
		p := NewAnthropicProvider(cfg)
		return &Adapters{Chat: p, Vision: p, Transcriber: unsupported{}, Speaker: unsupported{}}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

type unsupported struct{}

func (unsupported) Transcribe(context.Context, []byte, string) (string, error) {
	return "", ErrUnsupported
}

func (unsupported) Speak(context.Context, string, string) ([]byte, error) {
	return nil, ErrUnsupported
}

// observe runs fn inside a span and records it as an adapter call.
func observe[T any](ctx context.Context, adapter string, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, span := tracing.StartSpan(ctx, "yordamchi.llm", "llm."+adapter, attribute.String("adapter", adapter))
	defer span.End()

	start := time.Now()
	out, err := fn(ctx)
	observability.RecordAdapterCall(adapter, time.Since(start), err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}
