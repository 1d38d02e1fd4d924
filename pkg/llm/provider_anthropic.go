package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicProvider implements chat and vision on the Messages API.
type AnthropicProvider struct {
	client anthropic.Client
	cfg    Config
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(cfg Config) *AnthropicProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.Model == "" {
		cfg.Model = defaultAnthropicModel
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		cfg:    cfg,
	}
}

// Provider returns the provider name
func (p *AnthropicProvider) Provider() string {
	return "anthropic"
}

// Complete sends the conversation to the Messages API.
func (p *AnthropicProvider) Complete(ctx context.Context, system string, turns []Message) (string, error) {
	return observe(ctx, "chat", func(ctx context.Context) (string, error) {
		messages := make([]anthropic.MessageParam, 0, len(turns))
		for _, msg := range turns {
			switch msg.Role {
			case "user":
				messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
			case "assistant":
				messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
			}
		}
		return p.send(ctx, p.cfg.Model, system, messages)
	})
}

// Describe sends the image inline as a base64 block.
func (p *AnthropicProvider) Describe(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	return observe(ctx, "vision", func(ctx context.Context) (string, error) {
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		messages := []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mimeType, base64.StdEncoding.EncodeToString(image)),
				anthropic.NewTextBlock(prompt),
			),
		}
		return p.send(ctx, p.cfg.VisionModel, "", messages)
	})
}

func (p *AnthropicProvider) send(ctx context.Context, model, system string, messages []anthropic.MessageParam) (string, error) {
	reqParams := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  messages,
		MaxTokens: int64(p.cfg.MaxTokens),
	}
	if system != "" {
		reqParams.System = []anthropic.TextBlockParam{
			{Text: system},
		}
	}
	if p.cfg.Temperature > 0 {
		reqParams.Temperature = anthropic.Float(p.cfg.Temperature)
	}

	response, err := p.client.Messages.New(ctx, reqParams)
	if err != nil {
		return "", fmt.Errorf("messages: %w", err)
	}

	var content strings.Builder
	for _, block := range response.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			content.WriteString(b.Text)
		}
	}

	text := strings.TrimSpace(content.String())
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}
