package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	defaultChatModel          = "llama-3.3-70b-versatile"
	defaultVisionModel        = "meta-llama/llama-4-scout-17b-16e-instruct"
	defaultTranscriptionModel = "whisper-large-v3"
	defaultSpeechModel        = "tts-1"
	defaultVoice              = "alloy"
)

// OpenAIProvider talks to OpenAI or any OpenAI-compatible endpoint.
type OpenAIProvider struct {
	client openai.Client
	cfg    Config
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(cfg Config) *OpenAIProvider {
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
		cfg.Model = defaultChatModel
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = defaultVisionModel
	}
	if cfg.TranscriptionModel == "" {
		cfg.TranscriptionModel = defaultTranscriptionModel
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = defaultSpeechModel
	}
	if cfg.Voice == "" {
		cfg.Voice = defaultVoice
	}

	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}
}

// Provider returns the provider name
func (p *OpenAIProvider) Provider() string {
	return "openai"
}

// Complete sends the conversation to the chat completions endpoint.
func (p *OpenAIProvider) Complete(ctx context.Context, system string, turns []Message) (string, error) {
	return observe(ctx, "chat", func(ctx context.Context) (string, error) {
		messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
		if system != "" {
			messages = append(messages, openai.SystemMessage(system))
		}
		for _, msg := range turns {
			switch msg.Role {
			case "user":
				messages = append(messages, openai.UserMessage(msg.Content))
			case "assistant":
				messages = append(messages, openai.AssistantMessage(msg.Content))
			}
		}

		return p.complete(ctx, p.cfg.Model, messages)
	})
}

// Describe asks the vision model about an image passed inline as a data URL.
func (p *OpenAIProvider) Describe(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	return observe(ctx, "vision", func(ctx context.Context) (string, error) {
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)

		parts := []openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(prompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
		}
		messages := []openai.ChatCompletionMessageParamUnion{openai.UserMessage(parts)}

		return p.complete(ctx, p.cfg.VisionModel, messages)
	})
}

func (p *OpenAIProvider) complete(ctx context.Context, model string, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if p.cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.cfg.MaxTokens))
	}
	if p.cfg.Temperature > 0 {
		params.Temperature = openai.Float(p.cfg.Temperature)
	}

	response, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}

	content := strings.TrimSpace(response.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyReply
	}
	return content, nil
}

// Transcribe sends audio to the transcription endpoint.
func (p *OpenAIProvider) Transcribe(ctx context.Context, audio []byte, fileName string) (string, error) {
	return observe(ctx, "transcription", func(ctx context.Context) (string, error) {
		if fileName == "" {
			fileName = "voice.ogg"
		}
		result, err := p.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
			File:  openai.File(bytes.NewReader(audio), fileName, "audio/ogg"),
			Model: openai.AudioModel(p.cfg.TranscriptionModel),
		})
		if err != nil {
			return "", fmt.Errorf("transcription: %w", err)
		}

		text := strings.TrimSpace(result.Text)
		if text == "" {
			return "", ErrEmptyReply
		}
		return text, nil
	})
}

// Speak synthesizes MP3 speech for text.
func (p *OpenAIProvider) Speak(ctx context.Context, text, lang string) ([]byte, error) {
	return observe(ctx, "speech", func(ctx context.Context) ([]byte, error) {
		resp, err := p.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
			Input:          text,
			Model:          openai.SpeechModel(p.cfg.SpeechModel),
			Voice:          openai.AudioSpeechNewParamsVoice(p.cfg.Voice),
			ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
		})
		if err != nil {
			return nil, fmt.Errorf("speech synthesis: %w", err)
		}
		defer resp.Body.Close()

		audio, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read speech audio: %w", err)
		}
		if len(audio) == 0 {
			return nil, ErrEmptyReply
		}
		return audio, nil
	})
}
