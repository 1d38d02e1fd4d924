package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/yordamchi/internal/observability"
	"github.com/harun/yordamchi/pkg/render"
	"github.com/harun/yordamchi/pkg/workflows"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Presenter delivers workflow output as Telegram messages. Users are addressed by
// their private chat, whose id equals the user id.
type Presenter struct {
	api    API
	logger zerolog.Logger
}

// NewPresenter returns a presenter over api.
func NewPresenter(api API) *Presenter {
	return &Presenter{
		api:    api,
		logger: log.Logger.With().Str("component", "telegram").Str("module", "presenter").Logger(),
	}
}

// Send delivers msg and returns its message id.
func (p *Presenter) Send(ctx context.Context, userID int64, msg workflows.Outbound) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c, err := buildMessage(userID, msg)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	sent, err := p.api.Send(c)
	observability.RecordAdapterCall("telegram_send", time.Since(start), err == nil)
	if err != nil {
		return 0, fmt.Errorf("failed to send %s: %w", kindOf(msg), err)
	}

	p.logger.Debug().
		Int64("chat_id", userID).
		Int("message_id", sent.MessageID).
		Str("kind", string(kindOf(msg))).
		Msg("Message sent")

	return sent.MessageID, nil
}

// Delete removes an earlier message.
func (p *Presenter) Delete(ctx context.Context, userID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.api.Request(tgbotapi.NewDeleteMessage(userID, messageID)); err != nil {
		return fmt.Errorf("failed to delete message %d: %w", messageID, err)
	}
	return nil
}

// AnswerCallback stops the client's loading indicator on a pressed inline button.
func (p *Presenter) AnswerCallback(callbackID string) error {
	if callbackID == "" {
		return nil
	}
	if _, err := p.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

func kindOf(msg workflows.Outbound) workflows.ContentKind {
	if msg.Kind == "" {
		return workflows.ContentText
	}
	return msg.Kind
}

func buildMessage(chatID int64, msg workflows.Outbound) (tgbotapi.Chattable, error) {
	kind := kindOf(msg)
	if kind != workflows.ContentText && msg.File == nil {
		return nil, fmt.Errorf("%s message without a file", kind)
	}
	markup := replyMarkup(msg)

	switch kind {
	case workflows.ContentText:
		m := tgbotapi.NewMessage(chatID, msg.Text)
		if markup != nil {
			m.ReplyMarkup = markup
		}
		return m, nil
	case workflows.ContentPhoto:
		m := tgbotapi.NewPhoto(chatID, fileBytes(msg.File))
		m.Caption = msg.Text
		if markup != nil {
			m.ReplyMarkup = markup
		}
		return m, nil
	case workflows.ContentAudio:
		m := tgbotapi.NewAudio(chatID, fileBytes(msg.File))
		m.Caption = msg.Text
		if markup != nil {
			m.ReplyMarkup = markup
		}
		return m, nil
	case workflows.ContentDocument:
		m := tgbotapi.NewDocument(chatID, fileBytes(msg.File))
		m.Caption = msg.Text
		if markup != nil {
			m.ReplyMarkup = markup
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported message kind %q", kind)
	}
}

func fileBytes(f *render.File) tgbotapi.FileBytes {
	return tgbotapi.FileBytes{Name: f.Name, Bytes: f.Data}
}

// replyMarkup picks the keyboard for msg. A message carries at most one, and the
// inline keyboard wins.
func replyMarkup(msg workflows.Outbound) interface{} {
	if len(msg.Inline) > 0 {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(msg.Inline))
		for _, row := range msg.Inline {
			buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
			for _, b := range row {
				if b.URL != "" {
					buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Label, b.URL))
				} else {
					buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, string(b.Tag)))
				}
			}
			rows = append(rows, buttons)
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	if len(msg.Reply) > 0 {
		rows := make([][]tgbotapi.KeyboardButton, 0, len(msg.Reply))
		for _, row := range msg.Reply {
			buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
			for _, b := range row {
				if b.RequestLocation {
					buttons = append(buttons, tgbotapi.NewKeyboardButtonLocation(b.Label))
				} else {
					buttons = append(buttons, tgbotapi.NewKeyboardButton(b.Label))
				}
			}
			rows = append(rows, buttons)
		}
		return tgbotapi.NewReplyKeyboard(rows...)
	}

	return nil
}
