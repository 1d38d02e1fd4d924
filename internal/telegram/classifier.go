package telegram

import (
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/yordamchi/internal/locale"
	"github.com/harun/yordamchi/pkg/fsm"
	"github.com/harun/yordamchi/pkg/registry"
	"github.com/harun/yordamchi/pkg/workflows"
)

// commandTags maps slash commands to tags.
var commandTags = map[string]fsm.Tag{
	"start": fsm.TagStart,
	"menu":  fsm.TagMenu,
}

// Classifier turns raw updates into router events. Every recognized command is
// resolved here, once, so handlers never compare label strings.
type Classifier struct {
	catalog  *locale.Catalog
	textTags map[string]fsm.Tag
}

// NewClassifier returns a classifier that recognizes the catalog's button labels.
func NewClassifier(catalog *locale.Catalog) *Classifier {
	if catalog == nil {
		catalog = locale.MustDefault()
	}
	return &Classifier{
		catalog:  catalog,
		textTags: workflows.TextCommands(),
	}
}

// Classify converts update into an event. ok is false for updates the bot does not
// serve: group chats, edits, service messages and unsupported media.
func (c *Classifier) Classify(update tgbotapi.Update) (*fsm.Event, registry.Profile, bool) {
	if cq := update.CallbackQuery; cq != nil {
		return c.callback(update.UpdateID, cq)
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
		return nil, registry.Profile{}, false
	}

	ev := &fsm.Event{
		UpdateID:   update.UpdateID,
		UserID:     msg.From.ID,
		MessageID:  msg.MessageID,
		ReceivedAt: messageTime(msg.Date),
	}

	switch {
	case msg.IsCommand():
		ev.Kind = fsm.KindCommand
		ev.Tag = commandTags[msg.Command()]
		ev.Text = msg.CommandArguments()
	case msg.Text != "":
		ev.Kind = fsm.KindText
		ev.Text = msg.Text
		ev.Tag = c.textTag(msg.Text)
	case len(msg.Photo) > 0:
		largest := msg.Photo[len(msg.Photo)-1]
		ev.Kind = fsm.KindPhoto
		ev.FileID = largest.FileID
		ev.MimeType = "image/jpeg"
		ev.Text = msg.Caption
	case msg.Voice != nil:
		ev.Kind = fsm.KindVoice
		ev.FileID = msg.Voice.FileID
		ev.MimeType = msg.Voice.MimeType
		ev.FileName = "voice.ogg"
	case msg.Document != nil:
		ev.Kind = fsm.KindDocument
		ev.FileID = msg.Document.FileID
		ev.FileName = msg.Document.FileName
		ev.MimeType = msg.Document.MimeType
		ev.Text = msg.Caption
	case msg.Location != nil:
		ev.Kind = fsm.KindLocation
		ev.Location = &fsm.Location{
			Latitude:  msg.Location.Latitude,
			Longitude: msg.Location.Longitude,
		}
	default:
		return nil, registry.Profile{}, false
	}

	return ev, profile(msg.From), true
}

func (c *Classifier) callback(updateID int, cq *tgbotapi.CallbackQuery) (*fsm.Event, registry.Profile, bool) {
	if cq.From == nil {
		return nil, registry.Profile{}, false
	}
	if cq.Message != nil && cq.Message.Chat != nil && !cq.Message.Chat.IsPrivate() {
		return nil, registry.Profile{}, false
	}

	ev := &fsm.Event{
		UpdateID:   updateID,
		UserID:     cq.From.ID,
		CallbackID: cq.ID,
		Kind:       fsm.KindButton,
		Tag:        fsm.Tag(cq.Data),
		ReceivedAt: time.Now(),
	}
	if cq.Message != nil {
		ev.MessageID = cq.Message.MessageID
	}
	return ev, profile(cq.From), true
}

// textTag resolves reply-keyboard labels and language keys typed as text.
func (c *Classifier) textTag(text string) fsm.Tag {
	trimmed := strings.TrimSpace(text)
	for key, tag := range c.textTags {
		if c.catalog.Matches(key, trimmed) {
			return tag
		}
	}
	if lang, ok := locale.LanguageFromText(trimmed); ok {
		return fsm.LanguageTag(lang)
	}
	return fsm.TagNone
}

func profile(u *tgbotapi.User) registry.Profile {
	return registry.Profile{
		UserID:    u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
	}
}

func messageTime(unix int) time.Time {
	if unix <= 0 {
		return time.Now()
	}
	return time.Unix(int64(unix), 0)
}
