package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/yordamchi/internal/locale"
	"github.com/harun/yordamchi/pkg/fsm"
	"github.com/harun/yordamchi/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func privateMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 7,
		Date:      1700000000,
		From:      &tgbotapi.User{ID: 12345, UserName: "testuser", FirstName: "Test"},
		Chat:      &tgbotapi.Chat{ID: 12345, Type: "private"},
		Text:      text,
	}
}

func command(text string) *tgbotapi.Message {
	msg := privateMessage(text)
	length := len(text)
	for i, r := range text {
		if r == ' ' {
			length = i
			break
		}
	}
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	return msg
}

func TestClassifyCommands(t *testing.T) {
	c := NewClassifier(locale.MustDefault())

	tests := []struct {
		name string
		msg  *tgbotapi.Message
		tag  fsm.Tag
	}{
		{"start", command("/start"), fsm.TagStart},
		{"start with payload", command("/start ref42"), fsm.TagStart},
		{"start addressed to bot", command("/start@yordamchi_bot"), fsm.TagStart},
		{"menu", command("/menu"), fsm.TagMenu},
		{"unknown", command("/help"), fsm.TagNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, p, ok := c.Classify(tgbotapi.Update{UpdateID: 1, Message: tt.msg})
			require.True(t, ok)
			assert.Equal(t, fsm.KindCommand, ev.Kind)
			assert.Equal(t, tt.tag, ev.Tag)
			assert.Equal(t, int64(12345), p.UserID)
		})
	}
}

func TestClassifyText(t *testing.T) {
	c := NewClassifier(locale.MustDefault())
	cat := locale.MustDefault()

	tests := []struct {
		name string
		text string
		tag  fsm.Tag
	}{
		{"free text", "hello there", fsm.TagNone},
		{"menu key uz", cat.T(locale.Uzbek, "button.menu"), fsm.TagMenu},
		{"menu key ru", cat.T(locale.Russian, "button.menu"), fsm.TagMenu},
		{"back key", cat.T(locale.English, "button.back"), fsm.TagBack},
		{"main menu key", cat.T(locale.English, "button.back_main"), fsm.TagBack},
		{"label with spaces", "  " + cat.T(locale.English, "button.menu") + " ", fsm.TagMenu},
		{"workflow label", cat.T(locale.Russian, "button.weather"), fsm.WorkflowTag(session.StateWeather)},
		{"language key", cat.T(locale.Russian, "language.label"), fsm.LanguageTag(locale.Russian)},
		{"bare flag", "🇬🇧", fsm.LanguageTag(locale.English)},
		{"label prefix only", cat.T(locale.English, "button.menu") + " please", fsm.TagNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, _, ok := c.Classify(tgbotapi.Update{UpdateID: 2, Message: privateMessage(tt.text)})
			require.True(t, ok)
			assert.Equal(t, fsm.KindText, ev.Kind)
			assert.Equal(t, tt.tag, ev.Tag)
			assert.Equal(t, tt.text, ev.Text)
		})
	}
}

func TestClassifyMessageFields(t *testing.T) {
	c := NewClassifier(nil)

	ev, p, ok := c.Classify(tgbotapi.Update{UpdateID: 99, Message: privateMessage("hi")})
	require.True(t, ok)
	assert.Equal(t, 99, ev.UpdateID)
	assert.Equal(t, int64(12345), ev.UserID)
	assert.Equal(t, 7, ev.MessageID)
	assert.Equal(t, int64(1700000000), ev.ReceivedAt.Unix())
	assert.Equal(t, "testuser", p.Username)
	assert.Equal(t, "Test", p.FirstName)
}

func TestClassifyMedia(t *testing.T) {
	c := NewClassifier(nil)

	t.Run("photo picks largest size", func(t *testing.T) {
		msg := privateMessage("")
		msg.Photo = []tgbotapi.PhotoSize{{FileID: "small", Width: 90}, {FileID: "large", Width: 1280}}
		msg.Caption = "what is this?"

		ev, _, ok := c.Classify(tgbotapi.Update{Message: msg})
		require.True(t, ok)
		assert.Equal(t, fsm.KindPhoto, ev.Kind)
		assert.Equal(t, "large", ev.FileID)
		assert.Equal(t, "what is this?", ev.Text)
		assert.Equal(t, "image/jpeg", ev.MimeType)
	})

	t.Run("voice", func(t *testing.T) {
		msg := privateMessage("")
		msg.Voice = &tgbotapi.Voice{FileID: "v1", MimeType: "audio/ogg"}

		ev, _, ok := c.Classify(tgbotapi.Update{Message: msg})
		require.True(t, ok)
		assert.Equal(t, fsm.KindVoice, ev.Kind)
		assert.Equal(t, "v1", ev.FileID)
		assert.Equal(t, "voice.ogg", ev.FileName)
	})

	t.Run("document", func(t *testing.T) {
		msg := privateMessage("")
		msg.Document = &tgbotapi.Document{FileID: "d1", FileName: "notes.txt", MimeType: "text/plain"}

		ev, _, ok := c.Classify(tgbotapi.Update{Message: msg})
		require.True(t, ok)
		assert.Equal(t, fsm.KindDocument, ev.Kind)
		assert.Equal(t, "notes.txt", ev.FileName)
	})

	t.Run("location", func(t *testing.T) {
		msg := privateMessage("")
		msg.Location = &tgbotapi.Location{Latitude: 41.31, Longitude: 69.28}

		ev, _, ok := c.Classify(tgbotapi.Update{Message: msg})
		require.True(t, ok)
		assert.Equal(t, fsm.KindLocation, ev.Kind)
		require.NotNil(t, ev.Location)
		assert.InDelta(t, 41.31, ev.Location.Latitude, 1e-9)
		assert.InDelta(t, 69.28, ev.Location.Longitude, 1e-9)
	})

	t.Run("sticker is not served", func(t *testing.T) {
		msg := privateMessage("")
		msg.Sticker = &tgbotapi.Sticker{FileID: "s1"}

		_, _, ok := c.Classify(tgbotapi.Update{Message: msg})
		assert.False(t, ok)
	})
}

func TestClassifyCallback(t *testing.T) {
	c := NewClassifier(nil)

	update := tgbotapi.Update{
		UpdateID: 5,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb-1",
			From:    &tgbotapi.User{ID: 12345, UserName: "testuser"},
			Message: privateMessage("menu"),
			Data:    string(fsm.TagDocCommit),
		},
	}

	ev, p, ok := c.Classify(update)
	require.True(t, ok)
	assert.Equal(t, fsm.KindButton, ev.Kind)
	assert.Equal(t, fsm.TagDocCommit, ev.Tag)
	assert.Equal(t, "cb-1", ev.CallbackID)
	assert.Equal(t, 7, ev.MessageID)
	assert.Equal(t, int64(12345), p.UserID)
}

func TestClassifyIgnored(t *testing.T) {
	c := NewClassifier(nil)

	group := privateMessage("hello")
	group.Chat = &tgbotapi.Chat{ID: -100, Type: "supergroup"}

	anonymous := privateMessage("hello")
	anonymous.From = nil

	tests := []struct {
		name   string
		update tgbotapi.Update
	}{
		{"empty update", tgbotapi.Update{}},
		{"edited message", tgbotapi.Update{EditedMessage: privateMessage("fixed")}},
		{"group chat", tgbotapi.Update{Message: group}},
		{"no sender", tgbotapi.Update{Message: anonymous}},
		{"callback without sender", tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{ID: "x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, ok := c.Classify(tt.update)
			assert.False(t, ok)
		})
	}
}
