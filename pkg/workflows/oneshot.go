package workflows

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/harun/yordamchi/pkg/fsm"
	"github.com/harun/yordamchi/pkg/render"
	"github.com/harun/yordamchi/pkg/session"
)

// qrEchoRunes is how much of the payload the QR caption repeats.
const qrEchoRunes = 50

// textInput returns the trimmed text of a text event. ok is false for anything
// else; stale buttons are reported as ignorable.
func textInput(ev *fsm.Event) (text string, ok, ignore bool) {
	switch ev.Kind {
	case fsm.KindButton:
		return "", false, true
	case fsm.KindText:
		text = strings.TrimSpace(ev.Text)
		return text, text != "", false
	}
	return "", false, false
}

// qr encodes the text as a QR code and stays in the workflow for the next one.
func (s *Service) qr(ctx context.Context, sess *session.Session, ev *fsm.Event) error {
	text, ok, ignore := textInput(ev)
	if ignore {
		return nil
	}
	if !ok {
		return s.notify(ctx, sess, "qr.text_only")
	}

	file, err := call(ctx, s.timeouts.Render, func(context.Context) (render.File, error) {
		return s.deps.Renderer.QR(text)
	})
	if err != nil {
		return s.fail(ctx, sess, "render_qr", err, "qr.error")
	}

	caption := s.t(sess, "qr.success") + "\n📝 " + render.Truncate(text, qrEchoRunes)
	_, err = s.send(ctx, sess, Outbound{Kind: ContentPhoto, Text: caption, File: &file, Inline: s.backKeyboard(sess)})
	return err
}

// speak reads the text aloud in the user's language.
func (s *Service) speak(ctx context.Context, sess *session.Session, ev *fsm.Event) error {
	text, ok, ignore := textInput(ev)
	if ignore {
		return nil
	}
	if !ok {
		return s.notify(ctx, sess, "tts.text_only")
	}
	if utf8.RuneCountInString(text) > s.deps.SpeechMaxRunes {
		return s.notify(ctx, sess, "tts.too_long", s.deps.SpeechMaxRunes)
	}

	lang := s.lang(sess)
	audio, err := call(ctx, s.timeouts.Speech, func(ctx context.Context) ([]byte, error) {
		return s.deps.Speaker.Speak(ctx, text, lang)
	})
	if err != nil {
		return s.fail(ctx, sess, "speech", err, "tts.error")
	}

	file := render.Audio(audio)
	_, err = s.send(ctx, sess, Outbound{Kind: ContentAudio, Text: render.Truncate(text, qrEchoRunes), File: &file, Inline: s.backKeyboard(sess)})
	return err
}

// sheet turns delimited lines into a spreadsheet.
func (s *Service) sheet(ctx context.Context, sess *session.Session, ev *fsm.Event) error {
	text, ok, ignore := textInput(ev)
	if ignore {
		return nil
	}
	if !ok {
		return s.notify(ctx, sess, "sheet.text_only")
	}

	rows := render.ParseRows(text)
	file, err := call(ctx, s.timeouts.Render, func(context.Context) (render.File, error) {
		return s.deps.Renderer.Sheet(rows)
	})
	if err != nil {
		return s.fail(ctx, sess, "render_sheet", err, "sheet.error")
	}

	_, err = s.send(ctx, sess, Outbound{Kind: ContentDocument, Text: s.t(sess, "sheet.ready"), File: &file, Inline: s.backKeyboard(sess)})
	return err
}
