package workflows

import (
	"context"
	"strings"

	"github.com/harun/yordamchi/internal/observability"
	"github.com/harun/yordamchi/pkg/fsm"
	"github.com/harun/yordamchi/pkg/render"
	"github.com/harun/yordamchi/pkg/session"
)

func (s *Service) enterDocument(ctx context.Context, sess *session.Session, ev *fsm.Event) error {
	sess.Fragments.Clear()
	sess.State = session.StateDocumentAssembly
	return s.notify(ctx, sess, "doc.prompt")
}

func (s *Service) documentKeyboard(sess *session.Session) [][]Button {
	return [][]Button{
		{
			{Label: s.t(sess, "button.commit"), Tag: fsm.TagDocCommit},
			{Label: s.t(sess, "button.undo"), Tag: fsm.TagDocUndo},
		},
		{{Label: s.t(sess, "button.back_main"), Tag: fsm.TagBack}},
	}
}

// showProgress replaces the "continue?" prompt with one reflecting the buffer.
// The old prompt is retracted only after the new one is out, so a failed send
// leaves the stored prompt id pointing at a live message.
func (s *Service) showProgress(ctx context.Context, sess *session.Session) error {
	old := sess.Fragments.PromptID()

	msg := Text(s.t(sess, "doc.continue", sess.Fragments.Len(), sess.Fragments.Chars()))
	msg.Inline = s.documentKeyboard(sess)
	id, err := s.send(ctx, sess, msg)
	if err != nil {
		return err
	}
	sess.Fragments.SetPromptID(id)
	s.deleteQuietly(ctx, sess, old)
	return nil
}

// appendFragment collects one text fragment. Anything but text is refused.
func (s *Service) appendFragment(ctx context.Context, sess *session.Session, ev *fsm.Event) error {
	switch ev.Kind {
	case fsm.KindText:
	case fsm.KindButton:
		return nil
	default:
		return s.notify(ctx, sess, "doc.text_only")
	}
	if strings.TrimSpace(ev.Text) == "" {
		return s.notify(ctx, sess, "doc.text_only")
	}

	sess.Fragments.Append(ev.Text, ev.MessageID)
	return s.showProgress(ctx, sess)
}

// undoFragment pops the newest fragment and retracts the message that carried it.
// Retractions happen after the reply is sent; if the send fails the session is
// not committed and every message it references is still on screen.
func (s *Service) undoFragment(ctx context.Context, sess *session.Session, ev *fsm.Event) error {
	frag, ok := sess.Fragments.Undo()
	if !ok {
		return s.notify(ctx, sess, "doc.nothing_to_undo")
	}

	if !sess.Fragments.Empty() {
		if err := s.showProgress(ctx, sess); err != nil {
			return err
		}
		s.deleteQuietly(ctx, sess, frag.MessageID)
		return nil
	}

	if err := s.notify(ctx, sess, "doc.cleared"); err != nil {
		return err
	}
	s.deleteQuietly(ctx, sess, sess.Fragments.TakePromptID())
	s.deleteQuietly(ctx, sess, frag.MessageID)
	return nil
}

// commitDocument renders the buffer as one document. The buffer is cleared only
// after the document has been delivered; any failure before that keeps it for a retry.
func (s *Service) commitDocument(ctx context.Context, sess *session.Session, ev *fsm.Event) error {
	if sess.Fragments.Empty() {
		return s.notify(ctx, sess, "doc.nothing_to_commit")
	}

	body := sess.Fragments.Body()
	file, err := call(ctx, s.timeouts.Render, func(context.Context) (render.File, error) {
		return s.deps.Renderer.Document(body)
	})
	if err != nil {
		return s.fail(ctx, sess, "render_document", err, "doc.error")
	}

	caption := s.t(sess, "doc.ready")
	if link := s.publish(ctx, sess, file); link != "" {
		caption += "\n" + s.t(sess, "doc.link", link)
	}

	msg := Outbound{Kind: ContentDocument, Text: caption, File: &file, Inline: s.backKeyboard(sess)}
	if _, err := s.send(ctx, sess, msg); err != nil {
		return err
	}

	fragments := sess.Fragments.Len()
	s.deleteQuietly(ctx, sess, sess.Fragments.TakePromptID())
	sess.Fragments.Clear()
	observability.RecordDocumentCommitted(fragments)

	logger := s.log(ctx, sess)
	logger.Info().Int("fragments", fragments).Int("bytes", len(file.Data)).Msg("Document committed")
	return nil
}

// publish uploads the rendered file when a file host is configured. A failed
// upload only costs the link.
func (s *Service) publish(ctx context.Context, sess *session.Session, file render.File) string {
	if s.deps.Uploader == nil {
		return ""
	}
	link, err := call(ctx, s.timeouts.Upload, func(ctx context.Context) (string, error) {
		return s.deps.Uploader.Upload(ctx, file.Name, file.Data)
	})
	if err != nil {
		logger := s.log(ctx, sess)
		logger.Warn().Err(err).Msg("Document upload failed")
		return ""
	}
	return link
}
