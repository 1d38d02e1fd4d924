package workflows

import (
	"context"
	"strings"

	"github.com/harun/yordamchi/pkg/fsm"
	"github.com/harun/yordamchi/pkg/render"
	"github.com/harun/yordamchi/pkg/session"
)

// captionPhoto accepts a photo. With a caption on the same message the image is
// produced right away; otherwise the photo is held until the text arrives.
func (s *Service) captionPhoto(ctx context.Context, sess *session.Session, ev *fsm.Event) error {
	switch ev.Kind {
	case fsm.KindPhoto:
	case fsm.KindButton:
		return nil
	default:
		if sess.State == session.StateImageCaptionText {
			return s.notify(ctx, sess, "caption.need_text")
		}
		return s.notify(ctx, sess, "caption.photo_only")
	}

	if text := strings.TrimSpace(ev.Text); text != "" {
		return s.composeCaption(ctx, sess, ev.FileID, text)
	}

	sess.HeldPhoto = ev.FileID
	sess.State = session.StateImageCaptionText
	return s.notify(ctx, sess, "caption.need_text")
}

// captionText completes a held photo.
func (s *Service) captionText(ctx context.Context, sess *session.Session, ev *fsm.Event) error {
	text := strings.TrimSpace(ev.Text)
	if text == "" || sess.HeldPhoto == "" {
		return s.notify(ctx, sess, "caption.need_text")
	}
	return s.composeCaption(ctx, sess, sess.HeldPhoto, text)
}

func (s *Service) composeCaption(ctx context.Context, sess *session.Session, fileID, text string) error {
	photo, err := s.download(ctx, fileID)
	if err != nil {
		return s.fail(ctx, sess, "media", err, "caption.error")
	}

	file, err := call(ctx, s.timeouts.Render, func(context.Context) (render.File, error) {
		return s.deps.Renderer.Caption(photo, text)
	})
	if err != nil {
		return s.fail(ctx, sess, "render_caption", err, "caption.error")
	}

	msg := Outbound{Kind: ContentPhoto, Text: s.t(sess, "caption.ready"), File: &file, Inline: s.backKeyboard(sess)}
	if _, err := s.send(ctx, sess, msg); err != nil {
		return err
	}

	sess.HeldPhoto = ""
	sess.State = session.StateImageCaption
	return nil
}
