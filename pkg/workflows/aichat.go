package workflows

import (
	"context"
	"strings"

	"github.com/harun/yordamchi/pkg/fsm"
	"github.com/harun/yordamchi/pkg/llm"
	"github.com/harun/yordamchi/pkg/session"
)

// enterAIChat starts a fresh conversation every time the workflow is opened.
func (s *Service) enterAIChat(ctx context.Context, sess *session.Session, ev *fsm.Event) error {
	sess.History.Reset()
	sess.State = session.StateAIChat
	return s.notify(ctx, sess, "ai.prompt")
}

// chat answers text, voice and photos. The exchange is added to the history only
// once the reply is in hand, so a failed call leaves the transcript as it was.
func (s *Service) chat(ctx context.Context, sess *session.Session, ev *fsm.Event) error {
	switch ev.Kind {
	case fsm.KindText, fsm.KindVoice, fsm.KindPhoto:
	case fsm.KindButton:
		return nil
	default:
		return s.notify(ctx, sess, "ai.input_only")
	}
	if ev.Kind == fsm.KindText && strings.TrimSpace(ev.Text) == "" {
		return nil
	}

	thinking, err := s.send(ctx, sess, Text(s.t(sess, "ai.thinking")))
	if err != nil {
		return err
	}

	prompt, errKey, err := s.userTurn(ctx, sess, ev)
	if err != nil {
		s.deleteQuietly(ctx, sess, thinking)
		return s.fail(ctx, sess, string(ev.Kind), err, errKey)
	}

	// The pending turn counts against the cap.
	window := sess.History.WithPending(session.RoleUser, prompt)
	turns := make([]llm.Message, 0, len(window))
	for _, turn := range window {
		turns = append(turns, llm.Message{Role: turn.Role, Content: turn.Content})
	}

	system := s.deps.Catalog.SystemPrompt(s.lang(sess))
	reply, err := call(ctx, s.timeouts.Chat, func(ctx context.Context) (string, error) {
		return s.deps.Chat.Complete(ctx, system, turns)
	})
	s.deleteQuietly(ctx, sess, thinking)
	if err != nil {
		return s.fail(ctx, sess, "chat", err, "ai.error")
	}

	parts := splitRunes(reply, MaxMessageRunes)
	for i, part := range parts {
		msg := Text(part)
		if i == len(parts)-1 {
			msg.Inline = s.backKeyboard(sess)
		}
		if _, err := s.send(ctx, sess, msg); err != nil {
			return err
		}
	}

	sess.History.Append(session.RoleUser, prompt)
	sess.History.Append(session.RoleAssistant, reply)
	return nil
}

// userTurn converts the event to the text of a user turn. Voice is transcribed
// and photos are described, with any caption kept in front.
func (s *Service) userTurn(ctx context.Context, sess *session.Session, ev *fsm.Event) (string, string, error) {
	switch ev.Kind {
	case fsm.KindVoice:
		audio, err := s.download(ctx, ev.FileID)
		if err != nil {
			return "", "ai.voice_error", err
		}
		name := ev.FileName
		if name == "" {
			name = "voice.ogg"
		}
		text, err := call(ctx, s.timeouts.Transcription, func(ctx context.Context) (string, error) {
			return s.deps.Transcriber.Transcribe(ctx, audio, name)
		})
		if err != nil {
			return "", "ai.voice_error", err
		}
		return text, "", nil

	case fsm.KindPhoto:
		image, err := s.download(ctx, ev.FileID)
		if err != nil {
			return "", "ai.photo_error", err
		}
		mime := ev.MimeType
		if mime == "" {
			mime = "image/jpeg"
		}
		question := strings.TrimSpace(ev.Text)
		if question == "" {
			question = s.t(sess, "ai.photo_question")
		}
		description, err := call(ctx, s.timeouts.Vision, func(ctx context.Context) (string, error) {
			return s.deps.Vision.Describe(ctx, image, mime, question)
		})
		if err != nil {
			return "", "ai.photo_error", err
		}
		return question + "\n\n" + description, "", nil
	}

	return ev.Text, "", nil
}
