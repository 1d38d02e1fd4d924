package workflows

import (
	"context"

	"github.com/harun/yordamchi/internal/locale"
	"github.com/harun/yordamchi/pkg/fsm"
	"github.com/harun/yordamchi/pkg/session"
)

// menuEntries lists the workflows in menu order with their label keys.
var menuEntries = []struct {
	state session.State
	label string
}{
	{session.StateAIChat, "button.ai_chat"},
	{session.StateQRCode, "button.qr_code"},
	{session.StateDocumentAssembly, "button.document"},
	{session.StateTextToSpeech, "button.tts"},
	{session.StateSpreadsheetExport, "button.sheet"},
	{session.StateImageCaption, "button.caption"},
	{session.StateWeather, "button.weather"},
}

// TextCommands maps label keys to the tags their labels stand for when they arrive
// as plain text, e.g. from a reply keyboard.
func TextCommands() map[string]fsm.Tag {
	cmds := map[string]fsm.Tag{
		"button.menu":      fsm.TagMenu,
		"button.back":      fsm.TagBack,
		"button.back_main": fsm.TagBack,
	}
	for _, e := range menuEntries {
		cmds[e.label] = fsm.WorkflowTag(e.state)
	}
	return cmds
}

func (s *Service) languageKeyboard() [][]ReplyButton {
	c := s.deps.Catalog
	return [][]ReplyButton{
		{{Label: c.T(locale.Uzbek, "language.label")}, {Label: c.T(locale.Russian, "language.label")}},
		{{Label: c.T(locale.English, "language.label")}},
	}
}

func (s *Service) mainKeyboard(sess *session.Session) [][]ReplyButton {
	return [][]ReplyButton{{{Label: s.t(sess, "button.menu")}}}
}

func (s *Service) menuKeyboard(sess *session.Session) [][]Button {
	rows := make([][]Button, 0, len(menuEntries))
	for _, e := range menuEntries {
		rows = append(rows, []Button{{Label: s.t(sess, e.label), Tag: fsm.WorkflowTag(e.state)}})
	}
	return rows
}

func (s *Service) backKeyboard(sess *session.Session) [][]Button {
	return [][]Button{{{Label: s.t(sess, "button.back_main"), Tag: fsm.TagBack}}}
}

// Welcome greets a restarted user in every language and offers the language keys.
func (s *Service) Welcome(ctx context.Context, sess *session.Session) error {
	msg := Text(locale.Welcome)
	msg.Reply = s.languageKeyboard()
	_, err := s.send(ctx, sess, msg)
	return err
}

// MainMenu shows the workflow menu.
func (s *Service) MainMenu(ctx context.Context, sess *session.Session) error {
	msg := Text(s.t(sess, "menu.title"))
	msg.Inline = s.menuKeyboard(sess)
	_, err := s.send(ctx, sess, msg)
	return err
}

// Blocked asks the user to subscribe and offers a re-check.
func (s *Service) Blocked(ctx context.Context, sess *session.Session) error {
	msg := Text(s.t(sess, "gate.blocked", s.deps.Channel))
	if s.deps.ChannelURL != "" {
		msg.Inline = append(msg.Inline, []Button{{Label: s.t(sess, "button.subscribe"), URL: s.deps.ChannelURL}})
	}
	msg.Inline = append(msg.Inline, []Button{{Label: s.t(sess, "button.recheck"), Tag: fsm.TagGateRecheck}})
	_, err := s.send(ctx, sess, msg)
	return err
}

// selectLanguage advances onboarding on a recognized language and re-prompts otherwise.
func (s *Service) selectLanguage(ctx context.Context, sess *session.Session, ev *fsm.Event) error {
	lang, ok := ev.Tag.Language()
	if !ok && ev.Kind == fsm.KindText {
		lang, ok = locale.LanguageFromText(ev.Text)
	}
	if !ok || !locale.Supported(lang) {
		msg := Text(s.t(sess, "language.retry"))
		msg.Reply = s.languageKeyboard()
		_, err := s.send(ctx, sess, msg)
		return err
	}

	sess.Language = lang
	sess.State = session.StateMainMenu

	msg := Text(s.t(sess, "language.selected"))
	msg.Reply = s.mainKeyboard(sess)
	if _, err := s.send(ctx, sess, msg); err != nil {
		return err
	}

	if s.deps.Languages != nil {
		if err := s.deps.Languages.SetLanguage(ctx, sess.UserID, lang); err != nil {
			logger := s.log(ctx, sess)
			logger.Warn().Err(err).Msg("Failed to record language")
		}
	}

	return s.MainMenu(ctx, sess)
}

// menuFallback answers anything unrouted on the main menu with the menu itself.
func (s *Service) menuFallback(ctx context.Context, sess *session.Session, ev *fsm.Event) error {
	if ev.Kind == fsm.KindButton {
		// Stale button from a closed workflow.
		return nil
	}
	return s.MainMenu(ctx, sess)
}

// enter returns a handler that opens a single-turn workflow with its prompt.
func (s *Service) enter(state session.State, promptKey string) fsm.Handler {
	return func(ctx context.Context, sess *session.Session, ev *fsm.Event) error {
		sess.State = state
		return s.notify(ctx, sess, promptKey)
	}
}
