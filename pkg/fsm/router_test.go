package fsm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/harun/yordamchi/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGate struct {
	mu      sync.Mutex
	allowed bool
	checks  int
}

func (g *fakeGate) IsAuthorized(ctx context.Context, userID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checks++
	return g.allowed
}

func (g *fakeGate) set(allowed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.allowed = allowed
}

type fakeScreens struct {
	shown []string
}

func (s *fakeScreens) Welcome(ctx context.Context, sess *session.Session) error {
	s.shown = append(s.shown, "welcome")
	return nil
}

func (s *fakeScreens) MainMenu(ctx context.Context, sess *session.Session) error {
	s.shown = append(s.shown, "main_menu")
	return nil
}

func (s *fakeScreens) Blocked(ctx context.Context, sess *session.Session) error {
	s.shown = append(s.shown, "blocked")
	return nil
}

type routerFixture struct {
	router  *Router
	store   *session.Store
	gate    *fakeGate
	screens *fakeScreens
	calls   []string
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	f := &routerFixture{
		store:   session.NewStore(),
		gate:    &fakeGate{allowed: true},
		screens: &fakeScreens{},
	}

	record := func(name string, mutate func(sess *session.Session, ev *Event)) Handler {
		return func(ctx context.Context, sess *session.Session, ev *Event) error {
			f.calls = append(f.calls, name)
			if mutate != nil {
				mutate(sess, ev)
			}
			return nil
		}
	}

	table := NewTable()
	table.Register(session.StateAwaitingLanguage, KindText, LanguageTag("en"), record("language", func(sess *session.Session, ev *Event) {
		lang, _ := ev.Tag.Language()
		sess.Language = lang
		sess.State = session.StateMainMenu
	}))
	table.Fallback(session.StateAwaitingLanguage, record("reprompt", nil))
	table.Register(session.StateMainMenu, KindButton, WorkflowTag(session.StateAIChat), record("enter-ai", func(sess *session.Session, ev *Event) {
		sess.History.Reset()
		sess.State = session.StateAIChat
	}))
	table.Register(session.StateMainMenu, KindButton, WorkflowTag(session.StateDocumentAssembly), record("enter-doc", func(sess *session.Session, ev *Event) {
		sess.State = session.StateDocumentAssembly
	}))
	table.Register(session.StateAIChat, KindText, TagNone, record("ai-text", func(sess *session.Session, ev *Event) {
		sess.History.Append(session.RoleUser, ev.Text)
		sess.History.Append(session.RoleAssistant, "reply")
	}))
	table.Fallback(session.StateDocumentAssembly, record("doc-append", func(sess *session.Session, ev *Event) {
		sess.Fragments.Append(ev.Text, ev.MessageID)
	}))
	table.Register(session.StateQRCode, KindText, TagNone, func(ctx context.Context, sess *session.Session, ev *Event) error {
		f.calls = append(f.calls, "qr-fail")
		sess.State = session.StateMainMenu
		return errors.New("render failed")
	})

	f.router = NewRouter(table, f.store, f.gate, f.screens)
	return f
}

func (f *routerFixture) dispatch(t *testing.T, ev *Event) error {
	t.Helper()
	if ev.UserID == 0 {
		ev.UserID = 1
	}
	return f.router.Dispatch(context.Background(), ev)
}

func (f *routerFixture) put(t *testing.T, mutate func(sess *session.Session)) {
	t.Helper()
	sess := f.store.Get(1)
	mutate(sess)
	require.NoError(t, f.store.Put(sess))
}

func TestRouter_LanguageSelection(t *testing.T) {
	f := newRouterFixture(t)

	require.NoError(t, f.dispatch(t, &Event{Kind: KindText, Text: "hello"}))
	assert.Equal(t, session.StateAwaitingLanguage, f.store.Get(1).State)

	require.NoError(t, f.dispatch(t, &Event{Kind: KindText, Tag: LanguageTag("en"), Text: "🇬🇧 English"}))
	sess := f.store.Get(1)
	assert.Equal(t, session.StateMainMenu, sess.State)
	assert.Equal(t, "en", sess.Language)
	assert.Equal(t, []string{"reprompt", "language"}, f.calls)
}

func TestRouter_AwaitingLanguageSkipsGate(t *testing.T) {
	f := newRouterFixture(t)
	f.gate.set(false)

	require.NoError(t, f.dispatch(t, &Event{Kind: KindText, Text: "hi"}))
	assert.Equal(t, 0, f.gate.checks)
	assert.Equal(t, []string{"reprompt"}, f.calls)
}

func TestRouter_BackFromAwaitingLanguageIsNoop(t *testing.T) {
	f := newRouterFixture(t)

	for _, tag := range []Tag{TagBack, TagMenu, TagGateRecheck} {
		require.NoError(t, f.dispatch(t, &Event{Kind: KindButton, Tag: tag}))
	}
	assert.Equal(t, session.StateAwaitingLanguage, f.store.Get(1).State)
	assert.Empty(t, f.calls)
	assert.Empty(t, f.screens.shown)
}

func TestRouter_BackFromAnyWorkflow(t *testing.T) {
	for _, state := range session.States() {
		if !state.IsWorkflow() {
			continue
		}
		t.Run(string(state), func(t *testing.T) {
			f := newRouterFixture(t)
			f.put(t, func(sess *session.Session) {
				sess.Language = "en"
				sess.State = state
				sess.History.Append(session.RoleUser, "hello")
				if state == session.StateDocumentAssembly {
					sess.Fragments.Append("A", 10)
				}
				if state == session.StateImageCaptionText {
					sess.HeldPhoto = "photo-1"
				}
			})

			require.NoError(t, f.dispatch(t, &Event{Kind: KindButton, Tag: TagBack}))

			sess := f.store.Get(1)
			assert.Equal(t, session.StateMainMenu, sess.State)
			assert.Equal(t, 0, sess.History.Len())
			assert.True(t, sess.Fragments.Empty())
			assert.Empty(t, sess.HeldPhoto)
			assert.Equal(t, "en", sess.Language)
			assert.Equal(t, []string{"main_menu"}, f.screens.shown)
		})
	}
}

func TestRouter_GateBlocksWithoutMutation(t *testing.T) {
	f := newRouterFixture(t)
	f.put(t, func(sess *session.Session) {
		sess.State = session.StateDocumentAssembly
		sess.Fragments.Append("A", 10)
	})
	f.gate.set(false)

	require.NoError(t, f.dispatch(t, &Event{Kind: KindText, Text: "B", MessageID: 11}))

	sess := f.store.Get(1)
	assert.Equal(t, session.StateDocumentAssembly, sess.State)
	assert.Equal(t, "A", sess.Fragments.Body())
	assert.Empty(t, f.calls)
	assert.Equal(t, []string{"blocked"}, f.screens.shown)
}

func TestRouter_GateBlocksBack(t *testing.T) {
	f := newRouterFixture(t)
	f.put(t, func(sess *session.Session) { sess.State = session.StateAIChat })
	f.gate.set(false)

	require.NoError(t, f.dispatch(t, &Event{Kind: KindButton, Tag: TagBack}))
	assert.Equal(t, session.StateAIChat, f.store.Get(1).State)
}

func TestRouter_RecheckResumesAtMainMenu(t *testing.T) {
	f := newRouterFixture(t)
	f.put(t, func(sess *session.Session) {
		sess.State = session.StateDocumentAssembly
		sess.Fragments.Append("A", 10)
	})
	f.gate.set(false)

	require.NoError(t, f.dispatch(t, &Event{Kind: KindButton, Tag: TagGateRecheck}))
	assert.Equal(t, session.StateDocumentAssembly, f.store.Get(1).State)
	assert.Equal(t, []string{"blocked"}, f.screens.shown)

	f.gate.set(true)
	require.NoError(t, f.dispatch(t, &Event{Kind: KindButton, Tag: TagGateRecheck}))

	sess := f.store.Get(1)
	assert.Equal(t, session.StateMainMenu, sess.State)
	assert.True(t, sess.Fragments.Empty())
	assert.Equal(t, []string{"blocked", "main_menu"}, f.screens.shown)
	assert.Empty(t, f.calls)
}

func TestRouter_UnmatchedEventDropped(t *testing.T) {
	f := newRouterFixture(t)
	f.put(t, func(sess *session.Session) { sess.State = session.StateAIChat })

	err := f.dispatch(t, &Event{Kind: KindLocation, Location: &Location{Latitude: 1, Longitude: 2}})
	assert.ErrorIs(t, err, ErrNoHandler)
	assert.Equal(t, session.StateAIChat, f.store.Get(1).State)
}

func TestRouter_HandlerErrorDiscardsMutation(t *testing.T) {
	f := newRouterFixture(t)
	f.put(t, func(sess *session.Session) { sess.State = session.StateQRCode })

	err := f.dispatch(t, &Event{Kind: KindText, Text: "payload"})
	require.Error(t, err)
	assert.Equal(t, session.StateQRCode, f.store.Get(1).State)
}

func TestRouter_EnteringAIChatClearsHistory(t *testing.T) {
	f := newRouterFixture(t)
	f.put(t, func(sess *session.Session) { sess.State = session.StateMainMenu })

	require.NoError(t, f.dispatch(t, &Event{Kind: KindButton, Tag: WorkflowTag(session.StateAIChat)}))
	require.NoError(t, f.dispatch(t, &Event{Kind: KindText, Text: "hello"}))
	require.Equal(t, 2, f.store.Get(1).History.Len())

	require.NoError(t, f.dispatch(t, &Event{Kind: KindButton, Tag: TagBack}))
	require.NoError(t, f.dispatch(t, &Event{Kind: KindButton, Tag: WorkflowTag(session.StateAIChat)}))
	require.NoError(t, f.dispatch(t, &Event{Kind: KindText, Text: "again"}))

	turns := f.store.Get(1).History.AsContext()
	require.Len(t, turns, 2)
	assert.Equal(t, "again", turns[0].Content)
}

func TestRouter_WorkflowTagFromAnotherWorkflow(t *testing.T) {
	f := newRouterFixture(t)
	f.put(t, func(sess *session.Session) {
		sess.State = session.StateDocumentAssembly
		sess.Fragments.Append("A", 10)
	})

	require.NoError(t, f.dispatch(t, &Event{Kind: KindButton, Tag: WorkflowTag(session.StateAIChat)}))

	sess := f.store.Get(1)
	assert.Equal(t, session.StateAIChat, sess.State)
	assert.True(t, sess.Fragments.Empty())
	assert.Equal(t, []string{"enter-ai"}, f.calls)
}

func TestRouter_RestartResetsSession(t *testing.T) {
	f := newRouterFixture(t)
	f.put(t, func(sess *session.Session) {
		sess.State = session.StateAIChat
		sess.Language = "ru"
		sess.History.Append(session.RoleUser, "x")
	})
	f.gate.set(false)

	require.NoError(t, f.dispatch(t, &Event{Kind: KindCommand, Tag: TagStart}))

	sess := f.store.Get(1)
	assert.Equal(t, session.StateAwaitingLanguage, sess.State)
	assert.Empty(t, sess.Language)
	assert.Equal(t, 0, sess.History.Len())
	assert.Equal(t, []string{"welcome"}, f.screens.shown)
}

func TestRouter_FreezesTable(t *testing.T) {
	f := newRouterFixture(t)
	assert.True(t, f.router.table.Frozen())
}
