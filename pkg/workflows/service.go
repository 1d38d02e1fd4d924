package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/harun/yordamchi/internal/locale"
	"github.com/harun/yordamchi/internal/tracing"
	"github.com/harun/yordamchi/pkg/fsm"
	"github.com/harun/yordamchi/pkg/llm"
	"github.com/harun/yordamchi/pkg/render"
	"github.com/harun/yordamchi/pkg/session"
	"github.com/harun/yordamchi/pkg/weather"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MaxMessageRunes is the longest text sent in one message.
const MaxMessageRunes = 4000

// Forecaster looks up current weather.
type Forecaster interface {
	ByCity(ctx context.Context, name, lang string) (*weather.Report, error)
	ByCoordinates(ctx context.Context, lat, lon float64, lang string) (*weather.Report, error)
}

// Renderer encodes workflow results into files.
type Renderer interface {
	QR(content string) (render.File, error)
	Document(body string) (render.File, error)
	Sheet(rows [][]string) (render.File, error)
	Caption(photo []byte, text string) (render.File, error)
}

// Uploader publishes a file and returns a public link.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// LanguageRecorder remembers a user's language outside the session.
type LanguageRecorder interface {
	SetLanguage(ctx context.Context, userID int64, lang string) error
}

// Timeouts bounds each adapter call.
type Timeouts struct {
	Chat          time.Duration
	Vision        time.Duration
	Transcription time.Duration
	Speech        time.Duration
	Weather       time.Duration
	Render        time.Duration
	Upload        time.Duration
	Media         time.Duration
}

// DefaultTimeouts returns the bounds used for unset fields.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Chat:          30 * time.Second,
		Vision:        60 * time.Second,
		Transcription: 60 * time.Second,
		Speech:        30 * time.Second,
		Weather:       10 * time.Second,
		Render:        20 * time.Second,
		Upload:        60 * time.Second,
		Media:         30 * time.Second,
	}
}

func (t Timeouts) withDefaults() Timeouts {
	def := DefaultTimeouts()
	fill := func(v *time.Duration, d time.Duration) {
		if *v <= 0 {
			*v = d
		}
	}
	fill(&t.Chat, def.Chat)
	fill(&t.Vision, def.Vision)
	fill(&t.Transcription, def.Transcription)
	fill(&t.Speech, def.Speech)
	fill(&t.Weather, def.Weather)
	fill(&t.Render, def.Render)
	fill(&t.Upload, def.Upload)
	fill(&t.Media, def.Media)
	return t
}

// Deps are the collaborators the workflows call. Uploader and Languages may be nil.
type Deps struct {
	Presenter   Presenter
	Media       MediaFetcher
	Catalog     *locale.Catalog
	Chat        llm.ChatCompleter
	Vision      llm.Describer
	Transcriber llm.Transcriber
	Speaker     llm.Speaker
	Renderer    Renderer
	Weather     Forecaster
	Uploader    Uploader
	Languages   LanguageRecorder
	Timeouts    Timeouts

	// Channel is the subscription target named in the blocked prompt, e.g. "@news".
	Channel string
	// ChannelURL, when set, adds a subscribe button to the blocked prompt.
	ChannelURL string
	// SpeechMaxRunes caps text-to-speech input. Zero means 1000.
	SpeechMaxRunes int
}

// Service holds every workflow handler and the router's screens.
type Service struct {
	deps     Deps
	timeouts Timeouts
	logger   zerolog.Logger
}

// New creates the service. Catalog and Renderer default to the built-in ones.
func New(deps Deps) *Service {
	if deps.Catalog == nil {
		deps.Catalog = locale.MustDefault()
	}
	if deps.Renderer == nil {
		deps.Renderer = render.New(render.DefaultOptions())
	}
	if deps.SpeechMaxRunes <= 0 {
		deps.SpeechMaxRunes = 1000
	}
	return &Service{
		deps:     deps,
		timeouts: deps.Timeouts.withDefaults(),
		logger:   log.Logger.With().Str("component", "workflows").Logger(),
	}
}

// Register adds every route to table.
func (s *Service) Register(t *fsm.Table) {
	t.Fallback(session.StateAwaitingLanguage, s.selectLanguage)
	t.Fallback(session.StateMainMenu, s.menuFallback)

	s.entry(t, session.StateAIChat, s.enterAIChat)
	s.entry(t, session.StateQRCode, s.enter(session.StateQRCode, "qr.prompt"))
	s.entry(t, session.StateDocumentAssembly, s.enterDocument)
	s.entry(t, session.StateTextToSpeech, s.enter(session.StateTextToSpeech, "tts.prompt"))
	s.entry(t, session.StateSpreadsheetExport, s.enter(session.StateSpreadsheetExport, "sheet.prompt"))
	s.entry(t, session.StateImageCaption, s.enter(session.StateImageCaption, "caption.prompt"))
	s.entry(t, session.StateWeather, s.enterWeather)

	t.Fallback(session.StateAIChat, s.chat)

	t.Register(session.StateDocumentAssembly, fsm.KindButton, fsm.TagDocUndo, s.undoFragment)
	t.Register(session.StateDocumentAssembly, fsm.KindButton, fsm.TagDocCommit, s.commitDocument)
	t.Fallback(session.StateDocumentAssembly, s.appendFragment)

	t.Fallback(session.StateQRCode, s.qr)
	t.Fallback(session.StateTextToSpeech, s.speak)
	t.Fallback(session.StateSpreadsheetExport, s.sheet)
	t.Fallback(session.StateImageCaption, s.captionPhoto)
	t.Register(session.StateImageCaptionText, fsm.KindText, fsm.TagNone, s.captionText)
	t.Fallback(session.StateImageCaptionText, s.captionPhoto)
	t.Fallback(session.StateWeather, s.weather)
}

// entry registers the menu routes that open a workflow. Workflow tags only
// reach the table from the main menu; the router leaves any other workflow first.
func (s *Service) entry(t *fsm.Table, state session.State, h fsm.Handler) {
	tag := fsm.WorkflowTag(state)
	t.Register(session.StateMainMenu, fsm.KindButton, tag, h)
	t.Register(session.StateMainMenu, fsm.KindText, tag, h)
}

func (s *Service) lang(sess *session.Session) string {
	if sess.Language == "" {
		return locale.DefaultLanguage
	}
	return sess.Language
}

func (s *Service) t(sess *session.Session, key string, args ...interface{}) string {
	return s.deps.Catalog.T(s.lang(sess), key, args...)
}

func (s *Service) log(ctx context.Context, sess *session.Session) zerolog.Logger {
	return tracing.LoggerFromContext(ctx, s.logger).With().
		Int64("user_id", sess.UserID).
		Str("state", string(sess.State)).
		Logger()
}

func (s *Service) send(ctx context.Context, sess *session.Session, msg Outbound) (int, error) {
	id, err := s.deps.Presenter.Send(ctx, sess.UserID, msg)
	if err != nil {
		return 0, fmt.Errorf("send %s: %w", msg.Kind, err)
	}
	return id, nil
}

// notify sends a localized text with the back button.
func (s *Service) notify(ctx context.Context, sess *session.Session, key string, args ...interface{}) error {
	msg := Text(s.t(sess, key, args...))
	msg.Inline = s.backKeyboard(sess)
	_, err := s.send(ctx, sess, msg)
	return err
}

// fail logs an adapter error and tells the user with a localized notice.
func (s *Service) fail(ctx context.Context, sess *session.Session, adapter string, err error, key string) error {
	logger := s.log(ctx, sess)
	logger.Error().Err(err).Str("adapter", adapter).Msg("Adapter call failed")
	return s.notify(ctx, sess, key)
}

// deleteQuietly retracts a message; failures are not the user's problem.
func (s *Service) deleteQuietly(ctx context.Context, sess *session.Session, messageID int) {
	if messageID == 0 {
		return
	}
	if err := s.deps.Presenter.Delete(ctx, sess.UserID, messageID); err != nil {
		logger := s.log(ctx, sess)
		logger.Debug().Err(err).Int("message_id", messageID).Msg("Failed to delete message")
	}
}

func (s *Service) download(ctx context.Context, fileID string) ([]byte, error) {
	if s.deps.Media == nil {
		return nil, fmt.Errorf("media download not configured")
	}
	return call(ctx, s.timeouts.Media, func(ctx context.Context) ([]byte, error) {
		return s.deps.Media.Download(ctx, fileID)
	})
}

// call runs fn under a timeout. fn may ignore ctx; the caller stops waiting regardless.
func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("adapter panicked: %v", r)}
			}
		}()
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// splitRunes cuts text into pieces of at most max runes.
func splitRunes(text string, max int) []string {
	runes := []rune(text)
	if len(runes) <= max {
		return []string{text}
	}
	var parts []string
	for len(runes) > 0 {
		n := max
		if len(runes) < n {
			n = len(runes)
		}
		parts = append(parts, string(runes[:n]))
		runes = runes[n:]
	}
	return parts
}
