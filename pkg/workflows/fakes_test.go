package workflows

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/harun/yordamchi/internal/locale"
	"github.com/harun/yordamchi/pkg/fsm"
	"github.com/harun/yordamchi/pkg/llm"
	"github.com/harun/yordamchi/pkg/render"
	"github.com/harun/yordamchi/pkg/session"
	"github.com/harun/yordamchi/pkg/weather"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type sent struct {
	ID  int
	Msg Outbound
}

type fakePresenter struct {
	mu       sync.Mutex
	nextID   int
	messages []sent
	deleted  []int
	failSend func(Outbound) bool
}

func (p *fakePresenter) Send(ctx context.Context, userID int64, msg Outbound) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failSend != nil && p.failSend(msg) {
		return 0, errBoom
	}
	p.nextID++
	id := 1000 + p.nextID
	p.messages = append(p.messages, sent{ID: id, Msg: msg})
	return id, nil
}

func (p *fakePresenter) Delete(ctx context.Context, userID int64, messageID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, messageID)
	return nil
}

func (p *fakePresenter) last() Outbound {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.messages) == 0 {
		return Outbound{}
	}
	return p.messages[len(p.messages)-1].Msg
}

func (p *fakePresenter) lastID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.messages[len(p.messages)-1].ID
}

func (p *fakePresenter) texts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.messages))
	for _, m := range p.messages {
		out = append(out, m.Msg.Text)
	}
	return out
}

func (p *fakePresenter) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = nil
	p.deleted = nil
}

type fakeMedia struct {
	files map[string][]byte
}

func (m *fakeMedia) Download(ctx context.Context, fileID string) ([]byte, error) {
	data, ok := m.files[fileID]
	if !ok {
		return nil, errors.New("no such file")
	}
	return data, nil
}

type fakeChat struct {
	mu     sync.Mutex
	reply  string
	err    error
	block  bool
	calls  [][]llm.Message
	system []string
}

func (c *fakeChat) Complete(ctx context.Context, system string, turns []llm.Message) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, turns)
	c.system = append(c.system, system)
	reply, err, block := c.reply, c.err, c.block
	c.mu.Unlock()
	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return reply, err
}

func (c *fakeChat) lastTurns() []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[len(c.calls)-1]
}

type fakeVision struct {
	prompt string
	mime   string
}

func (v *fakeVision) Describe(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	v.prompt = prompt
	v.mime = mimeType
	return "a cat on a sofa", nil
}

type fakeTranscriber struct {
	err error
}

func (t *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, fileName string) (string, error) {
	if t.err != nil {
		return "", t.err
	}
	return "transcribed " + string(audio), nil
}

type fakeSpeaker struct {
	lang string
}

func (s *fakeSpeaker) Speak(ctx context.Context, text, lang string) ([]byte, error) {
	s.lang = lang
	return []byte("ID3" + text), nil
}

type fakeRenderer struct {
	bodies  []string
	rows    [][][]string
	err     error
	caption string
}

func (r *fakeRenderer) QR(content string) (render.File, error) {
	if r.err != nil {
		return render.File{}, r.err
	}
	return render.File{Name: "qr.png", MIME: "image/png", Data: []byte(content)}, nil
}

func (r *fakeRenderer) Document(body string) (render.File, error) {
	if r.err != nil {
		return render.File{}, r.err
	}
	r.bodies = append(r.bodies, body)
	return render.File{Name: "doc.pdf", MIME: "application/pdf", Data: []byte(body)}, nil
}

func (r *fakeRenderer) Sheet(rows [][]string) (render.File, error) {
	if r.err != nil {
		return render.File{}, r.err
	}
	r.rows = append(r.rows, rows)
	return render.File{Name: "sheet.xlsx", Data: []byte("xlsx")}, nil
}

func (r *fakeRenderer) Caption(photo []byte, text string) (render.File, error) {
	if r.err != nil {
		return render.File{}, r.err
	}
	r.caption = string(photo) + "|" + text
	return render.File{Name: "caption.png", Data: photo}, nil
}

type fakeWeather struct {
	city string
	lat  float64
}

func (w *fakeWeather) ByCity(ctx context.Context, name, lang string) (*weather.Report, error) {
	if strings.EqualFold(name, "atlantis") {
		return nil, weather.ErrNotFound
	}
	w.city = name
	return &weather.Report{Place: name, Country: "UZ", Description: "clear sky", TempC: 21.5, FeelsLikeC: 20, Humidity: 40, WindSpeed: 3.2}, nil
}

func (w *fakeWeather) ByCoordinates(ctx context.Context, lat, lon float64, lang string) (*weather.Report, error) {
	w.lat = lat
	return &weather.Report{Place: "Samarkand", Description: "clouds", TempC: 18}, nil
}

type fakeUploader struct {
	err error
}

func (u *fakeUploader) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	return "https://files.example/" + name, nil
}

type fakeLanguages struct {
	langs map[int64]string
}

func (l *fakeLanguages) SetLanguage(ctx context.Context, userID int64, lang string) error {
	l.langs[userID] = lang
	return nil
}

type allowGate struct {
	allowed bool
}

func (g *allowGate) IsAuthorized(ctx context.Context, userID int64) bool {
	return g.allowed
}

const testUser int64 = 42

type harness struct {
	t         *testing.T
	router    *fsm.Router
	store     *session.Store
	gate      *allowGate
	presenter *fakePresenter
	chat      *fakeChat
	vision    *fakeVision
	speaker   *fakeSpeaker
	renderer  *fakeRenderer
	weather   *fakeWeather
	languages *fakeLanguages
	catalog   *locale.Catalog
	msgID     int
}

func newHarness(t *testing.T, tweak func(*Deps)) *harness {
	t.Helper()
	h := &harness{
		t:         t,
		store:     session.NewStore(),
		gate:      &allowGate{allowed: true},
		presenter: &fakePresenter{},
		chat:      &fakeChat{reply: "hi there"},
		vision:    &fakeVision{},
		speaker:   &fakeSpeaker{},
		renderer:  &fakeRenderer{},
		weather:   &fakeWeather{},
		languages: &fakeLanguages{langs: map[int64]string{}},
		catalog:   locale.MustDefault(),
	}
	deps := Deps{
		Presenter:   h.presenter,
		Media:       &fakeMedia{files: map[string][]byte{"photo-1": []byte("jpeg"), "voice-1": []byte("ogg")}},
		Catalog:     h.catalog,
		Chat:        h.chat,
		Vision:      h.vision,
		Transcriber: &fakeTranscriber{},
		Speaker:     h.speaker,
		Renderer:    h.renderer,
		Weather:     h.weather,
		Languages:   h.languages,
		Channel:     "@yordamchi_news",
		ChannelURL:  "https://t.me/yordamchi_news",
	}
	if tweak != nil {
		tweak(&deps)
	}

	table := fsm.NewTable()
	svc := New(deps)
	svc.Register(table)
	h.router = fsm.NewRouter(table, h.store, h.gate, svc)
	return h
}

func (h *harness) dispatch(ev fsm.Event) {
	h.t.Helper()
	h.msgID++
	ev.UserID = testUser
	if ev.MessageID == 0 {
		ev.MessageID = h.msgID
	}
	err := h.router.Dispatch(context.Background(), &ev)
	if err != nil && !errors.Is(err, fsm.ErrNoHandler) {
		require.NoError(h.t, err)
	}
}

func (h *harness) text(s string) {
	h.t.Helper()
	h.dispatch(fsm.Event{Kind: fsm.KindText, Text: s})
}

func (h *harness) button(tag fsm.Tag) {
	h.t.Helper()
	h.dispatch(fsm.Event{Kind: fsm.KindButton, Tag: tag})
}

func (h *harness) session() *session.Session {
	return h.store.Get(testUser)
}

// onboard selects English and opens state's workflow.
func (h *harness) onboard(state session.State) {
	h.t.Helper()
	h.dispatch(fsm.Event{Kind: fsm.KindCommand, Tag: fsm.TagStart})
	h.dispatch(fsm.Event{Kind: fsm.KindText, Tag: fsm.LanguageTag(locale.English), Text: "🇬🇧 English"})
	if state != session.StateMainMenu {
		h.button(fsm.WorkflowTag(state))
	}
	h.presenter.reset()
}

func (h *harness) en(key string, args ...interface{}) string {
	return h.catalog.T(locale.English, key, args...)
}
