package fsm

import (
	"strings"
	"time"

	"github.com/harun/yordamchi/pkg/session"
)

// Kind is the modality of an inbound event.
type Kind string

const (
	KindText     Kind = "text"
	KindPhoto    Kind = "photo"
	KindVoice    Kind = "voice"
	KindDocument Kind = "document"
	KindLocation Kind = "location"
	KindButton   Kind = "button"
	KindCommand  Kind = "command"
)

// Tag is a command recognized at classification time. Free text carries TagNone.
type Tag string

const (
	TagNone        Tag = ""
	TagStart       Tag = "start"
	TagBack        Tag = "back"
	TagMenu        Tag = "menu"
	TagDocCommit   Tag = "doc_commit"
	TagDocUndo     Tag = "doc_undo"
	TagGateRecheck Tag = "gate_recheck"

	languageTagPrefix = "language:"
	workflowTagPrefix = "workflow:"
)

// LanguageTag returns the tag that selects lang.
func LanguageTag(lang string) Tag {
	return Tag(languageTagPrefix + lang)
}

// WorkflowTag returns the tag that opens the workflow owning state.
func WorkflowTag(state session.State) Tag {
	return Tag(workflowTagPrefix + string(state.Workflow()))
}

// Language returns the language code carried by a language tag.
func (t Tag) Language() (string, bool) {
	lang, ok := strings.CutPrefix(string(t), languageTagPrefix)
	if !ok || lang == "" {
		return "", false
	}
	return lang, true
}

// Workflow returns the workflow state carried by a workflow tag.
func (t Tag) Workflow() (session.State, bool) {
	name, ok := strings.CutPrefix(string(t), workflowTagPrefix)
	if !ok {
		return "", false
	}
	state := session.State(name)
	if !state.IsWorkflow() {
		return "", false
	}
	return state, true
}

// Location is a shared geographic point.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Event is one inbound update after classification.
type Event struct {
	UpdateID   int
	UserID     int64
	MessageID  int
	CallbackID string
	Kind       Kind
	Tag        Tag
	// Text is the message text, or the caption for media.
	Text string
	// FileID references platform-hosted media for photo, voice and document events.
	FileID     string
	FileName   string
	MimeType   string
	Location   *Location
	ReceivedAt time.Time
}

// IsCommand reports whether the event carries a recognized command tag.
func (e *Event) IsCommand() bool {
	return e.Tag != TagNone
}
