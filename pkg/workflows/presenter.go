package workflows

import (
	"context"

	"github.com/harun/yordamchi/pkg/fsm"
	"github.com/harun/yordamchi/pkg/render"
)

// ContentKind is the shape of an outbound message.
type ContentKind string

const (
	ContentText     ContentKind = "text"
	ContentPhoto    ContentKind = "photo"
	ContentAudio    ContentKind = "audio"
	ContentDocument ContentKind = "document"
)

// Button is an inline action. A button with a URL opens it instead of sending Tag.
type Button struct {
	Label string
	Tag   fsm.Tag
	URL   string
}

// ReplyButton is a persistent keyboard key that sends its label as text.
type ReplyButton struct {
	Label           string
	RequestLocation bool
}

// Outbound is one message to a user. Text is the body of a text message and the
// caption of anything else.
type Outbound struct {
	Kind   ContentKind
	Text   string
	File   *render.File
	Inline [][]Button
	Reply  [][]ReplyButton
}

// Presenter delivers messages to users.
type Presenter interface {
	// Send delivers msg and returns the platform message id.
	Send(ctx context.Context, userID int64, msg Outbound) (int, error)
	// Delete retracts an earlier message.
	Delete(ctx context.Context, userID int64, messageID int) error
}

// MediaFetcher downloads platform-hosted media by file id.
type MediaFetcher interface {
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Text builds a plain text message.
func Text(text string) Outbound {
	return Outbound{Kind: ContentText, Text: text}
}
