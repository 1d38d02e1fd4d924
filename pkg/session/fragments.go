package session

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Fragment is one piece of user text collected toward a document, with the
// platform message that carried it.
type Fragment struct {
	Text      string `json:"text"`
	MessageID int    `json:"message_id"`
}

// DocumentBuffer accumulates fragments for the document assembly workflow.
// Its methods are the only mutators; the zero value is an empty buffer.
type DocumentBuffer struct {
	fragments []Fragment
	promptID  int
}

// Append records a new fragment at the end of the buffer.
func (b *DocumentBuffer) Append(text string, messageID int) {
	b.fragments = append(b.fragments, Fragment{Text: text, MessageID: messageID})
}

// Undo pops the most recent fragment. It reports false on an empty buffer.
func (b *DocumentBuffer) Undo() (Fragment, bool) {
	if len(b.fragments) == 0 {
		return Fragment{}, false
	}
	last := b.fragments[len(b.fragments)-1]
	b.fragments = b.fragments[:len(b.fragments)-1]
	if len(b.fragments) == 0 {
		b.fragments = nil
	}
	return last, true
}

// Body joins the fragments in arrival order, one per line.
func (b *DocumentBuffer) Body() string {
	parts := make([]string, len(b.fragments))
	for i, f := range b.fragments {
		parts[i] = f.Text
	}
	return strings.Join(parts, "\n")
}

// Texts returns the fragment texts in arrival order.
func (b *DocumentBuffer) Texts() []string {
	out := make([]string, len(b.fragments))
	for i, f := range b.fragments {
		out[i] = f.Text
	}
	return out
}

// Len returns the fragment count.
func (b *DocumentBuffer) Len() int {
	return len(b.fragments)
}

// Chars returns the total character count across fragments.
func (b *DocumentBuffer) Chars() int {
	total := 0
	for _, f := range b.fragments {
		total += utf8.RuneCountInString(f.Text)
	}
	return total
}

// Empty reports whether no fragments are held.
func (b *DocumentBuffer) Empty() bool {
	return len(b.fragments) == 0
}

// PromptID returns the message id of the current "continue?" prompt, or 0.
func (b *DocumentBuffer) PromptID() int {
	return b.promptID
}

// SetPromptID remembers the latest "continue?" prompt.
func (b *DocumentBuffer) SetPromptID(id int) {
	b.promptID = id
}

// TakePromptID returns the current prompt id and forgets it.
func (b *DocumentBuffer) TakePromptID() int {
	id := b.promptID
	b.promptID = 0
	return id
}

// MessageIDs returns the inbound message ids in arrival order.
func (b *DocumentBuffer) MessageIDs() []int {
	out := make([]int, len(b.fragments))
	for i, f := range b.fragments {
		out[i] = f.MessageID
	}
	return out
}

// Clear drops every fragment and the prompt bookkeeping.
func (b *DocumentBuffer) Clear() {
	b.fragments = nil
	b.promptID = 0
}

func (b DocumentBuffer) clone() DocumentBuffer {
	out := DocumentBuffer{promptID: b.promptID}
	if len(b.fragments) > 0 {
		out.fragments = make([]Fragment, len(b.fragments))
		copy(out.fragments, b.fragments)
	}
	return out
}

type documentBufferJSON struct {
	Fragments []Fragment `json:"fragments"`
	PromptID  int        `json:"prompt_id,omitempty"`
}

func (b DocumentBuffer) MarshalJSON() ([]byte, error) {
	fragments := b.fragments
	if fragments == nil {
		fragments = []Fragment{}
	}
	return json.Marshal(documentBufferJSON{Fragments: fragments, PromptID: b.promptID})
}

func (b *DocumentBuffer) UnmarshalJSON(data []byte) error {
	var raw documentBufferJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.fragments = nil
	if len(raw.Fragments) > 0 {
		b.fragments = raw.Fragments
	}
	b.promptID = raw.PromptID
	return nil
}
