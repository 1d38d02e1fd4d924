package session

import (
	"encoding/json"
	"time"
)

// MaxHistoryTurns caps the AI chat transcript. Oldest turns are evicted first.
const MaxHistoryTurns = 20

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one role-tagged message in the AI chat transcript.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// History is the bounded, ordered transcript owned by the AI chat workflow.
type History struct {
	turns []Turn
}

// Append adds a turn and drops turns from the front until the cap holds.
func (h *History) Append(role, content string) {
	h.turns = append(h.turns, Turn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	if over := len(h.turns) - MaxHistoryTurns; over > 0 {
		kept := make([]Turn, MaxHistoryTurns)
		copy(kept, h.turns[over:])
		h.turns = kept
	}
}

// AsContext returns the current window oldest-first. The system instruction is not part of it.
func (h *History) AsContext() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// WithPending returns the window a model should see for a turn that is not yet
// stored: the current turns plus the pending one, capped, and starting with a
// user turn. The history itself is unchanged.
func (h *History) WithPending(role, content string) []Turn {
	turns := make([]Turn, 0, len(h.turns)+1)
	turns = append(turns, h.turns...)
	turns = append(turns, Turn{Role: role, Content: content, Timestamp: time.Now()})
	return window(turns)
}

// window applies the cap and drops leading assistant turns so the result
// opens with a user turn.
func window(turns []Turn) []Turn {
	if over := len(turns) - MaxHistoryTurns; over > 0 {
		turns = turns[over:]
	}
	for len(turns) > 0 && turns[0].Role != RoleUser {
		turns = turns[1:]
	}
	return turns
}

// Reset empties the transcript.
func (h *History) Reset() {
	h.turns = nil
}

// Len returns the number of stored turns.
func (h *History) Len() int {
	return len(h.turns)
}

func (h History) clone() History {
	return History{turns: h.AsContext()}
}

func (h History) MarshalJSON() ([]byte, error) {
	turns := h.turns
	if turns == nil {
		turns = []Turn{}
	}
	return json.Marshal(turns)
}

func (h *History) UnmarshalJSON(data []byte) error {
	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return err
	}
	h.turns = nil
	for _, t := range turns {
		if t.Role == "" || t.Content == "" {
			continue
		}
		h.turns = append(h.turns, t)
	}
	h.turns = window(h.turns)
	if len(h.turns) == 0 {
		h.turns = nil
	}
	return nil
}
