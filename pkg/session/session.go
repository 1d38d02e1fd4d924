package session

import (
	"fmt"
	"time"
)

// Session is the per-user record every handler reads and mutates.
type Session struct {
	UserID    int64          `json:"user_id"`
	State     State          `json:"state"`
	Language  string         `json:"language,omitempty"`
	History   History        `json:"history"`
	Fragments DocumentBuffer `json:"fragments"`
	// HeldPhoto carries a photo file id from StateImageCaption to StateImageCaptionText.
	HeldPhoto string    `json:"held_photo,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns the default session for a user: awaiting language, nothing collected.
func New(userID int64) *Session {
	return &Session{
		UserID:    userID,
		State:     StateAwaitingLanguage,
		UpdatedAt: time.Now(),
	}
}

// Clone returns a deep copy so callers can mutate freely before Put.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.History = s.History.clone()
	out.Fragments = s.Fragments.clone()
	return &out
}

// LeaveWorkflow drops all workflow-owned data and parks the session on the main menu.
func (s *Session) LeaveWorkflow() {
	s.History.Reset()
	s.Fragments.Clear()
	s.HeldPhoto = ""
	s.State = StateMainMenu
}

// Validate checks the invariants a stored session must satisfy.
func (s *Session) Validate() error {
	if s == nil {
		return fmt.Errorf("session is nil")
	}
	if !s.State.Valid() {
		return fmt.Errorf("invalid session state %q", s.State)
	}
	if s.History.Len() > MaxHistoryTurns {
		return fmt.Errorf("history has %d turns, cap is %d", s.History.Len(), MaxHistoryTurns)
	}
	if !s.Fragments.Empty() && s.State != StateDocumentAssembly {
		return fmt.Errorf("document fragments held outside document assembly (state %s)", s.State)
	}
	return nil
}
