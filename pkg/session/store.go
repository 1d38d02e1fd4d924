package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/harun/yordamchi/internal/observability"
	"github.com/rs/zerolog/log"
)

// Store keeps one Session per user in memory.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewStore creates an empty store.
func NewStore() *Store {
	observability.EnsureRegistered()
	return &Store{
		sessions: make(map[int64]*Session),
	}
}

// Get returns a copy of the user's session, creating the default one if absent.
func (s *Store) Get(userID int64) *Session {
	s.mu.RLock()
	sess, ok := s.sessions[userID]
	s.mu.RUnlock()
	if ok {
		return sess.Clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess.Clone()
	}
	sess = New(userID)
	s.sessions[userID] = sess
	observability.SetActiveSessions(len(s.sessions))
	log.Debug().Int64("user_id", userID).Msg("Session created")
	return sess.Clone()
}

// Put replaces the stored session with sess. Sessions violating invariants are rejected.
func (s *Store) Put(sess *Session) error {
	if err := sess.Validate(); err != nil {
		return fmt.Errorf("refusing to store session %d: %w", sess.UserID, err)
	}
	stored := sess.Clone()
	stored.UpdatedAt = time.Now()

	s.mu.Lock()
	s.sessions[sess.UserID] = stored
	count := len(s.sessions)
	s.mu.Unlock()

	observability.SetActiveSessions(count)
	return nil
}

// Reset overwrites the user's session with a fresh default and returns a copy of it.
func (s *Store) Reset(userID int64) *Session {
	fresh := New(userID)

	s.mu.Lock()
	s.sessions[userID] = fresh
	count := len(s.sessions)
	s.mu.Unlock()

	observability.SetActiveSessions(count)
	log.Info().Int64("user_id", userID).Msg("Session reset")
	return fresh.Clone()
}

// Len returns the number of known sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

type snapshot struct {
	SavedAt  time.Time  `json:"saved_at"`
	Sessions []*Session `json:"sessions"`
}

// SaveSnapshot writes every session to path as one JSON document (temp file + rename).
func (s *Store) SaveSnapshot(path string) error {
	s.mu.RLock()
	snap := snapshot{SavedAt: time.Now(), Sessions: make([]*Session, 0, len(s.sessions))}
	for _, sess := range s.sessions {
		snap.Sessions = append(snap.Sessions, sess.Clone())
	}
	s.mu.RUnlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	log.Debug().Str("path", path).Int("sessions", len(snap.Sessions)).Msg("Session snapshot saved")
	return nil
}

// LoadSnapshot restores sessions saved by SaveSnapshot. A missing file is not an error.
// Entries that fail validation are skipped.
func (s *Store) LoadSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to parse snapshot: %w", err)
	}

	loaded := 0
	s.mu.Lock()
	for _, sess := range snap.Sessions {
		if sess == nil || sess.UserID == 0 {
			continue
		}
		if err := sess.Validate(); err != nil {
			log.Warn().Int64("user_id", sess.UserID).Err(err).Msg("Skipping invalid snapshot entry")
			continue
		}
		s.sessions[sess.UserID] = sess
		loaded++
	}
	count := len(s.sessions)
	s.mu.Unlock()

	observability.SetActiveSessions(count)
	log.Info().Str("path", path).Int("sessions", loaded).Msg("Session snapshot loaded")
	return nil
}
