package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/harun/yordamchi/internal/observability"
	"github.com/rs/zerolog/log"
)

// FileStore keeps records in memory and rewrites one JSON file, keyed by user id, on Flush.
// A FileStore without a path is purely in memory.
type FileStore struct {
	mu      sync.Mutex
	path    string
	records map[int64]*Record
	dirty   bool
}

// NewMemory returns a store that never touches disk.
func NewMemory() *FileStore {
	return &FileStore{records: make(map[int64]*Record)}
}

// OpenFile loads path if it exists.
func OpenFile(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("registry: json driver needs a path")
	}
	fs := &FileStore{path: path, records: make(map[int64]*Record)}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return fs, nil
	case err != nil:
		return nil, fmt.Errorf("read registry: %w", err)
	}

	var raw map[string]*Record
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	for key, rec := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil || rec == nil {
			log.Warn().Str("key", key).Msg("Skipping malformed registry entry")
			continue
		}
		rec.UserID = id
		fs.records[id] = rec
	}
	observability.SetRegisteredUsers(len(fs.records))
	return fs, nil
}

func (s *FileStore) Touch(ctx context.Context, p Profile) error {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[p.UserID]
	if !ok {
		rec = &Record{UserID: p.UserID, FirstSeen: now}
		s.records[p.UserID] = rec
		observability.SetRegisteredUsers(len(s.records))
	}
	if p.Username != "" {
		rec.Username = p.Username
	}
	if p.FirstName != "" {
		rec.FirstName = p.FirstName
	}
	rec.LastSeen = now
	rec.Interactions++
	s.dirty = true
	return nil
}

func (s *FileStore) SetLanguage(ctx context.Context, userID int64, lang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return ErrNotFound
	}
	rec.Language = lang
	s.dirty = true
	return nil
}

func (s *FileStore) Get(ctx context.Context, userID int64) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return *rec, nil
}

func (s *FileStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), nil
}

// Flush rewrites the whole file when anything changed since the last flush.
func (s *FileStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.path == "" || !s.dirty {
		s.mu.Unlock()
		return nil
	}
	out := make(map[string]Record, len(s.records))
	for id, rec := range s.records {
		out[strconv.FormatInt(id, 10)] = *rec
	}
	s.dirty = false
	s.mu.Unlock()

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		s.markDirty()
		return fmt.Errorf("marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		s.markDirty()
		return fmt.Errorf("create registry directory: %w", err)
	}
	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		s.markDirty()
		return fmt.Errorf("write registry: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		s.markDirty()
		return fmt.Errorf("replace registry: %w", err)
	}

	log.Debug().Str("path", s.path).Int("users", len(out)).Msg("Registry flushed")
	return nil
}

func (s *FileStore) markDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

func (s *FileStore) Close() error {
	return s.Flush(context.Background())
}
