// Package registry keeps a best-effort record of every user the bot has seen.
//
// The registry is independent of sessions: it outlives them, and nothing in routing
// depends on it. Two backends exist: a JSON file rewritten wholesale, and SQLite.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get for unknown users.
var ErrNotFound = errors.New("registry: user not found")

// Profile is the identity carried by an inbound update.
type Profile struct {
	UserID    int64
	Username  string
	FirstName string
}

// Record is what the registry knows about a user.
type Record struct {
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username,omitempty"`
	FirstName    string    `json:"first_name,omitempty"`
	Language     string    `json:"language,omitempty"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
	Interactions int64     `json:"interactions"`
}

// Store is a registry backend.
type Store interface {
	// Touch creates the record on first sight, then bumps LastSeen and Interactions.
	Touch(ctx context.Context, p Profile) error
	// SetLanguage remembers the user's last selected language.
	SetLanguage(ctx context.Context, userID int64, lang string) error
	Get(ctx context.Context, userID int64) (Record, error)
	Count(ctx context.Context) (int, error)
	// Flush persists pending changes; a no-op for backends that write through.
	Flush(ctx context.Context) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver string // "json", "sqlite" or "none"
	Path   string
}

// Open returns the configured backend. Driver "none" yields a store that keeps nothing on disk.
func Open(cfg Config) (Store, error) {
	switch cfg.Driver {
	case "json":
		return OpenFile(cfg.Path)
	case "sqlite":
		return OpenSQLite(cfg.Path)
	case "", "none":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown registry driver %q", cfg.Driver)
	}
}
