package registry

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/harun/yordamchi/internal/observability"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore persists records in a SQLite database. Writes go straight to disk.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("registry: sqlite driver needs a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create registry directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open registry database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if n, err := s.Count(context.Background()); err == nil {
		observability.SetRegisteredUsers(n)
	}
	log.Debug().Str("path", path).Msg("Registry database opened")
	return s, nil
}

func runMigrations(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load registry migrations: %w", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("registry migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("registry migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate registry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Touch(ctx context.Context, p Profile) error {
	now := time.Now().UTC().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, username, first_name, first_seen, last_seen, interactions)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT(user_id) DO UPDATE SET
			username     = CASE WHEN excluded.username   != '' THEN excluded.username   ELSE users.username   END,
			first_name   = CASE WHEN excluded.first_name != '' THEN excluded.first_name ELSE users.first_name END,
			last_seen    = excluded.last_seen,
			interactions = users.interactions + 1`,
		p.UserID, p.Username, p.FirstName, now, now)
	if err != nil {
		return fmt.Errorf("touch user %d: %w", p.UserID, err)
	}
	return nil
}

func (s *SQLiteStore) SetLanguage(ctx context.Context, userID int64, lang string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET language = ? WHERE user_id = ?`, lang, userID)
	if err != nil {
		return fmt.Errorf("set language for %d: %w", userID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, userID int64) (Record, error) {
	var (
		rec                 Record
		firstSeen, lastSeen int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, username, first_name, language, first_seen, last_seen, interactions
		FROM users WHERE user_id = ?`, userID).
		Scan(&rec.UserID, &rec.Username, &rec.FirstName, &rec.Language, &firstSeen, &lastSeen, &rec.Interactions)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get user %d: %w", userID, err)
	}
	rec.FirstSeen = time.Unix(firstSeen, 0).UTC()
	rec.LastSeen = time.Unix(lastSeen, 0).UTC()
	return rec, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// Flush checkpoints the WAL so the main database file is current.
func (s *SQLiteStore) Flush(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(PASSIVE)`); err != nil {
		return fmt.Errorf("checkpoint registry: %w", err)
	}
	if n, err := s.Count(ctx); err == nil {
		observability.SetRegisteredUsers(n)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
