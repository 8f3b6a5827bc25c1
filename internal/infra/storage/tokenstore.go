// Package storage persists session tokens in a local SQLite database so a
// restart does not force everyone back through the login flow.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/domain"
)

// authPrefix namespaces every auth-related key so ClearAuthData can wipe
// them in one statement without touching unrelated entries.
const authPrefix = "sb-auth/"

const sessionKey = authPrefix + "session"

// TokenStore is a small key-value table over SQLite, implementing
// port.TokenStore.
type TokenStore struct {
	db *sql.DB
}

// NewTokenStore opens (or creates) the database at path and ensures the
// kv table exists.
func NewTokenStore(path string) (*TokenStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &domain.ErrStorage{Op: "open", Err: err}
	}

	const schema = `CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &domain.ErrStorage{Op: "migrate", Err: err}
	}

	return &TokenStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *TokenStore) Close() error {
	return s.db.Close()
}

// SaveSession serializes the session and upserts it under the auth key.
func (s *TokenStore) SaveSession(session *domain.Session) error {
	if session == nil {
		return &domain.ErrStorage{Op: "save", Err: errors.New("nil session")}
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return &domain.ErrStorage{Op: "save", Err: err}
	}

	const q = `INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := s.db.Exec(q, sessionKey, string(payload)); err != nil {
		return &domain.ErrStorage{Op: "save", Err: err}
	}
	return nil
}

// LoadSession returns the stored session, or (nil, nil) when nothing is
// stored. A corrupt stored value is reported as a storage error so the
// caller can decide to clear it.
func (s *TokenStore) LoadSession() (*domain.Session, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, sessionKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.ErrStorage{Op: "load", Err: err}
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(value), &session); err != nil {
		return nil, &domain.ErrStorage{Op: "load", Err: fmt.Errorf("corrupt session payload: %w", err)}
	}
	return &session, nil
}

// DeleteSession removes the stored session. Deleting an absent session is
// not an error.
func (s *TokenStore) DeleteSession() error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, sessionKey); err != nil {
		return &domain.ErrStorage{Op: "delete", Err: err}
	}
	return nil
}

// ClearAuthData wipes every key under the auth prefix. This is the recovery
// remedy for a wedged auth state: after it runs, the next session load
// starts from a clean slate.
func (s *TokenStore) ClearAuthData() error {
	pattern := authPrefix + "%"
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key LIKE ?`, pattern); err != nil {
		return &domain.ErrStorage{Op: "clear", Err: err}
	}
	return nil
}
