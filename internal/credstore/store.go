// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package credstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// =============================================================================
// TYPES
// =============================================================================

// Credential is a stored service credential.
type Credential struct {
	Token    string
	Username string
}

// Store persists a single credential and dispatches logout notifications.
// All methods are safe for concurrent use.
type Store struct {
	db *sql.DB

	mu        sync.Mutex
	observers []observer
	nextObsID int
}

// observer pairs a callback with a registration id so unsubscribe can remove
// exactly one entry.
type observer struct {
	id int
	fn func()
}

// =============================================================================
// OPEN / CLOSE
// =============================================================================

// Open opens (creating if necessary) the credential database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create credential directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential database: %w", err)
	}

	// Serialized access; the store holds tiny data and the driver is
	// happiest with a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS credentials (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create credentials table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// CREDENTIAL ACCESS
// =============================================================================

// Credential returns the stored credential. ok is false when no credential
// is stored or only part of one is present on disk; a partial credential is
// treated as absent, never surfaced.
func (s *Store) Credential() (Credential, bool) {
	rows, err := s.db.Query(`SELECT key, value FROM credentials WHERE key IN ('token', 'username')`)
	if err != nil {
		return Credential{}, false
	}
	defer rows.Close()

	var cred Credential
	var haveToken, haveUsername bool
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Credential{}, false
		}
		switch key {
		case "token":
			cred.Token = value
			haveToken = true
		case "username":
			cred.Username = value
			haveUsername = true
		}
	}
	if err := rows.Err(); err != nil {
		return Credential{}, false
	}
	if !haveToken || !haveUsername {
		return Credential{}, false
	}
	return cred, true
}

// Token returns the stored access token. It satisfies the token source
// needed by the API client.
func (s *Store) Token() (string, bool) {
	cred, ok := s.Credential()
	if !ok {
		return "", false
	}
	return cred.Token, true
}

// SetCredential stores the credential, replacing any previous one. Both
// fields are written in one transaction so a crash cannot leave half a
// credential behind.
func (s *Store) SetCredential(cred Credential) error {
	if cred.Token == "" || cred.Username == "" {
		return fmt.Errorf("credential requires both token and username")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const upsert = `
		INSERT INTO credentials (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := tx.Exec(upsert, "token", cred.Token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	if _, err := tx.Exec(upsert, "username", cred.Username); err != nil {
		return fmt.Errorf("failed to store username: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit credential: %w", err)
	}
	return nil
}

// =============================================================================
// LOGOUT
// =============================================================================

// Clear removes the stored credential and then invokes every logout observer
// in registration order. Observers run only after the deletion has been
// persisted. Clearing an empty store still notifies observers.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM credentials`); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}

	// Snapshot under lock, invoke outside it so observers may subscribe or
	// unsubscribe without deadlocking.
	s.mu.Lock()
	callbacks := make([]func(), len(s.observers))
	for i, obs := range s.observers {
		callbacks[i] = obs.fn
	}
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	return nil
}

// SubscribeOnLogout registers fn to run after the credential is cleared.
// Observers run in registration order. The returned function removes the
// subscription and is safe to call more than once.
func (s *Store) SubscribeOnLogout(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers = append(s.observers, observer{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, obs := range s.observers {
			if obs.id == id {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}
