// Package draft persists the form's work-in-progress values between
// sessions: a single named draft, overwritten on every change,
// last-write-wins. File selections are never persisted.
package draft

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const (
	// SchemaVersion tags the payload layout; a stored draft with a
	// different version is discarded rather than half-decoded.
	SchemaVersion = 1

	// DefaultName is the fixed key the form reads and writes.
	DefaultName = "imageGeneratorFormData"
)

// fileFields are not serializable and are stripped explicitly before
// persisting, never left to a silent serialization failure.
var fileFields = []string{"background_image", "user_photo"}

type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open draft db: %w", err)
	}
	const schema = `CREATE TABLE IF NOT EXISTS drafts (
		name       TEXT PRIMARY KEY,
		version    INTEGER NOT NULL,
		payload    TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create drafts table: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Save overwrites the named draft with values, minus file references.
func (s *Store) Save(name string, values map[string]any) error {
	for _, f := range fileFields {
		delete(values, f)
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO drafts(name, version, payload, updated_at) VALUES(?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(name) DO UPDATE SET version=excluded.version, payload=excluded.payload, updated_at=excluded.updated_at`,
		name, SchemaVersion, string(payload))
	return err
}

// Load returns the named draft, or nil when none exists or the stored
// schema version no longer matches.
func (s *Store) Load(name string) (map[string]any, error) {
	var version int
	var payload string
	err := s.db.QueryRow(`SELECT version, payload FROM drafts WHERE name = ?`, name).
		Scan(&version, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if version != SchemaVersion {
		s.logger.Warn("discarding draft with stale schema version",
			zap.String("name", name), zap.Int("version", version))
		return nil, nil
	}
	var values map[string]any
	if err := json.Unmarshal([]byte(payload), &values); err != nil {
		return nil, fmt.Errorf("unmarshal draft: %w", err)
	}
	return values, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
