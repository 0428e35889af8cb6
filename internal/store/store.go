// Package store persists deployed agent definitions. Built-in agents
// live in the registry; agents created through the API land here and
// survive restarts.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lightenlabs/feather/internal/agent"
)

// ErrNotFound reports a deployed agent that does not exist.
var ErrNotFound = errors.New("deployed agent not found")

// Store handles deployed agent persistence
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the sqlite database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS deployed_agents (
		id TEXT PRIMARY KEY,
		definition TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts or replaces a deployed agent definition.
func (s *Store) Put(def *agent.Definition) error {
	if def.ID == "" {
		return fmt.Errorf("definition missing id")
	}
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.Exec(
		`INSERT INTO deployed_agents (id, definition, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET definition = excluded.definition, updated_at = excluded.updated_at`,
		def.ID, string(data), now, now,
	)
	if err != nil {
		return fmt.Errorf("store definition: %w", err)
	}
	return nil
}

// Get returns the deployed agent definition for id.
func (s *Store) Get(id string) (*agent.Definition, error) {
	var data string
	err := s.db.QueryRow(`SELECT definition FROM deployed_agents WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query definition: %w", err)
	}

	var def agent.Definition
	if err := json.Unmarshal([]byte(data), &def); err != nil {
		return nil, fmt.Errorf("decode definition %s: %w", id, err)
	}
	return &def, nil
}

// List returns all deployed agent definitions, newest first.
func (s *Store) List() ([]*agent.Definition, error) {
	rows, err := s.db.Query(`SELECT definition FROM deployed_agents ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var defs []*agent.Definition
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan definition: %w", err)
		}
		var def agent.Definition
		if err := json.Unmarshal([]byte(data), &def); err != nil {
			return nil, fmt.Errorf("decode definition: %w", err)
		}
		defs = append(defs, &def)
	}
	return defs, rows.Err()
}

// Delete removes a deployed agent definition.
func (s *Store) Delete(id string) error {
	result, err := s.db.Exec(`DELETE FROM deployed_agents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete definition: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
