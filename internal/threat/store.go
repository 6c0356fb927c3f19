// Package threat - store.go persists profiles between restarts.
//
// DESIGN: The tracker operates purely in memory; a ProfileStore is only
// touched off the request path (load at startup, save on the sweep tick).
// A failed write is a transient I/O failure: logged by the caller, never
// allowed to affect in-memory state.
package threat

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ProfileStore loads and saves threat profiles.
type ProfileStore interface {
	Load() ([]ThreatProfile, error)
	Save(profile ThreatProfile) error
	Close() error
}

// =============================================================================
// SQLITE STORE
// =============================================================================

const profileSchema = `
CREATE TABLE IF NOT EXISTS threat_profiles (
	source     TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL
);`

// SQLiteStore persists profiles as JSON blobs keyed by source.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the profile database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open threat database: %w", err)
	}
	if _, err := db.Exec(profileSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create threat schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load returns all persisted profiles.
func (s *SQLiteStore) Load() ([]ThreatProfile, error) {
	rows, err := s.db.Query(`SELECT data FROM threat_profiles`)
	if err != nil {
		return nil, fmt.Errorf("load threat profiles: %w", err)
	}
	defer rows.Close()

	var profiles []ThreatProfile
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan threat profile: %w", err)
		}
		var p ThreatProfile
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode threat profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Save upserts one profile.
func (s *SQLiteStore) Save(profile ThreatProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode threat profile: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO threat_profiles (source, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		profile.Source, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save threat profile %q: %w", profile.Source, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

var _ ProfileStore = (*SQLiteStore)(nil)

// =============================================================================
// MEMORY STORE
// =============================================================================

// MemoryStore keeps profiles in a map. Used in tests and when persistence
// is disabled.
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]ThreatProfile
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: map[string]ThreatProfile{}}
}

// Load returns all stored profiles.
func (s *MemoryStore) Load() ([]ThreatProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ThreatProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	return out, nil
}

// Save upserts one profile.
func (s *MemoryStore) Save(profile ThreatProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.Source] = profile
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

var _ ProfileStore = (*MemoryStore)(nil)
