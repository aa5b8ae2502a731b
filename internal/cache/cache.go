package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/maypok86/otter"
	"github.com/mvp-joe/codebrain/internal/knowledge"
)

// ErrInvalidCapacity indicates a negative in-memory capacity.
var ErrInvalidCapacity = errors.New("invalid cache capacity")

// Store caches per-file analyses in two tiers: a bounded in-memory tier that
// survives between passes of one process (watch mode), and an optional SQLite
// tier that survives between processes. Both tiers key entries by file path and
// content hash, so a changed file never hits a stale entry.
type Store struct {
	db     *sql.DB
	memory *otter.Cache[string, *knowledge.FileAnalysis]
}

// Open creates a store. An empty dbPath disables the SQLite tier; ":memory:" is
// accepted for tests. memoryEntries of zero disables the in-memory tier.
func Open(dbPath string, memoryEntries int) (*Store, error) {
	if memoryEntries < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, memoryEntries)
	}

	s := &Store{}

	if memoryEntries > 0 {
		mem, err := otter.MustBuilder[string, *knowledge.FileAnalysis](memoryEntries).Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build memory cache: %w", err)
		}
		s.memory = &mem
	}

	if dbPath != "" {
		db, err := openDB(dbPath)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.db = db
	}

	return s, nil
}

func openDB(dbPath string) (*sql.DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps ":memory:" shared.
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Get returns the analysis stored for path at hash.
func (s *Store) Get(path, hash string) (*knowledge.FileAnalysis, bool) {
	key := entryKey(path, hash)
	if s.memory != nil {
		if fa, ok := s.memory.Get(key); ok {
			return fa, true
		}
	}

	if s.db == nil {
		return nil, false
	}

	var blob []byte
	err := sq.Select("analysis").
		From("file_analyses").
		Where(sq.Eq{"file_path": path, "content_hash": hash}).
		RunWith(s.db).
		QueryRow().
		Scan(&blob)
	if err != nil {
		return nil, false
	}

	var fa knowledge.FileAnalysis
	if err := json.Unmarshal(blob, &fa); err != nil {
		return nil, false
	}

	if s.memory != nil {
		s.memory.Set(key, &fa)
	}
	return &fa, true
}

// Put stores the analysis of path at hash, replacing any entry for an older hash.
func (s *Store) Put(path, hash string, analysis *knowledge.FileAnalysis) error {
	if s.memory != nil {
		s.memory.Set(entryKey(path, hash), analysis)
	}

	if s.db == nil {
		return nil
	}

	blob, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis for %s: %w", path, err)
	}

	_, err = sq.Insert("file_analyses").
		Columns("file_path", "content_hash", "analysis", "indexed_at").
		Values(path, hash, blob, time.Now().UTC().Format(time.RFC3339)).
		Options("OR REPLACE").
		RunWith(s.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to write analysis for %s: %w", path, err)
	}
	return nil
}

// Len returns the number of files held in the SQLite tier.
func (s *Store) Len() (int, error) {
	if s.db == nil {
		return 0, nil
	}

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM file_analyses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}

// Clear removes every entry from both tiers.
func (s *Store) Clear() error {
	if s.memory != nil {
		s.memory.Clear()
	}
	if s.db == nil {
		return nil
	}
	if _, err := s.db.Exec(`DELETE FROM file_analyses`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Close releases both tiers.
func (s *Store) Close() error {
	if s.memory != nil {
		s.memory.Close()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
