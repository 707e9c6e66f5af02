package history

// SQLite-backed persistence of one serialized History per conversation key.
// The backing store is treated as a plain key-value table with a bounded
// value size, mirroring the platform's per-key storage ceiling.

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/glebarez/go-sqlite"

	"github.com/comigor/relaybot/internal/logger"
)

const (
	keySuffix = ":history"

	// Per-key value ceiling of the backing store, with a soft warning
	// threshold below it. A breach indicates oversized individual messages,
	// not a turn-cap defect, so Save warns instead of failing the turn.
	sizeLimitBytes = 9216
	sizeWarnBytes  = 8704
)

// Store persists conversation histories.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the history database at path.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_busy_timeout=10000&_fk=1")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS conversations (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL
    );`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create conversations table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the stored history for key, or an empty history when none is
// stored. A record that fails to parse is discarded (deleted) and reported as
// empty; corruption never surfaces to the caller.
func (s *Store) Load(ctx context.Context, key string) History {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM conversations WHERE key = ?;`, storageKey(key)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return History{}
	}
	if err != nil {
		logger.L.Error("history load failed", "key", key, "error", err)
		return History{}
	}

	var h History
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		logger.L.Warn("discarding corrupt history record", "key", key, "error", err)
		if _, derr := s.Delete(ctx, key); derr != nil {
			logger.L.Error("failed to delete corrupt history record", "key", key, "error", derr)
		}
		return History{}
	}
	return h
}

// Save serializes and overwrites the history for key. An empty history
// deletes the stored record instead.
func (s *Store) Save(ctx context.Context, key string, h History) error {
	if len(h) == 0 {
		_, err := s.Delete(ctx, key)
		return err
	}

	raw, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("serialize history: %w", err)
	}
	if len(raw) > sizeWarnBytes {
		logger.L.Warn("history nearing value size ceiling",
			"key", key, "bytes", len(raw), "ceiling", sizeLimitBytes)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (key, value) VALUES (?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value;`,
		storageKey(key), string(raw)); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// Delete removes the stored history for key and reports whether a record
// existed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE key = ?;`, storageKey(key))
	if err != nil {
		return false, fmt.Errorf("delete history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, nil
	}
	return n > 0, nil
}

func storageKey(key string) string {
	return key + keySuffix
}
