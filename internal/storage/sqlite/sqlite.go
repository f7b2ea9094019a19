package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/hasna/convo/internal/storage"
)

//go:embed schema.sql
var schema string

// busyTimeout bounds how long a writer waits on the file lock before the
// driver reports SQLITE_BUSY.
const busyTimeout = 5 * time.Second

// Store is the SQLite-backed message store. One Store owns one connection;
// SQLite is single-writer, so the pool is capped at a single conn and all
// pragmas apply to it.
type Store struct {
	db   dbHandle
	path string
	log  zerolog.Logger
}

// Compile-time interface check.
var _ storage.Store = (*Store)(nil)

// New opens or creates the database file at path, applies pragmas and the
// schema, and returns a usable store. The parent directory is created if
// missing.
func New(path string, log zerolog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: db path required", storage.ErrInvalidArgument)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create db dir: %v", storage.ErrStorageUnavailable, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", storage.ErrStorageUnavailable, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping db: %v", storage.ErrStorageUnavailable, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("wal mode: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout.Milliseconds())); err != nil {
		db.Close()
		return nil, fmt.Errorf("busy timeout: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: &queryLogger{inner: db, log: log}, path: path, log: log}, nil
}

// applySchema brings the database up to the current schema. Table and
// index creation is idempotent; databases created before the channel
// column existed get it added first so the channel index can apply.
func applySchema(db *sql.DB) error {
	if err := migrateChannelColumn(db); err != nil {
		return err
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func migrateChannelColumn(db *sql.DB) error {
	rows, err := db.Query(`PRAGMA table_info(messages)`)
	if err != nil {
		return fmt.Errorf("inspect messages table: %w", err)
	}
	defer rows.Close()

	var exists, hasChannel bool
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return fmt.Errorf("scan table info: %w", err)
		}
		exists = true
		if name == "channel" {
			hasChannel = true
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("table info: %w", err)
	}
	if !exists || hasChannel {
		return nil
	}
	if _, err := db.Exec(`ALTER TABLE messages ADD COLUMN channel TEXT`); err != nil {
		return fmt.Errorf("add channel column: %w", err)
	}
	return nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Close releases the connection. Safe to call more than once; a new store
// can be opened on the same path afterwards.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}
