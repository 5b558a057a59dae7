package checkpoint

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/a2a-aptos/bidagent/internal/logging"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS monitor_cursor (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	last_processed_sequence_number INTEGER NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteStore stores the cursor in a one-row SQLite table.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *logging.Logger
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	o := buildOptions(opts)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create checkpoint directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=FULL")
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create checkpoint schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		path:   path,
		logger: o.logger.WithComponent("checkpoint"),
	}, nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context) uint64 {
	var seq int64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_processed_sequence_number FROM monitor_cursor WHERE id = 1`).Scan(&seq)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logger.Warn("checkpoint unreadable, starting from 0", "path", s.path, "error", err)
		}
		return 0
	}
	if seq < 0 {
		s.logger.Warn("checkpoint holds a negative cursor, starting from 0", "path", s.path, "value", seq)
		return 0
	}
	return uint64(seq)
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, seq uint64) error {
	if seq > math.MaxInt64 {
		return fmt.Errorf("sequence number %d exceeds sqlite integer range", seq)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO monitor_cursor (id, last_processed_sequence_number, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			last_processed_sequence_number = excluded.last_processed_sequence_number,
			updated_at = excluded.updated_at`,
		int64(seq), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
