package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/petrijr/formflow/pkg/api"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS wizard_sessions (
		session_key TEXT PRIMARY KEY,
		current_step TEXT NOT NULL DEFAULT '',
		extra BLOB,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS wizard_steps (
		session_key TEXT NOT NULL,
		step TEXT NOT NULL,
		data BLOB,
		files BLOB,
		PRIMARY KEY (session_key, step)
	)`,
}

// SQLiteBackend is a StorageBackend on SQLite through the pure Go
// modernc.org/sqlite driver.
type SQLiteBackend struct {
	sqlBackend
}

var _ api.StorageBackend = (*SQLiteBackend)(nil)

// NewSQLiteBackend creates the schema in db and returns the backend.
func NewSQLiteBackend(db *sqlx.DB) (*SQLiteBackend, error) {
	b := &SQLiteBackend{sqlBackend{db: db}}
	if err := b.initSchema(context.Background(), sqliteSchema); err != nil {
		return nil, err
	}
	return b, nil
}

// OpenSQLite opens the SQLite database at path. ":memory:" opens a private
// in-memory database restricted to one connection.
func OpenSQLite(path string, busyTimeout time.Duration) (*sqlx.DB, error) {
	busy := int(busyTimeout / time.Millisecond)
	if busy <= 0 {
		busy = 5000
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", path, busy)
	if path == ":memory:" {
		dsn = ":memory:"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}
