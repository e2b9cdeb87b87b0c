package persistence

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/petrijr/formflow/pkg/api"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS wizard_sessions (
		session_key TEXT PRIMARY KEY,
		current_step TEXT NOT NULL DEFAULT '',
		extra BYTEA,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS wizard_steps (
		session_key TEXT NOT NULL,
		step TEXT NOT NULL,
		data BYTEA,
		files BYTEA,
		PRIMARY KEY (session_key, step)
	)`,
}

// PostgresBackend is a StorageBackend on PostgreSQL.
//
// It expects an *sql.DB opened with the pgx stdlib driver:
//
//	db, err := sql.Open("pgx", dsn)
type PostgresBackend struct {
	sqlBackend
}

var _ api.StorageBackend = (*PostgresBackend)(nil)

// NewPostgresBackend creates the schema in db and returns the backend.
func NewPostgresBackend(db *sql.DB) (*PostgresBackend, error) {
	b := &PostgresBackend{sqlBackend{db: sqlx.NewDb(db, "pgx")}}
	if err := b.initSchema(context.Background(), postgresSchema); err != nil {
		return nil, err
	}
	return b, nil
}
