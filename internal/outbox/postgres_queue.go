package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresQueue implements Queue using a PostgreSQL table. db must use the
// pgx stdlib driver.
//
// Schema (created automatically if missing):
//
//	CREATE TABLE IF NOT EXISTS wizard_outbox (
//	    id            BIGSERIAL PRIMARY KEY,
//	    submission_id TEXT NOT NULL,
//	    wizard        TEXT NOT NULL,
//	    payload       BYTEA NOT NULL,
//	    enqueued_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    not_before    TIMESTAMPTZ NOT NULL
//	);
//
// Rows are claimed with FOR UPDATE SKIP LOCKED so several workers can share
// the table.
type PostgresQueue struct {
	db           *sql.DB
	pollInterval time.Duration
}

// NewPostgresQueue creates the required schema if needed and returns a Queue.
func NewPostgresQueue(db *sql.DB) (*PostgresQueue, error) {
	q := &PostgresQueue{db: db, pollInterval: 100 * time.Millisecond}
	if err := q.initSchema(); err != nil {
		return nil, err
	}
	return q, nil
}

var _ Queue = (*PostgresQueue)(nil)

func (q *PostgresQueue) initSchema() error {
	_, err := q.db.Exec(`
		CREATE TABLE IF NOT EXISTS wizard_outbox (
			id            BIGSERIAL PRIMARY KEY,
			submission_id TEXT NOT NULL,
			wizard        TEXT NOT NULL,
			payload       BYTEA NOT NULL,
			enqueued_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			not_before    TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create outbox table: %w", err)
	}
	return nil
}

func (q *PostgresQueue) Enqueue(ctx context.Context, s Submission) error {
	data, err := EncodeSubmission(s)
	if err != nil {
		return fmt.Errorf("encode submission %s: %w", s.ID, err)
	}
	notBefore := s.NotBefore
	if notBefore.IsZero() {
		notBefore = time.Now()
	}
	_, err = q.db.ExecContext(ctx, `
		INSERT INTO wizard_outbox (submission_id, wizard, payload, not_before)
		VALUES ($1, $2, $3, $4)
	`, s.ID, s.Wizard, data, notBefore.UTC())
	return err
}

// Dequeue polls until an eligible row can be claimed or ctx is cancelled.
func (q *PostgresQueue) Dequeue(ctx context.Context) (*Submission, error) {
	// Reusable timer for idle polls; initialized stopped.
	tmr := time.NewTimer(0)
	if !tmr.Stop() {
		<-tmr.C
	}
	defer tmr.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		id, payload, err := q.claim(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			tmr.Reset(q.pollInterval)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-tmr.C:
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		s, err := DecodeSubmission(payload)
		if err != nil {
			return nil, fmt.Errorf("decode outbox row %d: %w", id, err)
		}
		return s, nil
	}
}

// claim locks the oldest eligible row and deletes it in one transaction.
func (q *PostgresQueue) claim(ctx context.Context) (int64, []byte, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, err
	}

	var (
		id      int64
		payload []byte
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, payload
		FROM wizard_outbox
		WHERE not_before <= now()
		ORDER BY not_before, id
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`).Scan(&id, &payload)
	if err != nil {
		_ = tx.Rollback()
		return 0, nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM wizard_outbox WHERE id = $1`, id); err != nil {
		_ = tx.Rollback()
		return 0, nil, err
	}
	if err := tx.Commit(); err != nil {
		return 0, nil, err
	}
	return id, payload, nil
}

// Len returns an approximate number of queued submissions.
func (q *PostgresQueue) Len() int {
	var n int
	if err := q.db.QueryRow(`SELECT COUNT(*) FROM wizard_outbox`).Scan(&n); err != nil {
		return 0
	}
	return n
}
