package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteQueue is a persistent Queue on SQLite. Submissions become eligible
// at not_before and are handed out oldest first.
type SQLiteQueue struct {
	db           *sqlx.DB
	pollInterval time.Duration
}

type outboxRow struct {
	ID        int64  `db:"id"`
	Payload   []byte `db:"payload"`
	NotBefore int64  `db:"not_before"`
}

// NewSQLiteQueue creates the outbox table in db and returns the queue.
func NewSQLiteQueue(db *sqlx.DB) (*SQLiteQueue, error) {
	q := &SQLiteQueue{db: db, pollInterval: 20 * time.Millisecond}
	if err := q.initSchema(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *SQLiteQueue) initSchema() error {
	_, err := q.db.Exec(`
		CREATE TABLE IF NOT EXISTS wizard_outbox (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			submission_id TEXT NOT NULL,
			wizard TEXT NOT NULL,
			payload BLOB NOT NULL,
			enqueued_at INTEGER NOT NULL,
			not_before INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create outbox table: %w", err)
	}
	return nil
}

var _ Queue = (*SQLiteQueue)(nil)

func (q *SQLiteQueue) Enqueue(ctx context.Context, s Submission) error {
	payload, err := EncodeSubmission(s)
	if err != nil {
		return fmt.Errorf("encode submission %s: %w", s.ID, err)
	}

	now := time.Now().UnixNano()
	notBefore := now
	if !s.NotBefore.IsZero() {
		notBefore = s.NotBefore.UnixNano()
	}

	_, err = q.db.ExecContext(ctx, `
		INSERT INTO wizard_outbox (submission_id, wizard, payload, enqueued_at, not_before)
		VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.Wizard, payload, now, notBefore,
	)
	return err
}

func (q *SQLiteQueue) Dequeue(ctx context.Context) (*Submission, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var row outboxRow
		err := withTx(ctx, q.db, func(tx *sqlx.Tx) error {
			if err := tx.GetContext(ctx, &row, `
				SELECT id, payload, not_before
				FROM wizard_outbox
				WHERE not_before <= ?
				ORDER BY not_before, id
				LIMIT 1`, time.Now().UnixNano()); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `DELETE FROM wizard_outbox WHERE id = ?`, row.ID)
			return err
		})
		if errors.Is(err, sql.ErrNoRows) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(q.pollInterval):
				continue
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		s, err := DecodeSubmission(row.Payload)
		if err != nil {
			return nil, fmt.Errorf("decode outbox row %d: %w", row.ID, err)
		}
		return s, nil
	}
}

func (q *SQLiteQueue) Len() int {
	var n int
	if err := q.db.Get(&n, `SELECT COUNT(*) FROM wizard_outbox`); err != nil {
		return 0
	}
	return n
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
