package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/petrijr/formflow/pkg/api"
)

// sqlBackend holds the queries shared by the SQLite and PostgreSQL
// backends. Queries are written with ? placeholders and rebound for the
// driver.
type sqlBackend struct {
	db *sqlx.DB
}

func (b *sqlBackend) initSchema(ctx context.Context, stmts []string) error {
	return withTx(ctx, b.db, func(tx *sqlx.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("init schema: %w", err)
			}
		}
		return nil
	})
}

func (b *sqlBackend) Storage(key string) api.Storage {
	return &sqlStorage{db: b.db, key: key}
}

// DB exposes the underlying connection.
func (b *sqlBackend) DB() *sqlx.DB { return b.db }

type sqlStorage struct {
	db  *sqlx.DB
	key string
}

var _ api.Storage = (*sqlStorage)(nil)

func (s *sqlStorage) CurrentStep(ctx context.Context) (string, error) {
	var step string
	err := s.db.GetContext(ctx, &step,
		s.db.Rebind(`SELECT current_step FROM wizard_sessions WHERE session_key = ?`), s.key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return step, err
}

func (s *sqlStorage) SetCurrentStep(ctx context.Context, step string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO wizard_sessions (session_key, current_step, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (session_key) DO UPDATE
		SET current_step = excluded.current_step, updated_at = CURRENT_TIMESTAMP`),
		s.key, step,
	)
	return err
}

func (s *sqlStorage) stepColumn(ctx context.Context, column, step string) ([]byte, error) {
	var payload []byte
	err := s.db.GetContext(ctx, &payload,
		s.db.Rebind(`SELECT `+column+` FROM wizard_steps WHERE session_key = ? AND step = ?`), s.key, step)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return payload, err
}

func (s *sqlStorage) setStepColumn(ctx context.Context, column, step string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO wizard_steps (session_key, step, `+column+`)
		VALUES (?, ?, ?)
		ON CONFLICT (session_key, step) DO UPDATE
		SET `+column+` = excluded.`+column),
		s.key, step, payload,
	)
	return err
}

func (s *sqlStorage) StepData(ctx context.Context, step string) (api.Values, error) {
	payload, err := s.stepColumn(ctx, "data", step)
	if err != nil {
		return nil, err
	}
	return decodeStepData(payload)
}

func (s *sqlStorage) SetStepData(ctx context.Context, step string, data api.Values) error {
	payload, err := EncodeValue(valuesOrNil(data))
	if err != nil {
		return err
	}
	return s.setStepColumn(ctx, "data", step, payload)
}

func (s *sqlStorage) StepFiles(ctx context.Context, step string) (api.Files, error) {
	payload, err := s.stepColumn(ctx, "files", step)
	if err != nil {
		return nil, err
	}
	return decodeStepFiles(payload)
}

func (s *sqlStorage) SetStepFiles(ctx context.Context, step string, files api.Files) error {
	payload, err := EncodeValue(filesOrNil(files))
	if err != nil {
		return err
	}
	return s.setStepColumn(ctx, "files", step, payload)
}

func (s *sqlStorage) ExtraData(ctx context.Context) (map[string]any, error) {
	var payload []byte
	err := s.db.GetContext(ctx, &payload,
		s.db.Rebind(`SELECT extra FROM wizard_sessions WHERE session_key = ?`), s.key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeExtra(payload)
}

func (s *sqlStorage) SetExtraData(ctx context.Context, extra map[string]any) error {
	payload, err := EncodeValue(extraOrNil(extra))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO wizard_sessions (session_key, current_step, extra, updated_at)
		VALUES (?, '', ?, CURRENT_TIMESTAMP)
		ON CONFLICT (session_key) DO UPDATE
		SET extra = excluded.extra, updated_at = CURRENT_TIMESTAMP`),
		s.key, payload,
	)
	return err
}

func (s *sqlStorage) Reset(ctx context.Context) error {
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM wizard_steps WHERE session_key = ?`), s.key); err != nil {
			return fmt.Errorf("delete steps: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM wizard_sessions WHERE session_key = ?`), s.key); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		return nil
	})
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

// The helpers below keep typed nils out of EncodeValue, which treats only
// an untyped nil as "nothing to store".

func valuesOrNil(v api.Values) any {
	if v == nil {
		return nil
	}
	return v
}

func filesOrNil(f api.Files) any {
	if f == nil {
		return nil
	}
	return f
}

func extraOrNil(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}
