package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/formflow/pkg/api"
)

func newTestSQLiteBackend(t *testing.T) *SQLiteBackend {
	t.Helper()

	db, err := OpenSQLite(":memory:", 0)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	b, err := NewSQLiteBackend(db)
	if err != nil {
		t.Fatalf("NewSQLiteBackend failed: %v", err)
	}
	return b
}

func TestSQLiteBackend_Contract(t *testing.T) {
	runStorageContract(t, newTestSQLiteBackend(t))
}

func TestSQLiteBackend_SchemaIsIdempotent(t *testing.T) {
	b := newTestSQLiteBackend(t)
	_, err := NewSQLiteBackend(b.DB())
	require.NoError(t, err)
}

func TestSQLiteBackend_StepRowsPerSession(t *testing.T) {
	ctx := context.Background()
	b := newTestSQLiteBackend(t)
	s := b.Storage("k")

	require.NoError(t, s.SetStepData(ctx, "0", api.Values{"a": {"1"}}))
	require.NoError(t, s.SetStepFiles(ctx, "0", api.Files{"f": {Name: "f.txt"}}))
	require.NoError(t, s.SetStepData(ctx, "1", api.Values{"b": {"2"}}))

	var n int
	require.NoError(t, b.DB().GetContext(ctx, &n, `SELECT COUNT(*) FROM wizard_steps WHERE session_key = ?`, "k"))
	require.Equal(t, 2, n)

	require.NoError(t, s.Reset(ctx))
	require.NoError(t, b.DB().GetContext(ctx, &n, `SELECT COUNT(*) FROM wizard_steps WHERE session_key = ?`, "k"))
	require.Equal(t, 0, n)
}
