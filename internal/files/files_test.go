package files

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/formflow/pkg/api"
)

func TestStorage_SaveAndOpen(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	s := New(fs, "/uploads")

	f, err := s.Save(ctx, "page1|docs", "cv", "my cv.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)

	assert.Equal(t, "cv", f.Field)
	assert.Equal(t, "my_cv.pdf", f.Name)
	assert.Equal(t, "application/pdf", f.ContentType)
	assert.Equal(t, int64(8), f.Size)
	assert.True(t, strings.HasPrefix(f.Path, "/uploads/page1_docs/cv/"), f.Path)

	exists, err := afero.Exists(fs, f.Path)
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := s.Open(ctx, f)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(body))
}

func TestStorage_SameNameDoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	a, err := s.Save(ctx, "0", "f", "a.txt", strings.NewReader("one"))
	require.NoError(t, err)
	b, err := s.Save(ctx, "0", "f", "a.txt", strings.NewReader("two"))
	require.NoError(t, err)
	assert.NotEqual(t, a.Path, b.Path)
}

func TestStorage_PathTraversalIsNeutralised(t *testing.T) {
	ctx := context.Background()
	s := New(afero.NewMemMapFs(), "/uploads")

	f, err := s.Save(ctx, "../..", "x", "../../etc/passwd", strings.NewReader("nope"))
	require.NoError(t, err)
	assert.Equal(t, "passwd", f.Name)
	assert.True(t, strings.HasPrefix(f.Path, "/uploads/"), f.Path)

	_, err = s.Open(ctx, api.File{Path: "/etc/passwd"})
	require.ErrorIs(t, err, ErrOutsideRoot)
}

func TestStorage_MaxSize(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	s := New(fs, "/", WithMaxSize(4))

	_, err := s.Save(ctx, "0", "f", "big.bin", strings.NewReader("12345"))
	require.ErrorIs(t, err, ErrTooLarge)

	f, err := s.Save(ctx, "0", "f", "ok.bin", strings.NewReader("1234"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), f.Size)
}

func TestStorage_Remove(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	f, err := s.Save(ctx, "0", "f", "a.txt", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, s.Remove(ctx, f))
	require.NoError(t, s.Remove(ctx, f), "removing twice is fine")

	_, err = s.Open(ctx, f)
	require.Error(t, err)
}

func TestStorage_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemory().Save(ctx, "0", "f", "a.txt", strings.NewReader("x"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewOS(t *testing.T) {
	s, err := NewOS(t.TempDir())
	require.NoError(t, err)

	f, err := s.Save(context.Background(), "0", "f", "a.txt", strings.NewReader("disk"))
	require.NoError(t, err)
	rc, err := s.Open(context.Background(), f)
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "disk", string(body))
}
