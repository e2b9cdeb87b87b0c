// Package files stores wizard uploads on an afero filesystem. Uploads are
// written under <root>/<step>/<field>/<id>-<name>; only the returned
// api.File reference is persisted with the step data.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/petrijr/formflow/pkg/api"
)

// ErrOutsideRoot is returned when a file reference points outside the
// storage root.
var ErrOutsideRoot = errors.New("file reference outside storage root")

// Storage implements api.FileStorage.
type Storage struct {
	fs      afero.Fs
	root    string
	maxSize int64
}

var _ api.FileStorage = (*Storage)(nil)

// Option configures a Storage.
type Option func(*Storage)

// WithMaxSize rejects uploads larger than n bytes. Zero means unlimited.
func WithMaxSize(n int64) Option {
	return func(s *Storage) { s.maxSize = n }
}

// New returns a Storage writing below root on fs.
func New(fs afero.Fs, root string, opts ...Option) *Storage {
	s := &Storage{fs: fs, root: path.Clean("/" + filepath.ToSlash(root))}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewOS stores files on the local disk below dir.
func NewOS(dir string, opts ...Option) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return New(afero.NewBasePathFs(afero.NewOsFs(), dir), "/", opts...), nil
}

// NewMemory keeps files in memory. Useful for tests and demos.
func NewMemory(opts ...Option) *Storage {
	return New(afero.NewMemMapFs(), "/", opts...)
}

// ErrTooLarge is returned by Save when an upload exceeds the size limit.
var ErrTooLarge = errors.New("uploaded file too large")

func (s *Storage) Save(ctx context.Context, step, field, name string, r io.Reader) (api.File, error) {
	if err := ctx.Err(); err != nil {
		return api.File{}, err
	}
	base := sanitize(path.Base(filepath.ToSlash(name)))
	if base == "" {
		base = "upload"
	}
	dir := path.Join(s.root, sanitize(step), sanitize(field))
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return api.File{}, fmt.Errorf("create %s: %w", dir, err)
	}
	p := path.Join(dir, uuid.NewString()+"-"+base)

	f, err := s.fs.Create(p)
	if err != nil {
		return api.File{}, fmt.Errorf("create %s: %w", p, err)
	}

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && s.maxSize > 0 && n > s.maxSize {
		err = ErrTooLarge
	}
	if err != nil {
		_ = s.fs.Remove(p)
		return api.File{}, fmt.Errorf("write %s: %w", p, err)
	}

	return api.File{
		Field:       field,
		Name:        base,
		ContentType: mime.TypeByExtension(path.Ext(base)),
		Size:        n,
		Path:        p,
	}, nil
}

func (s *Storage) Open(ctx context.Context, f api.File) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := path.Clean("/" + f.Path)
	if p != s.root && !strings.HasPrefix(p, strings.TrimSuffix(s.root, "/")+"/") {
		return nil, fmt.Errorf("open %q: %w", f.Path, ErrOutsideRoot)
	}
	rc, err := s.fs.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	return rc, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *Storage) Remove(ctx context.Context, f api.File) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.fs.Remove(path.Clean("/" + f.Path))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", f.Path, err)
	}
	return nil
}

// sanitize keeps a path segment to a safe character set.
func sanitize(seg string) string {
	var b strings.Builder
	for _, r := range seg {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), ".")
}
