package persistence

import (
	"context"
	"maps"
	"sync"

	"github.com/petrijr/formflow/pkg/api"
)

type memorySession struct {
	current string
	data    map[string]api.Values
	files   map[string]api.Files
	extra   map[string]any
}

// MemoryBackend is a goroutine-safe, map-backed StorageBackend. State is
// lost when the process exits.
type MemoryBackend struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
}

// Ensure MemoryBackend implements the interfaces.
var (
	_ api.StorageBackend = (*MemoryBackend)(nil)
	_ api.Storage        = (*memoryStorage)(nil)
)

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{sessions: make(map[string]*memorySession)}
}

func (b *MemoryBackend) Storage(key string) api.Storage {
	return &memoryStorage{b: b, key: key}
}

// Len returns the number of sessions holding state.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sessions)
}

// session returns the state of key, creating it when create is set. The
// caller must hold the lock.
func (b *MemoryBackend) session(key string, create bool) *memorySession {
	s, ok := b.sessions[key]
	if !ok && create {
		s = &memorySession{
			data:  make(map[string]api.Values),
			files: make(map[string]api.Files),
		}
		b.sessions[key] = s
	}
	return s
}

type memoryStorage struct {
	b   *MemoryBackend
	key string
}

func (m *memoryStorage) CurrentStep(ctx context.Context) (string, error) {
	m.b.mu.RLock()
	defer m.b.mu.RUnlock()

	if s := m.b.session(m.key, false); s != nil {
		return s.current, nil
	}
	return "", nil
}

func (m *memoryStorage) SetCurrentStep(ctx context.Context, step string) error {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()

	m.b.session(m.key, true).current = step
	return nil
}

func (m *memoryStorage) StepData(ctx context.Context, step string) (api.Values, error) {
	m.b.mu.RLock()
	defer m.b.mu.RUnlock()

	s := m.b.session(m.key, false)
	if s == nil {
		return nil, nil
	}
	return cloneValues(s.data[step]), nil
}

func (m *memoryStorage) SetStepData(ctx context.Context, step string, data api.Values) error {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()

	s := m.b.session(m.key, true)
	if data == nil {
		delete(s.data, step)
		return nil
	}
	s.data[step] = cloneValues(data)
	return nil
}

func (m *memoryStorage) StepFiles(ctx context.Context, step string) (api.Files, error) {
	m.b.mu.RLock()
	defer m.b.mu.RUnlock()

	s := m.b.session(m.key, false)
	if s == nil {
		return nil, nil
	}
	return maps.Clone(s.files[step]), nil
}

func (m *memoryStorage) SetStepFiles(ctx context.Context, step string, files api.Files) error {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()

	s := m.b.session(m.key, true)
	if files == nil {
		delete(s.files, step)
		return nil
	}
	s.files[step] = maps.Clone(files)
	return nil
}

func (m *memoryStorage) ExtraData(ctx context.Context) (map[string]any, error) {
	m.b.mu.RLock()
	defer m.b.mu.RUnlock()

	if s := m.b.session(m.key, false); s != nil {
		return maps.Clone(s.extra), nil
	}
	return nil, nil
}

func (m *memoryStorage) SetExtraData(ctx context.Context, extra map[string]any) error {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()

	m.b.session(m.key, true).extra = maps.Clone(extra)
	return nil
}

func (m *memoryStorage) Reset(ctx context.Context) error {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()

	delete(m.b.sessions, m.key)
	return nil
}

func cloneValues(v api.Values) api.Values {
	if v == nil {
		return nil
	}
	out := make(api.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
