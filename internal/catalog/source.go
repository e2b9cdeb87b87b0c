package catalog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/petrijr/formflow/pkg/api"
)

// Source yields the catalog of a wizard. It is either resolved up front or
// holds a factory that runs at most once, on first Resolve, after which the
// result (catalog or error) is frozen.
type Source struct {
	once    sync.Once
	factory api.SpecFactory
	opts    Options

	cat      *api.Catalog
	err      error
	resolved atomic.Bool
}

// Resolved returns a Source over an already built catalog.
func Resolved(cat *api.Catalog) *Source {
	s := &Source{cat: cat}
	s.once.Do(func() {})
	s.resolved.Store(true)
	return s
}

// Deferred returns a Source that compiles the spec produced by factory on
// first use.
func Deferred(factory api.SpecFactory, opts Options) *Source {
	return &Source{factory: factory, opts: opts}
}

// Resolve returns the catalog, running the factory if this is the first call.
// The factory sees ctx's values but not its cancellation, since its result
// is kept for every later caller.
func (s *Source) Resolve(ctx context.Context) (*api.Catalog, error) {
	s.once.Do(func() {
		defer s.resolved.Store(true)
		defer func() {
			if r := recover(); r != nil {
				s.cat = nil
				s.err = api.Configurationf("step factory panicked: %v", r)
			}
		}()
		if s.factory == nil {
			s.err = api.Configurationf("no step specification or factory configured")
			return
		}
		spec, err := s.factory(context.WithoutCancel(ctx))
		if err != nil {
			s.err = &api.ConfigurationError{Reason: fmt.Sprintf("step factory: %v", err)}
			return
		}
		s.cat, s.err = Build(spec, s.opts)
	})
	return s.cat, s.err
}

// IsResolved reports whether Resolve already produced a result.
func (s *Source) IsResolved() bool {
	return s.resolved.Load()
}
