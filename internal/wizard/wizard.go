// Package wizard implements the wizard controller: condition evaluation,
// navigation over the active step sequence, revalidation and the JSON state
// projection. A Wizard is built once and shared; every request opens a
// session over its own storage.
package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/petrijr/formflow/internal/catalog"
	"github.com/petrijr/formflow/pkg/api"
)

type wizardImpl struct {
	name       string
	names      api.StepNames
	source     *catalog.Source
	conditions api.Conditions

	mergeTagged bool
	initial     api.InitialFunc
	instance    api.InstanceFunc
	renderer    api.Renderer
	encoder     api.ValueEncoder
	done        api.DoneHandler
	files       api.FileStorage

	observer api.Observer
	logger   *slog.Logger
}

var _ api.Wizard = (*wizardImpl)(nil)

// New builds a wizard from cfg. With cfg.Steps the catalog is compiled and
// checked immediately; with cfg.StepsFactory compilation happens on first
// use and configuration errors surface from Catalog and Open.
func New(cfg api.Config) (api.Wizard, error) {
	if cfg.Steps != nil && cfg.StepsFactory != nil {
		return nil, api.Configurationf("steps and a steps factory are mutually exclusive")
	}

	names := cfg.StepNames.WithDefaults()
	opts := catalog.Options{
		Separator:   cfg.Separator,
		Reserved:    names.Reserved(),
		FileStorage: cfg.FileStorage != nil,
	}

	w := &wizardImpl{
		name:        cfg.Name,
		names:       names,
		conditions:  cfg.Conditions,
		mergeTagged: cfg.MergeTagged,
		initial:     cfg.Initial,
		instance:    cfg.Instance,
		renderer:    cfg.Renderer,
		encoder:     cfg.Encoder,
		done:        cfg.Done,
		files:       cfg.FileStorage,
		observer:    cfg.Observer,
		logger:      cfg.Logger,
	}
	if w.name == "" {
		w.name = "wizard"
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	if w.observer == nil {
		if cfg.Logger != nil {
			w.observer = api.NewLoggingObserver(cfg.Logger)
		} else {
			w.observer = api.NoopObserver{}
		}
	}
	if w.encoder == nil {
		w.encoder = api.DefaultValueEncoder
	}
	if w.renderer == nil {
		w.renderer = api.DefaultRenderer{Encode: w.encoder}
	}
	if w.done == nil {
		w.done = defaultDone
	}

	if cfg.StepsFactory != nil {
		w.source = catalog.Deferred(cfg.StepsFactory, opts)
		return w, nil
	}

	cat, err := catalog.Build(cfg.Steps, opts)
	if err != nil {
		return nil, err
	}
	if err := w.checkConditions(cat); err != nil {
		return nil, err
	}
	w.source = catalog.Resolved(cat)
	return w, nil
}

func defaultDone(_ context.Context, c *api.Completion) (any, error) {
	return c.CleanedData, nil
}

func (w *wizardImpl) Name() string { return w.name }

func (w *wizardImpl) StepNames() api.StepNames { return w.names }

// Catalog resolves the step catalog. The first successful resolution of a
// deferred catalog is logged.
func (w *wizardImpl) Catalog(ctx context.Context) (*api.Catalog, error) {
	resolved := w.source.IsResolved()
	cat, err := w.source.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if err := w.checkConditions(cat); err != nil {
		return nil, err
	}
	if !resolved {
		w.logger.Debug("catalog resolved",
			slog.String("wizard", w.name),
			slog.Int("steps", cat.Len()),
		)
	}
	return cat, nil
}

// checkConditions rejects conditions on unknown steps and on the first
// step, which must stay active so the active sequence is never empty.
func (w *wizardImpl) checkConditions(cat *api.Catalog) error {
	keys := make([]string, 0, len(w.conditions))
	for k := range w.conditions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !cat.Contains(k) {
			return api.Configurationf("condition for unknown step %q", k)
		}
		if k == cat.First() {
			return api.Configurationf("first step %q cannot be conditional", k)
		}
	}
	return nil
}

// Open loads the state kept in s. Storage failures are returned wrapped;
// once open, a session serves every read from memory.
func (w *wizardImpl) Open(ctx context.Context, s api.Storage) (api.Session, error) {
	if s == nil {
		return nil, fmt.Errorf("open %s: storage is nil", w.name)
	}
	cat, err := w.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	sess := &session{
		w:     w,
		cat:   cat,
		store: s,
		data:  make(map[string]api.Values),
		files: make(map[string]api.Files),
		bound: make(map[string]api.BoundGroup),
	}

	if sess.current, err = s.CurrentStep(ctx); err != nil {
		return nil, fmt.Errorf("load current step: %w", err)
	}
	for _, key := range cat.Keys() {
		data, err := s.StepData(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("load data of step %q: %w", key, err)
		}
		if data != nil {
			sess.data[key] = data
		}
		files, err := s.StepFiles(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("load files of step %q: %w", key, err)
		}
		if files != nil {
			sess.files[key] = files
		}
	}
	if sess.extra, err = s.ExtraData(ctx); err != nil {
		return nil, fmt.Errorf("load extra data: %w", err)
	}
	return sess, nil
}
