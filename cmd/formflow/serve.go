package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/petrijr/formflow/internal/config"
	"github.com/petrijr/formflow/internal/definition"
	"github.com/petrijr/formflow/internal/httpapi"
	"github.com/petrijr/formflow/internal/logging"
	"github.com/petrijr/formflow/internal/outbox"
	"github.com/petrijr/formflow/internal/wizard"
	"github.com/petrijr/formflow/pkg/api"
	"github.com/petrijr/formflow/pkg/worker"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a wizard definition over HTTP",
		Long: `Serve a YAML wizard definition with the JSON state API.

Storage, uploads and the submission outbox are configured through the
config file or FORMFLOW_* environment variables, for example:

  FORMFLOW_STORAGE_DRIVER=redis FORMFLOW_STORAGE_DSN=localhost:6379 \
    formflow serve --definition signup.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServeConfig(cmd)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logger)
		},
	}

	cmd.Flags().String("definition", "", "wizard definition YAML (overrides wizard.definition)")
	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	return cmd
}

func loadServeConfig(cmd *cobra.Command) (*config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	v, err := config.NewViper(file)
	if err != nil {
		return nil, err
	}
	if err := v.BindPFlag("wizard.definition", cmd.Flags().Lookup("definition")); err != nil {
		return nil, err
	}
	if err := v.BindPFlag("server.addr", cmd.Flags().Lookup("addr")); err != nil {
		return nil, err
	}
	return config.Load(v)
}

// app is everything serve starts, minus the listener.
type app struct {
	handler http.Handler
	metrics *api.BasicMetrics
	workers []*worker.Worker
	closers []closer
}

func (a *app) close(logger *slog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("close failed", slog.Any("error", err))
		}
	}
}

// buildApp wires the wizard, its storage, uploads and outbox into an HTTP
// handler.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	if cfg.Wizard.Definition == "" {
		return nil, errors.New("no wizard definition: pass --definition or set wizard.definition")
	}
	def, err := definition.LoadFile(cfg.Wizard.Definition)
	if err != nil {
		return nil, err
	}
	wcfg, err := def.Config()
	if err != nil {
		return nil, err
	}

	a := &app{metrics: &api.BasicMetrics{}}
	ok := false
	defer func() {
		if !ok {
			a.close(logger)
		}
	}()

	backend, closeBackend, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	a.closers = append(a.closers, closeBackend)

	uploads, err := openFiles(cfg.Files)
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}

	wcfg.FileStorage = uploads
	wcfg.Logger = logger
	wcfg.Observer = api.NewCompositeObserver(api.NewLoggingObserver(logger), a.metrics)

	if cfg.Outbox.Enabled {
		q, closeQueue, err := openOutbox(ctx, cfg.Outbox)
		if err != nil {
			return nil, fmt.Errorf("outbox: %w", err)
		}
		a.closers = append(a.closers, closeQueue)
		wcfg.Done = outbox.Handler(wcfg.Name, q)

		wc := worker.Config{
			Retry: worker.Retry(cfg.Outbox.MaxAttempts).
				WithExponentialBackoff(cfg.Outbox.Backoff, 2, cfg.Outbox.MaxBackoff).
				Policy(),
			Timeout: cfg.Outbox.Timeout,
			Logger:  logger,
		}
		for range cfg.Outbox.Workers {
			a.workers = append(a.workers, worker.NewWithConfig(logProcessor(logger), q, wc))
		}
	}

	wiz, err := wizard.New(wcfg)
	if err != nil {
		return nil, err
	}

	srv := httpapi.New(wiz, backend, httpapi.Options{
		CookieName:   cfg.Server.CookieName,
		CookiePath:   cfg.Server.BasePath,
		CookieSecure: cfg.Server.CookieSecure,
		MaxMemory:    cfg.Server.MaxMemory,
		Files:        uploads,
		Logger:       logger,
	})

	a.handler = srv
	if base := strings.TrimSuffix(cfg.Server.BasePath, "/"); base != "" {
		r := chi.NewRouter()
		r.Mount(base, srv)
		a.handler = r
	}

	ok = true
	return a, nil
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close(logger)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for _, w := range a.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(workerCtx); err != nil {
				logger.Error("worker stopped", slog.Any("error", err))
			}
		}()
	}
	defer func() {
		stopWorkers()
		wg.Wait()
	}()

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.Server.Addr), slog.String("base_path", cfg.Server.BasePath))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	m := a.metrics.Snapshot()
	logger.Info("wizard metrics",
		slog.Int64("submissions", m.Submissions),
		slog.Int64("invalid_submissions", m.InvalidSubmissions),
		slog.Int64("commits_completed", m.CommitsCompleted),
		slog.Int64("commits_rejected", m.CommitsRejected),
		slog.Duration("avg_commit", m.AvgCommitDuration))
	return nil
}
