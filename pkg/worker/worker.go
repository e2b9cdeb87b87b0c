package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/petrijr/formflow/internal/outbox"
)

// Processor delivers one submission downstream.
type Processor interface {
	Process(ctx context.Context, s *outbox.Submission) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, s *outbox.Submission) error

func (f ProcessorFunc) Process(ctx context.Context, s *outbox.Submission) error {
	return f(ctx, s)
}

// Config tunes a Worker.
type Config struct {
	Retry RetryPolicy

	// Timeout bounds a single Process call. Zero means no limit.
	Timeout time.Duration

	// RequeueTimeout bounds handing a submission back to the queue after a
	// failure or on shutdown. Zero means 5s.
	RequeueTimeout time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

const defaultRequeueTimeout = 5 * time.Second

// Worker pulls submissions from a Queue and hands them to a Processor.
type Worker struct {
	proc   Processor
	queue  outbox.Queue
	cfg    Config
	logger *slog.Logger
}

// New creates a Worker that tries every submission exactly once.
func New(proc Processor, queue outbox.Queue) *Worker {
	return NewWithConfig(proc, queue, Config{})
}

// NewWithConfig creates a Worker with explicit retry and timeout settings.
func NewWithConfig(proc Processor, queue outbox.Queue, cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		proc:   proc,
		queue:  queue,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "worker")),
	}
}

// ProcessOne pulls a single submission from the queue and processes it.
// Returns (processed, error):
//   - processed == false: nothing was processed; err is the dequeue error,
//     usually the context's.
//   - processed == true, err == nil: the submission was delivered or
//     rescheduled for another attempt.
//   - processed == true, err != nil: the last allowed attempt failed and the
//     submission was dropped.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	s, err := w.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if s == nil {
		return false, nil
	}

	if wait := time.Until(s.NotBefore); wait > 0 {
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			// Hand it back untouched so another worker can pick it up.
			if err := w.requeue(ctx, *s); err != nil {
				w.logger.Error("requeue on shutdown failed",
					slog.String("submission", s.ID), slog.Any("error", err))
			}
			return false, ctx.Err()
		}
	}

	start := time.Now()
	procErr := w.process(ctx, s)
	if procErr == nil {
		w.logger.Info("submission processed",
			slog.String("submission", s.ID),
			slog.String("wizard", s.Wizard),
			slog.Int("attempt", s.Attempts+1),
			slog.Duration("duration", time.Since(start)))
		return true, nil
	}

	s.Attempts++
	if s.Attempts >= w.cfg.Retry.attempts() {
		w.logger.Error("submission failed permanently",
			slog.String("submission", s.ID),
			slog.Int("attempts", s.Attempts),
			slog.Any("error", procErr))
		return true, fmt.Errorf("submission %s failed after %d attempts: %w", s.ID, s.Attempts, procErr)
	}

	delay := w.cfg.Retry.Delay(s.Attempts)
	s.NotBefore = time.Now().Add(delay)
	if err := w.requeue(ctx, *s); err != nil {
		return true, errors.Join(procErr, fmt.Errorf("reschedule submission %s: %w", s.ID, err))
	}
	w.logger.Warn("submission failed, retry scheduled",
		slog.String("submission", s.ID),
		slog.Int("attempts", s.Attempts),
		slog.Duration("delay", delay),
		slog.Any("error", procErr))
	return true, nil
}

// requeue puts s back even when ctx is already cancelled, but gives up
// after the requeue timeout so a full queue cannot stall shutdown.
func (w *Worker) requeue(ctx context.Context, s outbox.Submission) error {
	timeout := w.cfg.RequeueTimeout
	if timeout <= 0 {
		timeout = defaultRequeueTimeout
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	return w.queue.Enqueue(rctx, s)
}

func (w *Worker) process(ctx context.Context, s *outbox.Submission) (err error) {
	if w.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.Timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panic: %v", r)
		}
	}()
	return w.proc.Process(ctx, s)
}

// Run processes submissions until ctx is cancelled. It returns nil on
// cancellation and the queue error if dequeuing fails. Dropped submissions
// are logged and do not stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	for {
		processed, err := w.ProcessOne(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil && !processed {
			return err
		}
	}
}
