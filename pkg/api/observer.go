package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from wizard sessions for logging and metrics.
//
// Implementations should be fast and non-blocking; they run inside request
// handling.
type Observer interface {
	// OnStepSubmitted is called after a submission was validated. errs is
	// empty for valid submissions.
	OnStepSubmitted(ctx context.Context, wizard, step string, valid bool, errs map[string][]string)

	// OnNavigate is called whenever the stored cursor moves.
	OnNavigate(ctx context.Context, wizard, from, to string)

	// OnCommitCompleted is called after the done handler returned
	// successfully, before the session is reset.
	OnCommitCompleted(ctx context.Context, wizard string, steps int, duration time.Duration)

	// OnCommitRejected is called when revalidation at commit time fails at
	// step.
	OnCommitRejected(ctx context.Context, wizard, step string)

	// OnCommitFailed is called when the done handler returned an error.
	OnCommitFailed(ctx context.Context, wizard string, err error)

	// OnReset is called after a session was cleared.
	OnReset(ctx context.Context, wizard string)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnStepSubmitted(ctx context.Context, wizard, step string, valid bool, errs map[string][]string) {
}
func (NoopObserver) OnNavigate(ctx context.Context, wizard, from, to string) {}
func (NoopObserver) OnCommitCompleted(ctx context.Context, wizard string, steps int, d time.Duration) {
}
func (NoopObserver) OnCommitRejected(ctx context.Context, wizard, step string)    {}
func (NoopObserver) OnCommitFailed(ctx context.Context, wizard string, err error) {}
func (NoopObserver) OnReset(ctx context.Context, wizard string)                   {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnStepSubmitted(ctx context.Context, wizard, step string, valid bool, errs map[string][]string) {
	for _, o := range c.observers {
		o.OnStepSubmitted(ctx, wizard, step, valid, errs)
	}
}

func (c *CompositeObserver) OnNavigate(ctx context.Context, wizard, from, to string) {
	for _, o := range c.observers {
		o.OnNavigate(ctx, wizard, from, to)
	}
}

func (c *CompositeObserver) OnCommitCompleted(ctx context.Context, wizard string, steps int, d time.Duration) {
	for _, o := range c.observers {
		o.OnCommitCompleted(ctx, wizard, steps, d)
	}
}

func (c *CompositeObserver) OnCommitRejected(ctx context.Context, wizard, step string) {
	for _, o := range c.observers {
		o.OnCommitRejected(ctx, wizard, step)
	}
}

func (c *CompositeObserver) OnCommitFailed(ctx context.Context, wizard string, err error) {
	for _, o := range c.observers {
		o.OnCommitFailed(ctx, wizard, err)
	}
}

func (c *CompositeObserver) OnReset(ctx context.Context, wizard string) {
	for _, o := range c.observers {
		o.OnReset(ctx, wizard)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs session events using the
// provided slog.Logger. If logger is nil, slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnStepSubmitted(ctx context.Context, wizard, step string, valid bool, errs map[string][]string) {
	if valid {
		o.Logger.DebugContext(ctx, "step_submitted",
			slog.String("wizard", wizard),
			slog.String("step", step),
		)
		return
	}
	for field, msgs := range errs {
		for _, msg := range msgs {
			o.Logger.WarnContext(ctx, "field_error",
				slog.String("wizard", wizard),
				slog.String("step", step),
				slog.String("field", field),
				slog.String("error", msg),
			)
		}
	}
}

func (o *LoggingObserver) OnNavigate(ctx context.Context, wizard, from, to string) {
	o.Logger.DebugContext(ctx, "navigation",
		slog.String("wizard", wizard),
		slog.String("from", from),
		slog.String("to", to),
	)
}

func (o *LoggingObserver) OnCommitCompleted(ctx context.Context, wizard string, steps int, d time.Duration) {
	o.Logger.InfoContext(ctx, "commit_completed",
		slog.String("wizard", wizard),
		slog.Int("steps", steps),
		slog.Duration("duration", d),
	)
}

func (o *LoggingObserver) OnCommitRejected(ctx context.Context, wizard, step string) {
	o.Logger.WarnContext(ctx, "commit_rejected",
		slog.String("wizard", wizard),
		slog.String("step", step),
	)
}

func (o *LoggingObserver) OnCommitFailed(ctx context.Context, wizard string, err error) {
	o.Logger.ErrorContext(ctx, "commit_failed",
		slog.String("wizard", wizard),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnReset(ctx context.Context, wizard string) {
	o.Logger.DebugContext(ctx, "session_reset",
		slog.String("wizard", wizard),
	)
}

// BasicMetrics collects simple counters and the aggregate commit duration.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	submissions         atomic.Int64
	invalidSubmissions  atomic.Int64
	navigations         atomic.Int64
	commitsCompleted    atomic.Int64
	commitsRejected     atomic.Int64
	commitsFailed       atomic.Int64
	resets              atomic.Int64
	totalCommitDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	Submissions        int64
	InvalidSubmissions int64
	Navigations        int64

	CommitsCompleted int64
	CommitsRejected  int64
	CommitsFailed    int64
	Resets           int64

	AvgCommitDuration time.Duration
}

func (m *BasicMetrics) OnStepSubmitted(ctx context.Context, wizard, step string, valid bool, errs map[string][]string) {
	m.submissions.Add(1)
	if !valid {
		m.invalidSubmissions.Add(1)
	}
}

func (m *BasicMetrics) OnNavigate(ctx context.Context, wizard, from, to string) {
	m.navigations.Add(1)
}

func (m *BasicMetrics) OnCommitCompleted(ctx context.Context, wizard string, steps int, d time.Duration) {
	m.commitsCompleted.Add(1)
	m.totalCommitDuration.Add(d.Nanoseconds())
}

func (m *BasicMetrics) OnCommitRejected(ctx context.Context, wizard, step string) {
	m.commitsRejected.Add(1)
}

func (m *BasicMetrics) OnCommitFailed(ctx context.Context, wizard string, err error) {
	m.commitsFailed.Add(1)
}

func (m *BasicMetrics) OnReset(ctx context.Context, wizard string) {
	m.resets.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	completed := m.commitsCompleted.Load()
	totalNs := m.totalCommitDuration.Load()

	var avg time.Duration
	if completed > 0 {
		avg = time.Duration(totalNs / completed)
	}

	return BasicMetricsSnapshot{
		Submissions:        m.submissions.Load(),
		InvalidSubmissions: m.invalidSubmissions.Load(),
		Navigations:        m.navigations.Load(),
		CommitsCompleted:   completed,
		CommitsRejected:    m.commitsRejected.Load(),
		CommitsFailed:      m.commitsFailed.Load(),
		Resets:             m.resets.Load(),
		AvgCommitDuration:  avg,
	}
}
