package navigation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/solatis/waypoint/internal/types"
)

/*
 * Navigation listeners.
 *
 * Listeners observe every completed navigation, successful or not. They are
 * injected at construction (WithListener) and called synchronously in
 * registration order after the transition has been applied.
 *
 * The set is closed:
 *   - LogListener: one structured log line per navigation
 *   - MetricsListener: prometheus counters and a latency histogram
 *   - AuditListener: persists an AuditRecord through an EventRecorder
 *
 * A listener never changes the result; its own failures are logged and dropped.
 */

// Event describes one completed navigation.
type Event struct {
	Request  Request
	Result   *Result // partial when Err is set
	Err      error
	Started  time.Time
	Duration time.Duration
}

// Listener observes navigations.
type Listener interface {
	Navigated(ctx context.Context, ev Event)

	isListener()
}

// LogListener writes one log record per navigation.
type LogListener struct {
	Logger *slog.Logger
}

func (l LogListener) Navigated(ctx context.Context, ev Event) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []slog.Attr{
		slog.String("from", ev.Result.From),
		slog.String("action", ev.Request.ActionRef),
		slog.String("outcome", ev.Request.Outcome),
		slog.Duration("duration", ev.Duration),
	}
	if ev.Err != nil {
		attrs = append(attrs, slog.String("error", ev.Err.Error()))
		logger.LogAttrs(ctx, slog.LevelWarn, "navigation failed", attrs...)
		return
	}

	attrs = append(attrs,
		slog.String("to", ev.Result.Target.PageID),
		slog.String("kind", ev.Result.Kind.String()),
		slog.Bool("implicit", ev.Result.Implicit),
		slog.Bool("recovered", ev.Result.Recovered),
	)
	logger.LogAttrs(ctx, slog.LevelInfo, "navigation", attrs...)
}

func (LogListener) isListener() {}

const metricsNamespace = "waypoint"

// MetricsListener records navigation counts and latency.
type MetricsListener struct {
	navigations *prometheus.CounterVec
	recoveries  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetricsListener creates the navigation collectors and registers them
// with reg.
func NewMetricsListener(reg prometheus.Registerer) (*MetricsListener, error) {
	m := &MetricsListener{
		navigations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "navigations_total",
				Help:      "Total number of navigations by transition kind",
			},
			[]string{"kind", "status"}, // status: success, no_match, error
		),
		recoveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "recoveries_total",
				Help:      "Total number of navigations that started without a current page",
			},
			[]string{"status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "navigation_duration_seconds",
				Help:      "Histogram of navigation duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"kind"},
		),
	}
	for _, c := range []prometheus.Collector{m.navigations, m.recoveries, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *MetricsListener) Navigated(_ context.Context, ev Event) {
	kind := ev.Result.Kind.String()
	status := "success"
	switch {
	case ev.Err != nil:
		status = "error"
	case ev.Result.Kind == KindNone:
		status = "no_match"
	}

	m.navigations.WithLabelValues(kind, status).Inc()
	m.duration.WithLabelValues(kind).Observe(ev.Duration.Seconds())
	if ev.Result.Recovered {
		m.recoveries.WithLabelValues(status).Inc()
	}
}

func (*MetricsListener) isListener() {}

// AuditRecord is the persisted form of a navigation.
type AuditRecord struct {
	EventID   types.EventID
	At        time.Time
	From      string
	To        string
	ActionRef string
	Outcome   string
	Kind      string
	RuleKey   string // "" for implicit navigation
	Implicit  bool
	Recovered bool
	Error     string
}

// EventRecorder persists audit records.
type EventRecorder interface {
	RecordNavigation(ctx context.Context, rec AuditRecord) error
}

// AuditListener persists every navigation through Recorder.
type AuditListener struct {
	Recorder EventRecorder
	Logger   *slog.Logger
}

func (a AuditListener) Navigated(ctx context.Context, ev Event) {
	rec := AuditRecord{
		EventID:   types.NewEventID(),
		At:        ev.Started.UTC(),
		From:      ev.Result.From,
		To:        ev.Result.Target.PageID,
		ActionRef: ev.Request.ActionRef,
		Outcome:   ev.Request.Outcome,
		Kind:      ev.Result.Kind.String(),
		Implicit:  ev.Result.Implicit,
		Recovered: ev.Result.Recovered,
	}
	if ev.Result.Case != nil {
		rec.RuleKey = ev.Result.Case.RuleKey
	}
	if ev.Err != nil {
		rec.Error = ev.Err.Error()
	}

	if err := a.Recorder.RecordNavigation(ctx, rec); err != nil && !errors.Is(err, context.Canceled) {
		logger := a.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.WarnContext(ctx, "failed to record navigation", "event_id", rec.EventID, "error", err)
	}
}

func (AuditListener) isListener() {}
