package navigation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/waypoint/internal/types"
)

func TestLogListener(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	nav := NewNavigator(newEngine(t), &testPages{}, WithListener(LogListener{Logger: logger}))

	x := NewExchange(&testTransport{}, testEvaluator(), &testPage{id: "/a.xhtml"})
	_, err := nav.Navigate(context.Background(), x, Request{Outcome: "/b.xhtml"})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "navigation", line["msg"])
	assert.Equal(t, "INFO", line["level"])
	assert.Equal(t, "/a.xhtml", line["from"])
	assert.Equal(t, "/b.xhtml", line["to"])
	assert.Equal(t, "forward", line["kind"])
	assert.Equal(t, true, line["implicit"])
}

func TestLogListener_Failure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	LogListener{Logger: logger}.Navigated(context.Background(), Event{
		Request: Request{Outcome: "go"},
		Result:  &Result{From: "/a.xhtml"},
		Err:     types.ErrExpression,
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "navigation failed", line["msg"])
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, types.ErrExpression.Error(), line["error"])
}

func TestMetricsListener(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetricsListener(reg)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.Navigated(ctx, Event{Result: &Result{Kind: KindForward}, Duration: time.Millisecond})
	metrics.Navigated(ctx, Event{Result: &Result{Kind: KindForward}, Duration: time.Millisecond})
	metrics.Navigated(ctx, Event{Result: &Result{Kind: KindNone}})
	metrics.Navigated(ctx, Event{Result: &Result{Kind: KindFullPageReplace, Recovered: true}})
	metrics.Navigated(ctx, Event{Result: &Result{Recovered: true}, Err: types.ErrRecoveryFailure})

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.navigations.WithLabelValues("forward", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.navigations.WithLabelValues("none", "no_match")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.navigations.WithLabelValues("full_page_replace", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.navigations.WithLabelValues("none", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.recoveries.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.recoveries.WithLabelValues("error")), 0)
	assert.Equal(t, 3, testutil.CollectAndCount(metrics.duration))
}

func TestMetricsListener_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetricsListener(reg)
	require.NoError(t, err)

	_, err = NewMetricsListener(reg)
	assert.Error(t, err)
}

type fakeRecorder struct {
	records []AuditRecord
	err     error
}

func (f *fakeRecorder) RecordNavigation(_ context.Context, rec AuditRecord) error {
	f.records = append(f.records, rec)
	return f.err
}

func TestAuditListener(t *testing.T) {
	engine := newEngine(t, types.Rule{Key: "/a.xhtml", Cases: []types.Case{
		{FromOutcome: "go", ToPageID: "/b.xhtml"},
	}})
	rec := &fakeRecorder{}
	nav := NewNavigator(engine, &testPages{}, WithListener(AuditListener{Recorder: rec}))

	x := NewExchange(&testTransport{}, testEvaluator(), &testPage{id: "/a.xhtml"})
	_, err := nav.Navigate(context.Background(), x, Request{ActionRef: "#{bean.save}", Outcome: "go"})
	require.NoError(t, err)

	require.Len(t, rec.records, 1)
	got := rec.records[0]
	assert.NotEmpty(t, got.EventID)
	assert.False(t, got.At.IsZero())
	assert.Equal(t, "/a.xhtml", got.From)
	assert.Equal(t, "/b.xhtml", got.To)
	assert.Equal(t, "#{bean.save}", got.ActionRef)
	assert.Equal(t, "go", got.Outcome)
	assert.Equal(t, "forward", got.Kind)
	assert.Equal(t, "/a.xhtml", got.RuleKey)
	assert.Empty(t, got.Error)
}

func TestAuditListener_RecorderFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	rec := &fakeRecorder{err: errors.New("disk full")}

	AuditListener{Recorder: rec, Logger: logger}.Navigated(context.Background(), Event{
		Result:  &Result{From: "/a.xhtml"},
		Started: time.Now(),
	})

	assert.Len(t, rec.records, 1)
	assert.Contains(t, buf.String(), "failed to record navigation")
	assert.Contains(t, buf.String(), "disk full")
}
