package db

import (
	"context"
	"fmt"
	"time"

	"github.com/solatis/waypoint/internal/navigation"
	"github.com/solatis/waypoint/internal/types"
)

// EventWriter records navigations in navigation_events.
// Implements navigation.EventRecorder.
type EventWriter struct {
	q *Queries
}

// NewEventWriter returns an EventWriter backed by q.
func NewEventWriter(q *Queries) *EventWriter {
	return &EventWriter{q: q}
}

// RecordNavigation inserts one audit row.
func (w *EventWriter) RecordNavigation(ctx context.Context, rec navigation.AuditRecord) error {
	if rec.EventID == "" {
		rec.EventID = types.NewEventID()
	}
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}

	_, err := w.q.Exec(ctx, "insert-navigation-event",
		string(rec.EventID), rec.At, rec.From, rec.To, rec.ActionRef, rec.Outcome,
		rec.Kind, rec.RuleKey, rec.Implicit, rec.Recovered, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert navigation event: %w", err)
	}
	return nil
}

type eventRow struct {
	EventID   string    `db:"event_id"`
	At        time.Time `db:"occurred_at"`
	From      string    `db:"from_page"`
	To        string    `db:"to_page"`
	ActionRef string    `db:"action_ref"`
	Outcome   string    `db:"outcome"`
	Kind      string    `db:"kind"`
	RuleKey   string    `db:"rule_key"`
	Implicit  bool      `db:"implicit"`
	Recovered bool      `db:"recovered"`
	Error     string    `db:"error"`
}

// RecentEvents returns up to limit events, newest first.
func (w *EventWriter) RecentEvents(ctx context.Context, limit int) ([]navigation.AuditRecord, error) {
	var rows []eventRow
	if err := w.q.Select(ctx, "list-recent-navigation-events", &rows, limit); err != nil {
		return nil, fmt.Errorf("failed to list navigation events: %w", err)
	}

	out := make([]navigation.AuditRecord, len(rows))
	for i, r := range rows {
		out[i] = navigation.AuditRecord{
			EventID:   types.EventID(r.EventID),
			At:        r.At,
			From:      r.From,
			To:        r.To,
			ActionRef: r.ActionRef,
			Outcome:   r.Outcome,
			Kind:      r.Kind,
			RuleKey:   r.RuleKey,
			Implicit:  r.Implicit,
			Recovered: r.Recovered,
			Error:     r.Error,
		}
	}
	return out, nil
}
