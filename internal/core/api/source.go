package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/solatis/waypoint/internal/core/db"
	"github.com/solatis/waypoint/internal/expr"
	"github.com/solatis/waypoint/internal/rules"
	"github.com/solatis/waypoint/internal/types"
)

// RuleSource supplies the declared rule set.
type RuleSource interface {
	Rules(ctx context.Context) ([]types.Rule, error)
}

// StaticSource serves a fixed rule set, typically from the config file.
type StaticSource []types.Rule

// Rules returns a copy of the rule slice.
func (s StaticSource) Rules(context.Context) ([]types.Rule, error) {
	return append([]types.Rule(nil), s...), nil
}

// DatabaseSource reads rules from the navigation_rules tables.
type DatabaseSource struct {
	Queries *db.Queries
}

// Rules loads the stored rule set.
func (s DatabaseSource) Rules(ctx context.Context) ([]types.Rule, error) {
	return db.LoadRules(ctx, s.Queries)
}

// Loader publishes a rule source into a store. Expressions are parsed before
// anything is published; a broken condition fails the load like any other
// configuration error.
type Loader struct {
	source   RuleSource
	store    *rules.Store
	compiler *expr.Compiler
	logger   *slog.Logger
}

// NewLoader creates a loader.
func NewLoader(source RuleSource, store *rules.Store, compiler *expr.Compiler, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{source: source, store: store, compiler: compiler, logger: logger}
}

// Load reads the source and replaces the store contents. On error the
// previously published rules stay in place.
func (l *Loader) Load(ctx context.Context) (*rules.Snapshot, error) {
	rs, err := l.source.Rules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}
	if err := l.check(rs); err != nil {
		return nil, err
	}
	snap, err := l.store.Replace(rs)
	if err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "navigation rules loaded", "version", snap.Version(), "keys", snap.Len(), "declared", len(rs))
	return snap, nil
}

func (l *Loader) check(rs []types.Rule) error {
	for _, r := range rs {
		for i, c := range r.Cases {
			texts := []string{c.Condition, c.ToPageID}
			for _, p := range c.Parameters {
				texts = append(texts, p.Values...)
			}
			for _, text := range texts {
				if err := l.compiler.Check(text); err != nil {
					return &types.ConfigError{Key: r.Key, Case: i, Err: err}
				}
			}
		}
	}
	return nil
}
