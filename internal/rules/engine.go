package rules

import "context"

// Engine resolves queries against the store's current snapshot.
// Holds no per-request state; one Engine serves every request.
type Engine struct {
	store *Store
}

// NewEngine creates a resolution engine over store.
func NewEngine(store *Store) *Engine {
	return &Engine{store: store}
}

// Store returns the underlying rule store.
func (e *Engine) Store() *Store {
	return e.store
}

// Resolve selects the applicable case for q using the current snapshot.
// Returns (nil, nil) when no rule yields a case.
func (e *Engine) Resolve(ctx context.Context, eval ConditionEvaluator, q Query) (*CompiledCase, error) {
	return Resolve(ctx, e.store.Snapshot(), eval, q)
}
