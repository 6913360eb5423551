package navigation

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/solatis/waypoint/internal/directive"
	"github.com/solatis/waypoint/internal/expr"
	"github.com/solatis/waypoint/internal/rules"
	"github.com/solatis/waypoint/internal/types"
)

/*
 * Navigator state machine.
 *
 *   start ── page present ──> Resolving ── case ──────────────> Applying
 *     │                          │                                 ^
 *     │                          └─ no case ─> ImplicitFallback ───┤
 *     │                                          (empty outcome: stop, KindNone)
 *     └── no page ──> Recovering ── no outcome: target = derived page id ──┘
 *                        └── outcome: Resolving from the derived page id
 *
 * Target construction for a matched case:
 *   1. ToPageID is evaluated with EvaluateString when it holds an expression
 *   2. The result is parsed as a directive (page id, flags, params)
 *   3. Case Redirect and IncludeViewParams are OR-ed with the directive flags
 *   4. Case Parameters replace directive params of the same name
 * A directive embedded in the matched outcome is ignored; the outcome was
 * only a match key. A case that names only a flow reference targets the
 * current page; Result.FlowReference tells the caller which flow to enter.
 *
 * Implicit fallback parses the outcome itself. An empty page id after parsing
 * ("?faces-redirect=true") targets the current page.
 *
 * Recovery forces redirect off. A partial request gets KindFullPageReplace so
 * the client replaces its whole document instead of patching a fragment.
 */

const instrumentationName = "github.com/solatis/waypoint/internal/navigation"

// Navigator performs navigations. Safe for concurrent use; per-request state
// lives in the Exchange.
type Navigator struct {
	engine        *rules.Engine
	pages         PageFactory
	mapper        PathMapper
	listeners     []Listener
	defaultSuffix string
	tracer        trace.Tracer
	now           func() time.Time
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithPathMapper sets the mapper used to derive page ids during recovery and
// to build redirect locations. Default ExactMapper.
func WithPathMapper(m PathMapper) Option {
	return func(n *Navigator) { n.mapper = m }
}

// WithListener adds a listener. Listeners run in the order added.
func WithListener(l Listener) Option {
	return func(n *Navigator) { n.listeners = append(n.listeners, l) }
}

// WithDefaultSuffix normalizes implicit targets: a relative id resolves
// against the current page's directory, and an id without extension gets
// suffix. Off by default; implicit outcomes are then used verbatim.
func WithDefaultSuffix(suffix string) Option {
	return func(n *Navigator) { n.defaultSuffix = suffix }
}

// WithTracerProvider sets the tracer provider. Default is the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(n *Navigator) { n.tracer = tp.Tracer(instrumentationName) }
}

// NewNavigator creates a navigator over the rule engine and page factory.
func NewNavigator(engine *rules.Engine, pages PageFactory, opts ...Option) *Navigator {
	n := &Navigator{
		engine: engine,
		pages:  pages,
		mapper: ExactMapper{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.tracer == nil {
		n.tracer = otel.GetTracerProvider().Tracer(instrumentationName)
	}
	return n
}

// Navigate runs one navigation for the request held by x.
//
// A NoMatch with an empty outcome returns a KindNone result and a nil error.
// Expression failures return an error matching types.ErrExpression; a
// recovery without any target returns one matching types.ErrRecoveryFailure.
func (n *Navigator) Navigate(ctx context.Context, x *Exchange, req Request) (*Result, error) {
	started := n.now()
	ctx, span := n.tracer.Start(ctx, "waypoint.navigate",
		trace.WithAttributes(
			attribute.String("navigation.action", req.ActionRef),
			attribute.String("navigation.outcome", req.Outcome),
		),
	)
	defer span.End()

	res := &Result{}
	err := n.navigate(ctx, x, req, res)

	span.SetAttributes(
		attribute.String("navigation.from", res.From),
		attribute.String("navigation.to", res.Target.PageID),
		attribute.String("navigation.kind", res.Kind.String()),
		attribute.Bool("navigation.recovered", res.Recovered),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	ev := Event{Request: req, Result: res, Err: err, Started: started, Duration: n.now().Sub(started)}
	for _, l := range n.listeners {
		l.Navigated(ctx, ev)
	}

	if err != nil {
		return nil, err
	}
	return res, nil
}

func (n *Navigator) navigate(ctx context.Context, x *Exchange, req Request, res *Result) error {
	current := x.Page()
	if current == nil {
		return n.recover(ctx, x, req, res)
	}

	res.From = current.PageID()
	target, ok, err := n.decide(ctx, x, req, res)
	if err != nil || !ok {
		return err
	}
	return n.apply(ctx, x, current, target, res)
}

// recover handles a request that arrived without a current page.
func (n *Navigator) recover(ctx context.Context, x *Exchange, req Request, res *Result) error {
	res.enter(StateRecovering)
	res.Recovered = true
	res.From = n.mapper.PageID(stripQuery(x.Transport().CurrentTransportPath()))

	var target types.Target
	if req.Outcome == "" {
		target.PageID = res.From
	} else {
		t, ok, err := n.decide(ctx, x, req, res)
		if err != nil {
			return err
		}
		if ok {
			target = t
		}
	}
	if target.PageID == "" {
		return fmt.Errorf("%w: path %q", types.ErrRecoveryFailure, x.Transport().CurrentTransportPath())
	}

	target.Redirect = false
	err := n.apply(ctx, x, nil, target, res)
	var exprErr *types.ExpressionError
	if err != nil && !errors.As(err, &exprErr) {
		return fmt.Errorf("%w: %w", types.ErrRecoveryFailure, err)
	}
	return err
}

// decide runs Resolving and, on NoMatch, ImplicitFallback. ok is false when
// there is nothing to navigate to.
func (n *Navigator) decide(ctx context.Context, x *Exchange, req Request, res *Result) (types.Target, bool, error) {
	res.enter(StateResolving)
	c, err := n.engine.Resolve(ctx, x.conditionEvaluator(), rules.Query{
		PageID:    res.From,
		ActionRef: req.ActionRef,
		Outcome:   req.Outcome,
	})
	if err != nil {
		return types.Target{}, false, err
	}

	if c != nil {
		res.Case = c
		res.FlowReference = c.ToFlowReference
		target, err := n.caseTarget(ctx, x, c)
		if err != nil {
			return types.Target{}, false, err
		}
		// flow-only cases and "?faces-redirect=true" stay on the current page
		if target.PageID == "" {
			target.PageID = res.From
		}
		return target, true, nil
	}

	res.enter(StateImplicitFallback)
	res.Implicit = true
	if req.Outcome == "" {
		return types.Target{}, false, nil
	}
	target := directive.Parse(req.Outcome)
	if target.PageID == "" {
		target.PageID = res.From
	} else {
		target.PageID = n.normalize(res.From, target.PageID)
	}
	return target, true, nil
}

// caseTarget builds the target of a matched case.
func (n *Navigator) caseTarget(ctx context.Context, x *Exchange, c *rules.CompiledCase) (types.Target, error) {
	to, err := n.render(ctx, x, c.ToPageID)
	if err != nil {
		return types.Target{}, err
	}

	target := directive.Parse(to)
	target.Redirect = target.Redirect || c.Redirect
	target.IncludeViewParams = target.IncludeViewParams || c.IncludeViewParams
	for _, p := range c.Parameters {
		values := make([]string, 0, len(p.Values))
		for _, v := range p.Values {
			rendered, err := n.render(ctx, x, v)
			if err != nil {
				return types.Target{}, err
			}
			values = append(values, rendered)
		}
		target.Params.Set(p.Name, values)
	}
	return target, nil
}

// render evaluates text when it holds an expression.
func (n *Navigator) render(ctx context.Context, x *Exchange, text string) (string, error) {
	if !expr.IsExpression(text) {
		return text, nil
	}
	eval := x.Evaluator()
	if eval == nil {
		return "", &types.ExpressionError{Expr: text, Err: errors.New("no evaluator")}
	}
	return eval.EvaluateString(ctx, text)
}

// normalize applies WithDefaultSuffix to an implicit page id.
func (n *Navigator) normalize(from, pageID string) string {
	if n.defaultSuffix == "" {
		return pageID
	}
	if !path.IsAbs(pageID) {
		pageID = path.Join(path.Dir("/"+from), pageID)
	}
	if path.Ext(pageID) == "" {
		pageID += n.defaultSuffix
	}
	return pageID
}

// apply materializes the target and performs the transition. current is nil
// when recovering.
func (n *Navigator) apply(ctx context.Context, x *Exchange, current PageHandle, target types.Target, res *Result) error {
	res.enter(StateApplying)
	res.Target = target

	page, err := n.pages.CreateOrRestore(ctx, target.PageID)
	if err != nil {
		return fmt.Errorf("create page %q: %w", target.PageID, err)
	}

	if !target.Redirect {
		x.setPage(page)
		res.Kind = KindForward
		if res.Recovered && x.Transport().IsPartialRequest() {
			res.Kind = KindFullPageReplace
		}
		return nil
	}

	params := target.Params.Clone()
	if target.IncludeViewParams && current != nil {
		if err := n.appendViewParams(ctx, x, current, &params); err != nil {
			return err
		}
	}
	res.Target.Params = params
	res.URL = n.mapper.Path(target.PageID)
	if err := x.Transport().IssueRedirect(ctx, res.URL, params); err != nil {
		return fmt.Errorf("redirect to %q: %w", res.URL, err)
	}
	res.Kind = KindRedirect
	return nil
}

// appendViewParams adds the current page's view parameters that the target
// does not already carry. Empty values are skipped.
func (n *Navigator) appendViewParams(ctx context.Context, x *Exchange, current PageHandle, params *types.Params) error {
	for _, vp := range current.ViewParams() {
		if vp.Name == "" || types.IsReservedParam(vp.Name) || params.Has(vp.Name) {
			continue
		}
		value, err := n.render(ctx, x, vp.Value)
		if err != nil {
			return err
		}
		if value == "" {
			continue
		}
		params.Add(vp.Name, value)
	}
	return nil
}
