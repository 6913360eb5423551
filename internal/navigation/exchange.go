// Package navigation applies navigation decisions to a request.
//
// The Navigator is the only component in waypoint with side effects. For each
// request it resolves the next page through the rule engine, falls back to the
// outcome as a literal target when no rule applies, asks the PageFactory for
// the target page, and then either forwards in-process or tells the Transport
// to redirect. When the request arrives without a current page (for example
// after the session expired) it recovers a page from the transport path first.
//
// Per-request state lives in an Exchange that the caller creates and passes
// explicitly. Nothing in this package holds state across requests.
package navigation

import (
	"context"

	"github.com/solatis/waypoint/internal/rules"
	"github.com/solatis/waypoint/internal/types"
)

// Evaluator evaluates expressions for one request.
type Evaluator interface {
	rules.ConditionEvaluator
	EvaluateString(ctx context.Context, expr string) (string, error)
}

// ViewParam is a page's declared view parameter. Value is literal text or an
// expression evaluated when the parameter is carried across a redirect.
type ViewParam struct {
	Name  string
	Value string
}

// PageHandle is a materialized page.
type PageHandle interface {
	PageID() string
	ViewParams() []ViewParam
}

// PageFactory creates a page or restores a previously built one.
type PageFactory interface {
	CreateOrRestore(ctx context.Context, pageID string) (PageHandle, error)
}

// Transport is the request's connection to the client.
type Transport interface {
	IssueRedirect(ctx context.Context, url string, params types.Params) error
	IsPartialRequest() bool
	CurrentTransportPath() string
}

// Exchange holds the state of one request. Not safe for concurrent use; a
// request is handled by a single goroutine.
type Exchange struct {
	transport Transport
	eval      Evaluator
	page      PageHandle
}

// NewExchange creates the per-request state. page is nil when the request
// carries no current page, which puts the Navigator into recovery.
func NewExchange(transport Transport, eval Evaluator, page PageHandle) *Exchange {
	return &Exchange{transport: transport, eval: eval, page: page}
}

// Page returns the active page, or nil.
func (x *Exchange) Page() PageHandle {
	return x.page
}

// Transport returns the request transport.
func (x *Exchange) Transport() Transport {
	return x.transport
}

// Evaluator returns the request-scoped evaluator.
func (x *Exchange) Evaluator() Evaluator {
	return x.eval
}

func (x *Exchange) setPage(p PageHandle) {
	x.page = p
}

func (x *Exchange) conditionEvaluator() rules.ConditionEvaluator {
	if x.eval == nil {
		return nil
	}
	return x.eval
}
