// Package api provides the gRPC navigation service.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/waypoint/internal/directive"
	"github.com/solatis/waypoint/internal/expr"
	"github.com/solatis/waypoint/internal/navigation"
	"github.com/solatis/waypoint/internal/rules"
	"github.com/solatis/waypoint/internal/session"
	"github.com/solatis/waypoint/internal/types"
)

// ServiceConfig holds the dependencies of a Service.
type ServiceConfig struct {
	Navigator *navigation.Navigator
	Engine    *rules.Engine
	Compiler  *expr.Compiler
	Pages     navigation.PageFactory
	Sessions  session.Store
	Loader    *Loader
	Mapper    navigation.PathMapper // must match the navigator's mapper
	ErrorPage string                // recovery failure target, "" = return the error
	Logger    *slog.Logger
}

// Service implements NavigationServer.
// Thin orchestration layer over the navigator, the session store and the
// rule loader.
type Service struct {
	navigator *navigation.Navigator
	engine    *rules.Engine
	compiler  *expr.Compiler
	pages     navigation.PageFactory
	sessions  session.Store
	loader    *Loader
	mapper    navigation.PathMapper
	errorPage string
	logger    *slog.Logger
}

// NewService creates the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	switch {
	case cfg.Navigator == nil:
		return nil, fmt.Errorf("navigator cannot be nil")
	case cfg.Engine == nil:
		return nil, fmt.Errorf("engine cannot be nil")
	case cfg.Compiler == nil:
		return nil, fmt.Errorf("compiler cannot be nil")
	case cfg.Pages == nil:
		return nil, fmt.Errorf("pages cannot be nil")
	case cfg.Sessions == nil:
		return nil, fmt.Errorf("sessions cannot be nil")
	case cfg.Loader == nil:
		return nil, fmt.Errorf("loader cannot be nil")
	}

	s := &Service{
		navigator: cfg.Navigator,
		engine:    cfg.Engine,
		compiler:  cfg.Compiler,
		pages:     cfg.Pages,
		sessions:  cfg.Sessions,
		loader:    cfg.Loader,
		mapper:    cfg.Mapper,
		errorPage: cfg.ErrorPage,
		logger:    cfg.Logger,
	}
	if s.mapper == nil {
		s.mapper = navigation.ExactMapper{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Navigate runs one navigation for a session and remembers the page the
// session ends up on. A request without session_id starts a new session; a
// session that is unknown or expired has no current page and recovers.
func (s *Service) Navigate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := req.GetFields()

	sid := types.NewSessionID()
	if raw := stringField(f, "session_id"); raw != "" {
		parsed, err := types.ParseSessionID(raw)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "invalid session_id")
		}
		sid = parsed
	}

	current, err := s.currentPage(ctx, sid, stringField(f, "page_id"))
	if err != nil {
		return nil, statusError(err)
	}

	eval := s.compiler.Scope(f["vars"].GetStructValue().AsMap())
	tr := &rpcTransport{path: stringField(f, "path"), partial: f["partial"].GetBoolValue()}
	x := navigation.NewExchange(tr, eval, current)
	navReq := navigation.Request{
		ActionRef: stringField(f, "action_ref"),
		Outcome:   stringField(f, "outcome"),
	}

	res, err := s.navigator.Navigate(ctx, x, navReq)
	errorPage := false
	if errors.Is(err, types.ErrRecoveryFailure) && s.errorPage != "" {
		s.logger.WarnContext(ctx, "recovery failed, showing error page",
			"session_id", sid, "path", tr.path, "error_page", s.errorPage, "error", err)
		tr = &rpcTransport{path: s.mapper.Path(s.errorPage), partial: tr.partial}
		x = navigation.NewExchange(tr, eval, nil)
		res, err = s.navigator.Navigate(ctx, x, navigation.Request{})
		errorPage = true
	}
	if err != nil {
		return nil, statusError(err)
	}

	next := res.From
	switch res.Kind {
	case navigation.KindForward, navigation.KindFullPageReplace:
		next = x.Page().PageID()
	case navigation.KindRedirect:
		next = res.Target.PageID
	}
	if next != "" {
		if err := s.sessions.Save(ctx, &session.State{ID: sid, PageID: next}); err != nil {
			return nil, statusError(fmt.Errorf("failed to save session: %w", err))
		}
	}

	return navigateResponse(sid, res, tr.location, errorPage)
}

// currentPage returns the page the request starts on. An explicit page_id
// wins over the session. A remembered page that no longer exists is treated
// like a missing session.
func (s *Service) currentPage(ctx context.Context, sid types.SessionID, pageID string) (navigation.PageHandle, error) {
	if pageID != "" {
		return s.pages.CreateOrRestore(ctx, pageID)
	}

	st, err := s.sessions.Load(ctx, sid)
	if errors.Is(err, types.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	page, err := s.pages.CreateOrRestore(ctx, st.PageID)
	if errors.Is(err, types.ErrPageNotFound) {
		s.logger.DebugContext(ctx, "remembered page no longer exists", "session_id", sid, "page_id", st.PageID)
		return nil, nil
	}
	return page, err
}

// Resolve reports which case applies to a query without navigating.
func (s *Service) Resolve(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := req.GetFields()
	pageID := stringField(f, "page_id")
	if pageID == "" {
		return nil, status.Error(codes.InvalidArgument, "page_id required")
	}

	eval := s.compiler.Scope(f["vars"].GetStructValue().AsMap())
	c, err := s.engine.Resolve(ctx, eval, rules.Query{
		PageID:    pageID,
		ActionRef: stringField(f, "action_ref"),
		Outcome:   stringField(f, "outcome"),
	})
	if err != nil {
		return nil, statusError(err)
	}
	if c == nil {
		return structpb.NewStruct(map[string]any{"matched": false})
	}

	return structpb.NewStruct(map[string]any{
		"matched":             true,
		"rule_key":            c.RuleKey,
		"to_page":             c.ToPageID,
		"to_flow":             c.ToFlowReference,
		"redirect":            c.Redirect,
		"include_view_params": c.IncludeViewParams,
		"specificity":         c.Specificity,
		"directive":           caseDirective(c),
	})
}

// caseDirective renders the static target of c, combining a directive in
// ToPageID with the case settings in the order the navigator applies them.
// Expression targets are left unparsed.
func caseDirective(c *rules.CompiledCase) string {
	target := types.Target{PageID: c.ToPageID}
	if !expr.IsExpression(c.ToPageID) {
		target = directive.Parse(c.ToPageID)
	}
	target.Redirect = target.Redirect || c.Redirect
	target.IncludeViewParams = target.IncludeViewParams || c.IncludeViewParams
	for _, p := range c.Parameters {
		target.Params.Set(p.Name, p.Values)
	}
	return directive.Format(target)
}

// ReloadRules re-reads the rule source and publishes it.
func (s *Service) ReloadRules(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	snap, err := s.loader.Load(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "rule reload failed", "error", err)
		return nil, statusError(err)
	}
	return structpb.NewStruct(map[string]any{
		"version": snap.Version(),
		"rules":   snap.Len(),
	})
}

func navigateResponse(sid types.SessionID, res *navigation.Result, location string, errorPage bool) (*structpb.Struct, error) {
	states := make([]any, len(res.States))
	for i, st := range res.States {
		states[i] = st.String()
	}
	params := make(map[string]any, len(res.Target.Params))
	for _, p := range res.Target.Params {
		values := make([]any, len(p.Values))
		for i, v := range p.Values {
			values[i] = v
		}
		params[p.Name] = values
	}
	ruleKey := ""
	if res.Case != nil {
		ruleKey = res.Case.RuleKey
	}

	return structpb.NewStruct(map[string]any{
		"session_id": string(sid),
		"kind":       res.Kind.String(),
		"states":     states,
		"from":       res.From,
		"to":         res.Target.PageID,
		"flow":       res.FlowReference,
		"rule_key":   ruleKey,
		"url":        location,
		"params":     params,
		"implicit":   res.Implicit,
		"recovered":  res.Recovered,
		"error_page": errorPage,
	})
}

func stringField(f map[string]*structpb.Value, name string) string {
	return f[name].GetStringValue()
}
