package api

import (
	"context"
	"net/url"
	"strings"

	"github.com/solatis/waypoint/internal/types"
)

// rpcTransport is the navigation transport of one gRPC call. Redirects are
// not performed here; they are recorded and returned to the caller, which
// issues the actual client redirect.
type rpcTransport struct {
	path     string
	partial  bool
	location string
}

func (t *rpcTransport) IssueRedirect(_ context.Context, target string, params types.Params) error {
	t.location = redirectLocation(target, params)
	return nil
}

func (t *rpcTransport) IsPartialRequest() bool {
	return t.partial
}

func (t *rpcTransport) CurrentTransportPath() string {
	return t.path
}

// redirectLocation appends params to target as a query string, keeping
// parameter and value order.
func redirectLocation(target string, params types.Params) string {
	if len(params) == 0 {
		return target
	}
	var b strings.Builder
	b.WriteString(target)
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	for _, p := range params {
		for _, v := range p.Values {
			b.WriteString(sep)
			b.WriteString(url.QueryEscape(p.Name))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
			sep = "&"
		}
	}
	return b.String()
}
