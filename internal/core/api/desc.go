package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

/*
 * Service descriptor for waypoint.navigation.v1.Navigation.
 *
 * Messages are google.protobuf.Struct on both sides. Field names:
 *
 *   Navigate
 *     in:  session_id, page_id, action_ref, outcome, path, partial, vars{}
 *     out: session_id, kind, states[], from, to, flow, rule_key, url,
 *          params{name: [values]}, implicit, recovered, error_page
 *   Resolve
 *     in:  page_id, action_ref, outcome, vars{}
 *     out: matched, rule_key, to_page, to_flow, redirect,
 *          include_view_params, specificity, directive
 *   ReloadRules
 *     in:  {}
 *     out: version, rules
 */

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "waypoint.navigation.v1.Navigation"

// Full method names.
const (
	NavigateMethod    = "/" + ServiceName + "/Navigate"
	ResolveMethod     = "/" + ServiceName + "/Resolve"
	ReloadRulesMethod = "/" + ServiceName + "/ReloadRules"
)

// NavigationServer is the server API for the navigation service.
type NavigationServer interface {
	Navigate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Resolve(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ReloadRules(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the navigation service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NavigationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Navigate", Handler: unaryHandler(NavigateMethod, NavigationServer.Navigate)},
		{MethodName: "Resolve", Handler: unaryHandler(ResolveMethod, NavigationServer.Resolve)},
		{MethodName: "ReloadRules", Handler: unaryHandler(ReloadRulesMethod, NavigationServer.ReloadRules)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "waypoint/navigation/v1/navigation.proto",
}

// RegisterNavigationServer registers srv with s.
func RegisterNavigationServer(s grpc.ServiceRegistrar, srv NavigationServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type unaryMethod func(NavigationServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(NavigationServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(NavigationServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Client calls the navigation service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a client over cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Navigate performs a navigation.
func (c *Client) Navigate(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, NavigateMethod, req, opts...)
}

// Resolve returns the case that would apply, without side effects.
func (c *Client) Resolve(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ResolveMethod, req, opts...)
}

// ReloadRules re-reads the rule source on the server.
func (c *Client) ReloadRules(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ReloadRulesMethod, &structpb.Struct{}, opts...)
}

func (c *Client) invoke(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
