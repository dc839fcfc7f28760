package rpc

import (
	"context"

	"google.golang.org/grpc"

	"connect6_datagen/internal/domain"
)

const ServiceName = "connect6.Engine"

type EngineServiceServer interface {
	Initial(context.Context, *domain.InitialStateRequest) (*domain.InitialStateResponse, error)
	Apply(context.Context, *domain.ApplyMoveRequest) (*domain.ApplyMoveResponse, error)
	Legal(context.Context, *domain.Position) (*domain.LegalActionsResponse, error)
	Terminal(context.Context, *domain.Position) (*domain.TerminalValueResponse, error)
	Canonical(context.Context, *domain.Position) (*domain.CanonicalFormResponse, error)
	Symmetries(context.Context, *domain.SymmetriesRequest) (*domain.SymmetriesResponse, error)
	Key(context.Context, *domain.Position) (*domain.KeyResponse, error)
	Suggest(context.Context, *domain.SuggestMoveRequest) (*domain.SuggestMoveResponse, error)
}

func RegisterEngineServiceServer(s grpc.ServiceRegistrar, srv EngineServiceServer) {
	s.RegisterService(&EngineServiceDesc, srv)
}

// unary builds a method handler for one request type.
func unary[Req any, Resp any](name string, call func(EngineServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(EngineServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(EngineServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var EngineServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EngineServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Initial", EngineServiceServer.Initial),
		unary("Apply", EngineServiceServer.Apply),
		unary("Legal", EngineServiceServer.Legal),
		unary("Terminal", EngineServiceServer.Terminal),
		unary("Canonical", EngineServiceServer.Canonical),
		unary("Symmetries", EngineServiceServer.Symmetries),
		unary("Key", EngineServiceServer.Key),
		unary("Suggest", EngineServiceServer.Suggest),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "connect6/engine",
}

type EngineServiceClient interface {
	Initial(ctx context.Context, in *domain.InitialStateRequest, opts ...grpc.CallOption) (*domain.InitialStateResponse, error)
	Apply(ctx context.Context, in *domain.ApplyMoveRequest, opts ...grpc.CallOption) (*domain.ApplyMoveResponse, error)
	Legal(ctx context.Context, in *domain.Position, opts ...grpc.CallOption) (*domain.LegalActionsResponse, error)
	Terminal(ctx context.Context, in *domain.Position, opts ...grpc.CallOption) (*domain.TerminalValueResponse, error)
	Canonical(ctx context.Context, in *domain.Position, opts ...grpc.CallOption) (*domain.CanonicalFormResponse, error)
	Symmetries(ctx context.Context, in *domain.SymmetriesRequest, opts ...grpc.CallOption) (*domain.SymmetriesResponse, error)
	Key(ctx context.Context, in *domain.Position, opts ...grpc.CallOption) (*domain.KeyResponse, error)
	Suggest(ctx context.Context, in *domain.SuggestMoveRequest, opts ...grpc.CallOption) (*domain.SuggestMoveResponse, error)
}

type engineServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewEngineServiceClient(cc grpc.ClientConnInterface) EngineServiceClient {
	return &engineServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *engineServiceClient) Initial(ctx context.Context, in *domain.InitialStateRequest, opts ...grpc.CallOption) (*domain.InitialStateResponse, error) {
	return invoke[domain.InitialStateResponse](ctx, c.cc, "Initial", in, opts)
}

func (c *engineServiceClient) Apply(ctx context.Context, in *domain.ApplyMoveRequest, opts ...grpc.CallOption) (*domain.ApplyMoveResponse, error) {
	return invoke[domain.ApplyMoveResponse](ctx, c.cc, "Apply", in, opts)
}

func (c *engineServiceClient) Legal(ctx context.Context, in *domain.Position, opts ...grpc.CallOption) (*domain.LegalActionsResponse, error) {
	return invoke[domain.LegalActionsResponse](ctx, c.cc, "Legal", in, opts)
}

func (c *engineServiceClient) Terminal(ctx context.Context, in *domain.Position, opts ...grpc.CallOption) (*domain.TerminalValueResponse, error) {
	return invoke[domain.TerminalValueResponse](ctx, c.cc, "Terminal", in, opts)
}

func (c *engineServiceClient) Canonical(ctx context.Context, in *domain.Position, opts ...grpc.CallOption) (*domain.CanonicalFormResponse, error) {
	return invoke[domain.CanonicalFormResponse](ctx, c.cc, "Canonical", in, opts)
}

func (c *engineServiceClient) Symmetries(ctx context.Context, in *domain.SymmetriesRequest, opts ...grpc.CallOption) (*domain.SymmetriesResponse, error) {
	return invoke[domain.SymmetriesResponse](ctx, c.cc, "Symmetries", in, opts)
}

func (c *engineServiceClient) Key(ctx context.Context, in *domain.Position, opts ...grpc.CallOption) (*domain.KeyResponse, error) {
	return invoke[domain.KeyResponse](ctx, c.cc, "Key", in, opts)
}

func (c *engineServiceClient) Suggest(ctx context.Context, in *domain.SuggestMoveRequest, opts ...grpc.CallOption) (*domain.SuggestMoveResponse, error) {
	return invoke[domain.SuggestMoveResponse](ctx, c.cc, "Suggest", in, opts)
}
