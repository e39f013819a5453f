package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/ledgerd/internal/server/tools"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service. Every tool is a unary
// method of it taking and returning a google.protobuf.Struct.
const ServiceName = "ledger.v1.Tools"

// FullMethod returns the gRPC method path of a tool.
func FullMethod(tool string) string {
	return "/" + ServiceName + "/" + tool
}

// toolsServer is the handler type of the service descriptor.
type toolsServer interface {
	callTool(ctx context.Context, tool string, in *structpb.Struct) (*structpb.Struct, error)
}

// serviceDesc describes one method per registered tool.
func serviceDesc(names []string) *grpc.ServiceDesc {
	methods := make([]grpc.MethodDesc, 0, len(names))
	for _, n := range names {
		methods = append(methods, grpc.MethodDesc{MethodName: n, Handler: methodHandler(n)})
	}

	return &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*toolsServer)(nil),
		Methods:     methods,
		Streams:     []grpc.StreamDesc{},
		Metadata:    "ledger/v1/tools.proto",
	}
}

func methodHandler(tool string) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}

		call := func(ctx context.Context, req any) (any, error) {
			return srv.(toolsServer).callTool(ctx, tool, req.(*structpb.Struct))
		}
		if interceptor == nil {
			return call(ctx, in)
		}

		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(tool)}
		return interceptor(ctx, in, info, call)
	}
}

// callTool runs the tool and returns its envelope. Tool failures travel in
// the envelope; a gRPC error means the call never reached a tool.
func (s *GRPCServer) callTool(ctx context.Context, tool string, in *structpb.Struct) (*structpb.Struct, error) {
	env, err := s.tools.Call(ctx, tool, tools.Args(in.AsMap()))
	if err != nil {
		if errors.Is(err, tools.ErrUnknownTool) {
			return nil, status.Error(codes.Unimplemented, err.Error())
		}
		return nil, status.Error(codes.Internal, "internal error")
	}

	m, err := env.ToMap()
	if err != nil {
		s.logger.Error(ctx, "encode envelope", "tool", tool, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	out, err := structpb.NewStruct(m)
	if err != nil {
		s.logger.Error(ctx, "encode envelope", "tool", tool, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}
