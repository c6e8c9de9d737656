// Package console serves the log hub over gRPC.
//
// The service is loghub.v1.LogConsole. It is described by hand with
// grpc.ServiceDesc over protobuf well-known types, so neither side needs
// generated code:
//
//	rpc History(google.protobuf.Empty) returns (google.protobuf.Struct)
//	rpc Status(google.protobuf.Empty) returns (google.protobuf.Struct)
//	rpc Tail(google.protobuf.BoolValue) returns (stream google.protobuf.StringValue)
//
// History returns {available, events: [{level, message}]}; Status returns
// {available, length, capacity, subscribers, subscribersAvailable}. Tail
// streams each recorded line; a true request value replays the retained
// history first.
package console

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "loghub.v1.LogConsole"

const (
	historyMethod = "/" + ServiceName + "/History"
	statusMethod  = "/" + ServiceName + "/Status"
	tailMethod    = "/" + ServiceName + "/Tail"
)

// TailStream is the server side of a Tail call
type TailStream interface {
	Send(*wrapperspb.StringValue) error
	Context() context.Context
}

// ConsoleServer is the server API for the LogConsole service
type ConsoleServer interface {
	History(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Tail(*wrapperspb.BoolValue, TailStream) error
}

// ServiceDesc describes the LogConsole service for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ConsoleServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "History", Handler: historyHandler},
		{MethodName: "Status", Handler: statusHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Tail", Handler: tailHandler, ServerStreams: true},
	},
	Metadata: "loghub/v1/console.proto",
}

func historyHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ConsoleServer).History(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: historyMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ConsoleServer).History(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func statusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ConsoleServer).Status(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: statusMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ConsoleServer).Status(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func tailHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(wrapperspb.BoolValue)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ConsoleServer).Tail(in, &tailServerStream{stream})
}

type tailServerStream struct {
	grpc.ServerStream
}

func (s *tailServerStream) Send(m *wrapperspb.StringValue) error {
	return s.ServerStream.SendMsg(m)
}
