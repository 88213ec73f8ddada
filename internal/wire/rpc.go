package wire

import (
	"context"
	"io"

	"google.golang.org/grpc"
)

// invokeServerStream opens a server streaming call, sends the single request
// and half-closes the send direction
func invokeServerStream[Req, Res any](ctx context.Context, cc grpc.ClientConnInterface, desc *grpc.StreamDesc, method string, in *Req, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Res], error) {
	stream, err := cc.NewStream(ctx, desc, method, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[Req, Res]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// unaryHandler adapts a typed server method to a grpc.MethodHandler
func unaryHandler[Req, Res any](method string, call func(srv any, ctx context.Context, in *Req) (*Res, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// serverStreamHandler adapts a typed server streaming method to a grpc.StreamHandler
func serverStreamHandler[Req, Res any](call func(srv any, in *Req, stream grpc.ServerStreamingServer[Res]) error) grpc.StreamHandler {
	return func(srv any, stream grpc.ServerStream) error {
		in := new(Req)
		if err := stream.RecvMsg(in); err != nil {
			return err
		}
		return call(srv, in, &grpc.GenericServerStream[Req, Res]{ServerStream: stream})
	}
}

// closeConn closes cc when the client owns a closable connection
func closeConn(cc grpc.ClientConnInterface) error {
	if c, ok := cc.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
