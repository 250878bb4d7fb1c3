package relay

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName       = "dqltetris.Relay"
	PublishFullMethod = "/" + ServiceName + "/Publish"
	WatchFullMethod   = "/" + ServiceName + "/Watch"
)

// RelayServer is implemented by the spectator server.
type RelayServer interface {
	// Publish receives the frames of one game and answers with the id of
	// the session it opened.
	Publish(grpc.ClientStreamingServer[structpb.Struct, structpb.Struct]) error
	// Watch streams the frames of a session, starting with the last one.
	Watch(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

func RegisterRelayServer(s grpc.ServiceRegistrar, srv RelayServer) {
	s.RegisterService(&Relay_ServiceDesc, srv)
}

func _Relay_Publish_Handler(srv any, stream grpc.ServerStream) error {
	return srv.(RelayServer).Publish(&grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

func _Relay_Watch_Handler(srv any, stream grpc.ServerStream) error {
	m := new(structpb.Struct)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(RelayServer).Watch(m, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

var Relay_ServiceDesc = grpc.ServiceDesc{ //nolint:revive
	ServiceName: ServiceName,
	HandlerType: (*RelayServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Publish",
			Handler:       _Relay_Publish_Handler,
			ClientStreams: true,
		},
		{
			StreamName:    "Watch",
			Handler:       _Relay_Watch_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "relay",
}

type RelayClient interface {
	Publish(ctx context.Context, opts ...grpc.CallOption) (grpc.ClientStreamingClient[structpb.Struct, structpb.Struct], error)
	Watch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error)
}

type relayClient struct {
	cc grpc.ClientConnInterface
}

func NewRelayClient(cc grpc.ClientConnInterface) RelayClient {
	return &relayClient{cc: cc}
}

func (c *relayClient) Publish(ctx context.Context, opts ...grpc.CallOption) (grpc.ClientStreamingClient[structpb.Struct, structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &Relay_ServiceDesc.Streams[0], PublishFullMethod, opts...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}, nil
}

func (c *relayClient) Watch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &Relay_ServiceDesc.Streams[1], WatchFullMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
