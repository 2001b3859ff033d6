package pb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "safewalk.v1.WalkService"

// Full method names of WalkService.
const (
	WalkService_StartSession_FullMethodName    = "/" + ServiceName + "/StartSession"
	WalkService_StopSession_FullMethodName     = "/" + ServiceName + "/StopSession"
	WalkService_AcknowledgeSafe_FullMethodName = "/" + ServiceName + "/AcknowledgeSafe"
	WalkService_TriggerSOS_FullMethodName      = "/" + ServiceName + "/TriggerSOS"
	WalkService_GetSnapshot_FullMethodName     = "/" + ServiceName + "/GetSnapshot"
	WalkService_WatchSnapshots_FullMethodName  = "/" + ServiceName + "/WatchSnapshots"
	WalkService_StreamMotion_FullMethodName    = "/" + ServiceName + "/StreamMotion"
	WalkService_ReportPosition_FullMethodName  = "/" + ServiceName + "/ReportPosition"
)

// WalkServiceServer is the server API for WalkService.
type WalkServiceServer interface {
	StartSession(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	StopSession(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	AcknowledgeSafe(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	TriggerSOS(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSnapshot(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	WatchSnapshots(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
	StreamMotion(grpc.ClientStreamingServer[structpb.Struct, structpb.Struct]) error
	ReportPosition(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

// UnimplementedWalkServiceServer returns Unimplemented for every method.
// Embed it by value for forward compatibility.
type UnimplementedWalkServiceServer struct{}

func (UnimplementedWalkServiceServer) StartSession(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method StartSession not implemented")
}

func (UnimplementedWalkServiceServer) StopSession(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method StopSession not implemented")
}

func (UnimplementedWalkServiceServer) AcknowledgeSafe(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method AcknowledgeSafe not implemented")
}

func (UnimplementedWalkServiceServer) TriggerSOS(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method TriggerSOS not implemented")
}

func (UnimplementedWalkServiceServer) GetSnapshot(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSnapshot not implemented")
}

func (UnimplementedWalkServiceServer) WatchSnapshots(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error {
	return status.Error(codes.Unimplemented, "method WatchSnapshots not implemented")
}

func (UnimplementedWalkServiceServer) StreamMotion(grpc.ClientStreamingServer[structpb.Struct, structpb.Struct]) error {
	return status.Error(codes.Unimplemented, "method StreamMotion not implemented")
}

func (UnimplementedWalkServiceServer) ReportPosition(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method ReportPosition not implemented")
}

// RegisterWalkServiceServer registers srv on the provided registrar.
func RegisterWalkServiceServer(s grpc.ServiceRegistrar, srv WalkServiceServer) {
	s.RegisterService(&WalkService_ServiceDesc, srv)
}

// unaryHandler adapts a typed unary method to grpc.MethodHandler.
func unaryHandler[Req proto.Message, Res proto.Message](
	fullMethod string,
	newReq func() Req,
	call func(WalkServiceServer, context.Context, Req) (Res, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}

		if interceptor == nil {
			return call(srv.(WalkServiceServer), ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(WalkServiceServer), ctx, req.(Req))
		}

		return interceptor(ctx, in, info, handler)
	}
}

func newEmpty() *emptypb.Empty { return new(emptypb.Empty) }

func newStruct() *structpb.Struct { return new(structpb.Struct) }

func watchSnapshotsHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	return srv.(WalkServiceServer).WatchSnapshots(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}

func streamMotionHandler(srv any, stream grpc.ServerStream) error {
	return srv.(WalkServiceServer).StreamMotion(&grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// WalkService_ServiceDesc is the grpc.ServiceDesc for WalkService.
//
//nolint:gochecknoglobals // Service descriptors are package-level by gRPC convention.
var WalkService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*WalkServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "StartSession",
			Handler: unaryHandler(WalkService_StartSession_FullMethodName, newEmpty,
				WalkServiceServer.StartSession),
		},
		{
			MethodName: "StopSession",
			Handler: unaryHandler(WalkService_StopSession_FullMethodName, newEmpty,
				WalkServiceServer.StopSession),
		},
		{
			MethodName: "AcknowledgeSafe",
			Handler: unaryHandler(WalkService_AcknowledgeSafe_FullMethodName, newEmpty,
				WalkServiceServer.AcknowledgeSafe),
		},
		{
			MethodName: "TriggerSOS",
			Handler: unaryHandler(WalkService_TriggerSOS_FullMethodName, newStruct,
				WalkServiceServer.TriggerSOS),
		},
		{
			MethodName: "GetSnapshot",
			Handler: unaryHandler(WalkService_GetSnapshot_FullMethodName, newEmpty,
				WalkServiceServer.GetSnapshot),
		},
		{
			MethodName: "ReportPosition",
			Handler: unaryHandler(WalkService_ReportPosition_FullMethodName, newStruct,
				WalkServiceServer.ReportPosition),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchSnapshots",
			Handler:       watchSnapshotsHandler,
			ServerStreams: true,
		},
		{
			StreamName:    "StreamMotion",
			Handler:       streamMotionHandler,
			ClientStreams: true,
		},
	},
	Metadata: "safewalk/v1/walk.proto",
}

// WalkServiceClient is the client API for WalkService.
type WalkServiceClient interface {
	StartSession(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	StopSession(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	AcknowledgeSafe(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	TriggerSOS(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetSnapshot(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	WatchSnapshots(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error)
	StreamMotion(ctx context.Context, opts ...grpc.CallOption) (grpc.ClientStreamingClient[structpb.Struct, structpb.Struct], error)
	ReportPosition(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type walkServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewWalkServiceClient creates a client bound to cc.
func NewWalkServiceClient(cc grpc.ClientConnInterface) WalkServiceClient {
	return &walkServiceClient{cc: cc}
}

func (c *walkServiceClient) StartSession(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, WalkService_StartSession_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *walkServiceClient) StopSession(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, WalkService_StopSession_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *walkServiceClient) AcknowledgeSafe(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, WalkService_AcknowledgeSafe_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *walkServiceClient) TriggerSOS(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, WalkService_TriggerSOS_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *walkServiceClient) GetSnapshot(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, WalkService_GetSnapshot_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *walkServiceClient) WatchSnapshots(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &WalkService_ServiceDesc.Streams[0], WalkService_WatchSnapshots_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}

	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}

	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}

	return x, nil
}

func (c *walkServiceClient) StreamMotion(ctx context.Context, opts ...grpc.CallOption) (grpc.ClientStreamingClient[structpb.Struct, structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &WalkService_ServiceDesc.Streams[1], WalkService_StreamMotion_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}

	return &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}, nil
}

func (c *walkServiceClient) ReportPosition(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, WalkService_ReportPosition_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
