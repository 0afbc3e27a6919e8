package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "recall.v1.History"

// FullMethod returns the gRPC path of a History method.
func FullMethod(method string) string { return "/" + ServiceName + "/" + method }

// HistoryServer is the server API for the History service.
type HistoryServer interface {
	Size(context.Context, *SizeRequest) (*SizeResponse, error)
	Get(context.Context, *GetRequest) (*GetResponse, error)
	Search(context.Context, *SearchRequest) (*SearchResponse, error)
	Add(context.Context, *AddRequest) (*AddResponse, error)
	Select(context.Context, *SelectRequest) (*SelectResponse, error)
	Delete(context.Context, *DeleteRequest) (*DeleteResponse, error)
	Replace(context.Context, *ReplaceRequest) (*ReplaceResponse, error)
	Empty(context.Context, *EmptyRequest) (*EmptyResponse, error)
	Track(context.Context, *TrackRequest) (*TrackResponse, error)
	Switch(context.Context, *SwitchRequest) (*SwitchResponse, error)
	Histories(context.Context, *HistoriesRequest) (*HistoriesResponse, error)
	DeleteHistory(context.Context, *DeleteHistoryRequest) (*DeleteHistoryResponse, error)
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
	Watch(*WatchRequest, WatchServer) error
}

// UnimplementedHistoryServer returns Unimplemented for every method.
type UnimplementedHistoryServer struct{}

func (UnimplementedHistoryServer) Size(context.Context, *SizeRequest) (*SizeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Size not implemented")
}
func (UnimplementedHistoryServer) Get(context.Context, *GetRequest) (*GetResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Get not implemented")
}
func (UnimplementedHistoryServer) Search(context.Context, *SearchRequest) (*SearchResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Search not implemented")
}
func (UnimplementedHistoryServer) Add(context.Context, *AddRequest) (*AddResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Add not implemented")
}
func (UnimplementedHistoryServer) Select(context.Context, *SelectRequest) (*SelectResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Select not implemented")
}
func (UnimplementedHistoryServer) Delete(context.Context, *DeleteRequest) (*DeleteResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Delete not implemented")
}
func (UnimplementedHistoryServer) Replace(context.Context, *ReplaceRequest) (*ReplaceResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Replace not implemented")
}
func (UnimplementedHistoryServer) Switch(context.Context, *SwitchRequest) (*SwitchResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Switch not implemented")
}
func (UnimplementedHistoryServer) Histories(context.Context, *HistoriesRequest) (*HistoriesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Histories not implemented")
}
func (UnimplementedHistoryServer) DeleteHistory(context.Context, *DeleteHistoryRequest) (*DeleteHistoryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteHistory not implemented")
}
func (UnimplementedHistoryServer) Empty(context.Context, *EmptyRequest) (*EmptyResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Empty not implemented")
}
func (UnimplementedHistoryServer) Track(context.Context, *TrackRequest) (*TrackResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Track not implemented")
}
func (UnimplementedHistoryServer) Status(context.Context, *StatusRequest) (*StatusResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Status not implemented")
}
func (UnimplementedHistoryServer) Watch(*WatchRequest, WatchServer) error {
	return status.Error(codes.Unimplemented, "method Watch not implemented")
}

// WatchServer is the server side of a Watch stream.
type WatchServer interface {
	Send(*WatchEvent) error
	grpc.ServerStream
}

type watchServer struct {
	grpc.ServerStream
}

func (x *watchServer) Send(ev *WatchEvent) error { return x.ServerStream.SendMsg(ev) }

// ServiceDesc describes the History service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*HistoryServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Size", HistoryServer.Size),
		unary("Get", HistoryServer.Get),
		unary("Search", HistoryServer.Search),
		unary("Add", HistoryServer.Add),
		unary("Select", HistoryServer.Select),
		unary("Delete", HistoryServer.Delete),
		unary("Replace", HistoryServer.Replace),
		unary("Empty", HistoryServer.Empty),
		unary("Track", HistoryServer.Track),
		unary("Switch", HistoryServer.Switch),
		unary("Histories", HistoryServer.Histories),
		unary("DeleteHistory", HistoryServer.DeleteHistory),
		unary("Status", HistoryServer.Status),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "recall/v1/history",
}

// RegisterHistoryServer registers srv on s.
func RegisterHistoryServer(s grpc.ServiceRegistrar, srv HistoryServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unary[Req, Resp any](name string, call func(HistoryServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	full := FullMethod(name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(HistoryServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(HistoryServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(HistoryServer).Watch(in, &watchServer{stream})
}
