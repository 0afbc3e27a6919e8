package api

import (
	"context"

	"google.golang.org/grpc"
)

// HistoryClient is the typed client for the History service. Every call is
// sent with the JSON content-subtype.
type HistoryClient struct {
	cc grpc.ClientConnInterface
}

// NewHistoryClient wraps cc.
func NewHistoryClient(cc grpc.ClientConnInterface) *HistoryClient {
	return &HistoryClient{cc: cc}
}

func callOpts(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HistoryClient) Size(ctx context.Context, in *SizeRequest, opts ...grpc.CallOption) (*SizeResponse, error) {
	return invoke[SizeResponse](ctx, c.cc, "Size", in, opts)
}

func (c *HistoryClient) Get(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (*GetResponse, error) {
	return invoke[GetResponse](ctx, c.cc, "Get", in, opts)
}

func (c *HistoryClient) Search(ctx context.Context, in *SearchRequest, opts ...grpc.CallOption) (*SearchResponse, error) {
	return invoke[SearchResponse](ctx, c.cc, "Search", in, opts)
}

func (c *HistoryClient) Add(ctx context.Context, in *AddRequest, opts ...grpc.CallOption) (*AddResponse, error) {
	return invoke[AddResponse](ctx, c.cc, "Add", in, opts)
}

func (c *HistoryClient) Select(ctx context.Context, in *SelectRequest, opts ...grpc.CallOption) (*SelectResponse, error) {
	return invoke[SelectResponse](ctx, c.cc, "Select", in, opts)
}

func (c *HistoryClient) Delete(ctx context.Context, in *DeleteRequest, opts ...grpc.CallOption) (*DeleteResponse, error) {
	return invoke[DeleteResponse](ctx, c.cc, "Delete", in, opts)
}

func (c *HistoryClient) Replace(ctx context.Context, in *ReplaceRequest, opts ...grpc.CallOption) (*ReplaceResponse, error) {
	return invoke[ReplaceResponse](ctx, c.cc, "Replace", in, opts)
}

func (c *HistoryClient) Switch(ctx context.Context, in *SwitchRequest, opts ...grpc.CallOption) (*SwitchResponse, error) {
	return invoke[SwitchResponse](ctx, c.cc, "Switch", in, opts)
}

func (c *HistoryClient) Histories(ctx context.Context, in *HistoriesRequest, opts ...grpc.CallOption) (*HistoriesResponse, error) {
	return invoke[HistoriesResponse](ctx, c.cc, "Histories", in, opts)
}

func (c *HistoryClient) DeleteHistory(ctx context.Context, in *DeleteHistoryRequest, opts ...grpc.CallOption) (*DeleteHistoryResponse, error) {
	return invoke[DeleteHistoryResponse](ctx, c.cc, "DeleteHistory", in, opts)
}

func (c *HistoryClient) Empty(ctx context.Context, in *EmptyRequest, opts ...grpc.CallOption) (*EmptyResponse, error) {
	return invoke[EmptyResponse](ctx, c.cc, "Empty", in, opts)
}

func (c *HistoryClient) Track(ctx context.Context, in *TrackRequest, opts ...grpc.CallOption) (*TrackResponse, error) {
	return invoke[TrackResponse](ctx, c.cc, "Track", in, opts)
}

func (c *HistoryClient) Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, "Status", in, opts)
}

// WatchClient is the client side of a Watch stream.
type WatchClient interface {
	Recv() (*WatchEvent, error)
	grpc.ClientStream
}

type watchClient struct {
	grpc.ClientStream
}

func (x *watchClient) Recv() (*WatchEvent, error) {
	ev := new(WatchEvent)
	if err := x.ClientStream.RecvMsg(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Watch opens a server stream of history events.
func (c *HistoryClient) Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (WatchClient, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], FullMethod("Watch"), callOpts(opts)...)
	if err != nil {
		return nil, err
	}
	x := &watchClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
