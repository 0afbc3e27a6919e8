// Package grpcservice implements the recall.v1.History gRPC server over the
// history engine.
package grpcservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"go.klb.dev/recall/internal/api"
	"go.klb.dev/recall/internal/history"
)

// SourceHeader is the metadata key clients use to name themselves.
const SourceHeader = "x-recall-source"

// Service implements api.HistoryServer.
type Service struct {
	api.UnimplementedHistoryServer
	h       *history.History
	token   string // empty = no auth
	version string

	watchSeq atomic.Uint64
}

// New returns a Service backed by h. token may be empty to disable auth.
func New(h *history.History, token, version string) *Service {
	return &Service{h: h, token: token, version: version}
}

// Size implements History.Size.
func (s *Service) Size(ctx context.Context, _ *api.SizeRequest) (*api.SizeResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	return &api.SizeResponse{Size: s.h.Size()}, nil
}

// Get implements History.Get.
func (s *Service) Get(ctx context.Context, req *api.GetRequest) (*api.GetResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	it, err := s.h.Get(req.Index)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.GetResponse{Item: ItemToAPI(it)}, nil
}

// Search implements History.Search.
func (s *Service) Search(ctx context.Context, req *api.SearchRequest) (*api.SearchResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	return &api.SearchResponse{Indices: s.h.Search(req.Query)}, nil
}

// Add implements History.Add.
func (s *Service) Add(ctx context.Context, req *api.AddRequest) (*api.AddResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	it, err := s.h.Add(ctx, req.Text)
	if err != nil {
		return nil, toStatus(err)
	}
	slog.Debug("item added over rpc", "source", sourceFromCtx(ctx), "id", it.ID)
	return &api.AddResponse{Item: ItemToAPI(it)}, nil
}

// Select implements History.Select.
func (s *Service) Select(ctx context.Context, req *api.SelectRequest) (*api.SelectResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	it, err := s.h.Select(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.SelectResponse{Item: ItemToAPI(it)}, nil
}

// Delete implements History.Delete.
func (s *Service) Delete(ctx context.Context, req *api.DeleteRequest) (*api.DeleteResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	if err := s.h.Delete(ctx, req.ID); err != nil {
		return nil, toStatus(err)
	}
	return &api.DeleteResponse{}, nil
}

// Replace implements History.Replace.
func (s *Service) Replace(ctx context.Context, req *api.ReplaceRequest) (*api.ReplaceResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	it, err := s.h.Replace(ctx, req.ID, req.Text)
	if err != nil {
		return nil, toStatus(err)
	}
	slog.Debug("item replaced over rpc", "source", sourceFromCtx(ctx), "id", it.ID)
	return &api.ReplaceResponse{Item: ItemToAPI(it)}, nil
}

// Switch implements History.Switch.
func (s *Service) Switch(ctx context.Context, req *api.SwitchRequest) (*api.SwitchResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	if err := s.h.Switch(ctx, req.Name); err != nil {
		return nil, toStatus(err)
	}
	return &api.SwitchResponse{Name: s.h.Name()}, nil
}

// Histories implements History.Histories.
func (s *Service) Histories(ctx context.Context, _ *api.HistoriesRequest) (*api.HistoriesResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	names, err := s.h.Histories(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.HistoriesResponse{Names: names, Current: s.h.Name()}, nil
}

// DeleteHistory implements History.DeleteHistory.
func (s *Service) DeleteHistory(ctx context.Context, req *api.DeleteHistoryRequest) (*api.DeleteHistoryResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	if err := s.h.DeleteHistory(ctx, req.Name); err != nil {
		return nil, toStatus(err)
	}
	return &api.DeleteHistoryResponse{}, nil
}

// Empty implements History.Empty.
func (s *Service) Empty(ctx context.Context, _ *api.EmptyRequest) (*api.EmptyResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	s.h.Empty(ctx)
	return &api.EmptyResponse{}, nil
}

// Track implements History.Track.
func (s *Service) Track(ctx context.Context, req *api.TrackRequest) (*api.TrackResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	s.h.SetTracking(req.Enabled)
	return &api.TrackResponse{Tracking: s.h.Tracking()}, nil
}

// Status implements History.Status.
func (s *Service) Status(ctx context.Context, _ *api.StatusRequest) (*api.StatusResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	infos := s.h.Watchers()
	watchers := make([]*api.WatcherInfo, 0, len(infos))
	for _, w := range infos {
		watchers = append(watchers, &api.WatcherInfo{
			ID:          w.ID,
			Source:      w.Source,
			ConnectedAt: timestamppb.New(w.ConnectedAt),
		})
	}
	return &api.StatusResponse{
		Version:  s.version,
		History:  s.h.Name(),
		Size:     s.h.Size(),
		Tracking: s.h.Tracking(),
		Watchers: watchers,
	}, nil
}

// Watch implements History.Watch. The current tracking state is sent first
// so a fresh subscriber never has to ask for it.
func (s *Service) Watch(req *api.WatchRequest, stream api.WatchServer) error {
	ctx := stream.Context()
	if err := s.auth(ctx); err != nil {
		return err
	}

	src := req.Source
	if src == "" {
		src = sourceFromCtx(ctx)
	}
	wp := &watchPeer{
		id:          fmt.Sprintf("%s/watch/%d", addrFromCtx(ctx), s.watchSeq.Add(1)),
		source:      src,
		ch:          make(chan history.Event, 64),
		connectedAt: time.Now(),
	}

	s.h.Register(wp)
	defer s.h.Unregister(wp)

	if err := stream.Send(&api.WatchEvent{Kind: api.KindTracking, Tracking: s.h.Tracking()}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-wp.ch:
			if err := stream.Send(EventToAPI(ev)); err != nil {
				return err
			}
		}
	}
}

// Authorize validates the bearer token in ctx metadata. Skipped when no
// token is configured. Exported for the HTTP gateway.
func (s *Service) Authorize(ctx context.Context) error { return s.auth(ctx) }

// auth validates the bearer token in ctx metadata. Skipped when s.token is empty.
func (s *Service) auth(ctx context.Context) error {
	if s.token == "" {
		return nil
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return status.Error(codes.Unauthenticated, "missing authorization header")
	}
	const prefix = "Bearer "
	tok := vals[0]
	if len(tok) > len(prefix) && tok[:len(prefix)] == prefix {
		tok = tok[len(prefix):]
	}
	if tok != s.token {
		return status.Error(codes.Unauthenticated, "invalid token")
	}
	return nil
}

// toStatus maps history errors onto gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, history.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, history.ErrOutOfRange):
		return status.Error(codes.OutOfRange, err.Error())
	case errors.Is(err, history.ErrRejected), errors.Is(err, history.ErrInvalidName):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// ItemToAPI converts a history item to its wire form.
func ItemToAPI(it history.Item) *api.Item {
	out := &api.Item{ID: it.ID, Text: it.Text}
	if !it.CreatedAt.IsZero() {
		out.CreatedAt = timestamppb.New(it.CreatedAt)
	}
	return out
}

// EventToAPI converts a history event to its wire form.
func EventToAPI(ev history.Event) *api.WatchEvent {
	switch ev.Kind {
	case history.EventTracking:
		return &api.WatchEvent{Kind: api.KindTracking, Tracking: ev.Tracking}
	case history.EventSelected:
		return &api.WatchEvent{Kind: api.KindSelected}
	}
	out := &api.WatchEvent{Kind: api.KindUpdate, Position: ev.Position}
	out.Action = api.ActionReplace
	if ev.Action == history.ActionRemove {
		out.Action = api.ActionRemove
	}
	out.Target = api.TargetAll
	if ev.Target == history.TargetPosition {
		out.Target = api.TargetPosition
	}
	return out
}

func sourceFromCtx(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(SourceHeader); len(vals) > 0 {
			return vals[0]
		}
	}
	return addrFromCtx(ctx)
}

func addrFromCtx(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return "unknown"
}

// watchPeer is a transient history.Watcher backed by a Watch stream.
type watchPeer struct {
	id          string
	source      string
	ch          chan history.Event
	connectedAt time.Time
}

func (p *watchPeer) ID() string { return p.id }

func (p *watchPeer) Info() history.WatcherInfo {
	return history.WatcherInfo{ID: p.id, Source: p.source, ConnectedAt: p.connectedAt}
}

func (p *watchPeer) Send(ev history.Event) {
	select {
	case p.ch <- ev:
	default:
		slog.Warn("watch peer channel full, dropping", "peer", p.id)
	}
}
