package grpcservice

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"go.klb.dev/recall/internal/api"
	"go.klb.dev/recall/internal/history"
)

func startServer(t *testing.T, token string) (*history.History, *api.HistoryClient) {
	t.Helper()
	h := history.New(history.DefaultConfig(), nil)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	api.RegisterHistoryServer(srv, New(h, token, "test"))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return h, api.NewHistoryClient(conn)
}

func TestUnaryRoundTrip(t *testing.T) {
	_, c := startServer(t, "")
	ctx := context.Background()

	added, err := c.Add(ctx, &api.AddRequest{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", added.Item.Text)
	assert.NotNil(t, added.Item.CreatedAt)
	_, err = c.Add(ctx, &api.AddRequest{Text: "world"})
	require.NoError(t, err)

	size, err := c.Size(ctx, &api.SizeRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, size.Size)

	got, err := c.Get(ctx, &api.GetRequest{Index: 1})
	require.NoError(t, err)
	assert.Equal(t, added.Item.ID, got.Item.ID)

	found, err := c.Search(ctx, &api.SearchRequest{Query: "WOR"})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, found.Indices)

	sel, err := c.Select(ctx, &api.SelectRequest{ID: added.Item.ID})
	require.NoError(t, err)
	assert.Equal(t, "hello", sel.Item.Text)

	_, err = c.Delete(ctx, &api.DeleteRequest{ID: added.Item.ID})
	require.NoError(t, err)

	tr, err := c.Track(ctx, &api.TrackRequest{Enabled: false})
	require.NoError(t, err)
	assert.False(t, tr.Tracking)

	_, err = c.Empty(ctx, &api.EmptyRequest{})
	require.NoError(t, err)

	st, err := c.Status(ctx, &api.StatusRequest{})
	require.NoError(t, err)
	assert.Equal(t, "test", st.Version)
	assert.Equal(t, history.DefaultName, st.History)
	assert.Zero(t, st.Size)
	assert.False(t, st.Tracking)
}

func TestReplaceStreamsPositionalUpdate(t *testing.T) {
	h, c := startServer(t, "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, s := range []string{"a", "b", "c"} {
		_, err := h.Add(ctx, s)
		require.NoError(t, err)
	}
	mid, err := h.Get(1)
	require.NoError(t, err)

	stream, err := c.Watch(ctx, &api.WatchRequest{Source: "test-ui"})
	require.NoError(t, err)
	_, err = stream.Recv()
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(h.Watchers()) == 1 }, time.Second, 5*time.Millisecond)

	got, err := c.Replace(ctx, &api.ReplaceRequest{ID: mid.ID, Text: "bee"})
	require.NoError(t, err)
	assert.Equal(t, mid.ID, got.Item.ID)
	assert.Equal(t, "bee", got.Item.Text)

	ev, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, &api.WatchEvent{Kind: api.KindUpdate, Action: api.ActionReplace, Target: api.TargetPosition, Position: 1}, ev)

	_, err = c.Replace(ctx, &api.ReplaceRequest{ID: "nope", Text: "x"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestNamedHistories(t *testing.T) {
	h, c := startServer(t, "")
	ctx := context.Background()
	_, err := h.Add(ctx, "default")
	require.NoError(t, err)

	sw, err := c.Switch(ctx, &api.SwitchRequest{Name: "work"})
	require.NoError(t, err)
	assert.Equal(t, "work", sw.Name)
	assert.Zero(t, h.Size())

	list, err := c.Histories(ctx, &api.HistoriesRequest{})
	require.NoError(t, err)
	assert.Equal(t, "work", list.Current)
	assert.Equal(t, []string{"work"}, list.Names, "no store: only the current history is known")

	_, err = c.Switch(ctx, &api.SwitchRequest{Name: ""})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.DeleteHistory(ctx, &api.DeleteHistoryRequest{Name: "missing"})
	assert.Equal(t, codes.NotFound, status.Code(err))
	_, err = c.DeleteHistory(ctx, &api.DeleteHistoryRequest{Name: "work"})
	require.NoError(t, err)
}

func TestErrorCodes(t *testing.T) {
	_, c := startServer(t, "")
	ctx := context.Background()

	_, err := c.Get(ctx, &api.GetRequest{Index: 3})
	assert.Equal(t, codes.OutOfRange, status.Code(err))

	_, err = c.Select(ctx, &api.SelectRequest{ID: "nope"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = c.Delete(ctx, &api.DeleteRequest{ID: "nope"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = c.Add(ctx, &api.AddRequest{Text: ""})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestAuth(t *testing.T) {
	_, c := startServer(t, "s3cret")

	_, err := c.Size(context.Background(), &api.SizeRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer wrong")
	_, err = c.Size(bad, &api.SizeRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	good := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer s3cret")
	_, err = c.Size(good, &api.SizeRequest{})
	assert.NoError(t, err)
}

func TestWatchStreamsEvents(t *testing.T) {
	h, c := startServer(t, "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := c.Watch(ctx, &api.WatchRequest{Source: "test-ui"})
	require.NoError(t, err)

	first, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, &api.WatchEvent{Kind: api.KindTracking, Tracking: true}, first)

	require.Eventually(t, func() bool { return len(h.Watchers()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "test-ui", h.Watchers()[0].Source)

	a, err := h.Add(ctx, "a")
	require.NoError(t, err)
	ev, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, &api.WatchEvent{Kind: api.KindUpdate, Action: api.ActionReplace, Target: api.TargetAll}, ev)

	require.NoError(t, h.Delete(ctx, a.ID))
	ev, err = stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, &api.WatchEvent{Kind: api.KindUpdate, Action: api.ActionRemove, Target: api.TargetPosition}, ev)

	h.SetTracking(false)
	ev, err = stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, &api.WatchEvent{Kind: api.KindTracking}, ev)

	cancel()
	require.Eventually(t, func() bool { return len(h.Watchers()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestEventToAPI(t *testing.T) {
	ev := EventToAPI(history.Event{Kind: history.EventUpdate, Action: history.ActionRemove, Target: history.TargetPosition, Position: 4})
	assert.Equal(t, &api.WatchEvent{Kind: api.KindUpdate, Action: api.ActionRemove, Target: api.TargetPosition, Position: 4}, ev)

	ev = EventToAPI(history.Event{Kind: history.EventSelected, Text: "secret"})
	assert.Equal(t, &api.WatchEvent{Kind: api.KindSelected}, ev)
}
