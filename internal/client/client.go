// Package client is the remote side of the history view: a thin wrapper
// over the recall.v1.History RPCs that implements view.Source, plus a
// reconnecting Watch loop feeding change notifications to the UI.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"go.klb.dev/recall/internal/api"
	"go.klb.dev/recall/internal/history"
	"go.klb.dev/recall/internal/ipc"
	"go.klb.dev/recall/internal/tlsconf"
	"go.klb.dev/recall/internal/view"
)

// ErrNoDaemon is returned by Dial when neither the IPC socket nor a TCP
// address is available.
var ErrNoDaemon = errors.New("no reachable recall daemon")

const dialCheckTimeout = 2 * time.Second

// Options configures Dial.
type Options struct {
	// Addr is the daemon TCP address (host:port). It is only tried when the
	// IPC socket is absent. Empty means IPC only.
	Addr string
	// Token is the shared secret; it also derives the TLS key.
	Token string
	// Source names this client in the daemon's status output.
	Source string
}

// Client talks to one recall daemon.
type Client struct {
	rpc    *api.HistoryClient
	closer io.Closer
	source string
	via    string
}

// New wraps an existing connection. Close does not close cc.
func New(cc grpc.ClientConnInterface, source string) *Client {
	return &Client{rpc: api.NewHistoryClient(cc), source: source, via: "conn"}
}

// Dial connects over the local IPC socket when a daemon is listening there,
// and over TLS to opts.Addr otherwise.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	creds := &perRPC{token: opts.Token, source: opts.Source}

	if ipc.IsRunning() {
		conn, err := grpc.NewClient("passthrough:///recall-ipc",
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return ipc.Dial(ctx)
			}),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithPerRPCCredentials(creds),
		)
		if err != nil {
			return nil, fmt.Errorf("dial ipc: %w", err)
		}
		return &Client{rpc: api.NewHistoryClient(conn), closer: conn, source: opts.Source, via: "ipc:" + ipc.SocketPath()}, nil
	}
	if opts.Addr == "" {
		return nil, fmt.Errorf("%w: socket %s not found", ErrNoDaemon, ipc.SocketPath())
	}

	passphrase := opts.Token
	if passphrase == "" {
		passphrase = tlsconf.DefaultPassphrase
	}
	tc, err := tlsconf.New(passphrase)
	if err != nil {
		return nil, fmt.Errorf("tls credentials: %w", err)
	}
	conn, err := grpc.NewClient(opts.Addr,
		grpc.WithTransportCredentials(tc.GRPC()),
		grpc.WithPerRPCCredentials(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", opts.Addr, err)
	}
	c := &Client{rpc: api.NewHistoryClient(conn), closer: conn, source: opts.Source, via: "tcp:" + opts.Addr}

	// Verify reachability with a short timeout
	pctx, cancel := context.WithTimeout(ctx, dialCheckTimeout)
	defer cancel()
	if _, err := c.Status(pctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrNoDaemon, opts.Addr, err)
	}
	return c, nil
}

// Via describes the transport in use, e.g. "ipc:/run/user/1000/recall.sock".
func (c *Client) Via() string { return c.via }

// Close releases the connection when Dial created it.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// Size returns the number of history entries.
func (c *Client) Size(ctx context.Context) (int, error) {
	resp, err := c.rpc.Size(ctx, &api.SizeRequest{})
	if err != nil {
		return 0, translate(err)
	}
	return resp.Size, nil
}

// ElementAt returns the entry at index.
func (c *Client) ElementAt(ctx context.Context, index int) (view.Entry, error) {
	resp, err := c.rpc.Get(ctx, &api.GetRequest{Index: index})
	if err != nil {
		return view.Entry{}, translate(err)
	}
	if resp.Item == nil {
		return view.Entry{}, fmt.Errorf("get %d: empty response", index)
	}
	return view.Entry{Index: index, ID: resp.Item.ID, Text: resp.Item.Text}, nil
}

// Search returns the ascending indices of entries matching query.
func (c *Client) Search(ctx context.Context, query string) ([]int, error) {
	resp, err := c.rpc.Search(ctx, &api.SearchRequest{Query: query})
	if err != nil {
		return nil, translate(err)
	}
	if resp.Indices == nil {
		return []int{}, nil
	}
	return resp.Indices, nil
}

// Add records text as the newest entry.
func (c *Client) Add(ctx context.Context, text string) (*api.Item, error) {
	resp, err := c.rpc.Add(ctx, &api.AddRequest{Text: text})
	if err != nil {
		return nil, translate(err)
	}
	return resp.Item, nil
}

// Select moves the entry to the front and puts it on the clipboard.
func (c *Client) Select(ctx context.Context, id string) (*api.Item, error) {
	resp, err := c.rpc.Select(ctx, &api.SelectRequest{ID: id})
	if err != nil {
		return nil, translate(err)
	}
	return resp.Item, nil
}

// Delete removes the entry with id.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.rpc.Delete(ctx, &api.DeleteRequest{ID: id})
	return translate(err)
}

// Replace swaps the text of the entry with id in place.
func (c *Client) Replace(ctx context.Context, id, text string) (*api.Item, error) {
	resp, err := c.rpc.Replace(ctx, &api.ReplaceRequest{ID: id, Text: text})
	if err != nil {
		return nil, translate(err)
	}
	return resp.Item, nil
}

// Switch makes name the daemon's current history.
func (c *Client) Switch(ctx context.Context, name string) error {
	_, err := c.rpc.Switch(ctx, &api.SwitchRequest{Name: name})
	return translate(err)
}

// Histories returns the known history names and the current one.
func (c *Client) Histories(ctx context.Context) (names []string, current string, err error) {
	resp, err := c.rpc.Histories(ctx, &api.HistoriesRequest{})
	if err != nil {
		return nil, "", translate(err)
	}
	return resp.Names, resp.Current, nil
}

// DeleteHistory drops the named history.
func (c *Client) DeleteHistory(ctx context.Context, name string) error {
	_, err := c.rpc.DeleteHistory(ctx, &api.DeleteHistoryRequest{Name: name})
	return translate(err)
}

// Empty clears the history.
func (c *Client) Empty(ctx context.Context) error {
	_, err := c.rpc.Empty(ctx, &api.EmptyRequest{})
	return translate(err)
}

// SetTracking switches clipboard tracking and returns the resulting state.
func (c *Client) SetTracking(ctx context.Context, on bool) (bool, error) {
	resp, err := c.rpc.Track(ctx, &api.TrackRequest{Enabled: on})
	if err != nil {
		return false, translate(err)
	}
	return resp.Tracking, nil
}

// Status returns the daemon's status.
func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	resp, err := c.rpc.Status(ctx, &api.StatusRequest{})
	if err != nil {
		return nil, translate(err)
	}
	return resp, nil
}

// translate maps gRPC status codes back onto the history sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%s: %w", st.Message(), history.ErrNotFound)
	case codes.OutOfRange:
		return fmt.Errorf("%s: %w", st.Message(), history.ErrOutOfRange)
	case codes.InvalidArgument:
		return fmt.Errorf("%s: %w", st.Message(), history.ErrRejected)
	case codes.Canceled:
		return fmt.Errorf("%s: %w", st.Message(), context.Canceled)
	case codes.DeadlineExceeded:
		return fmt.Errorf("%s: %w", st.Message(), context.DeadlineExceeded)
	}
	return err
}

// IsUnavailable reports whether err means the daemon could not be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrNoDaemon) || status.Code(err) == codes.Unavailable
}

type perRPC struct {
	token  string
	source string
}

func (c *perRPC) GetRequestMetadata(_ context.Context, _ ...string) (map[string]string, error) {
	md := make(map[string]string, 2)
	if c.token != "" {
		md["authorization"] = "Bearer " + c.token
	}
	if c.source != "" {
		md["x-recall-source"] = c.source
	}
	return md, nil
}

func (c *perRPC) RequireTransportSecurity() bool { return false }
