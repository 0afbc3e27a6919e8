// Package ipc provides the local IPC channel between the recall daemon and
// its clients (ui, list and the other sub-commands).
//
// The channel is plain gRPC served over a Unix domain socket (a named pipe
// on Windows), using the same History service as the optional TCP listener.
// Clients try the socket first and fall back to TCP if it is absent.
package ipc

import (
	"context"
	"net"
	"os"
)

// SocketPath returns the platform-appropriate path for the IPC socket.
//
//   - Linux:   $XDG_RUNTIME_DIR/recall.sock, else $TMPDIR/recall.sock
//   - macOS:   $TMPDIR/recall.sock
//   - Windows: \\.\pipe\recall
//
// $RECALL_SOCKET overrides all of them.
func SocketPath() string {
	if s := os.Getenv("RECALL_SOCKET"); s != "" {
		return s
	}
	return socketPath()
}

// IsRunning reports whether a daemon appears to be listening on the IPC
// socket. It does a cheap dial-and-close; no data is exchanged.
func IsRunning() bool {
	c, err := Dial(context.Background())
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen creates a listener on the IPC socket.
func Listen() (net.Listener, error) {
	return listenIPC(SocketPath())
}

// Dial connects to the IPC socket.
func Dial(ctx context.Context) (net.Conn, error) {
	return dialIPC(ctx, SocketPath())
}
