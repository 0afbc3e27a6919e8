package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/soheilhy/cmux"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"

	"go.klb.dev/recall/internal/api"
	"go.klb.dev/recall/internal/capture"
	"go.klb.dev/recall/internal/clip"
	"go.klb.dev/recall/internal/config"
	"go.klb.dev/recall/internal/grpcservice"
	"go.klb.dev/recall/internal/history"
	"go.klb.dev/recall/internal/ipc"
	"go.klb.dev/recall/internal/store"
	"go.klb.dev/recall/internal/tlsconf"
)

func newDaemonCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the clipboard history daemon",
		Long: `Starts the recall daemon. It records system clipboard changes into a
persistent history and serves it to "recall ui" and the other sub-commands
over the local IPC socket.

With --addr the daemon also listens on TCP. gRPC and an HTTP/JSON API
share the port, both behind TLS derived from --token.

Config file search order:
  /etc/recall/recall.toml
  $HOME/.config/recall/recall.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → RECALL_* env vars → flags

History settings (max-history-size, max-memory-usage, ...) are re-read
when the config file changes.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runDaemon(v) },
	}

	f := cmd.Flags()
	f.String("addr", "", "TCP listen address for remote clients (empty = IPC only)")
	f.String("token", "", "shared secret for TCP clients (also derives the TLS key)")
	f.String("data-dir", config.DefaultDataDir(), "directory holding "+store.FileName)
	f.Bool("no-clipboard", false, "do not touch the system clipboard (history is fed by clients only)")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runDaemon(v *viper.Viper) error {
	setupLogging(v, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings := config.FromViper(v)
	addr := v.GetString("addr")
	token := v.GetString("token")

	slog.Info("recall daemon starting",
		"version", Version,
		"data_dir", v.GetString("data-dir"),
		"addr", addr,
		"auth", token != "",
	)

	if ipc.IsRunning() {
		return fmt.Errorf("a daemon is already listening on %s", ipc.SocketPath())
	}

	st, err := store.Open(v.GetString("data-dir"))
	if err != nil {
		return err
	}
	defer st.Close()

	h := history.New(settings.History(), st)
	if err := h.Switch(ctx, settings.HistoryName); err != nil {
		return err
	}
	if err := h.Load(ctx); err != nil {
		return err
	}
	h.SetTracking(settings.TrackChanges)
	slog.Info("history loaded", "db", st.Path(), "history", h.Name(), "items", h.Size())

	if !v.GetBool("no-clipboard") {
		backend := clip.New()
		defer backend.Close()
		slog.Info("clipboard backend", "name", backend.Name())
		go capture.New(h, backend).Run(ctx)
	}

	watchSettings(ctx, v, h)

	// The socket is owner-only, so local clients skip token auth.
	ipcLn, err := ipc.Listen()
	if err != nil {
		return fmt.Errorf("ipc listen: %w", err)
	}
	ipcSrv := grpc.NewServer()
	api.RegisterHistoryServer(ipcSrv, grpcservice.New(h, "", Version))
	go func() {
		if err := ipcSrv.Serve(ipcLn); err != nil {
			slog.Error("ipc server stopped", "err", err)
		}
	}()
	slog.Info("IPC socket listening", "path", ipc.SocketPath())

	var tcpSrv *grpc.Server
	if addr != "" {
		tcpSrv, err = serveTCP(addr, grpcservice.New(h, token, Version), token)
		if err != nil {
			ipcSrv.Stop()
			return err
		}
	}

	<-ctx.Done()
	slog.Info("shutting down")
	if tcpSrv != nil {
		tcpSrv.GracefulStop()
	}
	ipcSrv.GracefulStop()
	return nil
}

// serveTCP listens on addr with TLS and splits the connections between the
// gRPC server (HTTP/2) and the JSON gateway (HTTP/1.1).
func serveTCP(addr string, svc *grpcservice.Service, token string) (*grpc.Server, error) {
	passphrase := token
	if passphrase == "" {
		passphrase = tlsconf.DefaultPassphrase
	}
	creds, err := tlsconf.New(passphrase)
	if err != nil {
		return nil, fmt.Errorf("tls credentials: %w", err)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	m := cmux.New(tls.NewListener(ln, creds.Server))
	grpcLn := m.Match(cmux.HTTP2())
	httpLn := m.Match(cmux.HTTP1Fast())

	srv := grpc.NewServer()
	api.RegisterHistoryServer(srv, svc)

	go func() {
		if err := srv.Serve(grpcLn); err != nil && !errors.Is(err, cmux.ErrListenerClosed) {
			slog.Error("grpc server stopped", "err", err)
		}
	}()
	go func() {
		if err := serveHTTPGateway(httpLn, newGatewayMux(svc)); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, cmux.ErrListenerClosed) {
			slog.Error("http gateway stopped", "err", err)
		}
	}()
	go func() {
		if err := m.Serve(); err != nil && !errors.Is(err, net.ErrClosed) {
			slog.Error("tcp mux stopped", "err", err)
		}
	}()

	slog.Info("listening", "addr", ln.Addr(), "tls_fingerprint", creds.Fingerprint)
	return srv, nil
}

// watchSettings re-applies the history limits whenever the config file
// changes.
func watchSettings(ctx context.Context, v *viper.Viper, h *history.History) {
	if v.ConfigFileUsed() == "" {
		return
	}
	name := h.Name()
	v.OnConfigChange(func(e fsnotify.Event) {
		s := config.FromViper(v)
		h.SetConfig(ctx, s.History())
		// Only an edited history-name switches; a runtime switch survives
		// unrelated edits.
		if s.HistoryName != name {
			name = s.HistoryName
			if err := h.Switch(ctx, name); err != nil {
				slog.Error("switch history failed", "history", name, "err", err)
			}
		}
		slog.Info("settings reloaded", "file", e.Name,
			"max_history_size", s.MaxHistorySize,
			"max_memory_mib", s.MaxMemoryUsage,
		)
	})
	v.WatchConfig()
}
