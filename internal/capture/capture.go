// Package capture implements the history watcher that owns the daemon's
// system clipboard: new clipboard text is added to the history while
// tracking is on, and selected items are written back to the clipboard.
package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.klb.dev/recall/internal/clip"
	"go.klb.dev/recall/internal/history"
)

const watcherID = "capture"

// Peer is the history.Watcher that owns the system clipboard.
type Peer struct {
	h       *history.History
	backend clip.Backend
	sendCh  chan string

	mu       sync.Mutex
	info     history.WatcherInfo
	lastText string
}

// New creates the capture peer but does not start it.
func New(h *history.History, backend clip.Backend) *Peer {
	return &Peer{
		h:       h,
		backend: backend,
		sendCh:  make(chan string, 64),
		info: history.WatcherInfo{
			ID:          watcherID,
			Source:      backend.Name(),
			ConnectedAt: time.Now(),
		},
	}
}

func (p *Peer) ID() string                { return watcherID }
func (p *Peer) Info() history.WatcherInfo { return p.info }

// Send implements history.Watcher. Selected items are queued for the
// clipboard; other events are ignored.
func (p *Peer) Send(ev history.Event) {
	if ev.Kind != history.EventSelected {
		return
	}
	select {
	case p.sendCh <- ev.Text:
	default:
		slog.Warn("capture send channel full, dropping")
	}
}

// Run registers with the history and starts the watch and write loops.
// It blocks until ctx is done or the backend's watch channel is closed.
func (p *Peer) Run(ctx context.Context) {
	p.h.Register(p)
	defer p.h.Unregister(p)

	slog.Info("clipboard capture started", "backend", p.backend.Name())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.writeLoop(ctx)
	}()
	defer wg.Wait()

	watch := p.backend.Watch()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-watch:
			if !ok {
				return
			}
			p.capture(ctx)
		}
	}
}

func (p *Peer) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-p.sendCh:
			p.mu.Lock()
			if text == p.lastText {
				p.mu.Unlock()
				continue
			}
			p.lastText = text
			p.mu.Unlock()

			if err := p.backend.Write(text); err != nil {
				slog.Error("clipboard write failed", "err", err)
			} else {
				slog.Debug("clipboard updated from history", "size_bytes", len(text))
			}
		}
	}
}

func (p *Peer) capture(ctx context.Context) {
	text, err := p.backend.Read()
	if err != nil {
		slog.Error("clipboard read failed", "err", err)
		return
	}
	if text == "" {
		return
	}

	p.mu.Lock()
	if text == p.lastText {
		p.mu.Unlock()
		return
	}
	p.lastText = text
	p.mu.Unlock()

	if !p.h.Tracking() {
		slog.Debug("tracking off, clipboard change ignored")
		return
	}
	if _, err := p.h.Add(ctx, text); err != nil {
		if errors.Is(err, history.ErrRejected) {
			slog.Debug("clipboard text rejected", "err", err)
			return
		}
		slog.Error("history add failed", "err", err)
	}
}
