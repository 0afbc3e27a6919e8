//go:build linux || darwin || windows

package clip

import (
	"bytes"
	"log/slog"
	"sync"
	"time"

	"golang.design/x/clipboard"
)

const pollInterval = 250 * time.Millisecond

type pollBackend struct {
	watchCh  chan struct{}
	done     chan struct{}
	once     sync.Once
	lastText []byte
}

// New returns the system clipboard backend, or a headless no-op backend if
// the display environment is unavailable (e.g. a headless server without X11
// or Wayland). clipboard.Init is called here rather than in init() so that
// CLI sub-commands that never construct a Backend don't trigger the warning.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return NewHeadless()
	}
	b := &pollBackend{
		watchCh:  make(chan struct{}, 1),
		done:     make(chan struct{}),
		lastText: clipboard.Read(clipboard.FmtText),
	}
	go b.poll()
	return b
}

func (b *pollBackend) Name() string { return "system clipboard (poll)" }

func (b *pollBackend) poll() {
	t := time.NewTicker(pollInterval)
	defer t.Stop()
	defer close(b.watchCh)
	for {
		select {
		case <-b.done:
			return
		case <-t.C:
			text := clipboard.Read(clipboard.FmtText)
			if !bytes.Equal(text, b.lastText) {
				b.lastText = text
				notify(b.watchCh)
			}
		}
	}
}

func (b *pollBackend) Read() (string, error) {
	return string(clipboard.Read(clipboard.FmtText)), nil
}

func (b *pollBackend) Write(text string) error {
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

func (b *pollBackend) Watch() <-chan struct{} { return b.watchCh }
func (b *pollBackend) Close()                 { b.once.Do(func() { close(b.done) }) }
