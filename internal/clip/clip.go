// Package clip provides a text-only interface to the system clipboard.
// Build constraints select the implementation:
//
//	clip_poll.go  - linux, darwin and windows via golang.design/x/clipboard, polling
//	clip_other.go - headless stub everywhere else
//
// NewMemory returns an in-process backend for tests and --no-clipboard runs.
package clip

// Backend is the interface that all clipboard implementations satisfy.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// Read returns the current clipboard text. An empty string means the
	// clipboard is empty or holds no text.
	Read() (string, error)

	// Write sets the clipboard text.
	Write(text string) error

	// Watch returns a channel that receives a signal whenever the clipboard
	// changes. The channel is closed by Close. The caller should call Read
	// when it receives from the channel.
	Watch() <-chan struct{}

	// Close releases any resources held by the backend.
	Close()
}

// notify performs a non-blocking send on a watch channel.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
