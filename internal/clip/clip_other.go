//go:build !darwin && !windows && !linux

package clip

// New returns a no-op backend; this platform has no supported clipboard.
func New() Backend {
	return NewHeadless()
}
