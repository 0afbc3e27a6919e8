//go:build !windows

package ipc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocketPathOverride(t *testing.T) {
	t.Setenv("RECALL_SOCKET", "/tmp/custom.sock")
	assert.Equal(t, "/tmp/custom.sock", SocketPath())
}

func TestSocketPathRuntimeDir(t *testing.T) {
	t.Setenv("RECALL_SOCKET", "")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	assert.Equal(t, "/run/user/1000/recall.sock", SocketPath())
}

func TestListenAndReachable(t *testing.T) {
	// Unix socket paths are length-limited; keep it short.
	dir, err := os.MkdirTemp("", "rc")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	t.Setenv("RECALL_SOCKET", filepath.Join(dir, "r.sock"))

	assert.False(t, IsRunning())

	l, err := Listen()
	require.NoError(t, err)
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()
	assert.True(t, IsRunning())

	info, err := os.Stat(SocketPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, l.Close())
	// A stale socket file is replaced on the next Listen.
	l, err = Listen()
	require.NoError(t, err)
	l.Close()
}
