package view

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRenderer struct {
	snaps []Snapshot
}

func (r *recordingRenderer) Render(s Snapshot) { r.snaps = append(r.snaps, s) }

func TestDrainRendersOnceSettled(t *testing.T) {
	src := newListSource(7)
	s := New(Options{MaxDisplayed: 3})
	rec := &recordingRenderer{}

	require.NoError(t, Drain(context.Background(), s, src, s.Start(), rec))
	require.Len(t, rec.snaps, 1)
	snap := rec.snaps[0]
	assert.Equal(t, StateSettled, snap.State)
	assert.Equal(t, 7, snap.Total)
	assert.Equal(t, 1, snap.Page)
	assert.Equal(t, 3, snap.Pages)
	assert.Equal(t, "item 2", snap.Slots[2].Text)
}

func TestDrainStopsOnCancelledContext(t *testing.T) {
	src := newListSource(7)
	s := New(Options{MaxDisplayed: 3})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Drain(ctx, s, src, s.Start(), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, src.sizeCalls)
}

func TestTextRendererTable(t *testing.T) {
	src := newListSource(25)
	s := New(Options{MaxDisplayed: 10})
	var buf bytes.Buffer
	r := TextRenderer{W: &buf}
	require.NoError(t, Drain(context.Background(), s, src, s.Start(), r))

	out := buf.String()
	assert.Contains(t, out, "INDEX")
	assert.Contains(t, out, "0*")
	assert.Contains(t, out, "id-9")
	assert.NotContains(t, out, "id-10")
	assert.Contains(t, out, "page 1/3")
}

func TestTextRendererPlaceholders(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want string
	}{
		{"empty", Snapshot{Placeholder: PlaceholderEmpty}, "(history is empty)\n"},
		{"no results", Snapshot{Placeholder: PlaceholderNoResults, Query: "foo"}, "(no results for \"foo\")\n"},
		{"disconnected", Snapshot{Placeholder: PlaceholderDisconnected}, "(daemon unavailable)\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			TextRenderer{W: &buf}.Render(tt.snap)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestElide(t *testing.T) {
	assert.Equal(t, "hello", Elide("hello", 0))
	assert.Equal(t, "hello", Elide("hello", 5))
	assert.Equal(t, "he…lo", Elide("hello world, hello", 5))
	assert.Equal(t, "…", Elide("hello", 1))
	assert.Equal(t, "h…ld", Elide("héllo wörld", 4))
}
