package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"

	"go.klb.dev/recall/internal/api"
	"go.klb.dev/recall/internal/history"
	"go.klb.dev/recall/internal/view"
)

type listSource []string

func (s listSource) Size(context.Context) (int, error) { return len(s), nil }

func (s listSource) ElementAt(_ context.Context, i int) (view.Entry, error) {
	if i < 0 || i >= len(s) {
		return view.Entry{}, history.ErrOutOfRange
	}
	return view.Entry{Index: i, ID: fmt.Sprintf("id-%d", i), Text: s[i]}, nil
}

func (s listSource) Search(_ context.Context, q string) ([]int, error) {
	out := []int{}
	for i, text := range s {
		if strings.Contains(text, q) {
			out = append(out, i)
		}
	}
	return out, nil
}

func TestResolvePage(t *testing.T) {
	src := listSource{"a0", "b1", "a2", "b3", "a4"}
	opts := view.Options{MaxDisplayed: 2}
	ctx := context.Background()

	snap, err := resolvePage(ctx, src, opts, "", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Page)
	assert.Equal(t, "a4", snap.Slots[0].Text)

	snap, err = resolvePage(ctx, src, opts, "a", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Page)
	assert.Equal(t, 4, snap.Slots[0].Index)
}

func TestResolvePageOutOfRange(t *testing.T) {
	src := listSource{"a0", "b1", "a2"}
	opts := view.Options{MaxDisplayed: 2}
	ctx := context.Background()

	_, err := resolvePage(ctx, src, opts, "", 3)
	assert.ErrorContains(t, err, "page 3 out of range: 2 page(s)")
	_, err = resolvePage(ctx, src, opts, "", 0)
	assert.Error(t, err)
	_, err = resolvePage(ctx, src, opts, "b", 2)
	assert.Error(t, err)
}

func TestListJSONOmitsTotalWhileSearching(t *testing.T) {
	src := listSource{"a0", "b1", "a2"}
	opts := view.Options{MaxDisplayed: 5}
	ctx := context.Background()

	snap, err := resolvePage(ctx, src, opts, "", 1)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, printListJSON(&buf, snap))
	var plain map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &plain))
	assert.EqualValues(t, 3, plain["total"])

	snap, err = resolvePage(ctx, src, opts, "a", 1)
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, printListJSON(&buf, snap))
	var searched map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &searched))
	assert.NotContains(t, searched, "total")
	assert.EqualValues(t, 2, searched["matches"])
	assert.Len(t, searched["items"], 2)
}

func TestStatusJSONTimestamps(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	resp := &api.StatusResponse{
		Version:  "v1",
		History:  "history",
		Size:     2,
		Watchers: []*api.WatcherInfo{{ID: "w", Source: "ui", ConnectedAt: timestamppb.New(at)}},
	}
	var buf bytes.Buffer
	require.NoError(t, printStatusJSON(&buf, resp))
	assert.Contains(t, buf.String(), `"connected_at": "2024-05-01T12:00:00Z"`)
	assert.Contains(t, buf.String(), `"history": "history"`)
}
