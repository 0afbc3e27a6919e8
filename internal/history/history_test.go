package history

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanWatcher struct {
	id string
	ch chan Event
}

func newChanWatcher(id string, size int) *chanWatcher {
	return &chanWatcher{id: id, ch: make(chan Event, size)}
}

func (w *chanWatcher) ID() string        { return w.id }
func (w *chanWatcher) Info() WatcherInfo { return WatcherInfo{ID: w.id, Source: "test"} }
func (w *chanWatcher) Send(ev Event) {
	select {
	case w.ch <- ev:
	default:
	}
}

func (w *chanWatcher) drain() []Event {
	var out []Event
	for {
		select {
		case ev := <-w.ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

type memStore struct {
	histories map[string][]Item
	saves     int
	err       error
}

func (m *memStore) Load(_ context.Context, name string) ([]Item, error) {
	return m.histories[name], m.err
}

// Save fails like a real database would when ctx is already done.
func (m *memStore) Save(ctx context.Context, name string, items []Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.err != nil {
		return m.err
	}
	m.saves++
	if m.histories == nil {
		m.histories = make(map[string][]Item)
	}
	m.histories[name] = items
	return nil
}

func (m *memStore) Names(context.Context) ([]string, error) {
	names := make([]string, 0, len(m.histories))
	for name := range m.histories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, m.err
}

func (m *memStore) Remove(_ context.Context, name string) error {
	delete(m.histories, name)
	return m.err
}

func texts(h *History) []string {
	var out []string
	for _, it := range h.Items() {
		out = append(out, it.Text)
	}
	return out
}

func newTestHistory(t *testing.T, cfg Config) (*History, *chanWatcher, *memStore) {
	t.Helper()
	st := &memStore{}
	h := New(cfg, st)
	w := newChanWatcher("w", 64)
	h.Register(w)
	return h, w, st
}

func TestAddPrependsAndAnnounces(t *testing.T) {
	ctx := context.Background()
	h, w, st := newTestHistory(t, DefaultConfig())

	first, err := h.Add(ctx, "one")
	require.NoError(t, err)
	_, err = h.Add(ctx, "two")
	require.NoError(t, err)

	assert.Equal(t, []string{"two", "one"}, texts(h))
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, 2, st.saves)
	assert.Equal(t, []Event{
		{Kind: EventUpdate, Action: ActionReplace, Target: TargetAll},
		{Kind: EventUpdate, Action: ActionReplace, Target: TargetAll},
	}, w.drain())
}

func TestAddSameAsFirstIsNoop(t *testing.T) {
	ctx := context.Background()
	h, w, st := newTestHistory(t, DefaultConfig())

	a, err := h.Add(ctx, "same")
	require.NoError(t, err)
	w.drain()

	b, err := h.Add(ctx, "same")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	assert.Empty(t, w.drain())
	assert.Equal(t, 1, st.saves)
}

func TestAddMovesDuplicateToFront(t *testing.T) {
	ctx := context.Background()
	h, _, _ := newTestHistory(t, DefaultConfig())
	for _, s := range []string{"a", "b", "c"} {
		_, err := h.Add(ctx, s)
		require.NoError(t, err)
	}

	_, err := h.Add(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, texts(h))
}

func TestAddGrowingLineReplacesFirstInPlace(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.GrowingLines = true
	h, w, _ := newTestHistory(t, cfg)

	_, err := h.Add(ctx, "other")
	require.NoError(t, err)
	_, err = h.Add(ctx, "hello")
	require.NoError(t, err)
	w.drain()

	_, err = h.Add(ctx, "hello world")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello world", "other"}, texts(h))
	assert.Equal(t, []Event{{Kind: EventUpdate, Action: ActionReplace, Target: TargetPosition, Position: 0}}, w.drain())

	_, err = h.Add(ctx, "say hello world")
	require.NoError(t, err)
	assert.Equal(t, []string{"say hello world", "other"}, texts(h))
}

func TestAddGrowingLineEvictionRefreshesAll(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.GrowingLines = true
	cfg.MaxMemoryUsage = 20
	h, w, _ := newTestHistory(t, cfg)

	_, err := h.Add(ctx, "other-item-12")
	require.NoError(t, err)
	_, err = h.Add(ctx, "hello")
	require.NoError(t, err)
	w.drain()

	_, err = h.Add(ctx, "hello world")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello world"}, texts(h))
	assert.Equal(t, []Event{{Kind: EventUpdate, Action: ActionReplace, Target: TargetAll}}, w.drain())
}

func TestAddGrowingLineDisabled(t *testing.T) {
	ctx := context.Background()
	h, _, _ := newTestHistory(t, DefaultConfig())
	_, _ = h.Add(ctx, "hello")
	_, _ = h.Add(ctx, "hello world")
	assert.Equal(t, []string{"hello world", "hello"}, texts(h))
}

func TestAddRejectsBySize(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.MinTextItemSize = 3
	cfg.MaxTextItemSize = 5
	h, w, _ := newTestHistory(t, cfg)

	for _, s := range []string{"", "ab", "toolong"} {
		_, err := h.Add(ctx, s)
		assert.ErrorIs(t, err, ErrRejected, "text %q", s)
	}
	_, err := h.Add(ctx, "héllo")
	assert.NoError(t, err, "limits count runes")
	assert.Equal(t, 1, h.Size())
	assert.Len(t, w.drain(), 1)
}

func TestAddTrimsWhenConfigured(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.TrimItems = true
	h, _, _ := newTestHistory(t, cfg)

	it, err := h.Add(ctx, "  padded \n")
	require.NoError(t, err)
	assert.Equal(t, "padded", it.Text)

	_, err = h.Add(ctx, " \t ")
	assert.ErrorIs(t, err, ErrRejected)
}

func TestAddTrimsToMaxHistorySize(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.MaxHistorySize = 3
	h, _, _ := newTestHistory(t, cfg)

	for _, s := range []string{"1", "2", "3", "4", "5"} {
		_, err := h.Add(ctx, s)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"5", "4", "3"}, texts(h))
}

func TestAddDropsBiggestOverMemoryLimit(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.MaxMemoryUsage = 20
	h, _, _ := newTestHistory(t, cfg)

	for _, s := range []string{"small", strings.Repeat("x", 12), "tiny"} {
		_, err := h.Add(ctx, s)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"tiny", "small"}, texts(h))

	_, err := h.Add(ctx, strings.Repeat("y", 20))
	assert.ErrorIs(t, err, ErrRejected)
}

func TestSelectMovesToFrontAndAnnounces(t *testing.T) {
	ctx := context.Background()
	h, w, _ := newTestHistory(t, DefaultConfig())
	a, _ := h.Add(ctx, "a")
	_, _ = h.Add(ctx, "b")
	w.drain()

	it, err := h.Select(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, it.ID)
	assert.Equal(t, []string{"a", "b"}, texts(h))
	assert.Equal(t, []Event{
		{Kind: EventUpdate, Action: ActionReplace, Target: TargetAll},
		{Kind: EventSelected, Text: "a"},
	}, w.drain())

	_, err = h.Select(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []Event{{Kind: EventSelected, Text: "a"}}, w.drain(), "first item does not move")

	_, err = h.Select(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAnnouncesPosition(t *testing.T) {
	ctx := context.Background()
	h, w, _ := newTestHistory(t, DefaultConfig())
	_, _ = h.Add(ctx, "a")
	b, _ := h.Add(ctx, "b")
	_, _ = h.Add(ctx, "c")
	w.drain()

	require.NoError(t, h.Delete(ctx, b.ID))
	assert.Equal(t, []string{"c", "a"}, texts(h))
	assert.Equal(t, []Event{{Kind: EventUpdate, Action: ActionRemove, Target: TargetPosition, Position: 1}}, w.drain())

	assert.ErrorIs(t, h.Delete(ctx, b.ID), ErrNotFound)
}

func TestEmpty(t *testing.T) {
	ctx := context.Background()
	h, w, st := newTestHistory(t, DefaultConfig())
	_, _ = h.Add(ctx, "a")
	w.drain()

	h.Empty(ctx)
	assert.Zero(t, h.Size())
	assert.Empty(t, st.histories[DefaultName])
	assert.Equal(t, []Event{{Kind: EventUpdate, Action: ActionRemove, Target: TargetAll}}, w.drain())
}

func TestGetOutOfRange(t *testing.T) {
	ctx := context.Background()
	h, _, _ := newTestHistory(t, DefaultConfig())
	_, _ = h.Add(ctx, "a")

	it, err := h.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "a", it.Text)

	_, err = h.Get(1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = h.Get(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	h, _, _ := newTestHistory(t, DefaultConfig())
	for _, s := range []string{"Foo bar", "nothing", "line one\nfoo", "f(x", "x"} {
		_, err := h.Add(ctx, s)
		require.NoError(t, err)
	}
	// newest first: x, f(x, line one\nfoo, nothing, Foo bar

	assert.Equal(t, []int{2, 4}, h.Search("foo"))
	assert.Equal(t, []int{2, 4}, h.Search("^foo"), "anchors apply per line")
	assert.Equal(t, []int{2}, h.Search("one.foo"), "dot matches newline")
	assert.Equal(t, []int{1}, h.Search("f(x"), "invalid pattern matched literally")
	assert.Equal(t, []int{}, h.Search("zzz"))
}

func TestTrackingAnnouncesChanges(t *testing.T) {
	h, w, _ := newTestHistory(t, DefaultConfig())
	assert.True(t, h.Tracking())

	h.SetTracking(false)
	h.SetTracking(false)
	h.SetTracking(true)
	assert.Equal(t, []Event{
		{Kind: EventTracking, Tracking: false},
		{Kind: EventTracking, Tracking: true},
	}, w.drain())
}

func TestUnregisteredWatcherGetsNothing(t *testing.T) {
	ctx := context.Background()
	h, w, _ := newTestHistory(t, DefaultConfig())
	h.Unregister(w)

	_, _ = h.Add(ctx, "a")
	assert.Empty(t, w.drain())
	assert.Empty(t, h.Watchers())
}

func TestFullWatcherDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	h, _, _ := newTestHistory(t, DefaultConfig())
	slow := newChanWatcher("slow", 1)
	h.Register(slow)

	done := make(chan struct{})
	go func() {
		for _, s := range []string{"1", "2", "3"} {
			_, _ = h.Add(ctx, s)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Add blocked on a full watcher")
	}
	assert.Len(t, slow.drain(), 1)
}

func TestLoadAppliesLimits(t *testing.T) {
	st := &memStore{histories: map[string][]Item{
		DefaultName: {{ID: "1", Text: "a"}, {ID: "2", Text: "b"}, {ID: "3", Text: "c"}},
	}}
	cfg := DefaultConfig()
	cfg.MaxHistorySize = 2
	h := New(cfg, st)

	require.NoError(t, h.Load(context.Background()))
	assert.Equal(t, []string{"a", "b"}, texts(h))

	st.err = errors.New("disk gone")
	assert.Error(t, h.Load(context.Background()))
}

func TestSetConfigTrims(t *testing.T) {
	ctx := context.Background()
	h, w, _ := newTestHistory(t, DefaultConfig())
	for _, s := range []string{"1", "2", "3"} {
		_, _ = h.Add(ctx, s)
	}
	w.drain()

	cfg := DefaultConfig()
	cfg.MaxHistorySize = 1
	h.SetConfig(ctx, cfg)
	assert.Equal(t, []string{"3"}, texts(h))
	assert.Equal(t, []Event{{Kind: EventUpdate, Action: ActionRemove, Target: TargetAll}}, w.drain())
}

func TestCancelledCallerStillPersists(t *testing.T) {
	h, _, st := newTestHistory(t, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	it, err := h.Add(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, 1, st.saves)
	require.Len(t, st.histories[DefaultName], 1)
	assert.Equal(t, it.ID, st.histories[DefaultName][0].ID)

	require.NoError(t, h.Delete(ctx, it.ID))
	assert.Equal(t, 2, st.saves)
	assert.Empty(t, st.histories[DefaultName])
}

func TestReplaceKeepsPositionAndID(t *testing.T) {
	ctx := context.Background()
	h, w, st := newTestHistory(t, DefaultConfig())
	for _, s := range []string{"a", "b", "c"} {
		_, err := h.Add(ctx, s)
		require.NoError(t, err)
	}
	old, err := h.Get(1)
	require.NoError(t, err)
	w.drain()

	it, err := h.Replace(ctx, old.ID, "bee")
	require.NoError(t, err)
	assert.Equal(t, old.ID, it.ID)
	assert.Equal(t, []string{"c", "bee", "a"}, texts(h))
	assert.Equal(t, "bee", st.histories[DefaultName][1].Text)
	assert.Equal(t, []Event{{Kind: EventUpdate, Action: ActionReplace, Target: TargetPosition, Position: 1}}, w.drain())

	_, err = h.Replace(ctx, old.ID, "bee")
	require.NoError(t, err)
	assert.Empty(t, w.drain(), "unchanged text")

	_, err = h.Replace(ctx, "nope", "x")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = h.Replace(ctx, old.ID, "")
	assert.ErrorIs(t, err, ErrRejected)
}

func TestReplaceFirstAnnouncesSelection(t *testing.T) {
	ctx := context.Background()
	h, w, _ := newTestHistory(t, DefaultConfig())
	first, err := h.Add(ctx, "a")
	require.NoError(t, err)
	w.drain()

	_, err = h.Replace(ctx, first.ID, "z")
	require.NoError(t, err)
	assert.Equal(t, []Event{
		{Kind: EventUpdate, Action: ActionReplace, Target: TargetPosition, Position: 0},
		{Kind: EventSelected, Text: "z"},
	}, w.drain())
}

func TestReplaceOverMemoryLimitRefreshesAll(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.MaxMemoryUsage = 20
	h, w, _ := newTestHistory(t, cfg)
	for _, s := range []string{"aaaaaa", "bbbbbb", "cc"} {
		_, err := h.Add(ctx, s)
		require.NoError(t, err)
	}
	target, err := h.Get(0)
	require.NoError(t, err)
	w.drain()

	_, err = h.Replace(ctx, target.ID, strings.Repeat("c", 10))
	require.NoError(t, err)
	assert.Equal(t, 2, h.Size())
	evs := w.drain()
	require.NotEmpty(t, evs)
	assert.Equal(t, Event{Kind: EventUpdate, Action: ActionReplace, Target: TargetAll}, evs[0])
}

func TestSwitchLoadsNamedHistory(t *testing.T) {
	ctx := context.Background()
	h, w, st := newTestHistory(t, DefaultConfig())
	_, err := h.Add(ctx, "default item")
	require.NoError(t, err)
	w.drain()

	require.NoError(t, h.Switch(ctx, "work"))
	assert.Equal(t, "work", h.Name())
	assert.Zero(t, h.Size())
	assert.Equal(t, []Event{{Kind: EventUpdate, Action: ActionReplace, Target: TargetAll}}, w.drain())

	_, err = h.Add(ctx, "work item")
	require.NoError(t, err)
	assert.Equal(t, "work item", st.histories["work"][0].Text)

	names, err := h.Histories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"history", "work"}, names)

	require.NoError(t, h.Switch(ctx, DefaultName))
	assert.Equal(t, []string{"default item"}, texts(h))

	w.drain()
	require.NoError(t, h.Switch(ctx, DefaultName))
	assert.Empty(t, w.drain(), "switching to the current history")
	assert.ErrorIs(t, h.Switch(ctx, "  "), ErrInvalidName)
}

func TestHistoriesIncludesUnsavedCurrent(t *testing.T) {
	h := New(DefaultConfig(), nil)
	names, err := h.Histories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultName}, names)
}

func TestDeleteHistory(t *testing.T) {
	ctx := context.Background()
	h, w, st := newTestHistory(t, DefaultConfig())
	_, _ = h.Add(ctx, "kept")
	require.NoError(t, h.Switch(ctx, "scratch"))
	_, _ = h.Add(ctx, "gone")
	w.drain()

	require.NoError(t, h.DeleteHistory(ctx, DefaultName))
	assert.NotContains(t, st.histories, DefaultName)
	assert.Equal(t, []string{"gone"}, texts(h))
	assert.Empty(t, w.drain(), "other history")

	require.NoError(t, h.DeleteHistory(ctx, "scratch"))
	assert.Equal(t, "scratch", h.Name())
	assert.Zero(t, h.Size())
	assert.Equal(t, []Event{{Kind: EventUpdate, Action: ActionRemove, Target: TargetAll}}, w.drain())

	assert.ErrorIs(t, h.DeleteHistory(ctx, "missing"), ErrNotFound)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "abc", Preview("abc", 3))
	assert.Equal(t, "ab…", Preview("abc", 2))
}
