// Package history implements the clipboard history engine run by the daemon.
// It owns the ordered item list (newest first), applies the add/select/delete
// rules, persists every change through a Store and fans update events out to
// registered watchers. It is transport-agnostic: watchers are anything that
// can take an Event without blocking.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

var (
	// ErrNotFound is returned for an unknown item ID.
	ErrNotFound = errors.New("history: item not found")
	// ErrOutOfRange is returned for an index outside the history.
	ErrOutOfRange = errors.New("history: index out of range")
	// ErrRejected is returned when text does not pass the size rules.
	ErrRejected = errors.New("history: text rejected")
	// ErrInvalidName is returned for an empty history name.
	ErrInvalidName = errors.New("history: invalid history name")
)

// DefaultName is the history used until another one is switched to.
const DefaultName = "history"


// Item is one history entry.
type Item struct {
	ID        string
	Text      string
	CreatedAt time.Time
}

// Action and Target describe what an update changed.
type Action int

const (
	ActionReplace Action = iota + 1
	ActionRemove
)

func (a Action) String() string {
	switch a {
	case ActionReplace:
		return "replace"
	case ActionRemove:
		return "remove"
	default:
		return "unknown"
	}
}

type Target int

const (
	TargetAll Target = iota + 1
	TargetPosition
)

func (t Target) String() string {
	switch t {
	case TargetAll:
		return "all"
	case TargetPosition:
		return "position"
	default:
		return "unknown"
	}
}

// EventKind discriminates Event.
type EventKind int

const (
	EventUpdate EventKind = iota
	EventTracking
	EventSelected
)

// Event is delivered to every registered watcher.
type Event struct {
	Kind EventKind

	// EventUpdate
	Action   Action
	Target   Target
	Position int

	// EventTracking
	Tracking bool

	// EventSelected
	Text string
}

// WatcherInfo describes a registered watcher.
type WatcherInfo struct {
	ID          string
	Source      string
	ConnectedAt time.Time
}

// Watcher is anything that can receive history events.
type Watcher interface {
	ID() string
	Info() WatcherInfo
	// Send delivers an event to the watcher. Must be non-blocking.
	Send(Event)
}

// Store persists named histories.
type Store interface {
	Load(ctx context.Context, name string) ([]Item, error)
	Save(ctx context.Context, name string, items []Item) error
	// Names lists the stored histories, sorted.
	Names(ctx context.Context) ([]string, error)
	// Remove drops a stored history. Removing an unknown name is not an error.
	Remove(ctx context.Context, name string) error
}

// Config holds the history rules. Zero limits disable the corresponding
// check, except MaxHistorySize which must be positive.
type Config struct {
	MaxHistorySize  int
	MaxMemoryUsage  int // bytes
	MinTextItemSize int // runes
	MaxTextItemSize int // runes
	TrimItems       bool
	GrowingLines    bool
}

// DefaultConfig mirrors the defaults of the settings layer.
func DefaultConfig() Config {
	return Config{
		MaxHistorySize:  100,
		MaxMemoryUsage:  5 << 20,
		MinTextItemSize: 1,
		GrowingLines:    false,
	}
}

// History is the clipboard history.
type History struct {
	mu       sync.RWMutex
	cfg      Config
	name     string
	items    []Item
	bytes    int
	tracking bool
	store    Store

	watchersMu sync.RWMutex
	watchers   map[string]Watcher

	now func() time.Time
}

// New returns an empty History with tracking enabled. store may be nil.
func New(cfg Config, store Store) *History {
	if cfg.MaxHistorySize <= 0 {
		cfg.MaxHistorySize = DefaultConfig().MaxHistorySize
	}
	return &History{
		cfg:      cfg,
		name:     DefaultName,
		tracking: true,
		store:    store,
		watchers: make(map[string]Watcher),
		now:      time.Now,
	}
}

// Load replaces the in-memory history with the stored copy of the current
// history, applying the current size limits.
func (h *History) Load(ctx context.Context) error {
	h.mu.Lock()
	err := h.loadLocked(ctx, h.name)
	n := len(h.items)
	h.mu.Unlock()
	if err != nil {
		return err
	}
	slog.Info("history loaded", "history", h.Name(), "items", n)
	return nil
}

// Name returns the name of the current history.
func (h *History) Name() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.name
}

// Switch makes name the current history, loading its stored items. An
// unknown name starts an empty history. Switching to the current history
// is a no-op.
func (h *History) Switch(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	h.mu.Lock()
	if name == h.name {
		h.mu.Unlock()
		return nil
	}
	if err := h.loadLocked(ctx, name); err != nil {
		h.mu.Unlock()
		return err
	}
	h.name = name
	n := len(h.items)
	h.mu.Unlock()

	slog.Info("history switched", "history", name, "items", n)
	h.broadcast(Event{Kind: EventUpdate, Action: ActionReplace, Target: TargetAll})
	return nil
}

// Histories returns the stored history names plus the current one, sorted.
func (h *History) Histories(ctx context.Context) ([]string, error) {
	current := h.Name()
	var names []string
	if h.store != nil {
		var err error
		if names, err = h.store.Names(ctx); err != nil {
			return nil, fmt.Errorf("list histories: %w", err)
		}
	}
	if !slices.Contains(names, current) {
		names = append(names, current)
		slices.Sort(names)
	}
	return names, nil
}

// DeleteHistory drops the named history. Deleting the current history
// empties it; it stays current.
func (h *History) DeleteHistory(ctx context.Context, name string) error {
	names, err := h.Histories(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(names, name) {
		return fmt.Errorf("delete history %q: %w", name, ErrNotFound)
	}
	if h.store != nil {
		if err := h.store.Remove(context.WithoutCancel(ctx), name); err != nil {
			return fmt.Errorf("delete history %q: %w", name, err)
		}
	}
	slog.Info("history deleted", "history", name)

	h.mu.Lock()
	current := name == h.name
	if current {
		h.items = nil
		h.bytes = 0
	}
	h.mu.Unlock()

	if current {
		h.broadcast(Event{Kind: EventUpdate, Action: ActionRemove, Target: TargetAll})
	}
	return nil
}

func (h *History) loadLocked(ctx context.Context, name string) error {
	var items []Item
	if h.store != nil {
		var err error
		if items, err = h.store.Load(ctx, name); err != nil {
			return fmt.Errorf("load history %q: %w", name, err)
		}
	}
	h.items = items
	h.bytes = 0
	for _, it := range items {
		h.bytes += len(it.Text)
	}
	h.enforceLimitsLocked()
	return nil
}

// SetConfig applies new rules, trimming the history if it no longer fits.
func (h *History) SetConfig(ctx context.Context, cfg Config) {
	if cfg.MaxHistorySize <= 0 {
		cfg.MaxHistorySize = DefaultConfig().MaxHistorySize
	}
	h.mu.Lock()
	h.cfg = cfg
	before := len(h.items)
	h.enforceLimitsLocked()
	after := len(h.items)
	if after != before {
		h.persistLocked(ctx)
	}
	h.mu.Unlock()

	if after != before {
		slog.Info("history trimmed", "before", before, "after", after)
		h.broadcast(Event{Kind: EventUpdate, Action: ActionRemove, Target: TargetAll})
	}
}

// Add inserts text at the front of the history.
//
// Text equal to the current first item is a no-op. With growing lines
// enabled, text that extends the first item replaces it in place. Otherwise
// an older equal (or grown-from) item is dropped before the new one is
// prepended.
func (h *History) Add(ctx context.Context, text string) (Item, error) {
	h.mu.Lock()
	if h.cfg.TrimItems {
		text = strings.TrimSpace(text)
	}
	if err := h.acceptLocked(text); err != nil {
		h.mu.Unlock()
		return Item{}, err
	}

	if len(h.items) > 0 && h.items[0].Text == text {
		first := h.items[0]
		h.mu.Unlock()
		return first, nil
	}

	item := Item{ID: ulid.Make().String(), Text: text, CreatedAt: h.now()}
	ev := Event{Kind: EventUpdate, Action: ActionReplace, Target: TargetAll}

	if len(h.items) > 0 && h.growingLocked(h.items[0].Text, text) {
		h.removeLocked(0)
		h.prependLocked(item)
		if h.replacedInPlaceLocked() {
			ev.Target = TargetPosition
		}
	} else {
		for i := 1; i < len(h.items); i++ {
			old := h.items[i].Text
			if old == text || h.growingLocked(old, text) {
				h.removeLocked(i)
				break
			}
		}
		h.prependLocked(item)
		h.enforceLimitsLocked()
	}
	h.persistLocked(ctx)
	h.mu.Unlock()

	LogItem("history add", item)
	h.broadcast(ev)
	return item, nil
}

// Replace swaps the text of the item with the given ID, keeping its ID and
// position. The same size rules as Add apply.
func (h *History) Replace(ctx context.Context, id, text string) (Item, error) {
	h.mu.Lock()
	if h.cfg.TrimItems {
		text = strings.TrimSpace(text)
	}
	if err := h.acceptLocked(text); err != nil {
		h.mu.Unlock()
		return Item{}, err
	}
	pos := h.indexLocked(id)
	if pos < 0 {
		h.mu.Unlock()
		return Item{}, fmt.Errorf("replace %s: %w", id, ErrNotFound)
	}
	item := h.items[pos]
	if item.Text == text {
		h.mu.Unlock()
		return item, nil
	}
	h.bytes += len(text) - len(item.Text)
	item.Text = text
	h.items[pos] = item

	ev := Event{Kind: EventUpdate, Action: ActionReplace, Target: TargetAll}
	if h.replacedInPlaceLocked() {
		ev.Target = TargetPosition
		ev.Position = pos
	}
	h.persistLocked(ctx)
	h.mu.Unlock()

	LogItem("history replace", item)
	h.broadcast(ev)
	if pos == 0 {
		h.broadcast(Event{Kind: EventSelected, Text: item.Text})
	}
	return item, nil
}

// replacedInPlaceLocked applies the limits after an item changed in place
// and reports whether no other item had to go.
func (h *History) replacedInPlaceLocked() bool {
	before := len(h.items)
	h.enforceLimitsLocked()
	return len(h.items) == before
}

// Select moves the item to the front and announces it so the clipboard
// owner can take it.
func (h *History) Select(ctx context.Context, id string) (Item, error) {
	h.mu.Lock()
	pos := h.indexLocked(id)
	if pos < 0 {
		h.mu.Unlock()
		return Item{}, fmt.Errorf("select %s: %w", id, ErrNotFound)
	}
	item := h.items[pos]
	moved := pos > 0
	if moved {
		h.removeLocked(pos)
		h.prependLocked(item)
		h.persistLocked(ctx)
	}
	h.mu.Unlock()

	LogItem("history select", item)
	if moved {
		h.broadcast(Event{Kind: EventUpdate, Action: ActionReplace, Target: TargetAll})
	}
	h.broadcast(Event{Kind: EventSelected, Text: item.Text})
	return item, nil
}

// Delete removes the item with the given ID.
func (h *History) Delete(ctx context.Context, id string) error {
	h.mu.Lock()
	pos := h.indexLocked(id)
	if pos < 0 {
		h.mu.Unlock()
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	h.removeLocked(pos)
	h.persistLocked(ctx)
	h.mu.Unlock()

	slog.Info("history delete", "id", id, "position", pos)
	h.broadcast(Event{Kind: EventUpdate, Action: ActionRemove, Target: TargetPosition, Position: pos})
	return nil
}

// Empty removes every item.
func (h *History) Empty(ctx context.Context) {
	h.mu.Lock()
	h.items = nil
	h.bytes = 0
	h.persistLocked(ctx)
	h.mu.Unlock()

	slog.Info("history emptied")
	h.broadcast(Event{Kind: EventUpdate, Action: ActionRemove, Target: TargetAll})
}

// Get returns the item at index.
func (h *History) Get(index int) (Item, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if index < 0 || index >= len(h.items) {
		return Item{}, fmt.Errorf("get %d of %d: %w", index, len(h.items), ErrOutOfRange)
	}
	return h.items[index], nil
}

// Size returns the number of items.
func (h *History) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.items)
}

// Items returns a copy of the history, newest first.
func (h *History) Items() []Item {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Item, len(h.items))
	copy(out, h.items)
	return out
}

// Search returns the ascending indices of the items matching pattern. The
// pattern is a case-insensitive regular expression where "." also matches
// newlines and anchors apply per line; an invalid pattern is matched
// literally.
func (h *History) Search(pattern string) []int {
	re := compileSearch(pattern)

	h.mu.RLock()
	defer h.mu.RUnlock()
	out := []int{}
	for i, it := range h.items {
		if re.MatchString(it.Text) {
			out = append(out, i)
		}
	}
	return out
}

func compileSearch(pattern string) *regexp.Regexp {
	re, err := regexp.Compile("(?ims)" + pattern)
	if err != nil {
		re = regexp.MustCompile("(?ims)" + regexp.QuoteMeta(pattern))
	}
	return re
}

// Tracking reports whether new clipboard contents should be recorded.
func (h *History) Tracking() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.tracking
}

// SetTracking switches tracking and announces changes.
func (h *History) SetTracking(on bool) {
	h.mu.Lock()
	changed := h.tracking != on
	h.tracking = on
	h.mu.Unlock()

	if changed {
		slog.Info("tracking changed", "tracking", on)
		h.broadcast(Event{Kind: EventTracking, Tracking: on})
	}
}

// Register adds a watcher.
func (h *History) Register(w Watcher) {
	h.watchersMu.Lock()
	h.watchers[w.ID()] = w
	total := len(h.watchers)
	h.watchersMu.Unlock()

	slog.Info("watcher registered", "watcher", w.ID(), "source", w.Info().Source, "total", total)
}

// Unregister removes a watcher.
func (h *History) Unregister(w Watcher) {
	h.watchersMu.Lock()
	delete(h.watchers, w.ID())
	total := len(h.watchers)
	h.watchersMu.Unlock()

	slog.Info("watcher unregistered", "watcher", w.ID(), "source", w.Info().Source, "total", total)
}

// Watchers returns a snapshot of the registered watchers.
func (h *History) Watchers() []WatcherInfo {
	h.watchersMu.RLock()
	defer h.watchersMu.RUnlock()
	out := make([]WatcherInfo, 0, len(h.watchers))
	for _, w := range h.watchers {
		out = append(out, w.Info())
	}
	return out
}

func (h *History) broadcast(ev Event) {
	h.watchersMu.RLock()
	targets := make([]Watcher, 0, len(h.watchers))
	for _, w := range h.watchers {
		targets = append(targets, w)
	}
	h.watchersMu.RUnlock()

	for _, w := range targets {
		w.Send(ev)
	}
}

func (h *History) acceptLocked(text string) error {
	n := utf8.RuneCountInString(text)
	switch {
	case n == 0:
		return fmt.Errorf("empty text: %w", ErrRejected)
	case n < h.cfg.MinTextItemSize:
		return fmt.Errorf("text shorter than %d: %w", h.cfg.MinTextItemSize, ErrRejected)
	case h.cfg.MaxTextItemSize > 0 && n > h.cfg.MaxTextItemSize:
		return fmt.Errorf("text longer than %d: %w", h.cfg.MaxTextItemSize, ErrRejected)
	case h.cfg.MaxMemoryUsage > 0 && len(text) >= h.cfg.MaxMemoryUsage:
		return fmt.Errorf("text larger than memory limit: %w", ErrRejected)
	}
	return nil
}

// growingLocked reports whether next extends old at either end.
func (h *History) growingLocked(old, next string) bool {
	if !h.cfg.GrowingLines {
		return false
	}
	return strings.HasPrefix(next, old) || strings.HasSuffix(next, old)
}

func (h *History) indexLocked(id string) int {
	for i, it := range h.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (h *History) removeLocked(i int) {
	h.bytes -= len(h.items[i].Text)
	h.items = append(h.items[:i], h.items[i+1:]...)
}

func (h *History) prependLocked(it Item) {
	h.items = append(h.items, Item{})
	copy(h.items[1:], h.items)
	h.items[0] = it
	h.bytes += len(it.Text)
}

// enforceLimitsLocked trims to the maximum size, then drops the biggest
// non-first items until the history fits in the memory limit.
func (h *History) enforceLimitsLocked() {
	if len(h.items) > h.cfg.MaxHistorySize {
		for _, it := range h.items[h.cfg.MaxHistorySize:] {
			h.bytes -= len(it.Text)
		}
		h.items = h.items[:h.cfg.MaxHistorySize]
	}
	if h.cfg.MaxMemoryUsage <= 0 {
		return
	}
	for h.bytes > h.cfg.MaxMemoryUsage && len(h.items) > 1 {
		biggest := 1
		for i := 2; i < len(h.items); i++ {
			if len(h.items[i].Text) > len(h.items[biggest].Text) {
				biggest = i
			}
		}
		h.removeLocked(biggest)
	}
}

// persistLocked saves the current history. The change is already applied in
// memory, so the save outlives a cancelled caller.
func (h *History) persistLocked(ctx context.Context) {
	if h.store == nil {
		return
	}
	snapshot := make([]Item, len(h.items))
	copy(snapshot, h.items)
	if err := h.store.Save(context.WithoutCancel(ctx), h.name, snapshot); err != nil {
		slog.Error("history save failed", "history", h.name, "err", err)
	}
}
