// Package tui is the interactive history browser: a Bubble Tea program
// hosting one view.Synchronizer. Each synchronizer request runs as a
// tea.Cmd and its result comes back as a message, so results may arrive in
// any order; the synchronizer drops the stale ones.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"go.klb.dev/recall/internal/api"
	"go.klb.dev/recall/internal/client"
	"go.klb.dev/recall/internal/view"
)

// Backend is the daemon as seen by the browser.
type Backend interface {
	view.Source
	Select(ctx context.Context, id string) (*api.Item, error)
	Delete(ctx context.Context, id string) error
	Empty(ctx context.Context) error
	SetTracking(ctx context.Context, on bool) (bool, error)
}

// Options configures a Model.
type Options struct {
	View view.Options
	// ElementSize elides entries longer than this many runes; 0 disables it.
	ElementSize int
	// QuitOnSelect exits after an entry was copied.
	QuitOnSelect bool
}

// SettingsMsg delivers reloaded display settings into a running program.
type SettingsMsg struct {
	MaxDisplayed int
	ElementSize  int
}

type sizeMsg struct {
	gen   uint64
	total int
	err   error
}

type searchMsg struct {
	gen     uint64
	indices []int
	err     error
}

type elementMsg struct {
	req   view.Request
	entry view.Entry
	err   error
}

type eventMsg struct{ ev client.Event }

type watchClosedMsg struct{}

// actionMsg reports the outcome of a user action.
type actionMsg struct {
	verb string
	text string
	err  error
}

type trackingMsg struct {
	on  bool
	err error
}

// Model is the Bubble Tea model.
type Model struct {
	ctx     context.Context
	backend Backend
	events  <-chan client.Event
	opts    Options

	sync   *view.Synchronizer
	input  textinput.Model
	help   help.Model
	keys   keyMap
	styles styles

	cursor       int
	elementSize  int
	tracking     bool
	confirmEmpty bool
	status       string
	statusErr    bool
	width        int
	quitting     bool
}

// New returns a model browsing b. events may be nil when no watch stream
// is available; the view then only refreshes on its own actions.
func New(ctx context.Context, b Backend, events <-chan client.Event, opts Options) *Model {
	in := textinput.New()
	in.Prompt = "search: "
	in.Placeholder = "type to filter"
	in.Cursor.SetMode(cursor.CursorStatic)
	in.Focus()

	return &Model{
		ctx:         ctx,
		backend:     b,
		events:      events,
		opts:        opts,
		sync:        view.New(opts.View),
		input:       in,
		help:        help.New(),
		keys:        defaultKeys(),
		styles:      defaultStyles(),
		elementSize: opts.ElementSize,
		tracking:    true,
	}
}

// Init starts the first refresh and the event pump.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.run(m.sync.Start()), m.waitEvent())
}

// Snapshot returns the synchronizer state.
func (m *Model) Snapshot() view.Snapshot { return m.sync.Snapshot() }

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sizeMsg:
		cmd := m.run(m.sync.HandleSize(msg.gen, msg.total, msg.err))
		m.clampCursor()
		return m, cmd

	case searchMsg:
		cmd := m.run(m.sync.HandleSearch(msg.gen, msg.indices, msg.err))
		m.clampCursor()
		return m, cmd

	case elementMsg:
		m.sync.HandleElement(msg.req, msg.entry, msg.err)
		m.clampCursor()
		return m, nil

	case eventMsg:
		return m, tea.Batch(m.handleEvent(msg.ev), m.waitEvent())

	case watchClosedMsg:
		return m, nil

	case SettingsMsg:
		m.elementSize = max(msg.ElementSize, 0)
		cmd := m.run(m.sync.SetMaxDisplayed(msg.MaxDisplayed))
		m.clampCursor()
		return m, cmd

	case actionMsg:
		if msg.err != nil {
			m.setError(fmt.Sprintf("%s failed: %v", msg.verb, msg.err))
			return m, nil
		}
		m.setStatus(msg.text)
		if msg.verb == "copy" && m.opts.QuitOnSelect {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case trackingMsg:
		if msg.err != nil {
			m.setError(fmt.Sprintf("tracking failed: %v", msg.err))
			return m, nil
		}
		m.tracking = msg.on
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmEmpty {
		m.confirmEmpty = false
		if msg.String() == "y" || msg.String() == "Y" {
			return m, m.emptyCmd()
		}
		m.setStatus("empty cancelled")
		return m, nil
	}

	searching := m.input.Value() != ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Back):
		if searching {
			m.input.SetValue("")
			return m, m.applyQuery()
		}
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.cursor = max(m.cursor-1, 0)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.cursor++
		m.clampCursor()
		return m, nil

	// left and right edit the query while one is being typed.
	case key.Matches(msg, m.keys.PrevPage) && !(searching && msg.Type == tea.KeyLeft):
		m.cursor = 0
		return m, m.run(m.sync.PreviousPage())

	case key.Matches(msg, m.keys.NextPage) && !(searching && msg.Type == tea.KeyRight):
		m.cursor = 0
		return m, m.run(m.sync.NextPage())

	case key.Matches(msg, m.keys.Select):
		if sl, ok := m.current(); ok {
			return m, m.selectCmd(sl)
		}
		return m, nil

	case key.Matches(msg, m.keys.QuickSelect):
		n := int(msg.Runes[len(msg.Runes)-1] - '0')
		if sl, ok := m.visible(n); ok {
			return m, m.selectCmd(sl)
		}
		return m, nil

	// delete and ctrl+e belong to the search box while it has text.
	case key.Matches(msg, m.keys.Delete) && !(searching && msg.Type == tea.KeyDelete):
		if sl, ok := m.current(); ok {
			return m, m.deleteCmd(sl)
		}
		return m, nil

	case key.Matches(msg, m.keys.Track):
		return m, m.trackCmd(!m.tracking)

	case key.Matches(msg, m.keys.Empty) && !searching:
		m.confirmEmpty = true
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, tea.Batch(cmd, m.applyQuery())
}

// applyQuery pushes the search box contents into the synchronizer.
func (m *Model) applyQuery() tea.Cmd {
	q := m.input.Value()
	if q == m.sync.Query() {
		return nil
	}
	m.cursor = 0
	return m.run(m.sync.SetQuery(q))
}

func (m *Model) handleEvent(ev client.Event) tea.Cmd {
	switch ev.Kind {
	case client.EventConnected:
		m.setStatus("")
		reqs := m.sync.SetConnected(true)
		if reqs == nil {
			// Already connected: changes made before the stream came up
			// were not notified.
			reqs = m.sync.Notify(view.Update{Action: view.ActionReplace, Target: view.TargetAll})
		}
		return m.run(reqs)
	case client.EventDisconnected:
		m.sync.SetConnected(false)
		m.cursor = 0
	case client.EventUpdate:
		cmd := m.run(m.sync.Notify(ev.Update))
		m.clampCursor()
		return cmd
	case client.EventTracking:
		m.tracking = ev.Tracking
	}
	return nil
}

// run turns synchronizer requests into commands.
func (m *Model) run(reqs []view.Request) tea.Cmd {
	if len(reqs) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(reqs))
	for _, req := range reqs {
		cmds = append(cmds, m.fetch(req))
	}
	return tea.Batch(cmds...)
}

func (m *Model) fetch(req view.Request) tea.Cmd {
	ctx, b := m.ctx, m.backend
	switch req.Kind {
	case view.RequestSize:
		return func() tea.Msg {
			n, err := b.Size(ctx)
			return sizeMsg{gen: req.Gen, total: n, err: err}
		}
	case view.RequestSearch:
		return func() tea.Msg {
			idx, err := b.Search(ctx, req.Query)
			return searchMsg{gen: req.Gen, indices: idx, err: err}
		}
	case view.RequestElement:
		return func() tea.Msg {
			e, err := b.ElementAt(ctx, req.Index)
			return elementMsg{req: req, entry: e, err: err}
		}
	}
	return nil
}

func (m *Model) waitEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	ch := m.events
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return watchClosedMsg{}
		}
		return eventMsg{ev: ev}
	}
}

func (m *Model) selectCmd(sl view.Slot) tea.Cmd {
	if !sl.Loaded() {
		return nil
	}
	ctx, b, id := m.ctx, m.backend, sl.ID
	return func() tea.Msg {
		it, err := b.Select(ctx, id)
		if err != nil {
			return actionMsg{verb: "copy", err: err}
		}
		return actionMsg{verb: "copy", text: "copied " + view.Elide(it.Text, 40)}
	}
}

func (m *Model) deleteCmd(sl view.Slot) tea.Cmd {
	if !sl.Loaded() {
		return nil
	}
	ctx, b, id := m.ctx, m.backend, sl.ID
	return func() tea.Msg {
		if err := b.Delete(ctx, id); err != nil {
			return actionMsg{verb: "delete", err: err}
		}
		return actionMsg{verb: "delete", text: "deleted"}
	}
}

func (m *Model) emptyCmd() tea.Cmd {
	ctx, b := m.ctx, m.backend
	return func() tea.Msg {
		if err := b.Empty(ctx); err != nil {
			return actionMsg{verb: "empty", err: err}
		}
		return actionMsg{verb: "empty", text: "history emptied"}
	}
}

func (m *Model) trackCmd(on bool) tea.Cmd {
	ctx, b := m.ctx, m.backend
	return func() tea.Msg {
		got, err := b.SetTracking(ctx, on)
		return trackingMsg{on: got, err: err}
	}
}

// visible returns the n-th bound slot.
func (m *Model) visible(n int) (view.Slot, bool) {
	if n < 0 {
		return view.Slot{}, false
	}
	for _, sl := range m.sync.Slots() {
		if !sl.Bound() {
			continue
		}
		if n == 0 {
			return sl, true
		}
		n--
	}
	return view.Slot{}, false
}

func (m *Model) current() (view.Slot, bool) { return m.visible(m.cursor) }

func (m *Model) clampCursor() {
	n := 0
	for _, sl := range m.sync.Slots() {
		if sl.Bound() {
			n++
		}
	}
	m.cursor = max(min(m.cursor, n-1), 0)
}

func (m *Model) setStatus(s string) { m.status, m.statusErr = s, false }
func (m *Model) setError(s string)  { m.status, m.statusErr = s, true }

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	snap := m.sync.Snapshot()
	var b strings.Builder

	b.WriteString(m.header(snap))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(m.body(snap))
	b.WriteString("\n")

	switch {
	case m.confirmEmpty:
		b.WriteString(m.styles.Confirm.Render("empty the whole history? [y/N]"))
	case m.status != "" && m.statusErr:
		b.WriteString(m.styles.Error.Render(m.status))
	case m.status != "":
		b.WriteString(m.styles.Status.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) header(snap view.Snapshot) string {
	parts := []string{m.styles.Title.Render("recall")}
	if m.tracking {
		parts = append(parts, m.styles.TrackingOn.Render("● tracking"))
	} else {
		parts = append(parts, m.styles.TrackingOff.Render("○ paused"))
	}
	if snap.Pages > 1 {
		parts = append(parts, m.styles.Page.Render(fmt.Sprintf("page %d/%d", snap.Page, snap.Pages)))
	}
	if snap.Query != "" && snap.Placeholder == view.PlaceholderNone {
		parts = append(parts, m.styles.Page.Render(fmt.Sprintf("%d matches", snap.Matches)))
	}
	return strings.Join(parts, "  ")
}

func (m *Model) body(snap view.Snapshot) string {
	switch snap.Placeholder {
	case view.PlaceholderDisconnected:
		return m.styles.Placeholder.Render("daemon unavailable, reconnecting…")
	case view.PlaceholderEmpty:
		return m.styles.Placeholder.Render("history is empty")
	case view.PlaceholderNoResults:
		return m.styles.Placeholder.Render(fmt.Sprintf("no results for %q", snap.Query))
	}

	var lines []string
	row := 0
	for _, sl := range snap.Slots {
		if !sl.Bound() {
			continue
		}
		mark := "  "
		if row == m.cursor {
			mark = m.styles.Cursor.Render("▸ ")
		}
		text := m.styles.Pending.Render("…")
		if sl.Loaded() {
			text = view.Elide(sl.Text, m.elementSize)
			if sl.MostRecent() {
				text = m.styles.Recent.Render(text)
			}
		}
		lines = append(lines, mark+m.styles.Index.Render(fmt.Sprint(sl.Index))+"  "+text)
		row++
	}
	if len(lines) == 0 {
		return m.styles.Placeholder.Render("loading…")
	}
	return strings.Join(lines, "\n")
}
