// Package view keeps a paginated, optionally filtered window over the remote
// clipboard history consistent with the history's update notifications.
//
// The Synchronizer never calls the remote side itself. Every trigger returns
// the Requests the host has to issue, and results are fed back through the
// Handle* methods. Results may arrive in any order: element results carry the
// slot generation they were issued for, size and search results carry their
// own generation, and anything superseded is dropped.
//
// A Synchronizer is not safe for concurrent use; it belongs to one event loop.
package view

import "math"

// RequestKind identifies the remote call a Request stands for.
type RequestKind int

const (
	RequestSize RequestKind = iota
	RequestElement
	RequestSearch
)

func (k RequestKind) String() string {
	switch k {
	case RequestSize:
		return "size"
	case RequestElement:
		return "element"
	case RequestSearch:
		return "search"
	default:
		return "unknown"
	}
}

// Request is a remote call the host must issue on behalf of the Synchronizer.
type Request struct {
	Kind  RequestKind
	Slot  int    // RequestElement
	Index int    // RequestElement
	Query string // RequestSearch
	Gen   uint64
}

// Entry is one resolved history element.
type Entry struct {
	Index int
	ID    string
	Text  string
}

// Action and Target mirror the history update notification.
type Action int

const (
	ActionReplace Action = iota + 1
	ActionRemove
)

type Target int

const (
	TargetAll Target = iota + 1
	TargetPosition
)

// Update is a remote history change notification.
type Update struct {
	Action   Action
	Target   Target
	Position int
}

// State is the refresh-cycle state.
type State int

const (
	StateIdle State = iota
	StateResolving
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Placeholder is what the view shows instead of (or above) the slots.
type Placeholder int

const (
	PlaceholderNone Placeholder = iota
	PlaceholderEmpty
	PlaceholderNoResults
	PlaceholderDisconnected
)

// Options configures a Synchronizer.
type Options struct {
	// MaxDisplayed is both the slot count and the page capacity.
	MaxDisplayed int
	// MaxPages caps the page count; <= 0 disables the cap.
	MaxPages int
}

// Snapshot is a read-only copy of the view state handed to renderers.
type Snapshot struct {
	State       State
	Placeholder Placeholder
	Query       string
	Page        int
	Pages       int
	Total       int
	Matches     int
	Slots       []Slot
}

// Renderer draws a Snapshot. Implementations own every presentation detail.
type Renderer interface {
	Render(Snapshot)
}

const noDirty = math.MaxInt

// dirtySet records which remote positions changed since the last settle.
type dirtySet struct {
	from   int // every index >= from is dirty
	points map[int]struct{}
}

func (d *dirtySet) reset() {
	d.from = noDirty
	d.points = nil
}

func (d *dirtySet) mark(u Update) {
	switch {
	case u.Target == TargetAll:
		d.from = 0
	case u.Action == ActionRemove:
		d.from = min(d.from, max(u.Position, 0))
	default:
		if d.points == nil {
			d.points = make(map[int]struct{})
		}
		d.points[u.Position] = struct{}{}
	}
}

func (d *dirtySet) covers(index int) bool {
	if index < 0 {
		return false
	}
	if index >= d.from {
		return true
	}
	_, ok := d.points[index]
	return ok
}

// Synchronizer reconciles a slot pool with either the plain paginated view
// of the remote history or the current search results.
type Synchronizer struct {
	pager *Pager
	pool  *slotPool
	dirty dirtySet

	state     State
	connected bool

	total       int
	sizeKnown   bool
	sizePending bool
	sizeGen     uint64

	query         string
	matches       []int
	searchReady   bool
	searchPending bool
	searchGen     uint64
}

// New returns a Synchronizer in the Idle state. Call Start to issue the
// first refresh.
func New(opts Options) *Synchronizer {
	s := &Synchronizer{
		pager:     NewPager(opts.MaxDisplayed, opts.MaxPages),
		pool:      newSlotPool(opts.MaxDisplayed),
		connected: true,
	}
	s.dirty.reset()
	return s
}

// Start begins the first refresh cycle.
func (s *Synchronizer) Start() []Request {
	s.dirty.from = 0
	return s.refresh()
}

// Notify reacts to a remote update notification.
func (s *Synchronizer) Notify(u Update) []Request {
	s.dirty.mark(u)

	if s.searching() {
		s.sizeKnown = false
		return s.refresh()
	}

	// A replaced entry does not change the size; refetch only the slot
	// showing it.
	if u.Action == ActionReplace && u.Target == TargetPosition && s.sizeKnown && !s.sizePending {
		return s.refetchPosition(u.Position)
	}

	s.sizeKnown = false
	return s.refresh()
}

// SetQuery replaces the search query. An empty query restores the plain
// view, reusing the known size when there is one.
func (s *Synchronizer) SetQuery(q string) []Request {
	if q == s.query {
		return nil
	}
	s.query = q
	s.matches = nil
	s.searchReady = false
	s.searchPending = false
	s.searchGen++
	s.pager.Reset()

	if q == "" && s.sizeKnown {
		return s.settle()
	}
	return s.refresh()
}

// SwitchPage activates page (1-based).
func (s *Synchronizer) SwitchPage(page int) []Request {
	if !s.pager.SetActive(page) {
		return nil
	}
	return s.resettle()
}

// NextPage switches to the following page, if any.
func (s *Synchronizer) NextPage() []Request {
	if !s.pager.Next() {
		return nil
	}
	return s.resettle()
}

// PreviousPage switches to the preceding page, if any.
func (s *Synchronizer) PreviousPage() []Request {
	if !s.pager.Previous() {
		return nil
	}
	return s.resettle()
}

// SetMaxDisplayed resizes the slot pool and the page capacity.
func (s *Synchronizer) SetMaxDisplayed(n int) []Request {
	if n < 0 {
		n = 0
	}
	if n == s.pool.len() && n == s.pager.Capacity() {
		return nil
	}
	s.pool.resize(n)
	s.pager.SetCapacity(n)
	return s.resettle()
}

// SetConnected records the remote connection state. Losing the connection
// puts the view in the degraded placeholder state; regaining it triggers a
// full refresh.
func (s *Synchronizer) SetConnected(ok bool) []Request {
	if ok == s.connected {
		return nil
	}
	s.connected = ok
	if !ok {
		s.disconnect()
		return nil
	}
	s.dirty.from = 0
	s.sizeKnown = false
	return s.refresh()
}

// HandleSize feeds back the result of a RequestSize.
func (s *Synchronizer) HandleSize(gen uint64, total int, err error) []Request {
	if gen != s.sizeGen || !s.sizePending {
		return nil
	}
	s.sizePending = false
	if err != nil {
		s.disconnect()
		return nil
	}
	s.connected = true
	s.total = max(total, 0)
	s.sizeKnown = true
	if s.searching() {
		return nil
	}
	return s.settle()
}

// HandleSearch feeds back the result of a RequestSearch.
func (s *Synchronizer) HandleSearch(gen uint64, indices []int, err error) []Request {
	if gen != s.searchGen || !s.searchPending {
		return nil
	}
	s.searchPending = false
	if err != nil {
		s.disconnect()
		return nil
	}
	s.connected = true
	s.matches = indices
	s.searchReady = true
	return s.settle()
}

// HandleElement feeds back the result of a RequestElement. It reports
// whether the displayed content changed. A failed fetch that is still
// current unbinds its slot.
func (s *Synchronizer) HandleElement(req Request, e Entry, err error) bool {
	if err != nil {
		return s.pool.fail(req)
	}
	return s.pool.apply(req, e)
}

func (s *Synchronizer) State() State             { return s.state }
func (s *Synchronizer) Query() string            { return s.query }
func (s *Synchronizer) Page() int                { return s.pager.Page() }
func (s *Synchronizer) Pages() int               { return s.pager.Pages() }
func (s *Synchronizer) Offset() int              { return s.pager.Offset() }
func (s *Synchronizer) Connected() bool          { return s.connected }
func (s *Synchronizer) Slots() []Slot            { return s.pool.snapshot() }
func (s *Synchronizer) Placeholder() Placeholder { return s.placeholder() }

// Slot returns a copy of slot n.
func (s *Synchronizer) Slot(n int) (Slot, bool) {
	if n < 0 || n >= s.pool.len() {
		return Slot{}, false
	}
	return s.pool.slots[n], true
}

// Snapshot copies the current state for a renderer.
func (s *Synchronizer) Snapshot() Snapshot {
	return Snapshot{
		State:       s.state,
		Placeholder: s.placeholder(),
		Query:       s.query,
		Page:        s.pager.Page(),
		Pages:       s.pager.Pages(),
		Total:       s.total,
		Matches:     len(s.matches),
		Slots:       s.pool.snapshot(),
	}
}

func (s *Synchronizer) searching() bool { return s.query != "" }

// refresh asks the remote side for the data the current mode needs.
func (s *Synchronizer) refresh() []Request {
	s.state = StateResolving
	if s.searching() {
		s.searchGen++
		s.searchPending = true
		return []Request{{Kind: RequestSearch, Query: s.query, Gen: s.searchGen}}
	}
	s.sizeGen++
	s.sizePending = true
	return []Request{{Kind: RequestSize, Gen: s.sizeGen}}
}

// resettle re-resolves the window with whatever is already known, or starts
// a refresh if nothing is.
func (s *Synchronizer) resettle() []Request {
	if s.searching() {
		switch {
		case s.searchPending:
			// The pending result settles with the new page or size.
			return nil
		case s.searchReady:
			return s.settle()
		}
		return s.refresh()
	}
	switch {
	case s.sizePending:
		return nil
	case s.sizeKnown:
		return s.settle()
	}
	return s.refresh()
}

// settle stabilises the page selection and rebinds every slot whose target
// index changed. Slots whose target is dirty are refetched even if their
// binding is unchanged.
func (s *Synchronizer) settle() []Request {
	count := s.total
	if s.searching() {
		count = len(s.matches)
	}
	// At most two passes: clamp the active page, then confirm it.
	for !s.pager.UpdateForSize(count) {
	}

	var reqs []Request
	for i := 0; i < s.pool.len(); i++ {
		target := s.target(i)
		if req, ok := s.pool.bind(i, target, s.dirty.covers(target)); ok {
			reqs = append(reqs, req)
		}
	}

	s.dirty.reset()
	s.state = StateSettled
	return reqs
}

// target returns the absolute index slot i should show, or -1.
func (s *Synchronizer) target(i int) int {
	if s.pager.Page() == 0 {
		return -1
	}
	if c := s.pager.Capacity(); c > 0 && i >= c {
		return -1
	}
	pos := s.pager.Offset() + i
	if s.searching() {
		if pos < len(s.matches) {
			return s.matches[pos]
		}
		return -1
	}
	if pos < s.total {
		return pos
	}
	return -1
}

func (s *Synchronizer) refetchPosition(position int) []Request {
	defer s.dirty.reset()
	for i := 0; i < s.pool.len(); i++ {
		if s.pool.slots[i].Index != position {
			continue
		}
		if req, ok := s.pool.bind(i, position, true); ok {
			return []Request{req}
		}
	}
	return nil
}

func (s *Synchronizer) disconnect() {
	s.connected = false
	s.sizeGen++
	s.searchGen++
	s.sizePending = false
	s.searchPending = false
	s.sizeKnown = false
	s.searchReady = false
	s.state = StateSettled
}

func (s *Synchronizer) placeholder() Placeholder {
	switch {
	case !s.connected:
		return PlaceholderDisconnected
	case s.state != StateSettled:
		return PlaceholderNone
	case s.searching() && len(s.matches) == 0:
		return PlaceholderNoResults
	case !s.searching() && s.total == 0:
		return PlaceholderEmpty
	}
	return PlaceholderNone
}
