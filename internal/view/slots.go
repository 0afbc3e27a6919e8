package view

import "strings"

// Slot is a reusable display binding for one window position.
//
// Index is the absolute index into the remote history the slot shows, or -1
// when the slot is empty and hidden. Slots are rebound as the window moves;
// they are never recreated.
type Slot struct {
	Number int
	Index  int
	ID     string
	Text   string

	gen    uint64
	loaded bool
}

// Bound reports whether the slot currently shows an entry.
func (s Slot) Bound() bool { return s.Index >= 0 }

// MostRecent reports whether the slot shows the newest history entry.
func (s Slot) MostRecent() bool { return s.Index == 0 }

// Loaded reports whether content for the current binding has arrived.
func (s Slot) Loaded() bool { return s.loaded }

// Generation is bumped on every rebind. Fetch results are only applied when
// the generation they were issued for is still current.
func (s Slot) Generation() uint64 { return s.gen }

var flatten = strings.NewReplacer("\t", "", "\n", "", "\r", "")

// slotPool owns the slots. Generations come from one pool-wide counter so a
// slot that is dropped and re-created can never match a late result.
type slotPool struct {
	slots []Slot
	next  uint64
}

func newSlotPool(n int) *slotPool {
	p := &slotPool{}
	p.resize(n)
	return p
}

func (p *slotPool) len() int { return len(p.slots) }

// resize grows the pool with unbound slots or drops trailing slots.
func (p *slotPool) resize(n int) {
	if n < 0 {
		n = 0
	}
	if n <= len(p.slots) {
		p.slots = p.slots[:n]
		return
	}
	for i := len(p.slots); i < n; i++ {
		p.slots = append(p.slots, Slot{Number: i, Index: -1})
	}
}

// bind points slot i at index. A fetch request is returned only when the
// binding changed, or when force is set and the slot is bound.
func (p *slotPool) bind(i, index int, force bool) (Request, bool) {
	s := &p.slots[i]
	if s.Index == index && !(force && index >= 0) {
		return Request{}, false
	}

	p.next++
	s.gen = p.next
	if s.Index != index {
		s.Index = index
		s.loaded = false
	}

	if index < 0 {
		s.ID = ""
		s.Text = ""
		return Request{}, false
	}
	return Request{Kind: RequestElement, Slot: i, Index: index, Gen: s.gen}, true
}

// apply stores a fetched entry. It reports whether the displayed text
// changed; stale results and identical text report false.
func (p *slotPool) apply(req Request, e Entry) bool {
	if req.Slot < 0 || req.Slot >= len(p.slots) {
		return false
	}
	s := &p.slots[req.Slot]
	if s.gen != req.Gen || s.Index != req.Index {
		return false
	}

	text := flatten.Replace(e.Text)
	wasLoaded := s.loaded
	s.ID = e.ID
	s.loaded = true
	if wasLoaded && s.Text == text {
		return false
	}
	s.Text = text
	return true
}

// fail unbinds the slot a failed fetch was issued for, if that fetch is
// still current.
func (p *slotPool) fail(req Request) bool {
	if req.Slot < 0 || req.Slot >= len(p.slots) {
		return false
	}
	if p.slots[req.Slot].gen != req.Gen {
		return false
	}
	p.bind(req.Slot, -1, false)
	return true
}

func (p *slotPool) snapshot() []Slot {
	out := make([]Slot, len(p.slots))
	copy(out, p.slots)
	return out
}
