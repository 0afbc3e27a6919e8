package view

// DefaultMaxPages bounds how many pages a Pager exposes when no explicit
// limit is configured.
const DefaultMaxPages = 20

// Pager tracks the page count and the active page for a fixed page capacity.
//
// Pages are 1-based in the public API. A Pager with no active page reports
// Page() == 0 and Offset() == 0.
type Pager struct {
	capacity int
	maxPages int // <= 0 means uncapped
	pages    int
	active   int // 0-based, -1 = none
}

// NewPager returns a Pager with no active page.
func NewPager(capacity, maxPages int) *Pager {
	return &Pager{capacity: capacity, maxPages: maxPages, active: -1}
}

func (p *Pager) Capacity() int { return p.capacity }
func (p *Pager) Pages() int    { return p.pages }

// Page returns the active page (1-based), or 0 when no page is active.
func (p *Pager) Page() int { return p.active + 1 }

// SetCapacity changes the page capacity. Callers must run UpdateForSize
// afterwards; the active page may have become out of range.
func (p *Pager) SetCapacity(n int) { p.capacity = n }

// Reset drops the active page. The next UpdateForSize with a non-empty list
// selects page 1 again.
func (p *Pager) Reset() { p.active = -1 }

// Offset returns the index of the first entry on the active page.
func (p *Pager) Offset() int {
	if p.active < 0 || p.capacity <= 0 {
		return 0
	}
	return p.active * p.capacity
}

// UpdateForSize recomputes the page count for a list of total entries.
//
// It returns false when the active page had to change (it was out of range,
// or no page was active and the list is not empty); the caller must then
// re-settle before reading slots. A true result means the active page is
// still valid.
func (p *Pager) UpdateForSize(total int) bool {
	p.pages = p.pagesFor(total)

	switch {
	case p.active >= p.pages:
		p.active = p.pages - 1
		return false
	case p.active < 0 && p.pages > 0:
		p.active = 0
		return false
	}
	return true
}

// SetActive switches to page (1-based). It is a no-op, returning false, if
// the page is already active or out of range.
func (p *Pager) SetActive(page int) bool {
	if page < 1 || page > p.pages || page == p.active+1 {
		return false
	}
	p.active = page - 1
	return true
}

// Previous switches to the preceding page. No-op on the first page.
func (p *Pager) Previous() bool {
	if p.active <= 0 {
		return false
	}
	p.active--
	return true
}

// Next switches to the following page. No-op on the last page.
func (p *Pager) Next() bool {
	if p.active < 0 || p.active+1 >= p.pages {
		return false
	}
	p.active++
	return true
}

func (p *Pager) pagesFor(total int) int {
	if total <= 0 {
		return 0
	}
	// No usable capacity: everything is one unpaginated page.
	if p.capacity <= 0 {
		return 1
	}
	pages := (total + p.capacity - 1) / p.capacity
	if p.maxPages > 0 && pages > p.maxPages {
		pages = p.maxPages
	}
	return pages
}
