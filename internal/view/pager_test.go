package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPagerPageCount(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		maxPages int
		total    int
		want     int
	}{
		{"empty", 20, 0, 0, 0},
		{"exact", 20, 0, 40, 2},
		{"partial", 20, 0, 45, 3},
		{"single", 20, 0, 1, 1},
		{"capped", 10, 3, 100, 3},
		{"uncapped", 10, 0, 100, 10},
		{"zero capacity", 0, 0, 7, 1},
		{"negative capacity", -3, 0, 7, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPager(tt.capacity, tt.maxPages)
			p.UpdateForSize(tt.total)
			assert.Equal(t, tt.want, p.Pages())
		})
	}
}

func TestPagerUpdateForSizeSelectsFirstPage(t *testing.T) {
	p := NewPager(20, DefaultMaxPages)
	assert.Equal(t, 0, p.Page())

	assert.False(t, p.UpdateForSize(45), "selecting page 1 must ask for a re-settle")
	assert.Equal(t, 1, p.Page())
	assert.True(t, p.UpdateForSize(45))
}

func TestPagerUpdateForSizeClampsActivePage(t *testing.T) {
	p := NewPager(20, DefaultMaxPages)
	p.UpdateForSize(45)
	require.True(t, p.SetActive(3))
	assert.Equal(t, 40, p.Offset())

	assert.False(t, p.UpdateForSize(25))
	assert.Equal(t, 2, p.Page())
	assert.Equal(t, 20, p.Offset())

	assert.False(t, p.UpdateForSize(0))
	assert.Equal(t, 0, p.Page())
	assert.Equal(t, 0, p.Offset())
	assert.True(t, p.UpdateForSize(0))
}

func TestPagerOffsetWithinTotal(t *testing.T) {
	for capacity := 1; capacity <= 7; capacity++ {
		for total := 0; total <= 50; total++ {
			p := NewPager(capacity, 0)
			for !p.UpdateForSize(total) {
			}
			for page := 1; page <= p.Pages(); page++ {
				p.SetActive(page)
				assert.GreaterOrEqual(t, p.Offset(), 0)
				assert.Less(t, p.Offset(), total, "capacity=%d total=%d page=%d", capacity, total, page)
			}
		}
	}
}

func TestPagerSetActive(t *testing.T) {
	p := NewPager(20, DefaultMaxPages)
	p.UpdateForSize(45)

	assert.False(t, p.SetActive(1), "already active")
	assert.False(t, p.SetActive(4), "out of range")
	assert.False(t, p.SetActive(0), "pages are 1-based")
	assert.True(t, p.SetActive(3))
	assert.Equal(t, 3, p.Page())
}

func TestPagerPreviousNextEdges(t *testing.T) {
	p := NewPager(10, 0)
	assert.False(t, p.Next(), "no active page")

	p.UpdateForSize(25)
	assert.False(t, p.Previous())
	assert.True(t, p.Next())
	assert.True(t, p.Next())
	assert.False(t, p.Next())
	assert.Equal(t, 3, p.Page())
	assert.True(t, p.Previous())
	assert.Equal(t, 2, p.Page())
}

func TestPagerZeroCapacityOffset(t *testing.T) {
	p := NewPager(0, DefaultMaxPages)
	p.UpdateForSize(12)
	assert.Equal(t, 1, p.Pages())
	assert.Equal(t, 0, p.Offset())
}

func TestPagerReset(t *testing.T) {
	p := NewPager(5, 0)
	p.UpdateForSize(20)
	p.SetActive(3)
	p.Reset()
	assert.Equal(t, 0, p.Page())
	assert.False(t, p.UpdateForSize(20))
	assert.Equal(t, 1, p.Page())
}
