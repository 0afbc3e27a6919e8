package clip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySetSignalsWatch(t *testing.T) {
	m := NewMemory()
	m.Set("a")
	m.Set("b")

	select {
	case <-m.Watch():
	default:
		t.Fatal("expected a watch signal")
	}
	text, err := m.Read()
	require.NoError(t, err)
	assert.Equal(t, "b", text)
}

func TestMemoryWriteIsSilent(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Write("x"))

	select {
	case <-m.Watch():
		t.Fatal("own writes must not signal")
	default:
	}
	assert.Equal(t, []string{"x"}, m.Writes())
}

func TestCloseClosesWatch(t *testing.T) {
	for _, b := range []Backend{NewMemory(), NewHeadless()} {
		b.Close()
		b.Close()
		_, ok := <-b.Watch()
		assert.False(t, ok, b.Name())
	}
}
