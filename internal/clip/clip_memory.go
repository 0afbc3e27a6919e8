package clip

import "sync"

// Memory is an in-process clipboard. Writes from outside (Set) raise a watch
// signal; writes through the Backend interface do not, like a real
// clipboard owned by this process.
type Memory struct {
	mu      sync.Mutex
	text    string
	writes  []string
	watchCh chan struct{}
	once    sync.Once
}

// NewMemory returns an empty in-process clipboard.
func NewMemory() *Memory {
	return &Memory{watchCh: make(chan struct{}, 1)}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Read() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, nil
}

func (m *Memory) Write(text string) error {
	m.mu.Lock()
	m.text = text
	m.writes = append(m.writes, text)
	m.mu.Unlock()
	return nil
}

// Set simulates another application copying text.
func (m *Memory) Set(text string) {
	m.mu.Lock()
	m.text = text
	m.mu.Unlock()
	notify(m.watchCh)
}

// Writes returns every text written through the Backend interface.
func (m *Memory) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...)
}

func (m *Memory) Watch() <-chan struct{} { return m.watchCh }
func (m *Memory) Close()                 { m.once.Do(func() { close(m.watchCh) }) }
