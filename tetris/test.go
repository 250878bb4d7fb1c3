package tetris

import (
	"sync"
	"time"
)

// MockTicker is a mock implementation of the ticker interface.
type MockTicker struct {
	ch          chan time.Time
	stop, reset bool
	last        time.Duration
	mu          sync.Mutex
}

func NewMockTicker() *MockTicker          { return &MockTicker{ch: make(chan time.Time)} }
func (m *MockTicker) C() <-chan time.Time { return m.ch }
func (m *MockTicker) Tick()               { m.ch <- time.Now() }

// TickWithin ticks unless nobody listens for d.
func (m *MockTicker) TickWithin(d time.Duration) bool {
	select {
	case m.ch <- time.Now():
		return true
	case <-time.After(d):
		return false
	}
}
func (m *MockTicker) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stop = true
}
func (m *MockTicker) Reset(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset = true
	m.stop = false
	m.last = d
}
func (m *MockTicker) IsReset() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reset
}
func (m *MockTicker) IsStop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stop
}
func (m *MockTicker) LastReset() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// NewTestGame creates a game with a deterministic spawner and returns it with a manual ticker.
func NewTestGame(seed uint64) (*Game, *MockTicker) {
	ticker := NewMockTicker()
	c := NewCatalog()
	return NewGame(&GameOptions{
		Catalog: c,
		Session: SessionOptions{Spawner: NewSeededSpawner(c, seed)},
		Ticker:  ticker,
	}), ticker
}

// NewTestSession creates a session on an empty board whose active piece is shape on its spawn anchor.
func NewTestSession(shape Shape) *Session {
	c := NewCatalog()
	s := NewSession(c, &SessionOptions{Spawner: NewSeededSpawner(c, 1)})
	s.SetPiece(c.MustNewPiece(shape))
	return s
}

// NewTestSnapshot returns the snapshot of a fresh test session.
func NewTestSnapshot(shape Shape) Snapshot {
	return NewTestSession(shape).Snapshot()
}
