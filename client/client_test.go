package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/eiannone/keyboard"

	"github.com/willmacd/dql-tetris/terminal"
	"github.com/willmacd/dql-tetris/tetris"
)

type mockTetris struct {
	updateCh chan tetris.Snapshot
	best     int
	start    bool
	stop     bool
	action   tetris.Action
	mu       sync.Mutex
}

func (m *mockTetris) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stop = true
}
func (m *mockTetris) GetUpdate() <-chan tetris.Snapshot { return m.updateCh }
func (m *mockTetris) Start() {
	m.mu.Lock()
	m.start = true
	m.mu.Unlock()
	m.updateCh <- tetris.Snapshot{}
}
func (m *mockTetris) Action(a tetris.Action) {
	m.mu.Lock()
	m.action = a
	m.mu.Unlock()
	m.updateCh <- tetris.Snapshot{}
}
func (m *mockTetris) SetHighScore(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.best = max(m.best, n)
}
func (m *mockTetris) sendGameOver(score int) {
	m.updateCh <- tetris.Snapshot{GameOver: true, Score: score, HighScore: score}
}
func (m *mockTetris) get() (bool, bool, tetris.Action, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.start, m.stop, m.action, m.best
}

type mockRender struct {
	lobby      []string
	localCount int
	mu         sync.Mutex
}

func (m *mockRender) Reset() {}
func (m *mockRender) Local(s tetris.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.localCount++
	if s.GameOver {
		m.lobby = append(m.lobby, terminal.GameOver)
	}
}
func (m *mockRender) Lobby(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lobby = append(m.lobby, msg)
}
func (m *mockRender) counts() (int, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.localCount, append([]string(nil), m.lobby...)
}

type mockStore struct {
	saved []int
	mu    sync.Mutex
}

func (m *mockStore) Load() (int, error) { return 0, nil }
func (m *mockStore) Save(n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, n)
	return nil
}
func (m *mockStore) get() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.saved...)
}

type mockPublisher struct {
	frames int
	closed bool
	mu     sync.Mutex
}

func (m *mockPublisher) Publish(tetris.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames++
	return nil
}
func (m *mockPublisher) Close() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return "id", nil
}
func (m *mockPublisher) get() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames, m.closed
}

func newTestClient() (*Client, *mockTetris, *mockRender, *mockStore, chan keyboard.KeyEvent) {
	render := &mockRender{}
	tts := &mockTetris{updateCh: make(chan tetris.Snapshot)}
	store := &mockStore{}
	kCh := make(chan keyboard.KeyEvent)
	cl := &Client{
		tetris: tts,
		render: render,
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		kbCh:   kCh,
		state:  &state{current: lobby},
	}
	return cl, tts, render, store, kCh
}

func TestClient(t *testing.T) {
	cl, tts, render, store, kCh := newTestClient()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() { cl.Start(); wg.Done() }()
	time.Sleep(10 * time.Millisecond)
	wantLocalCount := 1

	// 'p' would call tetris.Start(), leave the lobby and render.Local() once.
	kCh <- keyboard.KeyEvent{Rune: 'p'}
	time.Sleep(10 * time.Millisecond)
	if start, _, _, _ := tts.get(); !start {
		t.Errorf("wanted tetris.Start() to be called, got %t", start)
	}
	if cl.state.get() != playing {
		t.Errorf("wanted state to be playing after 'p' key press")
	}
	if got, _ := render.counts(); got != wantLocalCount {
		t.Errorf("wanted render.Local() to be called once, got %d", got)
	}

	// while in game, keys should direct to tetris actions.
	actions := []struct {
		key    keyboard.KeyEvent
		action tetris.Action
	}{
		{key: keyboard.KeyEvent{Rune: 's'}, action: tetris.MoveDown},
		{key: keyboard.KeyEvent{Key: keyboard.KeyArrowDown}, action: tetris.MoveDown},
		{key: keyboard.KeyEvent{Rune: 'a'}, action: tetris.MoveLeft},
		{key: keyboard.KeyEvent{Key: keyboard.KeyArrowLeft}, action: tetris.MoveLeft},
		{key: keyboard.KeyEvent{Rune: 'd'}, action: tetris.MoveRight},
		{key: keyboard.KeyEvent{Key: keyboard.KeyArrowRight}, action: tetris.MoveRight},
		{key: keyboard.KeyEvent{Rune: 'w'}, action: tetris.Rotate},
		{key: keyboard.KeyEvent{Rune: 'e'}, action: tetris.Rotate},
		{key: keyboard.KeyEvent{Key: keyboard.KeyArrowUp}, action: tetris.Rotate},
	}
	for _, a := range actions {
		wantLocalCount++
		t.Run(fmt.Sprintf("key %v", a.key), func(t *testing.T) {
			kCh <- a.key
			time.Sleep(10 * time.Millisecond)
			if got, _ := render.counts(); got != wantLocalCount {
				t.Errorf("wanted render.Local() to be %d times, got %d", wantLocalCount, got)
			}
			if _, _, action, _ := tts.get(); action != a.action {
				t.Errorf("wanted action %v, got %v", a.action, action)
			}
		})
	}

	// the last frame saves the score, renders the game over lobby and
	// returns to the lobby.
	wantLocalCount++
	tts.sendGameOver(40)
	time.Sleep(10 * time.Millisecond)
	got, lobbies := render.counts()
	if got != wantLocalCount {
		t.Errorf("wanted render.Local() to be %d times, got %d", wantLocalCount, got)
	}
	if len(lobbies) != 2 || lobbies[1] != terminal.GameOver {
		t.Errorf("wanted the welcome and game over lobbies, got %q", lobbies)
	}
	if saved := store.get(); len(saved) != 1 || saved[0] != 40 {
		t.Errorf("wanted score 40 to be saved, got %v", saved)
	}
	if _, _, _, best := tts.get(); best != 40 {
		t.Errorf("wanted the high score to be carried to the next game, got %d", best)
	}
	if cl.state.get() != lobby {
		t.Errorf("wanted state to be lobby")
	}

	// 'q' should quit the game back in the lobby"
	kCh <- keyboard.KeyEvent{Rune: 'q'}
	wgDone := make(chan struct{})
	go func() { wg.Wait(); close(wgDone) }()
	select {
	case <-time.After(time.Second):
		t.Errorf("timeout waiting for quit")
	case <-wgDone:
	}
}

func TestClientEscapeReturnsToLobby(t *testing.T) {
	cl, tts, render, _, kCh := newTestClient()
	go cl.Start()
	time.Sleep(10 * time.Millisecond)

	kCh <- keyboard.KeyEvent{Rune: 'p'}
	time.Sleep(10 * time.Millisecond)
	kCh <- keyboard.KeyEvent{Key: keyboard.KeyEsc}
	time.Sleep(10 * time.Millisecond)

	if _, stop, _, _ := tts.get(); !stop {
		t.Errorf("wanted tetris.Stop() to be called")
	}
	if cl.state.get() != lobby {
		t.Errorf("wanted state to be lobby after esc")
	}
	if _, lobbies := render.counts(); len(lobbies) != 2 {
		t.Errorf("wanted the lobby to be drawn again, got %q", lobbies)
	}
	kCh <- keyboard.KeyEvent{Key: keyboard.KeyCtrlC}
}

func TestClientOnline(t *testing.T) {
	cl, tts, _, _, kCh := newTestClient()
	pub := &mockPublisher{}
	cl.dial = func(context.Context) (publisher, error) { return pub, nil }
	go cl.Start()
	time.Sleep(10 * time.Millisecond)

	kCh <- keyboard.KeyEvent{Rune: 'o'}
	time.Sleep(10 * time.Millisecond)
	kCh <- keyboard.KeyEvent{Rune: 'a'}
	time.Sleep(10 * time.Millisecond)
	tts.sendGameOver(10)
	time.Sleep(10 * time.Millisecond)

	frames, closed := pub.get()
	if frames != 3 {
		t.Errorf("wanted 3 frames published, got %d", frames)
	}
	if !closed {
		t.Errorf("wanted the publisher to be closed after the game")
	}
	kCh <- keyboard.KeyEvent{Key: keyboard.KeyCtrlC}
}

func TestClientOnlineDialFails(t *testing.T) {
	cl, tts, render, _, kCh := newTestClient()
	cl.dial = func(context.Context) (publisher, error) { return nil, fmt.Errorf("refused") }
	go cl.Start()
	time.Sleep(10 * time.Millisecond)

	kCh <- keyboard.KeyEvent{Rune: 'o'}
	time.Sleep(10 * time.Millisecond)

	if start, _, _, _ := tts.get(); start {
		t.Errorf("wanted no game to start")
	}
	_, lobbies := render.counts()
	if len(lobbies) != 3 || lobbies[1] != terminal.Connecting || lobbies[2] != terminal.Failed {
		t.Errorf("wanted connecting then failed, got %q", lobbies)
	}
	kCh <- keyboard.KeyEvent{Key: keyboard.KeyCtrlC}
}
