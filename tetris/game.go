package tetris

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

type Ticker interface {
	C() <-chan time.Time
	Reset(time.Duration)
	Stop()
}

type wrappedTicker struct {
	ticker *time.Ticker
}

func newWrappedTicker(d time.Duration) *wrappedTicker {
	t := &wrappedTicker{ticker: time.NewTicker(d)}
	t.ticker.Stop()
	return t
}

func (t *wrappedTicker) C() <-chan time.Time   { return t.ticker.C }
func (t *wrappedTicker) Stop()                 { t.ticker.Stop() }
func (t *wrappedTicker) Reset(d time.Duration) { t.ticker.Reset(d) }

// Game drives a Session in real time: gravity comes from the ticker and
// actions from Action(). Only the listen goroutine touches the session once
// the game has started; everybody else reads snapshots from GetUpdate().
type Game struct {
	actionCh chan Action
	updateCh chan Snapshot
	doneCh   chan bool
	running  atomic.Bool

	exitMu sync.Mutex
	exited chan struct{} // closed when the current listen returns

	catalog *Catalog
	mu      sync.Mutex // guards options
	options SessionOptions
	session *Session
	ticker  Ticker
	gravity *Gravity
	logger  *slog.Logger
}

type GameOptions struct {
	Catalog *Catalog
	Session SessionOptions
	// Gravity and Ticker default to the classic schedule and a real ticker.
	Gravity *Gravity
	Ticker  Ticker
	Logger  *slog.Logger
}

func NewGame(o *GameOptions) *Game {
	if o == nil {
		o = &GameOptions{}
	}
	g := &Game{
		actionCh: make(chan Action, 8),
		updateCh: make(chan Snapshot),
		doneCh:   make(chan bool, 1),
		catalog:  o.Catalog,
		options:  o.Session,
		gravity:  o.Gravity,
		ticker:   o.Ticker,
		logger:   o.Logger,
	}
	if g.catalog == nil {
		g.catalog = NewCatalog()
	}
	if g.gravity == nil {
		g.gravity = DefaultGravity()
	}
	if g.ticker == nil {
		g.ticker = newWrappedTicker(g.gravity.Interval())
	}
	if g.logger == nil {
		g.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return g
}

// Start begins a new session. It does nothing while a session is running.
func (g *Game) Start() {
	if !g.running.CompareAndSwap(false, true) {
		return
	}
	select {
	case <-g.doneCh: // a Stop() that arrived after the last game ended
	default:
	}
	exited := make(chan struct{})
	g.exitMu.Lock()
	g.exited = exited
	g.exitMu.Unlock()
	for len(g.actionCh) > 0 {
		<-g.actionCh
	}
	g.mu.Lock()
	opts := g.options
	g.mu.Unlock()
	g.session = NewSession(g.catalog, &opts)
	g.gravity.Reset()
	go g.listen(exited)
}

// Stop ends the running session and returns once its loop has exited, so a
// Start right after it always begins a new one.
func (g *Game) Stop() {
	if !g.running.Load() {
		return
	}
	g.exitMu.Lock()
	exited := g.exited
	g.exitMu.Unlock()
	select {
	case g.doneCh <- true:
	default:
	}
	if exited != nil {
		<-exited
	}
}

// Action queues a player action. Actions that arrive faster than the game can
// apply them are dropped.
func (g *Game) Action(a Action) {
	select {
	case g.actionCh <- a:
	default:
		g.logger.Debug("action dropped", slog.String("action", string(a)))
	}
}

func (g *Game) GetUpdate() <-chan Snapshot { return g.updateCh }

// SetHighScore raises the best score carried by the next sessions.
func (g *Game) SetHighScore(best int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.options.HighScore = max(g.options.HighScore, best)
}

func (g *Game) listen(exited chan struct{}) {
	defer func() {
		g.ticker.Stop()
		g.running.Store(false)
		close(exited)
	}()

	g.ticker.Reset(g.gravity.Interval())
	if !g.publish() {
		return
	}
	for {
		var out Outcome
		select {
		case <-g.ticker.C():
			out = g.session.Step(None, true)
			if g.gravity.Advance(g.gravity.Interval()) {
				g.ticker.Reset(g.gravity.Interval())
			}
		case a := <-g.actionCh:
			out = g.session.Step(a, false)
		case <-g.doneCh:
			return
		}
		if out.Locked {
			g.logger.Debug("piece locked",
				slog.Int("cleared", out.Cleared),
				slog.Int("score", g.session.Score()),
				slog.Duration("interval", g.gravity.Interval()))
		}
		if !g.publish() || out.GameOver {
			return
		}
	}
}

func (g *Game) publish() bool {
	select {
	case g.updateCh <- g.session.Snapshot():
		return true
	case <-g.doneCh:
		return false
	}
}
