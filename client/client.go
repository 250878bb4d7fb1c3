package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/eiannone/keyboard"

	"github.com/willmacd/dql-tetris/score"
	"github.com/willmacd/dql-tetris/terminal"
	"github.com/willmacd/dql-tetris/tetris"
)

type clientState int

const (
	lobby clientState = iota
	playing
)

type state struct {
	current clientState
	mu      sync.Mutex
}

func (s *state) get() clientState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *state) set(c clientState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = c
}

type tetrisGame interface {
	Start()
	GetUpdate() <-chan tetris.Snapshot
	Action(tetris.Action)
	Stop()
	SetHighScore(int)
}

type renderer interface {
	Local(tetris.Snapshot)
	Lobby(string)
	Reset()
}

type publisher interface {
	Publish(tetris.Snapshot) error
	Close() (string, error)
}

type Client struct {
	tetris  tetrisGame
	render  renderer
	store   score.Store
	options *Options
	logger  *slog.Logger
	kbCh    <-chan keyboard.KeyEvent
	state   *state
	dial    func(context.Context) (publisher, error)
}

type Options struct {
	Address string
	Name    string
	Game    *tetris.GameOptions
}

// New opens the keyboard and reads the high score. A missing or broken score
// file is returned as is.
func New(l *slog.Logger, store score.Store, o *Options) (*Client, error) {
	best, err := store.Load()
	if err != nil {
		return nil, err
	}
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	gameOpts := o.Game
	if gameOpts == nil {
		gameOpts = &tetris.GameOptions{}
	}
	if gameOpts.Logger == nil {
		gameOpts.Logger = l
	}
	r, err := terminal.New(&terminal.Options{Logger: l, Name: o.Name, Catalog: gameOpts.Catalog})
	if err != nil {
		return nil, fmt.Errorf("failed to load renderer: %w", err)
	}
	kb, err := keyboard.GetKeys(20)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyboard: %w", err)
	}
	g := tetris.NewGame(gameOpts)
	g.SetHighScore(best)
	return &Client{
		tetris:  g,
		render:  r,
		store:   store,
		options: o,
		logger:  l,
		kbCh:    kb,
		state:   &state{current: lobby},
		dial: func(ctx context.Context) (publisher, error) {
			return Dial(ctx, o.Address, o.Name, l)
		},
	}, nil
}

// Start shows the lobby and blocks until the player quits.
func (c *Client) Start() {
	c.render.Lobby(terminal.Welcome)
	var wg sync.WaitGroup
	wg.Add(1)
	go c.listenKB(&wg)
	wg.Wait()
}

// SetHighScore raises the best score shown in the next games, e.g. when
// another process writes the score file.
func (c *Client) SetHighScore(best int) {
	c.tetris.SetHighScore(best)
}

// Close releases the keyboard.
func (c *Client) Close() error {
	return keyboard.Close()
}

func (c *Client) listenKB(wg *sync.WaitGroup) {
	defer wg.Done()
	ctx, cancel := context.WithCancel(context.Background())
	defer func() { cancel() }()
	for {
		event, ok := <-c.kbCh
		if !ok {
			c.logger.Error("Keyboard events channel closed unexpectedly")
			return
		}
		if event.Err != nil {
			c.logger.Error("keysEvents error", slog.String("error", event.Err.Error()))
			return
		}
		if event.Key == keyboard.KeyCtrlC {
			c.tetris.Stop()
			return
		}
		switch c.state.get() {
		case lobby:
			var pub publisher
			switch event.Rune {
			case 'p':
			case 'o':
				c.render.Lobby(terminal.Connecting)
				var err error
				if pub, err = c.dial(context.Background()); err != nil {
					c.logger.Error("unable to reach the relay", slog.String("error", err.Error()))
					c.render.Lobby(terminal.Failed)
					continue
				}
			case 'q':
				return
			default:
				continue
			}
			cancel()
			ctx, cancel = context.WithCancel(context.Background())
			c.state.set(playing)
			c.render.Reset()
			go c.listenTetris(ctx, pub)
			c.tetris.Start()
		case playing:
			var a tetris.Action
			switch {
			case event.Key == keyboard.KeyArrowDown || event.Rune == 's':
				a = tetris.MoveDown
			case event.Key == keyboard.KeyArrowLeft || event.Rune == 'a':
				a = tetris.MoveLeft
			case event.Key == keyboard.KeyArrowRight || event.Rune == 'd':
				a = tetris.MoveRight
			case event.Key == keyboard.KeyArrowUp || event.Rune == 'w' || event.Rune == 'e':
				a = tetris.Rotate
			case event.Key == keyboard.KeyEsc:
				cancel()
				c.tetris.Stop()
				c.state.set(lobby)
				c.render.Lobby(terminal.Welcome)
				continue
			default:
				continue
			}
			c.tetris.Action(a)
		}
	}
}

// listenTetris draws every update of the running game and, when pub is set,
// forwards it to the relay. It returns when the game is over or ctx is done.
func (c *Client) listenTetris(ctx context.Context, pub publisher) {
	defer func() {
		if pub == nil {
			return
		}
		id, err := pub.Close()
		if err != nil {
			c.logger.Error("unable to close relay stream", slog.String("error", err.Error()))
			return
		}
		c.logger.Info("game published", slog.String("session", id))
	}()
	for {
		select {
		case u := <-c.tetris.GetUpdate():
			if pub != nil {
				if err := pub.Publish(u); err != nil {
					c.logger.Error("unable to publish frame", slog.String("error", err.Error()))
					pub.Close() //nolint: errcheck
					pub = nil
				}
			}
			if u.GameOver {
				c.gameOver(u)
				return
			}
			c.render.Local(u)
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) gameOver(u tetris.Snapshot) {
	if err := c.store.Save(u.Score); err != nil {
		c.logger.Error("unable to save high score", slog.String("error", err.Error()))
	}
	c.tetris.SetHighScore(u.HighScore)
	c.state.set(lobby)
	c.render.Local(u)
}
