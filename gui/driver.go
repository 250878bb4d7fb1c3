package gui

import (
	"io"
	"log/slog"
	"time"

	"github.com/willmacd/dql-tetris/score"
	"github.com/willmacd/dql-tetris/tetris"
)

// Driver advances a session from frame time and key presses. It has no
// window of its own so the window loop stays a thin layer over it.
type Driver struct {
	catalog *tetris.Catalog
	options tetris.SessionOptions
	gravity *tetris.Gravity
	store   score.Store
	logger  *slog.Logger

	session *tetris.Session
	elapsed time.Duration
	saved   bool
}

type Options struct {
	Catalog *tetris.Catalog
	Session tetris.SessionOptions
	Gravity *tetris.Gravity
	// Store is optional; the final score of every game is saved to it.
	Store  score.Store
	Logger *slog.Logger
}

func NewDriver(o *Options) *Driver {
	if o == nil {
		o = &Options{}
	}
	d := &Driver{
		catalog: o.Catalog,
		options: o.Session,
		gravity: o.Gravity,
		store:   o.Store,
		logger:  o.Logger,
	}
	if d.catalog == nil {
		d.catalog = tetris.NewCatalog()
	}
	if d.gravity == nil {
		d.gravity = tetris.DefaultGravity()
	}
	if d.logger == nil {
		d.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d.Restart()
	return d
}

// Restart begins a new game carrying the best score over.
func (d *Driver) Restart() {
	if d.session != nil {
		d.options.HighScore = max(d.options.HighScore, d.session.HighScore())
	}
	d.session = tetris.NewSession(d.catalog, &d.options)
	d.gravity.Reset()
	d.elapsed = 0
	d.saved = false
}

func (d *Driver) Over() bool { return d.session.Over() }

func (d *Driver) Catalog() *tetris.Catalog { return d.catalog }

// Tick applies the actions in order, then lets dt of play time pass. The
// piece falls one row each time a full gravity interval has elapsed.
func (d *Driver) Tick(dt time.Duration, actions []tetris.Action) tetris.Snapshot {
	for _, a := range actions {
		if d.session.Over() {
			break
		}
		d.session.Step(a, false)
	}
	if !d.session.Over() {
		d.gravity.Advance(dt)
		d.elapsed += dt
		for d.elapsed >= d.gravity.Interval() && !d.session.Over() {
			d.elapsed -= d.gravity.Interval()
			out := d.session.Step(tetris.None, true)
			if out.Locked {
				d.logger.Debug("piece locked",
					slog.Int("cleared", out.Cleared),
					slog.Int("score", d.session.Score()))
			}
		}
	}
	if d.session.Over() && !d.saved {
		d.saved = true
		d.save()
	}
	return d.session.Snapshot()
}

func (d *Driver) save() {
	if d.store == nil {
		return
	}
	if err := d.store.Save(d.session.Score()); err != nil {
		d.logger.Error("unable to save high score", slog.String("error", err.Error()))
	}
}
