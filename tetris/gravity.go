package tetris

import "time"

// Gravity is the fall speed schedule. The interval between gravity steps
// starts at Initial and shrinks by Step every Every of play until it is no
// longer above Minimum.
type Gravity struct {
	Initial time.Duration
	Minimum time.Duration
	Step    time.Duration
	Every   time.Duration

	interval time.Duration
	elapsed  time.Duration
}

func DefaultGravity() *Gravity {
	return NewGravity(350*time.Millisecond, 150*time.Millisecond, 5*time.Millisecond, 5*time.Second)
}

func NewGravity(initial, minimum, step, every time.Duration) *Gravity {
	return &Gravity{
		Initial:  initial,
		Minimum:  minimum,
		Step:     step,
		Every:    every,
		interval: initial,
	}
}

func (g *Gravity) Interval() time.Duration { return g.interval }

// Advance accounts for d of play and reports whether the interval changed.
func (g *Gravity) Advance(d time.Duration) bool {
	if g.Every <= 0 {
		return false
	}
	g.elapsed += d
	if g.elapsed <= g.Every {
		return false
	}
	g.elapsed = 0
	if g.interval <= g.Minimum {
		return false
	}
	g.interval -= g.Step
	return true
}

func (g *Gravity) Reset() {
	g.interval = g.Initial
	g.elapsed = 0
}
