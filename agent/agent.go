// Package agent implements a deep Q-learning player that drives a
// tetris.Session through the same four actions a human has.
package agent

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/willmacd/dql-tetris/tetris"
)

// ObservationSize is one input per board cell.
const ObservationSize = tetris.Width * tetris.Height

// Observe flattens a snapshot into the network input: 1 where the cell is
// taken by a locked block or the falling piece, 0 elsewhere, row by row.
func Observe(s tetris.Snapshot) []float64 {
	obs := make([]float64, 0, ObservationSize)
	for _, row := range s.Grid {
		for _, c := range row {
			if c.IsEmpty() {
				obs = append(obs, 0)
			} else {
				obs = append(obs, 1)
			}
		}
	}
	return obs
}

type Rewards struct {
	Passive  float64 // every step that clears nothing
	PerLine  float64 // per row when fewer than four rows clear at once
	Tetris   float64 // four rows at once
	GameOver float64
}

func DefaultRewards() Rewards {
	return Rewards{Passive: -1, PerLine: 100, Tetris: 800, GameOver: -100000}
}

func (r Rewards) Reward(cleared int, gameOver bool) float64 {
	switch {
	case gameOver:
		return r.GameOver
	case cleared >= 4:
		return r.Tetris
	case cleared > 0:
		return float64(cleared) * r.PerLine
	}
	return r.Passive
}

type Options struct {
	Hidden  []int
	Epsilon float64 // exploration rate
	Alpha   float64 // learning rate
	Gamma   float64 // discount
	Memory  int     // replay capacity
	// Seed makes exploration, sampling and initial weights reproducible.
	// Zero seeds from the clock.
	Seed uint64
}

type Agent struct {
	net     *Network
	replay  *Replay
	epsilon float64
	alpha   float64
	gamma   float64
	rng     *rand.Rand
}

func New(o Options) *Agent {
	seed := o.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	sizes := append([]int{ObservationSize}, o.Hidden...)
	sizes = append(sizes, len(tetris.Actions))
	return &Agent{
		net:     NewNetwork(sizes, rng),
		replay:  NewReplay(max(o.Memory, 1)),
		epsilon: o.Epsilon,
		alpha:   o.Alpha,
		gamma:   o.Gamma,
		rng:     rng,
	}
}

func (a *Agent) Network() *Network { return a.net }
func (a *Agent) Replay() *Replay   { return a.replay }

func (a *Agent) QValues(state []float64) []float64 {
	return a.net.Predict(state)
}

// Greedy returns the index into tetris.Actions with the highest Q value.
func (a *Agent) Greedy(state []float64) int {
	q := a.QValues(state)
	return slices.Index(q, slices.Max(q))
}

// Act explores with probability epsilon and plays greedily otherwise.
func (a *Agent) Act(state []float64) int {
	if a.rng.Float64() < a.epsilon {
		return a.rng.IntN(len(tetris.Actions))
	}
	return a.Greedy(state)
}

func (a *Agent) Remember(t Transition) { a.replay.Add(t) }

// Train fits the network on up to batch transitions drawn uniformly from the
// replay memory and returns the mean loss of the last epoch.
func (a *Agent) Train(batch, epochs int) float64 {
	n := min(batch, a.replay.Len())
	if n == 0 {
		return 0
	}
	sample := make([]Transition, n)
	for i := range sample {
		sample[i] = a.replay.At(a.rng.IntN(a.replay.Len()))
	}
	var loss float64
	for range max(epochs, 1) {
		loss = 0
		for _, t := range sample {
			target := a.QValues(t.State)
			y := t.Reward
			if !t.Terminal {
				y += a.gamma * slices.Max(a.QValues(t.Next))
			}
			target[t.Action] = y
			loss += a.net.Fit(t.State, target, a.alpha)
		}
		loss /= float64(n)
	}
	return loss
}

func (a *Agent) Save(path string) error { return a.net.Save(path) }

// Load replaces the network with the one stored at path. The stored layout
// must match the agent's.
func (a *Agent) Load(path string) error {
	n, err := LoadNetwork(path)
	if err != nil {
		return err
	}
	if !slices.Equal(n.Sizes, a.net.Sizes) {
		return fmt.Errorf("model %s has layout %v, want %v", path, n.Sizes, a.net.Sizes)
	}
	a.net = n
	return nil
}
