package agent

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/willmacd/dql-tetris/score"
	"github.com/willmacd/dql-tetris/tetris"
)

// Publisher receives every frame the trainer plays, e.g. to let spectators
// watch through the relay.
type Publisher interface {
	Publish(tetris.Snapshot) error
}

type TrainerOptions struct {
	Catalog *tetris.Catalog
	// Spawner defaults to a clock seeded one.
	Spawner *tetris.Spawner
	Rule    tetris.ClearRule
	Rewards Rewards
	// GravityEvery is how many actions pass between two gravity steps.
	GravityEvery int
	// MaxSteps caps an episode. Zero means no cap.
	MaxSteps int
	Batch    int
	Epochs   int
	Store    score.Store
	// Publisher is optional.
	Publisher Publisher
	Logger    *slog.Logger
}

type Trainer struct {
	agent *Agent
	opts  TrainerOptions
	best  int
}

type EpisodeResult struct {
	Episode int
	Steps   int
	Score   int
	Lines   int
	Reward  float64
	Loss    float64
}

func NewTrainer(a *Agent, o TrainerOptions) *Trainer {
	if o.Catalog == nil {
		o.Catalog = tetris.NewCatalog()
	}
	if o.Spawner == nil {
		o.Spawner = tetris.NewSpawner(o.Catalog)
	}
	if o.GravityEvery < 1 {
		o.GravityEvery = 1
	}
	if o.Batch < 1 {
		o.Batch = 1
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Trainer{agent: a, opts: o}
}

// Run plays and learns from episodes one after another. The high score is
// read from the store first, so a missing score file stops training before
// anything is played.
func (t *Trainer) Run(ctx context.Context, episodes int) ([]EpisodeResult, error) {
	if t.opts.Store != nil {
		best, err := t.opts.Store.Load()
		if err != nil {
			return nil, err
		}
		t.best = best
	}
	results := make([]EpisodeResult, 0, episodes)
	for i := range episodes {
		res, err := t.Episode(ctx, i+1)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		t.opts.Logger.Info("episode finished",
			slog.Int("episode", res.Episode),
			slog.Int("steps", res.Steps),
			slog.Int("score", res.Score),
			slog.Int("lines", res.Lines),
			slog.Float64("reward", res.Reward),
			slog.Float64("loss", res.Loss))
	}
	return results, nil
}

// Episode plays a single game to its end (or MaxSteps), then trains once on
// the replay memory.
func (t *Trainer) Episode(ctx context.Context, n int) (EpisodeResult, error) {
	s := tetris.NewSession(t.opts.Catalog, &tetris.SessionOptions{
		Spawner:   t.opts.Spawner,
		Rule:      t.opts.Rule,
		HighScore: t.best,
	})
	res := EpisodeResult{Episode: n}
	state := Observe(s.Snapshot())

	for !s.Over() && (t.opts.MaxSteps == 0 || res.Steps < t.opts.MaxSteps) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Steps++
		action := t.agent.Act(state)
		out := s.Step(tetris.Actions[action], res.Steps%t.opts.GravityEvery == 0)

		reward := t.opts.Rewards.Reward(out.Cleared, out.GameOver)
		res.Reward += reward
		snap := s.Snapshot()
		next := state
		if !out.GameOver {
			next = Observe(snap)
		}
		t.agent.Remember(Transition{
			State:    state,
			Action:   action,
			Reward:   reward,
			Next:     next,
			Terminal: out.GameOver,
		})
		state = next

		if out.Cleared > 0 && t.opts.Store != nil {
			if err := t.opts.Store.Save(s.Score()); err != nil {
				return res, fmt.Errorf("failed to save high score: %w", err)
			}
		}
		if t.opts.Publisher != nil {
			if err := t.opts.Publisher.Publish(snap); err != nil {
				t.opts.Logger.Error("failed to publish frame", slog.String("error", err.Error()))
				t.opts.Publisher = nil
			}
		}
	}

	res.Score = s.Score()
	res.Lines = s.Lines()
	t.best = max(t.best, s.HighScore())
	res.Loss = t.agent.Train(t.opts.Batch, t.opts.Epochs)
	return res, nil
}

// Best is the highest score seen so far, stored or played.
func (t *Trainer) Best() int { return t.best }
