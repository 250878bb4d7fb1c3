package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/willmacd/dql-tetris/agent"
	"github.com/willmacd/dql-tetris/client"
	"github.com/willmacd/dql-tetris/config"
	"github.com/willmacd/dql-tetris/score"
	"github.com/willmacd/dql-tetris/tetris"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config")
	episodes := flag.Int("episodes", 0, "number of episodes to train, overrides the config")
	publish := flag.Bool("publish", false, "publish the games to the relay server")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *episodes > 0 {
		cfg.Agent.Episodes = *episodes
	}
	logger, closeLog, err := cfg.Logger()
	if err != nil {
		log.Fatalf("failed to open log: %v", err)
	}
	defer closeLog() //nolint: errcheck

	if err := run(cfg, logger, *publish); err != nil {
		logger.Error("training stopped", slog.String("error", err.Error()))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, publish bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := agent.New(agent.Options{
		Hidden:  cfg.Agent.Hidden,
		Epsilon: cfg.Agent.Epsilon,
		Alpha:   cfg.Agent.Alpha,
		Gamma:   cfg.Agent.Gamma,
		Memory:  cfg.Agent.Memory,
		Seed:    cfg.Agent.Seed,
	})
	switch err := a.Load(cfg.Agent.ModelPath); {
	case err == nil:
		logger.Info("model loaded", slog.String("path", cfg.Agent.ModelPath))
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("training a new model", slog.String("path", cfg.Agent.ModelPath))
	default:
		return err
	}

	c := tetris.NewCatalog()
	spawner := tetris.NewSpawner(c)
	if cfg.Agent.Seed != 0 {
		spawner = tetris.NewSeededSpawner(c, cfg.Agent.Seed)
	}
	opts := agent.TrainerOptions{
		Catalog:      c,
		Spawner:      spawner,
		Rule:         cfg.Rule(),
		Rewards:      agent.DefaultRewards(),
		GravityEvery: cfg.Agent.GravityEvery,
		MaxSteps:     cfg.Agent.MaxSteps,
		Batch:        cfg.Agent.Batch,
		Epochs:       cfg.Agent.Epochs,
		Store:        score.NewFile(cfg.HighScorePath),
		Logger:       logger,
	}
	if publish {
		remote, err := client.Dial(ctx, cfg.Client.ServerAddr, "dql-agent", logger)
		if err != nil {
			return err
		}
		defer func() {
			if _, err := remote.Close(); err != nil {
				logger.Error("unable to close relay stream", slog.String("error", err.Error()))
			}
		}()
		opts.Publisher = remote
	}

	tr := agent.NewTrainer(a, opts)
	results, err := tr.Run(ctx, cfg.Agent.Episodes)
	for _, r := range results {
		fmt.Printf("episode %3d  steps %6d  score %5d  lines %4d  reward %12.1f  loss %.4f\n",
			r.Episode, r.Steps, r.Score, r.Lines, r.Reward, r.Loss)
	}
	if len(results) > 0 {
		if serr := a.Save(cfg.Agent.ModelPath); serr != nil {
			return serr
		}
		logger.Info("model saved", slog.String("path", cfg.Agent.ModelPath), slog.Int("best", tr.Best()))
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
