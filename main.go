package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/willmacd/dql-tetris/client"
	"github.com/willmacd/dql-tetris/config"
	"github.com/willmacd/dql-tetris/gui"
	"github.com/willmacd/dql-tetris/score"
	"github.com/willmacd/dql-tetris/terminal"
	"github.com/willmacd/dql-tetris/tetris"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config")
	window := flag.Bool("gui", false, "play in a window instead of the terminal")
	name := flag.String("name", "", "player name shown to spectators, overrides the config")
	online := flag.String("online", "", "relay server address, overrides the config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *name != "" {
		cfg.Client.Name = *name
	}
	if *online != "" {
		cfg.Client.ServerAddr = *online
	}
	logger, closeLog, err := cfg.Logger()
	if err != nil {
		log.Fatalf("failed to open log: %v", err)
	}
	defer closeLog() //nolint: errcheck

	if err := run(cfg, logger, *window); err != nil {
		logger.Error("game stopped", slog.String("error", err.Error()))
		fmt.Fprintln(os.Stderr, err)
		closeLog() //nolint: errcheck
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, window bool) error {
	store := score.NewFile(cfg.HighScorePath)
	best, err := store.Load()
	if err != nil {
		return err
	}
	c := tetris.NewCatalog()
	session := tetris.SessionOptions{Rule: cfg.Rule(), HighScore: best}

	if window {
		return gui.Run(gui.NewDriver(&gui.Options{
			Catalog: c,
			Session: session,
			Gravity: cfg.NewGravity(),
			Store:   store,
			Logger:  logger,
		}))
	}

	restore, err := terminal.Raw()
	if err != nil {
		return err
	}
	defer func() {
		if err := restore(); err != nil {
			logger.Error("unable to restore terminal", slog.String("error", err.Error()))
		}
	}()

	cl, err := client.New(logger, store, &client.Options{
		Address: cfg.Client.ServerAddr,
		Name:    cfg.Client.Name,
		Game: &tetris.GameOptions{
			Catalog: c,
			Session: session,
			Gravity: cfg.NewGravity(),
			Logger:  logger,
		},
	})
	if err != nil {
		return err
	}
	defer cl.Close() //nolint: errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := store.Watch(ctx, logger, cl.SetHighScore); err != nil {
			logger.Error("unable to watch score file", slog.String("error", err.Error()))
		}
	}()
	cl.Start()
	return nil
}
