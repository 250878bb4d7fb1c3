package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"

	"github.com/willmacd/dql-tetris/config"
	"github.com/willmacd/dql-tetris/relay"
	"github.com/willmacd/dql-tetris/render"
	"github.com/willmacd/dql-tetris/server"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, closeLog, err := cfg.Logger()
	if err != nil {
		log.Fatalf("failed to open log: %v", err)
	}
	defer closeLog() //nolint: errcheck

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	defer lis.Close()

	r := server.New(logger, cfg.Server.Retention)
	s := grpc.NewServer()
	relay.RegisterRelayServer(s, r)

	gin.SetMode(gin.ReleaseMode)
	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           server.NewHTTP(r, render.New(nil)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("starting relay", slog.String("addr", cfg.Server.GRPCAddr))
		errCh <- s.Serve(lis)
	}()
	go func() {
		logger.Info("starting http api", slog.String("addr", cfg.Server.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := httpSrv.Shutdown(shutdownCtx); serr != nil {
		logger.Error("unable to stop http api", slog.String("error", serr.Error()))
	}
	s.GracefulStop()
	return err
}
