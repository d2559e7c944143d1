package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harunnryd/voxa/pkg/logging"
	"github.com/harunnryd/voxa/pkg/runner"
	"github.com/harunnryd/voxa/pkg/voxa"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := voxa.LoadConfig(*configPath)
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	logger := logging.Init(cfg.LogLevel, cfg.LogFormat)

	engine, err := voxa.NewEngine(voxa.EngineOptions{Config: cfg, Logger: logger})
	if err != nil {
		logger.Error("engine init failed", "error", err)
		os.Exit(1)
	}

	lifecycle := runner.NewLifecycleRunner(engine, runner.Hooks{
		OnStart: engine.Start,
	}, 30*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
