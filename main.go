package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/slighter12/godot-agent-bridge/config"
	"github.com/slighter12/godot-agent-bridge/logger"
	"github.com/slighter12/godot-agent-bridge/server"
)

func main() {
	configPath, err := config.ResolveConfigPath()
	if err != nil {
		log.Fatalf("Failed to resolve config path: %+v", err)
	}
	if err := config.EnsureDefaultConfig(configPath); err != nil {
		log.Fatalf("Failed to create default config: %+v", err)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %+v", err)
	}

	if err := logger.Init(logger.GetLevelFromString(cfg.Logging.Level), logger.Format(cfg.Logging.Format), cfg.Logging.Path); err != nil {
		log.Fatalf("Failed to initialize logger: %+v", err)
	}

	// Pick up log level changes without a restart.
	stopWatch, err := config.Watch(configPath, func(updated *config.Config) {
		logger.Default().SetLevel(logger.GetLevelFromString(updated.Logging.Level))
		logger.Info("config reloaded", "log_level", updated.Logging.Level)
	})
	if err != nil {
		logger.Warn("config watcher unavailable", "error", err)
	} else {
		defer stopWatch()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg)
	if err := srv.Start(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
