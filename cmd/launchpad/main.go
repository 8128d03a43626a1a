// ====================================
// File: cmd/launchpad/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/app"
	"github.com/rovshanmuradov/launchpad/internal/config"
	"github.com/rovshanmuradov/launchpad/internal/utils/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file (yaml/json/toml)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		LogFile:     cfg.Log.File,
		MaxSize:     cfg.Log.MaxSize,
		MaxAge:      cfg.Log.MaxAge,
		MaxBackups:  cfg.Log.MaxBackups,
		Compress:    cfg.Log.Compress,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log.Info("Starting launchpad", zap.String("config", *configPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := app.NewRunner(cfg, log.WithComponent("launchpad"))
	if err := runner.Initialize(ctx); err != nil {
		log.Error("Failed to initialize launchpad", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}

	if err := runner.Run(ctx); err != nil {
		log.Error("Launchpad execution error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}
