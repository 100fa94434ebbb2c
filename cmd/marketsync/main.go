package main

import (
	"context"
	"os/signal"
	"syscall"

	"marketsync/config"
	"marketsync/internal/sync"
	"marketsync/logger"

	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg := config.Load()

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run sync pipeline
	if err := sync.Start(ctx, cfg, log); err != nil {
		log.Fatal("sync pipeline failed", zap.Error(err))
	}
}
