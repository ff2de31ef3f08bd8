package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"vaultgallery/internal/catalog"
	"vaultgallery/internal/config"
	"vaultgallery/internal/daemon"
	"vaultgallery/internal/logging"
	"vaultgallery/internal/mediastore"
)

func run(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := catalog.Open(cfg)
	if err != nil {
		logger.Error("open catalog", logging.Error(err))
		return err
	}

	media, err := mediastore.New(ctx, cfg)
	if err != nil {
		store.Close()
		logger.Error("open media storage", logging.Error(err))
		return err
	}

	d, err := daemon.New(cfg, daemon.Dependencies{Store: store, Media: media}, logger)
	if err != nil {
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	logger.Info("vaultd ready",
		logging.String("address", d.Address()),
		logging.String("storage_backend", cfg.Storage.Backend),
		logging.String("database", cfg.DatabasePath()),
	)

	<-ctx.Done()
	logger.Info("vaultd shutting down")
	d.Stop()
	return nil
}
