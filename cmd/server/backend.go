package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Tyrowin/roomchat/internal/config"
	"github.com/Tyrowin/roomchat/internal/domain"
	"github.com/Tyrowin/roomchat/internal/storage/badgerstore"
	"github.com/Tyrowin/roomchat/internal/storage/memory"
	"github.com/Tyrowin/roomchat/internal/storage/postgres"
)

type backend interface {
	domain.Backend
	io.Closer
}

// openBackend returns the store selected by cfg.StoreDriver.
func openBackend(ctx context.Context, cfg config.Config, log *slog.Logger) (backend, error) {
	log = log.With("driver", cfg.StoreDriver)
	reset := cfg.ResetReceiptsOnRejoin

	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Warn("using the in-memory store; data is lost on restart")
		return memory.New(memory.WithReceiptReset(reset)), nil

	case config.DriverBadger:
		store, err := badgerstore.Open(cfg.BadgerPath, log, badgerstore.WithReceiptReset(reset))
		if err != nil {
			return nil, fmt.Errorf("badger opening failed: %w", err)
		}
		log.Info("store opened", "path", cfg.BadgerPath)
		return store, nil

	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.DatabaseDSN, log, postgres.WithReceiptReset(reset))
		if err != nil {
			return nil, fmt.Errorf("postgres opening failed: %w", err)
		}
		log.Info("store opened and migrated")
		return store, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
