package main

import (
	"context"
	"fmt"
	"log"

	"github.com/iliyamo/seatly/internal/config"
	"github.com/iliyamo/seatly/internal/database"
	"github.com/iliyamo/seatly/internal/handler"
	"github.com/iliyamo/seatly/internal/kvstore"
	"github.com/iliyamo/seatly/internal/memstore"
	"github.com/iliyamo/seatly/internal/repository"
	"github.com/iliyamo/seatly/internal/store"
)

// openStore builds the backend named by STORE_BACKEND together with the
// health checks it contributes.
func openStore(ctx context.Context, cfg config.Config) (store.Store, []handler.HealthCheck, error) {
	switch cfg.StoreBackend {
	case store.BackendMemory:
		log.Printf("store: in-memory, reservations are lost on restart")
		return memstore.New(), nil, nil
	case store.BackendBadger:
		s, err := kvstore.Open(cfg.BadgerDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open badger at %s: %w", cfg.BadgerDir, err)
		}
		return s, nil, nil
	case store.BackendMySQL:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		checks := []handler.HealthCheck{{Name: "mysql", Ping: db.PingContext}}
		return repository.NewStore(db), checks, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.StoreBackend)
}
