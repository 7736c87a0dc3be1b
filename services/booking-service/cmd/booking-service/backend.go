package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/md-rashed-zaman/vetbook/libs/config"
	"github.com/md-rashed-zaman/vetbook/libs/db"
	"github.com/md-rashed-zaman/vetbook/libs/runtime"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/ledger"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/memstore"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/notify"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/payment"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/slots"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/storage"
)

// backend bundles the stores behind one STORAGE_BACKEND choice.
type backend struct {
	slots         slots.Store
	appointments  ledger.Repository
	payments      payment.Store
	notifications notify.Store
	profiles      directory.Profiles
	pets          directory.Pets
	outbox        outbox.Store
	checks        []runtime.ReadyCheck
	close         func()
}

func openBackend(ctx context.Context, logger *slog.Logger) (*backend, error) {
	switch kind := strings.ToLower(config.String("STORAGE_BACKEND", "postgres")); kind {
	case "postgres":
		return openPostgres(ctx, logger)
	case "memory":
		return openMemory(logger)
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", kind)
	}
}

func openPostgres(ctx context.Context, logger *slog.Logger) (*backend, error) {
	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return nil, err
	}
	maxConns, err := config.Int("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}
	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: int32(maxConns)})
	if err != nil {
		return nil, fmt.Errorf("db connection failed: %w", err)
	}
	if config.Bool("DB_AUTO_MIGRATE", true) {
		if err := storage.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		logger.Info("database schema ensured")
	}

	outboxRepo := outbox.NewRepository(pool)
	repo := storage.NewRepository(pool, outboxRepo)
	return &backend{
		slots:         repo,
		appointments:  repo,
		payments:      repo,
		notifications: repo,
		profiles:      repo,
		pets:          repo,
		outbox:        outboxRepo,
		checks:        []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}},
		close:         pool.Close,
	}, nil
}

func openMemory(logger *slog.Logger) (*backend, error) {
	store := memstore.New()
	if path := config.String("DIRECTORY_SEED_FILE", ""); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open seed file: %w", err)
		}
		defer f.Close()
		if err := store.LoadSeed(f); err != nil {
			return nil, err
		}
		logger.Info("directory seeded", "file", path)
	}
	logger.Warn("using in-memory storage; data is lost on restart")
	return &backend{
		slots:         store,
		appointments:  store,
		payments:      store,
		notifications: store,
		profiles:      store,
		pets:          store,
		outbox:        store,
		close:         func() {},
	}, nil
}
