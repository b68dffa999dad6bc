// Package app wires configuration, storage and the storefront managers.
package app

import (
	"context"
	"fmt"

	"bookself/internal/cart"
	"bookself/internal/catalog"
	"bookself/internal/checkout"
	"bookself/internal/collection"
	"bookself/internal/config"
	"bookself/internal/db"
	"bookself/internal/order"
	"bookself/internal/session"
	"bookself/internal/storage"
	"bookself/internal/wishlist"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// App is one storefront context: a browser tab in the original product, a
// process here. Contexts sharing a backend see each other's changes.
type App struct {
	Origin   string
	Catalog  *catalog.Store
	Backend  *storage.Backend
	Cart     *cart.Manager
	Orders   *order.Manager
	Wishlist *wishlist.Manager
	Session  *session.Demo
	Checkout *checkout.Service

	logger *zap.Logger
}

// New opens the configured backend and builds the managers on top of it.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	backend, err := OpenBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return Assemble(cat, backend, logger, cfg.StrictOrder), nil
}

// Assemble builds an App over an already open backend.
func Assemble(cat *catalog.Store, backend *storage.Backend, logger *zap.Logger, strict bool) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	origin := uuid.NewString()
	collOpts := []collection.Option{collection.WithOrigin(origin)}

	orderOpts := []order.Option{order.WithCollectionOptions(collOpts...)}
	if strict {
		orderOpts = append(orderOpts, order.WithPolicy(order.Strict{}))
	}

	a := &App{
		Origin:   origin,
		Catalog:  cat,
		Backend:  backend,
		Cart:     cart.NewManager(cat, backend, logger, collOpts...),
		Orders:   order.NewManager(cat, backend, logger, orderOpts...),
		Wishlist: wishlist.NewManager(cat, backend, logger, collOpts...),
		Session:  session.NewDemo(),
		logger:   logger,
	}
	a.Checkout = checkout.NewService(a.Session, a.Cart, a.Orders, cat, logger)
	return a
}

// Close releases the backend.
func (a *App) Close() error {
	return a.Backend.Close()
}

func loadCatalog(cfg config.Config) (*catalog.Store, error) {
	if cfg.CatalogFile == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.LoadFile(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", cfg.CatalogFile, err)
	}
	return cat, nil
}

// OpenBackend connects the storage and broadcast named by cfg.Backend.
func OpenBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (*storage.Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Backend {
	case config.BackendMemory:
		return storage.NewMemoryBackend(storage.WithMemoryLogger(logger)), nil

	case config.BackendFile, "":
		store, err := storage.NewFile(cfg.DataDir, cfg.Namespace)
		if err != nil {
			return nil, err
		}
		// other processes see the files, not the broadcasts
		bus := storage.NewMemory(storage.WithMemoryLogger(logger))
		logger.Debug("using file backend", zap.String("dir", store.Dir()))
		return storage.NewBackend(store, bus, bus.Close, store.Close), nil

	case config.BackendRedis:
		r, err := storage.DialRedis(ctx, cfg.RedisURL,
			storage.WithRedisPrefix(cfg.Namespace),
			storage.WithRedisLogger(logger))
		if err != nil {
			return nil, err
		}
		logger.Info("using redis backend", zap.String("prefix", cfg.Namespace))
		return storage.NewRedisBackend(r), nil

	case config.BackendMySQL:
		gdb, err := db.Open(cfg.MySQL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
		}
		if err := storage.EnsureSchema(gdb); err != nil {
			_ = db.Close(gdb)
			return nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
		store := storage.NewSQL(gdb, cfg.Namespace)
		closeDB := func() error { return db.Close(gdb) }

		if cfg.RedisURL == "" {
			logger.Warn("mysql backend without REDIS_URL: changes are broadcast in this process only")
			bus := storage.NewMemory(storage.WithMemoryLogger(logger))
			return storage.NewBackend(store, bus, bus.Close, closeDB), nil
		}
		r, err := storage.DialRedis(ctx, cfg.RedisURL,
			storage.WithRedisPrefix(cfg.Namespace),
			storage.WithRedisLogger(logger))
		if err != nil {
			_ = db.Close(gdb)
			return nil, err
		}
		logger.Info("using mysql backend with redis broadcast",
			zap.String("host", cfg.MySQL.Host),
			zap.String("database", cfg.MySQL.Database))
		return storage.NewBackend(store, r, r.Close, closeDB), nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
