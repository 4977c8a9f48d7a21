package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	carthandler "adega/internal/cart/handler"
	"adega/internal/catalog"
	"adega/internal/checkout"
	checkouthandler "adega/internal/checkout/handler"
	"adega/internal/checkout/message"
	"adega/internal/platform/config"
	"adega/internal/platform/httpserver"
	"adega/internal/platform/logger"
	"adega/internal/platform/metrics"
	"adega/internal/platform/postgres"
	"adega/internal/platform/redis"
	"adega/internal/shipping"
	"adega/internal/storage/kv"
	"adega/internal/tab"
	httptransport "adega/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

var saoPaulo = time.FixedZone("BRT", -3*60*60)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	health := map[string]httptransport.HealthCheck{}

	sessions, closeSessions, err := sessionAreas(ctx, cfg, log, health)
	if err != nil {
		return err
	}
	defer closeSessions()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	legacy, closeLegacy, err := legacyAreas(ctx, cfg, db, log, health)
	if err != nil {
		return err
	}
	defer closeLegacy()

	products, err := catalog.LoadFile(cfg.CatalogFile)
	if err != nil {
		return err
	}

	pricer := shipping.NewPricer(shipping.DefaultConfig)
	opener := tab.NewOpener(tab.Config{
		Sessions:   sessions,
		Legacy:     legacy,
		Catalog:    products,
		Pricer:     pricer,
		Formatter:  message.NewFormatter(cfg.Dispatch.BaseURL, cfg.Dispatch.Destination, pricer.Config().DeliveryETA, saoPaulo),
		Dispatcher: checkout.NewLinkDispatcher(log),
		Logger:     log,
	})

	m := metrics.New()
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:       log,
		Metrics:      m,
		CookieSecure: cfg.CookieSecure,
		Handlers: []httptransport.Registrar{
			carthandler.New(opener, pricer, log),
			checkouthandler.New(opener, m, log),
		},
		Health: health,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting adega", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if db != nil && cfg.Storage.LegacyRetention > 0 && cfg.Storage.PurgeInterval > 0 {
		g.Go(func() error {
			purgeLegacy(gctx, db, cfg.Storage, log)
			return nil
		})
	}
	if cfg.Storage.PurgeInterval > 0 {
		for name, areas := range map[string]kv.Areas{"session": sessions, "legacy": legacy} {
			mem, ok := areas.(*kv.MemoryAreas)
			if !ok {
				continue
			}
			g.Go(func() error {
				reclaimIdle(gctx, name, mem, cfg.Storage.PurgeInterval, log)
				return nil
			})
		}
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func sessionAreas(ctx context.Context, cfg config.Server, log *slog.Logger, health map[string]httptransport.HealthCheck) (kv.Areas, func(), error) {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Warn("REDIS_URL not set, session storage kept in memory")
		return kv.NewMemoryAreas(cfg.Storage.SessionQuotaBytes, kv.WithIdleTTL(cfg.Storage.SessionTTL)), func() {}, nil
	}
	health["redis"] = client.Health
	return kv.NewRedisAreas(client.Client, cfg.Storage.SessionTTL), func() {
		if err := client.Close(); err != nil {
			log.Warn("failed to close redis", "error", err)
		}
	}, nil
}

func legacyAreas(ctx context.Context, cfg config.Server, db *sql.DB, log *slog.Logger, health map[string]httptransport.HealthCheck) (kv.Areas, func(), error) {
	if db == nil {
		log.Warn("DATABASE_URL not set, legacy storage kept in memory")
		return kv.NewMemoryAreas(cfg.Storage.SessionQuotaBytes, kv.WithIdleTTL(cfg.Storage.LegacyRetention)), func() {}, nil
	}
	if err := kv.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	health["postgres"] = db.PingContext
	return kv.NewPostgresAreas(db), closer(db, log), nil
}

func closer(db *sql.DB, log *slog.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			log.Warn("failed to close postgres", "error", err)
		}
	}
}

// purgeLegacy removes abandoned legacy entries until ctx is done.
func purgeLegacy(ctx context.Context, db *sql.DB, cfg config.StorageConfig, log *slog.Logger) {
	ticker := time.NewTicker(cfg.PurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := kv.PurgeStale(ctx, db, time.Now().Add(-cfg.LegacyRetention))
			if err != nil {
				log.Warn("legacy purge failed", "error", err)
				continue
			}
			if n > 0 {
				log.Info("purged stale legacy entries", "count", n)
			}
		}
	}
}

// reclaimIdle drops in-memory areas nobody touched within their idle TTL.
func reclaimIdle(ctx context.Context, name string, areas *kv.MemoryAreas, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := areas.ReclaimIdle(now); n > 0 {
				log.Info("reclaimed idle storage areas", "storage", name, "count", n, "live", areas.Len())
			}
		}
	}
}
