package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiwari-pos/floor/internal/catalog"
	"github.com/kiwari-pos/floor/internal/config"
	"github.com/kiwari-pos/floor/internal/events"
	"github.com/kiwari-pos/floor/internal/ledger"
	"github.com/kiwari-pos/floor/internal/metrics"
	"github.com/kiwari-pos/floor/internal/router"
	"github.com/kiwari-pos/floor/internal/store"
	"github.com/kiwari-pos/floor/internal/ws"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	menu, tables, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	orderStore, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	hub := ws.NewHub()
	opts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithObserver(metrics.Observer{}),
		ledger.WithObserver(ws.NewLedgerBridge(hub)),
	}

	var publisher *events.Publisher
	if cfg.RabbitMQURL != "" {
		conn, ch, err := events.Dial(cfg.RabbitMQURL)
		if err != nil {
			return err
		}
		defer conn.Close()
		defer ch.Close()
		publisher = events.NewPublisher(ch, 0, logger)
		opts = append(opts, ledger.WithObserver(publisher))
		logger.Info("kitchen ticket publishing enabled", "exchange", events.Exchange)
	}

	l := ledger.New(menu, tables, orderStore, opts...)
	if err := l.Load(ctx); err != nil {
		return fmt.Errorf("load orders: %w", err)
	}

	deps := router.Deps{Ledger: l, Menu: menu, Tables: tables, Hub: hub}
	if p, ok := orderStore.(router.Pinger); ok {
		deps.Store = p
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// The publisher outlives the HTTP server so tickets printed by in-flight
	// requests are still flushed.
	pubCtx, stopPublisher := context.WithCancel(context.Background())
	defer stopPublisher()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	if publisher != nil {
		g.Go(func() error { return publisher.Run(pubCtx) })
	}
	g.Go(func() error {
		logger.Info("starting server", "port", cfg.Port, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		stopPublisher()
		return err
	})
	return g.Wait()
}

func loadCatalog(cfg *config.Config) (*catalog.Menu, *catalog.Tables, error) {
	if cfg.CatalogFile == "" {
		slog.Info("no catalog file configured, using demo catalog")
		menu, tables := catalog.Demo()
		return menu, tables, nil
	}
	menu, tables, err := catalog.LoadFile(cfg.CatalogFile)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("catalog loaded", "file", cfg.CatalogFile, "menu_items", len(menu.List()), "tables", len(tables.List()))
	return menu, tables, nil
}

// openStore returns the configured order store and a function releasing its
// connections.
func openStore(ctx context.Context, cfg *config.Config) (ledger.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		slog.Warn("using in-memory order store; orders are lost on restart")
		return store.NewMemory(), func() {}, nil

	case config.DriverPostgres:
		pool, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pg, pool.Close, nil

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		rs := store.NewRedis(client)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rs.Ping(pingCtx); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return rs, func() { client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
