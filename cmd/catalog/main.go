package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"marketplace-catalog/internal/catalog"
	"marketplace-catalog/internal/catalog/feed"
	"marketplace-catalog/internal/catalog/filter"
	cataloghttp "marketplace-catalog/internal/catalog/http"
	"marketplace-catalog/internal/catalog/messaging"
	"marketplace-catalog/internal/catalog/repository"
	"marketplace-catalog/internal/catalog/service"
	"marketplace-catalog/internal/config"
	"marketplace-catalog/internal/wishlist"

	_ "marketplace-catalog/docs"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	metricPagesFetched      = "catalog_pages_fetched_total"
	metricPageFetchFailures = "catalog_page_fetch_failures_total"
	metricStalePagesDropped = "catalog_stale_pages_dropped_total"
	metricUnknownCurrency   = "catalog_unknown_currency_total"
	metricWishlistDegraded  = "wishlist_count_degraded_total"
	migrateSourcePrefix     = "file://"
	postgresDriverName      = "postgres"
)

// @title        Catalog API
// @version      1.0
// @description  Marketplace catalog feed with display-currency pricing and wishlist counts.
// @host         localhost:8080
// @BasePath     /
func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	os.Exit(run(logger))
}

func run(logger *slog.Logger) int {
	cfg, err := config.LoadCatalog()
	if err != nil {
		logger.Error("load config", "error", err)
		return 1
	}

	rates, err := config.LoadCurrency(cfg.CurrencyConfigPath)
	if err != nil {
		logger.Error("load currency table", "error", err)
		return 1
	}

	if err := runMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		logger.Error("run migrations", "error", err)
		return 1
	}

	db, err := sql.Open(postgresDriverName, cfg.DatabaseURL)
	if err != nil {
		logger.Error("open database", "error", err)
		return 1
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), cfg.DBPingTimeout)
	defer pingCancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Error("ping database", "error", err)
		return 1
	}

	rabbitConn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Error("connect rabbitmq", "error", err)
		return 1
	}
	defer rabbitConn.Close()

	publisher, err := messaging.NewSessionPublisher(rabbitConn, catalog.SessionEventsQueue)
	if err != nil {
		logger.Error("init publisher", "error", err)
		return 1
	}
	defer publisher.Close()

	store, closeStore, err := newWishlistStore(cfg, logger)
	if err != nil {
		logger.Error("init wishlist store", "error", err)
		return 1
	}
	defer closeStore()

	feedMetrics := feed.Metrics{
		Fetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPagesFetched,
			Help: "Total number of catalog pages appended to a feed",
		}),
		Failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPageFetchFailures,
			Help: "Total number of catalog page fetches that failed",
		}),
		Stale: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricStalePagesDropped,
			Help: "Total number of page responses dropped because the feed moved on",
		}),
	}
	unknownCurrency := prometheus.NewCounter(prometheus.CounterOpts{
		Name: metricUnknownCurrency,
		Help: "Total number of conversions that fell back to the base currency",
	})
	wishlistDegraded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricWishlistDegraded,
		Help: "Total number of wishlist counts reported as zero because a lookup did not succeed",
	}, []string{"reason"})
	prometheus.MustRegister(feedMetrics.Fetched, feedMetrics.Failed, feedMetrics.Stale, unknownCurrency, wishlistDegraded)

	repo := repository.NewPostgres(db)
	feeds := feed.NewRegistry(repo, feedMetrics, cfg.FeedIdleTimeout, logger)
	aggregator := wishlist.NewAggregator(repo, store, logger, wishlistDegraded, wishlist.Options{
		FreshFor:     cfg.WishlistFreshFor,
		RetainFor:    cfg.WishlistRetainFor,
		RefreshEvery: cfg.WishlistRefreshInterval,
	})
	svc := service.New(filter.NewComposer(cfg.PublicPageSize), feeds, rates, aggregator, publisher, logger, unknownCurrency)

	consumer, err := wishlist.NewConsumer(rabbitConn, catalog.WishlistEventsQueue, aggregator, logger)
	if err != nil {
		logger.Error("init wishlist consumer", "error", err)
		return 1
	}
	defer consumer.Close()

	handler := cataloghttp.NewHandler(svc)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cataloghttp.RequestIDMiddleware())
	router.Use(cataloghttp.AccessLogMiddleware(logger))
	cataloghttp.RegisterRoutes(router, handler, repo, cataloghttp.ViewerMiddleware(repo, svc))

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var workers sync.WaitGroup
	workers.Add(2)
	go func() {
		defer workers.Done()
		aggregator.Run(ctx)
	}()
	go func() {
		defer workers.Done()
		feeds.Run(ctx, cfg.FeedIdleTimeout/2)
	}()

	errCh := make(chan error, 2)
	go func() {
		if err := consumer.Listen(ctx); err != nil {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("catalog service started", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("catalog service failed", "error", err)
		exitCode = 1
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return 1
	}
	workers.Wait()

	logger.Info("catalog service stopped")
	return exitCode
}

func newWishlistStore(cfg config.Catalog, logger *slog.Logger) (wishlist.Store, func(), error) {
	if cfg.RedisURL == "" {
		logger.Info("wishlist cache in memory")
		return wishlist.NewMemoryStore(cfg.WishlistRetainFor), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), cfg.DBPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	logger.Info("wishlist cache in redis", "addr", opts.Addr)
	return wishlist.NewRedisStore(client, cfg.WishlistRetainFor), func() { _ = client.Close() }, nil
}

func runMigrations(databaseURL, migrationsPath string) error {
	m, err := migrate.New(migrateSourcePrefix+migrationsPath, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}
