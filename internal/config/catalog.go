package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultHTTPAddr           = ":8080"
	defaultMigrationsPath     = "migrations/catalog"
	defaultCurrencyConfigPath = "config/currency.yaml"
	defaultShutdownTimeout    = 10 * time.Second

	defaultDBMaxOpenConns    = 25
	defaultDBMaxIdleConns    = 5
	defaultDBConnMaxLifetime = 5 * time.Minute
	defaultDBPingTimeout     = 5 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second

	defaultPublicPageSize          = 12
	defaultWishlistRefreshInterval = 30 * time.Second
	defaultWishlistFreshFor        = 15 * time.Second
	defaultWishlistRetainFor       = 5 * time.Minute
	defaultFeedIdleTimeout         = 30 * time.Minute
)

type Catalog struct {
	DatabaseURL        string
	RabbitMQURL        string
	RedisURL           string
	HTTPAddr           string
	MigrationsPath     string
	CurrencyConfigPath string
	ShutdownTimeout    time.Duration
	DBMaxOpenConns     int
	DBMaxIdleConns     int
	DBConnMaxLifetime  time.Duration
	DBPingTimeout      time.Duration
	ReadHeaderTimeout  time.Duration

	PublicPageSize          int
	WishlistRefreshInterval time.Duration
	WishlistFreshFor        time.Duration
	WishlistRetainFor       time.Duration
	FeedIdleTimeout         time.Duration
}

func LoadCatalog() (Catalog, error) {
	cfg := Catalog{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RabbitMQURL:        getEnv("RABBITMQ_URL", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		HTTPAddr:           getEnv("HTTP_ADDR", defaultHTTPAddr),
		MigrationsPath:     getEnv("MIGRATIONS_PATH", defaultMigrationsPath),
		CurrencyConfigPath: getEnv("CURRENCY_CONFIG_PATH", defaultCurrencyConfigPath),
		ShutdownTimeout:    defaultShutdownTimeout,
		DBMaxOpenConns:     defaultDBMaxOpenConns,
		DBMaxIdleConns:     defaultDBMaxIdleConns,
		DBConnMaxLifetime:  defaultDBConnMaxLifetime,
		DBPingTimeout:      defaultDBPingTimeout,
		ReadHeaderTimeout:  defaultReadHeaderTimeout,
	}

	if cfg.DatabaseURL == "" {
		return Catalog{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RabbitMQURL == "" {
		return Catalog{}, fmt.Errorf("RABBITMQ_URL is required")
	}

	var err error
	if cfg.PublicPageSize, err = getEnvInt("PUBLIC_PAGE_SIZE", defaultPublicPageSize); err != nil {
		return Catalog{}, err
	}
	if cfg.PublicPageSize < 1 {
		return Catalog{}, fmt.Errorf("PUBLIC_PAGE_SIZE must be positive")
	}
	if cfg.WishlistRefreshInterval, err = getEnvDuration("WISHLIST_REFRESH_INTERVAL", defaultWishlistRefreshInterval); err != nil {
		return Catalog{}, err
	}
	if cfg.WishlistFreshFor, err = getEnvDuration("WISHLIST_FRESH_FOR", defaultWishlistFreshFor); err != nil {
		return Catalog{}, err
	}
	if cfg.WishlistRetainFor, err = getEnvDuration("WISHLIST_RETAIN_FOR", defaultWishlistRetainFor); err != nil {
		return Catalog{}, err
	}
	if cfg.FeedIdleTimeout, err = getEnvDuration("FEED_IDLE_TIMEOUT", defaultFeedIdleTimeout); err != nil {
		return Catalog{}, err
	}
	if cfg.WishlistRetainFor < cfg.WishlistFreshFor {
		return Catalog{}, fmt.Errorf("WISHLIST_RETAIN_FOR must not be shorter than WISHLIST_FRESH_FOR")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration", key)
	}
	return d, nil
}
