// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/ammerola/pos-ledger/internal/adapters/auth"
	"github.com/ammerola/pos-ledger/internal/adapters/db"
	redis_a "github.com/ammerola/pos-ledger/internal/adapters/redis_adapter"
	"github.com/ammerola/pos-ledger/internal/adapters/storage"
	"github.com/ammerola/pos-ledger/internal/core/ports"
	"github.com/ammerola/pos-ledger/internal/core/services"
	"github.com/ammerola/pos-ledger/internal/pkg/config"
)

// App holds the connections and core services shared by the binaries.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	DB    *db.Database
	Redis *redis.Client
	Cache ports.CacheRepository
	// CacheManager is nil when Redis is not connected.
	CacheManager *redis_a.CacheManager

	Catalog    *services.CatalogService
	Sales      *services.SalesImportService
	Counters   *services.CounterService
	Finalizer  *services.FinalizeService
	Dashboards *services.DashboardService
}

// Options tunes New.
type Options struct {
	// RedisOptional lets New continue without a cache when Redis is down.
	RedisOptional bool
}

// LoadConfig reads the configuration and overlays secrets.
func LoadConfig(ctx context.Context, log *slog.Logger) (*config.Config, error) {
	cfg, err := config.Load(log)
	if err != nil {
		return nil, err
	}

	sm, err := config.NewSecretsManager(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create secrets manager: %w", err)
	}
	if err := config.ApplySecrets(ctx, cfg, sm); err != nil {
		return nil, err
	}
	return cfg, nil
}

// New connects to Postgres and Redis and builds the core services.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Logger: log}

	log.Info("connecting to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Name))

	database, err := db.NewDatabase(ctx, DatabaseConfig(cfg), log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.DB = database

	redisClient, err := NewRedisClient(ctx, cfg)
	switch {
	case err == nil:
		a.Redis = redisClient
		cache := redis_a.NewCache(redisClient, cfg.Redis.TTL, log)
		a.Cache = cache
		a.CacheManager = redis_a.NewCacheManager(cache, log)
	case opts.RedisOptional:
		log.Warn("redis unavailable, continuing without cache", slog.String("error", err.Error()))
	default:
		database.Close()
		return nil, err
	}

	products := db.NewProductRepository(log)
	sales := db.NewSaleRepository(log)
	counters := db.NewCounterRepository(log)
	stats := db.NewStatsRepository(database.SQLDB(), log)
	pool := database.Pool()

	a.Catalog = services.NewCatalogService(database, pool, products, a.Cache, log)
	a.Sales = services.NewSalesImportService(database, pool, sales, a.Cache, log)
	a.Counters = services.NewCounterService(database, pool, counters, sales, cfg.POS.Terminals, log)
	a.Finalizer = services.NewFinalizeService(database, counters, sales, a.Cache, cfg.POS.TaxRate, log)
	a.Dashboards = services.NewDashboardService(pool, stats, counters, a.Cache, cfg.POS.CurrencySymbol, log)

	return a, nil
}

// Close releases every connection.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("failed to close redis", slog.String("error", err.Error()))
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// DashboardTerminals lists every terminal with a dashboard, aggregate last.
func (a *App) DashboardTerminals() []string {
	return append(append([]string{}, a.Config.POS.Terminals...), a.Config.POS.AggregateTerminal)
}

// DatabaseConfig maps the application config onto the pool config.
func DatabaseConfig(cfg *config.Config) *db.Config {
	return &db.Config{
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		User:               cfg.Database.User,
		Password:           cfg.Database.Password,
		Database:           cfg.Database.Name,
		SSLMode:            cfg.Database.SSLMode,
		MaxConnections:     cfg.Database.MaxConnections,
		MinConnections:     cfg.Database.MinConnections,
		MaxConnLifetime:    cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod:  cfg.Database.HealthCheckPeriod,
		ConnectTimeout:     cfg.Database.ConnectTimeout,
		LockTimeout:        cfg.Database.LockTimeout,
		EnableQueryLogging: cfg.Database.EnableQueryLogging,
	}
}

// NewRedisClient connects the cache Redis and pings it.
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddress(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RunMigrations applies the embedded schema.
func RunMigrations(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	log.Info("running database migrations")
	return db.RunMigrationsWithRetry(ctx, &db.MigrationConfig{
		DatabaseURL: cfg.GetDatabaseURL(),
		TableName:   "schema_migrations",
		SchemaName:  "public",
	}, log, 3)
}

// NewFileStorage picks the local directory or the S3 bucket.
func NewFileStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (ports.FileStorage, error) {
	if cfg.AWS.UseLocalStorage {
		return storage.NewLocalStorage(cfg.AWS.LocalStorageDir, log)
	}
	return storage.NewS3Storage(ctx, &storage.S3Config{
		Region:          cfg.AWS.Region,
		Bucket:          cfg.AWS.S3Bucket,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		Endpoint:        cfg.AWS.S3Endpoint,
		UsePathStyle:    cfg.AWS.UsePathStyle,
	}, log)
}

// ErrNoCredentials is returned in production when no credential table is set.
var ErrNoCredentials = errors.New("POS_CREDENTIALS is required in production")

// NewAuth builds the login checker and the session token manager. Outside
// production the built-in accounts are used when no table is configured.
func NewAuth(cfg *config.Config, log *slog.Logger) (*auth.StaticAuthenticator, *auth.JWTManager, error) {
	var (
		creds []auth.Credential
		err   error
	)
	switch {
	case cfg.Security.Credentials != "":
		creds, err = auth.ParseCredentials(cfg.Security.Credentials)
	case cfg.IsProduction():
		err = ErrNoCredentials
	default:
		log.Warn("using development credentials")
		creds, err = auth.DevelopmentCredentials()
	}
	if err != nil {
		return nil, nil, err
	}

	tokens, err := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.JWTExpiration)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create token manager: %w", err)
	}
	return auth.NewStaticAuthenticator(creds, log), tokens, nil
}
