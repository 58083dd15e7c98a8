// test/helpers/helpers.go
package helpers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/pos-ledger/internal/adapters/db"
	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/pkg/config"
	"github.com/ammerola/pos-ledger/test/mocks"
)

// TestDB represents a test database instance
type TestDB struct {
	PgxPool  *pgxpool.Pool
	Database *db.Database
	Resource *dockertest.Resource
	Pool     *dockertest.Pool
	Config   *db.Config
}

// TestRedis represents a test Redis instance
type TestRedis struct {
	Client *redis.Client
	Server *miniredis.Miniredis
}

// TestLogger returns a test logger
func TestLogger() *slog.Logger {
	if testing.Verbose() {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// SetupTestDB starts a PostgreSQL container and applies the embedded migrations.
func SetupTestDB(t testing.TB) *TestDB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err, "Could not connect to Docker")

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=test",
			"POSTGRES_PASSWORD=test",
			"POSTGRES_DB=test_pos_ledger",
			"listen_addresses = '*'",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err, "Could not start PostgreSQL container")

	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("Could not purge resource: %s", err)
		}
	})

	dbConfig := &db.Config{
		Host:               "localhost",
		Port:               resource.GetPort("5432/tcp"),
		User:               "test",
		Password:           "test",
		Database:           "test_pos_ledger",
		SSLMode:            "disable",
		MaxConnections:     20,
		MinConnections:     1,
		MaxConnLifetime:    time.Hour,
		MaxConnIdleTime:    time.Minute * 30,
		HealthCheckPeriod:  time.Minute,
		ConnectTimeout:     time.Second * 10,
		LockTimeout:        time.Second * 10,
		EnableQueryLogging: testing.Verbose(),
	}

	var database *db.Database
	err = pool.Retry(func() error {
		ctx := context.Background()
		var err error
		database, err = db.NewDatabase(ctx, dbConfig, TestLogger())
		if err != nil {
			return err
		}
		return database.Ping(ctx)
	})
	require.NoError(t, err, "Could not connect to PostgreSQL")

	err = db.RunMigrationsWithRetry(context.Background(), &db.MigrationConfig{
		DatabaseURL: dbConfig.URL(),
	}, TestLogger(), 3)
	require.NoError(t, err, "Could not run migrations")

	t.Cleanup(database.Close)

	return &TestDB{
		PgxPool:  database.Pool(),
		Database: database,
		Resource: resource,
		Pool:     pool,
		Config:   dbConfig,
	}
}

// SetupTestRedis creates a mock Redis instance for testing
func SetupTestRedis(t *testing.T) *TestRedis {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		client.Close()
	})

	return &TestRedis{
		Client: client,
		Server: mr,
	}
}

// SetupMockDB creates a mock database for unit testing
func SetupMockDB(t *testing.T) (sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create mock DB")

	t.Cleanup(func() {
		db.Close()
	})

	return mock, db
}

// PassthroughTransactor returns a Transactor mock that runs every callback
// with a nil transaction. Repository mocks match the querier with gomock.Any.
func PassthroughTransactor(ctrl *gomock.Controller) *mocks.MockTransactor {
	tx := mocks.NewMockTransactor(ctrl)
	tx.EXPECT().
		Transaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, fn func(pgx.Tx) error) error {
			return fn(nil)
		}).
		AnyTimes()
	return tx
}

// LoadTestConfig returns a test configuration
func LoadTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "test-api",
			Environment: "test",
			Version:     "test",
			LogLevel:    "debug",
			LogFormat:   "text",
			Debug:       true,
		},
		Database: config.DatabaseConfig{
			Host:               "localhost",
			Port:               "5432",
			User:               "test",
			Password:           "test",
			Name:               "test_pos_ledger",
			SSLMode:            "disable",
			MaxConnections:     10,
			MinConnections:     2,
			LockTimeout:        5 * time.Second,
			EnableQueryLogging: true,
		},
		Redis: config.RedisConfig{
			Host:     "localhost",
			Port:     "6379",
			TTL:      time.Hour,
			PoolSize: 10,
		},
		Ingest: config.IngestConfig{
			ReconcileCron:     "@every 1h",
			UploadMaxSizeMB:   10,
			ProcessingTimeout: time.Minute,
			UploadRetention:   24 * time.Hour,
		},
		POS: config.POSConfig{
			TaxRate:           domain.DefaultTaxRate,
			CurrencySymbol:    "$",
			Terminals:         domain.DefaultTerminals,
			AggregateTerminal: domain.TerminalAll,
			CartTTL:           8 * time.Hour,
		},
		Security: config.SecurityConfig{
			JWTSecret:         "test-secret-test-secret-test-secret",
			JWTExpiration:     time.Hour,
			RateLimitRequests: 100,
			RateLimitDuration: time.Minute,
			AllowedOrigins:    []string{"*"},
			RequestIDHeader:   "X-Request-ID",
		},
		Server: config.ServerConfig{
			Host:         "localhost",
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
	}
}

// CreateTestProduct creates an available catalog product.
func CreateTestProduct(overrides ...func(*domain.Product)) *domain.Product {
	p := &domain.Product{
		ID:          1,
		Name:        "Yerba Mate 1kg",
		Category:    "Almacén",
		Subcategory: "Infusiones",
		SalePrice:   decimal.NewFromFloat(12.50),
		Supplier:    domain.SupplierCatalog,
		Status:      domain.StatusAvailable,
		CreatedAt:   time.Now(),
	}
	for _, override := range overrides {
		override(p)
	}
	return p
}

// CreateTestSale creates one ledger row on POS1.
func CreateTestSale(overrides ...func(*domain.Sale)) *domain.Sale {
	tod := time.Date(0, 1, 1, 10, 30, 0, 0, time.UTC)
	s := &domain.Sale{
		SaleNumber:  1,
		Date:        time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Time:        &tod,
		ClientID:    domain.FormatClientID(domain.TerminalPOS1, 1),
		ProductName: "Yerba Mate 1kg",
		Quantity:    2,
		UnitPrice:   decimal.NewFromFloat(12.50),
		LineTotal:   decimal.NewFromInt(25),
		Seller:      domain.SellerForTerminal(domain.TerminalPOS1),
		Terminal:    domain.TerminalPOS1,
	}
	for _, override := range overrides {
		override(s)
	}
	return s
}

// CreateTestCart creates a cart holding one line per price, quantity one.
func CreateTestCart(terminal string, prices ...float64) *domain.Cart {
	cart := &domain.Cart{Terminal: terminal}
	for i, price := range prices {
		p := CreateTestProduct(func(p *domain.Product) {
			p.Name = fmt.Sprintf("Product %d", i+1)
			p.SalePrice = decimal.NewFromFloat(price)
		})
		item, _ := domain.NewCartItem(p, 1, time.Now())
		cart.Add(item)
	}
	return cart
}

// AssertEventuallyWithTimeout asserts that a condition is met within a timeout
func AssertEventuallyWithTimeout(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Errorf("Condition not met within %v: %s", timeout, msg)
}

// TruncateAllTables empties every table and resets identities.
func TruncateAllTables(t testing.TB, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), "TRUNCATE TABLE sales, counters, products RESTART IDENTITY CASCADE")
	require.NoError(t, err, "Failed to truncate tables")
}

// SeedCounter writes a counter row directly.
func SeedCounter(t testing.TB, pool *pgxpool.Pool, c domain.Counter) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		INSERT INTO counters (terminal, last_client_seq, last_sale_number, total_sale_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (terminal) DO UPDATE
		SET last_client_seq = EXCLUDED.last_client_seq,
		    last_sale_number = EXCLUDED.last_sale_number,
		    total_sale_count = EXCLUDED.total_sale_count`,
		c.Terminal, c.LastClientSeq, c.LastSaleNumber, c.TotalSaleCount)
	require.NoError(t, err, "Failed to seed counter")
}

// CreateTempFile creates a temporary file for testing
func CreateTempFile(t *testing.T, content []byte, extension string) string {
	t.Helper()

	file, err := os.CreateTemp("", fmt.Sprintf("test-*%s", extension))
	require.NoError(t, err, "Failed to create temp file")

	_, err = file.Write(content)
	require.NoError(t, err, "Failed to write to temp file")
	file.Close()

	t.Cleanup(func() {
		os.Remove(file.Name())
	})

	return file.Name()
}
