package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	cfg, err := Load(discardLogger())
	require.NoError(t, err)

	assert.Equal(t, "pos-ledger", cfg.App.Name)
	assert.Equal(t, []string{"POS1", "POS2", "POS3"}, cfg.POS.Terminals)
	assert.Equal(t, "TODAS", cfg.POS.AggregateTerminal)
	assert.True(t, cfg.POS.TaxRate.Equal(decimal.NewFromInt(21)))
	assert.Equal(t, 8*time.Hour, cfg.POS.CartTTL)
	assert.Equal(t, 5*time.Second, cfg.Database.LockTimeout)
	assert.Equal(t, "@every 1h", cfg.Ingest.ReconcileCron)
	assert.Equal(t, map[string]int{"critical": 6, "default": 3, "low": 1}, cfg.Asynq.Queues)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("POS_TAX_RATE", "10.5")
	t.Setenv("POS_TERMINALS", "CAJA1, CAJA2")
	t.Setenv("DB_LOCK_TIMEOUT", "2s")
	t.Setenv("INGEST_ON_STARTUP", "true")
	t.Setenv("INGEST_CATALOG_PATH", "/data/catalogo.xlsx")

	cfg, err := Load(discardLogger())
	require.NoError(t, err)

	assert.True(t, cfg.POS.TaxRate.Equal(decimal.RequireFromString("10.5")))
	assert.Equal(t, []string{"CAJA1", "CAJA2"}, cfg.POS.Terminals)
	assert.Equal(t, 2*time.Second, cfg.Database.LockTimeout)
	assert.True(t, cfg.Ingest.OnStartup)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		t.Setenv("APP_ENV", "test")
		cfg, err := Load(discardLogger())
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults_are_valid", mutate: func(*Config) {}},
		{
			name:    "missing_database_host",
			mutate:  func(c *Config) { c.Database.Host = "" },
			wantErr: true,
		},
		{
			name:    "aggregate_terminal_collision",
			mutate:  func(c *Config) { c.POS.Terminals = []string{"POS1", "TODAS"} },
			wantErr: true,
		},
		{
			name:    "tax_rate_above_hundred",
			mutate:  func(c *Config) { c.POS.TaxRate = decimal.NewFromInt(150) },
			wantErr: true,
		},
		{
			name:    "lower_case_terminal",
			mutate:  func(c *Config) { c.POS.Terminals = []string{"pos1"} },
			wantErr: true,
		},
		{
			name:    "duplicate_terminal",
			mutate:  func(c *Config) { c.POS.Terminals = []string{"POS1", "POS1"} },
			wantErr: true,
		},
		{
			name:    "catalog_path_wrong_extension",
			mutate:  func(c *Config) { c.Ingest.CatalogPath = "data/catalogo.csv" },
			wantErr: true,
		},
		{
			name: "startup_ingest_without_sources",
			mutate: func(c *Config) {
				c.Ingest.OnStartup = true
				c.Ingest.CatalogPath, c.Ingest.SalesPath, c.Ingest.PriceListPath = "", "", ""
			},
			wantErr: true,
		},
		{
			name: "startup_ingest_with_sources",
			mutate: func(c *Config) {
				c.Ingest.OnStartup = true
				c.Ingest.CatalogPath = "data/Catalogo.XLSX"
				c.Ingest.PriceListPath = "data/lista.pdf"
			},
		},
		{
			name:    "negative_tax_rate",
			mutate:  func(c *Config) { c.POS.TaxRate = decimal.NewFromInt(-1) },
			wantErr: true,
		},
		{
			name: "production_with_dev_secret",
			mutate: func(c *Config) {
				c.App.Environment = "production"
				c.Database.SSLMode = "require"
				c.Security.SecureHeaders = true
				c.Security.Credentials = "admin:hash:admin:TODAS"
				c.AWS.UseLocalStorage = false
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_MissingRequiredWrapsSentinel(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	cfg, err := Load(discardLogger())
	require.NoError(t, err)

	cfg.Server.Port = ""
	err = cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingRequiredConfig))
}

type fakeSecretsAPI struct {
	value string
	calls int
	err   error
}

func (f *fakeSecretsAPI) GetSecretValue(_ context.Context, _ *secretsmanager.GetSecretValueInput,
	_ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(f.value)}, nil
}

func TestAWSSecretsManager_CachesAndApplies(t *testing.T) {
	api := &fakeSecretsAPI{value: `{"DB_PASSWORD":"from-aws","JWT_SECRET":"a-very-long-secret-from-secrets-manager"}`}
	sm := newAWSSecretsManager(api, "pos-ledger/prod", discardLogger())
	ctx := context.Background()

	v, err := sm.GetSecret(ctx, SecretDBPassword)
	require.NoError(t, err)
	assert.Equal(t, "from-aws", v)

	_, err = sm.GetSecret(ctx, SecretJWT)
	require.NoError(t, err)
	assert.Equal(t, 1, api.calls)

	cfg := &Config{}
	cfg.Security.Credentials = "keep-me"
	require.NoError(t, ApplySecrets(ctx, cfg, sm))
	assert.Equal(t, "from-aws", cfg.Database.Password)
	assert.Equal(t, "a-very-long-secret-from-secrets-manager", cfg.Security.JWTSecret)
	assert.Equal(t, "keep-me", cfg.Security.Credentials)
}

func TestAWSSecretsManager_Error(t *testing.T) {
	sm := newAWSSecretsManager(&fakeSecretsAPI{err: errors.New("access denied")}, "x", discardLogger())
	_, err := sm.GetSecret(context.Background(), SecretJWT)
	assert.Error(t, err)
}

func TestEnvSecretsManager(t *testing.T) {
	t.Setenv(SecretJWT, "env-secret")
	sm := NewEnvSecretsManager()

	secrets, err := sm.GetSecrets(context.Background(), []string{SecretJWT, SecretCredentials})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{SecretJWT: "env-secret"}, secrets)

	_, err = sm.GetSecret(context.Background(), "POS_LEDGER_UNSET_KEY")
	assert.Error(t, err)
}
