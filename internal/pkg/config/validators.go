// internal/pkg/config/validators.go
package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BasicValidator performs basic configuration validation
type BasicValidator struct{}

// Validate performs basic validation
func (v *BasicValidator) Validate(cfg *Config) error {
	if err := validateRequiredFields(cfg); err != nil {
		return err
	}

	if cfg.Database.MaxConnections < cfg.Database.MinConnections {
		return fmt.Errorf("database max_connections must be >= min_connections")
	}
	if cfg.Redis.PoolSize <= 0 {
		return fmt.Errorf("redis pool_size must be positive")
	}
	if cfg.Security.RateLimitRequests <= 0 {
		return fmt.Errorf("rate_limit_requests must be positive")
	}

	return nil
}

// terminalNameRe limits terminal ids to what fits in a client id.
var terminalNameRe = regexp.MustCompile(`^[A-Z0-9_]{1,20}$`)

var maxTaxRate = decimal.NewFromInt(100)

// POSValidator checks the terminal set and checkout settings.
type POSValidator struct{}

func (v *POSValidator) Validate(cfg *Config) error {
	pos := cfg.POS
	if pos.TaxRate.IsNegative() || pos.TaxRate.GreaterThan(maxTaxRate) {
		return fmt.Errorf("tax rate must be between 0 and 100, got %s", pos.TaxRate)
	}
	if pos.CartTTL <= 0 {
		return fmt.Errorf("cart TTL must be positive")
	}
	if len(pos.Terminals) == 0 {
		return fmt.Errorf("%w: POS_TERMINALS", ErrMissingRequiredConfig)
	}
	if !terminalNameRe.MatchString(pos.AggregateTerminal) {
		return fmt.Errorf("invalid aggregate terminal %q", pos.AggregateTerminal)
	}

	seen := make(map[string]struct{}, len(pos.Terminals))
	for _, t := range pos.Terminals {
		if !terminalNameRe.MatchString(t) {
			return fmt.Errorf("invalid terminal %q: use upper-case letters, digits or _", t)
		}
		if t == pos.AggregateTerminal {
			return fmt.Errorf("terminal %s collides with the aggregate terminal", t)
		}
		if _, dup := seen[t]; dup {
			return fmt.Errorf("terminal %s listed twice", t)
		}
		seen[t] = struct{}{}
	}
	return nil
}

// IngestValidator checks the spreadsheet sources and job schedule.
type IngestValidator struct{}

func (v *IngestValidator) Validate(cfg *Config) error {
	in := cfg.Ingest
	sources := []struct {
		env, path, ext string
	}{
		{"INGEST_CATALOG_PATH", in.CatalogPath, ".xlsx"},
		{"INGEST_SALES_PATH", in.SalesPath, ".xlsx"},
		{"INGEST_PRICELIST_PATH", in.PriceListPath, ".pdf"},
	}

	configured := 0
	for _, src := range sources {
		if src.path == "" {
			continue
		}
		configured++
		if !strings.EqualFold(filepath.Ext(src.path), src.ext) {
			return fmt.Errorf("%s must point to a %s file", src.env, src.ext)
		}
	}
	if in.OnStartup && configured == 0 {
		return fmt.Errorf("%w: INGEST_ON_STARTUP needs at least one source path", ErrMissingRequiredConfig)
	}

	if in.UploadMaxSizeMB <= 0 {
		return fmt.Errorf("upload size limit must be positive")
	}
	if in.ReconcileCron == "" || in.CleanupCron == "" {
		return fmt.Errorf("%w: INGEST_RECONCILE_CRON and INGEST_CLEANUP_CRON", ErrMissingRequiredConfig)
	}
	return nil
}

// ProductionValidator performs strict validation for production environments
type ProductionValidator struct{}

// Validate performs production-specific validation
func (v *ProductionValidator) Validate(cfg *Config) error {
	if strings.Contains(cfg.Database.Password, "MISSING_") || cfg.Database.Password == "" {
		return fmt.Errorf("%w: database password", ErrMissingRequiredConfig)
	}
	if strings.Contains(cfg.Security.JWTSecret, "MISSING_") {
		return fmt.Errorf("%w: JWT secret", ErrMissingRequiredConfig)
	}
	if cfg.Security.Credentials == "" {
		return fmt.Errorf("%w: POS_CREDENTIALS", ErrMissingRequiredConfig)
	}

	if cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("database SSL must be enabled in production")
	}
	if !cfg.Security.SecureHeaders {
		return fmt.Errorf("secure headers must be enabled in production")
	}
	if len(cfg.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("allowed origins must be configured in production")
	}
	if cfg.Security.JWTSecret == "development-secret-change-in-production" {
		return fmt.Errorf("default JWT secret cannot be used in production")
	}
	if cfg.AWS.UseLocalStorage {
		return fmt.Errorf("local upload storage cannot be used in production")
	}

	if cfg.Server.TLSEnabled {
		if cfg.Server.TLSCertFile == "" || cfg.Server.TLSKeyFile == "" {
			return fmt.Errorf("TLS cert and key files must be provided when TLS is enabled")
		}
	}

	return nil
}

// SecurityValidator validates security-related configuration
type SecurityValidator struct{}

// Validate performs security validation
func (v *SecurityValidator) Validate(cfg *Config) error {
	if len(cfg.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if cfg.Security.JWTExpiration <= 0 || cfg.Security.JWTExpiration > 24*time.Hour {
		return fmt.Errorf("JWT expiration must be between 0 and 24h")
	}
	for _, origin := range cfg.Security.AllowedOrigins {
		if origin == "*" && cfg.IsProduction() {
			return fmt.Errorf("wildcard origin (*) not allowed in production")
		}
	}
	return nil
}

// validateRequiredFields uses reflection to check required struct tags
func validateRequiredFields(cfg any) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	return validateStruct(v, "")
}

func validateStruct(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)
		if !fieldType.IsExported() {
			continue
		}
		fieldName := fieldType.Name
		if prefix != "" {
			fieldName = prefix + "." + fieldName
		}

		if fieldType.Tag.Get("required") == "true" && isZeroValue(field) {
			return fmt.Errorf("%w: %s", ErrMissingRequiredConfig, fieldName)
		}

		// only descend into this package's section structs
		if field.Kind() == reflect.Struct && fieldType.Type.PkgPath() == t.PkgPath() {
			if err := validateStruct(field, fieldName); err != nil {
				return err
			}
		}
	}

	return nil
}

func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == "" || strings.HasPrefix(v.String(), "MISSING_")
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.IsNil() || v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}
