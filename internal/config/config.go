package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Record store backends.
const (
	RecordStorePostgres = "postgres"
	RecordStoreSQLite   = "sqlite"
	RecordStoreMemory   = "memory"
)

// Object store backends.
const (
	ObjectStoreLocal  = "local"
	ObjectStoreGCS    = "gcs"
	ObjectStoreMemory = "memory"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	AuthMode       string        `mapstructure:"AUTH_MODE"`
	AuthIssuer     string        `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL    string        `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience   string        `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey string        `mapstructure:"AUTH_SIGNING_KEY"`
	DevUserID      string        `mapstructure:"DEV_USER_ID"`
	DevUserEmail   string        `mapstructure:"DEV_USER_EMAIL"`
	DevRoles       []string      `mapstructure:"DEV_ROLES"`
	RecordStore    string        `mapstructure:"RECORD_STORE"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	SQLitePath     string        `mapstructure:"SQLITE_PATH"`
	ObjectStore    string        `mapstructure:"OBJECT_STORE"`
	ObjectStoreDir string        `mapstructure:"OBJECT_STORE_DIR"`
	ObjectURLKey   string        `mapstructure:"OBJECT_URL_SECRET"`
	PublicBaseURL  string        `mapstructure:"PUBLIC_BASE_URL"`
	GCSBucket      string        `mapstructure:"GCS_BUCKET"`
	GCSProjectID   string        `mapstructure:"GCS_PROJECT_ID"`
	GCSCredentials string        `mapstructure:"GCS_CREDENTIALS_FILE"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	MaxUploadSize  string        `mapstructure:"MAX_UPLOAD_SIZE"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
}

var envKeys = []string{
	"PORT", "ENV", "AUTH_MODE", "AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE",
	"AUTH_SIGNING_KEY", "DEV_USER_ID", "DEV_USER_EMAIL", "DEV_ROLES",
	"RECORD_STORE", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "SQLITE_PATH",
	"OBJECT_STORE", "OBJECT_STORE_DIR", "OBJECT_URL_SECRET", "PUBLIC_BASE_URL",
	"GCS_BUCKET", "GCS_PROJECT_ID", "GCS_CREDENTIALS_FILE",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "MAX_UPLOAD_SIZE",
	"REQUEST_TIMEOUT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("AUTH_MODE", "") // auto-detect: "" -> inferred from ENV
	v.SetDefault("DEV_USER_ID", "00000000-0000-0000-0000-000000000001")
	v.SetDefault("DEV_USER_EMAIL", "dev@oralvis.local")
	v.SetDefault("DEV_ROLES", "technician")
	v.SetDefault("RECORD_STORE", RecordStorePostgres)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("SQLITE_PATH", "oralvis.db")
	v.SetDefault("OBJECT_STORE", ObjectStoreLocal)
	v.SetDefault("OBJECT_STORE_DIR", "./data/scans")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8000")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("MAX_UPLOAD_SIZE", "100M")
	v.SetDefault("REQUEST_TIMEOUT", "30s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.DevRoles = splitList(cfg.DevRoles, v.GetString("DEV_ROLES"))
	cfg.RecordStore = strings.ToLower(strings.TrimSpace(cfg.RecordStore))
	cfg.ObjectStore = strings.ToLower(strings.TrimSpace(cfg.ObjectStore))

	if cfg.RecordStore == RecordStorePostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when RECORD_STORE is %q", RecordStorePostgres)
	}

	return cfg, nil
}

// splitList normalises comma-separated env values into trimmed elements.
func splitList(current []string, raw string) []string {
	if raw == "" {
		return current
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ResolvedAuthMode returns the effective auth mode. If AUTH_MODE is explicitly
// set, it is returned. Otherwise ENV=development resolves to "development"
// and everything else to "external".
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return "development"
	}
	return "external"
}

// Warnings lists settings that are acceptable for development but must not
// reach production. The caller logs them once at startup.
func (c *Config) Warnings() []string {
	var out []string
	if c.ResolvedAuthMode() == "development" {
		out = append(out, "development auth is active: unauthenticated requests act as DEV_USER_ID or the X-Dev-* headers; do not use this configuration in production")
	}
	if c.ObjectStore == ObjectStoreLocal && c.ObjectURLKey == "" {
		out = append(out, "OBJECT_URL_SECRET is empty: signed object URLs use a built-in development key")
	}
	if c.RecordStore == RecordStoreMemory {
		out = append(out, "in-memory record store: scans are lost on restart")
	}
	return out
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	mode := c.ResolvedAuthMode()
	if mode != "development" && mode != "external" {
		return fmt.Errorf("AUTH_MODE must be \"development\" or \"external\", got %q", mode)
	}
	if mode == "external" && c.AuthIssuer == "" && c.AuthSigningKey == "" {
		return fmt.Errorf(
			"AUTH_ISSUER or AUTH_SIGNING_KEY must be set when AUTH_MODE is \"external\" (current ENV=%q)", c.Env)
	}

	switch c.RecordStore {
	case RecordStorePostgres, RecordStoreSQLite, RecordStoreMemory:
	default:
		return fmt.Errorf("RECORD_STORE must be %q, %q or %q, got %q",
			RecordStorePostgres, RecordStoreSQLite, RecordStoreMemory, c.RecordStore)
	}
	if c.RecordStore == RecordStoreSQLite && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required when RECORD_STORE is %q", RecordStoreSQLite)
	}

	switch c.ObjectStore {
	case ObjectStoreLocal:
		if c.ObjectStoreDir == "" {
			return fmt.Errorf("OBJECT_STORE_DIR is required when OBJECT_STORE is %q", ObjectStoreLocal)
		}
		if !c.IsDev() && c.ObjectURLKey == "" {
			return fmt.Errorf("OBJECT_URL_SECRET is required for the local object store outside development")
		}
	case ObjectStoreGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required when OBJECT_STORE is %q", ObjectStoreGCS)
		}
	case ObjectStoreMemory:
		if c.IsProduction() {
			return fmt.Errorf("OBJECT_STORE %q is not allowed in production", ObjectStoreMemory)
		}
	default:
		return fmt.Errorf("OBJECT_STORE must be %q, %q or %q, got %q",
			ObjectStoreLocal, ObjectStoreGCS, ObjectStoreMemory, c.ObjectStore)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	return nil
}
