// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// StorageConfig configures the S3-compatible object store used for
// logo and avatar uploads.
type StorageConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	LogoBucket      string
	AvatarBucket    string
	// PublicBaseURL is prepended to "<bucket>/<key>" to build the public
	// URL stored on the invoice. The URL is stored verbatim and never
	// validated for reachability.
	PublicBaseURL string
}

// BootstrapConfig controls first-run seeding.
type BootstrapConfig struct {
	EnsureDefaultUser   bool
	DefaultUserEmail    string
	DefaultUserPassword string
}

// Config is the full service configuration.
type Config struct {
	Environment string
	ServiceName string
	HTTPAddr    string
	DatabaseURL string

	JWTSecret string
	TokenTTL  time.Duration

	OTLPEndpoint string

	Storage   StorageConfig
	Bootstrap BootstrapConfig
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Load reads configuration from the environment. A .env file is honoured
// for local development when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment: envOr("BILLFOLD_ENV", "development"),
		ServiceName: envOr("BILLFOLD_SERVICE_NAME", "billfold"),
		HTTPAddr:    envOr("BILLFOLD_HTTP_ADDR", ":8080"),
		DatabaseURL: os.Getenv("BILLFOLD_DATABASE_URL"),

		JWTSecret: envOr("BILLFOLD_JWT_SECRET", "dev-secret"),
		TokenTTL:  envDurationOr("BILLFOLD_TOKEN_TTL", 24*time.Hour),

		OTLPEndpoint: os.Getenv("BILLFOLD_OTLP_ENDPOINT"),

		Storage: StorageConfig{
			Region:          envOr("BILLFOLD_STORAGE_REGION", "us-east-1"),
			Endpoint:        os.Getenv("BILLFOLD_STORAGE_ENDPOINT"),
			AccessKeyID:     os.Getenv("BILLFOLD_STORAGE_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("BILLFOLD_STORAGE_SECRET_ACCESS_KEY"),
			LogoBucket:      envOr("BILLFOLD_STORAGE_LOGO_BUCKET", "logos"),
			AvatarBucket:    envOr("BILLFOLD_STORAGE_AVATAR_BUCKET", "avatars"),
			PublicBaseURL:   os.Getenv("BILLFOLD_STORAGE_PUBLIC_BASE_URL"),
		},
		Bootstrap: BootstrapConfig{
			EnsureDefaultUser:   envBoolOr("BILLFOLD_BOOTSTRAP_DEFAULT_USER", true),
			DefaultUserEmail:    envOr("BILLFOLD_BOOTSTRAP_USER_EMAIL", "admin@billfold.local"),
			DefaultUserPassword: envOr("BILLFOLD_BOOTSTRAP_USER_PASSWORD", "admin"),
		},
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

var Module = fx.Module("config",
	fx.Provide(Load),
)
