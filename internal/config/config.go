package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates runtime configuration for the mdimg API.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	MinIO    MinIOConfig
	Auth     AuthConfig
	Upload   UploadConfig
	Metrics  MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// MinIOConfig carries MinIO connection and bucket information.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
}

// AuthConfig groups authentication-related settings.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenTTL    time.Duration
	BcryptCost        int
}

// UploadConfig tunes upload admission and the blob handoff.
type UploadConfig struct {
	RateLimitWindow time.Duration
	RateLimitMax    int
	TargetTTL       time.Duration
	URLTTL          time.Duration
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:         getString("MDIMG_API_HOST", "0.0.0.0"),
			Port:         getInt("MDIMG_API_PORT", 8080),
			ReadTimeout:  getDuration("MDIMG_API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("MDIMG_API_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDuration("MDIMG_API_IDLE_TIMEOUT", 60*time.Second),
		},
		Postgres: PostgresConfig{
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "mdimg_app"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "mdimg"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
		},
		MinIO: MinIOConfig{
			Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getString("MINIO_ROOT_USER", "mdimg"),
			SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
			Bucket:          getString("MINIO_BUCKET", "mdimg-images"),
			UseSSL:          getBool("MINIO_USE_SSL", false),
			Region:          getString("MINIO_REGION", ""),
		},
		Auth:   loadAuthConfig(),
		Upload: loadUploadConfig(),
		Metrics: MetricsConfig{
			PrometheusPath: getString("MDIMG_METRICS_PATH", "/metrics"),
		},
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func loadAuthConfig() AuthConfig {
	cost := getInt("MDIMG_AUTH_BCRYPT_COST", 12)
	if cost < 4 || cost > 31 {
		cost = 12
	}

	return AuthConfig{
		AccessTokenSecret: getString("MDIMG_JWT_SECRET", "change-me-to-a-32-byte-secret"),
		AccessTokenTTL:    getDuration("MDIMG_AUTH_ACCESS_TOKEN_TTL", 12*time.Hour),
		BcryptCost:        cost,
	}
}

func loadUploadConfig() UploadConfig {
	maxPerWindow := getInt("MDIMG_UPLOAD_RATE_LIMIT_MAX", 10)
	if maxPerWindow < 1 {
		maxPerWindow = 10
	}

	return UploadConfig{
		RateLimitWindow: getDuration("MDIMG_UPLOAD_RATE_LIMIT_WINDOW", time.Minute),
		RateLimitMax:    maxPerWindow,
		TargetTTL:       getDuration("MDIMG_UPLOAD_TARGET_TTL", 10*time.Minute),
		URLTTL:          getDuration("MDIMG_RESOLVED_URL_TTL", 24*time.Hour),
	}
}
