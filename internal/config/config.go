package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Store backends selectable via PINDROP_STORE_BACKEND.
const (
	StoreBackendFile     = "file"
	StoreBackendPostgres = "postgres"
)

// Blob backends selectable via PINDROP_BLOB_BACKEND.
const (
	BlobBackendDisk = "disk"
	BlobBackendS3   = "s3"
)

// Config aggregates runtime configuration for the PinDrop relay.
type Config struct {
	Server   ServerConfig
	Relay    RelayConfig
	Store    StoreConfig
	Blob     BlobConfig
	Postgres PostgresConfig
	MinIO    MinIOConfig
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

// RelayConfig groups transfer lifecycle settings.
type RelayConfig struct {
	TTL          time.Duration
	ReapInterval time.Duration
	MaxFileSize  int64
}

// StoreConfig selects and parameterizes the metadata store backend.
type StoreConfig struct {
	Backend string
	DataDir string
}

// DocumentPath returns the canonical path of the file-backed metadata document.
func (s StoreConfig) DocumentPath() string {
	return filepath.Join(s.DataDir, "transfers.json")
}

// BlobConfig selects and parameterizes the blob store backend.
type BlobConfig struct {
	Backend string
	Root    string
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

// MinIOConfig carries object storage connection and bucket information.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	dataDir := getString("PINDROP_DATA_DIR", "./data")

	cfg := Config{
		Server: ServerConfig{
			Host:         getString("PINDROP_API_HOST", "0.0.0.0"),
			Port:         getInt("PINDROP_API_PORT", 8080),
			ReadTimeout:  getDuration("PINDROP_API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("PINDROP_API_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDuration("PINDROP_API_IDLE_TIMEOUT", 60*time.Second),
		},
		Relay: RelayConfig{
			TTL:          getDuration("PINDROP_TTL", 24*time.Hour),
			ReapInterval: getDuration("PINDROP_REAP_INTERVAL", 10*time.Minute),
			MaxFileSize:  getInt64("PINDROP_MAX_FILE_SIZE", 100*1024*1024),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getString("PINDROP_STORE_BACKEND", StoreBackendFile)),
			DataDir: dataDir,
		},
		Blob: BlobConfig{
			Backend: strings.ToLower(getString("PINDROP_BLOB_BACKEND", BlobBackendDisk)),
			Root:    getString("PINDROP_BLOB_ROOT", filepath.Join(dataDir, "blobs")),
		},
		Postgres: PostgresConfig{
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "pindrop_app"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "pindrop"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
		},
		MinIO: MinIOConfig{
			Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getString("MINIO_ROOT_USER", "pindrop"),
			SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
			Bucket:          getString("MINIO_BUCKET", "pindrop"),
			UseSSL:          getBool("MINIO_USE_SSL", false),
			Region:          getString("MINIO_REGION", ""),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("PINDROP_METRICS_PATH", "/metrics"),
		},
	}

	if cfg.Store.Backend != StoreBackendFile && cfg.Store.Backend != StoreBackendPostgres {
		return Config{}, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if cfg.Blob.Backend != BlobBackendDisk && cfg.Blob.Backend != BlobBackendS3 {
		return Config{}, fmt.Errorf("unknown blob backend %q", cfg.Blob.Backend)
	}
	if cfg.Relay.TTL <= 0 {
		return Config{}, fmt.Errorf("transfer TTL must be positive, got %s", cfg.Relay.TTL)
	}
	if cfg.Relay.ReapInterval <= 0 {
		return Config{}, fmt.Errorf("reap interval must be positive, got %s", cfg.Relay.ReapInterval)
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

func getInt64(key string, fallback int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
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
