package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Reaction store backends
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config holds all configuration for impact-portal
type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Session  SessionConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Catalog  CatalogConfig
	Maps     MapsConfig
	Cleanup  CleanupConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

// BackendConfig points at the upstream impact API
type BackendConfig struct {
	URL     string
	Timeout time.Duration
}

// SessionConfig holds cookie session configuration
type SessionConfig struct {
	Secret string
	Name   string
	MaxAge int
	Secure bool
}

// StoreConfig selects the reaction store
type StoreConfig struct {
	Backend string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	DSN           string
	MigrationsDir string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// CatalogConfig holds seed catalog configuration
type CatalogConfig struct {
	Dir string
}

// MapsConfig holds map embed and geocoding configuration
type MapsConfig struct {
	APIKey      string
	EmbedURL    string
	GeocoderURL string
}

// CleanupConfig holds cleanup worker configuration
type CleanupConfig struct {
	Interval  time.Duration
	Retention time.Duration
}

// LoadDotEnv reads a .env file into the environment when one exists.
// Variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        getEnvAsInt("SERVER_PORT", 8080),
			CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"*"}),
		},
		Backend: BackendConfig{
			URL:     getEnv("BACKEND_URL", "http://localhost:3001"),
			Timeout: getEnvAsDuration("BACKEND_TIMEOUT", 10*time.Second),
		},
		Session: SessionConfig{
			Secret: getEnv("SESSION_SECRET", ""),
			Name:   getEnv("SESSION_NAME", "impact_session"),
			MaxAge: getEnvAsInt("SESSION_MAX_AGE", 7*24*3600),
			Secure: getEnvAsBool("SESSION_SECURE", false),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("REACTION_STORE", StoreMemory)),
		},
		Database: DatabaseConfig{
			DSN:           getEnv("DATABASE_DSN", ""),
			MigrationsDir: getEnv("MIGRATIONS_DIR", ""),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Catalog: CatalogConfig{
			Dir: getEnv("CATALOG_DIR", "./catalog"),
		},
		Maps: MapsConfig{
			APIKey:      getEnv("MAPS_API_KEY", ""),
			EmbedURL:    getEnv("MAPS_EMBED_URL", "https://www.google.com/maps/embed/v1/place"),
			GeocoderURL: getEnv("GEOCODER_URL", "https://api.bigdatacloud.net/data/reverse-geocode-client"),
		},
		Cleanup: CleanupConfig{
			Interval:  getEnvAsDuration("CLEANUP_INTERVAL", 5*time.Minute),
			Retention: getEnvAsDuration("REACTION_RETENTION", 7*24*time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Backend.URL == "" {
		return fmt.Errorf("backend URL is required")
	}

	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("session secret must be at least 32 bytes")
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreRedis:
		if c.Redis.Address == "" {
			return fmt.Errorf("redis address is required for the redis reaction store")
		}
	case StorePostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for the postgres reaction store")
		}
	default:
		return fmt.Errorf("unknown reaction store: %q", c.Store.Backend)
	}

	return nil
}

// Address returns host:port for the HTTP server
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
