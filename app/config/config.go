// Package config loads application configuration: built-in defaults, then an
// optional YAML file, then a .env file, then BLOG_* environment variables.
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
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Auth    AuthConfig    `yaml:"auth"`
	Votes   VotesConfig   `yaml:"votes"`
	Search  SearchConfig  `yaml:"search"`
	Logging LoggingConfig `yaml:"logging"`
	CORS    CORSConfig    `yaml:"cors"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

type StorageConfig struct {
	Path       string `yaml:"path"`
	InMemory   bool   `yaml:"in_memory"`
	SyncWrites bool   `yaml:"sync_writes"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// VotesConfig bounds how often a vote that lost a write race is retried.
type VotesConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

type SearchConfig struct {
	CacheSize      int `yaml:"cache_size"`
	DefaultPerPage int `yaml:"default_per_page"`
	MaxPerPage     int `yaml:"max_per_page"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads the YAML file at path (if non-empty) and the .env file at
// envFile (if it exists), then applies environment overrides.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if envFile != "" {
		// godotenv.Load never overrides variables already set in the process.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  10 * time.Second,
		},
		Storage: StorageConfig{
			Path: "blog.db",
		},
		Auth: AuthConfig{
			JWTSecret: "dev-secret-key-change-in-production",
			Issuer:    "blogapi",
			TokenTTL:  time.Hour,
		},
		Votes: VotesConfig{
			MaxAttempts: 3,
			RetryDelay:  10 * time.Millisecond,
		},
		Search: SearchConfig{
			CacheSize:      512,
			DefaultPerPage: 10,
			MaxPerPage:     100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if c.Server.Addr == "" {
		problems = append(problems, "server.addr is required")
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		problems = append(problems, "storage.path is required unless storage.in_memory is set")
	}
	if c.Auth.JWTSecret == "" {
		problems = append(problems, "auth.jwt_secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		problems = append(problems, "auth.token_ttl must be positive")
	}
	if c.Votes.MaxAttempts < 1 {
		problems = append(problems, "votes.max_attempts must be at least 1")
	}
	if c.Search.DefaultPerPage < 1 || c.Search.MaxPerPage < c.Search.DefaultPerPage {
		problems = append(problems, "search.default_per_page must be between 1 and search.max_per_page")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// applyEnvOverrides reads BLOG_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) error {
	var err error
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" && err == nil {
			n, perr := strconv.Atoi(v)
			if perr != nil {
				err = fmt.Errorf("%s: %w", key, perr)
				return
			}
			*dst = n
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" && err == nil {
			b, perr := strconv.ParseBool(v)
			if perr != nil {
				err = fmt.Errorf("%s: %w", key, perr)
				return
			}
			*dst = b
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" && err == nil {
			d, perr := time.ParseDuration(v)
			if perr != nil {
				err = fmt.Errorf("%s: %w", key, perr)
				return
			}
			*dst = d
		}
	}

	setString("BLOG_SERVER_ADDR", &cfg.Server.Addr)
	setDuration("BLOG_SERVER_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)
	setString("BLOG_STORAGE_PATH", &cfg.Storage.Path)
	setBool("BLOG_STORAGE_IN_MEMORY", &cfg.Storage.InMemory)
	setString("BLOG_JWT_SECRET", &cfg.Auth.JWTSecret)
	setString("BLOG_JWT_ISSUER", &cfg.Auth.Issuer)
	setDuration("BLOG_TOKEN_TTL", &cfg.Auth.TokenTTL)
	setInt("BLOG_VOTES_MAX_ATTEMPTS", &cfg.Votes.MaxAttempts)
	setInt("BLOG_SEARCH_CACHE_SIZE", &cfg.Search.CacheSize)
	setString("BLOG_LOG_LEVEL", &cfg.Logging.Level)
	setString("BLOG_LOG_FORMAT", &cfg.Logging.Format)
	setBool("BLOG_METRICS_ENABLED", &cfg.Metrics.Enabled)
	if v := os.Getenv("BLOG_CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORS.AllowedOrigins = strings.Split(v, ",")
	}
	return err
}
