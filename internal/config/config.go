// Package config loads service configuration from a YAML file, a .env file
// and the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"cicloteca-backend/internal/resolver"
)

// Storage backends
const (
	StorageFirebase = "firebase"
	StorageLocal    = "local"
)

// Config holds the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Relay    RelayConfig    `yaml:"relay"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Resolver ResolverConfig `yaml:"resolver"`
	Download DownloadConfig `yaml:"download"`
	Logging  LoggingConfig  `yaml:"logging"`
	Library  LibraryConfig  `yaml:"library"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Domain string `yaml:"domain"` // public site domain, drives CORS and CSP
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RelayConfig holds settings for the CORS relay, both the origin clients
// are pointed at and the relay server itself.
type RelayConfig struct {
	Origin string `yaml:"origin"` // empty disables relaying
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
}

// Addr returns the relay listen address
func (r RelayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// StorageConfig selects and configures the blob storage backend.
type StorageConfig struct {
	Backend       string   `yaml:"backend"` // "firebase" or "local"
	Bucket        string   `yaml:"bucket"`
	BaseURL       string   `yaml:"base_url"`
	PublicHosts   []string `yaml:"public_hosts"` // download hosts that go through the relay
	LocalDir      string   `yaml:"local_dir"`
	PublicURL     string   `yaml:"public_url"` // base of signed URLs for the local backend
	SigningSecret string   `yaml:"signing_secret"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// CacheConfig holds URL cache settings.
type CacheConfig struct {
	TTL  time.Duration `yaml:"ttl"`
	File string        `yaml:"file"` // local tier file; ignored when a database is configured
}

// AttemptConfig is one escalation step.
type AttemptConfig struct {
	Mode    string        `yaml:"mode"`
	Timeout time.Duration `yaml:"timeout"`
}

// ResolverConfig holds resolution timeouts.
type ResolverConfig struct {
	FastTimeout    time.Duration   `yaml:"fast_timeout"`
	BackendTimeout time.Duration   `yaml:"backend_timeout"`
	Attempts       []AttemptConfig `yaml:"attempts"`
}

// DownloadConfig holds delivery settings.
type DownloadConfig struct {
	TempDir      string        `yaml:"temp_dir"`
	CleanupGrace time.Duration `yaml:"cleanup_grace"`
	Timeout      time.Duration `yaml:"timeout"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LibraryConfig points at the seed catalog.
type LibraryConfig struct {
	Catalog string `yaml:"catalog"`
}

// defaults returns a Config populated with sensible default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Relay: RelayConfig{
			Host: "0.0.0.0",
			Port: 8081,
		},
		Storage: StorageConfig{
			Backend:  StorageLocal,
			LocalDir: "data/files",
		},
		Cache: CacheConfig{
			TTL: 6 * time.Hour,
		},
		Resolver: ResolverConfig{
			FastTimeout:    resolver.DefaultFastTimeout,
			BackendTimeout: resolver.DefaultBackendTimeout,
			Attempts: []AttemptConfig{
				{Mode: "fast", Timeout: 1200 * time.Millisecond},
				{Mode: "background", Timeout: 2000 * time.Millisecond},
				{Mode: "background", Timeout: 3000 * time.Millisecond},
			},
		},
		Download: DownloadConfig{
			CleanupGrace: time.Second,
			Timeout:      5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Library: LibraryConfig{
			Catalog: "catalog.yaml",
		},
	}
}

// Load reads a YAML configuration file at path and returns a Config with
// environment overrides applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries to load path (or "config.yaml" when path is empty).
// A missing file yields the defaults with environment overrides applied;
// any other error is returned.
func LoadDefault(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = "config.yaml"
	}

	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg = defaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads .env files for local development. It is a no-op inside
// Docker, where the environment is set by the container. It reports
// whether a file was loaded.
func LoadDotEnv(paths ...string) bool {
	if os.Getenv("DOCKER_ENV") != "" {
		return false
	}
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	loaded := false
	for _, p := range paths {
		if err := godotenv.Load(p); err == nil {
			loaded = true
		}
	}
	return loaded
}

// applyEnv overrides file values with environment variables
func (c *Config) applyEnv() error {
	setString(&c.Server.Host, "CICLOTECA_HOST")
	setString(&c.Server.Domain, "DOMAIN")
	setString(&c.Relay.Origin, "CICLOTECA_RELAY_ORIGIN")
	setString(&c.Relay.Host, "CICLOTECA_RELAY_HOST")
	setString(&c.Storage.Backend, "CICLOTECA_STORAGE_BACKEND")
	setString(&c.Storage.Bucket, "CICLOTECA_STORAGE_BUCKET")
	setString(&c.Storage.BaseURL, "CICLOTECA_STORAGE_BASE_URL")
	setString(&c.Storage.LocalDir, "CICLOTECA_STORAGE_DIR")
	setString(&c.Storage.PublicURL, "CICLOTECA_STORAGE_PUBLIC_URL")
	setString(&c.Storage.SigningSecret, "CICLOTECA_SIGNING_SECRET")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Cache.File, "CICLOTECA_CACHE_FILE")
	setString(&c.Download.TempDir, "CICLOTECA_DOWNLOAD_DIR")
	setString(&c.Logging.Level, "CICLOTECA_LOG_LEVEL")
	setString(&c.Logging.Format, "CICLOTECA_LOG_FORMAT")
	setString(&c.Library.Catalog, "CICLOTECA_LIBRARY_CATALOG")

	if v := os.Getenv("CICLOTECA_STORAGE_PUBLIC_HOSTS"); v != "" {
		c.Storage.PublicHosts = splitList(v)
	}

	var errs []error
	errs = append(errs, setInt(&c.Server.Port, "CICLOTECA_PORT"))
	errs = append(errs, setInt(&c.Relay.Port, "CICLOTECA_RELAY_PORT"))
	errs = append(errs, setDuration(&c.Cache.TTL, "CICLOTECA_CACHE_TTL"))
	errs = append(errs, setDuration(&c.Resolver.FastTimeout, "CICLOTECA_FAST_TIMEOUT"))
	errs = append(errs, setDuration(&c.Resolver.BackendTimeout, "CICLOTECA_BACKEND_TIMEOUT"))
	return errors.Join(errs...)
}

// Validate checks settings that cannot be defaulted
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageFirebase:
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for the firebase backend")
		}
	case StorageLocal:
		if c.Storage.LocalDir == "" {
			return errors.New("storage.local_dir is required for the local backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Cache.TTL <= 0 {
		return errors.New("cache.ttl must be positive")
	}
	_, err := c.Policy()
	return err
}

// Policy converts the configured attempts into a resolver policy
func (c *Config) Policy() (resolver.Policy, error) {
	if len(c.Resolver.Attempts) == 0 {
		return resolver.DefaultPolicy(), nil
	}

	policy := resolver.Policy{Attempts: make([]resolver.Attempt, 0, len(c.Resolver.Attempts))}
	for i, a := range c.Resolver.Attempts {
		mode, err := resolver.ParseMode(a.Mode)
		if err != nil {
			return resolver.Policy{}, fmt.Errorf("resolver.attempts[%d]: %w", i, err)
		}
		if a.Timeout < 0 {
			return resolver.Policy{}, fmt.Errorf("resolver.attempts[%d]: negative timeout", i)
		}
		policy.Attempts = append(policy.Attempts, resolver.Attempt{Mode: mode, Timeout: a.Timeout})
	}
	return policy, nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
