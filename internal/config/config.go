package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/clientrag/internal/domain"
	"github.com/kailas-cloud/clientrag/internal/retry"
)

// Config holds the clientrag configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Fetcher   FetcherConfig   `yaml:"fetcher"`
	Index     IndexConfig     `yaml:"index"`
	Documents DocumentsConfig `yaml:"documents"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// RetryConfig holds exponential backoff settings.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	BaseDelayMs int `yaml:"base_delay_ms"`
	JitterMs    int `yaml:"jitter_ms"`
}

// Policy converts the settings into a retry policy. Zero values take the defaults;
// a negative jitter disables it.
func (r RetryConfig) Policy() retry.Policy {
	p := retry.DefaultPolicy()
	if r.MaxAttempts > 0 {
		p.MaxAttempts = r.MaxAttempts
	}
	if r.BaseDelayMs > 0 {
		p.BaseDelay = time.Duration(r.BaseDelayMs) * time.Millisecond
	}
	switch {
	case r.JitterMs > 0:
		p.Jitter = time.Duration(r.JitterMs) * time.Millisecond
	case r.JitterMs < 0:
		p.Jitter = 0
	}
	return p
}

// CacheConfig holds the optional embedding cache connection.
type CacheConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	TTLHours         int      `yaml:"ttl_hours"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider          string      `yaml:"provider"`
	APIKey            string      `yaml:"api_key"`
	BaseURL           string      `yaml:"base_url"`
	Model             string      `yaml:"model"`
	Dimensions        int         `yaml:"dimensions"`
	RequestsPerSecond float64     `yaml:"requests_per_second"` // 0 = unlimited
	Burst             int         `yaml:"burst"`
	MaxConcurrency    int         `yaml:"max_concurrency"`
	Retry             RetryConfig `yaml:"retry"`
	Cache             CacheConfig `yaml:"cache"`
}

// FetcherConfig holds document store settings.
type FetcherConfig struct {
	CredentialsFile   string      `yaml:"credentials_file"`
	CredentialsJSON   string      `yaml:"credentials_json"`
	TimeoutSec        int         `yaml:"timeout_sec"`
	RequestsPerSecond float64     `yaml:"requests_per_second"`
	Burst             int         `yaml:"burst"`
	Retry             RetryConfig `yaml:"retry"`
}

// Timeout returns the per-request timeout.
func (f FetcherConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSec) * time.Second
}

// CategoryConfig maps a category name to its file-name suffix.
type CategoryConfig struct {
	Name   string `yaml:"name"`
	Suffix string `yaml:"suffix"`
}

// IndexConfig holds index directory and tuning settings.
// ChunkSize and HNSWM are baked into persisted indexes; change them only with a full rebuild.
type IndexConfig struct {
	Dir          string           `yaml:"dir"`
	ChunkSize    int              `yaml:"chunk_size"`
	HNSWM        int              `yaml:"hnsw_m"`
	HNSWEFSearch int              `yaml:"hnsw_ef_search"`
	DefaultK     int              `yaml:"default_k"`
	Workers      int              `yaml:"workers"`
	CacheSize    int              `yaml:"cache_size"`
	ParseRecords bool             `yaml:"parse_records"`
	Categories   []CategoryConfig `yaml:"categories"`
}

// CategorySet builds the configured category enumeration, or the default one when none is listed.
func (i IndexConfig) CategorySet() (domain.CategorySet, error) {
	if len(i.Categories) == 0 {
		return domain.DefaultCategories(), nil
	}
	specs := make([]domain.CategorySpec, len(i.Categories))
	for n, c := range i.Categories {
		specs[n] = domain.CategorySpec{Name: domain.Category(c.Name), Suffix: c.Suffix}
	}
	return domain.NewCategorySet(specs)
}

// DocumentsConfig points at the document descriptor list.
type DocumentsConfig struct {
	File string `yaml:"file"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.MaxConcurrency <= 0 {
		c.Embedding.MaxConcurrency = 8
	}
	if c.Embedding.Cache.Driver == "" {
		c.Embedding.Cache.Driver = "valkey"
	}
	if c.Embedding.Cache.TTLHours <= 0 {
		c.Embedding.Cache.TTLHours = 24 * 30
	}
	if c.Embedding.Cache.ReadinessTimeout <= 0 {
		c.Embedding.Cache.ReadinessTimeout = 10
	}

	if c.Fetcher.TimeoutSec <= 0 {
		c.Fetcher.TimeoutSec = 120
	}

	d := domain.DefaultIndexConfig()
	if c.Index.Dir == "" {
		c.Index.Dir = "indexes"
	}
	if c.Index.ChunkSize <= 0 {
		c.Index.ChunkSize = d.ChunkSize
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = d.HNSWM
	}
	if c.Index.HNSWEFSearch <= 0 {
		c.Index.HNSWEFSearch = d.EFSearch
	}
	if c.Index.DefaultK <= 0 {
		c.Index.DefaultK = d.TopK
	}
	if c.Index.Workers <= 0 {
		c.Index.Workers = d.Workers
	}
	if c.Index.CacheSize <= 0 {
		c.Index.CacheSize = d.CacheSize
	}

	if c.Documents.File == "" {
		c.Documents.File = filepath.Join("config", "documents.yaml")
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Embedding.Model == "" {
		return errors.New("embedding.model is required")
	}
	if c.Embedding.APIKey == "" {
		return errors.New("embedding.api_key is required")
	}
	if c.Embedding.RequestsPerSecond < 0 {
		return fmt.Errorf("embedding.requests_per_second must be >= 0, got %v", c.Embedding.RequestsPerSecond)
	}
	if c.Embedding.Cache.Enabled {
		switch c.Embedding.Cache.Driver {
		case "valkey", "redis":
			// ok
		default:
			return fmt.Errorf("embedding.cache.driver must be \"valkey\" or \"redis\", got %q", c.Embedding.Cache.Driver)
		}
		if len(c.Embedding.Cache.Addrs) == 0 {
			return errors.New("embedding.cache.addrs is required when the cache is enabled")
		}
	}
	if c.Fetcher.RequestsPerSecond < 0 {
		return fmt.Errorf("fetcher.requests_per_second must be >= 0, got %v", c.Fetcher.RequestsPerSecond)
	}
	if _, err := c.Index.CategorySet(); err != nil {
		return fmt.Errorf("index.categories: %w", err)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
