package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the smartsearch configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Cache     CacheConfig     `yaml:"cache"`
	Search    SearchConfig    `yaml:"search"`
	Indexer   IndexerConfig   `yaml:"indexer"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Redis     RedisConfig     `yaml:"redis"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// EmbeddingConfig holds provider, rate limit and retry settings.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider"` // openai, local (default: auto-detect)
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	Dimensions        int     `yaml:"dimensions"`
	TimeoutSec        int     `yaml:"timeout_sec"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	MaxInputChars     int     `yaml:"max_input_chars"`
	MaxAttempts       int     `yaml:"max_attempts"`
	BaseDelayMs       int     `yaml:"base_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
}

// CacheConfig holds in-process embedding cache settings.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries"`
	TTLSec     int `yaml:"ttl_sec"`
}

// SearchConfig holds ranking settings.
type SearchConfig struct {
	DefaultLimit int      `yaml:"default_limit"`
	MaxLimit     int      `yaml:"max_limit"`
	MinScore     *float64 `yaml:"min_score"` // 0 keeps every semantic hit; nil means 0.5
}

// IndexerConfig holds bulk indexing and background job settings.
type IndexerConfig struct {
	Workers       int `yaml:"workers"`
	ProgressEvery int `yaml:"progress_every"`
	JobPoolSize   int `yaml:"job_pool_size"`
	JobHistory    int `yaml:"job_history"`
}

// AuthConfig holds admin API authentication settings.
type AuthConfig struct {
	AdminKeys []string `yaml:"admin_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// RedisConfig holds the optional shared embedding cache.
type RedisConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Addrs     []string `yaml:"addrs"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	KeyPrefix string   `yaml:"key_prefix"`
}

// Timeout returns the provider client timeout.
func (e EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSec) * time.Second
}

// BaseDelay returns the retry backoff unit.
func (e EmbeddingConfig) BaseDelay() time.Duration {
	return time.Duration(e.BaseDelayMs) * time.Millisecond
}

// MaxDelay returns the longest single retry wait.
func (e EmbeddingConfig) MaxDelay() time.Duration {
	return time.Duration(e.MaxDelayMs) * time.Millisecond
}

// Threshold returns the semantic relevance cut-off.
func (s SearchConfig) Threshold() float64 {
	if s.MinScore == nil {
		return 0.5
	}
	return *s.MinScore
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
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
	if c.Database.Path == "" {
		c.Database.Path = "smartsearch.db"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}
	if c.Embedding.RequestsPerSecond <= 0 {
		c.Embedding.RequestsPerSecond = 50
	}
	if c.Embedding.MaxInputChars <= 0 {
		c.Embedding.MaxInputChars = 8000
	}
	if c.Embedding.MaxAttempts <= 0 {
		c.Embedding.MaxAttempts = 3
	}
	if c.Embedding.BaseDelayMs <= 0 {
		c.Embedding.BaseDelayMs = 1000
	}
	if c.Embedding.MaxDelayMs <= 0 {
		c.Embedding.MaxDelayMs = 10000
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 10000
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 24 * 60 * 60
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 20
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 100
	}
	if c.Search.MinScore == nil {
		minScore := 0.5
		c.Search.MinScore = &minScore
	}
	if c.Indexer.ProgressEvery <= 0 {
		c.Indexer.ProgressEvery = 10
	}
	if c.Indexer.JobPoolSize <= 0 {
		c.Indexer.JobPoolSize = 2
	}
	if c.Indexer.JobHistory <= 0 {
		c.Indexer.JobHistory = 50
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "smartsearch:emb:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch strings.ToLower(c.Embedding.Provider) {
	case "", "openai", "local":
		// ok
	default:
		return fmt.Errorf("embedding.provider must be \"openai\" or \"local\", got %q", c.Embedding.Provider)
	}
	if t := c.Search.Threshold(); t < 0 || t > 1 {
		return fmt.Errorf("search.min_score must be in [0, 1], got %g", t)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Redis.Enabled && len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("redis.addrs is required when redis is enabled")
	}
	for i, key := range c.Auth.AdminKeys {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("auth.admin_keys[%d] is empty", i)
		}
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
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
