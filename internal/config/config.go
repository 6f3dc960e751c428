package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the docqa configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Cache     CacheConfig     `yaml:"cache"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Upload    UploadConfig    `yaml:"upload"`
	Logging   LoggingConfig   `yaml:"logging"`
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

// Database drivers.
const (
	DriverValkey = "valkey"
	DriverRedis  = "redis"
	DriverNone   = "none"
)

// DatabaseConfig holds the embedding cache store connection.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, none (default: none)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	EmbeddingTTLSec  int      `yaml:"embedding_ttl_sec"` // 0 = keep forever
}

// Enabled reports whether a store is configured.
func (d DatabaseConfig) Enabled() bool { return d.Driver != DriverNone }

// ProviderConfig holds OpenAI-compatible endpoint settings.
// APIVersion switches the client to Azure mode, Deployment names the Azure deployment.
type ProviderConfig struct {
	Name       string `yaml:"name"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	APIVersion string `yaml:"api_version"`
	Deployment string `yaml:"deployment"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	ProviderConfig `yaml:",inline"`
	Model          string `yaml:"model"`
	Dimensions     int    `yaml:"dimensions"`
	BatchSize      int    `yaml:"batch_size"`
	MaxAPIBatch    int    `yaml:"max_api_batch"`
}

// LLMConfig holds language model provider settings.
type LLMConfig struct {
	ProviderConfig `yaml:",inline"`
	Model          string  `yaml:"model"`
	Temperature    float32 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
}

// ChunkingConfig holds text splitter settings.
type ChunkingConfig struct {
	Size         int   `yaml:"size"`
	Overlap      *int  `yaml:"overlap"`       // default 100
	WordBoundary *bool `yaml:"word_boundary"` // default true
}

// RetrievalConfig holds similarity search settings.
type RetrievalConfig struct {
	K int `yaml:"k"`
}

// CacheConfig holds document index cache settings.
type CacheConfig struct {
	MaxEntries int    `yaml:"max_entries"` // 0 = unbounded
	TTLSec     int    `yaml:"ttl_sec"`     // 0 = no expiry
	Identity   string `yaml:"identity"`    // filename (default) | content_hash
}

// ExtractorConfig holds PDF extractor settings.
type ExtractorConfig struct {
	LicenseKey string `yaml:"license_key"`
}

// UploadConfig holds upload limits.
type UploadConfig struct {
	MaxSizeMB int `yaml:"max_size_mb"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
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
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverNone
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Name == "" {
		c.Embedding.Name = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 200
	}
	if c.Embedding.MaxAPIBatch <= 0 {
		c.Embedding.MaxAPIBatch = 256
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 60
	}
	if c.LLM.Name == "" {
		c.LLM.Name = "openai"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 60
	}
	if c.Chunking.Size <= 0 {
		c.Chunking.Size = 800
	}
	if c.Chunking.Overlap == nil {
		overlap := 100
		c.Chunking.Overlap = &overlap
	}
	if c.Chunking.WordBoundary == nil {
		on := true
		c.Chunking.WordBoundary = &on
	}
	if c.Retrieval.K <= 0 {
		c.Retrieval.K = 4
	}
	if c.Cache.Identity == "" {
		c.Cache.Identity = "filename"
	}
	if c.Upload.MaxSizeMB <= 0 {
		c.Upload.MaxSizeMB = 20
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverValkey, DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case DriverNone:
	default:
		return fmt.Errorf("database.driver must be \"valkey\", \"redis\" or \"none\", got %q", c.Database.Driver)
	}
	if c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding.api_key is required")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	if c.Embedding.APIVersion != "" && c.Embedding.Deployment == "" {
		return fmt.Errorf("embedding.deployment is required when api_version is set")
	}
	if c.LLM.APIVersion != "" && c.LLM.Deployment == "" {
		return fmt.Errorf("llm.deployment is required when api_version is set")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", c.LLM.Temperature)
	}
	if c.Chunking.Overlap != nil && (*c.Chunking.Overlap < 0 || *c.Chunking.Overlap >= c.Chunking.Size) {
		return fmt.Errorf("chunking.overlap must be in [0, %d), got %d", c.Chunking.Size, *c.Chunking.Overlap)
	}
	if c.Cache.MaxEntries < 0 || c.Cache.TTLSec < 0 {
		return fmt.Errorf("cache.max_entries and cache.ttl_sec must be >= 0")
	}
	switch c.Cache.Identity {
	case "filename", "content_hash":
	default:
		return fmt.Errorf("cache.identity must be \"filename\" or \"content_hash\", got %q", c.Cache.Identity)
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
