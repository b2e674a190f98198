package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the eshoplite service configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Redis       RedisConfig       `yaml:"redis"`
	Cache       CacheConfig       `yaml:"cache"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Chat        ChatConfig        `yaml:"chat"`
	VectorIndex VectorIndexConfig `yaml:"vector_index"`
	Search      SearchConfig      `yaml:"search"`
	Enrichment  EnrichmentConfig  `yaml:"enrichment"`
	Insights    InsightsConfig    `yaml:"insights"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
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

// CatalogConfig selects the product store.
type CatalogConfig struct {
	Driver      string `yaml:"driver"` // sqlite, postgres (default: sqlite)
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	Seed        bool   `yaml:"seed"` // load bundled products into an empty catalog
}

// RedisConfig holds the Redis connection shared by caches and the redis vector index.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether a Redis endpoint is configured.
func (r RedisConfig) Enabled() bool { return len(r.Addrs) > 0 }

// CacheConfig toggles Redis-backed caches.
type CacheConfig struct {
	Embeddings      bool `yaml:"embeddings"`
	EmbeddingTTLSec int  `yaml:"embedding_ttl_sec"`
	Products        bool `yaml:"products"`
	ProductTTLSec   int  `yaml:"product_ttl_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// ChatConfig holds chat provider settings.
type ChatConfig struct {
	Provider       string `yaml:"provider"`
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	ReasoningModel string `yaml:"reasoning_model"` // optional, answers may carry <think> sections
}

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
	UseTLS bool   `yaml:"use_tls"`
}

// RedisIndexConfig tunes the FT vector field of the redis backend.
type RedisIndexConfig struct {
	Algorithm string `yaml:"algorithm"` // flat or hnsw (default: flat)
	HNSWM     int    `yaml:"hnsw_m"`    // 0 keeps the server default
}

// VectorIndexConfig selects the vector index backend.
type VectorIndexConfig struct {
	Driver     string           `yaml:"driver"` // memory, qdrant, redis (default: memory)
	Collection string           `yaml:"collection"`
	Qdrant     QdrantConfig     `yaml:"qdrant"`
	Redis      RedisIndexConfig `yaml:"redis"`
}

// SearchConfig tunes the semantic search pipeline.
type SearchConfig struct {
	TopK int `yaml:"top_k"`
	// Threshold is compared with the backend score: similarity keeps scores above it,
	// distance keeps scores below it. Unset means 0.5; an explicit 0 is kept.
	Threshold *float64 `yaml:"threshold"`
}

// EnrichmentConfig holds enrichment service endpoints and fan-out limits.
type EnrichmentConfig struct {
	InventoryURL  string `yaml:"inventory_url"`
	PromotionsURL string `yaml:"promotions_url"`
	ResearcherURL string `yaml:"researcher_url"`
	TimeoutSec    int    `yaml:"timeout_sec"`
	MaxCandidates int    `yaml:"max_candidates"`
	Concurrency   int    `yaml:"concurrency"`
}

// KafkaConfig holds the insight event publisher settings.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// InsightsConfig controls question insight generation.
type InsightsConfig struct {
	Enabled        bool        `yaml:"enabled"`
	RecordSearches bool        `yaml:"record_searches"`
	TimeoutSec     int         `yaml:"timeout_sec"`
	Kafka          KafkaConfig `yaml:"kafka"`
}

// Load reads configuration from a YAML file by environment name (local, dev, docker, prod).
// A .env file in the working directory, if present, is loaded into the process environment first.
func Load(env string) (Config, error) {
	_ = godotenv.Load()

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands ${VAR} references, decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
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
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 90
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Catalog.Driver == "" {
		c.Catalog.Driver = "sqlite"
	}
	if c.Catalog.SQLitePath == "" {
		c.Catalog.SQLitePath = filepath.Join("data", "eshoplite.db")
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Cache.EmbeddingTTLSec <= 0 {
		c.Cache.EmbeddingTTLSec = 7 * 24 * 3600
	}
	if c.Cache.ProductTTLSec <= 0 {
		c.Cache.ProductTTLSec = 600
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Chat.Provider == "" {
		c.Chat.Provider = c.Embedding.Provider
	}
	if c.Chat.APIKey == "" {
		c.Chat.APIKey = c.Embedding.APIKey
	}
	if c.Chat.BaseURL == "" {
		c.Chat.BaseURL = c.Embedding.BaseURL
	}
	if c.VectorIndex.Driver == "" {
		c.VectorIndex.Driver = "memory"
	}
	if c.VectorIndex.Collection == "" {
		c.VectorIndex.Collection = "products"
	}
	if c.VectorIndex.Qdrant.Port <= 0 {
		c.VectorIndex.Qdrant.Port = 6334
	}
	if c.VectorIndex.Redis.Algorithm == "" {
		c.VectorIndex.Redis.Algorithm = "flat"
	}
	if c.Search.TopK <= 0 {
		c.Search.TopK = 3
	}
	if c.Search.Threshold == nil {
		threshold := 0.5
		c.Search.Threshold = &threshold
	}
	if c.Enrichment.TimeoutSec <= 0 {
		c.Enrichment.TimeoutSec = 5
	}
	if c.Enrichment.MaxCandidates <= 0 {
		c.Enrichment.MaxCandidates = 10
	}
	if c.Enrichment.Concurrency <= 0 {
		c.Enrichment.Concurrency = 4
	}
	if c.Insights.TimeoutSec <= 0 {
		c.Insights.TimeoutSec = 60
	}
	if c.Insights.Kafka.Topic == "" {
		c.Insights.Kafka.Topic = "question-insights"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Catalog.Driver {
	case "sqlite":
	case "postgres":
		if c.Catalog.PostgresDSN == "" {
			return fmt.Errorf("catalog.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("catalog.driver must be \"sqlite\" or \"postgres\", got %q", c.Catalog.Driver)
	}

	switch c.VectorIndex.Driver {
	case "memory":
	case "qdrant":
		if c.VectorIndex.Qdrant.Host == "" {
			return fmt.Errorf("vector_index.qdrant.host is required for the qdrant driver")
		}
	case "redis":
		if !c.Redis.Enabled() {
			return fmt.Errorf("redis.addrs is required for the redis vector index")
		}
		if a := c.VectorIndex.Redis.Algorithm; a != "flat" && a != "hnsw" {
			return fmt.Errorf("vector_index.redis.algorithm must be \"flat\" or \"hnsw\", got %q", a)
		}
	default:
		return fmt.Errorf(
			"vector_index.driver must be \"memory\", \"qdrant\" or \"redis\", got %q", c.VectorIndex.Driver,
		)
	}

	if (c.Cache.Embeddings || c.Cache.Products) && !c.Redis.Enabled() {
		return fmt.Errorf("redis.addrs is required when caches are enabled")
	}

	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must not be negative, got %d", c.Embedding.Dimensions)
	}
	if c.VectorIndex.Driver != "memory" && c.Embedding.Dimensions == 0 {
		return fmt.Errorf("embedding.dimensions is required for the %s vector index", c.VectorIndex.Driver)
	}
	if c.Chat.Model == "" {
		return fmt.Errorf("chat.model is required")
	}

	if c.Search.TopK > 50 {
		return fmt.Errorf("search.top_k must be at most 50, got %d", c.Search.TopK)
	}
	if t := c.Search.Threshold; t != nil && (*t < -1 || *t > 2) {
		return fmt.Errorf("search.threshold must be between -1 and 2, got %g", *t)
	}

	if c.Insights.Enabled && len(c.Insights.Kafka.Brokers) > 0 && c.Insights.Kafka.Topic == "" {
		return fmt.Errorf("insights.kafka.topic is required when brokers are set")
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
