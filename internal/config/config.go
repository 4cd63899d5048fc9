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

// Config captures everything needed to boot the triage engine.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Clustering ClusteringConfig `yaml:"clustering"`
	Translator TranslatorConfig `yaml:"translator"`
	Engine     EngineConfig     `yaml:"engine"`
	Logging    LoggingConfig    `yaml:"logging"`
	Cache      CacheConfig      `yaml:"cache"`
}

// ServerConfig controls the gRPC, HTTP and metrics listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	HTTPAddress     string        `yaml:"httpAddress"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// CorpusConfig locates the feedback dataset.
type CorpusConfig struct {
	// Source is "json" or "sqlite".
	Source string `yaml:"source"`
	// Path is a JSON file path or a SQLite DSN.
	Path string `yaml:"path"`
}

// ClusteringConfig selects where tagged clusters come from.
type ClusteringConfig struct {
	// Mode is "file" for a precomputed tagged-cluster file or "http" for the
	// clustering collaborator.
	Mode        string        `yaml:"mode"`
	Path        string        `yaml:"path"`
	BaseURL     string        `yaml:"baseURL"`
	ClusterPath string        `yaml:"clusterPath"`
	Timeout     time.Duration `yaml:"timeout"`
}

// TranslatorConfig configures the OpenAI-compatible NLU collaborator.
type TranslatorConfig struct {
	BaseURL string        `yaml:"baseURL"`
	APIKey  string        `yaml:"apiKey"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// EngineConfig tunes cluster metrics.
type EngineConfig struct {
	// ImportanceScale overrides the numeric weight of importance levels,
	// keyed by level name.
	ImportanceScale map[string]float64 `yaml:"importanceScale"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls caching of clustering responses.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	// Mode is "memory" or "valkey".
	Mode         string        `yaml:"mode"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	ClustersTTL  time.Duration `yaml:"clustersTTL"`
}

// Load builds a Config from defaults, the YAML file at path (or
// FEEDLENS_CONFIG), a .env file in the working directory if present, and
// FEEDLENS_* environment overrides, in that order.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if path == "" {
		path = os.Getenv("FEEDLENS_CONFIG")
	}

	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown modes.
func (c Config) Validate() error {
	switch c.Corpus.Source {
	case "json", "sqlite":
	default:
		return fmt.Errorf("corpus.source must be json or sqlite, got %q", c.Corpus.Source)
	}
	switch c.Clustering.Mode {
	case "file", "http":
	default:
		return fmt.Errorf("clustering.mode must be file or http, got %q", c.Clustering.Mode)
	}
	switch c.Cache.Mode {
	case "memory", "valkey":
	default:
		return fmt.Errorf("cache.mode must be memory or valkey, got %q", c.Cache.Mode)
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			HTTPAddress:     ":8000",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Corpus: CorpusConfig{Source: "json", Path: "data/data.json"},
		Clustering: ClusteringConfig{
			Mode:        "file",
			Path:        "data/updated_tagged_clusters.json",
			ClusterPath: "/clusters",
			Timeout:     10 * time.Second,
		},
		Translator: TranslatorConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o",
			Timeout: 15 * time.Second,
		},
		Logging: LoggingConfig{Level: "info"},
		Cache: CacheConfig{
			Mode:         "memory",
			ClustersTTL:  5 * time.Minute,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	envString("FEEDLENS_SERVER_ADDRESS", &cfg.Server.Address)
	envString("FEEDLENS_HTTP_ADDRESS", &cfg.Server.HTTPAddress)
	envString("FEEDLENS_METRICS_ADDRESS", &cfg.Server.MetricsAddress)
	envDuration("FEEDLENS_GRACEFUL_TIMEOUT", &cfg.Server.GracefulTimeout)

	envString("FEEDLENS_CORPUS_SOURCE", &cfg.Corpus.Source)
	envString("FEEDLENS_CORPUS_PATH", &cfg.Corpus.Path)

	envString("FEEDLENS_CLUSTERING_MODE", &cfg.Clustering.Mode)
	envString("FEEDLENS_CLUSTERING_PATH", &cfg.Clustering.Path)
	envString("FEEDLENS_CLUSTERING_BASE_URL", &cfg.Clustering.BaseURL)
	envString("FEEDLENS_CLUSTERING_CLUSTER_PATH", &cfg.Clustering.ClusterPath)
	envDuration("FEEDLENS_CLUSTERING_TIMEOUT", &cfg.Clustering.Timeout)

	envString("FEEDLENS_TRANSLATOR_BASE_URL", &cfg.Translator.BaseURL)
	envString("FEEDLENS_TRANSLATOR_MODEL", &cfg.Translator.Model)
	envDuration("FEEDLENS_TRANSLATOR_TIMEOUT", &cfg.Translator.Timeout)
	if cfg.Translator.APIKey == "" {
		envString("OPENAI_API_KEY", &cfg.Translator.APIKey)
	}
	envString("FEEDLENS_TRANSLATOR_API_KEY", &cfg.Translator.APIKey)

	envString("FEEDLENS_LOG_LEVEL", &cfg.Logging.Level)
	if v := os.Getenv("FEEDLENS_LOG_FORMAT"); v != "" {
		cfg.Logging.JSON = strings.EqualFold(v, "json")
	}

	envBool("FEEDLENS_CACHE_ENABLED", &cfg.Cache.Enabled)
	envString("FEEDLENS_CACHE_MODE", &cfg.Cache.Mode)
	envString("FEEDLENS_CACHE_ADDR", &cfg.Cache.Addr)
	envString("FEEDLENS_CACHE_USERNAME", &cfg.Cache.Username)
	envString("FEEDLENS_CACHE_PASSWORD", &cfg.Cache.Password)
	envInt("FEEDLENS_CACHE_DB", &cfg.Cache.DB)
	envBool("FEEDLENS_CACHE_TLS", &cfg.Cache.TLS)
	envDuration("FEEDLENS_CACHE_DIAL_TIMEOUT", &cfg.Cache.DialTimeout)
	envDuration("FEEDLENS_CACHE_READ_TIMEOUT", &cfg.Cache.ReadTimeout)
	envDuration("FEEDLENS_CACHE_WRITE_TIMEOUT", &cfg.Cache.WriteTimeout)
	envInt("FEEDLENS_CACHE_MAX_RETRIES", &cfg.Cache.MaxRetries)
	envDuration("FEEDLENS_CACHE_CLUSTERS_TTL", &cfg.Cache.ClustersTTL)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.EqualFold(v, "true") || v == "1"
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
