// Package config provides configuration loading and structs for the semloc server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/semloc/semloc/internal/ranking"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Ranking   ranking.Config  `yaml:"ranking"`
	Resolve   ResolveConfig   `yaml:"resolve"`
	Browser   BrowserConfig   `yaml:"browser"`
	// TargetsPath points at the semantic targets YAML file. It is watched for
	// changes while the server runs.
	TargetsPath string `yaml:"targets_path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the knowledge base and its indices.
type StorageConfig struct {
	DatabasePath     string `yaml:"database_path"`
	VectorIndexPath  string `yaml:"vector_index_path"`
	KeywordIndexPath string `yaml:"keyword_index_path"`
}

// EmbeddingConfig holds ONNX embedder settings.
type EmbeddingConfig struct {
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// ResolveConfig holds pipeline worker and verification settings.
type ResolveConfig struct {
	// Workers bounds the extraction/ranking pool.
	Workers int `yaml:"workers"`
	// VerifyWorkers bounds concurrent use of the browser session. Verification
	// is the only step holding that scarce resource, so it is sized separately.
	VerifyWorkers int `yaml:"verify_workers"`
	// FallbackLimit caps verified fallback selectors per key.
	FallbackLimit int `yaml:"fallback_limit"`
	// VerifyTimeoutMS is the deadline for one countMatches round trip.
	VerifyTimeoutMS int `yaml:"verify_timeout_ms"`
	// PutRetries bounds conflict retries on knowledge base writes.
	PutRetries int `yaml:"put_retries"`
	// NodeShortlist caps how many snapshot nodes are considered per key.
	NodeShortlist int `yaml:"node_shortlist"`
	// FeatureCacheSize caps the per-page extracted feature cache.
	FeatureCacheSize int `yaml:"feature_cache_size"`
}

// BrowserConfig holds automation adapter settings.
type BrowserConfig struct {
	// Mode selects the automation adapter: "playwright" drives a real browser,
	// "static" fetches and parses the HTML without executing scripts.
	Mode                string `yaml:"mode"`
	Headless            *bool  `yaml:"headless"`
	NavigationTimeoutMS int    `yaml:"navigation_timeout_ms"`
}

// HeadlessOrDefault returns whether to run the browser headless; defaults to true.
func (b *BrowserConfig) HeadlessOrDefault() bool {
	if b.Headless != nil {
		return *b.Headless
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Storage.KeywordIndexPath = expandPath(cfg.Storage.KeywordIndexPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	if cfg.TargetsPath != "" {
		cfg.TargetsPath = expandPath(cfg.TargetsPath, configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
