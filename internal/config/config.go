// Package config provides configuration management for the hybrid
// search core: YAML-backed, with defaults, validation, and an
// XDG-style config path.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds every setting the core and its CLI recognize.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Storage   StorageConfig   `yaml:"storage"`
	Search    SearchConfig    `yaml:"search"`
	Ingest    IngestConfig    `yaml:"ingest"`
}

// EmbeddingConfig configures the embedding provider. Dimensions is the
// only field the core contract names explicitly; the rest are opaque
// provider-specific settings passed straight to the client.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	OllamaURL  string `yaml:"ollama_url"`
	OpenAIKey  string `yaml:"openai_key"`
	CacheSize  int    `yaml:"cache_size"`
}

// StorageConfig configures where on-disk state lives. VectorPath is an
// opaque filesystem locator passed straight through to the vector
// store.
type StorageConfig struct {
	DataDir    string `yaml:"data_dir"`
	VectorPath string `yaml:"vector_path"`
}

// SearchConfig configures default search behavior.
type SearchConfig struct {
	DefaultMode  string `yaml:"default_mode"`
	ResultsLimit int    `yaml:"results_limit"`
}

// IngestConfig configures the filesystem watcher.
type IngestConfig struct {
	Paths   []string `yaml:"paths"`
	Ignore  []string `yaml:"ignore"`
	Watch   bool     `yaml:"watch"`
	Workers int      `yaml:"workers"`
}

// Default returns a Config with sensible defaults rooted at the user's
// home directory.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".local", "share", "hybridsearch")

	return &Config{
		Embedding: EmbeddingConfig{
			Provider:   "ollama",
			Model:      "nomic-embed-text",
			Dimensions: 768,
			OllamaURL:  "http://localhost:11434",
			CacheSize:  1000,
		},
		Storage: StorageConfig{
			DataDir:    dataDir,
			VectorPath: filepath.Join(dataDir, "vectors.graph"),
		},
		Search: SearchConfig{
			DefaultMode:  "hybrid",
			ResultsLimit: 10,
		},
		Ingest: IngestConfig{
			Paths:   []string{filepath.Join(homeDir, "notes")},
			Ignore:  []string{"node_modules", ".git", ".obsidian"},
			Watch:   true,
			Workers: 4,
		},
	}
}

// Validate checks that every recognized value is within its allowed
// range.
func (c *Config) Validate() error {
	if c.Embedding.Dimensions < 1 {
		return errors.New("embedding.dimensions must be at least 1")
	}
	if c.Embedding.Provider != "ollama" && c.Embedding.Provider != "openai" {
		return errors.New("embedding.provider must be 'ollama' or 'openai'")
	}
	if c.Storage.VectorPath == "" {
		return errors.New("storage.vector_path must be set")
	}
	if c.Search.ResultsLimit < 1 {
		return errors.New("search.results_limit must be at least 1")
	}
	switch c.Search.DefaultMode {
	case "vector", "keyword", "hybrid":
	default:
		return errors.New("search.default_mode must be 'vector', 'keyword', or 'hybrid'")
	}
	if c.Ingest.Workers < 1 {
		return errors.New("ingest.workers must be at least 1")
	}
	return nil
}

// Load loads configuration from the YAML file, falling back to
// defaults for any missing values.
func Load() (*Config, error) {
	cfg := Default()

	configPath, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the YAML file.
func (c *Config) Save() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0o644)
}

// ConfigDir returns the directory where config files are stored.
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "hybridsearch"), nil
}

// ConfigPath returns the path to the main config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// DataDir returns the data directory from config, creating it if
// needed.
func (c *Config) DataDir() (string, error) {
	if err := os.MkdirAll(c.Storage.DataDir, 0o755); err != nil {
		return "", err
	}
	return c.Storage.DataDir, nil
}

// MetastorePath returns the path to the metadata SQLite database.
func (c *Config) MetastorePath() (string, error) {
	dataDir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "metastore.db"), nil
}
