package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config is the application configuration loaded from YAML
type Config struct {
	App        AppConfig        `yaml:"app"`
	Generation GenerationConfig `yaml:"generation"`
	Kuzu       KuzuConfig       `yaml:"kuzu"`
	Neo4j      Neo4jConfig      `yaml:"neo4j"`
	Models     []ModelConfig    `yaml:"models"`
}

type AppConfig struct {
	Port       int    `yaml:"port"`
	ModelDir   string `yaml:"model_dir"`
	LogLevel   string `yaml:"log_level"`
	CountTable string `yaml:"count_table"` // "map" or "trie"
	NumWorkers int    `yaml:"num_workers"` // Corpus reader goroutines
}

type GenerationConfig struct {
	DefaultOrder int   `yaml:"default_order"`
	MaxTokens    int   `yaml:"max_tokens"`    // Negative disables the cap
	MaxSentences int   `yaml:"max_sentences"` // Upper bound on sentences per generate request
	Seed         int64 `yaml:"seed"`          // 0 seeds from the clock
}

type KuzuConfig struct {
	Path string `yaml:"path"`
}

type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// ModelConfig names a corpus to train on at startup
type ModelConfig struct {
	Name     string `yaml:"name"`
	Order    int    `yaml:"order"`
	Path     string `yaml:"path"`
	Override bool   `yaml:"override"` // Retrain even when a saved model exists
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads the YAML file at path and applies defaults. An empty path
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Port == 0 {
		c.App.Port = 8080
	}
	if c.App.ModelDir == "" {
		c.App.ModelDir = "./ngram_models"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.CountTable == "" {
		c.App.CountTable = "map"
	}
	if c.App.NumWorkers == 0 {
		c.App.NumWorkers = 2
	}
	if c.Generation.DefaultOrder == 0 {
		c.Generation.DefaultOrder = 2
	}
	if c.Generation.MaxTokens == 0 {
		c.Generation.MaxTokens = 100
	}
	if c.Generation.MaxSentences == 0 {
		c.Generation.MaxSentences = 1000
	}
	for i := range c.Models {
		if c.Models[i].Order == 0 {
			c.Models[i].Order = c.Generation.DefaultOrder
		}
	}
}

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	if c.App.CountTable != "map" && c.App.CountTable != "trie" {
		return fmt.Errorf("app.count_table must be map or trie, got %q", c.App.CountTable)
	}
	if c.Generation.DefaultOrder < 1 {
		return fmt.Errorf("generation.default_order must be at least 1, got %d", c.Generation.DefaultOrder)
	}
	if c.Generation.MaxSentences < 1 {
		return fmt.Errorf("generation.max_sentences must be at least 1, got %d", c.Generation.MaxSentences)
	}

	seen := make(map[string]bool)
	for _, m := range c.Models {
		if m.Name == "" {
			return fmt.Errorf("model with path %q has no name", m.Path)
		}
		if seen[m.Name] {
			return fmt.Errorf("duplicate model name: %s", m.Name)
		}
		seen[m.Name] = true
		if m.Order < 1 {
			return fmt.Errorf("model %s: order must be at least 1, got %d", m.Name, m.Order)
		}
		if m.Path == "" {
			return fmt.Errorf("model %s: path is required", m.Name)
		}
	}
	return nil
}

// GetModel returns the configured model with the given name
func (c *Config) GetModel(name string) (*ModelConfig, bool) {
	for i := range c.Models {
		if c.Models[i].Name == name {
			return &c.Models[i], true
		}
	}
	return nil, false
}
