// Package config provides configuration loading and structs for the mxrag server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source backends.
const (
	BackendQdrant = "qdrant"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Environment variables consulted when the matching secret is empty in the file.
const (
	EnvLLMAPIKey    = "MXRAG_LLM_API_KEY"
	EnvQdrantAPIKey = "MXRAG_QDRANT_API_KEY"
	EnvSerpAPIKey   = "MXRAG_SERPAPI_KEY"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Engine    EngineConfig    `yaml:"engine"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Sources   []SourceConfig  `yaml:"sources"`
	LLM       LLMConfig       `yaml:"llm"`
	WebSearch WebSearchConfig `yaml:"web_search"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// EngineConfig holds the decision thresholds and mode flags of the answer pipeline.
// It is passed by value and never mutated after load.
type EngineConfig struct {
	// SimilarityThreshold is the minimum top combined score that avoids a web search.
	// nil means DefaultSimilarityThreshold; an explicit 0 disables the score gate.
	SimilarityThreshold *float64 `yaml:"similarity_threshold"`
	// HybridModeEnabled always supplements database evidence with live web search.
	HybridModeEnabled bool `yaml:"hybrid_mode_enabled"`
	// TopK is the per-source nearest-neighbour limit; results are capped at 2*TopK.
	TopK int `yaml:"top_k"`
	// MinRelevance is the question/hit cosine similarity above which a hit is relevant.
	// nil means DefaultMinRelevance.
	MinRelevance *float64 `yaml:"min_relevance"`
	// WebSearchEnabled gates every live search; nil means enabled.
	WebSearchEnabled *bool `yaml:"web_search_enabled"`
}

// Defaults for settings where an explicit zero is meaningful.
const (
	DefaultSimilarityThreshold = 0.5
	DefaultMinRelevance        = 0.4
	DefaultTemperature         = 0.1
)

// SimilarityThresholdOrDefault returns the configured threshold or DefaultSimilarityThreshold.
func (e EngineConfig) SimilarityThresholdOrDefault() float64 {
	if e.SimilarityThreshold != nil {
		return *e.SimilarityThreshold
	}
	return DefaultSimilarityThreshold
}

// MinRelevanceOrDefault returns the configured relevance cut-off or DefaultMinRelevance.
func (e EngineConfig) MinRelevanceOrDefault() float64 {
	if e.MinRelevance != nil {
		return *e.MinRelevance
	}
	return DefaultMinRelevance
}

// WebSearchOrDefault returns whether live search is allowed; defaults to true when unset.
func (e EngineConfig) WebSearchOrDefault() bool {
	if e.WebSearchEnabled != nil {
		return *e.WebSearchEnabled
	}
	return true
}

// EmbeddingConfig selects and configures the embedding collaborator.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // onnx, ollama or mock
	ModelPath  string `yaml:"model_path"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
}

// SourceConfig describes one knowledge source and how its payloads become text.
type SourceConfig struct {
	Name         string `yaml:"name"`
	Backend      string `yaml:"backend"`
	Collection   string `yaml:"collection"`
	Adapter      string `yaml:"adapter"`
	Address      string `yaml:"address"`
	APIKey       string `yaml:"api_key"`
	UseTLS       bool   `yaml:"use_tls"`
	DatabasePath string `yaml:"database_path"`
	SnapshotPath string `yaml:"snapshot_path"`
}

// LLMConfig configures the text-completion collaborator.
type LLMConfig struct {
	Provider      string  `yaml:"provider"` // openai (any OpenAI-compatible endpoint) or ollama
	BaseURL       string  `yaml:"base_url"`
	APIKey        string  `yaml:"api_key"`
	Model         string  `yaml:"model"`
	MaxTokens     int     `yaml:"max_tokens"`
	Temperature   *float64 `yaml:"temperature"`
	ContextWindow int     `yaml:"context_window"`
}

// TemperatureOrDefault returns the sampling temperature; an explicit 0 is kept.
func (l LLMConfig) TemperatureOrDefault() float64 {
	if l.Temperature != nil {
		return *l.Temperature
	}
	return DefaultTemperature
}

// WebSearchConfig configures the live web-search collaborator.
type WebSearchConfig struct {
	Provider          string  `yaml:"provider"` // duckduckgo or serpapi
	Endpoint          string  `yaml:"endpoint"`
	APIKey            string  `yaml:"api_key"`
	NumResults        int     `yaml:"num_results"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// TimeoutConfig bounds every blocking collaborator call.
type TimeoutConfig struct {
	Embed      time.Duration `yaml:"embed"`
	Source     time.Duration `yaml:"source"`
	WebSearch  time.Duration `yaml:"web_search"`
	Completion time.Duration `yaml:"completion"`
}

// Load reads and parses the config file at path, expands paths, applies defaults and
// environment secrets, and validates the result.
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
	applyEnv(&cfg)

	configDir := filepath.Dir(path)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	for i := range cfg.Sources {
		cfg.Sources[i].DatabasePath = expandPath(cfg.Sources[i].DatabasePath, configDir)
		cfg.Sources[i].SnapshotPath = expandPath(cfg.Sources[i].SnapshotPath, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	if c.Engine.TopK <= 0 {
		return errors.New("engine.top_k must be positive")
	}
	if r := c.Engine.MinRelevanceOrDefault(); r < -1 || r > 1 {
		return fmt.Errorf("engine.min_relevance must be within [-1, 1], got %g", r)
	}
	if t := c.LLM.TemperatureOrDefault(); t < 0 || t > 2 {
		return fmt.Errorf("llm.temperature must be within [0, 2], got %g", t)
	}
	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		if s.Name == "" {
			return fmt.Errorf("sources[%d]: name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("sources[%d]: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = true
		switch s.Backend {
		case BackendQdrant:
			if s.Collection == "" {
				return fmt.Errorf("source %q: collection is required for qdrant", s.Name)
			}
		case BackendSQLite:
			if s.DatabasePath == "" {
				return fmt.Errorf("source %q: database_path is required for sqlite", s.Name)
			}
		case BackendMemory:
		default:
			return fmt.Errorf("source %q: unknown backend %q (supported: qdrant, sqlite, memory)", s.Name, s.Backend)
		}
	}
	switch c.LLM.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("llm.provider: unknown provider %q (supported: openai, ollama)", c.LLM.Provider)
	}
	switch c.WebSearch.Provider {
	case "duckduckgo", "serpapi":
	default:
		return fmt.Errorf("web_search.provider: unknown provider %q (supported: duckduckgo, serpapi)", c.WebSearch.Provider)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv(EnvLLMAPIKey)
	}
	if cfg.WebSearch.APIKey == "" {
		cfg.WebSearch.APIKey = os.Getenv(EnvSerpAPIKey)
	}
	for i := range cfg.Sources {
		if cfg.Sources[i].Backend == BackendQdrant && cfg.Sources[i].APIKey == "" {
			cfg.Sources[i].APIKey = os.Getenv(EnvQdrantAPIKey)
		}
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
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
