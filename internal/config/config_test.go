package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
engine:
  similarity_threshold: 0.6
  hybrid_mode_enabled: true
  top_k: 4
timeouts:
  completion: 45s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 0.6, cfg.Engine.SimilarityThresholdOrDefault())
	assert.True(t, cfg.Engine.HybridModeEnabled)
	assert.Equal(t, 4, cfg.Engine.TopK)
	assert.Nil(t, cfg.Engine.MinRelevance)
	assert.Equal(t, DefaultMinRelevance, cfg.Engine.MinRelevanceOrDefault())
	assert.Equal(t, DefaultTemperature, cfg.LLM.TemperatureOrDefault())
	assert.True(t, cfg.Engine.WebSearchOrDefault())
	assert.Equal(t, 45*time.Second, cfg.Timeouts.Completion)
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Embed)
	assert.False(t, cfg.Debug, "debug should default to false when unset")
}

func TestLoad_explicitZerosKept(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
engine:
  similarity_threshold: 0
  min_relevance: 0
llm:
  temperature: 0
`))
	require.NoError(t, err)

	require.NotNil(t, cfg.Engine.SimilarityThreshold)
	assert.Zero(t, cfg.Engine.SimilarityThresholdOrDefault())
	assert.Zero(t, cfg.Engine.MinRelevanceOrDefault())
	assert.Zero(t, cfg.LLM.TemperatureOrDefault())
}

func TestLoad_defaultSources(t *testing.T) {
	cfg, err := Load(writeConfig(t, "debug: true\n"))
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, "aircraft_maintenance_logs", cfg.Sources[0].Name)
	assert.Equal(t, "maintenance_log", cfg.Sources[0].Adapter)
	assert.Equal(t, "acn", cfg.Sources[1].Name)
	assert.Equal(t, "incident_report", cfg.Sources[1].Adapter)
	assert.Equal(t, "localhost:6334", cfg.Sources[1].Address)
}

func TestLoad_webSearchDisabled(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
engine:
  web_search_enabled: false
`))
	require.NoError(t, err)
	assert.False(t, cfg.Engine.WebSearchOrDefault())
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
sources:
  - name: manuals
    backend: sqlite
    database_path: "./data/knowledge.db"
  - name: snapshot
    backend: memory
    snapshot_path: "./data/points.jsonl"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, filepath.Join(dir, "data", "knowledge.db"), cfg.Sources[0].DatabasePath)
	assert.Equal(t, filepath.Join(dir, "data", "points.jsonl"), cfg.Sources[1].SnapshotPath)
	assert.Equal(t, "generic", cfg.Sources[0].Adapter)
	assert.Equal(t, "manuals", cfg.Sources[0].Collection)
}

func TestLoad_secretsFromEnv(t *testing.T) {
	t.Setenv(EnvLLMAPIKey, "llm-secret")
	t.Setenv(EnvQdrantAPIKey, "qdrant-secret")
	t.Setenv(EnvSerpAPIKey, "serp-secret")

	cfg, err := Load(writeConfig(t, `
llm:
  api_key: "from-file"
`))
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.LLM.APIKey, "file value wins over env")
	assert.Equal(t, "serp-secret", cfg.WebSearch.APIKey)
	assert.Equal(t, "qdrant-secret", cfg.Sources[0].APIKey)
}

func TestLoad_errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [not, a, map]\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(*Config) {}, false},
		{"negative top_k", func(c *Config) { c.Engine.TopK = -1 }, true},
		{"min_relevance out of range", func(c *Config) { v := 2.0; c.Engine.MinRelevance = &v }, true},
		{"negative temperature", func(c *Config) { v := -0.5; c.LLM.Temperature = &v }, true},
		{"zero temperature", func(c *Config) { v := 0.0; c.LLM.Temperature = &v }, false},
		{"unknown backend", func(c *Config) { c.Sources[0].Backend = "milvus" }, true},
		{"duplicate source", func(c *Config) { c.Sources[1].Name = c.Sources[0].Name }, true},
		{"sqlite without path", func(c *Config) {
			c.Sources[0].Backend = BackendSQLite
			c.Sources[0].DatabasePath = ""
		}, true},
		{"unknown llm provider", func(c *Config) { c.LLM.Provider = "bard" }, true},
		{"unknown web search provider", func(c *Config) { c.WebSearch.Provider = "altavista" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			ApplyDefaults(cfg)
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	assert.Equal(t, "", expandPath("", "/etc/mxrag"))
	assert.Equal(t, "/abs/db", expandPath("/abs/db", "/etc/mxrag"))
	assert.Equal(t, "/etc/mxrag/db", expandPath("./db", "/etc/mxrag"))
}
