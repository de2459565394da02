package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg. Settings where zero is a
// valid choice are pointers resolved by their OrDefault accessors instead.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Engine.TopK == 0 {
		cfg.Engine.TopK = 3
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/mxrag/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "all-minilm"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Sources == nil {
		cfg.Sources = []SourceConfig{
			{Name: "aircraft_maintenance_logs", Backend: BackendQdrant, Collection: "aircraft_maintenance_logs", Adapter: "maintenance_log"},
			{Name: "acn", Backend: BackendQdrant, Collection: "acn", Adapter: "incident_report"},
		}
	}
	for i := range cfg.Sources {
		s := &cfg.Sources[i]
		if s.Backend == "" {
			s.Backend = BackendQdrant
		}
		if s.Collection == "" {
			s.Collection = s.Name
		}
		if s.Adapter == "" {
			s.Adapter = "generic"
		}
		if s.Backend == BackendQdrant && s.Address == "" {
			s.Address = "localhost:6334"
		}
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.BaseURL == "" && cfg.LLM.Provider == "openai" {
		cfg.LLM.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "llama3-8b-8192"
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 1024
	}
	if cfg.LLM.ContextWindow == 0 {
		cfg.LLM.ContextWindow = 8192
	}
	if cfg.WebSearch.Provider == "" {
		cfg.WebSearch.Provider = "duckduckgo"
	}
	if cfg.WebSearch.NumResults == 0 {
		cfg.WebSearch.NumResults = 5
	}
	if cfg.WebSearch.RequestsPerSecond == 0 {
		cfg.WebSearch.RequestsPerSecond = 1
	}
	if cfg.Timeouts.Embed == 0 {
		cfg.Timeouts.Embed = 10 * time.Second
	}
	if cfg.Timeouts.Source == 0 {
		cfg.Timeouts.Source = 10 * time.Second
	}
	if cfg.Timeouts.WebSearch == 0 {
		cfg.Timeouts.WebSearch = 10 * time.Second
	}
	if cfg.Timeouts.Completion == 0 {
		cfg.Timeouts.Completion = 30 * time.Second
	}
}
