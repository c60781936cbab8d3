// Package config provides configuration loading and management for
// reqalign.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/reqalign/analysis"
	"github.com/c360studio/reqalign/model"
)

// Config represents the complete reqalign configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Model    ModelConfig    `yaml:"model"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Chat     ChatConfig     `yaml:"chat"`
	Ingest   IngestConfig   `yaml:"ingest"`
	NATS     NATSConfig     `yaml:"nats"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the listen address (default: ":8000").
	Addr string `yaml:"addr"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// ModelConfig configures model endpoints and capability routing.
type ModelConfig struct {
	// Default is the model used when a capability has no explicit chain.
	Default string `yaml:"default"`
	// Timeout is the maximum time to wait for model responses.
	Timeout time.Duration `yaml:"timeout"`
	// Endpoints maps model names to their endpoint settings.
	Endpoints map[string]EndpointConfig `yaml:"endpoints"`
	// Capabilities maps capability names (chat, feedback, fast) to model
	// preference chains.
	Capabilities map[string]CapabilityConfig `yaml:"capabilities"`
}

// EndpointConfig defines one model endpoint.
type EndpointConfig struct {
	// Provider selects the wire format: "openai" or "ollama".
	Provider string `yaml:"provider"`
	// URL is the API base URL (provider default when empty).
	URL string `yaml:"url"`
	// Model is the identifier sent to the provider.
	Model string `yaml:"model"`
	// MaxTokens is the context window size (0 = provider default).
	MaxTokens int `yaml:"maxTokens"`
}

// CapabilityConfig defines the model preference chain for a capability.
type CapabilityConfig struct {
	Preferred []string `yaml:"preferred"`
	Fallback  []string `yaml:"fallback"`
}

// AnalysisConfig configures the semantic matching engine.
type AnalysisConfig struct {
	// Threshold is the default similarity threshold for coverage, in
	// (0,1]. Requests may override it per call.
	Threshold float64 `yaml:"threshold"`
}

// ChatConfig configures the conversation orchestrator.
type ChatConfig struct {
	// HistoryWindow is the number of recent exchanges sent to the model.
	HistoryWindow int `yaml:"historyWindow"`
	// MaxTokens bounds reply length (0 = endpoint default).
	MaxTokens int `yaml:"maxTokens"`
}

// IngestConfig configures document directory watching.
type IngestConfig struct {
	// RequirementsDir is a directory of requirement documents to watch
	// (empty = watching disabled).
	RequirementsDir string `yaml:"requirementsDir"`
	// DesignDir is a directory of design documents to watch.
	DesignDir string `yaml:"designDir"`
	// Include lists doublestar glob patterns for files to ingest.
	Include []string `yaml:"include"`
	// DebounceDelay is how long to wait for more changes before
	// re-parsing.
	DebounceDelay time.Duration `yaml:"debounceDelay"`
}

// NATSConfig configures optional analysis event publishing.
type NATSConfig struct {
	// URL is the NATS server URL (empty = publishing disabled).
	URL string `yaml:"url"`
	// Subject is the subject analysis events are published on.
	Subject string `yaml:"subject"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ShutdownTimeout: 10 * time.Second,
		},
		Model: ModelConfig{
			Default: "local",
			Timeout: 3 * time.Minute,
			Endpoints: map[string]EndpointConfig{
				"local": {
					Provider: "ollama",
					URL:      "http://localhost:11434/v1",
					Model:    "qwen2.5:14b",
				},
			},
			Capabilities: map[string]CapabilityConfig{},
		},
		Analysis: AnalysisConfig{
			Threshold: analysis.DefaultThreshold,
		},
		Chat: ChatConfig{
			HistoryWindow: 10,
			MaxTokens:     512,
		},
		Ingest: IngestConfig{
			Include:       []string{"**/*.md", "**/*.txt", "**/*.json", "**/*.yaml"},
			DebounceDelay: 500 * time.Millisecond,
		},
		NATS: NATSConfig{
			Subject: "reqalign.analysis.completed",
		},
	}
}

// Validate checks that the configuration is consistent.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Model.Default == "" && len(c.Model.Capabilities) == 0 {
		return fmt.Errorf("model.default or model.capabilities is required")
	}
	if c.Analysis.Threshold <= 0 || c.Analysis.Threshold > 1 {
		return fmt.Errorf("analysis.threshold must be in (0,1], got %v", c.Analysis.Threshold)
	}
	if c.Chat.HistoryWindow <= 0 {
		return fmt.Errorf("chat.historyWindow must be positive")
	}
	for name, ep := range c.Model.Endpoints {
		if ep.Provider == "" {
			return fmt.Errorf("model.endpoints.%s.provider is required", name)
		}
		if ep.Model == "" {
			return fmt.Errorf("model.endpoints.%s.model is required", name)
		}
	}
	return nil
}

// Registry builds a model.Registry from the model configuration.
func (c *Config) Registry() *model.Registry {
	endpoints := make(map[string]*model.EndpointConfig, len(c.Model.Endpoints))
	for name, ep := range c.Model.Endpoints {
		endpoints[name] = &model.EndpointConfig{
			Provider:  ep.Provider,
			URL:       ep.URL,
			Model:     ep.Model,
			MaxTokens: ep.MaxTokens,
		}
	}

	caps := make(map[model.Capability]*model.CapabilityConfig, len(c.Model.Capabilities))
	for name, cc := range c.Model.Capabilities {
		capability := model.ParseCapability(name)
		if capability == "" {
			continue
		}
		caps[capability] = &model.CapabilityConfig{
			Preferred: cc.Preferred,
			Fallback:  cc.Fallback,
		}
	}

	registry := model.NewRegistry(caps, endpoints)
	registry.SetDefaultModel(c.Model.Default)
	return registry
}

// LoadFromFile loads configuration from a YAML file, layered over
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.ShutdownTimeout != 0 {
		c.Server.ShutdownTimeout = other.Server.ShutdownTimeout
	}

	if other.Model.Default != "" {
		c.Model.Default = other.Model.Default
	}
	if other.Model.Timeout != 0 {
		c.Model.Timeout = other.Model.Timeout
	}
	for name, ep := range other.Model.Endpoints {
		if c.Model.Endpoints == nil {
			c.Model.Endpoints = map[string]EndpointConfig{}
		}
		c.Model.Endpoints[name] = ep
	}
	for name, cc := range other.Model.Capabilities {
		if c.Model.Capabilities == nil {
			c.Model.Capabilities = map[string]CapabilityConfig{}
		}
		c.Model.Capabilities[name] = cc
	}

	if other.Analysis.Threshold != 0 {
		c.Analysis.Threshold = other.Analysis.Threshold
	}

	if other.Chat.HistoryWindow != 0 {
		c.Chat.HistoryWindow = other.Chat.HistoryWindow
	}
	if other.Chat.MaxTokens != 0 {
		c.Chat.MaxTokens = other.Chat.MaxTokens
	}

	if other.Ingest.RequirementsDir != "" {
		c.Ingest.RequirementsDir = other.Ingest.RequirementsDir
	}
	if other.Ingest.DesignDir != "" {
		c.Ingest.DesignDir = other.Ingest.DesignDir
	}
	if len(other.Ingest.Include) > 0 {
		c.Ingest.Include = other.Ingest.Include
	}
	if other.Ingest.DebounceDelay != 0 {
		c.Ingest.DebounceDelay = other.Ingest.DebounceDelay
	}

	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.Subject != "" {
		c.NATS.Subject = other.NATS.Subject
	}
}
