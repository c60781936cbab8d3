package model

import "sync"

// Registry maps capabilities to preferred models with fallback chains and
// holds the endpoint configuration for each model name. It is safe for
// concurrent use.
type Registry struct {
	mu           sync.RWMutex
	capabilities map[Capability]*CapabilityConfig
	endpoints    map[string]*EndpointConfig
	defaultModel string
}

// CapabilityConfig defines model preferences for a capability.
type CapabilityConfig struct {
	// Description explains what this capability is for.
	Description string `json:"description"`

	// Preferred lists models in order of preference. The first reachable
	// model is used.
	Preferred []string `json:"preferred"`

	// Fallback lists backup models tried after all preferred models fail.
	Fallback []string `json:"fallback"`
}

// EndpointConfig defines an available model endpoint.
type EndpointConfig struct {
	// Provider is the wire format to speak (openai, ollama).
	Provider string `json:"provider"`

	// URL is the API base URL.
	URL string `json:"url,omitempty"`

	// Model is the identifier sent to the provider.
	Model string `json:"model"`

	// MaxTokens is the context window size, 0 for provider default.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// NewRegistry creates a registry from capability and endpoint maps.
func NewRegistry(caps map[Capability]*CapabilityConfig, endpoints map[string]*EndpointConfig) *Registry {
	if caps == nil {
		caps = map[Capability]*CapabilityConfig{}
	}
	if endpoints == nil {
		endpoints = map[string]*EndpointConfig{}
	}
	return &Registry{capabilities: caps, endpoints: endpoints}
}

// SetDefaultModel sets the model used when a capability has no
// configuration at all.
func (r *Registry) SetDefaultModel(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultModel = name
}

// FallbackChain returns the ordered model names to try for a capability:
// preferred models first, then fallbacks, then the registry default. Only
// models with a configured endpoint are included.
func (r *Registry) FallbackChain(c Capability) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var chain []string
	seen := make(map[string]struct{})
	appendKnown := func(names []string) {
		for _, name := range names {
			if _, dup := seen[name]; dup {
				continue
			}
			if _, ok := r.endpoints[name]; !ok {
				continue
			}
			seen[name] = struct{}{}
			chain = append(chain, name)
		}
	}

	if cfg, ok := r.capabilities[c]; ok {
		appendKnown(cfg.Preferred)
		appendKnown(cfg.Fallback)
	}
	if r.defaultModel != "" {
		appendKnown([]string{r.defaultModel})
	}
	return chain
}

// Endpoint returns the endpoint configuration for a model name, or nil if
// unknown.
func (r *Registry) Endpoint(name string) *EndpointConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.endpoints[name]
}

// AddEndpoint registers or replaces an endpoint.
func (r *Registry) AddEndpoint(name string, cfg *EndpointConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[name] = cfg
}

// SetCapability registers or replaces a capability configuration.
func (r *Registry) SetCapability(c Capability, cfg *CapabilityConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capabilities[c] = cfg
}
