package config

// Config holds fable configuration.
// Stored at: ~/.fable/config.yaml
type Config struct {
	Providers map[string]ProviderCfg `mapstructure:"providers" yaml:"providers" json:"providers"`
	Defaults  DefaultsCfg            `mapstructure:"defaults" yaml:"defaults" json:"defaults"`
	Auth      AuthCfg                `mapstructure:"auth" yaml:"auth" json:"auth"`
	Server    ServerCfg              `mapstructure:"server" yaml:"server" json:"server"`
}

// ProviderCfg configures an illustration provider.
type ProviderCfg struct {
	Type              string  `mapstructure:"type" yaml:"type" json:"type"`                                           // "openai", "mock"
	Model             string  `mapstructure:"model" yaml:"model" json:"model,omitempty"`                              // Model name
	APIKey            string  `mapstructure:"api_key" yaml:"api_key" json:"api_key,omitempty"`                        // API key (supports ${ENV_VAR} syntax)
	Size              string  `mapstructure:"size" yaml:"size" json:"size,omitempty"`                                 // Output size, e.g. "1024x1024"
	Quality           string  `mapstructure:"quality" yaml:"quality" json:"quality,omitempty"`                        // "low", "medium", "high"
	RateLimit         float64 `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit,omitempty"`               // Requests per second
	MaxRetries        int     `mapstructure:"max_retries" yaml:"max_retries" json:"max_retries,omitempty"`            // Attempt budget per page
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" yaml:"retry_delay_seconds" json:"retry_delay_seconds,omitempty"` // Base backoff delay
	Enabled           bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

// DefaultsCfg specifies flow-level defaults.
type DefaultsCfg struct {
	Provider   string `mapstructure:"provider" yaml:"provider" json:"provider"`         // Provider flows are routed to
	MaxWorkers int    `mapstructure:"max_workers" yaml:"max_workers" json:"max_workers"` // Concurrent illustration workers
	ArtStyle   string `mapstructure:"art_style" yaml:"art_style" json:"art_style"`       // Style used when a book sets none
}

// AuthCfg configures request authentication.
type AuthCfg struct {
	// Secret signs and verifies bearer tokens. When empty, auth falls
	// back to the X-User-ID header for local development.
	Secret        string `mapstructure:"secret" yaml:"secret" json:"secret,omitempty"`
	TokenTTLHours int    `mapstructure:"token_ttl_hours" yaml:"token_ttl_hours" json:"token_ttl_hours"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Addr string `mapstructure:"addr" yaml:"addr" json:"addr"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Providers: map[string]ProviderCfg{
			"openai": {
				Type:              "openai",
				Model:             "gpt-image-1",
				APIKey:            "${OPENAI_API_KEY}",
				Size:              "1024x1024",
				Quality:           "medium",
				RateLimit:         1.0,
				MaxRetries:        3,
				RetryDelaySeconds: 2,
				Enabled:           true,
			},
		},
		Defaults: DefaultsCfg{
			Provider:   "openai",
			MaxWorkers: 4,
			ArtStyle:   "warm children's storybook watercolor",
		},
		Auth: AuthCfg{
			TokenTTLHours: 720,
		},
		Server: ServerCfg{
			Addr: ":8080",
		},
	}
}

// GetProvider returns a provider config by name.
func (c *Config) GetProvider(name string) (ProviderCfg, bool) {
	cfg, ok := c.Providers[name]
	return cfg, ok
}

// EnabledProviders returns all enabled providers.
func (c *Config) EnabledProviders() map[string]ProviderCfg {
	result := make(map[string]ProviderCfg)
	for name, cfg := range c.Providers {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
