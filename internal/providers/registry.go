package providers

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Registry holds the configured illustrators. It supports config-driven
// instantiation and hot reload, and all access is thread-safe.
type Registry struct {
	mu           sync.RWMutex
	illustrators map[string]Illustrator
	logger       *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		illustrators: make(map[string]Illustrator),
		logger:       slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register adds an illustrator by name.
func (r *Registry) Register(name string, p Illustrator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.illustrators[name] = p
	if r.logger != nil {
		r.logger.Info("registered illustrator", "name", name)
	}
}

// Unregister removes an illustrator by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.illustrators, name)
	if r.logger != nil {
		r.logger.Info("unregistered illustrator", "name", name)
	}
}

// Get returns an illustrator by name.
func (r *Registry) Get(name string) (Illustrator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.illustrators[name]
	if !ok {
		return nil, fmt.Errorf("illustrator not found: %s", name)
	}
	return p, nil
}

// Has checks if an illustrator is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.illustrators[name]
	return ok
}

// List returns all registered illustrator names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.illustrators))
	for name := range r.illustrators {
		names = append(names, name)
	}
	return names
}

// Illustrators returns a snapshot map of all registered illustrators.
// Used by the broker to size worker pools per provider.
func (r *Registry) Illustrators() map[string]Illustrator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]Illustrator, len(r.illustrators))
	for name, p := range r.illustrators {
		result[name] = p
	}
	return result
}

// RegistryConfig defines the illustrators to instantiate from config.
type RegistryConfig struct {
	Illustrators map[string]IllustratorConfig
}

// IllustratorConfig is one provider entry with its API key already resolved.
type IllustratorConfig struct {
	Type       string // "openai", "mock"
	Model      string
	APIKey     string
	Size       string
	Quality    string
	RateLimit  float64 // Requests per second
	MaxRetries int
	RetryDelay time.Duration
	Enabled    bool
}

// NewRegistryFromConfig creates a registry with illustrators based on
// configuration. Only enabled providers with credentials are registered.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	for name, provCfg := range cfg.Illustrators {
		if !provCfg.Enabled {
			continue
		}
		p := createIllustrator(provCfg)
		if p != nil {
			r.illustrators[name] = p
		}
	}
	return r
}

// Reload updates the registry from new configuration. Providers no longer
// configured are unregistered; changed providers are recreated.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)

	for name, provCfg := range cfg.Illustrators {
		if !provCfg.Enabled {
			continue
		}
		p := createIllustrator(provCfg)
		if p == nil {
			if r.logger != nil {
				r.logger.Warn("skipping illustrator with unknown type", "name", name, "type", provCfg.Type)
			}
			continue
		}
		want[name] = true

		_, hasExisting := r.illustrators[name]
		r.illustrators[name] = p
		if r.logger != nil {
			if hasExisting {
				r.logger.Info("updated illustrator", "name", name, "type", provCfg.Type)
			} else {
				r.logger.Info("registered illustrator", "name", name, "type", provCfg.Type)
			}
		}
	}

	for name := range r.illustrators {
		if !want[name] {
			delete(r.illustrators, name)
			if r.logger != nil {
				r.logger.Info("unregistered illustrator", "name", name)
			}
		}
	}
}

// createIllustrator creates an illustrator based on provider type.
func createIllustrator(cfg IllustratorConfig) Illustrator {
	switch cfg.Type {
	case "openai":
		if cfg.APIKey == "" {
			return nil
		}
		return NewOpenAIIllustrator(OpenAIIllustratorConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Size:       cfg.Size,
			Quality:    cfg.Quality,
			RateLimit:  cfg.RateLimit,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
		})
	case "mock":
		return NewMockIllustrator()
	default:
		return nil
	}
}
