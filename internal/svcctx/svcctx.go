// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/fablehouse/fable/internal/assets"
	"github.com/fablehouse/fable/internal/auth"
	"github.com/fablehouse/fable/internal/config"
	"github.com/fablehouse/fable/internal/flow"
	"github.com/fablehouse/fable/internal/home"
	"github.com/fablehouse/fable/internal/jobs"
	"github.com/fablehouse/fable/internal/providers"
	"github.com/fablehouse/fable/internal/store"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Store      *store.Store
	Broker     *jobs.Broker
	Scheduler  *flow.Scheduler
	Aggregator *flow.Aggregator
	Registry   *providers.Registry
	Assets     *assets.Library
	Auth       *auth.Manager
	Config     *config.Manager
	Logger     *slog.Logger
	Home       *home.Dir
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// StoreFrom extracts the database store from context.
func StoreFrom(ctx context.Context) *store.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Store
	}
	return nil
}

// BrokerFrom extracts the illustration job broker from context.
func BrokerFrom(ctx context.Context) *jobs.Broker {
	if s := ServicesFrom(ctx); s != nil {
		return s.Broker
	}
	return nil
}

// SchedulerFrom extracts the flow scheduler from context.
func SchedulerFrom(ctx context.Context) *flow.Scheduler {
	if s := ServicesFrom(ctx); s != nil {
		return s.Scheduler
	}
	return nil
}

// AggregatorFrom extracts the book status aggregator from context.
func AggregatorFrom(ctx context.Context) *flow.Aggregator {
	if s := ServicesFrom(ctx); s != nil {
		return s.Aggregator
	}
	return nil
}

// RegistryFrom extracts the provider registry from context.
func RegistryFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// AssetsFrom extracts the asset library from context.
func AssetsFrom(ctx context.Context) *assets.Library {
	if s := ServicesFrom(ctx); s != nil {
		return s.Assets
	}
	return nil
}

// AuthFrom extracts the auth manager from context.
func AuthFrom(ctx context.Context) *auth.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Auth
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}
