package source

import (
	"fmt"
	"log/slog"
	"net/http"

	"NewsAlerts/internal/config"
	"NewsAlerts/internal/ports"
)

// Builder constructs a news source from its config entry.
type Builder func(cfg config.SourceConfig, client *http.Client, logger *slog.Logger) (ports.NewsSource, error)

// Registry keeps a mapping from source kinds to their builders.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: map[string]Builder{}}
}

// Register adds or replaces a builder for a source kind.
func (r *Registry) Register(kind string, builder Builder) {
	if r.builders == nil {
		r.builders = map[string]Builder{}
	}
	r.builders[kind] = builder
}

// Build resolves the config entry's kind and constructs the source.
func (r *Registry) Build(cfg config.SourceConfig, client *http.Client, logger *slog.Logger) (ports.NewsSource, error) {
	builder, ok := r.builders[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("source kind %q is not registered", cfg.Kind)
	}
	return builder(cfg, client, logger)
}

// DefaultRegistry registers the built-in source kinds.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("html", func(cfg config.SourceConfig, client *http.Client, logger *slog.Logger) (ports.NewsSource, error) {
		return NewMarketHTMLSource(cfg.Name, cfg.URL, cfg.Category, client)
	})
	r.Register("rss", func(cfg config.SourceConfig, client *http.Client, logger *slog.Logger) (ports.NewsSource, error) {
		return NewFeedSource(cfg.Name, cfg.URL, cfg.Category, client)
	})
	return r
}
