// Package connector defines the pluggable data-source contract and the
// startup-time registry the crawler resolves names against.
package connector

import (
	"context"
	"sort"

	"hempex-matching/internal/common/logger"
	"hempex-matching/internal/models"
)

// Connector is the contract every plugged-in data source implements. The
// token is an opaque per-source credential and may be empty. Implementations
// must return candidates already normalized to the common shape and must
// honor context cancellation.
type Connector interface {
	Name() string
	FetchAndNormalize(ctx context.Context, token string, criteria models.SearchCriteria) ([]models.Candidate, error)
}

// Registry is the startup-time registration table of connectors. It replaces
// filesystem discovery with explicit registration; an invalid registration is
// skipped with a warning, never fatal.
type Registry struct {
	connectors map[string]Connector
	logger     logger.Logger
}

func NewRegistry(log logger.Logger) *Registry {
	return &Registry{
		connectors: make(map[string]Connector),
		logger:     log.WithFields(map[string]interface{}{"component": "connector-registry"}),
	}
}

// Register adds a connector under its own name. A nil connector or an empty
// name is skipped with a warning so one bad registration never aborts the
// rest of startup.
func (r *Registry) Register(c Connector) {
	if c == nil {
		r.logger.Warn("skipping nil connector registration", nil)
		return
	}
	name := c.Name()
	if name == "" {
		r.logger.Warn("skipping connector with empty name", nil)
		return
	}
	if _, exists := r.connectors[name]; exists {
		r.logger.Warn("overwriting previously registered connector", map[string]interface{}{
			"connector": name,
		})
	}
	r.connectors[name] = c
	r.logger.Info("connector registered", map[string]interface{}{
		"connector": name,
	})
}

// Lookup returns the connector registered under name, if any.
func (r *Registry) Lookup(name string) (Connector, bool) {
	c, ok := r.connectors[name]
	return c, ok
}

// Names returns the registered connector names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.connectors))
	for name := range r.connectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
