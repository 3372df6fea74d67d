// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadCatalog reads a connector catalog from disk.
func LoadCatalog(path string) (*ConnectorCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var catalog ConnectorCatalog
	err = json.Unmarshal(data, &catalog)
	return &catalog, err
}

// Find returns the definition registered under id.
func (c *ConnectorCatalog) Find(id string) (*ConnectorDef, bool) {
	for i := range c.Connectors {
		if c.Connectors[i].ID == id {
			return &c.Connectors[i], true
		}
	}
	return nil, false
}

// Validate checks structural invariants: unique non-empty IDs, and a flag
// name on every experimental connector.
func (c *ConnectorCatalog) Validate() error {
	seen := make(map[string]bool)
	for _, def := range c.Connectors {
		if def.ID == "" {
			return fmt.Errorf("connector with empty id")
		}
		if seen[def.ID] {
			return fmt.Errorf("duplicate connector id %q", def.ID)
		}
		seen[def.ID] = true
		if def.Experimental && def.FlagName == "" {
			return fmt.Errorf("experimental connector %q has no flag name", def.ID)
		}
	}
	return nil
}

// DefaultCatalog is the built-in catalog used when no file is configured.
func DefaultCatalog() *ConnectorCatalog {
	return &ConnectorCatalog{
		Version: "1.0.0",
		Connectors: []ConnectorDef{
			{
				ID:          "internal",
				DisplayName: "Internal Listings Database",
				Description: "The marketplace's own Postgres listings table",
				Category:    CategoryDatabase,
			},
			{
				ID:          "listings-index",
				DisplayName: "Listings Search Index",
				Description: "Full-text Elasticsearch index over active listings",
				Category:    CategorySearchIndex,
			},
			{
				ID:          "greenbridge",
				DisplayName: "GreenBridge Exchange",
				Description: "External supplier marketplace (mock integration)",
				Category:    CategorySupplier,
			},
			{
				ID:          "hempex-exchange",
				DisplayName: "Hempex Exchange",
				Description: "External supplier marketplace (mock integration)",
				Category:    CategorySupplier,
			},
			{
				ID:           "field-signals",
				DisplayName:  "Field Signals",
				Description:  "Experimental pre-listing market signals",
				Category:     CategorySignal,
				Experimental: true,
				FlagName:     "connector_field_signals",
			},
		},
	}
}
