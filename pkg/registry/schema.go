// pkg/registry/schema.go
package registry

// ConnectorCatalog is the declarative description of every data-source
// connector the service knows how to wire, kept in a JSON file so operators
// can review sources and their criteria contracts without reading code.
type ConnectorCatalog struct {
	Version     string         `json:"version"`
	LastUpdated string         `json:"lastUpdated"`
	Connectors  []ConnectorDef `json:"connectors"`
}

// Connector categories. The category tells the service which transport a
// catalog entry needs: the in-house database, the search index, or an
// HTTP integration.
const (
	CategoryDatabase    = "database"
	CategorySearchIndex = "search-index"
	CategorySupplier    = "supplier"
	CategorySignal      = "signal"
)

type ConnectorDef struct {
	ID             string                 `json:"id"`
	DisplayName    string                 `json:"displayName"`
	Description    string                 `json:"description"`
	Category       string                 `json:"category"`
	Experimental   bool                   `json:"experimental"`
	FlagName       string                 `json:"flagName,omitempty"`
	CriteriaSchema map[string]interface{} `json:"criteriaSchema,omitempty"`
	ErrorCodes     []string               `json:"errorCodes,omitempty"`
	TimeoutMS      int                    `json:"timeoutMs,omitempty"`
}
