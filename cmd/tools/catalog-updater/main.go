package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"hempex-matching/pkg/registry"
)

var catalogPath string

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)

	// Add command flags
	idAdd := addCmd.String("id", "", "Connector ID (e.g., greenbridge)")
	displayName := addCmd.String("displayName", "", "Display Name (e.g., GreenBridge Exchange)")
	description := addCmd.String("description", "", "Description")
	category := addCmd.String("category", "", "Category (database, search-index, supplier, signal)")
	flagName := addCmd.String("flag", "", "Feature flag name (required for experimental connectors)")
	experimental := addCmd.Bool("experimental", false, "Mark connector as experimental")
	timeoutMS := addCmd.Int("timeoutMs", 0, "Per-connector fetch timeout in milliseconds (0 = service default)")
	addCmd.StringVar(&catalogPath, "path", "configs/connector-catalog.json", "Path to catalog file")

	// Update command flags
	idUpdate := updateCmd.String("id", "", "Connector ID to update")
	field := updateCmd.String("field", "", "Field to update (displayName, description, category, flag, experimental, timeoutMs)")
	value := updateCmd.String("value", "", "New value for the field")
	updateCmd.StringVar(&catalogPath, "path", "configs/connector-catalog.json", "Path to catalog file")

	validateCmd.StringVar(&catalogPath, "path", "configs/connector-catalog.json", "Path to catalog file")
	listCmd.StringVar(&catalogPath, "path", "configs/connector-catalog.json", "Path to catalog file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *idAdd == "" || *displayName == "" || *category == "" {
			fmt.Println("Error: id, displayName, and category are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		def := registry.ConnectorDef{
			ID:             *idAdd,
			DisplayName:    *displayName,
			Description:    *description,
			Category:       *category,
			Experimental:   *experimental,
			FlagName:       *flagName,
			CriteriaSchema: map[string]interface{}{},
			ErrorCodes:     []string{},
			TimeoutMS:      *timeoutMS,
		}
		if err := addConnector(&def); err != nil {
			fmt.Printf("Error adding connector: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added connector: %s\n", *idAdd)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateConnector(*idUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating connector: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated connector %s, field %s to %s\n", *idUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := validateCatalog(); err != nil {
			fmt.Printf("Catalog validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Catalog validation passed.")

	case "list":
		listCmd.Parse(os.Args[2:])
		if err := listConnectors(); err != nil {
			fmt.Printf("Error listing connectors: %v\n", err)
			os.Exit(1)
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

func addConnector(def *registry.ConnectorDef) error {
	catalog, err := registry.LoadCatalog(catalogPath)
	if err != nil {
		// If file doesn't exist, start from an empty catalog
		if os.IsNotExist(err) {
			catalog = &registry.ConnectorCatalog{
				Version:    "1.0.0",
				Connectors: []registry.ConnectorDef{},
			}
		} else {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
	}

	if _, exists := catalog.Find(def.ID); exists {
		return fmt.Errorf("connector with ID %s already exists", def.ID)
	}

	catalog.Connectors = append(catalog.Connectors, *def)
	catalog.LastUpdated = time.Now().Format(time.RFC3339)

	if err := catalog.Validate(); err != nil {
		return fmt.Errorf("catalog invalid after add: %w", err)
	}
	return saveCatalog(catalog, catalogPath)
}

func updateConnector(id, field, value string) error {
	catalog, err := registry.LoadCatalog(catalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	def, found := catalog.Find(id)
	if !found {
		return fmt.Errorf("connector with ID %s not found", id)
	}

	switch field {
	case "displayName":
		def.DisplayName = value
	case "description":
		def.Description = value
	case "category":
		def.Category = value
	case "flag":
		def.FlagName = value
	case "experimental":
		experimental, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid experimental value: %w", err)
		}
		def.Experimental = experimental
	case "timeoutMs":
		timeout, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid timeoutMs value: %w", err)
		}
		def.TimeoutMS = timeout
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	catalog.LastUpdated = time.Now().Format(time.RFC3339)
	if err := catalog.Validate(); err != nil {
		return fmt.Errorf("catalog invalid after update: %w", err)
	}
	return saveCatalog(catalog, catalogPath)
}

func validateCatalog() error {
	catalog, err := registry.LoadCatalog(catalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	if len(catalog.Connectors) == 0 {
		return fmt.Errorf("catalog contains no connectors")
	}
	return catalog.Validate()
}

func listConnectors() error {
	catalog, err := registry.LoadCatalog(catalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	fmt.Printf("Catalog version %s (%d connectors)\n", catalog.Version, len(catalog.Connectors))
	for _, def := range catalog.Connectors {
		status := ""
		if def.Experimental {
			status = fmt.Sprintf(" [experimental, flag=%s]", def.FlagName)
		}
		fmt.Printf("  %-20s %-14s %s%s\n", def.ID, def.Category, def.DisplayName, status)
	}
	return nil
}

func saveCatalog(catalog *registry.ConnectorCatalog, path string) error {
	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func help() {
	fmt.Println("Usage: catalog-updater <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  add       Add a new connector to the catalog")
	fmt.Println("  update    Update a field on an existing connector")
	fmt.Println("  validate  Validate catalog structure")
	fmt.Println("  list      List catalog connectors")
	fmt.Println("  help      Show this help")
}
