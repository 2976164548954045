package data

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schemas/zone_catalog.schema.json
var catalogSchemaJSON string

const catalogSchemaURL = "zone_catalog.schema.json"

var catalogSchema = jsonschema.MustCompileString(catalogSchemaURL, catalogSchemaJSON)

// LoadCatalogFile reads a YAML catalog, validates it against the embedded
// JSON schema and builds its indexes.
func LoadCatalogFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	cat, err := ParseCatalog(raw)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cat, nil
}

// ParseCatalog decodes YAML bytes into a validated Catalog.
func ParseCatalog(raw []byte) (*Catalog, error) {
	if err := validateCatalog(raw); err != nil {
		return nil, err
	}

	var cat Catalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	if err := cat.Build(); err != nil {
		return nil, fmt.Errorf("building catalog: %w", err)
	}

	slog.Info("zone catalog loaded",
		"items", len(cat.Items),
		"buyers", len(cat.Buyers),
		"guards", len(cat.Guards),
		"zones", len(cat.Zones))
	return &cat, nil
}

// validateCatalog checks raw YAML against the schema. The document is
// normalized through JSON first so the validator sees plain JSON values.
func validateCatalog(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parsing catalog yaml: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("normalizing catalog: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(b, &normalized); err != nil {
		return fmt.Errorf("normalizing catalog: %w", err)
	}
	if err := catalogSchema.Validate(normalized); err != nil {
		return fmt.Errorf("catalog schema: %w", err)
	}
	return nil
}
