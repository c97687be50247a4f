package microtemplates

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"

	"github.com/goliatone/go-microsite/internal/logging"
	"github.com/goliatone/go-microsite/internal/validation"
	"github.com/goliatone/go-microsite/pkg/interfaces"
)

//go:embed schema/registry.schema.json
var registrySchemaJSON []byte

var registrySchema = validation.MustCompile("registry.schema.json", registrySchemaJSON)

// LoadRegistry reads the registry file at path. A missing or malformed file
// is logged as a warning and yields an empty registry, so every marker in
// the run is reported as unknown.
func LoadRegistry(path string, logger interfaces.Logger) *Registry {
	if logger == nil {
		logger = logging.NoOp()
	}
	registry, err := LoadRegistryStrict(path)
	if err != nil {
		logger.Warn("microtemplates.registry.degraded", "path", path, "error", err)
		return EmptyRegistry()
	}
	logger.Debug("microtemplates.registry.loaded", "path", path, "entries", registry.Len())
	return registry
}

// LoadRegistryStrict is LoadRegistry without the fallback.
func LoadRegistryStrict(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("microtemplates: read registry: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes a registry document. Comments and trailing commas
// are accepted.
func ParseRegistry(data []byte) (*Registry, error) {
	standard, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("microtemplates: parse registry: %w", err)
	}
	if err := registrySchema.ValidateJSON(standard); err != nil {
		return nil, fmt.Errorf("microtemplates: invalid registry: %w", err)
	}
	var entries map[string]Entry
	if err := json.Unmarshal(standard, &entries); err != nil {
		return nil, fmt.Errorf("microtemplates: decode registry: %w", err)
	}
	return NewRegistry(entries), nil
}
