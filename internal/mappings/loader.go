package mappings

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/flowmorph/flowmorph/pkg/schema"
)

// overrideFile is the YAML document shape for user-supplied mapping overrides.
type overrideFile struct {
	Mappings []Mapping `yaml:"mappings"`
}

// LoadOverrides reads mapping overrides from a YAML file and registers them on
// the catalog, shadowing any built-in entry for the same type pair.
func (c *Catalog) LoadOverrides(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read mapping overrides: %w", err)
	}

	var file overrideFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return 0, schema.NewErrorf(schema.ErrCodeMapping,
			"parse mapping overrides %q: %s", path, err.Error()).WithCause(err)
	}

	for i, m := range file.Mappings {
		if err := validateOverride(m); err != nil {
			return 0, schema.NewErrorf(schema.ErrCodeMapping,
				"mapping override %d in %q: %s", i, path, err.Error()).WithCause(err)
		}
		c.Add(m)
	}
	return len(file.Mappings), nil
}

func validateOverride(m Mapping) error {
	if m.GraphType == "" {
		return fmt.Errorf("graphType is required")
	}
	if m.ScenarioModule == "" {
		return fmt.Errorf("scenarioModule is required")
	}
	switch m.Status {
	case "", schema.NodeStatusFull, schema.NodeStatusPartial, schema.NodeStatusUnsupported:
	default:
		return fmt.Errorf("unknown status %q", m.Status)
	}
	return nil
}
