package mappings

import (
	"github.com/flowmorph/flowmorph/pkg/schema"
)

// Mapping links one graph node type to one scenario module type, with the
// parameter key renames between them. A type may have several candidate
// mappings; the When condition picks among them per node.
type Mapping struct {
	GraphType       string            `yaml:"graphType"`
	ScenarioModule  string            `yaml:"scenarioModule"`
	ScenarioVersion int               `yaml:"scenarioVersion"`
	Status          schema.NodeStatus `yaml:"status"`
	// ParamRenames maps graph parameter keys to scenario parameter keys.
	// Reverse conversion inverts it.
	ParamRenames map[string]string `yaml:"paramRenames"`
	// DropParams are graph parameters with no scenario counterpart. Dropping
	// one is reported, never silent.
	DropParams []string `yaml:"dropParams"`
	// When is an optional CEL condition over {parameters, node, direction}.
	When string `yaml:"when"`
}

// Catalog is the node/module type mapping table. It is an explicit object
// with caller-controlled lifetime; nothing in this package caches
// process-wide.
type Catalog struct {
	rules    *RuleEngine
	byGraph  map[string][]Mapping
	byModule map[string][]Mapping
}

// NewCatalog builds a catalog preloaded with the built-in mapping table.
func NewCatalog() (*Catalog, error) {
	rules, err := NewRuleEngine()
	if err != nil {
		return nil, err
	}
	c := &Catalog{
		rules:    rules,
		byGraph:  make(map[string][]Mapping),
		byModule: make(map[string][]Mapping),
	}
	for _, m := range builtinMappings {
		c.Add(m)
	}
	return c, nil
}

// Add registers a mapping. Later additions win over earlier ones for the same
// type pair, which is how file overrides shadow built-ins.
func (c *Catalog) Add(m Mapping) {
	if m.Status == "" {
		m.Status = schema.NodeStatusFull
	}
	c.byGraph[m.GraphType] = upsert(c.byGraph[m.GraphType], m)
	c.byModule[m.ScenarioModule] = upsert(c.byModule[m.ScenarioModule], m)
}

func upsert(list []Mapping, m Mapping) []Mapping {
	for i, existing := range list {
		if existing.GraphType == m.GraphType && existing.ScenarioModule == m.ScenarioModule && existing.When == m.When {
			list[i] = m
			return list
		}
	}
	return append(list, m)
}

// Len returns the number of distinct graph types in the catalog.
func (c *Catalog) Len() int {
	return len(c.byGraph)
}

// ResolveGraphType finds the mapping for a graph node type. Candidates with a
// When condition are evaluated against the node's parameters; the first match
// wins, with unconditional candidates as fallback. A false second return
// means the type is unknown to the catalog.
func (c *Catalog) ResolveGraphType(graphType string, params map[string]any, meta map[string]any) (Mapping, bool, error) {
	return c.resolve(c.byGraph[graphType], schema.GraphToScenario, params, meta)
}

// ResolveModuleType is the reverse lookup, by scenario module type.
func (c *Catalog) ResolveModuleType(module string, params map[string]any, meta map[string]any) (Mapping, bool, error) {
	return c.resolve(c.byModule[module], schema.ScenarioToGraph, params, meta)
}

func (c *Catalog) resolve(candidates []Mapping, dir schema.Direction, params map[string]any, meta map[string]any) (Mapping, bool, error) {
	var fallback *Mapping
	for i := range candidates {
		m := candidates[i]
		if m.When == "" {
			if fallback == nil {
				fallback = &candidates[i]
			}
			continue
		}
		match, err := c.rules.EvaluateWhen(m.When, map[string]any{
			"parameters": params,
			"node":       meta,
			"direction":  string(dir),
		})
		if err != nil {
			return Mapping{}, false, err
		}
		if match {
			return m, true, nil
		}
	}
	if fallback != nil {
		return *fallback, true, nil
	}
	return Mapping{}, false, nil
}

// GraphParams renames a graph parameter map into scenario keys. Unlisted keys
// keep their names. Returns the renamed copy and the keys dropped because the
// mapping declares no counterpart for them.
func (m Mapping) GraphParams(params map[string]any) (map[string]any, []string) {
	drop := make(map[string]bool, len(m.DropParams))
	for _, k := range m.DropParams {
		drop[k] = true
	}

	out := make(map[string]any, len(params))
	var dropped []string
	for k, v := range params {
		if drop[k] {
			dropped = append(dropped, k)
			continue
		}
		if renamed, ok := m.ParamRenames[k]; ok {
			out[renamed] = v
			continue
		}
		out[k] = v
	}
	return out, dropped
}

// ScenarioParams is the inverse of GraphParams: scenario keys back to graph
// keys. Dropped parameters have no inverse, so nothing is reported here.
func (m Mapping) ScenarioParams(params map[string]any) map[string]any {
	inverse := make(map[string]string, len(m.ParamRenames))
	for from, to := range m.ParamRenames {
		inverse[to] = from
	}

	out := make(map[string]any, len(params))
	for k, v := range params {
		if renamed, ok := inverse[k]; ok {
			out[renamed] = v
			continue
		}
		out[k] = v
	}
	return out
}
