package schema

// Dialect identifies an expression syntax family.
type Dialect string

const (
	// DialectGraph is the node-graph format: expressions wrapped in ={{ }} with
	// $-prefixed variable roots ($json, $env, $workflow, $node["Name"]).
	DialectGraph Dialect = "graph"

	// DialectScenario is the module/route format: expressions wrapped in bare
	// {{ }} with numeric upstream-module roots ({{1.name}}) or bare keywords
	// (parameters, binary, env, scenario).
	DialectScenario Dialect = "scenario"
)

// Direction selects which way a conversion runs. Stateless; passed explicitly
// on every call.
type Direction string

const (
	GraphToScenario Direction = "graph-to-scenario"
	ScenarioToGraph Direction = "scenario-to-graph"
)

// Source returns the dialect expressions are read in for this direction.
func (d Direction) Source() Dialect {
	if d == ScenarioToGraph {
		return DialectScenario
	}
	return DialectGraph
}

// Target returns the dialect expressions are written in for this direction.
func (d Direction) Target() Dialect {
	if d == ScenarioToGraph {
		return DialectGraph
	}
	return DialectScenario
}

// Inverse returns the opposite direction.
func (d Direction) Inverse() Direction {
	if d == ScenarioToGraph {
		return GraphToScenario
	}
	return ScenarioToGraph
}

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == GraphToScenario || d == ScenarioToGraph
}
