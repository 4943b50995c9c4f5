package validation

import "github.com/flowmorph/flowmorph/pkg/schema"

// Validator checks workflow documents before conversion. Structure is checked
// with JSON Schema Draft 2020-12; semantics (duplicate names, dangling
// connections, cycles) with dedicated passes.
type Validator interface {
	ValidateGraph(wf *schema.GraphWorkflow) error
	ValidateScenario(sc *schema.Scenario) error
}
