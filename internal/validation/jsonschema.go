package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/flowmorph/flowmorph/pkg/schema"
)

// graphSchemaJSON is the JSON Schema for graph workflow documents. Embedded
// as a constant to avoid filesystem dependencies.
const graphSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://flowmorph.dev/schemas/graph-workflow.json",
  "type": "object",
  "required": ["nodes"],
  "properties": {
    "name": { "type": "string" },
    "nodes": {
      "type": "array",
      "minItems": 1,
      "items": { "$ref": "#/$defs/node" }
    },
    "connections": {
      "type": "object",
      "additionalProperties": { "$ref": "#/$defs/connGroup" }
    },
    "settings": { "type": "object" },
    "meta": { "type": "object" }
  },
  "additionalProperties": false,
  "$defs": {
    "node": {
      "type": "object",
      "required": ["name", "type"],
      "properties": {
        "id": { "type": "string" },
        "name": { "type": "string", "minLength": 1 },
        "type": { "type": "string", "minLength": 1 },
        "typeVersion": { "type": "number" },
        "position": {
          "type": "array",
          "items": { "type": "number" },
          "minItems": 2,
          "maxItems": 2
        },
        "parameters": { "type": "object" },
        "credentials": { "type": "object" },
        "disabled": { "type": "boolean" },
        "notes": { "type": "string" }
      },
      "additionalProperties": false
    },
    "connGroup": {
      "type": "object",
      "properties": {
        "main": {
          "type": "array",
          "items": {
            "type": ["array", "null"],
            "items": { "$ref": "#/$defs/link" }
          }
        }
      },
      "additionalProperties": false
    },
    "link": {
      "type": "object",
      "required": ["node"],
      "properties": {
        "node": { "type": "string", "minLength": 1 },
        "type": { "type": "string" },
        "index": { "type": "integer", "minimum": 0 }
      },
      "additionalProperties": false
    }
  }
}`

// scenarioSchemaJSON is the JSON Schema for scenario documents.
const scenarioSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://flowmorph.dev/schemas/scenario.json",
  "type": "object",
  "required": ["flow"],
  "properties": {
    "name": { "type": "string" },
    "flow": {
      "type": "array",
      "minItems": 1,
      "items": { "$ref": "#/$defs/module" }
    },
    "metadata": { "type": "object" }
  },
  "additionalProperties": false,
  "$defs": {
    "module": {
      "type": "object",
      "required": ["id", "module"],
      "properties": {
        "id": { "type": "integer", "minimum": 1 },
        "module": { "type": "string", "minLength": 1 },
        "version": { "type": "integer", "minimum": 1 },
        "mapper": { "type": "object" },
        "routes": {
          "type": "array",
          "items": { "$ref": "#/$defs/route" }
        },
        "metadata": { "$ref": "#/$defs/moduleMetadata" }
      },
      "additionalProperties": false
    },
    "route": {
      "type": "object",
      "required": ["flow"],
      "properties": {
        "flow": {
          "type": "array",
          "items": { "$ref": "#/$defs/module" }
        },
        "filter": { "type": "object" },
        "label": { "type": "string" }
      },
      "additionalProperties": false
    },
    "moduleMetadata": {
      "type": "object",
      "properties": {
        "designer": {
          "type": "object",
          "required": ["x", "y"],
          "properties": {
            "x": { "type": "number" },
            "y": { "type": "number" }
          },
          "additionalProperties": false
        },
        "restore": { "type": "object" },
        "label": { "type": "string" }
      },
      "additionalProperties": false
    }
  }
}`

// JSONSchemaValidator implements Validator with pre-compiled schemas for both
// formats. It is safe for concurrent use.
type JSONSchemaValidator struct {
	graphSchema    *jsonschema.Schema
	scenarioSchema *jsonschema.Schema
}

// NewJSONSchemaValidator compiles both workflow schemas once.
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	graphCompiled, err := compileResource(c, "https://flowmorph.dev/schemas/graph-workflow.json", graphSchemaJSON)
	if err != nil {
		return nil, err
	}
	scenarioCompiled, err := compileResource(c, "https://flowmorph.dev/schemas/scenario.json", scenarioSchemaJSON)
	if err != nil {
		return nil, err
	}

	return &JSONSchemaValidator{
		graphSchema:    graphCompiled,
		scenarioSchema: scenarioCompiled,
	}, nil
}

func compileResource(c *jsonschema.Compiler, url, src string) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema %s: %w", url, err)
	}
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", url, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", url, err)
	}
	return compiled, nil
}

// ValidateGraph validates a graph workflow structurally and semantically.
func (v *JSONSchemaValidator) ValidateGraph(wf *schema.GraphWorkflow) error {
	if wf == nil {
		return schema.NewError(schema.ErrCodeValidation, "graph workflow is nil")
	}

	doc, err := toJSONValue(wf)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize graph workflow").WithCause(err)
	}
	if err := v.graphSchema.Validate(doc); err != nil {
		return toConvertError(err)
	}

	return checkGraphSemantics(wf)
}

// ValidateScenario validates a scenario structurally and semantically.
func (v *JSONSchemaValidator) ValidateScenario(sc *schema.Scenario) error {
	if sc == nil {
		return schema.NewError(schema.ErrCodeValidation, "scenario is nil")
	}

	doc, err := toJSONValue(sc)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize scenario").WithCause(err)
	}
	if err := v.scenarioSchema.Validate(doc); err != nil {
		return toConvertError(err)
	}

	return checkScenarioSemantics(sc)
}

var _ Validator = (*JSONSchemaValidator)(nil)

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toConvertError converts a jsonschema.ValidationError into a ConvertError
// with one message per violated constraint.
func toConvertError(err error) *schema.ConvertError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}
	if len(violations) == 1 {
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}

	msg := fmt.Sprintf("validation failed with %d errors", len(violations))
	return schema.NewError(schema.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf error
// messages with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
