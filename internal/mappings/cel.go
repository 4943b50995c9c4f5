package mappings

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/flowmorph/flowmorph/pkg/schema"
)

// RuleEngine evaluates catalog `when` conditions with Google's Common
// Expression Language. Conditions select among candidate mappings for the
// same type based on the node being converted.
// Thread-safe: compiled programs are cached and reused across goroutines.
type RuleEngine struct {
	env *cel.Env

	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewRuleEngine creates a rule engine with a sandboxed environment. The
// environment exposes three top-level variables:
//   - parameters: map(string, dyn) — the node's parameter tree
//   - node:       map(string, dyn) — node metadata (name, type, disabled)
//   - direction:  string           — the active conversion direction
func NewRuleEngine() (*RuleEngine, error) {
	mapType := cel.MapType(cel.StringType, cel.DynType)

	env, err := cel.NewEnv(
		cel.Variable("parameters", mapType),
		cel.Variable("node", mapType),
		cel.Variable("direction", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	return &RuleEngine{
		env:   env,
		cache: make(map[string]cel.Program),
	}, nil
}

// EvaluateWhen compiles (or retrieves from cache) a condition and evaluates it
// against the data. The result must be a boolean; anything else is an error.
func (e *RuleEngine) EvaluateWhen(condition string, data map[string]any) (bool, error) {
	if condition == "" {
		return true, nil
	}

	prg, err := e.getOrCompile(condition)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(buildActivation(data))
	if err != nil {
		return false, schema.NewErrorf(schema.ErrCodeMapping,
			"condition evaluation failed for %q: %s", condition, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"condition": condition})
	}

	b, ok := out.Value().(bool)
	if !ok {
		return false, schema.NewErrorf(schema.ErrCodeMapping,
			"condition %q did not produce a boolean, got %T", condition, out.Value())
	}
	return b, nil
}

// getOrCompile returns a cached compiled program or compiles and caches a new one.
func (e *RuleEngine) getOrCompile(condition string) (cel.Program, error) {
	e.mu.RLock()
	if prg, ok := e.cache[condition]; ok {
		e.mu.RUnlock()
		return prg, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Double-check after acquiring write lock.
	if prg, ok := e.cache[condition]; ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(condition)
	if issues != nil && issues.Err() != nil {
		return nil, schema.NewErrorf(schema.ErrCodeMapping,
			"condition compile error in %q: %s", condition, issues.Err().Error()).
			WithCause(issues.Err()).
			WithDetails(map[string]any{"condition": condition})
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeMapping,
			"condition program error for %q: %s", condition, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"condition": condition})
	}

	e.cache[condition] = prg
	return prg, nil
}

// buildActivation fills missing activation keys with empty values so CEL
// never sees a nil reference.
func buildActivation(data map[string]any) map[string]any {
	activation := make(map[string]any, 3)
	for _, key := range []string{"parameters", "node"} {
		if v, ok := data[key]; ok && v != nil {
			activation[key] = v
		} else {
			activation[key] = map[string]any{}
		}
	}
	if v, ok := data["direction"].(string); ok {
		activation["direction"] = v
	} else {
		activation["direction"] = ""
	}
	return activation
}
