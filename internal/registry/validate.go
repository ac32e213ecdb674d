package registry

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// validateArgs checks args against the JSON Schema a module's ToolSpec
// declares for tool, if any. A tool with no matching spec, or a spec with a
// nil/empty Parameters map, is left unvalidated — only modules that
// actually publish a schema (via Tools()) pay the resolution cost.
func validateArgs(specs []ToolSpec, tool string, args map[string]any) error {
	for _, spec := range specs {
		if spec.Name != tool || len(spec.Parameters) == 0 {
			continue
		}
		raw, err := json.Marshal(spec.Parameters)
		if err != nil {
			return fmt.Errorf("registry: marshal schema for tool %q: %w", tool, err)
		}
		var schema jsonschema.Schema
		if err := json.Unmarshal(raw, &schema); err != nil {
			return fmt.Errorf("registry: parse schema for tool %q: %w", tool, err)
		}
		resolved, err := schema.Resolve(nil)
		if err != nil {
			return fmt.Errorf("registry: resolve schema for tool %q: %w", tool, err)
		}
		if err := resolved.Validate(args); err != nil {
			return fmt.Errorf("registry: tool %q arguments: %w", tool, err)
		}
		return nil
	}
	return nil
}
