package manifest

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaJSON is the structural contract for manifest.json. Unknown top-level
// and parameter keys stay legal so newer producers remain readable.
const schemaJSON = `{
  "type": "object",
  "required": ["run_id", "created_utc", "code_version", "environment", "parameters", "artifacts"],
  "properties": {
    "run_id": {"type": "string", "minLength": 1},
    "created_utc": {"type": "string", "minLength": 1},
    "code_version": {"type": "string"},
    "environment": {"type": "object"},
    "parameters": {"type": "object"},
    "artifacts": {
      "type": "object",
      "required": ["data", "figures", "logs", "tables"],
      "properties": {
        "data": {"type": "array", "items": {"type": "string"}},
        "figures": {"type": "array", "items": {"type": "string"}},
        "logs": {"type": "array", "items": {"type": "string"}},
        "tables": {"type": "array", "items": {"type": "string"}}
      }
    },
    "notes": {"type": "string"}
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("manifest.schema.json", strings.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = compiler.Compile("manifest.schema.json")
	})
	return schema, schemaErr
}

// ValidateBytes checks raw manifest bytes against the embedded schema.
func ValidateBytes(data []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile manifest schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("manifest is not valid JSON: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("manifest schema violation: %w", err)
	}
	return nil
}
