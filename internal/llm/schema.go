package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/tenkanalyzer/tenk-analyzer/constants"
)

// BuildAnalysisJSONSchema returns a JSON-Schema (draft 2020-12 subset) for
// the four-category analysis object as a generic map. All four keys are
// required and each must be an array of strings.
func BuildAnalysisJSONSchema() map[string]any {
	props := make(map[string]any, len(constants.CategoryKeys()))
	for _, key := range constants.CategoryKeys() {
		props[key] = map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             constants.CategoryKeys(),
	}
}

var compileAnalysisSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	b, err := json.Marshal(BuildAnalysisJSONSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal analysis schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("analysis_schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile("analysis_schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile analysis schema: %w", err)
	}
	return schema, nil
})

// ValidateAnalysisJSON checks a JSON document against the analysis schema.
// The schema is compiled once and reused across calls.
func ValidateAnalysisJSON(data []byte) error {
	schema, err := compileAnalysisSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
