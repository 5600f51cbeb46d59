// internal/common/validation/schema.go

// Package validation checks inbound trigger payloads against JSON schemas
// before any pipeline work starts.
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// PublishRequestSchema constrains the publish trigger body.
const PublishRequestSchema = `{
	"type": "object",
	"properties": {
		"contentItemId": {"type": "string", "minLength": 1}
	},
	"required": ["contentItemId"],
	"additionalProperties": false
}`

// ValidateJSON validates a raw JSON document against a schema string and
// returns one error summarizing all violations.
func ValidateJSON(schema, document string) error {
	schemaLoader := gojsonschema.NewStringLoader(schema)
	documentLoader := gojsonschema.NewStringLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("invalid request: %s", strings.Join(msgs, "; "))
}
