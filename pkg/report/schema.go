package report

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// payloadSchema is the collector's contract for a bug report body.
const payloadSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["logs", "text", "version", "user_agent"],
	"properties": {
		"logs": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "lines"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"lines": {"type": "string"}
				},
				"additionalProperties": false
			}
		},
		"text": {"type": "string", "minLength": 1},
		"version": {"type": "string", "minLength": 1},
		"user_agent": {"type": "string", "minLength": 1}
	},
	"additionalProperties": false
}`

var payloadSchemaLoader = gojsonschema.NewStringLoader(payloadSchema)

// ValidatePayload checks body against the collector schema.
func ValidatePayload(body []byte) error {
	result, err := gojsonschema.Validate(payloadSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidPayload, strings.Join(problems, "; "))
}
