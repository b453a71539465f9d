package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrSchemaViolation is returned when a payload does not match its JSON schema.
var ErrSchemaViolation = errors.New("payload does not match schema")

var idSchema = map[string]any{
	"type":      []any{"string", "integer"},
	"minLength": 1,
}

var nullableIDSchema = map[string]any{
	"type":      []any{"string", "integer", "null"},
	"minLength": 1,
}

// SubmissionSchema describes the assignment payload accepted from clients.
var SubmissionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"assigned_to": nullableIDSchema,
		"collaborators": map[string]any{
			"type":        "array",
			"items":       idSchema,
			"uniqueItems": true,
		},
		"workflow_step_assignments": map[string]any{
			"type": "object",
			"additionalProperties": map[string]any{
				"type": []any{"string", "integer", "null"},
			},
		},
	},
}

// TaskSchema describes the task payload accepted by the task endpoints.
var TaskSchema = map[string]any{
	"type":     "object",
	"required": []any{"title"},
	"properties": map[string]any{
		"title":       map[string]any{"type": "string", "minLength": 1},
		"description": map[string]any{"type": "string"},
		"client_id":   nullableIDSchema,
		"workflow_id": nullableIDSchema,
		"due_date":    map[string]any{"type": []any{"string", "null"}, "format": "date-time"},
		"assigned_to": nullableIDSchema,
		"collaborators": map[string]any{
			"type":        "array",
			"items":       idSchema,
			"uniqueItems": true,
		},
		"workflow_step_assignments": map[string]any{
			"type": "object",
			"additionalProperties": map[string]any{
				"type": []any{"string", "integer", "null"},
			},
		},
	},
}

// ValidateJSON validates a raw JSON document against schema.
func ValidateJSON(schema map[string]any, document []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewBytesLoader(document),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSchemaViolation, err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			messages = append(messages, resultErr.String())
		}

		return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(messages, "; "))
	}

	return nil
}
