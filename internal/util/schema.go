package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// ValidationError represents a tool argument payload that does not satisfy
// the tool's parameter schema.
type ValidationError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for tool '%s': %s", e.Tool, e.Message)
}

var errNilSchema = errors.New("schema reflection returned nil")

// SchemaFor reflects a JSON schema for T and returns it both as a plain map
// (for the wire) and as a resolved validator. Root level struct fields may
// carry `description` and `enum` tags.
func SchemaFor[T any]() (map[string]any, *jsonschema.Resolved, error) {
	schema, err := jsonschema.For[T](&jsonschema.ForOptions{})
	if err != nil {
		return nil, nil, err
	}
	if schema == nil {
		return nil, nil, errNilSchema
	}

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, nil, err
	}

	var schemaMap map[string]any
	if err := json.Unmarshal(data, &schemaMap); err != nil {
		return nil, nil, err
	}

	enrichFromStructTags(schemaMap, reflect.TypeOf(*new(T)))
	delete(schemaMap, "$schema")

	resolved, err := CompileSchema(schemaMap)
	if err != nil {
		return nil, nil, err
	}

	return schemaMap, resolved, nil
}

// CompileSchema resolves a raw JSON schema map into a validator. A nil or
// empty map compiles to a permissive object schema. The map is not mutated.
func CompileSchema(schemaMap map[string]any) (*jsonschema.Resolved, error) {
	if len(schemaMap) == 0 {
		schemaMap = map[string]any{"type": "object"}
	}

	data, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, err
	}

	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}

	return s.Resolve(nil)
}

// ValidateParameters checks args against a resolved schema. A nil schema
// accepts everything.
func ValidateParameters(tool string, resolved *jsonschema.Resolved, args map[string]any) error {
	if resolved == nil {
		return nil
	}

	// The validator expects the JSON data model, so normalise Go values first.
	var instance any = map[string]any{}
	if len(args) > 0 {
		data, err := json.Marshal(args)
		if err != nil {
			return &ValidationError{Tool: tool, Message: err.Error()}
		}
		if err := json.Unmarshal(data, &instance); err != nil {
			return &ValidationError{Tool: tool, Message: err.Error()}
		}
	}

	if err := resolved.Validate(instance); err != nil {
		return &ValidationError{Tool: tool, Message: err.Error()}
	}

	return nil
}

// DecodeArguments converts a decoded argument map into T using JSON
// round-tripping.
func DecodeArguments[T any](args map[string]any) (T, error) {
	var out T

	data, err := json.Marshal(args)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, err
	}

	return out, nil
}

func enrichFromStructTags(schemaMap map[string]any, typ reflect.Type) {
	if typ == nil {
		return
	}
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return
	}

	props, ok := schemaMap["properties"].(map[string]any)
	if !ok {
		return
	}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		name := strings.Split(field.Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			continue
		}

		prop, ok := props[name].(map[string]any)
		if !ok {
			continue
		}

		if desc := field.Tag.Get("description"); desc != "" {
			prop["description"] = desc
		}
		if enumTag := field.Tag.Get("enum"); enumTag != "" {
			parts := strings.Split(enumTag, ",")
			enum := make([]any, len(parts))
			for i, p := range parts {
				enum[i] = strings.TrimSpace(p)
			}
			prop["enum"] = enum
		}
	}
}
