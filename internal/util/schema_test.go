package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type weatherArgs struct {
	City string `json:"city" description:"City name"`
	Unit string `json:"unit,omitempty" enum:"celsius, fahrenheit"`
}

func TestSchemaFor(t *testing.T) {
	schema, resolved, err := SchemaFor[weatherArgs]()
	require.NoError(t, err)
	require.NotNil(t, resolved)

	assert.Equal(t, "object", schema["type"])
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)

	city := props["city"].(map[string]any)
	assert.Equal(t, "City name", city["description"])

	unit := props["unit"].(map[string]any)
	assert.Equal(t, []any{"celsius", "fahrenheit"}, unit["enum"])

	assert.Contains(t, schema["required"], "city")
	assert.NotContains(t, schema, "$schema")
}

func TestValidateParameters(t *testing.T) {
	resolved, err := CompileSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{"type": "string"},
		},
		"required": []string{"id"},
	})
	require.NoError(t, err)

	assert.NoError(t, ValidateParameters("transfer", resolved, map[string]any{"id": "billing"}))

	err = ValidateParameters("transfer", resolved, map[string]any{})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "transfer", vErr.Tool)

	err = ValidateParameters("transfer", resolved, map[string]any{"id": 42})
	require.ErrorAs(t, err, &vErr)
}

func TestValidateParameters_NilSchema(t *testing.T) {
	assert.NoError(t, ValidateParameters("any", nil, map[string]any{"x": 1}))
}

func TestCompileSchema_Empty(t *testing.T) {
	resolved, err := CompileSchema(nil)
	require.NoError(t, err)
	assert.NoError(t, ValidateParameters("free", resolved, map[string]any{"anything": true}))
}

func TestDecodeArguments(t *testing.T) {
	args, err := DecodeArguments[weatherArgs](map[string]any{"city": "Berlin", "unit": "celsius"})
	require.NoError(t, err)
	assert.Equal(t, weatherArgs{City: "Berlin", Unit: "celsius"}, args)
}
