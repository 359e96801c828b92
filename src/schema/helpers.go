package schema

import (
	jsonschema "github.com/swaggest/jsonschema-go"
)

// Helper functions to create JSON schemas

// CreateStringSchema creates a JSON schema for a string field
func CreateStringSchema(description string) *jsonschema.Schema {
	strType := jsonschema.SimpleType("string")
	s := &jsonschema.Schema{
		Type: &jsonschema.Type{SimpleTypes: &strType},
	}
	if description != "" {
		s.Description = &description
	}
	return s
}

// CreateArraySchema creates a JSON schema for an array whose elements match items.
// Bounds below zero are left unset.
func CreateArraySchema(description string, items *jsonschema.Schema, minItems, maxItems int64) *jsonschema.Schema {
	arrType := jsonschema.SimpleType("array")
	s := &jsonschema.Schema{
		Type:  &jsonschema.Type{SimpleTypes: &arrType},
		Items: &jsonschema.Items{SchemaOrBool: &jsonschema.SchemaOrBool{TypeObject: items}},
	}
	if description != "" {
		s.Description = &description
	}
	if minItems > 0 {
		s.MinItems = minItems
	}
	if maxItems >= 0 {
		s.MaxItems = &maxItems
	}
	return s
}

// CreateObjectSchema creates a JSON schema for an object with properties and required fields
func CreateObjectSchema(properties map[string]*jsonschema.Schema, required []string) *jsonschema.Schema {
	schemaProps := make(map[string]jsonschema.SchemaOrBool)
	for name, prop := range properties {
		schemaProps[name] = jsonschema.SchemaOrBool{TypeObject: prop}
	}

	objType := jsonschema.SimpleType("object")
	return &jsonschema.Schema{
		Type:       &jsonschema.Type{SimpleTypes: &objType},
		Properties: schemaProps,
		Required:   required,
	}
}

// CreateStrictObjectSchema is CreateObjectSchema with additionalProperties
// set to false, as strict structured output modes require.
func CreateStrictObjectSchema(properties map[string]*jsonschema.Schema, required []string) *jsonschema.Schema {
	return DisallowAdditionalProperties(CreateObjectSchema(properties, required))
}

// DisallowAdditionalProperties sets additionalProperties to false on s and returns it.
func DisallowAdditionalProperties(s *jsonschema.Schema) *jsonschema.Schema {
	f := false
	s.AdditionalProperties = &jsonschema.SchemaOrBool{TypeBoolean: &f}
	return s
}
