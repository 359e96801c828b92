package schema

import (
	"fmt"

	jsonschema "github.com/swaggest/jsonschema-go"
)

// Reflect generates a JSON schema from the struct type of v. Field names come
// from json tags, and required/description tags are honored. With strict set,
// additionalProperties is false.
func Reflect(v any, strict bool) (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{}
	s, err := reflector.Reflect(v)
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema: %w", err)
	}
	if strict {
		DisallowAdditionalProperties(&s)
	}
	return &s, nil
}
