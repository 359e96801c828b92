// Package schema builds the JSON schemas sent to the language model and
// decodes structured answers against them.
//
// Response schemas are assembled with the Create* helpers. Tool parameter
// schemas are reflected from Go structs with Reflect. Decode is the
// validate-then-parse step: it rejects unknown keys, then runs
// go-playground/validator over the decoded struct, and reports any mismatch
// as ErrSchemaMismatch.
//
// Example usage:
//
//	planSchema := schema.CreateStrictObjectSchema(map[string]*jsonschema.Schema{
//		"steps": schema.CreateArraySchema("", schema.CreateStringSchema(""), 0, -1),
//	}, []string{"steps"})
//
//	var wire struct {
//		Steps *[]string `json:"steps" validate:"required,dive,required"`
//	}
//	if err := schema.Decode(content, &wire); err != nil {
//		// errors.Is(err, schema.ErrSchemaMismatch)
//	}
package schema
