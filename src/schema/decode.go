package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrSchemaMismatch is returned when a structured answer cannot be validated
// against the schema it was requested with.
var ErrSchemaMismatch = errors.New("answer does not match schema")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode parses content into dst, rejecting unknown keys and trailing data,
// then validates dst with its validate struct tags. Every failure wraps
// ErrSchemaMismatch. dst is only meaningful when Decode returns nil.
func Decode(content string, dst any) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("%w: empty answer", ErrSchemaMismatch)
	}

	dec := json.NewDecoder(strings.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: unexpected data after JSON value", ErrSchemaMismatch)
	}

	if err := Validate(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return nil
}

// Validate runs struct validation on v and flattens validator errors into a
// single readable error.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		if e.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed on '%s=%s'", e.Namespace(), e.Tag(), e.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed on '%s'", e.Namespace(), e.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
