package config

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/elee1766/stepwise/src/stepagent/tools"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

var logLevels = []string{"debug", "info", "warn", "error"}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error { return ErrInvalidConfig }

// Validator validates configuration values using go-playground/validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	v := validator.New()
	// report yaml key paths instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	v.RegisterValidation("log_level", validateLogLevel)
	v.RegisterValidation("tool_name", validateToolName)

	return &Validator{validate: v}
}

// Validate validates a complete configuration
func (v *Validator) Validate(config *Config) error {
	err := v.validate.Struct(config)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	// the first failure is enough to act on
	e := validationErrors[0]
	field := strings.TrimPrefix(e.Namespace(), "Config.")
	msg := fmt.Sprintf("failed on '%s'", e.Tag())
	if e.Param() != "" {
		msg = fmt.Sprintf("failed on '%s=%s'", e.Tag(), e.Param())
	}
	return ValidationError{
		Field:   field,
		Message: fmt.Sprintf("%s with value '%v'", msg, e.Value()),
		Value:   e.Value(),
	}
}

// Validate checks c with a fresh Validator.
func Validate(c *Config) error {
	return NewValidator().Validate(c)
}

func validateLogLevel(fl validator.FieldLevel) bool {
	return slices.Contains(logLevels, strings.ToLower(fl.Field().String()))
}

func validateToolName(fl validator.FieldLevel) bool {
	return slices.Contains(tools.AllNames, fl.Field().String())
}
