package models

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var fieldValidator = validator.New()

// FieldError is one field-level violation reported to clients.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects field violations found while validating an input.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Err returns nil when nothing was added.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func fieldError(field, message string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func requireText(verr *ValidationError, field string, value *string) {
	if value == nil || strings.TrimSpace(*value) == "" {
		verr.Add(field, "is required")
	}
}

func validEmail(email string) bool {
	return fieldValidator.Var(email, "required,email") == nil
}
