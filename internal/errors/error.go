package errors

import (
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig Category = "config"
	CategoryWatch  Category = "watch"
	CategoryBuild  Category = "build"
	CategoryServe  Category = "serve"
)

// LivedevError is a structured error with a code, a hint and an optional
// wrapped cause.
type LivedevError struct {
	// Code is a unique error identifier (e.g., "E201").
	Code string

	// Category is the error type (config, watch, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *LivedevError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *LivedevError) Unwrap() error {
	return e.Wrapped
}

// WithSuggestion adds a fix suggestion to the error.
func (e *LivedevError) WithSuggestion(s string) *LivedevError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *LivedevError) WithDetail(d string) *LivedevError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *LivedevError) Wrap(err error) *LivedevError {
	e.Wrapped = err
	return e
}

// New creates a LivedevError from a registered error code.
func New(code string) *LivedevError {
	template, ok := registry[code]
	if !ok {
		return &LivedevError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &LivedevError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Suggestion: template.Suggestion,
	}
}

