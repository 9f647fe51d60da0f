package errors

import (
	"fmt"
	"sync"
)

// Category represents the type of error.
type Category string

const (
	CategoryUsage   Category = "usage"
	CategoryVeto    Category = "veto"
	CategoryBinding Category = "binding"
	CategoryConfig  Category = "config"
	CategoryStorage Category = "storage"
	CategoryCLI     Category = "cli"
)

// Error is a structured error with a registry code, detail and suggestion.
type Error struct {
	// Code is a unique error identifier (e.g., "OB002").
	Code string

	// Category is the error type.
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
func (e *Error) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithSuggestion adds a fix suggestion to the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// WithDetailf adds a formatted detail to the error.
func (e *Error) WithDetailf(format string, args ...any) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

var (
	lookupMu sync.RWMutex
	lookup   func(code string) (string, bool)
)

// SetMessageLookup installs a code→message resolver consulted by New before
// the built-in registry. Passing nil restores the registry messages.
func SetMessageLookup(fn func(code string) (string, bool)) {
	lookupMu.Lock()
	lookup = fn
	lookupMu.Unlock()
}

func resolveMessage(code, fallback string) string {
	lookupMu.RLock()
	fn := lookup
	lookupMu.RUnlock()
	if fn != nil {
		if msg, ok := fn(code); ok {
			return msg
		}
	}
	return fallback
}

// New creates an Error from a registered error code.
func New(code string) *Error {
	template, ok := GetTemplate(code)
	if !ok {
		return &Error{
			Code:    code,
			Message: resolveMessage(code, "Unknown error"),
		}
	}
	return &Error{
		Code:       code,
		Category:   template.Category,
		Message:    resolveMessage(code, template.Message),
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new Error with a formatted message (no code).
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in an Error.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return New(code).Wrap(err)
}
