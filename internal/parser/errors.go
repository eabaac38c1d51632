package parser

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of parse failure.
type ErrorType string

const (
	// ErrTypeParse indicates a structurally invalid checklist file.
	ErrTypeParse ErrorType = "parse"
	// ErrTypeUnsupported indicates content in neither checklist format.
	ErrTypeUnsupported ErrorType = "unsupported"
)

// Error is a structured parse error naming the offending file.
type Error struct {
	Err      error
	Filename string
	Type     ErrorType
	Message  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %s", e.Filename, e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewParseError wraps an underlying decode failure for a file.
func NewParseError(filename string, err error) *Error {
	return &Error{
		Filename: filename,
		Type:     ErrTypeParse,
		Message:  err.Error(),
		Err:      err,
	}
}

// NewParseErrorf creates a parse error with a formatted message.
func NewParseErrorf(filename, format string, args ...any) *Error {
	return &Error{
		Filename: filename,
		Type:     ErrTypeParse,
		Message:  fmt.Sprintf(format, args...),
	}
}

// NewUnsupportedFormatError reports content in neither checklist format.
func NewUnsupportedFormatError(filename string) *Error {
	return &Error{
		Filename: filename,
		Type:     ErrTypeUnsupported,
		Message:  "not a recognized checklist format (.ckl XML or .cklb JSON)",
	}
}

// IsParseError checks if the error is a parse error.
func IsParseError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == ErrTypeParse
}

// IsUnsupportedFormat checks if the error is an unsupported-format error.
func IsUnsupportedFormat(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == ErrTypeUnsupported
}
