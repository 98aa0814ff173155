package errtax

import (
	"errors"
	"fmt"
)

// Error is the structured error type returned at every API boundary in
// the engine. It carries a closed category, a human-readable message,
// optional structured details, an underlying cause, and a recovery hint.
type Error struct {
	Category Category
	Message  string
	Details  map[string]any
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Category, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by category, so errors.Is(err, New(CategoryDocumentNotFound, "", nil)) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Category == t.Category
}

// WithDetail adds a key-value detail and returns e for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Recovery returns the recovery hint for this error's category.
func (e *Error) Recovery() Recovery {
	return RecoveryFor(e.Category)
}

// New creates an Error with the given category, message, and cause.
func New(category Category, message string, cause error) *Error {
	return &Error{Category: category, Message: message, Cause: cause}
}

// Newf creates an Error with a formatted message.
func Newf(category Category, cause error, format string, args ...any) *Error {
	return New(category, fmt.Sprintf(format, args...), cause)
}

// Validation and Internal are small convenience constructors for the
// categories used most often by calling code.
func Validation(message string, cause error) *Error { return New(CategoryValidation, message, cause) }
func Internal(message string, cause error) *Error    { return New(CategoryInternal, message, cause) }

// GetCategory extracts the category from err if it is (or wraps) an *Error.
// Returns "" for any other error, including nil.
func GetCategory(err error) Category {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Category
	}
	return ""
}
