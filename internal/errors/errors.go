// Package errors provides the structured fault type shared by the scoring
// front-ends. Every fault carries a category, a code and a message; the
// category decides whether it is fatal at startup or rejected per request.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Category classifies faults by where they originate.
type Category string

const (
	CategoryArtifact   Category = "ARTIFACT"
	CategoryValidation Category = "VALIDATION"
	CategoryInternal   Category = "INTERNAL"
)

// Fault codes.
const (
	// Artifact codes
	CodeMissingArtifact = "MISSING_ARTIFACT"
	CodeInvalidArtifact = "INVALID_ARTIFACT"

	// Validation codes
	CodeMissingColumn   = "MISSING_COLUMN"
	CodeFeatureMismatch = "FEATURE_MISMATCH"
	CodeInvalidInput    = "INVALID_INPUT"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// Fault is the structured error type used throughout the service.
type Fault struct {
	Category Category
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

// Error returns a formatted error string.
func (e *Fault) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Fault) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this fault's category and code.
func (e *Fault) Is(target error) bool {
	var t *Fault
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new Fault.
func New(category Category, code, message string) *Fault {
	return &Fault{Category: category, Code: code, Message: message}
}

// Wrap creates a new Fault wrapping an existing error.
func Wrap(category Category, code, message string, cause error) *Fault {
	return &Fault{Category: category, Code: code, Message: message, Cause: cause}
}

// WithDetails returns a copy of the fault with additional details.
func (e *Fault) WithDetails(details map[string]interface{}) *Fault {
	cp := *e
	cp.Details = details
	return &cp
}

// Sentinels for errors.Is checks.
var (
	ErrMissingArtifact = New(CategoryArtifact, CodeMissingArtifact, "")
	ErrInvalidArtifact = New(CategoryArtifact, CodeInvalidArtifact, "")
	ErrMissingColumn   = New(CategoryValidation, CodeMissingColumn, "")
	ErrFeatureMismatch = New(CategoryValidation, CodeFeatureMismatch, "")
	ErrInvalidInput    = New(CategoryValidation, CodeInvalidInput, "")
)

func NewMissingArtifact(path string, cause error) *Fault {
	return Wrap(CategoryArtifact, CodeMissingArtifact, fmt.Sprintf("artifact not found: %s", path), cause).
		WithDetails(map[string]interface{}{"path": path})
}

func NewInvalidArtifact(path string, cause error) *Fault {
	return Wrap(CategoryArtifact, CodeInvalidArtifact, fmt.Sprintf("artifact could not be decoded: %s", path), cause).
		WithDetails(map[string]interface{}{"path": path})
}

func NewMissingColumn(column string, cause error) *Fault {
	return Wrap(CategoryValidation, CodeMissingColumn, fmt.Sprintf("missing required column %q", column), cause).
		WithDetails(map[string]interface{}{"column": column})
}

func NewFeatureMismatch(expected, actual int) *Fault {
	return New(CategoryValidation, CodeFeatureMismatch,
		fmt.Sprintf("Feature mismatch! Model expects %d features, but input has %d.", expected, actual)).
		WithDetails(map[string]interface{}{"expected": expected, "actual": actual})
}

func NewInvalidInput(message string, cause error) *Fault {
	return Wrap(CategoryValidation, CodeInvalidInput, message, cause)
}

func NewInternal(message string, cause error) *Fault {
	return Wrap(CategoryInternal, CodeUnexpected, message, cause)
}

// GetCategory extracts the fault category from an error chain.
// Returns empty string if the error is not a Fault.
func GetCategory(err error) Category {
	var f *Fault
	if errors.As(err, &f) {
		return f.Category
	}
	return ""
}

// GetCode extracts the fault code from an error chain.
// Returns empty string if the error is not a Fault.
func GetCode(err error) string {
	var f *Fault
	if errors.As(err, &f) {
		return f.Code
	}
	return ""
}

// Message returns the fault message, or err.Error() for other errors.
func Message(err error) string {
	var f *Fault
	if errors.As(err, &f) {
		return f.Message
	}
	return err.Error()
}

// HTTPStatus maps an error to the status code returned to clients.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case CodeMissingColumn, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeFeatureMismatch:
		return http.StatusUnprocessableEntity
	case CodeMissingArtifact, CodeInvalidArtifact:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
