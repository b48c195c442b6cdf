// Package doclink provides custom error types for better error handling and reporting.
package doclink

import (
	"fmt"
	"strings"
)

// DocumentError represents an error during document operations
type DocumentError struct {
	Operation string
	Path      string
	Cause     error
}

func (e *DocumentError) Error() string {
	if e.Path != "" && e.Cause != nil {
		return fmt.Sprintf("document error during %s of '%s': %v", e.Operation, e.Path, e.Cause)
	} else if e.Path != "" {
		return fmt.Sprintf("document error during %s of '%s'", e.Operation, e.Path)
	} else if e.Cause != nil {
		return fmt.Sprintf("document error during %s: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("document error during %s", e.Operation)
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}

// NewDocumentError creates a new document error
func NewDocumentError(operation, path string, cause error) error {
	return &DocumentError{
		Operation: operation,
		Path:      path,
		Cause:     cause,
	}
}

// ValidationIssue represents a single validation problem
type ValidationIssue struct {
	Field   string
	Message string
}

// ValidationError represents multiple validation issues found at one
// validation stage
type ValidationError struct {
	Stage  string
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	prefix := "validation error"
	if e.Stage != "" {
		prefix = fmt.Sprintf("validation error at stage %q", e.Stage)
	}

	if len(e.Issues) == 0 {
		return prefix
	}

	if len(e.Issues) == 1 {
		return fmt.Sprintf("%s: %s - %s", prefix, e.Issues[0].Field, e.Issues[0].Message)
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%s: %d issues:", prefix, len(e.Issues)))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("  %s: %s", issue.Field, issue.Message))
	}
	return strings.Join(parts, "\n")
}

// RelationshipError represents a failure involving a hyperlink relationship,
// either a dangling reference found during extraction or a failure
// mid-swap. During indicates which phase the error occurred in
// ("extraction" or "swap").
type RelationshipError struct {
	RelID  string
	During string
	Cause  error
}

func (e *RelationshipError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("relationship error for %q during %s: %v", e.RelID, e.During, e.Cause)
	}
	return fmt.Sprintf("relationship error for %q during %s", e.RelID, e.During)
}

func (e *RelationshipError) Unwrap() error {
	return e.Cause
}

// ResolverError represents a transport or protocol failure talking to the
// lookup service. It is non-fatal: the client falls back to simulation mode
// or classifies the affected identifiers as missing.
type ResolverError struct {
	Endpoint string
	Cause    error
}

func (e *ResolverError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("resolver error calling %s: %v", e.Endpoint, e.Cause)
	}
	return fmt.Sprintf("resolver error: %v", e.Cause)
}

func (e *ResolverError) Unwrap() error {
	return e.Cause
}

// LockedFileError represents a file that stayed locked through every retry
// attempt.
type LockedFileError struct {
	Path     string
	Attempts int
	Cause    error
}

func (e *LockedFileError) Error() string {
	return fmt.Sprintf("file '%s' still locked after %d attempts: %v", e.Path, e.Attempts, e.Cause)
}

func (e *LockedFileError) Unwrap() error {
	return e.Cause
}

// RollbackError pairs the error that triggered a rollback with a failure
// encountered while restoring the backup. Its presence means the document
// on disk may be in an inconsistent state.
type RollbackError struct {
	Trigger error
	Restore error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("rollback failed: %v (triggered by: %v)", e.Restore, e.Trigger)
}

func (e *RollbackError) Unwrap() error {
	return e.Restore
}

// MultiError collects multiple errors
type MultiError struct {
	errors []error
}

// NewMultiError creates a new multi-error collector
func NewMultiError() *MultiError {
	return &MultiError{
		errors: make([]error, 0),
	}
}

// Add adds an error to the collection (ignores nil errors)
func (m *MultiError) Add(err error) {
	if err != nil {
		m.errors = append(m.errors, err)
	}
}

// Len returns the number of errors
func (m *MultiError) Len() int {
	return len(m.errors)
}

// Err returns the multi-error or nil if empty
func (m *MultiError) Err() error {
	if len(m.errors) == 0 {
		return nil
	}
	if len(m.errors) == 1 {
		return m.errors[0]
	}
	return m
}

func (m *MultiError) Error() string {
	if len(m.errors) == 0 {
		return "no errors"
	}

	if len(m.errors) == 1 {
		return m.errors[0].Error()
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%d errors occurred:", len(m.errors)))
	for i, err := range m.errors {
		parts = append(parts, fmt.Sprintf("  [%d] %v", i+1, err))
	}
	return strings.Join(parts, "\n")
}

// ContextError adds context to an existing error
type ContextError struct {
	Operation string
	Context   map[string]interface{}
	Cause     error
}

func (e *ContextError) Error() string {
	var contextParts []string
	for k, v := range e.Context {
		contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
	}

	if len(contextParts) > 0 {
		return fmt.Sprintf("%s [%s]: %v", e.Operation, strings.Join(contextParts, ", "), e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

func (e *ContextError) Unwrap() error {
	return e.Cause
}

// WithContext wraps an error with additional context
func WithContext(err error, operation string, context map[string]interface{}) error {
	if err == nil {
		return nil
	}
	return &ContextError{
		Operation: operation,
		Context:   context,
		Cause:     err,
	}
}

// RecoverError converts a panic recovery value to an error
func RecoverError(r interface{}) error {
	switch v := r.(type) {
	case error:
		return fmt.Errorf("panic recovered: %w", v)
	case string:
		return fmt.Errorf("panic recovered: %s", v)
	default:
		return fmt.Errorf("panic recovered: %v", v)
	}
}

// IsDocumentError checks if an error is a document error
func IsDocumentError(err error) bool {
	_, ok := err.(*DocumentError)
	return ok
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

// IsRelationshipError checks if an error is a relationship error
func IsRelationshipError(err error) bool {
	_, ok := err.(*RelationshipError)
	return ok
}

// IsLockedFileError checks if an error is a locked-file error
func IsLockedFileError(err error) bool {
	_, ok := err.(*LockedFileError)
	return ok
}
