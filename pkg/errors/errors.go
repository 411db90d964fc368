// Package errors provides structured error handling for secpatch with categorization,
// severity levels, and contextual information so that per-fragment failures can be
// reported without aborting a batch.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorType represents the category of error
type ErrorType int

const (
	// ErrorTypeUnknown represents an unknown error type
	ErrorTypeUnknown ErrorType = iota

	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation

	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration

	// ErrorTypeFileSystem represents file system errors
	ErrorTypeFileSystem

	// ErrorTypeDataset represents tabular dataset errors (missing file, malformed rows)
	ErrorTypeDataset

	// ErrorTypePattern represents a detector that failed while scanning a fragment
	ErrorTypePattern

	// ErrorTypeRemediation represents a remediation that could not be produced
	ErrorTypeRemediation

	// ErrorTypePipeline represents a failure caught at the fragment boundary
	ErrorTypePipeline

	// ErrorTypeNetwork represents cache or server transport errors
	ErrorTypeNetwork

	// ErrorTypeGit represents repository access errors
	ErrorTypeGit

	// ErrorTypeSystem represents system-level errors
	ErrorTypeSystem
)

// String returns a string representation of the error type
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeValidation:
		return "validation"
	case ErrorTypeConfiguration:
		return "configuration"
	case ErrorTypeFileSystem:
		return "filesystem"
	case ErrorTypeDataset:
		return "dataset"
	case ErrorTypePattern:
		return "pattern"
	case ErrorTypeRemediation:
		return "remediation"
	case ErrorTypePipeline:
		return "pipeline"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeGit:
		return "git"
	case ErrorTypeSystem:
		return "system"
	default:
		return "unknown"
	}
}

// Severity represents the severity level of an error
type Severity int

const (
	// SeverityLow represents low severity errors (warnings)
	SeverityLow Severity = iota

	// SeverityMedium represents medium severity errors (recoverable)
	SeverityMedium

	// SeverityHigh represents high severity errors (fatal to a run)
	SeverityHigh
)

// String returns a string representation of the severity
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// secpatchError represents a structured error with additional context
type secpatchError struct {
	errorType   ErrorType
	severity    Severity
	message     string
	cause       error
	context     map[string]interface{}
	recoverable bool
	suggestions []string
}

// Error implements the error interface
func (e *secpatchError) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[%s:%s]", e.errorType.String(), e.severity.String()))
	parts = append(parts, e.message)

	if e.cause != nil {
		parts = append(parts, fmt.Sprintf("caused by: %s", e.cause.Error()))
	}

	return strings.Join(parts, " ")
}

// Type returns the error type
func (e *secpatchError) Type() ErrorType {
	return e.errorType
}

// Severity returns the error severity
func (e *secpatchError) Severity() Severity {
	return e.severity
}

// Cause returns the underlying cause of the error
func (e *secpatchError) Cause() error {
	return e.cause
}

// Context returns the error context
func (e *secpatchError) Context() map[string]interface{} {
	return e.context
}

// IsRecoverable returns whether the error is recoverable
func (e *secpatchError) IsRecoverable() bool {
	return e.recoverable
}

// Suggestions returns suggested actions to resolve the error
func (e *secpatchError) Suggestions() []string {
	return e.suggestions
}

// Unwrap returns the underlying error for compatibility with errors.Unwrap
func (e *secpatchError) Unwrap() error {
	return e.cause
}

// ErrorBuilder helps construct structured errors
type ErrorBuilder struct {
	errorType   ErrorType
	severity    Severity
	message     string
	cause       error
	context     map[string]interface{}
	recoverable bool
	suggestions []string
}

// NewError creates a new error builder
func NewError(errorType ErrorType) *ErrorBuilder {
	return &ErrorBuilder{
		errorType:   errorType,
		severity:    SeverityMedium,
		context:     make(map[string]interface{}),
		recoverable: false,
		suggestions: []string{},
	}
}

// WithMessage sets the error message
func (eb *ErrorBuilder) WithMessage(message string) *ErrorBuilder {
	eb.message = message
	return eb
}

// WithMessagef sets the error message with formatting
func (eb *ErrorBuilder) WithMessagef(format string, args ...interface{}) *ErrorBuilder {
	eb.message = fmt.Sprintf(format, args...)
	return eb
}

// WithCause sets the underlying cause of the error
func (eb *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	eb.cause = cause
	return eb
}

// WithSeverity sets the error severity
func (eb *ErrorBuilder) WithSeverity(severity Severity) *ErrorBuilder {
	eb.severity = severity
	return eb
}

// WithContext adds context information
func (eb *ErrorBuilder) WithContext(key string, value interface{}) *ErrorBuilder {
	eb.context[key] = value
	return eb
}

// WithRecoverable marks the error as recoverable
func (eb *ErrorBuilder) WithRecoverable(recoverable bool) *ErrorBuilder {
	eb.recoverable = recoverable
	return eb
}

// WithSuggestion adds a suggested action
func (eb *ErrorBuilder) WithSuggestion(suggestion string) *ErrorBuilder {
	eb.suggestions = append(eb.suggestions, suggestion)
	return eb
}

// Build creates the final error
func (eb *ErrorBuilder) Build() error {
	return &secpatchError{
		errorType:   eb.errorType,
		severity:    eb.severity,
		message:     eb.message,
		cause:       eb.cause,
		context:     eb.context,
		recoverable: eb.recoverable,
		suggestions: eb.suggestions,
	}
}

// Convenience functions for common error types

// ValidationError creates a validation error
func ValidationError(message string) error {
	return NewError(ErrorTypeValidation).
		WithMessage(message).
		WithSeverity(SeverityLow).
		WithRecoverable(true).
		Build()
}

// ConfigurationError creates a configuration error
func ConfigurationError(message string) error {
	return NewError(ErrorTypeConfiguration).
		WithMessage(message).
		WithSeverity(SeverityHigh).
		WithRecoverable(true).
		WithSuggestion("Check your configuration file").
		WithSuggestion("Run 'secpatch config validate' to verify settings").
		Build()
}

// DatasetError creates an error for a dataset that cannot be read or written.
// Dataset errors are fatal to a batch run.
func DatasetError(path string, cause error) error {
	return NewError(ErrorTypeDataset).
		WithMessagef("dataset %s could not be processed", path).
		WithCause(cause).
		WithSeverity(SeverityHigh).
		WithRecoverable(false).
		WithContext("path", path).
		WithSuggestion("Check that the file exists and is a well-formed CSV").
		WithSuggestion("Check that the configured input column is present in the header").
		Build()
}

// PatternError creates an error for a single detector that failed on one fragment
func PatternError(detector string, cause error) error {
	return NewError(ErrorTypePattern).
		WithMessagef("detector '%s' failed", detector).
		WithCause(cause).
		WithSeverity(SeverityLow).
		WithRecoverable(true).
		WithContext("detector", detector).
		Build()
}

// CapabilityError creates an error for a recognized process tool that has no
// registered remediation generator
func CapabilityError(tool string) error {
	return NewError(ErrorTypeRemediation).
		WithMessagef("no remediation registered for process tool '%s'", tool).
		WithSeverity(SeverityMedium).
		WithRecoverable(true).
		WithContext("tool", tool).
		WithSuggestion("Register a template for the tool in the pattern catalog").
		WithSuggestion("Set patch.unregistered_tool_policy to 'passthrough' to leave such calls unchanged").
		Build()
}

// PipelineError creates an error for a failure caught at the fragment boundary
func PipelineError(family string, cause error) error {
	return NewError(ErrorTypePipeline).
		WithMessagef("%s pipeline failed; fragment left unchanged", family).
		WithCause(cause).
		WithSeverity(SeverityMedium).
		WithRecoverable(true).
		WithContext("family", family).
		Build()
}

// FileSystemError creates a file system error
func FileSystemError(operation, path string, cause error) error {
	return NewError(ErrorTypeFileSystem).
		WithMessagef("%s %s failed", operation, path).
		WithCause(cause).
		WithSeverity(SeverityHigh).
		WithRecoverable(false).
		WithContext("operation", operation).
		WithContext("path", path).
		Build()
}

// Type checking functions

func asSecpatchError(err error) (*secpatchError, bool) {
	var spErr *secpatchError
	if stderrors.As(err, &spErr) {
		return spErr, true
	}
	return nil, false
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	if spErr, ok := asSecpatchError(err); ok {
		return spErr.Type() == errorType
	}
	return false
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	if spErr, ok := asSecpatchError(err); ok {
		return spErr.IsRecoverable()
	}
	return false
}

// GetSuggestions extracts suggestions from an error
func GetSuggestions(err error) []string {
	if spErr, ok := asSecpatchError(err); ok {
		return spErr.Suggestions()
	}
	return []string{}
}

// GetContext extracts context from an error
func GetContext(err error) map[string]interface{} {
	if spErr, ok := asSecpatchError(err); ok {
		return spErr.Context()
	}
	return nil
}
