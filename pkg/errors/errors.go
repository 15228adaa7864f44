// Package errors defines the categorized error types used by the
// profitability analyzer.
//
// Terminal failures (missing directories, unloadable card data, no customer
// groups) are represented as AnalysisError values that carry a category, a
// machine-readable code, an optional suggestion, and an exit code. Recoverable
// per-customer conditions (unreadable batches, malformed benefit rules) are
// handled locally by the components and never surface through this package.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Category groups errors by the subsystem that raised them.
type Category string

const (
	CategoryFile          Category = "file"
	CategoryParse         Category = "parse"
	CategoryValidation    Category = "validation"
	CategoryConfiguration Category = "configuration"
	CategoryAnalysis      Category = "analysis"
	CategoryNetwork       Category = "network"
	CategoryInternal      Category = "internal"
)

// Code identifies a specific error condition within a category.
type Code string

const (
	// File errors
	CodeFileNotFound   Code = "file_not_found"
	CodeFileUnreadable Code = "file_unreadable"
	CodeDirectoryError Code = "directory_error"

	// Parse errors
	CodeInvalidFormat Code = "invalid_format"
	CodeInvalidData   Code = "invalid_data"

	// Validation errors
	CodeMissingField Code = "missing_field"
	CodeEmptyInput   Code = "empty_input"

	// Configuration errors
	CodeMissingConfig Code = "missing_config"
	CodeInvalidConfig Code = "invalid_config"

	// Analysis errors
	CodeNoCardProducts Code = "no_card_products"
	CodeNoGroups       Code = "no_customer_groups"
	CodeProcessing     Code = "processing_error"

	// Network errors
	CodeRequestFailed Code = "request_failed"
	CodeTimeout       Code = "timeout"

	// Internal errors
	CodeUnexpected Code = "unexpected_error"
)

// Context provides additional structured information about an error.
type Context map[string]interface{}

// AnalysisError is the base error type for terminal analyzer failures.
type AnalysisError struct {
	Category   Category          `json:"category"`
	Code       Code              `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error.
func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

// ExitCode maps the error category to a process exit code.
func (e *AnalysisError) ExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryAnalysis, CategoryInternal:
		return 5
	case CategoryNetwork:
		return 6
	default:
		return 1
	}
}

// WithContext adds context information to the error.
func (e *AnalysisError) WithContext(key string, value interface{}) *AnalysisError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error.
func (e *AnalysisError) WithSuggestion(suggestion string) *AnalysisError {
	e.Suggestion = suggestion
	return e
}

// stackTracer is implemented by errors created through github.com/pkg/errors.
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a new AnalysisError.
func New(category Category, code Code, message string) *AnalysisError {
	return &AnalysisError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with analyzer context.
func Wrap(err error, category Category, code Code, message string) *AnalysisError {
	if err == nil {
		return nil
	}
	return &AnalysisError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// FileError creates a file-related terminal error.
func FileError(code Code, path string, err error) *AnalysisError {
	var message, suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check that the path is correct and the file exists"
	case CodeFileUnreadable:
		message = fmt.Sprintf("file is not readable: %s", path)
		suggestion = "check file permissions"
	case CodeDirectoryError:
		message = fmt.Sprintf("directory error: %s", path)
		suggestion = "ensure the directory exists and is accessible"
	default:
		message = fmt.Sprintf("file error: %s", path)
	}

	result := &AnalysisError{
		Category:   CategoryFile,
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
	if err != nil {
		result.StackTrace = errors.WithStack(err).(stackTracer).StackTrace()
	}
	return result.WithContext("path", path)
}

// ConfigError creates a configuration-related terminal error.
func ConfigError(code Code, setting string, err error) *AnalysisError {
	var message, suggestion string

	switch code {
	case CodeMissingConfig:
		message = fmt.Sprintf("required configuration is not set: %s", setting)
		suggestion = fmt.Sprintf("set %s via flag, environment variable, or .env file", setting)
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration value: %s", setting)
		suggestion = "check the configuration value and its documented range"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
	}

	result := &AnalysisError{
		Category:   CategoryConfiguration,
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
	return result.WithContext("setting", setting)
}

// ParseError creates a parse-related terminal error.
func ParseError(code Code, source string, err error) *AnalysisError {
	var message, suggestion string

	switch code {
	case CodeInvalidFormat:
		message = fmt.Sprintf("invalid file format: %s", source)
		suggestion = "verify the file contains the expected JSON structure"
	case CodeInvalidData:
		message = fmt.Sprintf("invalid data in: %s", source)
		suggestion = "inspect the file contents for malformed records"
	default:
		message = fmt.Sprintf("parse error: %s", source)
	}

	result := &AnalysisError{
		Category:   CategoryParse,
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
	return result.WithContext("source", source)
}

// AnalysisFailure creates an analysis-related terminal error.
func AnalysisFailure(code Code, message string, err error) *AnalysisError {
	result := &AnalysisError{
		Category: CategoryAnalysis,
		Code:     code,
		Message:  message,
		Cause:    err,
	}

	switch code {
	case CodeNoCardProducts:
		result.Suggestion = "check that the card data file declares at least one product"
	case CodeNoGroups:
		result.Suggestion = "check that the transaction data directory contains customer group subdirectories"
	}

	return result
}

// IsCategory reports whether err is an AnalysisError of the given category.
func IsCategory(err error, category Category) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Category == category
	}
	return false
}

// GetExitCode returns the exit code for any error value.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.ExitCode()
	}
	return 1
}
