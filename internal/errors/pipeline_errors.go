// Package errors defines the typed failures of a pipeline run.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of pipeline error
type ErrorType string

const (
	ErrorTypeMissingFile ErrorType = "missing_file"
	ErrorTypeLoad        ErrorType = "load"
	ErrorTypeTransform   ErrorType = "transform"
	ErrorTypeStorage     ErrorType = "storage"
	ErrorTypeExport      ErrorType = "export"
	ErrorTypeRender      ErrorType = "render"
)

// Phase numbers as printed in the console report
const (
	PhaseLoading        = 1
	PhaseTransformation = 2
	PhaseSink           = 3
)

// PipelineError represents a failure of one pipeline operation
type PipelineError struct {
	Type      ErrorType `json:"type"`
	Phase     int       `json:"phase"`
	Operation string    `json:"operation"`
	Message   string    `json:"message"`
	Cause     error     `json:"cause,omitempty"`
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	if e == nil {
		return "unknown pipeline error"
	}
	msg := fmt.Sprintf("[%s] Phase %d / %s: %s", e.Type, e.Phase, e.Operation, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Fatal reports whether the error halts the pipeline.
// Loading and transformation failures are fatal; sink failures are isolated.
func (e *PipelineError) Fatal() bool {
	if e == nil {
		return false
	}
	switch e.Type {
	case ErrorTypeMissingFile, ErrorTypeLoad, ErrorTypeTransform:
		return true
	}
	return false
}

// NewMissingFileError creates an error for an input file that does not exist
func NewMissingFileError(path string, cause error) *PipelineError {
	return &PipelineError{
		Type:      ErrorTypeMissingFile,
		Phase:     PhaseLoading,
		Operation: "load workbook",
		Message:   fmt.Sprintf("%s not found", path),
		Cause:     cause,
	}
}

// NewLoadError creates an error for a workbook that cannot be read
func NewLoadError(message string, cause error) *PipelineError {
	return &PipelineError{
		Type:      ErrorTypeLoad,
		Phase:     PhaseLoading,
		Operation: "load workbook",
		Message:   message,
		Cause:     cause,
	}
}

// NewTransformError creates an error for the cleaning phase
func NewTransformError(operation, message string, cause error) *PipelineError {
	return &PipelineError{
		Type:      ErrorTypeTransform,
		Phase:     PhaseTransformation,
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

// NewStorageError creates an error for the database write or read-back
func NewStorageError(operation string, cause error) *PipelineError {
	return &PipelineError{
		Type:      ErrorTypeStorage,
		Phase:     PhaseSink,
		Operation: operation,
		Message:   "database operation failed",
		Cause:     cause,
	}
}

// NewExportError creates an error for the spreadsheet export
func NewExportError(path string, cause error) *PipelineError {
	return &PipelineError{
		Type:      ErrorTypeExport,
		Phase:     PhaseSink,
		Operation: "spreadsheet export",
		Message:   fmt.Sprintf("could not write %s", path),
		Cause:     cause,
	}
}

// NewRenderError creates an error for the chart render
func NewRenderError(cause error) *PipelineError {
	return &PipelineError{
		Type:      ErrorTypeRender,
		Phase:     PhaseSink,
		Operation: "revenue boxplot",
		Message:   "could not render chart",
		Cause:     cause,
	}
}

// AsPipelineError extracts a PipelineError from an error chain
func AsPipelineError(err error) (*PipelineError, bool) {
	var pErr *PipelineError
	if errors.As(err, &pErr) {
		return pErr, true
	}
	return nil, false
}

// GetErrorType returns the type of the error, or "" when it is not a pipeline error
func GetErrorType(err error) ErrorType {
	if pErr, ok := AsPipelineError(err); ok {
		return pErr.Type
	}
	return ""
}

// IsFatal checks if an error must halt the pipeline.
// Errors that are not pipeline errors are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if pErr, ok := AsPipelineError(err); ok {
		return pErr.Fatal()
	}
	return true
}

// WrapError wraps an error with step context, keeping an existing PipelineError as is
func WrapError(err error, errType ErrorType, phase int, operation string) *PipelineError {
	if err == nil {
		return nil
	}
	if pErr, ok := AsPipelineError(err); ok {
		if pErr.Operation == "" {
			pErr.Operation = operation
		}
		return pErr
	}
	return &PipelineError{
		Type:      errType,
		Phase:     phase,
		Operation: operation,
		Message:   "operation failed",
		Cause:     err,
	}
}

// ErrorList collects the isolated failures of the sink phase
type ErrorList struct {
	Errors []*PipelineError `json:"errors"`
}

// Error implements the error interface
func (e *ErrorList) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("multiple errors: %d errors occurred", len(e.Errors))
}

// Add adds an error to the list
func (e *ErrorList) Add(err *PipelineError) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (e *ErrorList) HasErrors() bool {
	return len(e.Errors) > 0
}

// GetByType returns errors of a specific type
func (e *ErrorList) GetByType(errType ErrorType) []*PipelineError {
	var matched []*PipelineError
	for _, err := range e.Errors {
		if err.Type == errType {
			matched = append(matched, err)
		}
	}
	return matched
}
