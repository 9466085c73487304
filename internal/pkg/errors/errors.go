// Package errors provides custom error types and error handling utilities.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes.
const (
	// Input errors.
	CodeValidation     = "VALIDATION_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeInvalidRequest = "INVALID_REQUEST"

	// Upstream and infrastructure errors.
	CodeParse       = "PARSE_ERROR"
	CodeLLM         = "LLM_ERROR"
	CodeQdrantError = "QDRANT_ERROR"
	CodeStoreError  = "STORE_ERROR"
	CodeTimeout     = "TIMEOUT"
	CodeUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternal    = "INTERNAL_ERROR"
)

// AppError represents an application error with code and details.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError.
func Wrap(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Convenience constructors.

// ValidationError creates a validation error.
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// NotFoundError creates a not found error.
func NotFoundError(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// ParseError creates a parse error for a malformed model reply.
func ParseError(message string, err error) *AppError {
	return Wrap(CodeParse, message, err)
}

// LLMError creates a completion backend error.
func LLMError(message string, err error) *AppError {
	return Wrap(CodeLLM, message, err)
}

// QdrantError creates a Qdrant error.
func QdrantError(message string, err error) *AppError {
	return Wrap(CodeQdrantError, message, err)
}

// StoreError creates a result store error.
func StoreError(message string, err error) *AppError {
	return Wrap(CodeStoreError, message, err)
}

// InternalError creates an internal error.
func InternalError(message string, err error) *AppError {
	return Wrap(CodeInternal, message, err)
}

// TimeoutError creates a timeout error for a specific operation.
func TimeoutError(operation string) *AppError {
	message := "operation timed out"
	if operation != "" {
		message = fmt.Sprintf("%s timed out", operation)
	}
	return New(CodeTimeout, message)
}

// ServiceUnavailableError creates a service unavailable error.
func ServiceUnavailableError(service string) *AppError {
	message := "service unavailable"
	if service != "" {
		message = fmt.Sprintf("%s is unavailable", service)
	}
	return New(CodeUnavailable, message)
}

// codeOf extracts the code from an error chain, or "" for non-app errors.
func codeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsValidation checks if error is a validation error.
func IsValidation(err error) bool {
	return codeOf(err) == CodeValidation
}

// IsNotFound checks if error is a not found error.
func IsNotFound(err error) bool {
	return codeOf(err) == CodeNotFound
}

// IsParse checks if error is a parse error.
func IsParse(err error) bool {
	return codeOf(err) == CodeParse
}

// IsLLM checks if error is a completion backend error.
func IsLLM(err error) bool {
	return codeOf(err) == CodeLLM
}
