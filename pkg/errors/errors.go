// Package errors provides the structured error type used across the B2 client, with error codes,
// categories, and the decoding of B2 API error bodies.
package errors

import (
	"encoding/json"
	stderr "errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrorCode represents a structured error code for client operations.
type ErrorCode string

const (
	// Configuration Errors
	ErrCodeInvalidConfig    ErrorCode = "INVALID_CONFIG"
	ErrCodeMissingConfig    ErrorCode = "MISSING_CONFIG"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"
	ErrCodeConfigLoad       ErrorCode = "CONFIG_LOAD"
	ErrCodeConfigSave       ErrorCode = "CONFIG_SAVE"

	// Connection Errors
	ErrCodeConnectionFailed  ErrorCode = "CONNECTION_FAILED"
	ErrCodeConnectionTimeout ErrorCode = "CONNECTION_TIMEOUT"
	ErrCodeNetworkError      ErrorCode = "NETWORK_ERROR"

	// API Response Errors
	ErrCodeAPIError          ErrorCode = "API_ERROR"
	ErrCodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"

	// Request Validation Errors, raised before anything is sent
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeTooManyInfoHeaders ErrorCode = "TOO_MANY_INFO_HEADERS"
	ErrCodeInvalidInfoHeader  ErrorCode = "INVALID_INFO_HEADER"

	// Authentication Errors
	ErrCodeCredentialsMissing ErrorCode = "CREDENTIALS_MISSING"
	ErrCodeNotAuthorized      ErrorCode = "NOT_AUTHORIZED"

	// State Errors
	ErrCodeCircuitOpen ErrorCode = "CIRCUIT_OPEN"

	// Operation Errors
	ErrCodeOperationTimeout  ErrorCode = "OPERATION_TIMEOUT"
	ErrCodeOperationCanceled ErrorCode = "OPERATION_CANCELED"

	// Internal Errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorCategory represents the general category of an error.
type ErrorCategory string

const (
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryConnection    ErrorCategory = "connection"
	CategoryAPI           ErrorCategory = "api"
	CategoryValidation    ErrorCategory = "validation"
	CategoryAuth          ErrorCategory = "auth"
	CategoryState         ErrorCategory = "state"
	CategoryOperation     ErrorCategory = "operation"
	CategoryInternal      ErrorCategory = "internal"
)

// B2Error represents a structured error with context and metadata.
type B2Error struct {
	// Core error information
	Code     ErrorCode              `json:"code"`
	Category ErrorCategory          `json:"category"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details,omitempty"`

	// Contextual information
	Context   map[string]string `json:"context,omitempty"`
	Cause     error             `json:"-"`
	Timestamp time.Time         `json:"timestamp"`

	// Operational metadata
	Component string `json:"component"`
	Operation string `json:"operation,omitempty"`

	// Fields echoed by the B2 API for non-success responses
	HTTPStatus int           `json:"http_status,omitempty"`
	APICode    string        `json:"api_code,omitempty"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`

	Retryable bool `json:"retryable"`
}

// Error implements the error interface.
func (e *B2Error) Error() string {
	msg := e.Message
	if e.APICode != "" {
		msg = fmt.Sprintf("%s (status %d, code %q)", e.Message, e.HTTPStatus, e.APICode)
	}
	if e.Component != "" {
		if e.Operation != "" {
			return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Code, msg)
		}
		return fmt.Sprintf("[%s] %s: %s", e.Component, e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause error for error wrapping compatibility.
func (e *B2Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error (for errors.Is compatibility).
func (e *B2Error) Is(target error) bool {
	if b2Err, ok := target.(*B2Error); ok {
		return e.Code == b2Err.Code
	}
	return false
}

// String returns a detailed string representation for logging.
func (e *B2Error) String() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Code=%s", e.Code))
	parts = append(parts, fmt.Sprintf("Category=%s", e.Category))
	parts = append(parts, fmt.Sprintf("Message=%q", e.Message))

	if e.Component != "" {
		parts = append(parts, fmt.Sprintf("Component=%s", e.Component))
	}
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("Operation=%s", e.Operation))
	}
	if e.HTTPStatus != 0 {
		parts = append(parts, fmt.Sprintf("HTTPStatus=%d", e.HTTPStatus))
	}
	if e.APICode != "" {
		parts = append(parts, fmt.Sprintf("APICode=%s", e.APICode))
	}
	if e.Retryable {
		parts = append(parts, "Retryable=true")
	}
	if len(e.Details) > 0 {
		details, _ := json.Marshal(e.Details)
		parts = append(parts, fmt.Sprintf("Details=%s", details))
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause=%q", e.Cause.Error()))
	}

	return fmt.Sprintf("B2Error{%s}", strings.Join(parts, ", "))
}

// NewError creates a new error with default values for the code.
func NewError(code ErrorCode, message string) *B2Error {
	return &B2Error{
		Code:       code,
		Category:   GetCategory(code),
		Message:    message,
		Timestamp:  time.Now(),
		Details:    make(map[string]interface{}),
		Context:    make(map[string]string),
		Retryable:  IsRetryableByDefault(code),
		HTTPStatus: GetDefaultHTTPStatus(code),
	}
}

// GetCategory determines the category based on the error code.
func GetCategory(code ErrorCode) ErrorCategory {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "INVALID_CONFIG") || strings.HasPrefix(codeStr, "MISSING_CONFIG") ||
		strings.HasPrefix(codeStr, "CONFIG_"):
		return CategoryConfiguration
	case strings.HasPrefix(codeStr, "CONNECTION_") || strings.HasPrefix(codeStr, "NETWORK_"):
		return CategoryConnection
	case strings.HasPrefix(codeStr, "API_") || strings.HasPrefix(codeStr, "MALFORMED_"):
		return CategoryAPI
	case strings.HasPrefix(codeStr, "VALIDATION_") || strings.HasPrefix(codeStr, "TOO_MANY_") ||
		strings.HasPrefix(codeStr, "INVALID_INFO_"):
		return CategoryValidation
	case strings.HasPrefix(codeStr, "CREDENTIALS_") || strings.HasPrefix(codeStr, "NOT_AUTHORIZED"):
		return CategoryAuth
	case strings.HasPrefix(codeStr, "CIRCUIT_"):
		return CategoryState
	case strings.HasPrefix(codeStr, "OPERATION_"):
		return CategoryOperation
	default:
		return CategoryInternal
	}
}

// IsRetryableByDefault determines if an error is retryable by default.
func IsRetryableByDefault(code ErrorCode) bool {
	retryableCodes := map[ErrorCode]bool{
		ErrCodeConnectionTimeout: true,
		ErrCodeConnectionFailed:  true,
		ErrCodeNetworkError:      true,
		ErrCodeOperationTimeout:  true,
	}
	return retryableCodes[code]
}

// GetDefaultHTTPStatus returns the default HTTP status for an error code.
// Codes raised locally map to the status the API would have used for the same mistake.
func GetDefaultHTTPStatus(code ErrorCode) int {
	statusMap := map[ErrorCode]int{
		ErrCodeInvalidConfig:      400,
		ErrCodeConfigValidation:   400,
		ErrCodeValidationFailed:   400,
		ErrCodeTooManyInfoHeaders: 400,
		ErrCodeInvalidInfoHeader:  400,
		ErrCodeCredentialsMissing: 401,
		ErrCodeNotAuthorized:      401,
		ErrCodeCircuitOpen:        503,
		ErrCodeOperationTimeout:   504,
		ErrCodeConnectionTimeout:  504,
	}

	if status, ok := statusMap[code]; ok {
		return status
	}
	return 0
}

// WithContext adds contextual information to an error
func (e *B2Error) WithContext(key, value string) *B2Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithDetail adds detailed information to an error
func (e *B2Error) WithDetail(key string, value interface{}) *B2Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithComponent sets the component for an error
func (e *B2Error) WithComponent(component string) *B2Error {
	e.Component = component
	return e
}

// WithOperation sets the operation for an error
func (e *B2Error) WithOperation(operation string) *B2Error {
	e.Operation = operation
	return e
}

// WithCause sets the underlying cause
func (e *B2Error) WithCause(cause error) *B2Error {
	e.Cause = cause
	return e
}

// apiErrorBody is the JSON document B2 returns with every non-success status.
type apiErrorBody struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FromResponse builds the error for a non-success HTTP response. The API's own
// status, code and message are carried verbatim; nothing is interpreted.
func FromResponse(operation string, status int, header http.Header, body []byte) *B2Error {
	e := NewError(ErrCodeAPIError, http.StatusText(status))
	e.Component = "b2"
	e.Operation = operation
	e.HTTPStatus = status
	e.Retryable = status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500

	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && (parsed.Code != "" || parsed.Message != "") {
		e.APICode = parsed.Code
		if parsed.Message != "" {
			e.Message = parsed.Message
		}
	} else if len(body) > 0 {
		e.Details["body"] = string(body)
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("unexpected status %d", status)
	}

	if header != nil {
		if seconds, err := strconv.Atoi(header.Get("Retry-After")); err == nil {
			e.RetryAfter = time.Duration(seconds) * time.Second
		}
	}
	return e
}

// As reports whether err is, or wraps, a *B2Error and returns it.
func As(err error) (*B2Error, bool) {
	var b2Err *B2Error
	if stderr.As(err, &b2Err) {
		return b2Err, true
	}
	return nil, false
}

// HasCode reports whether err is a *B2Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	b2Err, ok := As(err)
	return ok && b2Err.Code == code
}
