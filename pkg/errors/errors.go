package errors

import (
	stderrors "errors"
	"fmt"
)

// Application error types organized by category for better error handling

type ErrorType int

// Domain errors - raised by the dashboard itself
const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeValidation
	ErrorTypeMissingLocation
	ErrorTypeNotFound

	// Provider errors - raised while talking to the weather API
	ErrorTypeRateLimit
	ErrorTypeExternalAPI
	ErrorTypeNetwork
	ErrorTypeMalformedData

	// Infrastructure errors
	ErrorTypeStorage
	ErrorTypeConfiguration
)

// String returns the string representation of error type
func (e ErrorType) String() string {
	switch e {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeMissingLocation:
		return "MISSING_LOCATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND_ERROR"
	case ErrorTypeRateLimit:
		return "RATE_LIMIT_ERROR"
	case ErrorTypeExternalAPI:
		return "EXTERNAL_API_ERROR"
	case ErrorTypeNetwork:
		return "NETWORK_ERROR"
	case ErrorTypeMalformedData:
		return "MALFORMED_DATA_ERROR"
	case ErrorTypeStorage:
		return "STORAGE_ERROR"
	case ErrorTypeConfiguration:
		return "CONFIGURATION_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Short aliases used by switch statements in adapters
const (
	ValidationError      = ErrorTypeValidation
	MissingLocationError = ErrorTypeMissingLocation
	NotFoundError        = ErrorTypeNotFound
	RateLimitError       = ErrorTypeRateLimit
	ExternalAPIError     = ErrorTypeExternalAPI
	NetworkError         = ErrorTypeNetwork
	MalformedDataError   = ErrorTypeMalformedData
	StorageError         = ErrorTypeStorage
	ConfigurationError   = ErrorTypeConfiguration
	UnknownError         = ErrorTypeUnknown
)

type AppError struct {
	Type    ErrorType
	Message string
	// StatusCode is the provider HTTP status, zero when no response was received
	StatusCode int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type.String(), e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type.String(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errorType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
	}
}

func Wrap(errorType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// Domain error constructors
func NewValidationError(message string) *AppError {
	return New(ValidationError, message)
}

func NewMissingLocationError(message string) *AppError {
	return New(MissingLocationError, message)
}

func NewNotFoundError(message string) *AppError {
	return New(NotFoundError, message)
}

// Provider error constructors

// NewAPIError builds a status-coded error for a non-2xx provider response.
// 404 and 429 get their own types so callers can tell them apart.
func NewAPIError(statusCode int, message string) *AppError {
	errorType := ExternalAPIError
	switch statusCode {
	case 404:
		errorType = NotFoundError
	case 429:
		errorType = RateLimitError
	}
	return &AppError{
		Type:       errorType,
		Message:    message,
		StatusCode: statusCode,
	}
}

func NewExternalAPIError(message string, cause error) *AppError {
	return Wrap(ExternalAPIError, message, cause)
}

func NewNetworkError(message string, cause error) *AppError {
	return Wrap(NetworkError, message, cause)
}

func NewMalformedDataError(message string, cause error) *AppError {
	return Wrap(MalformedDataError, message, cause)
}

func NewUnknownError(message string, cause error) *AppError {
	return Wrap(UnknownError, message, cause)
}

// Infrastructure error constructors
func NewStorageError(message string, cause error) *AppError {
	return Wrap(StorageError, message, cause)
}

func NewConfigurationError(message string, cause error) *AppError {
	return Wrap(ConfigurationError, message, cause)
}

// Helper functions for error type checking

func isType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

func IsValidationError(err error) bool {
	return isType(err, ValidationError)
}

func IsMissingLocationError(err error) bool {
	return isType(err, MissingLocationError)
}

func IsNotFoundError(err error) bool {
	return isType(err, NotFoundError)
}

func IsRateLimitError(err error) bool {
	return isType(err, RateLimitError)
}

func IsExternalAPIError(err error) bool {
	return isType(err, ExternalAPIError)
}

func IsNetworkError(err error) bool {
	return isType(err, NetworkError)
}

func IsMalformedDataError(err error) bool {
	return isType(err, MalformedDataError)
}

func IsStorageError(err error) bool {
	return isType(err, StorageError)
}

func IsConfigurationError(err error) bool {
	return isType(err, ConfigurationError)
}

// UserMessage returns the text shown in an error slot.
// Plain errors fall back to fallback, or to err.Error() when fallback is empty.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	if fallback != "" {
		return fallback
	}
	return err.Error()
}
