package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeUsage              ErrCode = "USAGE"
	ErrCodeTimestampParse     ErrCode = "TIMESTAMP_PARSE"
	ErrCodeCacheRead          ErrCode = "CACHE_READ"
	ErrCodeCacheWrite         ErrCode = "CACHE_WRITE"
	ErrCodeNegativeCumulative ErrCode = "NEGATIVE_CUMULATIVE"
	ErrCodeNotFound           ErrCode = "NOT_FOUND"
	ErrCodeUnauthorized       ErrCode = "UNAUTHORIZED"
	ErrCodeRateLimited        ErrCode = "RATE_LIMITED"
	ErrCodeInternal           ErrCode = "INTERNAL_ERROR"
	ErrCodeBadRequest         ErrCode = "BAD_REQUEST"
)

// AppError represents an application error
type AppError struct {
	Code    ErrCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewUsageError creates an error for missing or malformed command-line input
func NewUsageError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUsage,
		Message: message,
	}
}

// NewTimestampParseError creates an error for a timestamp the tracker returned
// that cannot be parsed
func NewTimestampParseError(value string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeTimestampParse,
		Message: fmt.Sprintf("malformed timestamp %q", value),
		Err:     err,
	}
}

// NewCacheReadError creates a cache read error
func NewCacheReadError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeCacheRead,
		Message: message,
		Err:     err,
	}
}

// NewCacheWriteError creates a cache write error
func NewCacheWriteError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeCacheWrite,
		Message: message,
		Err:     err,
	}
}

// NewNegativeCumulativeError creates an error describing a series that went below zero
func NewNegativeCumulativeError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeNegativeCumulative,
		Message: message,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUnauthorized,
		Message: message,
	}
}

// NewRateLimitedError creates a new rate limited error
func NewRateLimitedError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeRateLimited,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or "" if there is none
func CodeOf(err error) ErrCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsUsage checks if the error is a usage error
func IsUsage(err error) bool {
	return CodeOf(err) == ErrCodeUsage
}

// IsTimestampParse checks if the error is a timestamp parse error
func IsTimestampParse(err error) bool {
	return CodeOf(err) == ErrCodeTimestampParse
}

// IsCacheWrite checks if the error is a cache write error
func IsCacheWrite(err error) bool {
	return CodeOf(err) == ErrCodeCacheWrite
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsRateLimited checks if the error is a rate limited error
func IsRateLimited(err error) bool {
	return CodeOf(err) == ErrCodeRateLimited
}
