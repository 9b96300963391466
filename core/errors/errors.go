package errors

import "fmt"

// ErrorCode identifies an application-level error category.
type ErrorCode string

const (
	ErrInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrInvalidRequestData ErrorCode = "INVALID_REQUEST_DATA"
	ErrNotFound           ErrorCode = "NOT_FOUND"
	ErrAlreadyExists      ErrorCode = "ALREADY_EXISTS"

	// ErrConflict signals a stale revision on an optimistic-concurrency
	// update. The caller must re-fetch and resubmit; it is never retried
	// internally.
	ErrConflict ErrorCode = "CONFLICT"

	// ErrPreconditionFailed signals a structurally invalid request that is
	// not a malformed payload, e.g. a series split at a non-qualifying point.
	ErrPreconditionFailed ErrorCode = "PRECONDITION_FAILED"

	// ErrConsistencyFault is fatal: a supposedly atomic operation was
	// observed half-applied, or an occurrence has no resolvable master.
	// It is logged and surfaced as an internal error, never as a 4xx.
	ErrConsistencyFault ErrorCode = "CONSISTENCY_FAULT"

	ErrUnauthorized               ErrorCode = "UNAUTHORIZED"
	ErrForbidden                  ErrorCode = "FORBIDDEN"
	ErrTokenExpired               ErrorCode = "TOKEN_EXPIRED"
	ErrInvalidTokenFormat         ErrorCode = "INVALID_TOKEN_FORMAT"
	ErrMissingAuthorizationHeader ErrorCode = "MISSING_AUTHORIZATION_HEADER"

	ErrInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"
)

// AppError is the error type carried across service boundaries.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}
