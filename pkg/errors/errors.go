package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrEmptyCorpus      = errors.New("no words in document")
	ErrInputFault       = errors.New("input unreadable")
	ErrDocumentTooLarge = errors.New("document too large")
	ErrCloudNotFound    = errors.New("cloud not found")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrUnavailable      = errors.New("dependency unavailable")
	ErrInternal         = errors.New("internal error")
	ErrTimeout          = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Invalidf reports a caller contract violation such as a non-positive word
// count or an inverted weight range.
func Invalidf(format string, args ...any) *AppError {
	return Newf(ErrInvalidArgument, http.StatusBadRequest, format, args...)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrCloudNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrEmptyCorpus), errors.Is(err, ErrInputFault):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrDocumentTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Reason returns a short metric label for err.
func Reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrEmptyCorpus):
		return "empty_corpus"
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidArgument):
		return "invalid"
	case errors.Is(err, ErrInputFault):
		return "input_fault"
	case errors.Is(err, ErrDocumentTooLarge):
		return "too_large"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "internal"
	}
}
