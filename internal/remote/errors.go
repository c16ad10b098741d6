package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Category is the normalized failure taxonomy of the remote service.
type Category string

const (
	// CategoryTimeout indicates the service did not answer within the call budget
	CategoryTimeout Category = "timeout"
	// CategoryUnavailable indicates a transport failure or a 5xx answer
	CategoryUnavailable Category = "unavailable"
	// CategoryUnauthorized indicates a missing, expired or rejected credential
	CategoryUnauthorized Category = "unauthorized"
	CategoryNotFound     Category = "not_found"
	// CategoryConflict indicates the resource already exists
	CategoryConflict Category = "conflict"
	// CategoryRejected indicates any other 4xx answer
	CategoryRejected Category = "rejected"
	// CategoryBadData indicates an answer that could not be decoded
	CategoryBadData  Category = "bad_data"
	CategoryInternal Category = "internal"
)

// Error wraps a remote failure with its category and the human-readable
// message the service supplied, if any.
type Error struct {
	Op         string
	Category   Category
	StatusCode int
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Category)
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Underlying != nil {
		return fmt.Sprintf("remote %s [%s]: %s: %v", e.Op, e.Category, msg, e.Underlying)
	}
	return fmt.Sprintf("remote %s [%s]: %s", e.Op, e.Category, msg)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// Transient reports whether the failure says something about the service's
// health rather than about the request.
func (e *Error) Transient() bool {
	return e.Category == CategoryTimeout || e.Category == CategoryUnavailable
}

// MessageOf returns the service-supplied message carried by err, or "".
func MessageOf(err error) string {
	var re *Error
	if errors.As(err, &re) {
		return re.Message
	}
	return ""
}

// CategoryOf extracts the category from an error.
func CategoryOf(err error) Category {
	var re *Error
	if errors.As(err, &re) {
		return re.Category
	}
	return CategoryInternal
}

func categoryForStatus(status int) Category {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return CategoryUnauthorized
	case status == http.StatusNotFound:
		return CategoryNotFound
	case status == http.StatusConflict:
		return CategoryConflict
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return CategoryTimeout
	case status >= 500:
		return CategoryUnavailable
	default:
		return CategoryRejected
	}
}

func transportError(ctx context.Context, op string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Op: op, Category: CategoryTimeout, Underlying: err}
	}
	return &Error{Op: op, Category: CategoryUnavailable, Underlying: err}
}
