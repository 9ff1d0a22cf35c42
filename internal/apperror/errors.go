package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain failure. Callers branch on kinds, never on messages.
type Kind string

const (
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindInvalidState      Kind = "INVALID_STATE"
	KindInvalidArgument   Kind = "INVALID_ARGUMENT"
	KindNotFound          Kind = "NOT_FOUND"
	KindConflict          Kind = "CONFLICT"
	KindInternal          Kind = "INTERNAL"
)

// Error is the typed outcome returned by every use case.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	Err     error
}

// Sentinels for errors.Is checks. Matching is by Kind.
var (
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock, Message: "insufficient stock"}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Message: "invalid transition"}
	ErrInvalidState      = &Error{Kind: KindInvalidState, Message: "invalid state"}
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument, Message: "invalid argument"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "resource not found"}
	ErrConflict          = &Error{Kind: KindConflict, Message: "concurrent modification, retry the operation"}
)

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithDetails returns a copy of e carrying the given detail pair.
func (e *Error) WithDetails(key string, value interface{}) *Error {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{Kind: e.Kind, Message: e.Message, Details: details, Err: e.Err}
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func InsufficientStock(format string, args ...interface{}) *Error {
	return newError(KindInsufficientStock, format, args...)
}

func InvalidTransition(format string, args ...interface{}) *Error {
	return newError(KindInvalidTransition, format, args...)
}

func InvalidState(format string, args ...interface{}) *Error {
	return newError(KindInvalidState, format, args...)
}

func InvalidArgument(format string, args ...interface{}) *Error {
	return newError(KindInvalidArgument, format, args...)
}

func NotFound(resource, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s %s not found", resource, id),
		Details: map[string]interface{}{"resource": resource, "id": id},
	}
}

// Conflict wraps a storage-level serialization or uniqueness failure.
func Conflict(err error, format string, args ...interface{}) *Error {
	e := newError(KindConflict, format, args...)
	e.Err = err
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsRetryable is true only for Conflict: the whole operation may be retried as-is.
func IsRetryable(err error) bool {
	return KindOf(err) == KindConflict
}

// HTTPStatus maps err to the status code the API answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInsufficientStock, KindInvalidTransition, KindInvalidState, KindConflict:
		return http.StatusConflict
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
