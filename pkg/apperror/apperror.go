// Package apperror defines the error kinds shared by every domain so the HTTP
// layer can map them without knowing each domain's sentinels.
package apperror

import "errors"

type Kind string

const (
	KindValidation      Kind = "validation_error"
	KindNotFound        Kind = "not_found"
	KindPermission      Kind = "forbidden"
	KindConflict        Kind = "conflict"
	KindUnauthenticated Kind = "unauthorized"
	KindRateLimited     Kind = "rate_limited"
)

// Detail is one field-level problem attached to a validation error.
type Detail struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Error struct {
	Kind    Kind
	Field   string
	Code    string
	Message string
	Details []Detail
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Code + ": " + e.Message
	}
	return e.Code
}

// Is matches errors of the same kind and code, so enriched copies still match their sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// WithDetails returns a copy carrying per-item details.
func (e *Error) WithDetails(details ...Detail) *Error {
	clone := *e
	clone.Details = append([]Detail(nil), details...)
	return &clone
}

// WithMessage returns a copy with a different human message.
func (e *Error) WithMessage(message string) *Error {
	clone := *e
	clone.Message = message
	return &clone
}

func Validation(field, code, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Code: code, Message: message}
}

func NotFound(code string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: "not found"}
}

func Permission(code string) *Error {
	return &Error{Kind: KindPermission, Code: code, Message: "forbidden"}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func Unauthenticated(code string) *Error {
	return &Error{Kind: KindUnauthenticated, Code: code, Message: "unauthorized"}
}

func RateLimited(code string) *Error {
	return &Error{Kind: KindRateLimited, Code: code, Message: "too many requests"}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) && appErr != nil {
		return appErr, true
	}
	return nil, false
}

func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}
