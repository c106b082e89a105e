package faults

import "errors"

// ErrorCategory classifies a failure by what the caller can do about
// it, independent of the component that raised it.
type ErrorCategory string

const (
	// NotInitializedError means the provider has not finished (or has
	// failed) initialization and cannot serve requests.
	NotInitializedError ErrorCategory = "NotInitializedError"

	// InvalidPathError means a resource path could not be parsed
	// against the provider's declared type graph.
	InvalidPathError ErrorCategory = "InvalidPathError"

	// NotFoundError means the addressed reference is absent or soft
	// deleted.
	NotFoundError ErrorCategory = "NotFoundError"

	// ConflictError means a soft-deleted name was reused for create.
	ConflictError ErrorCategory = "ConflictError"

	// ForbiddenError means the principal was rejected, the policy
	// decision was deny, or the authorization client failed. Access
	// uncertainty always lands here, never in an implicit allow.
	ForbiddenError ErrorCategory = "ForbiddenError"

	// ValidationError means a resource body does not satisfy the
	// resource type's schema.
	ValidationError ErrorCategory = "ValidationError"

	// InternalError covers unexpected storage or serialization
	// failures.
	InternalError ErrorCategory = "InternalError"
)

type TypedError struct {
	Category ErrorCategory
	Message  string
	Cause    error
}

func (e *TypedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" && e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return string(e.Category)
}

func (e *TypedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func NewTypedError(category ErrorCategory, message string, cause error) *TypedError {
	return &TypedError{
		Category: category,
		Message:  message,
		Cause:    cause,
	}
}

func IsCategory(err error, category ErrorCategory) bool {
	if err == nil {
		return false
	}

	var typedErr *TypedError
	if !errors.As(err, &typedErr) {
		return false
	}
	return typedErr.Category == category
}

// CategoryOf returns the category of err, or InternalError when err
// carries no category.
func CategoryOf(err error) ErrorCategory {
	var typedErr *TypedError
	if errors.As(err, &typedErr) {
		return typedErr.Category
	}
	return InternalError
}

func NotInitialized(message string) error {
	return NewTypedError(NotInitializedError, message, nil)
}

func InvalidPath(message string, cause error) error {
	return NewTypedError(InvalidPathError, message, cause)
}

func NotFound(message string) error {
	return NewTypedError(NotFoundError, message, nil)
}

func Conflict(message string) error {
	return NewTypedError(ConflictError, message, nil)
}

func Forbidden(message string, cause error) error {
	return NewTypedError(ForbiddenError, message, cause)
}

func Validation(message string, cause error) error {
	return NewTypedError(ValidationError, message, cause)
}

func Internal(message string, cause error) error {
	return NewTypedError(InternalError, message, cause)
}
