package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the typed failure returned by use cases. Transports map the
// Kind to a status code or an error event; Cause is never serialized.
type AppError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches another *AppError by Kind and Message so sentinel values work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// Constructors
func New(kind Kind, message string) error {
	return &AppError{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) error {
	return &AppError{Kind: kind, Message: message, Cause: cause}
}

func NotFound(msg string) error {
	return New(KindNotFound, msg)
}

func Forbidden(msg string) error {
	return New(KindForbidden, msg)
}

func Validation(msg string) error {
	return New(KindValidation, msg)
}

func Validationf(format string, args ...any) error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func RateLimited(msg string) error {
	return New(KindRateLimited, msg)
}

func Conflict(msg string) error {
	return New(KindConflict, msg)
}

func Unauthenticated(msg string) error {
	return New(KindUnauthenticated, msg)
}

func Internal(msg string, cause error) error {
	return Wrap(KindInternal, msg, cause)
}

// KindOf reports the Kind of the first AppError in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var ae *AppError
	if stderrors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *AppError
	return stderrors.As(err, &ae) && ae.Kind == kind
}

// Public returns the kind and a client-safe message for err. Errors without
// an AppError in their chain are reported as a generic internal failure.
func Public(err error) (Kind, string) {
	var ae *AppError
	if stderrors.As(err, &ae) && ae.Kind != KindInternal {
		return ae.Kind, ae.Message
	}
	return KindInternal, "internal server error"
}
