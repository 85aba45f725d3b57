package execution

import "errors"

// A set of return codes used when classifying failures. The framework treats
// failure categories opaquely; codes exist for the benefit of downstream
// consumers of the Result.
const (
	// CodeInvalidParams is used when required task parameters are missing or
	// malformed.
	CodeInvalidParams uint16 = 400

	// CodeUnexpected is the default code for failures that carry no explicit
	// classification.
	CodeUnexpected uint16 = 500
)

// Error is the single opaque failure kind understood by the pipeline. It
// carries a numeric code, a human-readable message, and an arbitrary detail
// map that conversion folds into the Result's return values.
type Error struct {
	code    uint16
	message string
	details map[string]any
}

// NewError creates an Error with the given code and message.
func NewError(code uint16, message string) *Error {
	return &Error{
		code:    code,
		message: message,
		details: make(map[string]any),
	}
}

// Unexpected creates an Error with CodeUnexpected, for failures that have no
// more specific classification.
func Unexpected(message string) *Error {
	return NewError(CodeUnexpected, message)
}

// WithDetail attaches a single key/value detail to the error and returns the
// error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	e.details[key] = value
	return e
}

// WithDetails attaches every entry of the given map to the error and returns
// the error for chaining.
func (e *Error) WithDetails(details map[string]any) *Error {
	for k, v := range details {
		e.details[k] = v
	}
	return e
}

// Code returns the numeric failure code.
func (e *Error) Code() uint16 { return e.code }

// Message returns the human-readable failure message.
func (e *Error) Message() string { return e.message }

// Details returns the detail map attached to the error.
func (e *Error) Details() map[string]any { return e.details }

// Error implements the error interface.
func (e *Error) Error() string { return e.message }

// ResultFromError converts a failure into a Result. The conversion is total:
// an *Error maps its code to the retcode, its message to stderr, and its
// details into the return value map; any other error maps to CodeUnexpected
// with the error text as stderr. Options are applied after the conversion,
// letting callers pin the result to a task identity.
func ResultFromError(err error, opts ...ResultOption) Result {
	var e *Error
	if errors.As(err, &e) {
		base := []ResultOption{
			WithRetcode(e.code),
			WithStderr(e.message),
			WithRetval(e.details),
		}
		return NewResult(append(base, opts...)...)
	}

	base := []ResultOption{
		WithRetcode(CodeUnexpected),
		WithStderr(err.Error()),
	}
	return NewResult(append(base, opts...)...)
}
