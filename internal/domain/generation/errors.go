package generation

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies why a submission was rejected or an execution failed.
type ErrorKind string

const (
	ErrorEmptyPrompt     ErrorKind = "EMPTY_PROMPT"
	ErrorMissingImage    ErrorKind = "MISSING_IMAGE"
	ErrorInvalidOption   ErrorKind = "INVALID_OPTION"
	ErrorNotAnImage      ErrorKind = "NOT_AN_IMAGE"
	ErrorTimeout         ErrorKind = "TIMEOUT"
	ErrorBackendFailure  ErrorKind = "BACKEND_FAILURE"
	ErrorBusy            ErrorKind = "BUSY"
	ErrorUnsupportedKind ErrorKind = "UNSUPPORTED_KIND"
)

// Sentinel errors, one per error kind. A *Error matches the sentinel of its kind
// with errors.Is.
var (
	// ErrEmptyPrompt is returned when required prompt text is missing or blank.
	ErrEmptyPrompt = errors.New("prompt is required")

	// ErrMissingImage is returned when the request does not carry the images its kind needs.
	ErrMissingImage = errors.New("required image is missing")

	// ErrInvalidOption is returned when an option is unknown or its value is not allowed.
	ErrInvalidOption = errors.New("invalid option")

	// ErrNotAnImage is returned when an uploaded file is not declared as an image.
	ErrNotAnImage = errors.New("file is not an image")

	// ErrTimeout is returned when an execution exceeds its allotted time.
	ErrTimeout = errors.New("generation timed out")

	// ErrBackendFailure is returned when the generation backend fails.
	ErrBackendFailure = errors.New("generation backend failed")

	// ErrBusy is returned when submitting to a session that is already running.
	ErrBusy = errors.New("generation already running")

	// ErrUnsupportedKind is returned for an unknown kind or a request whose kind
	// does not match the session.
	ErrUnsupportedKind = errors.New("unsupported generation kind")
)

var (
	// ErrNothingToCancel is returned by Cancel when no execution is running.
	ErrNothingToCancel = errors.New("no generation is running")

	// ErrSessionClosed is returned when using a session after Close.
	ErrSessionClosed = errors.New("session closed")

	// ErrSuperseded is returned to a description extraction replaced by a newer one.
	ErrSuperseded = errors.New("description extraction superseded")
)

var sentinels = map[ErrorKind]error{
	ErrorEmptyPrompt:     ErrEmptyPrompt,
	ErrorMissingImage:    ErrMissingImage,
	ErrorInvalidOption:   ErrInvalidOption,
	ErrorNotAnImage:      ErrNotAnImage,
	ErrorTimeout:         ErrTimeout,
	ErrorBackendFailure:  ErrBackendFailure,
	ErrorBusy:            ErrBusy,
	ErrorUnsupportedKind: ErrUnsupportedKind,
}

// Error is a classified generation error.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel error for e's kind.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// KindOf returns the error kind carried by err.
func KindOf(err error) (ErrorKind, bool) {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind, true
	}
	return "", false
}

// AsError classifies an arbitrary execution error. Context deadline errors
// become Timeout; anything unclassified becomes BackendFailure.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: ErrorTimeout, Message: "generation exceeded its time limit", Err: err}
	}
	return &Error{Kind: ErrorBackendFailure, Message: "generation backend failed", Err: err}
}
