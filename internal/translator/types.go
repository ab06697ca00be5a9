package translator

import (
	"context"
	"errors"
	"fmt"
)

// Request is one completion call: a system prompt and a markup piece sent to
// a single model.
type Request struct {
	Model        string
	SystemPrompt string
	Text         string
}

// Client is a translation backend. Complete returns the raw model output
// without cleanup or validation. Failures are reported as *Error with
// KindTransport or KindMalformed.
type Client interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Kind classifies a failed attempt.
type Kind int

const (
	// KindTransport covers network errors, timeouts and non-2xx statuses.
	KindTransport Kind = iota + 1
	// KindMalformed is a response envelope missing expected fields.
	KindMalformed
	// KindRejected is output the validator refused.
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport failure"
	case KindMalformed:
		return "malformed response"
	case KindRejected:
		return "validation rejected"
	default:
		return "unknown failure"
	}
}

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrTransport          = errors.New("transport failure")
	ErrMalformedResponse  = errors.New("malformed response")
	ErrValidationRejected = errors.New("validation rejected")
)

// Error is the single failure type of a translation attempt.
type Error struct {
	Kind   Kind
	Model  string
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Model != "" {
		msg = fmt.Sprintf("%s (model %s)", msg, e.Model)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrMalformedResponse:
		return e.Kind == KindMalformed
	case ErrValidationRejected:
		return e.Kind == KindRejected
	}
	return false
}

func transportError(reason string, cause error) *Error {
	return &Error{Kind: KindTransport, Reason: reason, Cause: cause}
}

func malformedError(reason string, cause error) *Error {
	return &Error{Kind: KindMalformed, Reason: reason, Cause: cause}
}
