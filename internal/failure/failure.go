// Package failure defines the error taxonomy shared by the suite loader and
// the test executor. Every per-test error is folded into a *Error carrying a
// Kind so reporters can tell an assertion miss from a transport problem.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies where in a test's life cycle an error happened.
type Kind int

const (
	KindUnknown Kind = iota
	// KindLoad: the suite document could not be read or parsed.
	KindLoad
	// KindSchema: a test case is missing required fields or is malformed.
	KindSchema
	// KindVerb: the HTTP method is not one of the accepted verbs.
	KindVerb
	// KindDependency: a back-reference could not be resolved.
	KindDependency
	// KindTransport: the request could not be completed.
	KindTransport
	// KindTimeout: the request exceeded the configured deadline.
	KindTimeout
	// KindAssertion: the response did not satisfy the expectations.
	KindAssertion
)

func (k Kind) String() string {
	switch k {
	case KindLoad:
		return "load"
	case KindSchema:
		return "schema"
	case KindVerb:
		return "verb"
	case KindDependency:
		return "dependency"
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindAssertion:
		return "assertion"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Test is empty for suite-level errors.
type Error struct {
	Kind Kind
	Test string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String() + " error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a classified error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. A nil err yields nil. If err is already an *Error its
// kind is preserved.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf reports the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}
