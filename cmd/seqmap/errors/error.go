package errors

import (
	"errors"
	"fmt"
	"strings"
)

type Verbose interface {
	Verbose() string
}

// CUIError is an error shown to a person on console.
//
// Error() is a short message, and Verbose() adds its causes.
type CUIError interface {
	error
	Verbose
	Summary() string
}

type cuierror struct {
	summary string
	hint    string
	detail  func(summary string) (string, error)
	cause   error
}

func (ce *cuierror) Unwrap() error {
	return ce.cause
}

func (ce *cuierror) Summary() string {
	return ce.summary
}

func (ce *cuierror) Error() string {
	message := ce.summary
	if ce.detail != nil {
		m, err := ce.detail(ce.summary)
		if err != nil {
			m = fmt.Sprintf("%s\n(cannot build detailed message: %s)", ce.summary, err.Error())
		}
		message = m
	}
	if ce.hint != "" {
		message = message + "\n" + ce.hint
	}
	return message
}

func (ce *cuierror) Verbose() string {
	message := []string{ce.Error()}

	switch cause := ce.cause.(type) {
	case nil:
	case Verbose:
		message = append(message, "caused by: "+cause.Verbose())
	default:
		message = append(message, "caused by: "+cause.Error())
	}
	return strings.Join(message, "\n")
}

type CuiErrorOption func(*cuierror) *cuierror

func NewCuiError(summary string, options ...CuiErrorOption) CUIError {
	err := &cuierror{summary: summary}
	for _, o := range options {
		err = o(err)
	}
	return err
}

// WithHint appends a line telling what to do next.
func WithHint(hint string) CuiErrorOption {
	return func(ce *cuierror) *cuierror {
		ce.hint = hint
		return ce
	}
}

func WithDetail(printer func(summary string) (string, error)) CuiErrorOption {
	return func(ce *cuierror) *cuierror {
		ce.detail = printer
		return ce
	}
}

func WithCause(err error) CuiErrorOption {
	return func(ce *cuierror) *cuierror {
		ce.cause = err
		return ce
	}
}

// VerboseOf returns the most detailed message of err.
func VerboseOf(err error) string {
	var v Verbose
	if errors.As(err, &v) {
		return v.Verbose()
	}
	return err.Error()
}
