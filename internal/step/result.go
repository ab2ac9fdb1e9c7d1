// Package step holds the uniform result returned by every pipeline step.
package step

import (
	"errors"

	dagerrors "github.com/stevehiehn/relaypub/internal/errors"
)

// Result is the outcome of one step or of a whole publish run.
// A successful Result always has an empty Message.
type Result struct {
	Succeeded bool   `json:"succeeded"`
	Message   string `json:"message,omitempty"`
	Kind      string `json:"kind,omitempty"`
}

// OK returns a successful result.
func OK() Result {
	return Result{Succeeded: true}
}

// Fail returns a failed result of the given error kind.
func Fail(kind, message string) Result {
	return Result{Kind: kind, Message: message}
}

// FromError converts err to a failed result, keeping its RunError kind.
// A nil error yields OK.
func FromError(err error) Result {
	if err == nil {
		return OK()
	}
	var msg string
	var re *dagerrors.RunError
	if errors.As(err, &re) {
		msg = re.Message
		if re.Err != nil {
			msg = msg + ": " + re.Err.Error()
		}
	} else {
		msg = err.Error()
	}
	return Result{Kind: dagerrors.KindOf(err), Message: msg}
}

// Cancelled reports whether the result came from the user backing out.
func (r Result) Cancelled() bool {
	return !r.Succeeded && r.Kind == dagerrors.Cancelled
}

// WithPhase prefixes a failure message with the phase that produced it.
func (r Result) WithPhase(phase string) Result {
	if r.Succeeded || r.Message == "" {
		return r
	}
	r.Message = phase + " failed: " + r.Message
	return r
}
