package errors

import (
	stderrors "errors"
	"fmt"
)

// Error type constants
const (
	ConfigurationError  = "CONFIGURATION_ERROR"
	NotFound            = "NOT_FOUND"
	Cancelled           = "CANCELLED"
	AuthenticationError = "AUTHENTICATION_ERROR"
	ProcessError        = "PROCESS_ERROR"
	IOError             = "IO_ERROR"
	InProgress          = "IN_PROGRESS"
	Internal            = "INTERNAL"
)

// Phase names used as message prefixes for pipeline failures.
const (
	PhaseValidate         = "validate"
	PhaseDestination      = "destination"
	PhaseSync             = "sync"
	PhasePrimaryPublish   = "primary-publish"
	PhaseSecondaryPublish = "secondary-publish"
	PhaseRelocation       = "relocation"
)

// RunError is a classified failure raised while preparing or running a publish.
type RunError struct {
	Type    string `json:"type"`
	Phase   string `json:"phase,omitempty"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
	Err     error  `json:"-"`
}

func (e *RunError) Error() string {
	if e.Phase != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Phase, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *RunError) Unwrap() error { return e.Err }

func NewConfigurationError(msg, hint string) *RunError {
	return &RunError{Type: ConfigurationError, Message: msg, Hint: hint}
}

func NewNotFoundError(msg string) *RunError {
	return &RunError{Type: NotFound, Message: msg}
}

func NewCancelled(msg string) *RunError {
	return &RunError{Type: Cancelled, Message: msg}
}

func NewIOError(msg string, err error) *RunError {
	return &RunError{Type: IOError, Message: msg, Err: err}
}

// KindOf returns the Type of the first *RunError in err's chain, or Internal.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	var re *RunError
	if stderrors.As(err, &re) {
		return re.Type
	}
	return Internal
}

// Is reports whether err carries a *RunError of the given type.
func Is(err error, kind string) bool {
	return err != nil && KindOf(err) == kind
}
