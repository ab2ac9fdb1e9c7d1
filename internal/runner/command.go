package runner

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTimeout bounds a single process when Options.Timeout is zero.
const DefaultTimeout = 5 * time.Minute

// CommandSpec describes one external program invocation.
type CommandSpec struct {
	Program string
	Args    []string
	Dir     string

	// Secrets are argument substrings masked in String().
	Secrets []string
}

// String renders the command line for logs. Arguments containing whitespace
// are quoted and secrets are masked.
func (c CommandSpec) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quoteArg(c.Program))
	for _, a := range c.Args {
		for _, s := range c.Secrets {
			if s != "" {
				a = strings.ReplaceAll(a, s, "****")
			}
		}
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

func quoteArg(s string) string {
	if strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}

// Outcome is the immutable result of one process run.
type Outcome struct {
	Succeeded bool
	ExitCode  int
	Stdout    string
	Stderr    string
	TimedOut  bool
	Duration  time.Duration

	// LaunchErr is set when the program could not be started.
	LaunchErr error

	program string
	timeout time.Duration
}

// FailureMessage is stderr if non-blank, else stdout if non-blank, else a
// generic exit code message. It is empty for successful outcomes.
func (o *Outcome) FailureMessage() string {
	if o == nil {
		return "process did not run"
	}
	if o.Succeeded {
		return ""
	}
	switch {
	case o.TimedOut:
		return fmt.Sprintf("%s timed out after %s", o.program, o.timeout)
	case o.LaunchErr != nil:
		return fmt.Sprintf("failed to start %s: %v", o.program, o.LaunchErr)
	case strings.TrimSpace(o.Stderr) != "":
		return strings.TrimSpace(o.Stderr)
	case strings.TrimSpace(o.Stdout) != "":
		return strings.TrimSpace(o.Stdout)
	default:
		return fmt.Sprintf("%s exit code %d", o.program, o.ExitCode)
	}
}

// Output returns stdout followed by stderr, for callers that scan both.
func (o *Outcome) Output() string {
	if o == nil {
		return ""
	}
	if o.Stderr == "" {
		return o.Stdout
	}
	if o.Stdout == "" {
		return o.Stderr
	}
	return o.Stdout + "\n" + o.Stderr
}
