package vcs

import (
	"context"
	"strings"
	"sync"

	"github.com/stevehiehn/relaypub/internal/runner"
)

// scriptedRunner answers each call with the next outcome produced by
// respond, and records every spec it was given.
type scriptedRunner struct {
	mu      sync.Mutex
	calls   []runner.CommandSpec
	respond func(spec runner.CommandSpec, call int) *runner.Outcome
}

func (s *scriptedRunner) Run(_ context.Context, spec runner.CommandSpec, _ runner.Options) *runner.Outcome {
	s.mu.Lock()
	s.calls = append(s.calls, spec)
	n := len(s.calls)
	s.mu.Unlock()
	return s.respond(spec, n)
}

func (s *scriptedRunner) subcommands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.calls {
		if len(c.Args) > 0 {
			out = append(out, c.Args[0])
		}
	}
	return out
}

func (s *scriptedRunner) callsFor(sub string) []runner.CommandSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []runner.CommandSpec
	for _, c := range s.calls {
		if len(c.Args) > 0 && c.Args[0] == sub {
			out = append(out, c)
		}
	}
	return out
}

func ok(stdout string) *runner.Outcome {
	return &runner.Outcome{Succeeded: true, Stdout: stdout}
}

func failed(stderr string, code int) *runner.Outcome {
	return &runner.Outcome{ExitCode: code, Stderr: stderr}
}

func hasArg(spec runner.CommandSpec, prefix string) bool {
	for _, a := range spec.Args {
		if strings.HasPrefix(a, prefix) {
			return true
		}
	}
	return false
}
