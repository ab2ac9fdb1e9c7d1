package errors

import (
	"fmt"
	"io/fs"
	"testing"
)

func TestRunErrorFormatting(t *testing.T) {
	e := &RunError{Type: ProcessError, Phase: PhaseSync, Message: "exit code 1"}
	if got := e.Error(); got != "[PROCESS_ERROR] sync: exit code 1" {
		t.Errorf("unexpected message %q", got)
	}
	e = NewConfigurationError("username set without password", "set vcs.password")
	if got := e.Error(); got != "[CONFIGURATION_ERROR] username set without password" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestKindOfUnwrapsChains(t *testing.T) {
	inner := NewIOError("copy failed", fs.ErrPermission)
	wrapped := fmt.Errorf("relocating: %w", inner)
	if KindOf(wrapped) != IOError {
		t.Errorf("expected IO_ERROR, got %q", KindOf(wrapped))
	}
	if !Is(wrapped, IOError) {
		t.Error("expected Is to match IO_ERROR")
	}
	if KindOf(fmt.Errorf("plain")) != Internal {
		t.Error("expected plain errors to classify as INTERNAL")
	}
	if KindOf(nil) != "" {
		t.Error("expected nil error to have no kind")
	}
}
