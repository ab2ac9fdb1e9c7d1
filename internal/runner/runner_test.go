package runner

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
)

func sh(script string) CommandSpec {
	return CommandSpec{Program: "sh", Args: []string{"-c", script}}
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

type collectSink struct {
	mu    sync.Mutex
	lines []string
}

func (c *collectSink) Line(source, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, source+":"+text)
}

func (c *collectSink) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func TestRunEchoHello(t *testing.T) {
	skipOnWindows(t)
	r := NewExecRunner(nil).Run(context.Background(), sh("echo hello"), Options{})
	if !r.Succeeded || r.ExitCode != 0 {
		t.Fatalf("expected success, got exit %d (%s)", r.ExitCode, r.FailureMessage())
	}
	if strings.TrimSpace(r.Stdout) != "hello" {
		t.Errorf("expected stdout 'hello', got %q", r.Stdout)
	}
	if r.FailureMessage() != "" {
		t.Errorf("successful outcome should have no failure message, got %q", r.FailureMessage())
	}
}

func TestRunWorkingDirectory(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	spec := sh("pwd")
	spec.Dir = dir
	r := NewExecRunner(nil).Run(context.Background(), spec, Options{})
	if !r.Succeeded {
		t.Fatalf("expected success: %s", r.FailureMessage())
	}
	if !strings.HasSuffix(strings.TrimSpace(r.Stdout), strings.TrimPrefix(dir, "/private")) {
		t.Errorf("expected pwd %q, got %q", dir, r.Stdout)
	}
}

func TestRunFailureMessagePrefersStderr(t *testing.T) {
	skipOnWindows(t)
	r := NewExecRunner(nil).Run(context.Background(), sh("echo out; echo TF30063: denied >&2; exit 3"), Options{})
	if r.Succeeded {
		t.Fatal("expected failure")
	}
	if r.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", r.ExitCode)
	}
	if r.FailureMessage() != "TF30063: denied" {
		t.Errorf("unexpected failure message %q", r.FailureMessage())
	}
}

func TestRunFailureMessageFallsBackToStdout(t *testing.T) {
	skipOnWindows(t)
	r := NewExecRunner(nil).Run(context.Background(), sh("echo build failed; exit 1"), Options{})
	if r.FailureMessage() != "build failed" {
		t.Errorf("unexpected failure message %q", r.FailureMessage())
	}
}

func TestRunFailureMessageGeneric(t *testing.T) {
	skipOnWindows(t)
	r := NewExecRunner(nil).Run(context.Background(), sh("exit 42"), Options{})
	if r.ExitCode != 42 {
		t.Errorf("expected exit code 42, got %d", r.ExitCode)
	}
	if r.FailureMessage() != "sh exit code 42" {
		t.Errorf("unexpected failure message %q", r.FailureMessage())
	}
}

func TestRunLaunchFailure(t *testing.T) {
	r := NewExecRunner(nil).Run(context.Background(), CommandSpec{Program: "relaypub-no-such-tool"}, Options{})
	if r.Succeeded {
		t.Fatal("expected failure")
	}
	if r.LaunchErr == nil {
		t.Fatal("expected launch error")
	}
	if !strings.HasPrefix(r.FailureMessage(), "failed to start relaypub-no-such-tool") {
		t.Errorf("unexpected failure message %q", r.FailureMessage())
	}
}

func TestRunTimeoutKillsProcess(t *testing.T) {
	skipOnWindows(t)
	start := time.Now()
	r := NewExecRunner(nil).Run(context.Background(), sh("sleep 10"), Options{Timeout: 200 * time.Millisecond})
	if r.Succeeded || !r.TimedOut {
		t.Fatalf("expected timeout, got %+v", r)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took too long: %s", elapsed)
	}
	if !strings.Contains(r.FailureMessage(), "timed out after 200ms") {
		t.Errorf("unexpected failure message %q", r.FailureMessage())
	}
}

func TestRunStreamsLines(t *testing.T) {
	skipOnWindows(t)
	sink := &collectSink{}
	r := NewExecRunner(nil).Run(context.Background(),
		sh("printf 'line1\\nline2\\n'; echo warn >&2; printf 'tail'"),
		Options{Stream: true, Sink: sink})
	if !r.Succeeded {
		t.Fatalf("expected success: %s", r.FailureMessage())
	}
	got := sink.snapshot()
	want := map[string]bool{"stdout:line1": true, "stdout:line2": true, "stderr:warn": true, "stdout:tail": true}
	if len(got) != len(want) {
		t.Fatalf("expected %d lines, got %v", len(want), got)
	}
	for _, l := range got {
		if !want[l] {
			t.Errorf("unexpected streamed line %q", l)
		}
	}
	if r.Stdout != "line1\nline2\ntail" {
		t.Errorf("stdout should still be captured, got %q", r.Stdout)
	}
}

func TestCommandSpecStringMasksSecretsAndQuotes(t *testing.T) {
	spec := CommandSpec{
		Program: "tf",
		Args:    []string{"get", "$/Team Project/Main", "/login:alice,s3cret"},
		Secrets: []string{"s3cret"},
	}
	want := `tf get "$/Team Project/Main" /login:alice,****`
	if got := spec.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestOutputJoinsStreams(t *testing.T) {
	o := &Outcome{Stdout: "a", Stderr: "b"}
	if o.Output() != "a\nb" {
		t.Errorf("unexpected output %q", o.Output())
	}
	o = &Outcome{Stdout: "only"}
	if o.Output() != "only" {
		t.Errorf("unexpected output %q", o.Output())
	}
}

func TestForwarderDropsWhenFull(t *testing.T) {
	f := newForwarder(&collectSink{}, 1)
	f.send("stdout", "a")
	f.send("stdout", "b")
	if f.dropped.Load() != 1 {
		t.Errorf("expected 1 dropped line, got %d", f.dropped.Load())
	}
	f.close()
	f.close()
}

type slowSink struct {
	delay time.Duration
	collectSink
}

func (s *slowSink) Line(source, text string) {
	time.Sleep(s.delay)
	s.collectSink.Line(source, text)
}

func TestRunDoesNotWaitForSlowSink(t *testing.T) {
	skipOnWindows(t)
	sink := &slowSink{delay: 100 * time.Millisecond}
	start := time.Now()
	r := NewExecRunner(nil).Run(context.Background(),
		sh("for i in 1 2 3 4 5 6 7 8 9 10 11 12 13 14 15 16 17 18 19 20; do echo $i; done"),
		Options{Stream: true, Sink: sink})
	elapsed := time.Since(start)
	if !r.Succeeded {
		t.Fatalf("expected success: %s", r.FailureMessage())
	}
	if elapsed > time.Second {
		t.Errorf("Run blocked on the sink for %v", elapsed)
	}
	if !strings.HasSuffix(r.Stdout, "19\n20\n") {
		t.Errorf("captured output must be complete, got %q", r.Stdout)
	}
}

func TestForwarderDrainAbandonsQueue(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	f := newForwarder(blockingSink(block), 8)
	go f.run()
	for i := 0; i < 5; i++ {
		f.send("stdout", "x")
	}
	f.close()
	f.drain(20 * time.Millisecond)
	if !f.abandoned.Load() {
		t.Fatal("expected the queue to be abandoned")
	}
	if got := f.dropped.Load(); got < 4 {
		t.Errorf("expected queued lines counted as dropped, got %d", got)
	}
}

type blockingSink chan struct{}

func (b blockingSink) Line(string, string) { <-b }
