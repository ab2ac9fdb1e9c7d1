// Package runner executes external programs with captured output, optional
// line streaming, and a hard timeout.
package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/stevehiehn/relaypub/internal/logging"
)

const (
	// streamBuffer is the number of lines queued for the sink before
	// lines are dropped.
	streamBuffer = 512

	// waitDelay is how long Wait keeps copying output after the process
	// is killed before closing the pipes.
	waitDelay = 2 * time.Second

	// drainGrace bounds how long Run waits for queued lines to reach the
	// sink after the process exits. Lines still queued are dropped.
	drainGrace = 200 * time.Millisecond
)

// Options controls a single Run.
type Options struct {
	// Stream forwards stdout/stderr lines to Sink as they arrive.
	Stream bool
	Sink   logging.Sink

	// Timeout kills the process when exceeded. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Runner runs one external command to completion.
type Runner interface {
	Run(ctx context.Context, spec CommandSpec, opts Options) *Outcome
}

// ExecRunner runs commands with os/exec. It holds no per-call state.
type ExecRunner struct {
	Log *zap.SugaredLogger
}

// NewExecRunner creates a runner that logs launches and exits to log.
func NewExecRunner(log *zap.SugaredLogger) *ExecRunner {
	if log == nil {
		log = logging.Nop()
	}
	return &ExecRunner{Log: log}
}

// Run executes spec and blocks until it exits or the timeout elapses.
func (r *ExecRunner) Run(ctx context.Context, spec CommandSpec, opts Options) *Outcome {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out := &Outcome{program: spec.Program, timeout: timeout}

	cmd := exec.CommandContext(runCtx, spec.Program, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	var fwd *forwarder
	if opts.Stream && opts.Sink != nil {
		fwd = newForwarder(opts.Sink, streamBuffer)
		cmd.Stdout = &lineWriter{buf: &stdout, source: "stdout", fwd: fwd}
		cmd.Stderr = &lineWriter{buf: &stderr, source: "stderr", fwd: fwd}
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	r.Log.Debugw("process_start", "command", spec.String(), "dir", spec.Dir, "timeout", timeout.String())

	start := time.Now()
	if fwd != nil {
		go fwd.run()
	}
	runErr := cmd.Run()
	if fwd != nil {
		cmd.Stdout.(*lineWriter).flush()
		cmd.Stderr.(*lineWriter).flush()
		fwd.close()
		fwd.drain(drainGrace)
	}
	out.Duration = time.Since(start)

	out.Stdout = stdout.String()
	out.Stderr = stderr.String()

	switch {
	case runErr == nil:
		out.Succeeded = true
		out.ExitCode = 0
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		out.TimedOut = true
		out.ExitCode = extractExitCode(runErr)
	case isLaunchError(runErr):
		out.LaunchErr = runErr
		out.ExitCode = -1
	default:
		out.ExitCode = extractExitCode(runErr)
	}

	if fwd != nil && fwd.dropped.Load() > 0 {
		r.Log.Warnw("process_output_dropped", "program", spec.Program, "lines", fwd.dropped.Load())
	}
	r.Log.Debugw("process_exit",
		"program", spec.Program,
		"exit_code", out.ExitCode,
		"timed_out", out.TimedOut,
		"duration", out.Duration.Round(time.Millisecond).String(),
	)
	return out
}

func isLaunchError(err error) bool {
	var exitErr *exec.ExitError
	return !errors.As(err, &exitErr)
}

// extractExitCode maps a Wait error to an exit code; signal deaths map to
// 128+signal.
func extractExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				return 128 + int(status.Signal())
			}
			return status.ExitStatus()
		}
		return exitErr.ExitCode()
	}
	return 1
}

// lineWriter captures everything written and forwards complete lines.
// os/exec writes to each writer from a single goroutine.
type lineWriter struct {
	buf     *bytes.Buffer
	source  string
	fwd     *forwarder
	partial []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	w.partial = append(w.partial, p...)
	for {
		i := bytes.IndexByte(w.partial, '\n')
		if i < 0 {
			break
		}
		w.fwd.send(w.source, string(bytes.TrimRight(w.partial[:i], "\r")))
		w.partial = w.partial[i+1:]
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	if len(w.partial) > 0 {
		w.fwd.send(w.source, string(w.partial))
		w.partial = nil
	}
}

type streamLine struct {
	source string
	text   string
}

// forwarder decouples the sink from the process pipes: sends never block,
// lines are dropped when the sink falls behind.
type forwarder struct {
	sink      logging.Sink
	ch        chan streamLine
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Int64
	abandoned atomic.Bool
}

func newForwarder(sink logging.Sink, size int) *forwarder {
	return &forwarder{sink: sink, ch: make(chan streamLine, size), done: make(chan struct{})}
}

func (f *forwarder) send(source, text string) {
	select {
	case f.ch <- streamLine{source: source, text: text}:
	default:
		f.dropped.Add(1)
	}
}

func (f *forwarder) run() {
	defer close(f.done)
	for l := range f.ch {
		if f.abandoned.Load() {
			f.dropped.Add(1)
			continue
		}
		f.sink.Line(l.source, l.text)
	}
}

// drain waits up to grace for run to deliver the queue, then abandons it.
// The line being delivered at that moment still completes in the
// background.
func (f *forwarder) drain(grace time.Duration) {
	t := time.NewTimer(grace)
	defer t.Stop()
	select {
	case <-f.done:
	case <-t.C:
		f.abandoned.Store(true)
		for range f.ch {
			f.dropped.Add(1)
		}
	}
}

func (f *forwarder) close() {
	f.closeOnce.Do(func() { close(f.ch) })
}
