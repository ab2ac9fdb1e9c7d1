package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sink accepts free-form text lines. Implementations must be safe for
// concurrent use; a nil Sink is never called.
type Sink interface {
	Line(source, text string)
}

// ZapSink forwards lines to a structured logger at debug level.
type ZapSink struct {
	Log *zap.SugaredLogger
}

func (s ZapSink) Line(source, text string) {
	if s.Log == nil {
		return
	}
	s.Log.Debugw("output", "source", source, "line", text)
}

// Tee fans every line out to each non-nil sink.
type Tee []Sink

func (t Tee) Line(source, text string) {
	for _, s := range t {
		if s != nil {
			s.Line(source, text)
		}
	}
}

// FileSink appends timestamped lines to <dir>/logs/publish.log so a run can
// be inspected after the terminal is gone.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
	now  func() time.Time
}

// OpenFileSink creates (or reuses) the log file under stateDir.
func OpenFileSink(stateDir string) (*FileSink, error) {
	logDir := filepath.Join(stateDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, "publish.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &FileSink{file: f, now: time.Now}, nil
}

// Path returns the log file location.
func (s *FileSink) Path() string {
	if s == nil || s.file == nil {
		return ""
	}
	return s.file.Name()
}

func (s *FileSink) Line(source, text string) {
	if s == nil || s.file == nil {
		return
	}
	text = strings.TrimRight(text, "\r\n")
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.now().Format(time.RFC3339)
	if source != "" {
		fmt.Fprintf(s.file, "[%s] %s: %s\n", ts, source, text)
		return
	}
	fmt.Fprintf(s.file, "[%s] %s\n", ts, text)
}

// Close releases the file handle.
func (s *FileSink) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	return s.file.Close()
}
