package engine

import (
	"time"

	"github.com/stevehiehn/relaypub/internal/step"
)

// StepResult is the uniform result of a step and of a whole run.
type StepResult = step.Result

// Result is the structured record of one publish run, written to the run
// record and printed by --json.
type Result struct {
	RunID       string       `json:"run_id"`
	Succeeded   bool         `json:"succeeded"`
	Message     string       `json:"message,omitempty"`
	Kind        string       `json:"kind,omitempty"`
	FailedStep  string       `json:"failed_step,omitempty"`
	Destination string       `json:"destination,omitempty"`
	Steps       []StepRecord `json:"steps"`
	StartedAt   time.Time    `json:"started_at"`
	Duration    string       `json:"duration"`
	Artifacts   string       `json:"artifacts,omitempty"`
	Files       []string     `json:"files,omitempty"` // captured output, relative to Artifacts
}

// StepRecord describes the outcome of a single step.
type StepRecord struct {
	Name      string `json:"name"`
	Status    string `json:"status"` // success, failed, cancelled, skipped
	Message   string `json:"message,omitempty"`
	Command   string `json:"command,omitempty"`
	ExitCode  int    `json:"exit_code,omitempty"`
	StdoutRef string `json:"stdout_ref,omitempty"`
	StderrRef string `json:"stderr_ref,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

func statusOf(r StepResult) string {
	switch {
	case r.Succeeded:
		return "success"
	case r.Cancelled():
		return "cancelled"
	default:
		return "failed"
	}
}
