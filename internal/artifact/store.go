// Package artifact keeps the on-disk record of each publish run: the
// captured output of every process step and the final result.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// StateDir is the per-workspace directory holding run records and logs.
const StateDir = ".relaypub"

// Store manages the record directory of one run.
type Store struct {
	RunID   string
	BaseDir string // <root>/.relaypub/runs/<run_id>
}

// New creates a store for runID under root.
func New(runID, root string) (*Store, error) {
	base := filepath.Join(root, StateDir, "runs", runID)
	if err := os.MkdirAll(filepath.Join(base, "steps"), 0o755); err != nil {
		return nil, fmt.Errorf("creating run record dir: %w", err)
	}
	return &Store{RunID: runID, BaseDir: base}, nil
}

// WriteStepOutput writes stdout/stderr captured for a step. Empty streams
// are skipped.
func (s *Store) WriteStepOutput(stepID, stdout, stderr string) error {
	if stdout != "" {
		if err := os.WriteFile(s.stepPath(stepID, "stdout"), []byte(stdout), 0o644); err != nil {
			return err
		}
	}
	if stderr != "" {
		if err := os.WriteFile(s.stepPath(stepID, "stderr"), []byte(stderr), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// WriteResult writes the final result JSON.
func (s *Store) WriteResult(result any) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.BaseDir, "result.json"), data, 0o644)
}

// StepFiles lists the captured output files, relative to BaseDir.
func (s *Store) StepFiles() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.BaseDir, "steps"))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			out = append(out, filepath.Join("steps", e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) stepPath(stepID, stream string) string {
	return filepath.Join(s.BaseDir, "steps", stepID+"."+stream)
}
