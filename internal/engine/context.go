package engine

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stevehiehn/relaypub/internal/artifact"
	dagerrors "github.com/stevehiehn/relaypub/internal/errors"
	"github.com/stevehiehn/relaypub/internal/metrics"
	"github.com/stevehiehn/relaypub/internal/runner"
)

// prefixedPhases are the phases whose failure messages name the phase.
var prefixedPhases = map[string]bool{
	dagerrors.PhaseSync:             true,
	dagerrors.PhasePrimaryPublish:   true,
	dagerrors.PhaseSecondaryPublish: true,
	dagerrors.PhaseRelocation:       true,
}

// RunContext holds the state of one admitted run.
type RunContext struct {
	RunID string

	req     Request
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
	store   *artifact.Store
	result  *Result
	started time.Time
}

func newRunContext(deps Deps, req Request) *RunContext {
	id := uuid.New().String()
	rc := &RunContext{
		RunID:   id,
		req:     req,
		log:     deps.Log.With("run_id", id),
		metrics: deps.Metrics,
		started: time.Now(),
	}
	rc.result = &Result{RunID: id, StartedAt: rc.started, Steps: []StepRecord{}}
	if deps.RecordRoot != "" {
		store, err := artifact.New(id, deps.RecordRoot)
		if err != nil {
			rc.log.Warnw("run_record_unavailable", "error", err)
		} else {
			rc.store = store
			rc.result.Artifacts = store.BaseDir
		}
	}
	return rc
}

// do runs one step, records it, and prefixes a failure with its phase.
func (rc *RunContext) do(name string, fn func(s *StepRecord) StepResult) StepResult {
	s := StepRecord{Name: name}
	start := time.Now()
	res := fn(&s)
	d := time.Since(start)

	s.Duration = d.Round(time.Millisecond).String()
	s.Status = statusOf(res)
	rc.metrics.ObserveStep(name, d, res.Succeeded)

	if !res.Succeeded {
		s.Message = res.Message
		if prefixedPhases[name] {
			res = res.WithPhase(name)
		}
		rc.result.FailedStep = name
		if res.Cancelled() {
			rc.log.Infow("step_cancelled", "step", name)
		} else {
			rc.log.Warnw("step_failed", "step", name, "kind", res.Kind, "message", s.Message)
		}
	} else {
		rc.log.Infow("step_succeeded", "step", name, "duration", s.Duration)
	}
	rc.result.Steps = append(rc.result.Steps, s)
	return res
}

func (rc *RunContext) skip(name string) {
	rc.log.Infow("step_skipped", "step", name)
	rc.result.Steps = append(rc.result.Steps, StepRecord{Name: name, Status: "skipped"})
}

// capture stores a process outcome's output in the run record.
func (rc *RunContext) capture(s *StepRecord, out *runner.Outcome) {
	if out == nil {
		return
	}
	s.ExitCode = out.ExitCode
	if rc.store == nil {
		return
	}
	if err := rc.store.WriteStepOutput(s.Name, out.Stdout, out.Stderr); err != nil {
		rc.log.Warnw("step_output_not_recorded", "step", s.Name, "error", err)
		return
	}
	if out.Stdout != "" {
		s.StdoutRef = filepath.Join(rc.store.BaseDir, "steps", s.Name+".stdout")
	}
	if out.Stderr != "" {
		s.StderrRef = filepath.Join(rc.store.BaseDir, "steps", s.Name+".stderr")
	}
}

// cleanup removes the staging directory. Errors are logged and dropped.
func (rc *RunContext) cleanup(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		rc.log.Debugw("staging_cleanup_failed", "dir", dir, "error", err)
	}
}

func (rc *RunContext) finish(res StepResult) *Result {
	r := rc.result
	r.Succeeded = res.Succeeded
	r.Message = res.Message
	r.Kind = res.Kind
	r.Duration = time.Since(rc.started).Round(time.Millisecond).String()
	if rc.store != nil {
		if files, err := rc.store.StepFiles(); err == nil {
			r.Files = files
		}
		if err := rc.store.WriteResult(r); err != nil {
			rc.log.Warnw("run_result_not_recorded", "error", err)
		}
	}
	rc.log.Infow("publish_finished", "succeeded", r.Succeeded, "kind", r.Kind, "duration", r.Duration)
	return r
}
