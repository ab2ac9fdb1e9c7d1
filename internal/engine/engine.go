// Package engine sequences a publish run: sync the workspace, publish the
// primary project into the destination, publish the secondary project into
// a staging directory and relocate it under the destination.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/stevehiehn/relaypub/internal/build"
	"github.com/stevehiehn/relaypub/internal/dirsync"
	dagerrors "github.com/stevehiehn/relaypub/internal/errors"
	"github.com/stevehiehn/relaypub/internal/logging"
	"github.com/stevehiehn/relaypub/internal/metrics"
	"github.com/stevehiehn/relaypub/internal/runner"
	"github.com/stevehiehn/relaypub/internal/step"
	"github.com/stevehiehn/relaypub/internal/vcs"
)

// InProgressMessage is returned to a run rejected by the admission gate.
const InProgressMessage = "publish already in progress"

// ErrNoDestination is returned by a DestinationProvider when the user
// declines to choose a destination.
var ErrNoDestination = errors.New("no destination chosen")

// DestinationProvider resolves the destination root. remembered is the
// previously used path, possibly empty. An empty path or an error cancels
// the run.
type DestinationProvider interface {
	Destination(ctx context.Context, remembered string) (string, error)
}

// DestinationFunc adapts a function to DestinationProvider.
type DestinationFunc func(ctx context.Context, remembered string) (string, error)

func (f DestinationFunc) Destination(ctx context.Context, remembered string) (string, error) {
	return f(ctx, remembered)
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Runner runner.Runner
	Build  build.Tool

	// VcsTool is the VCS program name; empty means vcs.DefaultTool.
	VcsTool string

	Destinations DestinationProvider

	Log     *zap.SugaredLogger
	Sink    logging.Sink
	Metrics *metrics.Metrics

	// RecordRoot, when set, is the directory under which each run writes
	// .relaypub/runs/<run_id>.
	RecordRoot string

	// StagingRoot is the parent of the staging directories; empty means
	// the system temp directory.
	StagingRoot string
}

// Request is the input of one publish run.
type Request struct {
	SourceRoot       string
	PrimaryProject   string
	SecondaryProject string

	// SecondaryName is the destination subdirectory receiving the
	// secondary output. Empty means the secondary project's base name.
	SecondaryName string

	// Destination is the remembered destination handed to the provider,
	// or the destination itself when no provider is configured.
	Destination string

	Hints               vcs.Hints
	Credentials         *vcs.Credentials
	CredentialsProvider vcs.CredentialsProvider

	Settings build.Settings
	Timeout  time.Duration
	Stream   bool
	SkipSync bool
}

// Orchestrator runs publish requests one at a time. Construct it once and
// share it with every trigger.
type Orchestrator struct {
	deps Deps
	gate *semaphore.Weighted
}

// New creates an orchestrator.
func New(deps Deps) *Orchestrator {
	if deps.Log == nil {
		deps.Log = logging.Nop()
	}
	if deps.Build == nil {
		deps.Build = &build.Dotnet{}
	}
	return &Orchestrator{deps: deps, gate: semaphore.NewWeighted(1)}
}

// RunPublish executes req and returns the terminal result. A call made
// while another run holds the gate returns an IN_PROGRESS failure at once
// without running anything.
func (o *Orchestrator) RunPublish(ctx context.Context, req Request) StepResult {
	res, _ := o.Run(ctx, req)
	return res
}

// Go runs req on a worker goroutine. The channel receives exactly one
// result and is then closed.
func (o *Orchestrator) Go(ctx context.Context, req Request) <-chan StepResult {
	ch := make(chan StepResult, 1)
	go func() {
		defer close(ch)
		ch <- o.RunPublish(ctx, req)
	}()
	return ch
}

// Run is RunPublish returning the full run record as well. The record is
// nil for a rejected run.
func (o *Orchestrator) Run(ctx context.Context, req Request) (res StepResult, record *Result) {
	if !o.gate.TryAcquire(1) {
		o.deps.Log.Warnw("publish_rejected", "reason", InProgressMessage)
		o.deps.Metrics.ObserveRun(metrics.ResultRejected)
		return step.Fail(dagerrors.InProgress, InProgressMessage), nil
	}
	o.deps.Metrics.SetInFlight(true)
	defer func() {
		o.deps.Metrics.SetInFlight(false)
		o.gate.Release(1)
	}()

	rc := newRunContext(o.deps, req)
	defer func() {
		if p := recover(); p != nil {
			rc.log.Errorw("publish_panic", "panic", p)
			res = step.Fail(dagerrors.Internal, fmt.Sprintf("unexpected failure: %v", p))
		}
		record = rc.finish(res)
		o.deps.Metrics.ObserveRun(runLabel(res))
	}()

	rc.log.Infow("publish_started", "source_root", req.SourceRoot)
	return o.execute(ctx, rc), nil
}

func (o *Orchestrator) execute(ctx context.Context, rc *RunContext) StepResult {
	req := rc.req

	var primary, secondary string
	res := rc.do(dagerrors.PhaseValidate, func(s *StepRecord) StepResult {
		var r StepResult
		primary, secondary, r = validateProjects(req)
		return r
	})
	if !res.Succeeded {
		return res
	}

	var dest string
	if res = rc.do(dagerrors.PhaseDestination, func(s *StepRecord) StepResult {
		var r StepResult
		dest, r = o.resolveDestination(ctx, rc)
		return r
	}); !res.Succeeded {
		return res
	}
	rc.result.Destination = dest

	if req.SkipSync {
		rc.skip(dagerrors.PhaseSync)
	} else if res = rc.do(dagerrors.PhaseSync, func(s *StepRecord) StepResult {
		return o.sync(ctx, rc)
	}); !res.Succeeded {
		return res
	}

	if res = rc.do(dagerrors.PhasePrimaryPublish, func(s *StepRecord) StepResult {
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return step.FromError(dagerrors.NewIOError("creating destination "+dest, err))
		}
		return o.publish(ctx, rc, s, primary, dest)
	}); !res.Succeeded {
		return res
	}

	staging, err := os.MkdirTemp(o.deps.StagingRoot, "relaypub-"+rc.RunID+"-")
	if err != nil {
		return rc.do(dagerrors.PhaseSecondaryPublish, func(s *StepRecord) StepResult {
			return step.FromError(dagerrors.NewIOError("creating staging directory", err))
		})
	}
	defer rc.cleanup(staging)

	if res = rc.do(dagerrors.PhaseSecondaryPublish, func(s *StepRecord) StepResult {
		return o.publish(ctx, rc, s, secondary, staging)
	}); !res.Succeeded {
		return res
	}

	target := filepath.Join(dest, secondaryName(req))
	return rc.do(dagerrors.PhaseRelocation, func(s *StepRecord) StepResult {
		rc.log.Infow("relocating", "from", staging, "to", target)
		return step.FromError(dirsync.ReplaceTree(staging, target))
	})
}

// validateProjects resolves both project descriptors against the source
// root and checks that they are files.
func validateProjects(req Request) (string, string, StepResult) {
	primary := resolveProject(req.SourceRoot, req.PrimaryProject)
	secondary := resolveProject(req.SourceRoot, req.SecondaryProject)
	for _, p := range []string{primary, secondary} {
		if p == "" {
			return "", "", step.Fail(dagerrors.NotFound, "project not found: no project configured")
		}
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			return "", "", step.Fail(dagerrors.NotFound, "project not found: "+p)
		}
	}
	return primary, secondary, step.OK()
}

func resolveProject(root, project string) string {
	project = strings.TrimSpace(project)
	if project == "" || filepath.IsAbs(project) || root == "" {
		return project
	}
	return filepath.Join(root, project)
}

func secondaryName(req Request) string {
	if name := strings.TrimSpace(req.SecondaryName); name != "" {
		return name
	}
	base := filepath.Base(req.SecondaryProject)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// resolveDestination asks the provider for a destination. Any refusal is a
// cancellation with an empty message.
func (o *Orchestrator) resolveDestination(ctx context.Context, rc *RunContext) (string, StepResult) {
	dest := rc.req.Destination
	if o.deps.Destinations != nil {
		chosen, err := o.deps.Destinations.Destination(ctx, rc.req.Destination)
		if err != nil {
			if !errors.Is(err, ErrNoDestination) {
				rc.log.Warnw("destination_prompt_failed", "error", err)
			}
			return "", step.Fail(dagerrors.Cancelled, "")
		}
		dest = chosen
	}
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return "", step.Fail(dagerrors.Cancelled, "")
	}
	if abs, err := filepath.Abs(dest); err == nil {
		dest = abs
	}
	return dest, step.OK()
}

func (o *Orchestrator) sync(ctx context.Context, rc *RunContext) StepResult {
	c := vcs.NewCoordinator(o.deps.Runner, rc.log)
	if o.deps.VcsTool != "" {
		c.Tool = o.deps.VcsTool
	}
	c.Sink = o.deps.Sink
	c.Stream = rc.req.Stream
	c.Timeout = rc.req.Timeout
	c.OnAuthRetry = o.deps.Metrics.AuthRetry
	return c.Sync(ctx, rc.req.SourceRoot, rc.req.Hints, rc.req.Credentials, rc.req.CredentialsProvider)
}

// publish runs the build tool's publish command for project into outDir.
func (o *Orchestrator) publish(ctx context.Context, rc *RunContext, s *StepRecord, project, outDir string) StepResult {
	spec := o.deps.Build.PublishCommand(project, outDir, rc.req.SourceRoot, rc.req.Settings)
	s.Command = spec.String()
	rc.log.Debugw("publish_command", "step", s.Name, "command", s.Command)

	out := o.deps.Runner.Run(ctx, spec, runner.Options{
		Stream:  rc.req.Stream,
		Sink:    o.deps.Sink,
		Timeout: rc.req.Timeout,
	})
	rc.capture(s, out)
	if !out.Succeeded {
		return step.Fail(dagerrors.ProcessError, out.FailureMessage())
	}
	return step.OK()
}

func runLabel(r StepResult) string {
	switch {
	case r.Succeeded:
		return metrics.ResultSuccess
	case r.Cancelled():
		return metrics.ResultCancelled
	default:
		return metrics.ResultFailure
	}
}
