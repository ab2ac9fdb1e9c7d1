// Package vcs drives the centralized version-control command line: it
// builds "get" arguments, auto-detects the server path and collection URL
// from diagnostic output, and retries once with fresh credentials when the
// first attempt fails authentication.
package vcs

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	dagerrors "github.com/stevehiehn/relaypub/internal/errors"
	"github.com/stevehiehn/relaypub/internal/logging"
	"github.com/stevehiehn/relaypub/internal/runner"
	"github.com/stevehiehn/relaypub/internal/step"
)

// DefaultTool is the VCS command line program.
const DefaultTool = "tf"

// ErrCancelled is returned by a CredentialsProvider when the user declines.
var ErrCancelled = errors.New("credential prompt cancelled")

// Hints are optional location values. Empty fields are auto-detected.
type Hints struct {
	ServerPath    string `json:"server_path,omitempty"`
	CollectionURL string `json:"collection_url,omitempty"`
}

// merge fills h's empty fields from o.
func (h Hints) merge(o Hints) Hints {
	if strings.TrimSpace(h.ServerPath) == "" {
		h.ServerPath = o.ServerPath
	}
	if strings.TrimSpace(h.CollectionURL) == "" {
		h.CollectionURL = o.CollectionURL
	}
	return h
}

func (h Hints) complete() bool {
	return strings.TrimSpace(h.ServerPath) != "" && strings.TrimSpace(h.CollectionURL) != ""
}

// CredentialsProvider asks for replacement credentials after an
// authentication failure. usernameHint is the last known username.
// Returning nil credentials or ErrCancelled means the user declined.
type CredentialsProvider interface {
	Credentials(ctx context.Context, usernameHint string) (*Credentials, error)
}

// CredentialsFunc adapts a function to CredentialsProvider.
type CredentialsFunc func(ctx context.Context, usernameHint string) (*Credentials, error)

func (f CredentialsFunc) Credentials(ctx context.Context, usernameHint string) (*Credentials, error) {
	return f(ctx, usernameHint)
}

// Coordinator runs the sync protocol against one VCS tool.
type Coordinator struct {
	Tool    string
	Runner  runner.Runner
	Log     *zap.SugaredLogger
	Sink    logging.Sink
	Stream  bool
	Timeout time.Duration

	// OnAuthRetry is called once when a retry with new credentials starts.
	OnAuthRetry func()
}

// NewCoordinator returns a coordinator for the default tool.
func NewCoordinator(r runner.Runner, log *zap.SugaredLogger) *Coordinator {
	if log == nil {
		log = logging.Nop()
	}
	return &Coordinator{Tool: DefaultTool, Runner: r, Log: log}
}

func (c *Coordinator) tool() string {
	if c.Tool == "" {
		return DefaultTool
	}
	return c.Tool
}

// Sync brings root up to date. On an authentication failure it asks
// provider for new credentials and retries exactly once.
func (c *Coordinator) Sync(ctx context.Context, root string, hints Hints, creds *Credentials, provider CredentialsProvider) step.Result {
	spec, err := c.GetCommand(ctx, root, hints, creds)
	if err != nil {
		return step.FromError(err)
	}
	out := c.Runner.Run(ctx, spec, c.runOptions())
	if out.Succeeded {
		c.Log.Infow("vcs_sync_succeeded", "root", root)
		return step.OK()
	}

	msg := out.FailureMessage()
	if !IsAuthFailure(msg) || provider == nil {
		c.Log.Warnw("vcs_sync_failed", "root", root, "exit_code", out.ExitCode)
		return step.Fail(dagerrors.ProcessError, msg)
	}

	c.Log.Warnw("vcs_auth_failed", "root", root)
	c.sinkLine("access denied, requesting credentials")
	hint := ""
	if creds != nil {
		hint = strings.TrimSpace(creds.Username)
	}
	fresh, err := provider.Credentials(ctx, hint)
	if err != nil || fresh.Blank() {
		if err != nil && !errors.Is(err, ErrCancelled) {
			c.Log.Warnw("credential_prompt_failed", "error", err)
		}
		return step.Fail(dagerrors.AuthenticationError, msg)
	}
	fresh = &Credentials{Username: strings.TrimSpace(fresh.Username), Password: fresh.Password}

	if c.OnAuthRetry != nil {
		c.OnAuthRetry()
	}
	spec, err = c.GetCommand(ctx, root, hints, fresh)
	if err != nil {
		return step.FromError(err)
	}
	out = c.Runner.Run(ctx, spec, c.runOptions())
	if out.Succeeded {
		c.Log.Infow("vcs_sync_succeeded", "root", root, "retried", true)
		return step.OK()
	}
	kind := dagerrors.ProcessError
	if IsAuthFailure(out.FailureMessage()) {
		kind = dagerrors.AuthenticationError
	}
	return step.Fail(kind, out.FailureMessage())
}

// GetCommand composes the "get" command for root, detecting missing hints.
func (c *Coordinator) GetCommand(ctx context.Context, root string, hints Hints, creds *Credentials) (runner.CommandSpec, error) {
	login, err := LoginArg(creds)
	if err != nil {
		return runner.CommandSpec{}, err
	}

	resolved := Hints{
		ServerPath:    strings.TrimSpace(hints.ServerPath),
		CollectionURL: strings.TrimSpace(hints.CollectionURL),
	}
	if !resolved.complete() {
		detected := c.Detect(ctx, root, resolved, creds)
		if resolved.ServerPath == "" && detected.ServerPath != "" {
			resolved.ServerPath = detected.ServerPath
			c.Log.Debugw("vcs_server_path_detected", "server_path", detected.ServerPath)
		}
		if resolved.CollectionURL == "" && detected.CollectionURL != "" {
			resolved.CollectionURL = detected.CollectionURL
			c.Log.Debugw("vcs_collection_detected", "collection_url", detected.CollectionURL)
		}
	}

	spec := runner.CommandSpec{
		Program: c.tool(),
		Args:    BuildGetArgs(resolved.ServerPath, resolved.CollectionURL, login),
		Dir:     root,
		Secrets: secretsOf(creds),
	}
	c.Log.Debugw("vcs_command", "command", spec.String())
	return spec, nil
}

// BuildGetArgs returns `get [serverPath] /recursive /noprompt
// [/collection:<url>] [login]`, omitting empty clauses.
func BuildGetArgs(serverPath, collectionURL, login string) []string {
	args := []string{"get"}
	if serverPath != "" {
		args = append(args, serverPath)
	}
	args = append(args, "/recursive", "/noprompt")
	if collectionURL != "" {
		args = append(args, "/collection:"+collectionURL)
	}
	if login != "" {
		args = append(args, login)
	}
	return args
}

// Detect runs the workfold diagnostic against root and, if a value is still
// missing, the info diagnostic. Failures are logged and ignored; the result
// holds whatever was found.
func (c *Coordinator) Detect(ctx context.Context, root string, hints Hints, creds *Credentials) Hints {
	var common []string
	if hints.CollectionURL != "" {
		common = append(common, "/collection:"+hints.CollectionURL)
	}
	login, err := LoginArg(creds)
	if err == nil && login != "" {
		common = append(common, login)
	}

	secrets := secretsOf(creds)
	var found Hints
	wf := c.diagnostic(ctx, root, "workfold", common, secrets)
	if wf.Succeeded {
		found.ServerPath = ParseWorkfoldServerPath(wf.Stdout)
		found.CollectionURL = ParseCollectionURL(wf.Stdout)
	} else {
		c.Log.Debugw("vcs_workfold_failed", "message", wf.FailureMessage())
	}
	if hints.merge(found).complete() {
		return found
	}

	info := c.diagnostic(ctx, root, "info", common, secrets)
	if !info.Succeeded {
		c.Log.Debugw("vcs_info_failed", "message", info.FailureMessage())
		return found
	}
	if found.ServerPath == "" {
		found.ServerPath = ParseInfoServerPath(info.Stdout)
	}
	if found.CollectionURL == "" {
		found.CollectionURL = ParseCollectionURL(info.Stdout)
	}
	return found
}

func (c *Coordinator) diagnostic(ctx context.Context, root, sub string, common, secrets []string) *runner.Outcome {
	args := append([]string{sub, root, "/format:xml", "/noprompt"}, common...)
	spec := runner.CommandSpec{Program: c.tool(), Args: args, Dir: root, Secrets: secrets}
	return c.Runner.Run(ctx, spec, runner.Options{Timeout: c.Timeout})
}

func (c *Coordinator) runOptions() runner.Options {
	return runner.Options{Stream: c.Stream, Sink: c.Sink, Timeout: c.Timeout}
}

func (c *Coordinator) sinkLine(text string) {
	if c.Sink != nil {
		c.Sink.Line("vcs", text)
	}
}

func secretsOf(creds *Credentials) []string {
	if creds == nil || creds.Password == "" {
		return nil
	}
	return []string{creds.Password}
}
