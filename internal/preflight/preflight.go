// Package preflight checks that a workstation can run a publish: the VCS
// and build tools resolve, and the configured paths are usable.
package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/stevehiehn/relaypub/internal/build"
	"github.com/stevehiehn/relaypub/internal/runner"
)

// probeTimeout bounds each tool version probe.
const probeTimeout = 20 * time.Second

// Check is the outcome of one preflight check.
type Check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

// Options select what is checked.
type Options struct {
	VcsTool     string
	Build       build.Tool
	SourceRoot  string
	Projects    []string
	Destination string
	SkipSync    bool

	// Runner, when set, is used to probe the build tool version.
	Runner runner.Runner

	// LookPath defaults to exec.LookPath.
	LookPath func(string) (string, error)
}

// RunAll runs every check and returns them in a fixed order.
func RunAll(ctx context.Context, opts Options) []Check {
	lookPath := opts.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	var checks []Check
	if !opts.SkipSync {
		checks = append(checks, toolCheck("vcs", opts.VcsTool, lookPath))
	}
	if opts.Build != nil {
		c := toolCheck("build", opts.Build.Name(), lookPath)
		if c.OK && opts.Runner != nil {
			c = probeVersion(ctx, c, opts.Build, opts.Runner)
		}
		checks = append(checks, c)
	}
	checks = append(checks, dirCheck("source", opts.SourceRoot, true))
	for _, p := range opts.Projects {
		checks = append(checks, fileCheck(p))
	}
	if opts.Destination != "" {
		checks = append(checks, dirCheck("dest", opts.Destination, false))
	}
	return checks
}

// Passed reports whether every check succeeded.
func Passed(checks []Check) bool {
	for _, c := range checks {
		if !c.OK {
			return false
		}
	}
	return true
}

func toolCheck(name, program string, lookPath func(string) (string, error)) Check {
	if program == "" {
		return Check{Name: name, Detail: "no tool configured"}
	}
	path, err := lookPath(program)
	if err != nil {
		return Check{Name: name, Detail: fmt.Sprintf("%s not found on PATH", program)}
	}
	return Check{Name: name, OK: true, Detail: path}
}

func probeVersion(ctx context.Context, c Check, tool build.Tool, r runner.Runner) Check {
	out := r.Run(ctx, tool.VersionCommand(), runner.Options{Timeout: probeTimeout})
	if !out.Succeeded {
		c.OK = false
		c.Detail = fmt.Sprintf("%s: %s", c.Detail, out.FailureMessage())
		return c
	}
	if v := firstLine(out.Stdout); v != "" {
		c.Detail = fmt.Sprintf("%s (%s)", c.Detail, v)
	}
	return c
}

// dirCheck verifies dir is a directory. A missing dir passes when it may
// be created later.
func dirCheck(name, dir string, mustExist bool) Check {
	if strings.TrimSpace(dir) == "" {
		return Check{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err) && !mustExist:
		return Check{Name: name, OK: true, Detail: dir + " (will be created)"}
	case err != nil:
		return Check{Name: name, Detail: err.Error()}
	case !info.IsDir():
		return Check{Name: name, Detail: dir + " is not a directory"}
	}
	return Check{Name: name, OK: true, Detail: dir}
}

func fileCheck(path string) Check {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return Check{Name: name, Detail: "project not found: " + path}
	}
	return Check{Name: name, OK: true, Detail: path}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
