// Package build turns a project descriptor and output directory into the
// publish command line of a build tool.
package build

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/stevehiehn/relaypub/internal/runner"
)

// Settings select how a project is published.
type Settings struct {
	// Profile is a named publish profile. Configuration may be used in
	// its place, per deployment convention.
	Profile       string
	Configuration string

	// Properties are extra build properties passed as key=value.
	Properties map[string]string
}

// Tool is a build tool that can publish a project.
type Tool interface {
	Name() string
	PublishCommand(project, outDir, workDir string, s Settings) runner.CommandSpec
	VersionCommand() runner.CommandSpec
}

var registry = map[string]Tool{}

func init() {
	registry["dotnet"] = &Dotnet{}
	registry["msbuild"] = &MSBuild{}
}

// Get returns a tool by name.
func Get(name string) (Tool, error) {
	t, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown build tool %q", name)
	}
	return t, nil
}

// Known returns true if the tool name is registered.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

// Names lists registered tools in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// withTrailingSeparator makes dir end in a path separator; publish targets
// treat PublishDir as a prefix.
func withTrailingSeparator(dir string) string {
	if dir == "" || strings.HasSuffix(dir, string(os.PathSeparator)) || strings.HasSuffix(dir, "/") {
		return dir
	}
	return dir + string(os.PathSeparator)
}

func sortedProperties(props map[string]string) []string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+props[k])
	}
	return out
}
