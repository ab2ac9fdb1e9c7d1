// Package template expands placeholders in configured paths.
package template

import (
	"fmt"
	"os"
	"regexp"
)

var sourceRootRe = regexp.MustCompile(`\{\{\s*source_root\s*\}\}`)
var envRefRe = regexp.MustCompile(`\{\{\s*env\.([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Context holds available values for template resolution.
type Context struct {
	SourceRoot string

	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Resolve replaces {{source_root}} and {{env.NAME}} in s. An unset
// environment variable is an error.
func Resolve(s string, ctx *Context) (string, error) {
	if ctx == nil {
		ctx = &Context{}
	}
	lookup := ctx.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var resolveErr error
	result := envRefRe.ReplaceAllStringFunc(s, func(match string) string {
		name := envRefRe.FindStringSubmatch(match)[1]
		val, ok := lookup(name)
		if !ok {
			resolveErr = fmt.Errorf("unresolved environment variable %q", name)
			return match
		}
		return val
	})
	if resolveErr != nil {
		return "", resolveErr
	}

	if sourceRootRe.MatchString(result) {
		if ctx.SourceRoot == "" {
			return "", fmt.Errorf("{{source_root}} used but source_root is not set")
		}
		result = sourceRootRe.ReplaceAllLiteralString(result, ctx.SourceRoot)
	}
	return result, nil
}

// HasPlaceholders reports whether s contains any placeholder.
func HasPlaceholders(s string) bool {
	return sourceRootRe.MatchString(s) || envRefRe.MatchString(s)
}
