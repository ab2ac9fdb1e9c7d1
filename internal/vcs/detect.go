package vcs

import (
	"path"
	"regexp"
	"strings"
)

var (
	workfoldServerItemRe = regexp.MustCompile(`(?i)serverItem="(\$/[^"]+)"`)
	serverPathTokenRe    = regexp.MustCompile(`\$/[^"\s<]+`)

	// Checked in order; the first match wins.
	collectionURLPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)collection="(https?://[^"]+)"`),
		regexp.MustCompile(`(?i)collectionUri="(https?://[^"]+)"`),
		regexp.MustCompile(`(?i)teamProjectCollection="(https?://[^"]+)"`),
		regexp.MustCompile(`(?i)server="(https?://[^"]+/tfs/[^"]+)"`),
		regexp.MustCompile(`(?i)uri="(https?://[^"]+/tfs/[^"]+)"`),
		regexp.MustCompile(`(?i)(https?://[^"\s<]+/tfs/[^"\s<]+)`),
	}
)

// ParseWorkfoldServerPath extracts the mapped server folder from
// `workfold /format:xml` output.
func ParseWorkfoldServerPath(output string) string {
	if strings.TrimSpace(output) == "" {
		return ""
	}
	m := workfoldServerItemRe.FindStringSubmatch(output)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// ParseInfoServerPath extracts the first $/ server path from `info` output.
// Info reports items, so a last segment that looks like a file is dropped to
// yield its folder.
func ParseInfoServerPath(output string) string {
	if strings.TrimSpace(output) == "" {
		return ""
	}
	p := strings.TrimSpace(serverPathTokenRe.FindString(output))
	if p == "" {
		return ""
	}
	if path.Ext(p) != "" {
		if i := strings.LastIndex(p, "/"); i > 1 {
			p = p[:i]
		}
	}
	return p
}

// ParseCollectionURL extracts the project collection URL from diagnostic
// output. Returns "" when nothing matches.
func ParseCollectionURL(output string) string {
	if strings.TrimSpace(output) == "" {
		return ""
	}
	for _, re := range collectionURLPatterns {
		if m := re.FindStringSubmatch(output); m != nil {
			return strings.TrimSpace(m[len(m)-1])
		}
	}
	return ""
}
