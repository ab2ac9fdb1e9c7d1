package vcs

import "strings"

// authSignatures mark a failed command as an authentication problem.
// Matching is case-insensitive.
var authSignatures = []string{
	"TF30063",
	"没有访问",
	"no access",
	"not authorized",
	"unauthorized",
}

// IsAuthFailure reports whether message looks like a VCS authentication
// failure that a fresh login could fix.
func IsAuthFailure(message string) bool {
	if strings.TrimSpace(message) == "" {
		return false
	}
	lower := strings.ToLower(message)
	for _, sig := range authSignatures {
		if strings.Contains(lower, strings.ToLower(sig)) {
			return true
		}
	}
	return false
}
