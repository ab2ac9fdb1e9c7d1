package vcs

import (
	"strings"

	dagerrors "github.com/stevehiehn/relaypub/internal/errors"
)

// Credentials are the VCS username and password for one run.
type Credentials struct {
	Username string
	Password string
}

// Blank reports whether either value is missing.
func (c *Credentials) Blank() bool {
	return c == nil || strings.TrimSpace(c.Username) == "" || strings.TrimSpace(c.Password) == ""
}

// LoginArg builds the /login:<user>,<password> argument. It returns "" when
// neither value is configured, and a configuration error when only one is
// or when either contains a double quote.
//
// The value is returned unquoted: it is passed as a single argv element and
// the OS layer quotes whitespace.
func LoginArg(c *Credentials) (string, error) {
	if c == nil {
		return "", nil
	}
	hasUser := strings.TrimSpace(c.Username) != ""
	hasPassword := strings.TrimSpace(c.Password) != ""
	if !hasUser && !hasPassword {
		return "", nil
	}
	if !hasUser || !hasPassword {
		return "", dagerrors.NewConfigurationError(
			"VCS username and password must be configured together",
			"set both vcs.username and vcs.password, or neither")
	}
	if strings.Contains(c.Username, `"`) || strings.Contains(c.Password, `"`) {
		return "", dagerrors.NewConfigurationError(
			"VCS username or password contains a double quote, which is not supported", "")
	}
	return "/login:" + c.Username + "," + c.Password, nil
}
