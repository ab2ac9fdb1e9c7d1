package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/stevehiehn/relaypub/internal/build"
	dagerrors "github.com/stevehiehn/relaypub/internal/errors"
)

// Validate checks a config for a full publish run.
func Validate(c *Config) error {
	if err := ValidateSync(c); err != nil {
		return err
	}
	required := []struct {
		name, val string
	}{
		{"primary_project", c.PrimaryProject},
		{"secondary_project", c.SecondaryProject},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			return dagerrors.NewConfigurationError(
				fmt.Sprintf("%s is not set", r.name),
				fmt.Sprintf("Set %s in %s", r.name, DefaultFile),
			)
		}
	}

	if c.PublishProfile != "" && c.Configuration != "" {
		return dagerrors.NewConfigurationError(
			fmt.Sprintf("publish_profile %q and configuration %q are both set", c.PublishProfile, c.Configuration),
			"Set one of them; configuration is used instead of a profile",
		)
	}

	if strings.ContainsAny(c.SecondaryName, `/\`) || c.SecondaryName == "." || c.SecondaryName == ".." {
		return dagerrors.NewConfigurationError(
			fmt.Sprintf("secondary_name %q must be a single directory name", c.SecondaryName),
			"Use a plain name such as BSServer",
		)
	}

	if !build.Known(c.BuildTool) {
		return dagerrors.NewConfigurationError(
			fmt.Sprintf("unknown build tool %q", c.BuildTool),
			"Known build tools: "+strings.Join(build.Names(), ", "),
		)
	}

	return nil
}

// ValidateSync checks only what a sync or detection needs.
func ValidateSync(c *Config) error {
	if strings.TrimSpace(c.SourceRoot) == "" {
		return dagerrors.NewConfigurationError(
			"source_root is not set",
			fmt.Sprintf("Set source_root in %s or pass --source-root", DefaultFile),
		)
	}

	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil || d <= 0 {
			return dagerrors.NewConfigurationError(
				fmt.Sprintf("invalid timeout %q", c.Timeout),
				"Use a positive Go duration such as 5m or 90s",
			)
		}
	}

	if strings.TrimSpace(c.VCS.CollectionURL) != "" {
		u := strings.ToLower(c.VCS.CollectionURL)
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return dagerrors.NewConfigurationError(
				fmt.Sprintf("collection_url %q is not an http(s) URL", c.VCS.CollectionURL),
				"Leave collection_url empty to auto-detect it",
			)
		}
	}
	if sp := strings.TrimSpace(c.VCS.ServerPath); sp != "" && !strings.HasPrefix(sp, "$/") {
		return dagerrors.NewConfigurationError(
			fmt.Sprintf("server_path %q must start with $/", sp),
			"Leave server_path empty to auto-detect it",
		)
	}
	return nil
}
