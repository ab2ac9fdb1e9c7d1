// Package config loads, validates and saves relaypub.yaml.
package config

import "time"

// DefaultFile is the settings file looked up in the working directory.
const DefaultFile = "relaypub.yaml"

// Defaults applied to empty fields.
const (
	DefaultSecondaryName = "BSServer"
	DefaultProfile       = "ARM64"
	DefaultBuildTool     = "dotnet"
	DefaultVcsTool       = "tf"
	DefaultTimeout       = "5m"
)

// Config is the top-level settings structure.
type Config struct {
	SourceRoot       string            `yaml:"source_root"`
	PrimaryProject   string            `yaml:"primary_project"`
	SecondaryProject string            `yaml:"secondary_project"`
	SecondaryName    string            `yaml:"secondary_name,omitempty"`
	Destination      string            `yaml:"destination,omitempty"`
	PublishProfile   string            `yaml:"publish_profile,omitempty"`
	Configuration    string            `yaml:"configuration,omitempty"`
	BuildTool        string            `yaml:"build_tool,omitempty"`
	Properties       map[string]string `yaml:"properties,omitempty"`
	VCS              VCS               `yaml:"vcs"`
	Timeout          string            `yaml:"timeout,omitempty"`
	DebugLogging     bool              `yaml:"debug_logging,omitempty"`
	SkipSync         bool              `yaml:"skip_sync,omitempty"`
}

// VCS holds version control settings. Empty location fields are
// auto-detected from the workspace mapping.
type VCS struct {
	Tool             string `yaml:"tool,omitempty"`
	ServerPath       string `yaml:"server_path,omitempty"`
	CollectionURL    string `yaml:"collection_url,omitempty"`
	Username         string `yaml:"username,omitempty"`
	Password         string `yaml:"password,omitempty"`
	RememberPassword bool   `yaml:"remember_password,omitempty"`

	// LastUsername is the last username accepted at the credential
	// prompt. It prefills the next prompt and is never used to log in.
	LastUsername string `yaml:"last_username,omitempty"`
}

// Default returns a config with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.SecondaryName == "" {
		c.SecondaryName = DefaultSecondaryName
	}
	if c.PublishProfile == "" && c.Configuration == "" {
		c.PublishProfile = DefaultProfile
	}
	if c.BuildTool == "" {
		c.BuildTool = DefaultBuildTool
	}
	if c.VCS.Tool == "" {
		c.VCS.Tool = DefaultVcsTool
	}
	if c.Timeout == "" {
		c.Timeout = DefaultTimeout
	}
}

// TimeoutDuration parses Timeout, falling back to the default on error.
// Validate reports unparseable values.
func (c *Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultTimeout)
	}
	return d
}
