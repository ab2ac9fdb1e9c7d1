package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	dagerrors "github.com/stevehiehn/relaypub/internal/errors"
	"github.com/stevehiehn/relaypub/internal/template"
)

// LoadFile reads and parses a settings file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &dagerrors.RunError{
			Type:    dagerrors.NotFound,
			Message: fmt.Sprintf("settings file %s not found", path),
			Hint:    "Run `relaypub init` to create one",
			Err:     err,
		}
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}
	return Load(data)
}

// Load parses settings YAML bytes and applies defaults.
func Load(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, dagerrors.NewConfigurationError(fmt.Sprintf("parsing YAML: %v", err), "Check the settings file syntax")
	}
	c.applyDefaults()
	return &c, nil
}

// Save writes c to path. The VCS password is written only when
// vcs.remember_password is set.
func Save(path string, c *Config) error {
	out := *c
	if !out.VCS.RememberPassword {
		out.VCS.Password = ""
	}
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return dagerrors.NewIOError("creating settings directory", err)
		}
	}
	mode := os.FileMode(0o644)
	if out.VCS.Password != "" {
		mode = 0o600
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return dagerrors.NewIOError("writing settings file", err)
	}
	if mode == 0o600 {
		// WriteFile keeps the mode of an existing file.
		if err := os.Chmod(path, mode); err != nil {
			return dagerrors.NewIOError("restricting settings file", err)
		}
	}
	return nil
}

// Resolved returns a copy of c with placeholders in paths expanded and
// relative project paths joined to the source root.
func (c *Config) Resolved() (*Config, error) {
	out := *c
	root, err := template.Resolve(c.SourceRoot, &template.Context{})
	if err != nil {
		return nil, dagerrors.NewConfigurationError("source_root: "+err.Error(), "")
	}
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}
	out.SourceRoot = root

	ctx := &template.Context{SourceRoot: root}
	fields := []struct {
		name string
		val  *string
	}{
		{"primary_project", &out.PrimaryProject},
		{"secondary_project", &out.SecondaryProject},
		{"destination", &out.Destination},
	}
	for _, f := range fields {
		if !template.HasPlaceholders(*f.val) {
			continue
		}
		v, err := template.Resolve(*f.val, ctx)
		if err != nil {
			return nil, dagerrors.NewConfigurationError(f.name+": "+err.Error(), "")
		}
		*f.val = v
	}
	for _, p := range []*string{&out.PrimaryProject, &out.SecondaryProject} {
		if *p != "" && root != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(root, *p)
		}
	}
	return &out, nil
}

// Template is the commented file written by `relaypub init`.
const Template = `# relaypub settings
source_root: .
primary_project: App/App.csproj
secondary_project: BSServer/BSServer.csproj
# Subdirectory of the destination receiving the secondary project output.
secondary_name: BSServer
# destination: /mnt/deploy/arm64
# Set configuration instead of publish_profile to build without a profile.
publish_profile: ARM64
# configuration: Release
build_tool: dotnet
timeout: 5m
vcs:
  tool: tf
  # server_path: $/Product/Main
  # collection_url: http://tfs:8080/tfs/DefaultCollection
  # username: DOMAIN\user
  # Set RELAYPUB_PASSWORD instead of storing a password here.
  remember_password: false
debug_logging: false
skip_sync: false
`
