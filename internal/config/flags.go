package config

import (
	"os"

	"github.com/spf13/pflag"
)

// PasswordEnv supplies the VCS password when neither the flag nor the
// file sets one.
const PasswordEnv = "RELAYPUB_PASSWORD"

// Overrides are command line values that take precedence over the file.
// Only flags the user actually set are applied.
type Overrides struct {
	fs *pflag.FlagSet

	SourceRoot    string
	Destination   string
	Profile       string
	Configuration string
	BuildTool     string
	Timeout       string
	Username      string
	Password      string
	ServerPath    string
	Collection    string
	SkipSync      bool
}

// BindFlags registers the override flags on fs.
func BindFlags(fs *pflag.FlagSet) *Overrides {
	o := &Overrides{fs: fs}
	fs.StringVar(&o.SourceRoot, "source-root", "", "Workspace root to sync and publish from")
	fs.StringVar(&o.Destination, "destination", "", "Destination root for the published output")
	fs.StringVar(&o.Profile, "profile", "", "Publish profile name")
	fs.StringVar(&o.Configuration, "configuration", "", "Build configuration (used instead of a profile)")
	fs.StringVar(&o.BuildTool, "build-tool", "", "Build tool (dotnet, msbuild)")
	fs.StringVar(&o.Timeout, "timeout", "", "Per-process timeout, e.g. 5m")
	fs.StringVar(&o.Username, "username", "", "VCS username")
	fs.StringVar(&o.Password, "password", "", "VCS password (prefer "+PasswordEnv+")")
	fs.StringVar(&o.ServerPath, "server-path", "", "VCS server path, e.g. $/Product/Main")
	fs.StringVar(&o.Collection, "collection", "", "VCS collection URL")
	fs.BoolVar(&o.SkipSync, "skip-sync", false, "Skip the VCS sync step")
	return o
}

// Apply copies every changed flag into c and fills the password from the
// environment when it is still empty.
func (o *Overrides) Apply(c *Config) {
	o.ApplyWithEnv(c, os.LookupEnv)
}

// ApplyWithEnv is Apply with an injectable environment lookup.
func (o *Overrides) ApplyWithEnv(c *Config, lookup func(string) (string, bool)) {
	set := func(name string, dst *string, val string) {
		if o.fs != nil && o.fs.Changed(name) {
			*dst = val
		}
	}
	set("source-root", &c.SourceRoot, o.SourceRoot)
	set("destination", &c.Destination, o.Destination)
	set("build-tool", &c.BuildTool, o.BuildTool)
	set("timeout", &c.Timeout, o.Timeout)
	set("username", &c.VCS.Username, o.Username)
	set("password", &c.VCS.Password, o.Password)
	set("server-path", &c.VCS.ServerPath, o.ServerPath)
	set("collection", &c.VCS.CollectionURL, o.Collection)

	// A profile and a configuration select the same thing; the flag given
	// wins over the file's choice.
	if o.changed("configuration") {
		c.Configuration = o.Configuration
		if !o.changed("profile") {
			c.PublishProfile = ""
		}
	}
	if o.changed("profile") {
		c.PublishProfile = o.Profile
		if !o.changed("configuration") {
			c.Configuration = ""
		}
	}
	if o.changed("skip-sync") {
		c.SkipSync = o.SkipSync
	}

	if c.VCS.Password == "" && lookup != nil {
		if pw, ok := lookup(PasswordEnv); ok {
			c.VCS.Password = pw
		}
	}
}

func (o *Overrides) changed(name string) bool {
	return o.fs != nil && o.fs.Changed(name)
}
