package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/stevehiehn/relaypub/internal/artifact"
	"github.com/stevehiehn/relaypub/internal/config"
	dagerrors "github.com/stevehiehn/relaypub/internal/errors"
	"github.com/stevehiehn/relaypub/internal/logging"
	"github.com/stevehiehn/relaypub/internal/vcs"
)

// settings is a loaded settings file plus the effective values after flag
// overrides and placeholder expansion.
type settings struct {
	path   string
	stored *config.Config // as read from disk, written back by remember
	cfg    *config.Config
}

// loadSettings reads --config, applies overrides and validates the result
// with check. A missing default settings file is not an error: every value
// may come from flags.
func loadSettings(o *config.Overrides, check func(*config.Config) error) (*settings, error) {
	stored, err := config.LoadFile(configPath)
	if err != nil {
		if !dagerrors.Is(err, dagerrors.NotFound) || rootCmd.PersistentFlags().Changed("config") {
			return nil, err
		}
		stored = config.Default()
	}

	effective := *stored
	effective.Properties = copyMap(stored.Properties)
	if o != nil {
		o.Apply(&effective)
	}
	if err := check(&effective); err != nil {
		return nil, err
	}
	cfg, err := effective.Resolved()
	if err != nil {
		return nil, err
	}
	return &settings{path: configPath, stored: stored, cfg: cfg}, nil
}

// remember applies fn to the stored settings and saves them. Failures are
// logged only.
func (s *settings) remember(log *zap.SugaredLogger, fn func(c *config.Config)) {
	fn(s.stored)
	if err := config.Save(s.path, s.stored); err != nil {
		log.Warnw("settings_not_saved", "path", s.path, "error", err)
	}
}

// rememberCredentials records credentials accepted at the prompt. The
// username is always kept as the next prompt's hint; the pair is stored as
// login credentials only under vcs.remember_password.
func (s *settings) rememberCredentials(log *zap.SugaredLogger, creds *vcs.Credentials) {
	s.remember(log, func(c *config.Config) {
		c.VCS.LastUsername = creds.Username
		if c.VCS.RememberPassword {
			c.VCS.Username = creds.Username
			c.VCS.Password = creds.Password
		}
	})
}

// usernameHint prefills the credential prompt.
func (s *settings) usernameHint() string {
	if s.cfg.VCS.Username != "" {
		return s.cfg.VCS.Username
	}
	return s.cfg.VCS.LastUsername
}

func (s *settings) stateDir() string {
	return filepath.Join(s.cfg.SourceRoot, artifact.StateDir)
}

func (s *settings) credentials() *vcs.Credentials {
	if s.cfg.VCS.Username == "" && s.cfg.VCS.Password == "" {
		return nil
	}
	return &vcs.Credentials{Username: s.cfg.VCS.Username, Password: s.cfg.VCS.Password}
}

func (s *settings) hints() vcs.Hints {
	return vcs.Hints{ServerPath: s.cfg.VCS.ServerPath, CollectionURL: s.cfg.VCS.CollectionURL}
}

// newLogger builds the console logger. debug_logging in the settings file
// has the same effect as --verbose.
func newLogger(debug bool) *zap.SugaredLogger {
	return logging.New(logging.Options{
		Format:  logFormat,
		Level:   logLevel,
		Verbose: verbose || debug,
	})
}

// openSink tees process output to the logger and to the run log file.
func openSink(log *zap.SugaredLogger, stateDir string) (logging.Sink, func()) {
	file, err := logging.OpenFileSink(stateDir)
	if err != nil {
		log.Warnw("run_log_unavailable", "error", err)
		return logging.ZapSink{Log: log}, func() {}
	}
	return logging.Tee{logging.ZapSink{Log: log}, file}, func() { _ = file.Close() }
}

// parseProperties converts ["key=value", ...] to a map.
func parseProperties(raw []string) (map[string]string, error) {
	m := map[string]string{}
	for _, kv := range raw {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, dagerrors.NewConfigurationError(
				fmt.Sprintf("invalid property %q", kv),
				"Use --property Name=Value",
			)
		}
		m[strings.TrimSpace(parts[0])] = parts[1]
	}
	return m, nil
}

func copyMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
