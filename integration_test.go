package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stevehiehn/relaypub/internal/build"
	"github.com/stevehiehn/relaypub/internal/config"
	"github.com/stevehiehn/relaypub/internal/engine"
	dagerrors "github.com/stevehiehn/relaypub/internal/errors"
	"github.com/stevehiehn/relaypub/internal/metrics"
	"github.com/stevehiehn/relaypub/internal/runner"
	"github.com/stevehiehn/relaypub/internal/vcs"
)

// fakeTf answers get/workfold/info like the real client. With TF_DENY set,
// a get without /login fails with an access-denied error.
const fakeTf = `#!/bin/sh
echo "$@" >> "$TF_LOG"
case "$1" in
  get)
    if [ -n "$TF_DENY" ] && ! echo "$@" | grep -q "/login:"; then
      echo "TF30063: You are not authorized to access http://tfs:8080/tfs/DefaultCollection." >&2
      exit 100
    fi
    echo "All files are up to date."
    ;;
  workfold)
    echo '<workspace collection="http://tfs:8080/tfs/DefaultCollection">'
    echo '  <mapping serverItem="$/Product/Main" localItem="'"$2"'"/>'
    echo '</workspace>'
    ;;
  info)
    exit 1
    ;;
esac
`

// fakeDotnet writes <project>.dll into the publish directory. With
// DOTNET_FAIL set it fails like a missing project.
const fakeDotnet = `#!/bin/sh
for a in "$@"; do
  case "$a" in
    -p:PublishDir=*) dir="${a#-p:PublishDir=}" ;;
  esac
done
if [ -n "$DOTNET_FAIL" ]; then
  echo "error MSB1009: Project file does not exist." >&2
  exit 1
fi
mkdir -p "$dir"
echo "built $2" > "$dir/$(basename "$2" .csproj).dll"
echo "publish succeeded"
`

type workspace struct {
	root   string
	source string
	dest   string
	tfLog  string
}

func setupWorkspace(t *testing.T) *workspace {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tools are shell scripts")
	}
	root := t.TempDir()
	w := &workspace{
		root:   root,
		source: filepath.Join(root, "src"),
		dest:   filepath.Join(root, "deploy"),
		tfLog:  filepath.Join(root, "tf.log"),
	}
	bin := filepath.Join(root, "bin")
	writeFile(t, filepath.Join(bin, "tf"), fakeTf, 0o755)
	writeFile(t, filepath.Join(bin, "dotnet"), fakeDotnet, 0o755)
	writeFile(t, filepath.Join(w.source, "App", "App.csproj"), "<Project/>", 0o644)
	writeFile(t, filepath.Join(w.source, "BSServer", "BSServer.csproj"), "<Project/>", 0o644)

	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	t.Setenv("TF_LOG", w.tfLog)
	return w
}

func (w *workspace) request() engine.Request {
	return engine.Request{
		SourceRoot:       w.source,
		PrimaryProject:   "App/App.csproj",
		SecondaryProject: "BSServer/BSServer.csproj",
		SecondaryName:    "BSServer",
		Destination:      w.dest,
		Settings:         build.Settings{Profile: "ARM64"},
	}
}

func (w *workspace) orchestrator(m *metrics.Metrics) *engine.Orchestrator {
	return engine.New(engine.Deps{
		Runner:      runner.NewExecRunner(nil),
		Build:       &build.Dotnet{},
		Metrics:     m,
		RecordRoot:  w.source,
		StagingRoot: w.root,
	})
}

func (w *workspace) tfCalls(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(w.tfLog)
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestPublishE2E(t *testing.T) {
	w := setupWorkspace(t)
	res, record := w.orchestrator(nil).Run(context.Background(), w.request())
	if !res.Succeeded {
		t.Fatalf("expected success, got %+v", res)
	}

	calls := w.tfCalls(t)
	if len(calls) != 2 || !strings.HasPrefix(calls[0], "workfold ") {
		t.Fatalf("expected workfold then get, got %q", calls)
	}
	wantGet := "get $/Product/Main /recursive /noprompt /collection:http://tfs:8080/tfs/DefaultCollection"
	if calls[1] != wantGet {
		t.Errorf("get = %q, want %q", calls[1], wantGet)
	}

	for _, p := range []string{
		filepath.Join(w.dest, "App.dll"),
		filepath.Join(w.dest, "BSServer", "BSServer.dll"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing output %s: %v", p, err)
		}
	}

	leftovers, _ := filepath.Glob(filepath.Join(w.root, "relaypub-*"))
	if len(leftovers) != 0 {
		t.Errorf("staging directories not removed: %v", leftovers)
	}

	data, err := os.ReadFile(filepath.Join(record.Artifacts, "result.json"))
	if err != nil {
		t.Fatalf("result.json missing: %v", err)
	}
	var saved engine.Result
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatal(err)
	}
	if !saved.Succeeded || len(saved.Steps) != 6 {
		t.Errorf("unexpected saved result %+v", saved)
	}
	stdout, err := os.ReadFile(filepath.Join(record.Artifacts, "steps", "secondary-publish.stdout"))
	if err != nil || !strings.Contains(string(stdout), "publish succeeded") {
		t.Errorf("secondary publish output not recorded: %q, %v", stdout, err)
	}
}

func TestAuthRetryE2E(t *testing.T) {
	w := setupWorkspace(t)
	t.Setenv("TF_DENY", "1")

	prompts := 0
	req := w.request()
	req.CredentialsProvider = vcs.CredentialsFunc(func(context.Context, string) (*vcs.Credentials, error) {
		prompts++
		return &vcs.Credentials{Username: "alice", Password: "p@ss"}, nil
	})

	m := metrics.New()
	res := w.orchestrator(m).RunPublish(context.Background(), req)
	if !res.Succeeded {
		t.Fatalf("expected success after retry, got %+v", res)
	}
	if prompts != 1 {
		t.Errorf("expected one credential prompt, got %d", prompts)
	}
	calls := w.tfCalls(t)
	last := calls[len(calls)-1]
	if !strings.HasPrefix(last, "get ") || !strings.HasSuffix(last, "/login:alice,p@ss") {
		t.Errorf("retry did not carry credentials: %q", last)
	}
}

func TestAuthRetryDeclinedE2E(t *testing.T) {
	w := setupWorkspace(t)
	t.Setenv("TF_DENY", "1")

	req := w.request()
	req.CredentialsProvider = vcs.CredentialsFunc(func(context.Context, string) (*vcs.Credentials, error) {
		return nil, vcs.ErrCancelled
	})
	res := w.orchestrator(nil).RunPublish(context.Background(), req)
	if res.Succeeded || res.Kind != dagerrors.AuthenticationError {
		t.Fatalf("expected authentication failure, got %+v", res)
	}
	if !strings.HasPrefix(res.Message, "sync failed: TF30063") {
		t.Errorf("unexpected message %q", res.Message)
	}
	if _, err := os.Stat(w.dest); !os.IsNotExist(err) {
		t.Error("destination must not be created when sync fails")
	}
}

func TestPrimaryPublishFailureE2E(t *testing.T) {
	w := setupWorkspace(t)
	t.Setenv("DOTNET_FAIL", "1")

	res := w.orchestrator(nil).RunPublish(context.Background(), w.request())
	if res.Succeeded || res.Kind != dagerrors.ProcessError {
		t.Fatalf("expected process failure, got %+v", res)
	}
	want := "primary-publish failed: error MSB1009: Project file does not exist."
	if res.Message != want {
		t.Errorf("message = %q, want %q", res.Message, want)
	}
}

func TestSettingsFileDrivesPublishE2E(t *testing.T) {
	w := setupWorkspace(t)
	t.Setenv("RELAYPUB_E2E_DEPLOY", w.dest)
	cfgPath := filepath.Join(w.root, config.DefaultFile)
	writeFile(t, cfgPath, `
source_root: `+w.source+`
primary_project: App/App.csproj
secondary_project: "{{source_root}}/BSServer/BSServer.csproj"
destination: "{{env.RELAYPUB_E2E_DEPLOY}}/arm64"
skip_sync: true
`, 0o644)

	loaded, err := config.LoadFile(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := config.Validate(loaded); err != nil {
		t.Fatal(err)
	}
	cfg, err := loaded.Resolved()
	if err != nil {
		t.Fatal(err)
	}

	res := w.orchestrator(nil).RunPublish(context.Background(), engine.Request{
		SourceRoot:       cfg.SourceRoot,
		PrimaryProject:   cfg.PrimaryProject,
		SecondaryProject: cfg.SecondaryProject,
		SecondaryName:    cfg.SecondaryName,
		Destination:      cfg.Destination,
		Settings:         build.Settings{Profile: cfg.PublishProfile},
		Timeout:          cfg.TimeoutDuration(),
		SkipSync:         cfg.SkipSync,
	})
	if !res.Succeeded {
		t.Fatalf("expected success, got %+v", res)
	}
	if _, err := os.Stat(filepath.Join(w.dest, "arm64", "BSServer", "BSServer.dll")); err != nil {
		t.Errorf("expected relocated output under the templated destination: %v", err)
	}
	if _, err := os.Stat(w.tfLog); !os.IsNotExist(err) {
		t.Error("skip_sync must not invoke the vcs tool")
	}
}

func writeFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatal(err)
	}
}
