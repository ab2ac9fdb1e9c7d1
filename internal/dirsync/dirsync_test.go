package dirsync

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	dagerrors "github.com/stevehiehn/relaypub/internal/errors"
)

func writeFile(t *testing.T, path, content string, perm os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, perm); err != nil {
		t.Fatal(err)
	}
}

// snapshot maps relative file paths to contents.
func snapshot(t *testing.T, root string) map[string][]byte {
	t.Helper()
	files := map[string][]byte{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(root, p)
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = data
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	return files
}

func assertSameTree(t *testing.T, want, got map[string][]byte) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("file count mismatch: want %d, got %d (%v)", len(want), len(got), keys(got))
	}
	for rel, data := range want {
		g, ok := got[rel]
		if !ok {
			t.Errorf("missing %s", rel)
			continue
		}
		if !bytes.Equal(data, g) {
			t.Errorf("%s: content mismatch", rel)
		}
	}
}

func keys(m map[string][]byte) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out
}

func buildSource(t *testing.T) string {
	t.Helper()
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "index.html"), "<html></html>", 0o644)
	writeFile(t, filepath.Join(src, "appsettings.json"), `{"a":1}`, 0o444)
	writeFile(t, filepath.Join(src, "wwwroot", "css", "site.css"), "body{}", 0o644)
	writeFile(t, filepath.Join(src, "wwwroot", "js", "app.js"), "console.log(1)", 0o444)
	writeFile(t, filepath.Join(src, "runtimes", "linux-arm64", "native", "lib.so"), "\x7fELF", 0o755)
	return src
}

func TestReplaceTreeMirrorsSource(t *testing.T) {
	src := buildSource(t)
	dst := filepath.Join(t.TempDir(), "publish", "BSServer")

	if err := ReplaceTree(src, dst); err != nil {
		t.Fatalf("ReplaceTree: %v", err)
	}
	assertSameTree(t, snapshot(t, src), snapshot(t, dst))
}

func TestReplaceTreeRemovesStaleEntries(t *testing.T) {
	src := buildSource(t)
	dst := t.TempDir()
	writeFile(t, filepath.Join(dst, "stale.dll"), "old", 0o444)
	writeFile(t, filepath.Join(dst, "old", "nested", "file.txt"), "old", 0o444)
	if err := os.Chmod(filepath.Join(dst, "old", "nested"), 0o555); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dst, "index.html"), "outdated", 0o444)

	if err := ReplaceTree(src, dst); err != nil {
		t.Fatalf("ReplaceTree: %v", err)
	}
	assertSameTree(t, snapshot(t, src), snapshot(t, dst))
}

func TestReplaceTreeIsRepeatable(t *testing.T) {
	src := buildSource(t)
	dst := t.TempDir()
	for i := 0; i < 2; i++ {
		if err := ReplaceTree(src, dst); err != nil {
			t.Fatalf("ReplaceTree pass %d: %v", i, err)
		}
	}
	assertSameTree(t, snapshot(t, src), snapshot(t, dst))
}

func TestClearCreatesMissingDestination(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "a", "b")
	if err := Clear(dst); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	info, err := os.Stat(dst)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory to be created, err=%v", err)
	}
}

func TestClearPreservesDestinationDirectory(t *testing.T) {
	dst := t.TempDir()
	writeFile(t, filepath.Join(dst, "a.txt"), "a", 0o444)
	writeFile(t, filepath.Join(dst, "sub", "b.txt"), "b", 0o644)

	if err := Clear(dst); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	entries, err := os.ReadDir(dst)
	if err != nil {
		t.Fatalf("destination removed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty directory, found %d entries", len(entries))
	}
}

func TestClearRejectsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	writeFile(t, f, "x", 0o644)
	err := Clear(f)
	if !dagerrors.Is(err, dagerrors.IOError) {
		t.Fatalf("expected IO_ERROR, got %v", err)
	}
}

func TestCopyMissingSourceIsIOError(t *testing.T) {
	err := Copy(filepath.Join(t.TempDir(), "missing"), t.TempDir())
	if !dagerrors.Is(err, dagerrors.IOError) {
		t.Fatalf("expected IO_ERROR, got %v", err)
	}
}
