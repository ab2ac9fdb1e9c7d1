// Package dirsync replaces one directory tree with the contents of another.
//
// ReplaceTree is not transactional: a failure part way through the copy
// leaves the destination partially populated and the caller must treat it
// as invalid.
package dirsync

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	dagerrors "github.com/stevehiehn/relaypub/internal/errors"
)

// ReplaceTree clears destination and copies source into it.
func ReplaceTree(source, destination string) error {
	if err := Clear(destination); err != nil {
		return err
	}
	return Copy(source, destination)
}

// Clear empties destination, creating it if it does not exist. The
// directory itself is preserved. Read-only files are made writable before
// removal.
func Clear(destination string) error {
	info, err := os.Stat(destination)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(destination, 0o755); err != nil {
			return dagerrors.NewIOError(fmt.Sprintf("creating %s", destination), err)
		}
		return nil
	}
	if err != nil {
		return dagerrors.NewIOError(fmt.Sprintf("inspecting %s", destination), err)
	}
	if !info.IsDir() {
		return dagerrors.NewIOError(fmt.Sprintf("%s is not a directory", destination), nil)
	}

	entries, err := os.ReadDir(destination)
	if err != nil {
		return dagerrors.NewIOError(fmt.Sprintf("reading %s", destination), err)
	}
	for _, e := range entries {
		p := filepath.Join(destination, e.Name())
		if e.IsDir() {
			if err := removeAll(p); err != nil {
				return dagerrors.NewIOError(fmt.Sprintf("removing %s", p), err)
			}
			continue
		}
		if err := removeFile(p); err != nil {
			return dagerrors.NewIOError(fmt.Sprintf("removing %s", p), err)
		}
	}
	return nil
}

// Copy copies every file under source into destination, overwriting
// existing files and preserving the relative layout.
func Copy(source, destination string) error {
	if err := os.MkdirAll(destination, 0o755); err != nil {
		return dagerrors.NewIOError(fmt.Sprintf("creating %s", destination), err)
	}
	entries, err := os.ReadDir(source)
	if err != nil {
		return dagerrors.NewIOError(fmt.Sprintf("reading %s", source), err)
	}
	for _, e := range entries {
		src := filepath.Join(source, e.Name())
		dst := filepath.Join(destination, e.Name())
		if e.IsDir() {
			if err := Copy(src, dst); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(src, dst); err != nil {
			return dagerrors.NewIOError(fmt.Sprintf("copying %s", src), err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	// An existing read-only target cannot be truncated.
	if st, err := os.Stat(dst); err == nil && st.Mode().Perm()&0o200 == 0 {
		if err := os.Chmod(dst, st.Mode().Perm()|0o200); err != nil {
			return err
		}
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm()|0o200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(dst, info.Mode().Perm())
}

func removeFile(p string) error {
	if err := makeWritable(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Remove(p)
}

// removeAll is os.RemoveAll that also handles read-only entries, which
// Windows refuses to delete.
func removeAll(root string) error {
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		return makeWritable(p)
	})
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.RemoveAll(root)
}

func makeWritable(p string) error {
	info, err := os.Lstat(p)
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil
	}
	if info.Mode().Perm()&0o200 != 0 {
		return nil
	}
	return os.Chmod(p, info.Mode().Perm()|0o200)
}
