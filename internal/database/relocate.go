package database

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// storeSuffixes are the files SQLite keeps in WAL mode. The main file moves
// last: its presence at the shared path marks the relocation as done.
var storeSuffixes = []string{"-wal", "-shm", ""}

var move = moveFile

// Relocate moves the store from legacyPath to sharedPath once, so that
// read-only consumers such as widgets can open it from the shared location.
// It reports whether a move happened. Nothing is touched when legacyPath does
// not exist or when sharedPath is already populated.
func Relocate(legacyPath, sharedPath string) (bool, error) {
	if legacyPath == "" || sharedPath == "" || legacyPath == sharedPath {
		return false, nil
	}

	if _, err := os.Stat(legacyPath); errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("stat legacy store: %w", err)
	}

	if _, err := os.Stat(sharedPath); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat shared store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(sharedPath), 0o755); err != nil {
		return false, fmt.Errorf("create shared dir: %w", err)
	}

	for _, suffix := range storeSuffixes {
		src, dst := legacyPath+suffix, sharedPath+suffix
		if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := move(src, dst); err != nil {
			return false, fmt.Errorf("move %s: %w", filepath.Base(src), err)
		}
	}
	return true, nil
}

// moveFile renames src to dst, copying across filesystems when rename fails.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
