// Package fsx writes container files atomically: content lands under a
// temporary name in the destination directory and is renamed into place
// only once fully flushed, so an interrupted export never leaves a torn
// container behind.
package fsx

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// WriteFileAtomic replaces path with content under the given mode.
func WriteFileAtomic(path string, content []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	temp, err := os.CreateTemp(dir, filepath.Base(path)+".partial-*")
	if err != nil {
		return fmt.Errorf("create staging file: %w", err)
	}
	staged := temp.Name()

	if err := flush(temp, content, mode); err != nil {
		_ = os.Remove(staged)
		return err
	}
	if err := renameOver(staged, path); err != nil {
		_ = os.Remove(staged)
		return err
	}
	syncDir(dir)
	return nil
}

func flush(temp *os.File, content []byte, mode os.FileMode) error {
	if _, err := temp.Write(content); err != nil {
		_ = temp.Close()
		return fmt.Errorf("write staging file: %w", err)
	}
	if err := temp.Sync(); err != nil {
		_ = temp.Close()
		return fmt.Errorf("sync staging file: %w", err)
	}
	if err := temp.Chmod(mode); err != nil {
		_ = temp.Close()
		return fmt.Errorf("chmod staging file: %w", err)
	}
	if err := temp.Close(); err != nil {
		return fmt.Errorf("close staging file: %w", err)
	}
	return nil
}

// renameOver moves the staged file into place. Rename replaces an existing
// destination atomically on POSIX; Windows refuses that, so the destination
// is removed first there.
func renameOver(staged, path string) error {
	err := os.Rename(staged, path)
	if err == nil {
		return nil
	}
	if runtime.GOOS != "windows" {
		return fmt.Errorf("publish container: %w", err)
	}
	if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
		return fmt.Errorf("clear destination: %w", removeErr)
	}
	if err := os.Rename(staged, path); err != nil {
		return fmt.Errorf("publish container after clear: %w", err)
	}
	return nil
}

// syncDir makes the rename durable; best effort, some filesystems refuse
// directory handles.
func syncDir(dir string) {
	// #nosec G304 -- directory is derived from the caller's destination path.
	handle, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = handle.Sync()
	_ = handle.Close()
}
