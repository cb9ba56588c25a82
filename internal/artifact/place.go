// Package artifact renders the files devhost generates on a host and places
// them atomically. Every generator is a pure function of its inputs; only
// Place and Installer touch the filesystem.
package artifact

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"devhost-keeper/internal/utils"
)

// File is one generated artifact.
type File struct {
	Path  string
	Data  []byte
	Mode  os.FileMode
	Owner string // user owning the file, empty keeps the writer's
}

/**
 * Write a file atomically
 * @param {string} path - Destination
 * @param {[]byte} data - Content
 * @param {os.FileMode} mode - Permission bits
 * @returns {bool} True when the content changed
 * @returns {error} Create, write or rename error
 * @description
 * - Leaves identical files untouched, including their mtime
 * - Writes a temp file in the destination directory and renames it over the target
 */
func Place(path string, data []byte, mode os.FileMode) (bool, error) {
	if old, err := os.ReadFile(path); err == nil && bytes.Equal(old, data) {
		return false, os.Chmod(path, mode)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return false, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return false, fmt.Errorf("rename into %s: %w", path, err)
	}
	return true, nil
}

/**
 * Installer places files, escalating through sudo when needed
 * @property {utils.Runner} Runner - Runs install(1) when Sudo is set
 * @property {bool} Sudo - Files are staged in a temp dir and moved with "sudo -n install"
 */
type Installer struct {
	Runner utils.Runner
	Sudo   bool
}

// Install places f and reports whether its content changed.
func (i Installer) Install(ctx context.Context, f File) (bool, error) {
	if !i.Sudo {
		changed, err := Place(f.Path, f.Data, f.Mode)
		if err != nil || f.Owner == "" {
			return changed, err
		}
		return changed, chown(f.Path, f.Owner)
	}

	if old, err := os.ReadFile(f.Path); err == nil && bytes.Equal(old, f.Data) {
		return false, nil
	}
	staged, err := os.CreateTemp("", "devhost-artifact-*")
	if err != nil {
		return false, err
	}
	defer os.Remove(staged.Name())
	if _, err := staged.Write(f.Data); err != nil {
		staged.Close()
		return false, err
	}
	if err := staged.Close(); err != nil {
		return false, err
	}

	args := []string{"-D", "-m", strconv.FormatUint(uint64(f.Mode.Perm()), 8)}
	if f.Owner != "" {
		args = append(args, "-o", f.Owner)
	}
	args = append(args, staged.Name(), f.Path)
	if _, err := i.Runner.Run(ctx, "install", args...); err != nil {
		return false, fmt.Errorf("install %s: %w", f.Path, err)
	}
	return true, nil
}
