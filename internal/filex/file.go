// Package filex contains small filesystem helpers shared by the storage and
// purge layers.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates dir (and parents) if missing and returns its path.
func EnsureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return dir, nil
}

// SweepDir removes every entry inside dir, recursively, keeping dir itself.
// Individual removal failures are collected and returned alongside the number
// of entries removed; one locked file must not abort the whole sweep.
// A missing dir is not an error.
func SweepDir(dir string) (removed int, failures []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, []error{fmt.Errorf("read dir %s: %w", dir, err)}
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			failures = append(failures, fmt.Errorf("remove %s: %w", path, err))
			continue
		}
		removed++
	}
	return removed, failures
}

// RemoveByExt walks dir recursively and removes regular files whose extension
// (lower-cased) is in exts. Walk and removal failures are collected, not
// fatal. A missing dir is not an error.
func RemoveByExt(dir string, exts []string) (removed int, failures []error) {
	match := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		match[strings.ToLower(e)] = struct{}{}
	}

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			failures = append(failures, fmt.Errorf("walk %s: %w", path, err))
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := match[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		if err := os.Remove(path); err != nil {
			failures = append(failures, fmt.Errorf("remove %s: %w", path, err))
			return nil
		}
		removed++
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		failures = append(failures, err)
	}
	return removed, failures
}

// IsDirEmpty reports whether dir has no entries. A missing dir counts as empty.
func IsDirEmpty(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	return len(entries) == 0, nil
}
