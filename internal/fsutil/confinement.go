// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package fsutil confines generated file paths to an output root.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned for targets that would land outside the root.
var ErrOutsideRoot = errors.New("fsutil: path escapes root")

// ConfineRelPath joins relTarget (slash separated) onto root and returns the
// resolved path. It fails when the target is absolute, climbs out with "..",
// contains a backslash, or reaches outside root through a symlink. The root
// must exist; the target and its parents need not.
func ConfineRelPath(root, relTarget string) (string, error) {
	if strings.Contains(relTarget, "\\") {
		return "", fmt.Errorf("%w: backslash in %q", ErrOutsideRoot, relTarget)
	}
	cleanRel := filepath.Clean(filepath.FromSlash(relTarget))
	if filepath.IsAbs(cleanRel) || escapes(cleanRel) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, relTarget)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid root path: %w", err)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", err
	}

	resolved, err := resolveExisting(filepath.Join(realRoot, cleanRel))
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(realRoot, resolved)
	if err != nil || escapes(rel) {
		return "", fmt.Errorf("%w: %q resolves to %s", ErrOutsideRoot, relTarget, resolved)
	}
	return resolved, nil
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// resolveExisting resolves symlinks in the longest existing prefix of p and
// re-appends the missing tail.
func resolveExisting(p string) (string, error) {
	var tail []string
	cur := p
	for {
		if _, err := os.Lstat(cur); err == nil {
			real, err := filepath.EvalSymlinks(cur)
			if err != nil {
				return "", fmt.Errorf("resolve %s: %w", cur, err)
			}
			return filepath.Join(append([]string{real}, tail...)...), nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p, nil
		}
		tail = append([]string{filepath.Base(cur)}, tail...)
		cur = parent
	}
}
