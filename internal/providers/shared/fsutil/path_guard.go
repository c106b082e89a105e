// Package fsutil holds filesystem helpers shared by the storage
// backends.
package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// IsPathUnderRoot reports whether candidate stays inside root after
// resolving any symlink components that already exist. Object paths
// are caller supplied, so every write target goes through this guard
// before touching the disk.
func IsPathUnderRoot(root string, candidate string) bool {
	rootResolved, err := resolveExistingSymlinks(root)
	if err != nil {
		return false
	}
	candidateResolved, err := resolveExistingSymlinks(candidate)
	if err != nil {
		return false
	}

	relative, err := filepath.Rel(filepath.Clean(rootResolved), filepath.Clean(candidateResolved))
	if err != nil {
		return false
	}
	return relative != ".." && !strings.HasPrefix(relative, ".."+string(filepath.Separator))
}

// resolveExistingSymlinks resolves symlinks component by component,
// keeping not-yet-created suffixes lexical so write targets can be
// validated before they exist.
func resolveExistingSymlinks(path string) (string, error) {
	cleaned := filepath.Clean(path)
	if cleaned == "." {
		return cleaned, nil
	}

	separator := string(filepath.Separator)
	current := ""
	rest := cleaned
	if strings.HasPrefix(rest, separator) {
		current = separator
		rest = strings.TrimPrefix(rest, separator)
	}

	parts := strings.FieldsFunc(rest, func(r rune) bool {
		return r == rune(filepath.Separator)
	})

	for idx, part := range parts {
		next := filepath.Join(current, part)

		info, err := os.Lstat(next)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				if idx < len(parts)-1 {
					next = filepath.Join(next, filepath.Join(parts[idx+1:]...))
				}
				return filepath.Clean(next), nil
			}
			return "", err
		}

		if info.Mode()&os.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(next)
			if err != nil {
				return "", err
			}
			current = resolved
			continue
		}

		current = next
	}

	if current == "" {
		return cleaned, nil
	}
	return filepath.Clean(current), nil
}
