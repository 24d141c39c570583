// Package security guards filesystem writes whose location depends on
// external input, such as measurement names embedded in export paths.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDirectory reports an error unless path resolves to a
// location inside dir. The check runs on cleaned absolute paths with
// symlinks resolved; a path that does not exist yet is anchored at its
// nearest existing ancestor so a symlinked parent cannot redirect the
// write elsewhere.
func ValidatePathWithinDirectory(path, dir string) error {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve directory: %w", err)
	}

	canonicalPath := absPath
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		canonicalPath = resolved
	} else {
		// The path does not exist yet. Walk up to the nearest existing
		// ancestor, resolve that, and re-append the remainder.
		check := absPath
		for {
			parent := filepath.Dir(check)
			if parent == check {
				break
			}
			if resolved, err := filepath.EvalSymlinks(parent); err == nil {
				rel, _ := filepath.Rel(parent, absPath)
				canonicalPath = filepath.Join(resolved, rel)
				break
			}
			check = parent
		}
	}

	canonicalDir, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return fmt.Errorf("resolve directory symlinks: %w", err)
	}

	rel, err := filepath.Rel(canonicalDir, canonicalPath)
	if err != nil {
		return fmt.Errorf("path is outside %s: %w", dir, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s escapes %s", path, dir)
	}
	return nil
}

// SanitizeFilename reduces an arbitrary string to a safe path component.
// ASCII letters, digits, dot, underscore and dash pass through; any other
// run of characters collapses into one underscore. The result is capped
// at 128 bytes and never empty.
func SanitizeFilename(s string) string {
	const maxLen = 128

	var b strings.Builder
	pendingUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
			pendingUnderscore = false
		default:
			if !pendingUnderscore {
				b.WriteByte('_')
				pendingUnderscore = true
			}
		}
	}

	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
