package storage

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const forbiddenKeyChars = ".#$[]"

// ValidKey reports whether key can be used as a single path segment
func ValidKey(key string) bool {
	return validateKey(key) == nil
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty segment", ErrInvalidPath)
	}
	if strings.ContainsAny(key, forbiddenKeyChars) {
		return fmt.Errorf("%w: segment %q contains one of %q", ErrInvalidPath, key, forbiddenKeyChars)
	}
	if strings.Contains(key, "/") {
		return fmt.Errorf("%w: segment %q contains '/'", ErrInvalidPath, key)
	}
	for _, r := range key {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: segment %q contains a control character", ErrInvalidPath, key)
		}
	}
	return nil
}

// splitPath turns "/a/b/c" into [a b c]. The root path yields no segments.
func splitPath(path string) ([]string, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, nil
	}
	segs := strings.Split(trimmed, "/")
	for _, s := range segs {
		if err := validateKey(s); err != nil {
			return nil, err
		}
	}
	return segs, nil
}

// Join builds a path from segments
func Join(segs ...string) string {
	return "/" + strings.Join(segs, "/")
}

// NewKey returns a new time-ordered child key. Keys generated later sort
// after keys generated earlier.
func NewKey() string {
	return uuid.Must(uuid.NewV7()).String()
}

// checkOverlaps rejects a set of paths in which one path is an ancestor
// of (or equal to) another.
func checkOverlaps(paths [][]string) error {
	seen := make(map[string]bool, len(paths))
	for _, segs := range paths {
		p := strings.Join(segs, "/")
		if seen[p] {
			return fmt.Errorf("%w: %q given twice", ErrOverlappingPaths, "/"+p)
		}
		seen[p] = true
	}
	for _, segs := range paths {
		for i := 0; i < len(segs); i++ {
			ancestor := strings.Join(segs[:i], "/")
			if seen[ancestor] {
				return fmt.Errorf("%w: %q contains %q", ErrOverlappingPaths, "/"+ancestor, "/"+strings.Join(segs, "/"))
			}
		}
	}
	return nil
}
