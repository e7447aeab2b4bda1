package store

import (
	"errors"
	"strings"
)

// ErrInvalidPath indicates an empty path or one containing empty segments.
var ErrInvalidPath = errors.New("invalid store path")

// SplitPath validates a slash-separated path and returns its segments.
func SplitPath(path string) ([]string, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}
	segments := strings.Split(path, "/")
	for _, seg := range segments {
		if seg == "" {
			return nil, ErrInvalidPath
		}
	}
	return segments, nil
}

// JoinPath builds a path from segments.
func JoinPath(segments ...string) string {
	return strings.Join(segments, "/")
}

// PathsOverlap reports whether one path is equal to or an ancestor of the
// other. A mutation at path b is visible to a watch on path a exactly when
// the two overlap.
func PathsOverlap(a, b string) bool {
	if a == b {
		return true
	}
	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}
