package storage

import (
	"path/filepath"
	"strings"
)

// Excluded reports whether path matches any exclude pattern.
//
// Patterns are matched against the slash-separated path:
//   - `a/**/b` needs `a` somewhere, `b` as suffix and nothing else;
//   - `a/**/m/**/b` additionally needs a whole `m` path segment;
//   - `*suffix` matches paths ending with suffix;
//   - anything else matches as a substring.
func Excluded(path string, patterns []string) bool {
	p := filepath.ToSlash(path)
	for _, pattern := range patterns {
		if matchPattern(p, filepath.ToSlash(pattern)) {
			return true
		}
	}
	return false
}

func matchPattern(path, pattern string) bool {
	if strings.Contains(pattern, "**") {
		parts := strings.Split(pattern, "**")
		switch len(parts) {
		case 2:
			return matchEnds(path, parts[0], parts[1])
		case 3:
			segment := strings.Trim(parts[1], "/")
			inSegment := strings.Contains(path, "/"+segment+"/") || strings.HasSuffix(path, "/"+segment)
			return matchEnds(path, parts[0], parts[2]) && inSegment
		}
	}
	if rest, ok := strings.CutPrefix(pattern, "*"); ok {
		return strings.HasSuffix(path, rest)
	}
	return strings.Contains(path, pattern)
}

func matchEnds(path, prefix, suffix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	suffix = strings.TrimPrefix(suffix, "/")
	return (prefix == "" || strings.Contains(path, prefix)) &&
		(suffix == "" || strings.HasSuffix(path, suffix))
}
