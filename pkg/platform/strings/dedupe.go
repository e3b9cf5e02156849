// Package strings provides string slice helpers shared by the pipeline stages.
package strings

import (
	"strings"
)

// DedupeAndTrim trims every element and keeps the first occurrence of each
// non-empty value. Order is preserved.
//
//	DedupeAndTrim([]string{"  Moscow ", "Oslo", "Moscow", "", "  "})
//	// []string{"Moscow", "Oslo"}
func DedupeAndTrim(values []string) []string {
	return dedupe(values, strings.TrimSpace)
}

// SplitAndTrim splits s on sep and drops empty parts after trimming.
func SplitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}

func dedupe(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		n := normalize(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		result = append(result, n)
	}
	return result
}
