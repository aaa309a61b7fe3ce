// Package utils provides shared utilities for text, math, and logging.
package utils

import (
	"regexp"
	"strings"
)

// Truncate returns s truncated to maxLen characters, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and replaces every non-alphanumeric run with a single
// underscore. Returns "" when nothing usable remains.
func Slugify(s string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(s), "_")
	return strings.Trim(slug, "_")
}

// Tokenize splits s into lowercased alphanumeric tokens.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return fields
}

// JaccardSimilarity returns the Jaccard similarity of two token sets in [0,1].
// Empty inputs yield 0.
func JaccardSimilarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]bool, len(a))
	for _, t := range a {
		setA[t] = true
	}
	setB := make(map[string]bool, len(b))
	for _, t := range b {
		setB[t] = true
	}
	inter := 0
	for t := range setA {
		if setB[t] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
