// Package cli provides output formatting for the semloc CLI.
package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/semloc/semloc/internal/bundle"
	"github.com/semloc/semloc/internal/models"
)

// OutputFormat is the format for resolution output.
type OutputFormat string

const (
	// OutputText is human-readable text.
	OutputText OutputFormat = "text"
	// OutputJSON is the bundle itself, for machine consumption (default).
	OutputJSON OutputFormat = "json"
)

// WriteBundle writes a resolution bundle to w in the given format.
// OutputJSON emits the bundle's canonical byte-stable encoding.
func WriteBundle(w io.Writer, b *bundle.Bundle, format OutputFormat) error {
	switch format {
	case OutputText:
		writeBundleText(w, b)
		return nil
	default:
		data, err := b.Marshal()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
}

func writeBundleText(w io.Writer, b *bundle.Bundle) {
	resolved := 0
	keys := make([]string, 0, len(b.Resolution))
	for key, entry := range b.Resolution {
		keys = append(keys, key)
		if entry.Status == models.StatusResolved {
			resolved++
		}
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "\n%s", b.URL)
	if b.BuildID != "" {
		fmt.Fprintf(w, " (build %s)", b.BuildID)
	}
	fmt.Fprintf(w, "\n%d/%d keys resolved\n\n", resolved, len(keys))

	for _, key := range keys {
		entry := b.Resolution[key]
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "%s  [%s]", key, entry.Status)
		if entry.ReducedConfidence {
			fmt.Fprintf(w, "  (reduced confidence)")
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "confidence: %.4f", entry.Confidence)
		if entry.EmbeddingSimilarity != nil {
			fmt.Fprintf(w, " (similarity: %.4f)", *entry.EmbeddingSimilarity)
		}
		fmt.Fprintln(w)
		if entry.Primary != nil {
			fmt.Fprintf(w, "primary:    %s  (%s)\n", entry.Primary.Selector, entry.Primary.Strategy)
		}
		for _, fb := range entry.Fallbacks {
			fmt.Fprintf(w, "fallback:   %s\n", fb.Selector)
		}
		if entry.Message != "" {
			fmt.Fprintf(w, "note:       %s\n", Truncate(entry.Message, 200))
		}
		fmt.Fprintln(w)
	}
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
