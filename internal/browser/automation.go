// Package browser provides page automation: capturing interactive elements
// from a page and counting selector matches. Two implementations ship, a live
// Playwright-driven browser and a static HTML parser for offline runs.
package browser

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/semloc/semloc/internal/models"
)

// Snapshot is one captured view of a page.
type Snapshot struct {
	URL   string
	Title string
	Nodes []*models.NodeDescriptor
}

// Automation captures page snapshots and verifies selectors.
type Automation interface {
	CaptureSnapshot(ctx context.Context, url string) (*Snapshot, error)
	// CountMatches returns the number of elements the selector matches on the
	// page at url. Selectors use the css=, role= and text= engines.
	CountMatches(ctx context.Context, url, selector string) (int, error)
	Close() error
}

// parsedSelector is the decoded form of a selector string.
type parsedSelector struct {
	engine string // "css", "role" or "text"
	value  string // css expression or text
	role   string // role engine only
	name   string // role engine only
}

var roleSelectorRe = regexp.MustCompile(`^([a-z]+)\[name="((?:[^"\\]|\\.)*)"\]$`)

// parseSelector decodes a selector in the css=/role=/text= grammar.
func parseSelector(s string) (parsedSelector, error) {
	switch {
	case strings.HasPrefix(s, "css="):
		return parsedSelector{engine: "css", value: s[len("css="):]}, nil
	case strings.HasPrefix(s, "text="):
		return parsedSelector{engine: "text", value: s[len("text="):]}, nil
	case strings.HasPrefix(s, "role="):
		m := roleSelectorRe.FindStringSubmatch(s[len("role="):])
		if m == nil {
			return parsedSelector{}, fmt.Errorf("malformed role selector: %s", s)
		}
		return parsedSelector{engine: "role", role: m[1], name: unescape(m[2])}, nil
	default:
		return parsedSelector{}, fmt.Errorf("unknown selector engine: %s", s)
	}
}

func unescape(v string) string {
	v = strings.ReplaceAll(v, `\"`, `"`)
	return strings.ReplaceAll(v, `\\`, `\`)
}
