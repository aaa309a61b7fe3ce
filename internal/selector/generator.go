// Package selector generates locator candidates for captured nodes. Each
// candidate carries the strategy that produced it, so human overrides and
// ranking penalties can target whole strategies.
package selector

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/semloc/semloc/internal/models"
)

// dataAttrs are trusted test-id style attributes, most trusted first.
var dataAttrs = []string{"data-testid", "data-test", "data-qa", "data-qa-id", "data-automation-id"}

// structuralAttrs are plain attributes usable for tag[attr="value"] selectors,
// in preference order.
var structuralAttrs = []string{"name", "aria-label", "placeholder", "ng-model"}

var cssIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Generator builds selector candidates from node descriptors.
type Generator struct{}

// NewGenerator creates a Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate returns candidates for node in strategy priority order: trusted
// data attributes, then id, then role plus visible text, then structural
// selectors. Duplicates are dropped, first occurrence wins. Candidates are
// unverified; UniqueCount is set later by verification.
func (g *Generator) Generate(node *models.NodeDescriptor) []models.SelectorCandidate {
	if node == nil || node.Tag == "" {
		return nil
	}

	var out []models.SelectorCandidate
	seen := make(map[string]bool)
	add := func(selector string, strategy models.Strategy, description string, depth int) {
		if selector == "" || seen[selector] {
			return
		}
		seen[selector] = true
		out = append(out, models.SelectorCandidate{
			Selector:    selector,
			Strategy:    strategy,
			Description: description,
			UniqueCount: models.UniqueCountUnset,
			Depth:       depth,
		})
	}

	for _, attr := range dataAttrs {
		if v := node.Attr(attr); v != "" {
			add(fmt.Sprintf(`css=[%s=%s]`, attr, quote(v)), models.StrategyDataAttr, attr+" attribute", 0)
		}
	}

	if id := node.Attr("id"); id != "" {
		if cssIdent.MatchString(id) {
			add("css=#"+id, models.StrategyID, "id attribute", 0)
		} else {
			add(fmt.Sprintf(`css=%s[id=%s]`, node.Tag, quote(id)), models.StrategyID, "id attribute", 0)
		}
	}

	if role := elementRole(node); role != "" {
		if name := accessibleName(node); name != "" {
			add(fmt.Sprintf(`role=%s[name=%s]`, role, quote(name)), models.StrategyRoleText, "role and accessible name", 0)
		}
	}
	if clickable(node) && node.InnerText != "" {
		add("text="+strings.TrimSpace(node.InnerText), models.StrategyRoleText, "visible text", 0)
	}

	for _, attr := range structuralAttrs {
		if v := node.Attr(attr); v != "" {
			add(fmt.Sprintf(`css=%s[%s=%s]`, node.Tag, attr, quote(v)), models.StrategyStructural, attr+" attribute", 0)
		}
	}
	add(structuralChain(node), models.StrategyStructural, "tag position", len(node.Ancestors))

	return out
}

// quote wraps v in double quotes, escaping backslashes and quotes.
func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

// elementRole returns the node's ARIA role, explicit or implied by the tag.
func elementRole(node *models.NodeDescriptor) string {
	if node.Role != "" {
		return node.Role
	}
	switch node.Tag {
	case "button":
		return "button"
	case "a":
		return "link"
	case "select":
		return "combobox"
	case "textarea":
		return "textbox"
	case "input":
		switch node.Type {
		case "submit", "button", "reset":
			return "button"
		case "checkbox":
			return "checkbox"
		case "radio":
			return "radio"
		default:
			return "textbox"
		}
	}
	return ""
}

// accessibleName returns the best available accessible name for the node.
func accessibleName(node *models.NodeDescriptor) string {
	if node.AriaLabel != "" {
		return node.AriaLabel
	}
	if v := node.Attr("aria-label"); v != "" {
		return v
	}
	if len(node.Labels) > 0 {
		return node.Labels[0]
	}
	if text := strings.TrimSpace(node.InnerText); text != "" {
		return text
	}
	if v := node.Attr("value"); v != "" && node.Tag == "input" {
		return v
	}
	return ""
}

// clickable reports whether the node is an element whose visible text alone
// is a reasonable locator.
func clickable(node *models.NodeDescriptor) bool {
	switch node.Tag {
	case "button", "a":
		return true
	case "input":
		return node.Type == "submit" || node.Type == "button"
	}
	return false
}

// structuralChain builds the last-resort position-based selector from the
// nearest ancestor tag and the node's nth-of-type index.
func structuralChain(node *models.NodeDescriptor) string {
	nth := node.NthOfType
	if nth <= 0 {
		nth = 1
	}
	if len(node.Ancestors) > 0 {
		return fmt.Sprintf("css=%s > %s:nth-of-type(%d)", node.Ancestors[0].Tag, node.Tag, nth)
	}
	return fmt.Sprintf("css=%s:nth-of-type(%d)", node.Tag, nth)
}
