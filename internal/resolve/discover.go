package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/semloc/semloc/internal/models"
	"github.com/semloc/semloc/pkg/utils"
)

// Discovery is one auto-discovered element: a suggested semantic key, the
// selector candidates for it, and a confidence in the suggested primary.
type Discovery struct {
	Key        string                     `json:"key"`
	Suggested  models.SelectorCandidate   `json:"suggested"`
	Candidates []models.SelectorCandidate `json:"candidates"`
	Confidence float64                    `json:"confidence"`
	Target     models.SemanticTarget      `json:"target"`
	Node       *models.NodeDescriptor     `json:"-"`
}

// Discover captures the page and suggests a semantic key plus selector
// candidates for every interactive element, for seeding the target registry.
// Nothing is published.
func (e *Engine) Discover(ctx context.Context, url string) ([]Discovery, error) {
	snapshot, err := e.deps.Automation.CaptureSnapshot(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to capture %s: %w", url, err)
	}

	seen := make(map[string]int)
	discoveries := make([]Discovery, 0, len(snapshot.Nodes))
	for _, node := range snapshot.Nodes {
		candidates := e.deps.Generator.Generate(node)
		if len(candidates) == 0 {
			continue
		}
		key := autoKey(node)
		if key == "" {
			continue
		}
		seen[key]++
		if n := seen[key]; n > 1 {
			key = fmt.Sprintf("%s_%d", key, n)
		}

		top := candidates[0]
		discoveries = append(discoveries, Discovery{
			Key:        key,
			Suggested:  top,
			Candidates: candidates,
			Confidence: strategyConfidence(top),
			Target:     suggestedTarget(key, node),
			Node:       node,
		})
	}
	return discoveries, nil
}

// autoKey derives a stable key slug from the node's strongest naming signal.
func autoKey(node *models.NodeDescriptor) string {
	for _, v := range []string{
		node.Attr("data-testid"),
		node.Attr("id"),
		node.Attr("name"),
		firstOf(node.Labels),
		node.Attr("placeholder"),
		node.InnerText,
	} {
		if slug := utils.Slugify(v); slug != "" {
			return slug
		}
	}
	return ""
}

func firstOf(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// strategyConfidence estimates how stable the suggested selector is across
// builds, from most to least trustworthy anchoring.
func strategyConfidence(c models.SelectorCandidate) float64 {
	switch c.Strategy {
	case models.StrategyID:
		return 1.0
	case models.StrategyDataAttr:
		return 0.95
	case models.StrategyRoleText:
		return 0.85
	case models.StrategyStructural:
		if strings.Contains(c.Selector, "[name=") {
			return 0.9
		}
		if strings.Contains(c.Selector, ":nth-of-type(") {
			return 0.7
		}
	}
	return 0.6
}

// suggestedTarget builds a registry entry matching the discovered node.
func suggestedTarget(key string, node *models.NodeDescriptor) models.SemanticTarget {
	target := models.SemanticTarget{Key: key, Tag: node.Tag}
	if node.Type != "" {
		target.Types = []string{node.Type}
	}
	var hintSource string
	if len(node.Labels) > 0 {
		hintSource = node.Labels[0]
	} else if v := node.Attr("placeholder"); v != "" {
		hintSource = v
	} else {
		hintSource = node.InnerText
	}
	hints := utils.Tokenize(hintSource)
	if len(hints) > 3 {
		hints = hints[:3]
	}
	target.Hints = hints
	return target
}
