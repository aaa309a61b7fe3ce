package resolve

import (
	"strings"

	"github.com/semloc/semloc/internal/feature"
	"github.com/semloc/semloc/internal/models"
)

// shortlist picks the node best matching the target. Nodes are filtered by
// tag and type, gated on required hints, and scored by how many hints appear
// in the text around them. Ties keep document order, so repeated runs against
// the same page pick the same node. Returns (-1, nil) when nothing matches.
func shortlist(nodes []*models.NodeDescriptor, target *models.SemanticTarget, limit int) (int, *models.NodeDescriptor) {
	bestIndex := -1
	var best *models.NodeDescriptor
	bestScore := -1
	considered := 0

	for i, node := range nodes {
		if node == nil || !matchesShape(node, target) {
			continue
		}
		if considered >= limit {
			break
		}
		considered++

		blob := feature.TextBlob(node)
		if !hasAllHints(blob, target.RequiredHints) {
			continue
		}
		score := countHints(blob, target.Hints)
		if len(target.Hints) > 0 && score == 0 {
			continue
		}
		if score > bestScore {
			bestScore = score
			bestIndex = i
			best = node
		}
	}
	return bestIndex, best
}

func matchesShape(node *models.NodeDescriptor, target *models.SemanticTarget) bool {
	if target.Tag != "" && node.Tag != target.Tag {
		return false
	}
	if len(target.Types) > 0 {
		for _, t := range target.Types {
			if node.Type == t {
				return true
			}
		}
		return false
	}
	return true
}

func hasAllHints(blob string, hints []string) bool {
	for _, hint := range hints {
		if !strings.Contains(blob, strings.ToLower(hint)) {
			return false
		}
	}
	return true
}

func countHints(blob string, hints []string) int {
	count := 0
	for _, hint := range hints {
		if strings.Contains(blob, strings.ToLower(hint)) {
			count++
		}
	}
	return count
}
