// Package feature turns captured DOM node descriptors into normalized,
// comparable feature vectors.
package feature

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/semloc/semloc/internal/embedding"
	"github.com/semloc/semloc/internal/models"
)

// ErrExtraction marks a descriptor with nothing to key off of: no tag name,
// or an empty attribute map combined with empty text.
var ErrExtraction = errors.New("descriptor cannot be extracted")

// Extractor derives feature vectors from node descriptors. The structural and
// hashed-attribute fields are a pure function of the descriptor; the embedding
// sub-field comes from the embedding capability.
type Extractor struct {
	embedder embedding.Embedder
}

// NewExtractor creates an extractor. embedder may be nil, in which case
// vectors carry no embedding and ranking runs rule-only.
func NewExtractor(embedder embedding.Embedder) *Extractor {
	return &Extractor{embedder: embedder}
}

// Extract derives the feature vector for node. On a malformed descriptor the
// error wraps ErrExtraction. When the embedding capability fails, the vector
// is still returned without its embedding alongside the capability's error,
// so callers can degrade instead of dropping the node.
func (e *Extractor) Extract(ctx context.Context, node *models.NodeDescriptor) (*models.FeatureVector, error) {
	if node == nil || node.Tag == "" {
		return nil, fmt.Errorf("missing tag name: %w", ErrExtraction)
	}
	if len(node.Attrs) == 0 && node.InnerText == "" && node.TextContent == "" && len(node.Labels) == 0 {
		return nil, fmt.Errorf("empty attributes and text: %w", ErrExtraction)
	}

	vec := &models.FeatureVector{
		AttrHash:     HashAttrs(node.Attrs),
		Depth:        len(node.Ancestors),
		SiblingIndex: node.SiblingIndex,
		TagPath:      TagPath(node),
		TextBlob:     TextBlob(node),
		Description:  Describe(node),
	}

	if e.embedder == nil {
		return vec, nil
	}
	emb, err := e.embedder.Embed(ctx, vec.Description)
	if err != nil {
		return vec, fmt.Errorf("embed description: %w", err)
	}
	vec.Embedding = emb
	return vec, nil
}

// HashAttrs hashes the attribute set, iterated in sorted key order so the
// result does not depend on map ordering.
func HashAttrs(attrs map[string]string) uint64 {
	h := fnv.New64a()
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{'='})
		h.Write([]byte(attrs[k]))
		h.Write([]byte{'\n'})
	}
	return h.Sum64()
}

// TagPath builds the root-to-node tag chain from the ancestor summaries,
// which are captured nearest first.
func TagPath(node *models.NodeDescriptor) string {
	parts := make([]string, 0, len(node.Ancestors)+1)
	for i := len(node.Ancestors) - 1; i >= 0; i-- {
		parts = append(parts, node.Ancestors[i].Tag)
	}
	parts = append(parts, node.Tag)
	return strings.Join(parts, "/")
}

// TextBlob joins every text signal around the node into one lowercased string
// for keyword matching: attribute values, labels, inner and text content,
// sibling texts, ancestor texts and classes.
func TextBlob(node *models.NodeDescriptor) string {
	var parts []string
	keys := make([]string, 0, len(node.Attrs))
	for k := range node.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := node.Attrs[k]; v != "" {
			parts = append(parts, v)
		}
	}
	parts = append(parts, node.Labels...)
	if node.InnerText != "" {
		parts = append(parts, node.InnerText)
	}
	if node.TextContent != "" {
		parts = append(parts, node.TextContent)
	}
	for _, sib := range node.Siblings {
		if sib.Text != "" {
			parts = append(parts, sib.Text)
		}
	}
	for _, anc := range node.Ancestors {
		if anc.Text != "" {
			parts = append(parts, anc.Text)
		}
		parts = append(parts, anc.Classes...)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// describedAttrs are the attributes included in embedding descriptions, in a
// fixed order.
var describedAttrs = []string{"id", "name", "class", "data-testid", "placeholder", "aria-label"}

// Describe builds the compact node summary used as embedding input.
func Describe(node *models.NodeDescriptor) string {
	parts := []string{
		"tag=" + node.Tag,
		"type=" + node.Type,
	}
	for _, key := range describedAttrs {
		if v := node.Attr(key); v != "" {
			parts = append(parts, key+"="+v)
		}
	}
	if len(node.Labels) > 0 {
		parts = append(parts, "labels="+strings.Join(node.Labels, "|"))
	}
	if node.InnerText != "" {
		parts = append(parts, "inner="+node.InnerText)
	}
	if node.TextContent != "" && node.TextContent != node.InnerText {
		parts = append(parts, "textContent="+node.TextContent)
	}
	var ancestorTexts []string
	for i, anc := range node.Ancestors {
		if i == 2 {
			break
		}
		if anc.Text != "" {
			ancestorTexts = append(ancestorTexts, anc.Text)
		}
	}
	if len(ancestorTexts) > 0 {
		parts = append(parts, "ancestors="+strings.Join(ancestorTexts, " | "))
	}
	return strings.Join(parts, " ; ")
}
