package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/semloc/semloc/internal/models"
)

// recordDocument is the flattened form of a semantic record stored in Bleve.
type recordDocument struct {
	SemanticKey string `json:"semantic_key"`
	BuildID     string `json:"build_id"`
	Status      string `json:"status"`
	Text        string `json:"text"`
	Description string `json:"description"`
	Selectors   string `json:"selectors"`
}

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An existing index is
// opened and reused so records survive restarts. If the mapping changes in
// code, remove the index directory to force a full re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so a query like
	// "email" matches the exact word captured from the page.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	docMapping.AddFieldMappingsAt("description", textFieldMapping)
	docMapping.AddFieldMappingsAt("selectors", textFieldMapping)
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("semantic_key", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("build_id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("status", keywordFieldMapping)
	im.AddDocumentMapping("record", docMapping)
	im.DefaultType = "record"
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index stores the searchable form of rec, replacing any previous entry for
// the same (key, build) pair.
func (b *BleveIndex) Index(ctx context.Context, rec *models.SemanticRecord) error {
	doc := recordDocument{
		SemanticKey: rec.SemanticKey,
		BuildID:     rec.BuildID,
		Status:      string(rec.Status),
	}
	if rec.Feature != nil {
		doc.Text = rec.Feature.TextBlob
		doc.Description = rec.Feature.Description
	}
	selectors := make([]string, 0, len(rec.Selectors))
	for i := range rec.Selectors {
		selectors = append(selectors, rec.Selectors[i].Selector)
	}
	doc.Selectors = strings.Join(selectors, " ")
	return b.index.Index(docID(rec.SemanticKey, rec.BuildID), doc)
}

// Search runs a match query over the record fields and returns up to limit
// hits. opts can restrict by status and enable fuzzy matching.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error) {
	fuzzyEnabled := false
	fuzziness := 2
	var status models.Status
	if opts != nil {
		fuzzyEnabled = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
		status = opts.Status
	}

	var q blevequery.Query
	if fuzzyEnabled {
		q = buildFuzzyQuery(query, fuzziness)
	} else {
		q = bleve.NewMatchQuery(query)
	}
	if status != "" {
		statusQuery := bleve.NewTermQuery(string(status))
		statusQuery.SetField("status")
		q = bleve.NewConjunctionQuery(q, statusQuery)
	}

	search := bleve.NewSearchRequest(q)
	search.Size = limit
	results, err := b.index.Search(search)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*Result, 0, len(results.Hits))
	for _, hit := range results.Hits {
		semanticKey, buildID, ok := splitDocID(hit.ID)
		if !ok {
			continue
		}
		out = append(out, &Result{SemanticKey: semanticKey, BuildID: buildID, Score: hit.Score})
	}
	return out, nil
}

func docID(semanticKey, buildID string) string {
	return semanticKey + "@" + buildID
}

func splitDocID(id string) (semanticKey, buildID string, ok bool) {
	i := strings.LastIndex(id, "@")
	if i <= 0 || i == len(id)-1 {
		return "", "", false
	}
	return id[:i], id[i+1:], true
}

// tokenizeQuery splits query into lowercase terms, filtering out empty strings.
func tokenizeQuery(query string) []string {
	words := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w != "" {
			terms = append(terms, w)
		}
	}
	return terms
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries for each query term,
// matching MatchQuery semantics where any term can match.
func buildFuzzyQuery(queryStr string, fuzziness int) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if len(terms) == 0 {
		return bleve.NewMatchQuery(queryStr)
	}
	if len(terms) == 1 {
		fq := bleve.NewFuzzyQuery(terms[0])
		fq.SetFuzziness(fuzziness)
		return fq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		queries = append(queries, fq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Delete removes the record's entry from the index.
func (b *BleveIndex) Delete(ctx context.Context, semanticKey, buildID string) error {
	return b.index.Delete(docID(semanticKey, buildID))
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of indexed records.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// GetTermFrequency returns the number of records containing the term.
func (b *BleveIndex) GetTermFrequency(term string) (int, error) {
	q := bleve.NewMatchQuery(term)
	req := bleve.NewSearchRequest(q)
	req.Size = 10000
	results, err := b.index.Search(req)
	if err != nil {
		return 0, fmt.Errorf("failed to search for term frequency: %w", err)
	}
	return int(results.Total), nil
}

// GetAllTerms returns all unique terms from the text and description field
// dictionaries, used to suggest corrections for operator queries.
func (b *BleveIndex) GetAllTerms() ([]string, error) {
	terms := make([]string, 0)
	seen := make(map[string]struct{})
	for _, field := range []string{"text", "description"} {
		dict, err := b.index.FieldDict(field)
		if err != nil {
			continue
		}
		for {
			entry, err := dict.Next()
			if err != nil || entry == nil {
				break
			}
			if _, ok := seen[entry.Term]; !ok {
				terms = append(terms, entry.Term)
				seen[entry.Term] = struct{}{}
			}
		}
		dict.Close()
	}
	return terms, nil
}

// ContainsTerm checks if a term exists in the index.
func (b *BleveIndex) ContainsTerm(term string) (bool, error) {
	freq, err := b.GetTermFrequency(term)
	if err != nil {
		return false, err
	}
	return freq > 0, nil
}
