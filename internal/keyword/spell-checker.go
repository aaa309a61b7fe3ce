package keyword

import (
	"sort"
	"strings"
	"sync"
)

// Suggestion is one spelling suggestion with its score.
type Suggestion struct {
	Term      string
	Distance  int
	Frequency int
	Score     float64
}

// SpellCheckResult is the outcome of spell checking an operator query.
type SpellCheckResult struct {
	OriginalQuery   string
	CorrectedQuery  string
	Suggestions     []Suggestion
	HasCorrections  bool
	MisspelledTerms []string
}

// SpellChecker suggests corrections for query terms not found in the indexed
// vocabulary. The vocabulary comes from the text captured around page
// elements, so suggestions stay within what the pages actually say.
type SpellChecker struct {
	dictionary     TermDictionary
	maxDistance    int
	minFreq        int
	maxSuggestions int

	termsCache []string
	termSet    map[string]struct{}
	cacheMu    sync.RWMutex
	cacheValid bool
}

// SpellCheckerOption is a functional option for configuring SpellChecker.
type SpellCheckerOption func(*SpellChecker)

// WithMaxDistance sets the maximum edit distance for suggestions.
func WithMaxDistance(d int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMinFrequency sets the minimum record frequency for suggestions. Terms
// with lower frequency are ignored as likely noise.
func WithMinFrequency(f int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if f >= 0 {
			s.minFreq = f
		}
	}
}

// WithMaxSuggestions sets the maximum number of suggestions per term.
func WithMaxSuggestions(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// NewSpellChecker creates a SpellChecker over the given dictionary.
func NewSpellChecker(dict TermDictionary, opts ...SpellCheckerOption) *SpellChecker {
	s := &SpellChecker{
		dictionary:     dict,
		maxDistance:    2,
		minFreq:        1,
		maxSuggestions: 5,
		termSet:        make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefreshCache updates the internal term cache from the dictionary. Call
// after new records are indexed.
func (s *SpellChecker) RefreshCache() error {
	terms, err := s.dictionary.GetAllTerms()
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.termsCache = terms
	s.termSet = make(map[string]struct{}, len(terms))
	for _, t := range terms {
		s.termSet[strings.ToLower(t)] = struct{}{}
	}
	s.cacheValid = true
	return nil
}

// Check checks a query for terms missing from the vocabulary and returns the
// corrected query alongside per-term suggestions.
func (s *SpellChecker) Check(query string) (*SpellCheckResult, error) {
	if !s.cacheValid {
		if err := s.RefreshCache(); err != nil {
			return nil, err
		}
	}

	terms := tokenizeQuery(query)
	result := &SpellCheckResult{
		OriginalQuery:   query,
		Suggestions:     make([]Suggestion, 0),
		MisspelledTerms: make([]string, 0),
	}

	correctedTerms := make([]string, 0, len(terms))
	for _, term := range terms {
		termLower := strings.ToLower(term)

		s.cacheMu.RLock()
		_, exists := s.termSet[termLower]
		s.cacheMu.RUnlock()

		if exists {
			correctedTerms = append(correctedTerms, term)
			continue
		}

		suggestions := s.Suggest(termLower)
		if len(suggestions) > 0 {
			result.HasCorrections = true
			result.MisspelledTerms = append(result.MisspelledTerms, term)
			result.Suggestions = append(result.Suggestions, suggestions...)
			correctedTerms = append(correctedTerms, suggestions[0].Term)
		} else {
			correctedTerms = append(correctedTerms, term)
		}
	}

	result.CorrectedQuery = strings.Join(correctedTerms, " ")
	return result, nil
}

// Suggest returns spelling suggestions for a single term, best first.
func (s *SpellChecker) Suggest(term string) []Suggestion {
	if !s.cacheValid {
		if err := s.RefreshCache(); err != nil {
			return nil
		}
	}

	termLower := strings.ToLower(term)
	suggestions := make([]Suggestion, 0)

	s.cacheMu.RLock()
	terms := s.termsCache
	s.cacheMu.RUnlock()

	for _, dictTerm := range terms {
		dictTermLower := strings.ToLower(dictTerm)
		if dictTermLower == termLower {
			continue
		}

		// Length difference beyond maxDistance cannot be within distance.
		lenDiff := len(dictTermLower) - len(termLower)
		if lenDiff < 0 {
			lenDiff = -lenDiff
		}
		if lenDiff > s.maxDistance {
			continue
		}

		distance := LevenshteinDistance(termLower, dictTermLower)
		if distance > s.maxDistance {
			continue
		}
		freq, err := s.dictionary.GetTermFrequency(dictTerm)
		if err != nil || freq < s.minFreq {
			continue
		}

		suggestions = append(suggestions, Suggestion{
			Term:      dictTerm,
			Distance:  distance,
			Frequency: freq,
			Score:     (1.0 / float64(distance+1)) * float64(freq),
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})
	if len(suggestions) > s.maxSuggestions {
		suggestions = suggestions[:s.maxSuggestions]
	}
	return suggestions
}

// IsMisspelled reports whether a term is absent from the vocabulary.
func (s *SpellChecker) IsMisspelled(term string) bool {
	if !s.cacheValid {
		if err := s.RefreshCache(); err != nil {
			return false
		}
	}

	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()

	_, exists := s.termSet[strings.ToLower(term)]
	return !exists
}

// GetSuggestedQuery returns the best corrected query, or the original when no
// corrections are found.
func (s *SpellChecker) GetSuggestedQuery(query string) string {
	result, err := s.Check(query)
	if err != nil || !result.HasCorrections {
		return query
	}
	return result.CorrectedQuery
}
