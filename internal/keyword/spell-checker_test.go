package keyword

import "testing"

// fakeDictionary is a fixed vocabulary for spell checker tests.
type fakeDictionary struct {
	freqs map[string]int
}

func (d *fakeDictionary) GetAllTerms() ([]string, error) {
	terms := make([]string, 0, len(d.freqs))
	for t := range d.freqs {
		terms = append(terms, t)
	}
	return terms, nil
}

func (d *fakeDictionary) GetTermFrequency(term string) (int, error) {
	return d.freqs[term], nil
}

func (d *fakeDictionary) ContainsTerm(term string) (bool, error) {
	_, ok := d.freqs[term]
	return ok, nil
}

func newTestChecker() *SpellChecker {
	return NewSpellChecker(&fakeDictionary{freqs: map[string]int{
		"email":    10,
		"password": 8,
		"address":  5,
		"submit":   3,
	}})
}

func TestSpellChecker_Check(t *testing.T) {
	checker := newTestChecker()

	result, err := checker.Check("emial address")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !result.HasCorrections {
		t.Fatal("expected corrections for emial")
	}
	if result.CorrectedQuery != "email address" {
		t.Errorf("CorrectedQuery = %q, want %q", result.CorrectedQuery, "email address")
	}
	if len(result.MisspelledTerms) != 1 || result.MisspelledTerms[0] != "emial" {
		t.Errorf("MisspelledTerms = %v", result.MisspelledTerms)
	}
}

func TestSpellChecker_CleanQueryUnchanged(t *testing.T) {
	checker := newTestChecker()

	result, err := checker.Check("email password")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.HasCorrections {
		t.Errorf("unexpected corrections: %+v", result)
	}
	if result.CorrectedQuery != "email password" {
		t.Errorf("CorrectedQuery = %q", result.CorrectedQuery)
	}
}

func TestSpellChecker_Suggest_RanksByFrequency(t *testing.T) {
	checker := NewSpellChecker(&fakeDictionary{freqs: map[string]int{
		"cart": 2,
		"card": 9,
	}})

	suggestions := checker.Suggest("carf")
	if len(suggestions) != 2 {
		t.Fatalf("len(suggestions) = %d, want 2", len(suggestions))
	}
	if suggestions[0].Term != "card" {
		t.Errorf("top suggestion = %s, want card (higher frequency)", suggestions[0].Term)
	}
}

func TestSpellChecker_IsMisspelled(t *testing.T) {
	checker := newTestChecker()
	if checker.IsMisspelled("email") {
		t.Error("email should be in the vocabulary")
	}
	if !checker.IsMisspelled("zzzzz") {
		t.Error("zzzzz should be misspelled")
	}
}

func TestSpellChecker_GetSuggestedQuery(t *testing.T) {
	checker := newTestChecker()
	if got := checker.GetSuggestedQuery("pasword"); got != "password" {
		t.Errorf("GetSuggestedQuery = %q, want password", got)
	}
	if got := checker.GetSuggestedQuery("email"); got != "email" {
		t.Errorf("GetSuggestedQuery = %q, want unchanged email", got)
	}
}
