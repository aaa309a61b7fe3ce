package embedding

import "strings"

// Tokenizer turns node description text into the BERT-style model inputs
// (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// HashTokenizer maps whitespace-separated words to hashed token IDs. It ships
// as the default because the encoder models used here carry no vocabulary
// file; hashed IDs keep identical descriptions mapping to identical inputs.
type HashTokenizer struct{}

// Tokenize produces padded token ID slices of length maxTokens, with [CLS]
// and [SEP] markers framing the hashed words.
func (t *HashTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = 101 // [CLS]
	attentionMask[0] = 1

	pos := 1
	for _, word := range strings.Fields(text) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = int64(hashText(word) % 30000)
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = 102 // [SEP]
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// hashText returns a deterministic non-negative hash of s. The tokenizer and
// the mock embedder both key off it, so the same description text always maps
// to the same token IDs and the same mock vector.
func hashText(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
