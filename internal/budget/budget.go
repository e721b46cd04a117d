// Package budget provides token budget estimation for grounded prompts.
// Because the pipeline supports completion backends with different
// tokenizers, this package uses a conservative character-based heuristic:
// 1 token ≈ 4 characters of English prose.
package budget

import "unicode/utf8"

const (
	// charsPerToken is the character-to-token ratio used for estimation.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input budget for one prompt.
	// It fits 8k-context models while leaving room for the answer.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := utf8.RuneCountInString(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// FitExtracts returns how many of the ranked extracts fit into maxTokens
// alongside fixedTokens of instructions and question. Extracts are dropped
// from the end (lowest ranked first). At least one extract is always kept
// when any are given, so a small budget degrades the answer instead of
// removing all grounding.
func FitExtracts(fixedTokens int, extracts []string, maxTokens int) int {
	if len(extracts) == 0 {
		return 0
	}
	if maxTokens <= 0 {
		return len(extracts)
	}

	total := fixedTokens
	for i, e := range extracts {
		total += Estimate(e)
		if total > maxTokens {
			if i == 0 {
				return 1
			}
			return i
		}
	}
	return len(extracts)
}
