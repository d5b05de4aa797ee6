package lipsync

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

const (
	// wordMatchThreshold is the minimum Jaro-Winkler similarity for an
	// aligner word to be paired with a text token.
	wordMatchThreshold = 0.80

	// alignLookahead is how many tokens past the expected position are
	// considered when the aligner has merged, split, or dropped words.
	alignLookahead = 2
)

// AlignWords pairs each aligner word with an index into tokens, or -1 when no
// token matches confidently. The pairing is monotonic: once a token is
// consumed, later aligner words only look forward from it.
//
// The aligner's segmentation is usually — but not always — a one-for-one
// match for the text's whitespace tokenization, so candidates are scored by
// Jaro-Winkler similarity on normalized text within a small lookahead window
// instead of being paired blindly by index. Ties prefer the earliest
// (most positional) candidate.
func AlignWords(alignerWords, tokens []string) []int {
	matches := make([]int, len(alignerWords))
	next := 0
	for i, aw := range alignerWords {
		matches[i] = -1
		normAW := normalizeForMatch(aw)
		if normAW == "" || next >= len(tokens) {
			continue
		}

		end := next + 1 + alignLookahead
		if end > len(tokens) {
			end = len(tokens)
		}
		best, bestScore := -1, 0.0
		for j := next; j < end; j++ {
			normTok := normalizeForMatch(tokens[j])
			if normTok == "" {
				continue
			}
			score := matchr.JaroWinkler(normAW, normTok, false)
			if score > bestScore {
				best, bestScore = j, score
			}
		}
		if best >= 0 && bestScore >= wordMatchThreshold {
			matches[i] = best
			next = best + 1
		}
	}
	return matches
}

// normalizeForMatch lowercases a word and strips non-alphanumeric edges so
// that punctuation attached by either side does not defeat the comparison.
func normalizeForMatch(word string) string {
	trimmed := strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.ToLower(trimmed)
}
