// Package phoneme resolves English words to ARPAbet phoneme sequences using a
// layered cascade of resolution strategies: the CMU pronouncing dictionary
// first, then an optional local language-model fallback, then an explicit
// unresolved result.
//
// The dictionary is loaded once per process and shared read-only; see
// [Loader]. The cascade itself is an ordered list of [Strategy] values tried
// in sequence, so adding or reordering resolution sources is a data change.
package phoneme

import (
	"strings"
	"unicode"
)

// arpabetVowels are the ARPAbet vowel symbols. Only vowels may carry a
// trailing stress digit (0 = unstressed, 1 = primary, 2 = secondary).
var arpabetVowels = map[string]struct{}{
	"AA": {}, "AE": {}, "AH": {}, "AO": {}, "AW": {}, "AY": {},
	"EH": {}, "ER": {}, "EY": {}, "IH": {}, "IY": {},
	"OW": {}, "OY": {}, "UH": {}, "UW": {},
}

// arpabetConsonants are the remaining ARPAbet base symbols.
var arpabetConsonants = map[string]struct{}{
	"B": {}, "CH": {}, "D": {}, "DH": {}, "F": {}, "G": {}, "HH": {},
	"JH": {}, "K": {}, "L": {}, "M": {}, "N": {}, "NG": {}, "P": {},
	"R": {}, "S": {}, "SH": {}, "T": {}, "TH": {}, "V": {}, "W": {},
	"Y": {}, "Z": {}, "ZH": {},
}

// IsValidSymbol reports whether s is a member of the closed ARPAbet symbol
// set: a base symbol, optionally suffixed with a stress digit when the base
// is a vowel. The set is fixed and never extended at runtime.
func IsValidSymbol(s string) bool {
	if s == "" {
		return false
	}
	if last := s[len(s)-1]; last >= '0' && last <= '2' {
		_, ok := arpabetVowels[s[:len(s)-1]]
		return ok
	}
	if _, ok := arpabetVowels[s]; ok {
		return true
	}
	_, ok := arpabetConsonants[s]
	return ok
}

// FilterSymbols splits tokens into valid ARPAbet symbols and dropped
// non-symbols, preserving order within each group.
func FilterSymbols(tokens []string) (valid, dropped []string) {
	for _, t := range tokens {
		if IsValidSymbol(t) {
			valid = append(valid, t)
		} else {
			dropped = append(dropped, t)
		}
	}
	return valid, dropped
}

// NormalizeWord prepares a free-text token for dictionary lookup: leading and
// trailing non-alphanumeric runes are stripped and the remainder uppercased.
func NormalizeWord(word string) string {
	trimmed := strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.ToUpper(trimmed)
}
