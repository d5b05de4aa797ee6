package phoneme

import (
	"context"
	"log/slog"
	"strings"
)

// Method tags how a word's phoneme sequence was obtained. The string values
// are the ones written into lipsync documents.
type Method string

const (
	// MethodDictionary marks a pronunciation taken from the CMU dictionary.
	MethodDictionary Method = "cmudict"

	// MethodLanguageModel marks a pronunciation produced by the local
	// language-model fallback.
	MethodLanguageModel Method = "llm"

	// MethodUnresolved marks a word no strategy could resolve; the phoneme
	// sequence is empty and manual attention is needed.
	MethodUnresolved Method = "user_manual"
)

// Resolution is the outcome for a single input word.
type Resolution struct {
	// Word is the normalized (uppercased, edge-stripped) form that was looked up.
	Word string

	// Phonemes is the resolved ARPAbet sequence; empty when unresolved.
	Phonemes []string

	// Method tags which cascade stage produced the result.
	Method Method
}

// Strategy is one stage of the resolution cascade.
//
// Resolve returns (nil, nil) for a clean miss — the cascade moves on to the
// next strategy. An error also moves the cascade on, but is logged.
// Implementations must be safe for concurrent use.
type Strategy interface {
	// Method is the tag attached to resolutions this strategy produces.
	Method() Method

	// Resolve attempts to find the ARPAbet sequence for a normalized word.
	Resolve(ctx context.Context, word string) ([]string, error)
}

// Resolver tries an ordered list of strategies per word. Strategy order is
// the cascade's priority order: an earlier hit is never overridden by a later
// strategy, so a dictionary entry always beats the language model.
type Resolver struct {
	strategies []Strategy
}

// NewResolver builds a Resolver over the given strategies, tried in order.
func NewResolver(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// ResolveWord resolves one word through the cascade. For a fixed dictionary
// and a fixed model response the result is deterministic.
func (r *Resolver) ResolveWord(ctx context.Context, word string) Resolution {
	norm := NormalizeWord(word)
	if norm == "" {
		return Resolution{Word: norm, Method: MethodUnresolved}
	}

	for _, s := range r.strategies {
		phonemes, err := s.Resolve(ctx, norm)
		if err != nil {
			slog.Warn("phoneme strategy failed", "method", s.Method(), "word", norm, "err", err)
			continue
		}
		if len(phonemes) > 0 {
			slog.Debug("word resolved", "word", norm, "phonemes", phonemes, "method", s.Method())
			return Resolution{Word: norm, Phonemes: phonemes, Method: s.Method()}
		}
	}

	if !r.hasLanguageModel() {
		slog.Warn("no phoneme data; configure a language-model fallback to resolve out-of-dictionary words", "word", norm)
	}
	return Resolution{Word: norm, Method: MethodUnresolved}
}

// ResolveText resolves every whitespace-delimited token of text, preserving
// word order.
func (r *Resolver) ResolveText(ctx context.Context, text string) []Resolution {
	words := strings.Fields(text)
	out := make([]Resolution, len(words))
	for i, w := range words {
		out[i] = r.ResolveWord(ctx, w)
	}
	return out
}

func (r *Resolver) hasLanguageModel() bool {
	for _, s := range r.strategies {
		if s.Method() == MethodLanguageModel {
			return true
		}
	}
	return false
}

// DictionaryStrategy resolves words against the shared CMU dictionary cache.
type DictionaryStrategy struct {
	loader *Loader
}

// NewDictionaryStrategy returns the dictionary stage of the cascade.
func NewDictionaryStrategy(loader *Loader) *DictionaryStrategy {
	return &DictionaryStrategy{loader: loader}
}

// Method implements [Strategy].
func (s *DictionaryStrategy) Method() Method { return MethodDictionary }

// Resolve implements [Strategy]. A dictionary load failure is returned as an
// error so the cascade falls through; the load is retried on the next word.
func (s *DictionaryStrategy) Resolve(ctx context.Context, word string) ([]string, error) {
	dict, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	pron, ok := dict.Lookup(word)
	if !ok {
		return nil, nil
	}
	return pron, nil
}
