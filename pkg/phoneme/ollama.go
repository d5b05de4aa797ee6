package phoneme

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/voxalign/voxalign/pkg/extproc"
)

// defaultOllamaBinary is the language-model runner probed on PATH.
const defaultOllamaBinary = "ollama"

// llmPromptTemplate is the fixed, deterministic prompt sent to the model.
// It constrains the response to space-separated ARPAbet symbols; anything
// else the model emits is filtered out against the closed symbol set.
const llmPromptTemplate = "Give only the ARPAbet phonemes for the word '%s'. " +
	"Respond ONLY with the ARPAbet phonemes, space-separated, no explanation, " +
	"no punctuation, no extra words.\nExample: hello => HH AH0 L OW1\nNow, %s =>"

// LLMOption is a functional option for configuring an [LLMStrategy].
type LLMOption func(*LLMStrategy)

// WithOllamaBinary overrides the runner executable name or path.
func WithOllamaBinary(name string) LLMOption {
	return func(s *LLMStrategy) { s.binary = name }
}

// LLMStrategy queries a local language-model runner for the pronunciation of
// words missing from the dictionary. The model's raw response is tokenized on
// whitespace and filtered against the closed ARPAbet set; invalid tokens are
// dropped and logged, never surfaced.
type LLMStrategy struct {
	runner extproc.Runner
	model  string
	binary string
}

// NewLLMStrategy returns the language-model stage of the cascade. model is
// the runner's model identifier (e.g. "llama3.2") and must be non-blank.
func NewLLMStrategy(runner extproc.Runner, model string, opts ...LLMOption) *LLMStrategy {
	s := &LLMStrategy{runner: runner, model: model, binary: defaultOllamaBinary}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Method implements [Strategy].
func (s *LLMStrategy) Method() Method { return MethodLanguageModel }

// Resolve implements [Strategy]. A failed model call, or a response with zero
// valid ARPAbet tokens, yields a miss plus setup guidance in the log.
func (s *LLMStrategy) Resolve(ctx context.Context, word string) ([]string, error) {
	prompt := fmt.Sprintf(llmPromptTemplate, word, word)
	res, err := s.runner.Run(ctx, nil, s.binary, "run", s.model, prompt)
	if err != nil {
		s.logSetupGuidance(word)
		return nil, fmt.Errorf("phoneme: language model call failed: %w", err)
	}

	response := strings.TrimSpace(string(res.Stdout))
	if response == "" {
		s.logSetupGuidance(word)
		return nil, nil
	}

	tokens := strings.Fields(response)
	valid, dropped := FilterSymbols(tokens)
	if len(dropped) > 0 {
		slog.Info("filtered non-ARPAbet tokens from model response",
			"word", word, "model", s.model, "kept", valid, "dropped", dropped)
	}
	if len(valid) == 0 {
		slog.Warn("model response contained no valid ARPAbet symbols",
			"word", word, "model", s.model, "response", response)
		s.logSetupGuidance(word)
		return nil, nil
	}
	return valid, nil
}

func (s *LLMStrategy) logSetupGuidance(word string) {
	slog.Warn("language-model fallback could not resolve word; check the runner setup",
		"word", word,
		"model", s.model,
		"install", "brew install ollama",
		"pull", "ollama pull "+s.model,
		"hint", "llama3.2 gives the best ARPAbet accuracy",
	)
}
