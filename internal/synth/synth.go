// Package synth turns text into speech audio. The production implementation
// shells out to the Piper neural TTS engine; the interface exists so the
// pipeline can be tested without a model on disk.
package synth

import "context"

// Synthesizer converts text into mono float64 PCM samples in [-1, 1].
// It returns the samples and their sample rate.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]float64, int, error)
}
