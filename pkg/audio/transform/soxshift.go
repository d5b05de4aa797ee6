package transform

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/voxalign/voxalign/pkg/audio/wavio"
	"github.com/voxalign/voxalign/pkg/extproc"
)

// defaultSoxBinary is the executable name probed on PATH when no override is
// configured.
const defaultSoxBinary = "sox"

// Cents converts a multiplicative pitch factor to a shift in cents
// (1200 cents per octave).
func Cents(factor float64) float64 {
	return 1200 * math.Log2(factor)
}

// SoxOption is a functional option for configuring a [SoxShifter].
type SoxOption func(*SoxShifter)

// WithSoxBinary overrides the sox executable name or path. Default: "sox".
func WithSoxBinary(name string) SoxOption {
	return func(s *SoxShifter) { s.binary = name }
}

// SoxShifter performs duration-preserving, formant-aware pitch shifting by
// delegating to the external sox tool. It is safe for concurrent use: each
// Shift call stages its WAV files in a per-invocation temporary directory.
type SoxShifter struct {
	runner extproc.Runner
	binary string
}

// NewSoxShifter returns a SoxShifter that invokes sox through runner.
func NewSoxShifter(runner extproc.Runner, opts ...SoxOption) *SoxShifter {
	s := &SoxShifter{runner: runner, binary: defaultSoxBinary}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Shift changes pitch by Cents(factor) while preserving duration.
//
// The samples are written to a temporary 16-bit PCM mono WAV, sox is invoked
// with the cents argument, and the output WAV is read back. When sox exits
// nonzero or its output cannot be read, the tool's error output is logged and
// an unmodified copy of the input is returned — playback of unshifted audio
// beats aborting the pipeline. Temporary files are removed on every path.
//
// Factors within 0.01 of 1.0 return an exact copy without invoking sox.
func (s *SoxShifter) Shift(ctx context.Context, samples []float64, sampleRate int, factor float64) ([]float64, error) {
	if err := ValidateFactor(factor); err != nil {
		return nil, err
	}
	if isIdentity(factor) || len(samples) == 0 {
		return clone(samples), nil
	}

	dir, err := os.MkdirTemp("", "voxalign-pitch-")
	if err != nil {
		return nil, fmt.Errorf("transform: create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")
	if err := wavio.WriteFile(in, samples, sampleRate); err != nil {
		return nil, fmt.Errorf("transform: stage sox input: %w", err)
	}

	cents := Cents(factor)
	res, err := s.runner.Run(ctx, nil, s.binary, in, out, "pitch", strconv.FormatFloat(cents, 'f', -1, 64))
	if err != nil {
		slog.Warn("sox pitch shift failed, returning unshifted audio",
			"err", err,
			"cents", cents,
			"stderr", string(res.Stderr),
		)
		return clone(samples), nil
	}

	shifted, _, err := wavio.ReadFile(out)
	if err != nil {
		slog.Warn("sox output unreadable, returning unshifted audio", "err", err)
		return clone(samples), nil
	}
	return shifted, nil
}
