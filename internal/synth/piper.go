package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/voxalign/voxalign/pkg/audio/wavio"
	"github.com/voxalign/voxalign/pkg/extproc"
)

// Compile-time interface assertion.
var _ Synthesizer = (*Piper)(nil)

const defaultPiperBinary = "piper"

// ErrPiperNotFound is returned when the piper executable is not on PATH.
var ErrPiperNotFound = errors.New("synth: piper executable not found")

// Option is a functional option for configuring a [Piper].
type Option func(*Piper)

// WithPiperBinary overrides the piper executable name or path.
func WithPiperBinary(name string) Option {
	return func(p *Piper) { p.binary = name }
}

// Piper synthesizes speech by running the piper CLI with a local ONNX voice
// model. Text goes in on stdin; piper writes a WAV file which is read back and
// decoded into float samples.
type Piper struct {
	runner    extproc.Runner
	modelPath string
	binary    string
}

// NewPiper creates a Piper synthesizer using the voice model at modelPath.
func NewPiper(runner extproc.Runner, modelPath string, opts ...Option) *Piper {
	p := &Piper{
		runner:    runner,
		modelPath: modelPath,
		binary:    defaultPiperBinary,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Synthesize renders text to speech and returns mono float64 samples with
// their sample rate.
func (p *Piper) Synthesize(ctx context.Context, text string) ([]float64, int, error) {
	if strings.TrimSpace(text) == "" {
		return nil, 0, errors.New("synth: text must not be empty")
	}
	if _, err := p.runner.LookPath(p.binary); err != nil {
		slog.Error("piper not found; install it first",
			"binary", p.binary,
			"install", "python3 -m pip install piper-tts",
			"see", "https://github.com/rhasspy/piper",
		)
		return nil, 0, fmt.Errorf("%w: %q", ErrPiperNotFound, p.binary)
	}

	dir, err := os.MkdirTemp("", "voxalign-synth-")
	if err != nil {
		return nil, 0, fmt.Errorf("synth: create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)
	outPath := filepath.Join(dir, "out.wav")

	res, err := p.runner.Run(ctx, []byte(text), p.binary,
		"--model", p.modelPath,
		"--output_file", outPath,
	)
	if err != nil {
		slog.Error("piper failed", "err", err, "stderr", string(res.Stderr))
		return nil, 0, fmt.Errorf("synth: piper failed: %w", err)
	}

	samples, rate, err := wavio.ReadFile(outPath)
	if err != nil {
		return nil, 0, fmt.Errorf("synth: read piper output: %w", err)
	}
	return samples, rate, nil
}
