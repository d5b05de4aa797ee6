// Package pipeline wires synthesis, audio transforms and lipsync into the two
// end-to-end operations the CLI exposes: exporting a transformed WAV and
// producing a lipsync document for it.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/voxalign/voxalign/internal/lipsync"
	"github.com/voxalign/voxalign/internal/observe"
	"github.com/voxalign/voxalign/internal/synth"
	"github.com/voxalign/voxalign/pkg/audio/transform"
	"github.com/voxalign/voxalign/pkg/audio/wavio"
)

// ExportRequest describes one synthesize-and-transform run.
type ExportRequest struct {
	// Text is the utterance to synthesize.
	Text string

	// OutputPath is the WAV file to write.
	OutputPath string

	// Pitch is the pitch factor (1.0 = unchanged).
	Pitch float64

	// Tempo is the tempo factor (1.0 = unchanged, 2.0 = double speed).
	Tempo float64

	// FastPitch selects the cheap interpolation pitch shift instead of the
	// formant-preserving external tool. It also changes playback duration,
	// so it is meant for previews.
	FastPitch bool
}

// Option is a functional option for configuring a [Pipeline].
type Option func(*Pipeline)

// WithMetrics attaches metric instruments to the pipeline.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// Pipeline runs the synthesize → transform → write flow, optionally followed
// by lipsync. A nil orchestrator disables the lipsync operation.
type Pipeline struct {
	synth        synth.Synthesizer
	shifter      *transform.SoxShifter
	orchestrator *lipsync.Orchestrator
	metrics      *observe.Metrics
}

// New constructs a Pipeline.
func New(s synth.Synthesizer, shifter *transform.SoxShifter, orch *lipsync.Orchestrator, opts ...Option) *Pipeline {
	p := &Pipeline{
		synth:        s,
		shifter:      shifter,
		orchestrator: orch,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Export synthesizes the text, applies the requested pitch and tempo
// transforms, and writes the result as a 16-bit mono WAV file.
func (p *Pipeline) Export(ctx context.Context, req ExportRequest) error {
	start := time.Now()
	samples, rate, err := p.synth.Synthesize(ctx, req.Text)
	if err != nil {
		return err
	}
	if p.metrics != nil {
		p.metrics.SynthesisDuration.Record(ctx, time.Since(start).Seconds())
	}
	slog.Debug("synthesis complete", "samples", len(samples), "rate", rate)

	samples, err = p.applyPitch(ctx, samples, rate, req)
	if err != nil {
		return err
	}

	if req.Tempo != 0 {
		tStart := time.Now()
		samples, err = transform.TimeStretch(samples, rate, req.Tempo)
		if err != nil {
			return err
		}
		if p.metrics != nil {
			p.metrics.TransformDuration.Record(ctx, time.Since(tStart).Seconds(),
				metric.WithAttributes(attribute.String("op", "stretch")))
		}
	}

	if err := wavio.WriteFile(req.OutputPath, samples, rate); err != nil {
		return fmt.Errorf("pipeline: write output wav: %w", err)
	}
	slog.Info("wav exported", "path", req.OutputPath, "samples", len(samples), "rate", rate)
	return nil
}

func (p *Pipeline) applyPitch(ctx context.Context, samples []float64, rate int, req ExportRequest) ([]float64, error) {
	if req.Pitch == 0 {
		return samples, nil
	}
	start := time.Now()
	var (
		out []float64
		err error
		op  string
	)
	if req.FastPitch || p.shifter == nil {
		op = "pitch_fast"
		out, err = transform.PitchShift(samples, req.Pitch)
	} else {
		op = "pitch"
		out, err = p.shifter.Shift(ctx, samples, rate, req.Pitch)
	}
	if err != nil {
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.TransformDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("op", op)))
	}
	return out, nil
}

// LipsyncRequest describes an export followed by forced alignment.
type LipsyncRequest struct {
	Export ExportRequest

	// JSONPath is the destination for the lipsync document. Empty keeps the
	// aligner's default name next to the WAV.
	JSONPath string

	// Level selects low or high fidelity.
	Level lipsync.Level
}

// Lipsync exports the WAV and then runs the aligner over it. When the lipsync
// step fails the exported WAV is left intact and the error describes only the
// alignment failure.
func (p *Pipeline) Lipsync(ctx context.Context, req LipsyncRequest) (*lipsync.Result, error) {
	if p.orchestrator == nil {
		return nil, fmt.Errorf("pipeline: lipsync is not configured")
	}
	if err := p.Export(ctx, req.Export); err != nil {
		return nil, err
	}
	res, err := p.orchestrator.Run(ctx, lipsync.Request{
		WAVPath:    req.Export.OutputPath,
		Text:       req.Export.Text,
		OutputPath: req.JSONPath,
		Level:      req.Level,
	})
	if err != nil {
		slog.Warn("lipsync failed; exported wav is unaffected", "wav", req.Export.OutputPath, "err", err)
		return nil, err
	}
	return res, nil
}
