// Package lipsync drives an external forced-alignment tool over a synthesized
// WAV file and merges phoneme resolutions into the tool's per-word timing
// output, producing the final lipsync document.
//
// The orchestrator runs the aligner with explicit output-directory arguments
// rather than switching the process working directory, so concurrent runs in
// one process only need distinct output directories to stay safe.
package lipsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/voxalign/voxalign/internal/observe"
	"github.com/voxalign/voxalign/pkg/extproc"
	"github.com/voxalign/voxalign/pkg/phoneme"
)

// defaultAlignerBinary is the forced-alignment executable probed on PATH.
const defaultAlignerBinary = "whisperx"

// Level selects how much detail the lipsync document carries.
type Level string

const (
	// LevelLow keeps only the aligner's word timings.
	LevelLow Level = "low"

	// LevelHigh additionally attaches phoneme sequences and resolution
	// method tags to each word segment.
	LevelHigh Level = "high"
)

// ParseLevel validates a lipsync level string.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelLow, LevelHigh:
		return Level(s), nil
	}
	return "", fmt.Errorf("lipsync: invalid level %q (valid: low, high)", s)
}

// ErrAlignerNotFound is returned when the aligner executable is not on PATH.
// The caller's already-written WAV is unaffected.
var ErrAlignerNotFound = errors.New("lipsync: aligner executable not found")

// ErrOutputMissing is returned when the aligner reports success but its
// expected JSON output file does not exist.
var ErrOutputMissing = errors.New("lipsync: aligner output not found")

// Request describes one lipsync run.
type Request struct {
	// WAVPath is the audio file to align.
	WAVPath string

	// Text is the original synthesized text, used for phoneme enrichment.
	Text string

	// OutputPath is the destination for the JSON document. When empty, the
	// aligner's default name next to the WAV is kept.
	OutputPath string

	// Level selects low (timings only) or high (phoneme-annotated) fidelity.
	Level Level
}

// Result reports where the final document was written.
type Result struct {
	JSONPath string
}

// Option is a functional option for configuring an [Orchestrator].
type Option func(*Orchestrator)

// WithAlignerBinary overrides the aligner executable name or path.
func WithAlignerBinary(name string) Option {
	return func(o *Orchestrator) { o.binary = name }
}

// WithMetrics attaches metric instruments to the orchestrator.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// Orchestrator runs the aligner and enriches its output. A nil resolver
// disables high-fidelity enrichment.
type Orchestrator struct {
	runner   extproc.Runner
	resolver *phoneme.Resolver
	binary   string
	metrics  *observe.Metrics
}

// New constructs an Orchestrator that invokes the aligner through runner.
func New(runner extproc.Runner, resolver *phoneme.Resolver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		runner:   runner,
		resolver: resolver,
		binary:   defaultAlignerBinary,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one lipsync pass: probe the aligner, invoke it, locate its
// JSON output, move the file to the requested destination, and (in high
// fidelity) enrich it with phonemes.
//
// Aligner-not-found and output-not-found abort only the lipsync step; any WAV
// the caller already wrote stays intact. A failed rename or copy is reported
// but leaves the document under the aligner's default name.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	res, err := o.run(ctx, req)
	if o.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		o.metrics.LipsyncRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
	return res, err
}

func (o *Orchestrator) run(ctx context.Context, req Request) (*Result, error) {
	if _, err := o.runner.LookPath(o.binary); err != nil {
		slog.Error("aligner not found; install it first",
			"binary", o.binary,
			"install", "python3 -m pip install git+https://github.com/m-bain/whisperx.git",
			"see", "https://github.com/m-bain/whisperX",
		)
		return nil, fmt.Errorf("%w: %q", ErrAlignerNotFound, o.binary)
	}

	wavPath, err := filepath.Abs(req.WAVPath)
	if err != nil {
		return nil, fmt.Errorf("lipsync: resolve wav path: %w", err)
	}

	// The aligner writes <wav-basename>.json into the output directory.
	outputDir := filepath.Dir(wavPath)
	if req.OutputPath != "" {
		abs, err := filepath.Abs(req.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("lipsync: resolve output path: %w", err)
		}
		req.OutputPath = abs
		outputDir = filepath.Dir(abs)
	}

	slog.Info("running aligner", "binary", o.binary, "wav", wavPath, "output_dir", outputDir)
	start := time.Now()
	runRes, err := o.runner.Run(ctx, nil, o.binary,
		wavPath,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--compute_type", "float32",
	)
	if o.metrics != nil {
		o.metrics.AlignerDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		if o.metrics != nil {
			o.metrics.ExternalToolErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", o.binary)))
		}
		slog.Error("aligner failed", "err", err, "stderr", string(runRes.Stderr))
		return nil, fmt.Errorf("lipsync: aligner failed: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath))
	produced := filepath.Join(outputDir, base+".json")
	if _, err := os.Stat(produced); err != nil {
		o.listJSONFiles(outputDir)
		return nil, fmt.Errorf("%w: expected %s", ErrOutputMissing, produced)
	}

	final := produced
	if req.OutputPath != "" && req.OutputPath != produced {
		if err := moveFile(produced, req.OutputPath); err != nil {
			slog.Warn("could not move aligner output to requested destination, keeping default name",
				"from", produced, "to", req.OutputPath, "err", err)
		} else {
			final = req.OutputPath
		}
	}

	if req.Level == LevelHigh && o.resolver != nil {
		if err := o.enrich(ctx, final, req.Text); err != nil {
			slog.Warn("phoneme enrichment failed; document keeps timings only", "err", err)
		}
	}

	slog.Info("lipsync document written", "path", final)
	return &Result{JSONPath: final}, nil
}

// enrich reads the document back, resolves every word of the original text,
// and attaches phonemes to the matching word segments in place.
func (o *Orchestrator) enrich(ctx context.Context, jsonPath, text string) error {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("lipsync: read document: %w", err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return err
	}

	resolutions := o.resolver.ResolveText(ctx, text)
	if o.metrics != nil {
		for _, r := range resolutions {
			o.metrics.WordsResolved.Add(ctx, 1, metric.WithAttributes(attribute.String("method", string(r.Method))))
		}
	}

	tokens := strings.Fields(text)
	matches := AlignWords(doc.Words(), tokens)
	for i, j := range matches {
		if j < 0 {
			slog.Warn("no confident token match for aligner word, leaving segment unannotated",
				"segment", i, "word", doc.Words()[i])
			continue
		}
		if err := doc.Annotate(i, resolutions[j].Phonemes, resolutions[j].Method); err != nil {
			return err
		}
	}

	out, err := doc.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(jsonPath, out, 0o644); err != nil {
		return fmt.Errorf("lipsync: rewrite document: %w", err)
	}
	return nil
}

// listJSONFiles logs the JSON files present in dir as a diagnostic aid when
// the expected aligner output is missing.
func (o *Orchestrator) listJSONFiles(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	slog.Error("expected aligner output missing", "dir", dir, "json_files", names)
}

// moveFile renames src to dst, falling back to copy-then-delete when the
// rename fails (e.g. across filesystems).
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
