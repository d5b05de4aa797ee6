package pipeline

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/voxalign/voxalign/internal/lipsync"
	"github.com/voxalign/voxalign/internal/observe"
	"github.com/voxalign/voxalign/pkg/audio/wavio"
	"github.com/voxalign/voxalign/pkg/extproc"
)

// fakeSynth returns a fixed tone for any text.
type fakeSynth struct {
	n    int
	rate int
	err  error
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string) ([]float64, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	samples := make([]float64, f.n)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*float64(i)/64)
	}
	return samples, f.rate, nil
}

// failRunner fails every external call; used to exercise degradation paths.
type failRunner struct{}

func (failRunner) LookPath(name string) (string, error) {
	return "", errors.New("not found")
}

func (failRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) (extproc.Result, error) {
	return extproc.Result{}, errors.New("exec failed")
}

func TestExportPlain(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "out.wav")
	p := New(&fakeSynth{n: 22050, rate: 22050}, nil, nil)

	if err := p.Export(context.Background(), ExportRequest{Text: "hi", OutputPath: out}); err != nil {
		t.Fatal(err)
	}
	samples, rate, err := wavio.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if rate != 22050 || len(samples) != 22050 {
		t.Errorf("wav = %d samples at %d Hz", len(samples), rate)
	}
}

func TestExportFastPitchChangesLength(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "out.wav")
	p := New(&fakeSynth{n: 10000, rate: 22050}, nil, nil)

	err := p.Export(context.Background(), ExportRequest{
		Text: "hi", OutputPath: out, Pitch: 2.0, FastPitch: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	samples, _, err := wavio.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 5000 {
		t.Errorf("len = %d, want 5000 for a 2x fast pitch shift", len(samples))
	}
}

func TestExportTempo(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "out.wav")
	p := New(&fakeSynth{n: 22050, rate: 22050}, nil, nil)

	err := p.Export(context.Background(), ExportRequest{
		Text: "hi", OutputPath: out, Tempo: 2.0,
	})
	if err != nil {
		t.Fatal(err)
	}
	samples, _, err := wavio.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	want := 22050 / 2
	diff := len(samples) - want
	if diff < 0 {
		diff = -diff
	}
	if diff > 2048 {
		t.Errorf("len = %d, want ~%d for tempo 2.0", len(samples), want)
	}
}

func TestExportSynthFailure(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "out.wav")
	p := New(&fakeSynth{err: errors.New("no model")}, nil, nil)

	if err := p.Export(context.Background(), ExportRequest{Text: "hi", OutputPath: out}); err == nil {
		t.Fatal("expected synthesis error")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("output file written despite synthesis failure")
	}
}

func TestLipsyncFailureKeepsWAV(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "out.wav")
	orch := lipsync.New(failRunner{}, nil)
	p := New(&fakeSynth{n: 4410, rate: 22050}, nil, orch)

	_, err := p.Lipsync(context.Background(), LipsyncRequest{
		Export: ExportRequest{Text: "hi", OutputPath: out},
		Level:  lipsync.LevelLow,
	})
	if !errors.Is(err, lipsync.ErrAlignerNotFound) {
		t.Fatalf("err = %v, want ErrAlignerNotFound", err)
	}
	// The exported WAV survives the lipsync failure.
	if _, _, err := wavio.ReadFile(out); err != nil {
		t.Errorf("exported wav unreadable after lipsync failure: %v", err)
	}
}

func TestLipsyncNotConfigured(t *testing.T) {
	t.Parallel()

	p := New(&fakeSynth{n: 100, rate: 22050}, nil, nil)
	if _, err := p.Lipsync(context.Background(), LipsyncRequest{}); err == nil {
		t.Error("expected error with no orchestrator")
	}
}

func TestExportRecordsMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "out.wav")
	p := New(&fakeSynth{n: 4410, rate: 22050}, nil, nil, WithMetrics(metrics))
	err = p.Export(context.Background(), ExportRequest{
		Text: "hi", OutputPath: out, Pitch: 1.5, FastPitch: true, Tempo: 1.5,
	})
	if err != nil {
		t.Fatal(err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true
		}
	}
	for _, name := range []string{"voxalign.synthesis.duration", "voxalign.transform.duration"} {
		if !found[name] {
			t.Errorf("metric %q not recorded (got %v)", name, found)
		}
	}
}
