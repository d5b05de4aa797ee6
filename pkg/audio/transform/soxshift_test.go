package transform

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/voxalign/voxalign/pkg/audio/wavio"
	"github.com/voxalign/voxalign/pkg/extproc"
)

// fakeRunner scripts the behaviour of the external tool.
type fakeRunner struct {
	lookPathErr error
	runErr      error
	stderr      string

	// onRun is invoked with the full argument list; it can stage output files.
	onRun func(args []string) error

	calls [][]string
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if f.lookPathErr != nil {
		return "", f.lookPathErr
	}
	return "/usr/bin/" + name, nil
}

func (f *fakeRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) (extproc.Result, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.runErr != nil {
		return extproc.Result{Stderr: []byte(f.stderr)}, f.runErr
	}
	if f.onRun != nil {
		if err := f.onRun(args); err != nil {
			return extproc.Result{}, err
		}
	}
	return extproc.Result{}, nil
}

func TestSoxShifterShift(t *testing.T) {
	t.Parallel()

	in := ramp(2048)
	want := ramp(1024)

	runner := &fakeRunner{
		onRun: func(args []string) error {
			// args: <in> <out> pitch <cents>
			if len(args) != 4 || args[2] != "pitch" {
				t.Errorf("unexpected sox args: %v", args)
			}
			if _, err := strconv.ParseFloat(args[3], 64); err != nil {
				t.Errorf("cents argument %q is not numeric", args[3])
			}
			return wavio.WriteFile(args[1], want, 22050)
		},
	}

	s := NewSoxShifter(runner)
	out, err := s.Shift(context.Background(), in, 22050, 1.5)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	if len(runner.calls) != 1 {
		t.Fatalf("sox invoked %d times, want 1", len(runner.calls))
	}
}

func TestSoxShifterIdentitySkipsTool(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	s := NewSoxShifter(runner)
	in := ramp(100)
	out, err := s.Shift(context.Background(), in, 22050, 1.005)
	if err != nil {
		t.Fatal(err)
	}
	if len(runner.calls) != 0 {
		t.Errorf("sox invoked %d times for identity factor, want 0", len(runner.calls))
	}
	for i := range out {
		if out[i] != in[i] {
			t.Fatalf("sample %d differs on identity shift", i)
		}
	}
}

func TestSoxShifterDegradesOnToolFailure(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{runErr: errors.New("exit status 1"), stderr: "sox FAIL"}
	s := NewSoxShifter(runner)
	in := ramp(512)
	out, err := s.Shift(context.Background(), in, 22050, 0.85)
	if err != nil {
		t.Fatalf("tool failure must degrade, not error: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len = %d, want unshifted %d", len(out), len(in))
	}
	for i := range out {
		if out[i] != in[i] {
			t.Fatalf("sample %d differs from unshifted input", i)
		}
	}
}

func TestSoxShifterDegradesOnUnreadableOutput(t *testing.T) {
	t.Parallel()

	// Tool "succeeds" but never writes its output file.
	runner := &fakeRunner{}
	s := NewSoxShifter(runner)
	in := ramp(512)
	out, err := s.Shift(context.Background(), in, 22050, 1.5)
	if err != nil {
		t.Fatalf("unreadable output must degrade, not error: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len = %d, want unshifted %d", len(out), len(in))
	}
}

func TestSoxShifterInvalidFactor(t *testing.T) {
	t.Parallel()

	s := NewSoxShifter(&fakeRunner{})
	if _, err := s.Shift(context.Background(), ramp(10), 22050, -1); !errors.Is(err, ErrInvalidFactor) {
		t.Errorf("got %v, want ErrInvalidFactor", err)
	}
}
