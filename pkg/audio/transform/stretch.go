package transform

import (
	"fmt"
	"math"
)

// stretchChunk is the fixed input frame size fed to the streaming resampler.
const stretchChunk = 1024

// TimeStretch changes duration without changing pitch by resampling the
// buffer from sampleRate to sampleRate/tempo in fixed 1024-sample chunks.
// The resampler's read position carries across chunk boundaries — processing
// chunks independently would produce audible seams. The final chunk is
// zero-padded to the full frame size before being fed in.
//
// Output length is approximately len(samples)/tempo; it is not guaranteed
// exact. Factors within 0.01 of 1.0 return an exact copy of the input.
func TimeStretch(samples []float64, sampleRate int, tempo float64) ([]float64, error) {
	if err := ValidateFactor(tempo); err != nil {
		return nil, err
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("transform: invalid sample rate %d", sampleRate)
	}
	if isIdentity(tempo) || len(samples) == 0 {
		return clone(samples), nil
	}
	outRate := int(float64(sampleRate) / tempo)
	if outRate <= 0 {
		return nil, fmt.Errorf("%w: tempo %v collapses the output rate", ErrInvalidFactor, tempo)
	}

	r := newStreamResampler(sampleRate, outRate)
	out := make([]float64, 0, int(float64(len(samples))/tempo)+stretchChunk)
	for pos := 0; pos < len(samples); pos += stretchChunk {
		end := pos + stretchChunk
		if end > len(samples) {
			end = len(samples)
		}
		chunk := samples[pos:end]
		if len(chunk) < stretchChunk {
			padded := make([]float64, stretchChunk)
			copy(padded, chunk)
			chunk = padded
		}
		out = r.process(chunk, out)
	}
	return out, nil
}

// streamResampler is a stateful linear-interpolation resampler. It tracks a
// fractional read position in global source coordinates plus the last sample
// of the previous chunk, so interpolation is continuous across chunk seams.
type streamResampler struct {
	step     float64 // source samples advanced per output sample
	next     float64 // global source position of the next output sample
	consumed int     // total source samples consumed so far
	prev     float64 // final sample of the previous chunk
}

func newStreamResampler(inRate, outRate int) *streamResampler {
	return &streamResampler{step: float64(inRate) / float64(outRate)}
}

// process appends resampled output for chunk to dst and returns the extended
// slice. chunk must be the next contiguous piece of the source stream.
func (r *streamResampler) process(chunk []float64, dst []float64) []float64 {
	n := len(chunk)
	limit := float64(r.consumed + n - 1)
	for r.next <= limit {
		base := math.Floor(r.next)
		frac := r.next - base
		lo := int(base) - r.consumed

		var s0 float64
		if lo < 0 {
			s0 = r.prev // interpolate across the seam with the previous chunk
		} else {
			s0 = chunk[lo]
		}
		hi := lo + 1
		var s1 float64
		if hi > n-1 {
			s1 = chunk[n-1]
		} else {
			s1 = chunk[hi]
		}

		dst = append(dst, s0*(1-frac)+s1*frac)
		r.next += r.step
	}
	r.consumed += n
	r.prev = chunk[n-1]
	return dst
}
