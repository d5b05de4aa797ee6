// Package transform provides pitch and tempo adjustment for mono float sample
// buffers produced by the synthesizer.
//
// Three operations are available:
//
//   - [PitchShift]: fast approximate pitch change by stride resampling.
//     Changes both pitch and duration, so it is only suitable for quick
//     previews.
//   - [SoxShifter.Shift]: duration-preserving pitch shift delegated to the
//     external sox tool, degrading to the original audio when the tool fails.
//   - [TimeStretch]: duration change without pitch change via a streaming
//     chunked resampler.
//
// All operations are pure with respect to their input: the source buffer is
// never modified and the returned buffer never aliases it. They may run
// concurrently on independent buffers.
package transform

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// identityThreshold is the contract boundary for the no-op fast path: any
// factor within this distance of 1.0 returns the input unchanged, as an exact
// copy with no interpolation.
const identityThreshold = 0.01

// ErrInvalidFactor is returned when a pitch or tempo factor is non-positive
// or non-finite. Factors are rejected before any processing starts.
var ErrInvalidFactor = errors.New("transform: factor must be a finite positive number")

// pitchPresets is the closed set of named pitch factors.
var pitchPresets = map[string]float64{
	"slomo":  0.4,
	"deep":   0.85,
	"child":  1.2,
	"helium": 1.5,
}

// ValidateFactor reports whether f is usable as a pitch or tempo factor.
func ValidateFactor(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidFactor, f)
	}
	return nil
}

// ParsePitch interprets s as either an explicit multiplicative pitch factor
// (e.g. "1.2") or one of the named presets: slomo, deep, child, helium.
// Preset names are case-insensitive.
func ParsePitch(s string) (float64, error) {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if err := ValidateFactor(f); err != nil {
			return 0, err
		}
		return f, nil
	}
	if f, ok := pitchPresets[strings.ToLower(s)]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("transform: invalid pitch value or preset %q (presets: slomo, deep, child, helium)", s)
}

// ParseTempo interprets s as a multiplicative tempo factor.
func ParseTempo(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("transform: invalid tempo value %q", s)
	}
	if err := ValidateFactor(f); err != nil {
		return 0, err
	}
	return f, nil
}

// isIdentity reports whether factor falls inside the no-op fast path.
func isIdentity(factor float64) bool {
	return math.Abs(factor-1.0) < identityThreshold
}

// clone returns an independent copy of samples.
func clone(samples []float64) []float64 {
	out := make([]float64, len(samples))
	copy(out, samples)
	return out
}
