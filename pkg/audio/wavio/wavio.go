// Package wavio reads and writes the 16-bit PCM mono WAV files exchanged with
// external audio tools (sox, whisperx, piper).
//
// Sample conversion is fixed by the tool contract: float→int16 rounds
// sample×32767 and clamps to the int16 range; int16→float divides by 32767.
package wavio

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const bitDepth = 16

// FloatToInt16 converts a float sample in [-1, 1] to a 16-bit PCM sample.
// Out-of-range input is clamped rather than wrapped.
func FloatToInt16(s float64) int16 {
	v := math.Round(s * 32767.0)
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// Int16ToFloat converts a 16-bit PCM sample back to a float in roughly [-1, 1].
func Int16ToFloat(s int16) float64 {
	return float64(s) / 32767.0
}

// WriteFile writes samples as a 16-bit PCM mono WAV file at path.
func WriteFile(path string, samples []float64, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("wavio: invalid sample rate %d", sampleRate)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wavio: create %q: %w", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: bitDepth,
	}
	for i, s := range samples {
		buf.Data[i] = int(FloatToInt16(s))
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wavio: write %q: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wavio: finalize %q: %w", path, err)
	}
	return nil
}

// ReadFile reads a 16-bit PCM mono WAV file and returns its samples as floats
// plus the container's sample rate.
func ReadFile(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("wavio: open %q: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("wavio: decode %q: %w", path, err)
	}
	if dec.NumChans != 1 {
		return nil, 0, fmt.Errorf("wavio: %q has %d channels, want mono", path, dec.NumChans)
	}
	out := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = Int16ToFloat(int16(v))
	}
	return out, int(dec.SampleRate), nil
}
