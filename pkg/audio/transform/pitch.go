package transform

import "math"

// PitchShift changes pitch by resampling: the source is read at stride factor
// with linear interpolation between the floor and ceil sample indices,
// producing len(samples)/factor output samples. Both pitch and duration
// change, so the result sounds faster (factor > 1) or slower (factor < 1) —
// use [SoxShifter.Shift] when duration must be preserved.
//
// Factors within 0.01 of 1.0 return an exact copy of the input.
func PitchShift(samples []float64, factor float64) ([]float64, error) {
	if err := ValidateFactor(factor); err != nil {
		return nil, err
	}
	if isIdentity(factor) || len(samples) == 0 {
		return clone(samples), nil
	}

	n := len(samples)
	outLen := int(float64(n) / factor)
	out := make([]float64, 0, outLen)
	for i := 0; i < outLen; i++ {
		pos := float64(i) * factor
		lo := int(math.Floor(pos))
		if lo >= n {
			break
		}
		hi := int(math.Ceil(pos))
		if hi > n-1 {
			hi = n - 1
		}
		if lo == hi {
			out = append(out, samples[lo])
			continue
		}
		frac := pos - math.Floor(pos)
		out = append(out, samples[lo]*(1-frac)+samples[hi]*frac)
	}
	return out, nil
}
