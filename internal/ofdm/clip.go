package ofdm

import "math"

// Clip limits the peak-to-average power ratio of one frame in place,
// modelling a saturating power amplifier. With average power P = mean|x|²,
// every sample whose amplitude exceeds sqrt(P·a) is scaled back onto that
// circle, keeping its phase. Samples under the limit are untouched.
//
// A zero-amplitude sample is never above the limit and is left as is.
func Clip(x []complex128, a float64) {
	if len(x) == 0 {
		return
	}
	var pwr float64
	for _, v := range x {
		pwr += real(v)*real(v) + imag(v)*imag(v)
	}
	pwr /= float64(len(x))
	maxAmp := math.Sqrt(pwr * a)

	for i, v := range x {
		amp := math.Sqrt(real(v)*real(v) + imag(v)*imag(v))
		if amp <= maxAmp {
			continue
		}
		scale := maxAmp / amp
		x[i] = complex(real(v)*scale, imag(v)*scale)
	}
}

// PAPR returns max|x|² / mean|x|².
func PAPR(x []complex128) float64 {
	var peak, sum float64
	for _, v := range x {
		p := real(v)*real(v) + imag(v)*imag(v)
		sum += p
		peak = math.Max(peak, p)
	}
	if sum == 0 {
		return 0
	}
	return peak / (sum / float64(len(x)))
}
