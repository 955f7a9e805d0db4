package modem

import "math"

// MSE returns the mean squared error between two equal-length sequences.
func MSE(got, want []complex128) float64 {
	if len(got) == 0 {
		return 0
	}
	var sum float64
	for i := range got {
		d := got[i] - want[i]
		sum += real(d)*real(d) + imag(d)*imag(d)
	}
	return sum / float64(len(got))
}

// EVM returns the RMS error vector magnitude of received symbols relative
// to the RMS amplitude of the reference symbols.
func EVM(received, reference []complex128) float64 {
	var errPow, refPow float64
	for i := range received {
		if i >= len(reference) {
			break
		}
		d := received[i] - reference[i]
		errPow += real(d)*real(d) + imag(d)*imag(d)
		refPow += real(reference[i])*real(reference[i]) + imag(reference[i])*imag(reference[i])
	}
	if refPow == 0 {
		return math.Inf(1)
	}
	return math.Sqrt(errPow / refPow)
}

// MaxSNREstimate caps the per-symbol estimate when a symbol is received
// without error.
const MaxSNREstimate = 60.0

// SNREstimate averages the per-symbol SNR, in dB, of received symbols
// against the reference symbols. Each symbol contributes
// 10·log10(|ref|²/|rx−ref|²), capped at MaxSNREstimate. Zero reference
// symbols are skipped; with none left the estimate is NaN.
func SNREstimate(received, reference []complex128) float64 {
	var sum float64
	var count int
	for i, ref := range reference {
		if i >= len(received) {
			break
		}
		sig := real(ref)*real(ref) + imag(ref)*imag(ref)
		if sig == 0 {
			continue
		}
		d := received[i] - ref
		errPow := real(d)*real(d) + imag(d)*imag(d)

		est := MaxSNREstimate
		if errPow > sig*math.Pow(10, -MaxSNREstimate/10) || math.IsNaN(errPow) {
			est = 10 * math.Log10(sig/errPow)
		}
		sum += est
		count++
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}
