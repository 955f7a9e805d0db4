package ofdm

import (
	"fmt"
	"math"

	"github.com/jeongseonghan/ofdm-channel/internal/batch"
	"github.com/jeongseonghan/ofdm-channel/internal/config"
)

// EstimateLS returns the least-squares channel estimate Y/X per subcarrier.
// A zero pilot subcarrier yields non-finite entries.
func EstimateLS(pilotTx, pilotRx *batch.Batch) (*batch.Batch, error) {
	return batch.Div(pilotRx, pilotTx)
}

// EstimateLMMSE returns Y·conj(X) / (1 + noise) per subcarrier, with one
// noise power per link (index n·P+p).
func EstimateLMMSE(pilotTx, pilotRx *batch.Batch, noise []float64) (*batch.Batch, error) {
	h, err := batch.Mul(pilotRx, batch.Conj(pilotTx))
	if err != nil {
		return nil, err
	}
	if err := checkLinks(h.Shape, noise); err != nil {
		return nil, err
	}
	s := h.Shape
	for n := 0; n < s[0]; n++ {
		for p := 0; p < s[1]; p++ {
			inv := 1 / (1 + noise[n*s[1]+p])
			link := h.Link(n, p)
			for i, v := range link {
				link[i] = complex(real(v)*inv, imag(v)*inv)
			}
		}
	}
	return h, nil
}

// EqualizeZF returns Y/H, broadcasting one estimate across all data symbols.
func EqualizeZF(h, y *batch.Batch) (*batch.Batch, error) {
	return batch.Div(y, h)
}

// EqualizeMMSE returns Y·conj(H) / (|H|² + noise), with one noise power per
// link.
func EqualizeMMSE(h, y *batch.Batch, noise []float64) (*batch.Batch, error) {
	num, err := batch.Mul(y, batch.Conj(h))
	if err != nil {
		return nil, err
	}
	if err := checkLinks(num.Shape, noise); err != nil {
		return nil, err
	}

	mag := batch.Abs(h)
	s := num.Shape
	for n := 0; n < s[0]; n++ {
		for p := 0; p < s[1]; p++ {
			np := noise[n*s[1]+p]
			for q := 0; q < s[2]; q++ {
				row := num.Row(n, p, q)
				for t := range row {
					a := real(mag.At(min(n, mag.Shape[0]-1), min(p, mag.Shape[1]-1), min(q, mag.Shape[2]-1), t))
					den := a*a + np
					row[t] = complex(real(row[t])/den, imag(row[t])/den)
				}
			}
		}
	}
	return num, nil
}

// Estimate dispatches on mode. TRUE returns the oracle response unchanged.
func Estimate(mode config.Estimation, pilotTx *batch.Batch, res *Result, noise []float64) (*batch.Batch, error) {
	switch mode {
	case config.EstimationLS:
		return EstimateLS(pilotTx, res.Pilot)
	case config.EstimationLMMSE:
		return EstimateLMMSE(pilotTx, res.Pilot, noise)
	case config.EstimationTrue:
		return res.Response, nil
	}
	return nil, fmt.Errorf("%w: channel estimation %q", config.ErrInvalidMode, mode)
}

// Equalize dispatches on mode.
func Equalize(mode config.Equalization, h, y *batch.Batch, noise []float64) (*batch.Batch, error) {
	switch mode {
	case config.EqualizationZF:
		return EqualizeZF(h, y)
	case config.EqualizationMMSE:
		return EqualizeMMSE(h, y, noise)
	}
	return nil, fmt.Errorf("%w: equalization %q", config.ErrInvalidMode, mode)
}

// CheckFinite reports ErrNonFinite with the number of NaN or Inf entries.
func CheckFinite(b *batch.Batch) error {
	bad := 0
	for _, v := range b.Data {
		if math.IsNaN(real(v)) || math.IsNaN(imag(v)) || math.IsInf(real(v), 0) || math.IsInf(imag(v), 0) {
			bad++
		}
	}
	if bad > 0 {
		return fmt.Errorf("%w: %d of %d entries", ErrNonFinite, bad, len(b.Data))
	}
	return nil
}

func checkLinks(s batch.Shape, noise []float64) error {
	if len(noise) != s[0]*s[1] {
		return fmt.Errorf("%w: %d noise powers for %dx%d links", ErrDimensionMismatch, len(noise), s[0], s[1])
	}
	return nil
}
