package ofdm

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"github.com/jeongseonghan/ofdm-channel/internal/batch"
	"github.com/jeongseonghan/ofdm-channel/internal/config"
)

// Rotator models a carrier frequency offset as a per-link angular velocity
// (degrees per sample) applied to the received frame.
type Rotator struct {
	cfo   config.CFO
	index []float64 // sample index over the whole (S+1)-symbol frame
}

// NewRotator precomputes the sample index for cfg's frame layout.
//
// In trick mode the index restarts at -K on every symbol, as if the receiver
// re-synchronized phase at each symbol boundary; otherwise it runs
// monotonically across the frame.
func NewRotator(cfg *config.Config) *Rotator {
	symLen := cfg.SymbolLen()
	index := make([]float64, cfg.FrameLen())
	for s := 0; s <= cfg.Symbols; s++ {
		for t := 0; t < symLen; t++ {
			i := s*symLen + t
			if cfg.CFO.Trick {
				index[i] = float64(t - cfg.CPLen)
			} else {
				index[i] = float64(i)
			}
		}
	}
	return &Rotator{cfo: cfg.CFO, index: index}
}

// Angles draws one offset per link: uniform in [-MaxAngle, MaxAngle] when
// random, the fixed Angle otherwise.
func (r *Rotator) Angles(n int, rng *rand.Rand) []float64 {
	angs := make([]float64, n)
	for i := range angs {
		if r.cfo.Random {
			angs[i] = (rng.Float64()*2 - 1) * r.cfo.MaxAngle
		} else {
			angs[i] = r.cfo.Angle
		}
	}
	return angs
}

// Rotate multiplies frames (N×P×(S+1)×(M+K+extra)) in place by
// exp(i·ang[n]·index·2π/360). Every packet of a link sees the same rotation.
func (r *Rotator) Rotate(frames *batch.Batch, angs []float64) error {
	s := frames.Shape
	if len(angs) != s[0] || s[2]*s[3] != len(r.index) {
		return fmt.Errorf("%w: frames %s with %d angles for a %d-sample frame",
			ErrDimensionMismatch, s, len(angs), len(r.index))
	}

	rot := make([]complex128, len(r.index))
	for n, ang := range angs {
		for i, idx := range r.index {
			theta := ang * idx / 360 * 2 * math.Pi
			rot[i] = complex(math.Cos(theta), math.Sin(theta))
		}
		for p := 0; p < s[1]; p++ {
			link := frames.Link(n, p)
			for i, v := range link {
				c, d := real(rot[i]), imag(rot[i])
				link[i] = complex(real(v)*c-imag(v)*d, real(v)*d+imag(v)*c)
			}
		}
	}
	return nil
}
