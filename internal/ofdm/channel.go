package ofdm

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/jeongseonghan/ofdm-channel/internal/batch"
	"github.com/jeongseonghan/ofdm-channel/internal/config"
)

// Exec is the execution context the pipeline runs in.
type Exec struct {
	// Workers bounds the number of links convolved concurrently.
	// Zero or negative means GOMAXPROCS.
	Workers int
}

func (e Exec) workers() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Channel is a stochastic multipath channel with an exponential power delay
// profile.
type Channel struct {
	taps     int
	fftSize  int
	frameLen int
	profile  []float64
	exec     Exec
}

// NewChannel creates the channel for cfg's frame layout.
func NewChannel(cfg *config.Config, exec Exec) *Channel {
	profile := make([]float64, cfg.Taps)
	for l := range profile {
		profile[l] = math.Exp(-float64(l) / cfg.Decay)
	}
	floats.Scale(1/floats.Sum(profile), profile)

	return &Channel{
		taps:     cfg.Taps,
		fftSize:  cfg.Subcarriers,
		frameLen: cfg.FrameLen(),
		profile:  profile,
		exec:     exec,
	}
}

// Profile returns the normalized per-tap power w(l), Σw = 1.
func (c *Channel) Profile() []float64 {
	return append([]float64(nil), c.profile...)
}

// Sample draws n×p tap vectors (N×P×1×L) with independent real and
// imaginary parts of variance w(l)/2, and their M-point frequency response.
func (c *Channel) Sample(n, p int, rng *rand.Rand) (taps, response *batch.Batch) {
	taps = batch.New(n, p, 1, c.taps)
	for i := 0; i < n*p; i++ {
		for l, w := range c.profile {
			std := math.Sqrt(w / 2)
			re := std * rng.NormFloat64()
			im := std * rng.NormFloat64()
			taps.Data[i*c.taps+l] = complex(re, im)
		}
	}
	return taps, c.Response(taps)
}

// Response zero-pads every tap vector to M samples and transforms it,
// giving the true per-subcarrier channel (N×P×1×M).
func (c *Channel) Response(taps *batch.Batch) *batch.Batch {
	s := taps.Shape
	out := batch.New(s[0], s[1], 1, c.fftSize)
	padded := make([]complex128, c.fftSize)
	for n := 0; n < s[0]; n++ {
		for p := 0; p < s[1]; p++ {
			clear(padded)
			copy(padded, taps.Row(n, p, 0))
			fftInto(out.Row(n, p, 0), padded)
		}
	}
	return out
}

// Forward convolves each link of x (N×P×1×frameLen) with its taps, giving
// the full linear convolution (N×P×1×(L+frameLen-1)). Taps are drawn from
// rng when nil. It returns the output, the true response and the taps used.
func (c *Channel) Forward(x, taps *batch.Batch, rng *rand.Rand) (y, response, used *batch.Batch, err error) {
	s := x.Shape
	if s[2] != 1 || s[3] != c.frameLen {
		return nil, nil, nil, fmt.Errorf("%w: channel input %s, want NxPx1x%d", ErrDimensionMismatch, s, c.frameLen)
	}
	if taps == nil {
		taps, response = c.Sample(s[0], s[1], rng)
	} else {
		if want := (batch.Shape{s[0], s[1], 1, c.taps}); taps.Shape != want {
			return nil, nil, nil, fmt.Errorf("%w: taps %s, want %s", ErrDimensionMismatch, taps.Shape, want)
		}
		response = c.Response(taps)
	}

	table := indexTable(c.frameLen, c.taps)
	y = batch.New(s[0], s[1], 1, table.Rows)
	links := s[0] * s[1]
	workers := min(c.exec.workers(), links)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w // per-iteration copy; go.mod targets go 1.21 loop semantics
		g.Go(func() error {
			conv := newConvolver(table, c.taps)
			for l := w; l < links; l += workers {
				conv.apply(
					y.Data[l*table.Rows:(l+1)*table.Rows],
					x.Data[l*table.Cols:(l+1)*table.Cols],
					taps.Data[l*c.taps:(l+1)*c.taps],
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return y, response, taps, nil
}

// convolver holds one worker's scratch space: the padded taps, the gathered
// real and imaginary banded matrices and the split input/output vectors.
type convolver struct {
	table      *IndexTable
	padR, padI []float64
	hr, hi     *mat.Dense
	xr, xi     *mat.VecDense
	a, b       *mat.VecDense
	re, im     []float64
}

func newConvolver(t *IndexTable, taps int) *convolver {
	padLen := 2*t.Cols + taps - 2
	return &convolver{
		table: t,
		padR:  make([]float64, padLen),
		padI:  make([]float64, padLen),
		hr:    mat.NewDense(t.Rows, t.Cols, nil),
		hi:    mat.NewDense(t.Rows, t.Cols, nil),
		xr:    mat.NewVecDense(t.Cols, nil),
		xi:    mat.NewVecDense(t.Cols, nil),
		a:     mat.NewVecDense(t.Rows, nil),
		b:     mat.NewVecDense(t.Rows, nil),
		re:    make([]float64, t.Rows),
		im:    make([]float64, t.Rows),
	}
}

// apply computes dst = H·x where H[i][j] = h[i-j], using four real
// matrix–vector products:
//
//	Re(y) = Hr·xr − Hi·xi
//	Im(y) = Hr·xi + Hi·xr
func (c *convolver) apply(dst, x, h []complex128) {
	off := c.table.Cols - 1
	for l, v := range h {
		c.padR[off+l] = real(v)
		c.padI[off+l] = imag(v)
	}
	c.table.Gather(c.hr.RawMatrix().Data, c.padR)
	c.table.Gather(c.hi.RawMatrix().Data, c.padI)

	xr, xi := c.xr.RawVector().Data, c.xi.RawVector().Data
	for j, v := range x {
		xr[j] = real(v)
		xi[j] = imag(v)
	}

	c.a.MulVec(c.hr, c.xr)
	c.b.MulVec(c.hi, c.xi)
	floats.SubTo(c.re, c.a.RawVector().Data, c.b.RawVector().Data)

	c.a.MulVec(c.hr, c.xi)
	c.b.MulVec(c.hi, c.xr)
	floats.AddTo(c.im, c.a.RawVector().Data, c.b.RawVector().Data)

	for i := range dst {
		dst[i] = complex(c.re[i], c.im[i])
	}
}
