package batch

import (
	"errors"
	"fmt"
	"math"
)

// ErrShapeMismatch is returned when two batches cannot be broadcast together
// or a data slice does not match the requested shape.
var ErrShapeMismatch = errors.New("batch shape mismatch")

// Shape is the (batch, packet, symbol, sample) extent of a Batch.
// The real/imaginary component axis is carried by complex128 itself.
type Shape [4]int

// Size returns the number of complex entries.
func (s Shape) Size() int {
	return s[0] * s[1] * s[2] * s[3]
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%dx%d", s[0], s[1], s[2], s[3])
}

// Batch is a dense row-major array of complex samples indexed
// (batch, packet, symbol, subcarrier-or-time-sample).
type Batch struct {
	Shape Shape
	Data  []complex128
}

// New allocates a zeroed batch.
func New(n, p, s, t int) *Batch {
	shape := Shape{n, p, s, t}
	return &Batch{Shape: shape, Data: make([]complex128, shape.Size())}
}

// FromData wraps data without copying.
func FromData(shape Shape, data []complex128) (*Batch, error) {
	if len(data) != shape.Size() {
		return nil, fmt.Errorf("%w: %d values for shape %s", ErrShapeMismatch, len(data), shape)
	}
	return &Batch{Shape: shape, Data: data}, nil
}

// Vector wraps a single sequence as a 1x1x1xT batch, useful for broadcasting.
func Vector(x []complex128) *Batch {
	return &Batch{Shape: Shape{1, 1, 1, len(x)}, Data: x}
}

func (b *Batch) offset(n, p, s, t int) int {
	return ((n*b.Shape[1]+p)*b.Shape[2]+s)*b.Shape[3] + t
}

// At returns the entry at (n, p, s, t).
func (b *Batch) At(n, p, s, t int) complex128 {
	return b.Data[b.offset(n, p, s, t)]
}

// Set stores v at (n, p, s, t).
func (b *Batch) Set(n, p, s, t int, v complex128) {
	b.Data[b.offset(n, p, s, t)] = v
}

// Row returns the sample axis at (n, p, s) as a view into the batch.
func (b *Batch) Row(n, p, s int) []complex128 {
	off := b.offset(n, p, s, 0)
	return b.Data[off : off+b.Shape[3]]
}

// Link returns every symbol of link (n, p) as one contiguous view.
func (b *Batch) Link(n, p int) []complex128 {
	off := b.offset(n, p, 0, 0)
	return b.Data[off : off+b.Shape[2]*b.Shape[3]]
}

// Clone returns a deep copy.
func (b *Batch) Clone() *Batch {
	data := make([]complex128, len(b.Data))
	copy(data, b.Data)
	return &Batch{Shape: b.Shape, Data: data}
}

// MeanPower returns the mean squared magnitude of x.
func MeanPower(x []complex128) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += real(v)*real(v) + imag(v)*imag(v)
	}
	return sum / float64(len(x))
}

// Normalize scales x in place so its mean squared magnitude equals pwr and
// returns the applied factor sqrt(pwr/2)/sqrt(P/2), where P/2 is the mean
// square over real and imaginary components. An all-zero x is left untouched
// and reports a factor of 0.
func Normalize(x []complex128, pwr float64) float64 {
	componentPower := MeanPower(x) / 2
	if componentPower == 0 {
		return 0
	}
	alpha := math.Sqrt(pwr/2) / math.Sqrt(componentPower)
	for i := range x {
		x[i] = complex(real(x[i])*alpha, imag(x[i])*alpha)
	}
	return alpha
}
