package batch

import (
	"fmt"
	"math"
)

// Elementwise complex algebra with numpy-style broadcasting: every axis of
// the two operands must be equal or 1.

// Mul returns a*b: (ac−bd) + (ad+bc)i.
func Mul(a, b *Batch) (*Batch, error) {
	return binary(a, b, mul)
}

// Div returns a/b: [(ac+bd) + (bc−ad)i] / (c²+d²).
// A zero denominator yields non-finite entries; see ofdm.CheckFinite.
func Div(a, b *Batch) (*Batch, error) {
	return binary(a, b, div)
}

// Conj returns the complex conjugate of a.
func Conj(a *Batch) *Batch {
	out := New(a.Shape[0], a.Shape[1], a.Shape[2], a.Shape[3])
	for i, v := range a.Data {
		out.Data[i] = complex(real(v), -imag(v))
	}
	return out
}

// Abs returns |a| in the real part of each entry.
func Abs(a *Batch) *Batch {
	out := New(a.Shape[0], a.Shape[1], a.Shape[2], a.Shape[3])
	for i, v := range a.Data {
		out.Data[i] = complex(math.Sqrt(real(v)*real(v)+imag(v)*imag(v)), 0)
	}
	return out
}

func mul(x, y complex128) complex128 {
	a, b := real(x), imag(x)
	c, d := real(y), imag(y)
	return complex(a*c-b*d, a*d+b*c)
}

func div(x, y complex128) complex128 {
	a, b := real(x), imag(x)
	c, d := real(y), imag(y)
	den := c*c + d*d
	return complex((a*c+b*d)/den, (b*c-a*d)/den)
}

// Broadcast returns the shape two operands combine into.
func Broadcast(a, b Shape) (Shape, error) {
	var out Shape
	for i := range a {
		switch {
		case a[i] == b[i]:
			out[i] = a[i]
		case a[i] == 1:
			out[i] = b[i]
		case b[i] == 1:
			out[i] = a[i]
		default:
			return Shape{}, fmt.Errorf("%w: cannot broadcast %s with %s", ErrShapeMismatch, a, b)
		}
	}
	return out, nil
}

// strides for a row-major shape, with broadcast axes pinned to 0.
func strides(s Shape) [4]int {
	var st [4]int
	acc := 1
	for i := 3; i >= 0; i-- {
		if s[i] != 1 {
			st[i] = acc
		}
		acc *= s[i]
	}
	return st
}

func binary(a, b *Batch, op func(x, y complex128) complex128) (*Batch, error) {
	shape, err := Broadcast(a.Shape, b.Shape)
	if err != nil {
		return nil, err
	}
	out := New(shape[0], shape[1], shape[2], shape[3])
	if a.Shape == b.Shape {
		for i := range out.Data {
			out.Data[i] = op(a.Data[i], b.Data[i])
		}
		return out, nil
	}

	sa, sb := strides(a.Shape), strides(b.Shape)
	i := 0
	for n := 0; n < shape[0]; n++ {
		for p := 0; p < shape[1]; p++ {
			for s := 0; s < shape[2]; s++ {
				ia := n*sa[0] + p*sa[1] + s*sa[2]
				ib := n*sb[0] + p*sb[1] + s*sb[2]
				for t := 0; t < shape[3]; t++ {
					out.Data[i] = op(a.Data[ia+t*sa[3]], b.Data[ib+t*sb[3]])
					i++
				}
			}
		}
	}
	return out, nil
}
