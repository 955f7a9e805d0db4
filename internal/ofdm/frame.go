package ofdm

import (
	"fmt"

	"github.com/jeongseonghan/ofdm-channel/internal/batch"
)

// AddCP prepends the last k samples of x: [x[n-k:], x].
func AddCP(x []complex128, k int) []complex128 {
	n := len(x)
	out := make([]complex128, k+n)
	copy(out, x[n-k:])
	copy(out[k:], x)
	return out
}

// RemoveCP drops the first k samples of x.
func RemoveCP(x []complex128, k int) []complex128 {
	out := make([]complex128, len(x)-k)
	copy(out, x[k:])
	return out
}

// frameSymbol writes [CP(k) | x | zero guard] into dst, which must have
// length k+len(x)+guard.
func frameSymbol(dst, x []complex128, k int) {
	n := len(x)
	copy(dst, x[n-k:])
	copy(dst[k:], x)
	clear(dst[k+n:])
}

// AddCPBatch applies AddCP along the sample axis of every symbol and pads
// each symbol with guard zero samples.
func AddCPBatch(x *batch.Batch, k, guard int) (*batch.Batch, error) {
	s := x.Shape
	if k < 0 || k > s[3] {
		return nil, fmt.Errorf("%w: cyclic prefix %d for %d samples", ErrDimensionMismatch, k, s[3])
	}
	out := batch.New(s[0], s[1], s[2], s[3]+k+guard)
	for n := 0; n < s[0]; n++ {
		for p := 0; p < s[1]; p++ {
			for sym := 0; sym < s[2]; sym++ {
				frameSymbol(out.Row(n, p, sym), x.Row(n, p, sym), k)
			}
		}
	}
	return out, nil
}

// RemoveCPBatch keeps samples [k, k+m) of every symbol, discarding the
// cyclic prefix and any trailing guard.
func RemoveCPBatch(x *batch.Batch, k, m int) (*batch.Batch, error) {
	s := x.Shape
	if k < 0 || k+m > s[3] {
		return nil, fmt.Errorf("%w: cannot take [%d, %d) of %d samples", ErrDimensionMismatch, k, k+m, s[3])
	}
	out := batch.New(s[0], s[1], s[2], m)
	for n := 0; n < s[0]; n++ {
		for p := 0; p < s[1]; p++ {
			for sym := 0; sym < s[2]; sym++ {
				copy(out.Row(n, p, sym), x.Row(n, p, sym)[k:k+m])
			}
		}
	}
	return out, nil
}
