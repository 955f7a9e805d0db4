package ofdm

import (
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Transform plans are not safe for concurrent use, so each length keeps a
// pool of them.
var plans sync.Map // int -> *sync.Pool

func planPool(n int) *sync.Pool {
	if p, ok := plans.Load(n); ok {
		return p.(*sync.Pool)
	}
	p, _ := plans.LoadOrStore(n, &sync.Pool{
		New: func() any { return fourier.NewCmplxFFT(n) },
	})
	return p.(*sync.Pool)
}

// FFT computes the unnormalized DFT X[k] = Σ x[n]·e^{-2πikn/N} for any length.
func FFT(x []complex128) []complex128 {
	out := make([]complex128, len(x))
	fftInto(out, x)
	return out
}

// IFFT computes the inverse DFT scaled by 1/N, so IFFT(FFT(x)) == x.
func IFFT(x []complex128) []complex128 {
	out := make([]complex128, len(x))
	ifftInto(out, x)
	return out
}

// fftInto writes FFT(src) to dst. dst must not alias src.
func fftInto(dst, src []complex128) {
	n := len(src)
	if n <= 1 {
		copy(dst, src)
		return
	}
	pool := planPool(n)
	plan := pool.Get().(*fourier.CmplxFFT)
	plan.Coefficients(dst, src)
	pool.Put(plan)
}

// ifftInto writes IFFT(src) to dst. dst must not alias src.
func ifftInto(dst, src []complex128) {
	n := len(src)
	if n <= 1 {
		copy(dst, src)
		return
	}
	pool := planPool(n)
	plan := pool.Get().(*fourier.CmplxFFT)
	plan.Sequence(dst, src)
	pool.Put(plan)

	scale := 1.0 / float64(n)
	for i := range dst {
		dst[i] = complex(real(dst[i])*scale, imag(dst[i])*scale)
	}
}
