package ofdm

import (
	"fmt"
	"io"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"
)

// ZadoffChu returns the CAZAC sequence
//
//	z[n] = exp(-iπ·order·n·(n+cf+2·index)/length),  cf = length mod 2
//
// which has unit amplitude and, for order coprime with length, an ideal
// periodic autocorrelation.
func ZadoffChu(order, length, index int) []complex128 {
	cf := int64(length % 2)
	period := 2 * int64(length)
	seq := make([]complex128, length)
	for n := int64(0); n < int64(length); n++ {
		// the phase only matters modulo 2π, i.e. q modulo 2·length
		q := (int64(order) * n % period) * ((n + cf + 2*int64(index)) % period) % period
		if q < 0 {
			q += period
		}
		phi := -math.Pi * float64(q) / float64(length)
		seq[n] = complex(math.Cos(phi), math.Sin(phi))
	}
	return seq
}

// Autocorrelation returns the normalized periodic autocorrelation
// r[k] = Σ x[n]·conj(x[(n+k) mod N]) / N.
func Autocorrelation(x []complex128) []complex128 {
	n := len(x)
	r := make([]complex128, n)
	for k := 0; k < n; k++ {
		var acc complex128
		for i := 0; i < n; i++ {
			v := x[(i+k)%n]
			acc += x[i] * complex(real(v), -imag(v))
		}
		r[k] = acc / complex(float64(n), 0)
	}
	return r
}

// SavePilot serializes a pilot as an M×2 (real, imaginary) gonum matrix.
func SavePilot(w io.Writer, pilot []complex128) error {
	data := make([]float64, 2*len(pilot))
	for i, v := range pilot {
		data[2*i] = real(v)
		data[2*i+1] = imag(v)
	}
	if _, err := mat.NewDense(len(pilot), 2, data).MarshalBinaryTo(w); err != nil {
		return fmt.Errorf("write pilot: %w", err)
	}
	return nil
}

// LoadPilot reads an M×2 matrix written by SavePilot.
func LoadPilot(r io.Reader, m int) ([]complex128, error) {
	var d mat.Dense
	if _, err := d.UnmarshalBinaryFrom(r); err != nil {
		return nil, fmt.Errorf("read pilot: %w", err)
	}
	rows, cols := d.Dims()
	if rows != m || cols != 2 {
		return nil, fmt.Errorf("%w: pilot is %dx%d, want %dx2", ErrDimensionMismatch, rows, cols, m)
	}

	pilot := make([]complex128, m)
	for i := range pilot {
		pilot[i] = complex(d.At(i, 0), d.At(i, 1))
	}
	return pilot, nil
}

// LoadPilotFile opens filename and calls LoadPilot.
func LoadPilotFile(filename string, m int) ([]complex128, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadPilot(f, m)
}
