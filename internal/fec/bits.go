package fec

import "math"

// PackBits packs 0/1 bits MSB-first into bytes. len(bits) must be a
// multiple of 8.
func PackBits(bits []byte) []byte {
	out := make([]byte, len(bits)/8)
	for i := range out {
		var b byte
		for _, bit := range bits[i*8 : i*8+8] {
			b = b<<1 | bit&1
		}
		out[i] = b
	}
	return out
}

// UnpackBits expands bytes into 0/1 bits, MSB first.
func UnpackBits(data []byte) []byte {
	bits := make([]byte, 0, len(data)*8)
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			bits = append(bits, (b>>uint(i))&1)
		}
	}
	return bits
}

// HardDecision slices LLRs to bits; a negative LLR decides 1.
func HardDecision(llr []float64) []byte {
	bits := make([]byte, len(llr))
	for i, l := range llr {
		if l < 0 {
			bits[i] = 1
		}
	}
	return bits
}

// ClampLLR limits every LLR to [−limit, limit] in place. NaN carries no
// information and becomes 0.
func ClampLLR(llr []float64, limit float64) []float64 {
	for i, l := range llr {
		switch {
		case math.IsNaN(l):
			llr[i] = 0
		case l > limit:
			llr[i] = limit
		case l < -limit:
			llr[i] = -limit
		}
	}
	return llr
}
