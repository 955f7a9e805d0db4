package modem

import (
	"fmt"
	"math"
)

// Modulation represents a QAM modulation scheme.
type Modulation int

const (
	ModQPSK  Modulation = 2 // 2 bits per symbol
	Mod16QAM Modulation = 4 // 4 bits per symbol
	Mod64QAM Modulation = 6 // 6 bits per symbol
)

// ParseModulation maps a bits-per-symbol count onto a modulation.
func ParseModulation(bits int) (Modulation, error) {
	switch m := Modulation(bits); m {
	case ModQPSK, Mod16QAM, Mod64QAM:
		return m, nil
	}
	return 0, fmt.Errorf("unsupported modulation: %d bits per symbol", bits)
}

// BitsPerSymbol returns the number of bits per constellation symbol.
func (m Modulation) BitsPerSymbol() int {
	return int(m)
}

// String returns the modulation name.
func (m Modulation) String() string {
	switch m {
	case ModQPSK:
		return "QPSK"
	case Mod16QAM:
		return "16-QAM"
	case Mod64QAM:
		return "64-QAM"
	default:
		return "Unknown"
	}
}

// Constellation holds QAM constellation points.
type Constellation struct {
	Mod    Modulation
	points []complex128
	scale  float64 // normalization factor for unit average power

	// zeros[i] and ones[i] list the point indices whose bit i is 0 or 1.
	zeros [][]int
	ones  [][]int
}

// NewConstellation creates a new constellation for the given modulation.
func NewConstellation(mod Modulation) *Constellation {
	c := &Constellation{Mod: mod}
	switch mod {
	case ModQPSK:
		c.generateQPSK()
	case Mod16QAM:
		c.generateQAM(4) // 4x4
	case Mod64QAM:
		c.generateQAM(8) // 8x8
	default:
		c.generateQPSK()
	}
	c.normalize()
	c.partition()
	return c
}

func (c *Constellation) generateQPSK() {
	// Gray-coded QPSK: first bit selects the imaginary sign, second the real
	c.points = []complex128{
		complex(1, 1),   // 00
		complex(-1, 1),  // 01
		complex(1, -1),  // 10
		complex(-1, -1), // 11
	}
}

func (c *Constellation) generateQAM(order int) {
	// Generate square QAM constellation with Gray coding
	size := order * order
	c.points = make([]complex128, size)

	for i := 0; i < size; i++ {
		row := i / order
		col := i % order

		// Gray code mapping
		grayRow := row ^ (row >> 1)
		grayCol := col ^ (col >> 1)

		// Map to symmetric constellation
		x := float64(2*grayCol - order + 1) // odd values: -3, -1, 1, 3 for 4-QAM
		y := float64(2*grayRow - order + 1)

		c.points[i] = complex(x, y)
	}
}

func (c *Constellation) normalize() {
	// Calculate average power
	var avgPower float64
	for _, p := range c.points {
		avgPower += real(p)*real(p) + imag(p)*imag(p)
	}
	avgPower /= float64(len(c.points))

	// Normalize to unit average power
	c.scale = 1.0 / math.Sqrt(avgPower)
	for i := range c.points {
		c.points[i] = complex(real(c.points[i])*c.scale, imag(c.points[i])*c.scale)
	}
}

func (c *Constellation) partition() {
	bps := c.Mod.BitsPerSymbol()
	c.zeros = make([][]int, bps)
	c.ones = make([][]int, bps)
	for idx := range c.points {
		bits := indexToBits(idx, bps)
		for i, b := range bits {
			if b == 0 {
				c.zeros[i] = append(c.zeros[i], idx)
			} else {
				c.ones[i] = append(c.ones[i], idx)
			}
		}
	}
}

// Points returns a copy of the unit-power constellation points.
func (c *Constellation) Points() []complex128 {
	return append([]complex128(nil), c.points...)
}

// Map maps bits to a constellation point.
func (c *Constellation) Map(bits []byte) complex128 {
	idx := bitsToIndex(bits)
	if idx >= len(c.points) {
		idx = 0
	}
	return c.points[idx]
}

// Demap finds the closest constellation point and returns the bits.
func (c *Constellation) Demap(symbol complex128) []byte {
	minDist := math.MaxFloat64
	minIdx := 0

	for i, p := range c.points {
		d := real(symbol-p)*real(symbol-p) + imag(symbol-p)*imag(symbol-p)
		if d < minDist {
			minDist = d
			minIdx = i
		}
	}

	return indexToBits(minIdx, c.Mod.BitsPerSymbol())
}

// MapBits maps a bit slice to constellation symbols.
// bits are packed as bytes (0 or 1 each).
func (c *Constellation) MapBits(bits []byte) []complex128 {
	bps := c.Mod.BitsPerSymbol()
	numSymbols := len(bits) / bps
	symbols := make([]complex128, numSymbols)

	for i := 0; i < numSymbols; i++ {
		symbols[i] = c.Map(bits[i*bps : (i+1)*bps])
	}
	return symbols
}

// DemapSymbols demaps constellation symbols back to bits.
func (c *Constellation) DemapSymbols(symbols []complex128) []byte {
	bps := c.Mod.BitsPerSymbol()
	bits := make([]byte, 0, len(symbols)*bps)

	for _, s := range symbols {
		bits = append(bits, c.Demap(s)...)
	}
	return bits
}

// LLR returns max-log bit log-likelihood ratios for each symbol,
// (min|y−s₁|² − min|y−s₀|²) / noiseVar, where s₀ and s₁ range over the
// points whose bit is 0 and 1. Positive values favour bit 0.
func (c *Constellation) LLR(symbols []complex128, noiseVar float64) []float64 {
	if noiseVar <= 0 {
		noiseVar = 1
	}
	bps := c.Mod.BitsPerSymbol()
	llr := make([]float64, 0, len(symbols)*bps)
	dist := make([]float64, len(c.points))

	for _, y := range symbols {
		for i, p := range c.points {
			d := y - p
			dist[i] = real(d)*real(d) + imag(d)*imag(d)
		}
		for b := 0; b < bps; b++ {
			d0, d1 := math.MaxFloat64, math.MaxFloat64
			for _, idx := range c.zeros[b] {
				d0 = math.Min(d0, dist[idx])
			}
			for _, idx := range c.ones[b] {
				d1 = math.Min(d1, dist[idx])
			}
			llr = append(llr, (d1-d0)/noiseVar)
		}
	}
	return llr
}

func bitsToIndex(bits []byte) int {
	idx := 0
	for _, b := range bits {
		idx = (idx << 1) | int(b&1)
	}
	return idx
}

func indexToBits(idx, numBits int) []byte {
	bits := make([]byte, numBits)
	for i := numBits - 1; i >= 0; i-- {
		bits[i] = byte(idx & 1)
		idx >>= 1
	}
	return bits
}
