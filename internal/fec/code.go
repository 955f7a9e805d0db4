package fec

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"sort"

	"github.com/jeongseonghan/ofdm-channel/internal/config"
)

// Encoder maps information bits onto codeword bits.
type Encoder interface {
	Encode(bits []byte) ([]byte, error)
	InfoBits() int
	BlockBits() int
}

// Decoder recovers information bits from codeword LLRs (positive favours 0).
type Decoder interface {
	Decode(llr []float64) ([]byte, error)
}

// Code is a systematic block code: info bytes, a CRC-32, then Reed-Solomon
// parity. Soft decoding is Chase-style: the least reliable bytes are erased
// and rebuilt until the CRC checks.
//
//	|---info---|-CRC32-|---parity---|
//
// The CRC is IEEE, big-endian, over the info bytes.
type Code struct {
	rs      *RSEncoder
	parity  int
	maxIter int
}

var (
	_ Encoder = (*Code)(nil)
	_ Decoder = (*Code)(nil)
)

// NewCode builds the CODE channel code for cfg.
func NewCode(cfg config.FEC) (*Code, error) {
	if cfg.InfoBytes < 1 || cfg.ParityBytes < 1 {
		return nil, fmt.Errorf("%w: %d info and %d parity bytes", ErrBlockSize, cfg.InfoBytes, cfg.ParityBytes)
	}
	rs, err := NewRSEncoder(cfg.InfoBytes+crcLen, cfg.ParityBytes)
	if err != nil {
		return nil, err
	}
	maxIter := cfg.MaxIterations
	if maxIter < 1 {
		maxIter = 1
	}
	return &Code{rs: rs, parity: cfg.ParityBytes, maxIter: maxIter}, nil
}

const crcLen = 4

// InfoBits is the number of information bits per codeword.
func (c *Code) InfoBits() int { return (c.rs.dataShards - crcLen) * 8 }

// BlockBits is the number of coded bits per codeword.
func (c *Code) BlockBits() int { return (c.rs.dataShards + c.rs.parShards) * 8 }

// seal returns info followed by its CRC-32, the data part of a codeword.
func seal(info []byte) []byte {
	data := make([]byte, len(info)+crcLen)
	copy(data, info)
	binary.BigEndian.PutUint32(data[len(info):], crc32.ChecksumIEEE(info))
	return data
}

// unseal splits the data part of a codeword into info bytes and reports
// whether the trailing CRC matches.
func unseal(data []byte) ([]byte, bool) {
	if len(data) < crcLen {
		return nil, false
	}
	info := data[:len(data)-crcLen]
	return info, crc32.ChecksumIEEE(info) == binary.BigEndian.Uint32(data[len(info):])
}

// Encode encodes exactly InfoBits bits into one codeword.
func (c *Code) Encode(bits []byte) ([]byte, error) {
	if len(bits) != c.InfoBits() {
		return nil, fmt.Errorf("%w: %d info bits, want %d", ErrBlockSize, len(bits), c.InfoBits())
	}
	block, err := c.rs.EncodeBlock(seal(PackBits(bits)))
	if err != nil {
		return nil, err
	}
	return UnpackBits(block), nil
}

// Decode decodes one codeword of BlockBits LLRs. When no candidate passes
// the CRC within the iteration budget it returns the hard-decision info
// bits together with ErrDecodeFailed.
func (c *Code) Decode(llr []float64) ([]byte, error) {
	if len(llr) != c.BlockBits() {
		return nil, fmt.Errorf("%w: %d LLRs, want %d", ErrBlockSize, len(llr), c.BlockBits())
	}

	hard := HardDecision(llr)
	block := PackBits(hard)

	if info, ok := unseal(block[:c.rs.dataShards]); ok {
		return UnpackBits(info), nil
	}

	order := c.reliabilityOrder(llr)
	erasures := make([]int, c.parity)
	copy(erasures, order[:c.parity])

	for iter := 1; iter < c.maxIter && c.parity+iter-2 < len(order); iter++ {
		if iter > 1 {
			erasures[c.parity-1] = order[c.parity+iter-2]
		}
		data, err := c.rs.DecodeBlock(block, erasures)
		if err != nil {
			continue
		}
		if info, ok := unseal(data); ok {
			return UnpackBits(info), nil
		}
	}

	return hard[:c.InfoBits()], fmt.Errorf("%w after %d candidates", ErrDecodeFailed, c.maxIter)
}

// reliabilityOrder returns byte positions sorted from least to most
// reliable, a byte being as reliable as its weakest bit.
func (c *Code) reliabilityOrder(llr []float64) []int {
	n := len(llr) / 8
	rel := make([]float64, n)
	order := make([]int, n)
	for i := range rel {
		rel[i] = math.Inf(1)
		for _, l := range llr[i*8 : i*8+8] {
			rel[i] = math.Min(rel[i], math.Abs(l))
		}
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return rel[order[a]] < rel[order[b]] })
	return order
}
