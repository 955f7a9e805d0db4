package fec

import (
	"fmt"

	"github.com/klauspost/reedsolomon"
)

// MaxBlockLen bounds data+parity so that every byte can be its own shard in
// GF(2^8).
const MaxBlockLen = 255

// RSEncoder wraps Reed-Solomon erasure coding over single-byte shards, so
// a block of dataShards bytes gains parShards parity bytes and any parShards
// erased positions can be rebuilt.
type RSEncoder struct {
	enc        reedsolomon.Encoder
	dataShards int
	parShards  int
}

// NewRSEncoder creates a Reed-Solomon encoder with the given shard counts.
func NewRSEncoder(dataShards, parityShards int) (*RSEncoder, error) {
	if dataShards+parityShards > MaxBlockLen {
		return nil, fmt.Errorf("%w: %d+%d shards exceed %d", ErrBlockSize, dataShards, parityShards, MaxBlockLen)
	}
	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, fmt.Errorf("create reed-solomon encoder: %w", err)
	}
	return &RSEncoder{
		enc:        enc,
		dataShards: dataShards,
		parShards:  parityShards,
	}, nil
}

// EncodeBlock encodes a single block of data.
// Takes up to dataShards bytes and returns data followed by parity.
func (rs *RSEncoder) EncodeBlock(data []byte) ([]byte, error) {
	if len(data) > rs.dataShards {
		return nil, fmt.Errorf("%w: data too large: %d > %d", ErrBlockSize, len(data), rs.dataShards)
	}

	// Pad data if needed
	padded := make([]byte, rs.dataShards)
	copy(padded, data)

	totalShards := rs.dataShards + rs.parShards
	shards := make([][]byte, totalShards)
	for i := 0; i < rs.dataShards; i++ {
		shards[i] = []byte{padded[i]}
	}
	for i := rs.dataShards; i < totalShards; i++ {
		shards[i] = make([]byte, 1)
	}

	err := rs.enc.Encode(shards)
	if err != nil {
		return nil, fmt.Errorf("encode block: %w", err)
	}

	result := make([]byte, totalShards)
	for i, s := range shards {
		result[i] = s[0]
	}
	return result, nil
}

// DecodeBlock rebuilds the data bytes of an encoded block with the listed
// positions treated as erased.
func (rs *RSEncoder) DecodeBlock(block []byte, erasures []int) ([]byte, error) {
	totalShards := rs.dataShards + rs.parShards
	if len(block) != totalShards {
		return nil, fmt.Errorf("%w: invalid block size: %d != %d", ErrBlockSize, len(block), totalShards)
	}

	shards := make([][]byte, totalShards)
	for i := 0; i < totalShards; i++ {
		shards[i] = []byte{block[i]}
	}

	// Mark erasures
	for _, idx := range erasures {
		if idx >= 0 && idx < totalShards {
			shards[idx] = nil
		}
	}

	err := rs.enc.ReconstructData(shards)
	if err != nil {
		return nil, fmt.Errorf("reconstruct block: %w", err)
	}

	result := make([]byte, rs.dataShards)
	for i := 0; i < rs.dataShards; i++ {
		result[i] = shards[i][0]
	}
	return result, nil
}
