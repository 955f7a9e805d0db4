package fec

import "errors"

// FEC errors
var (
	// ErrDecodeFailed indicates no candidate codeword passed the CRC
	ErrDecodeFailed = errors.New("decode failed")

	// ErrBlockSize indicates input that does not fit the block layout
	ErrBlockSize = errors.New("invalid block size")
)
