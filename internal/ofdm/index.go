package ofdm

import "sync"

// IndexTable is the banded Toeplitz gather pattern that turns linear
// convolution into a matrix–vector product. Entry (i, j) equals
// frameLen-1+i-j, an index into the taps zero-padded with frameLen-1 zeros
// on both sides, so gathering yields H[i][j] = h[i-j].
//
// A table depends only on (frameLen, taps) and is never mutated once built.
type IndexTable struct {
	Rows, Cols int
	idx        []int32
}

// Gather fills dst (Rows×Cols, row-major) from padded taps.
func (t *IndexTable) Gather(dst, padded []float64) {
	for i, k := range t.idx {
		dst[i] = padded[k]
	}
}

func buildIndexTable(frameLen, taps int) *IndexTable {
	rows := taps + frameLen - 1
	t := &IndexTable{Rows: rows, Cols: frameLen, idx: make([]int32, rows*frameLen)}
	for i := 0; i < rows; i++ {
		for j := 0; j < frameLen; j++ {
			t.idx[i*frameLen+j] = int32(frameLen - 1 + i - j)
		}
	}
	return t
}

type tableKey struct {
	frameLen, taps int
}

var tables struct {
	sync.Mutex
	m map[tableKey]*IndexTable
}

// indexTable returns the shared table for (frameLen, taps), building it on
// first use.
func indexTable(frameLen, taps int) *IndexTable {
	tables.Lock()
	defer tables.Unlock()

	key := tableKey{frameLen, taps}
	if t, ok := tables.m[key]; ok {
		return t
	}
	if tables.m == nil {
		tables.m = make(map[tableKey]*IndexTable)
	}
	t := buildIndexTable(frameLen, taps)
	tables.m[key] = t
	return t
}
