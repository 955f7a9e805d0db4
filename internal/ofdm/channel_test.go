package ofdm

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"golang.org/x/exp/rand"

	"github.com/jeongseonghan/ofdm-channel/internal/batch"
	"github.com/jeongseonghan/ofdm-channel/internal/config"
)

func channelConfig(taps int) *config.Config {
	cfg := config.Default()
	cfg.Batch, cfg.Packets, cfg.Symbols, cfg.Subcarriers, cfg.CPLen, cfg.Taps = 4, 2, 2, 8, 3, taps
	return cfg
}

func randomFrame(cfg *config.Config, rng *rand.Rand) *batch.Batch {
	x := batch.New(cfg.Batch, cfg.Packets, 1, cfg.FrameLen())
	for i := range x.Data {
		x.Data[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}
	return x
}

func TestChannel_Profile(t *testing.T) {
	cfg := channelConfig(5)
	cfg.Decay = 2
	w := NewChannel(cfg, Exec{}).Profile()

	var sum float64
	for l, v := range w {
		sum += v
		if l > 0 && math.Abs(w[l]/w[l-1]-math.Exp(-0.5)) > 1e-12 {
			t.Errorf("w[%d]/w[%d] = %v, want exp(-1/2)", l, l-1, w[l]/w[l-1])
		}
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("profile sums to %v, want 1", sum)
	}
}

func TestChannel_IdentityTap(t *testing.T) {
	cfg := channelConfig(1)
	ch := NewChannel(cfg, Exec{Workers: 3})
	rng := rand.New(rand.NewSource(1))
	x := randomFrame(cfg, rng)

	taps := batch.New(cfg.Batch, cfg.Packets, 1, 1)
	for i := range taps.Data {
		taps.Data[i] = 1
	}

	y, response, _, err := ch.Forward(x, taps, rng)
	if err != nil {
		t.Fatalf("Forward error: %v", err)
	}
	if y.Shape[3] != cfg.FrameLen() {
		t.Fatalf("output length %d, want %d", y.Shape[3], cfg.FrameLen())
	}
	for i := range x.Data {
		if cmplx.Abs(y.Data[i]-x.Data[i]) > 1e-12 {
			t.Fatalf("y[%d] = %v, want %v", i, y.Data[i], x.Data[i])
		}
	}
	for i, h := range response.Data {
		if cmplx.Abs(h-1) > 1e-12 {
			t.Errorf("H[%d] = %v, want 1", i, h)
		}
	}
}

func TestChannel_MatchesDirectConvolution(t *testing.T) {
	cfg := channelConfig(3)
	ch := NewChannel(cfg, Exec{Workers: 2})
	rng := rand.New(rand.NewSource(2))
	x := randomFrame(cfg, rng)

	y, _, taps, err := ch.Forward(x, nil, rng)
	if err != nil {
		t.Fatalf("Forward error: %v", err)
	}

	frameLen := cfg.FrameLen()
	outLen := cfg.Taps + frameLen - 1
	if y.Shape != (batch.Shape{cfg.Batch, cfg.Packets, 1, outLen}) {
		t.Fatalf("output shape %s", y.Shape)
	}
	for n := 0; n < cfg.Batch; n++ {
		for p := 0; p < cfg.Packets; p++ {
			h := taps.Row(n, p, 0)
			in := x.Row(n, p, 0)
			out := y.Row(n, p, 0)
			for i := 0; i < outLen; i++ {
				var want complex128
				for l, hl := range h {
					if j := i - l; j >= 0 && j < frameLen {
						want += hl * in[j]
					}
				}
				if cmplx.Abs(out[i]-want) > 1e-9 {
					t.Fatalf("link (%d,%d) y[%d] = %v, want %v", n, p, i, out[i], want)
				}
			}
		}
	}
}

func TestChannel_SampleResponse(t *testing.T) {
	cfg := channelConfig(4)
	ch := NewChannel(cfg, Exec{})
	taps, response := ch.Sample(cfg.Batch, cfg.Packets, rand.New(rand.NewSource(9)))

	for n := 0; n < cfg.Batch; n++ {
		for p := 0; p < cfg.Packets; p++ {
			h := taps.Row(n, p, 0)
			for k := 0; k < cfg.Subcarriers; k++ {
				var want complex128
				for l, hl := range h {
					want += hl * cmplx.Exp(complex(0, -2*math.Pi*float64(k*l)/float64(cfg.Subcarriers)))
				}
				if got := response.At(n, p, 0, k); cmplx.Abs(got-want) > 1e-9 {
					t.Errorf("H(%d,%d)[%d] = %v, want %v", n, p, k, got, want)
				}
			}
		}
	}
}

func TestChannel_TapPower(t *testing.T) {
	cfg := channelConfig(3)
	ch := NewChannel(cfg, Exec{})
	taps, _ := ch.Sample(4000, 1, rand.New(rand.NewSource(4)))

	w := ch.Profile()
	for l := range w {
		var pwr float64
		for n := 0; n < 4000; n++ {
			v := taps.At(n, 0, 0, l)
			pwr += real(v)*real(v) + imag(v)*imag(v)
		}
		pwr /= 4000
		if math.Abs(pwr-w[l]) > 0.1*w[l]+0.01 {
			t.Errorf("tap %d power %v, expected about %v", l, pwr, w[l])
		}
	}
}

func TestChannel_ReproducibleAcrossWorkers(t *testing.T) {
	cfg := channelConfig(3)
	x := randomFrame(cfg, rand.New(rand.NewSource(6)))

	y1, _, _, err := NewChannel(cfg, Exec{Workers: 1}).Forward(x, nil, rand.New(rand.NewSource(8)))
	if err != nil {
		t.Fatal(err)
	}
	y2, _, _, err := NewChannel(cfg, Exec{Workers: 5}).Forward(x, nil, rand.New(rand.NewSource(8)))
	if err != nil {
		t.Fatal(err)
	}
	for i := range y1.Data {
		if y1.Data[i] != y2.Data[i] {
			t.Fatalf("y[%d] differs: %v vs %v", i, y1.Data[i], y2.Data[i])
		}
	}
}

func TestChannel_TapShapeMismatch(t *testing.T) {
	cfg := channelConfig(3)
	ch := NewChannel(cfg, Exec{})
	x := randomFrame(cfg, rand.New(rand.NewSource(1)))

	_, _, _, err := ch.Forward(x, batch.New(cfg.Batch, cfg.Packets, 1, 2), nil)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Forward with 2 taps: %v, want ErrDimensionMismatch", err)
	}
	_, _, _, err = ch.Forward(x, batch.New(1, cfg.Packets, 1, 3), nil)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Forward with wrong batch: %v, want ErrDimensionMismatch", err)
	}
}

func tableAt(t *IndexTable, i, j int) int {
	return int(t.idx[i*t.Cols+j])
}

func TestIndexTable(t *testing.T) {
	table := indexTable(5, 3)
	if table.Rows != 7 || table.Cols != 5 {
		t.Fatalf("table is %dx%d, want 7x5", table.Rows, table.Cols)
	}
	// first row starts at frameLen-1 and counts down
	for j := 0; j < 5; j++ {
		if got := tableAt(table, 0, j); got != 4-j {
			t.Errorf("At(0,%d) = %d, want %d", j, got, 4-j)
		}
	}
	// diagonals are constant
	for i := 1; i < table.Rows; i++ {
		for j := 1; j < table.Cols; j++ {
			if tableAt(table, i, j) != tableAt(table, i-1, j-1) {
				t.Errorf("At(%d,%d) = %d differs from At(%d,%d) = %d", i, j, tableAt(table, i, j), i-1, j-1, tableAt(table, i-1, j-1))
			}
		}
	}
	if tableAt(table, 6, 0) != 10 {
		t.Errorf("At(6,0) = %d, want 10", tableAt(table, 6, 0))
	}
	if indexTable(5, 3) != table {
		t.Error("index table not cached")
	}
}
