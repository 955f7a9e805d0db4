package sim

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"golang.org/x/exp/rand"

	"github.com/jeongseonghan/ofdm-channel/internal/config"
)

func smallConfig() *config.Config {
	cfg := config.Default()
	cfg.Batch = 20
	cfg.Symbols = 2
	cfg.Subcarriers = 16
	cfg.CPLen = 4
	cfg.Taps = 4
	cfg.SNRs = []float64{0, 10}
	return cfg
}

func TestRunPoint_NoiselessOracle(t *testing.T) {
	tests := []struct {
		name string
		eq   config.Equalization
		bits int
	}{
		{"QPSK ZF", config.EqualizationZF, 2},
		{"16QAM MMSE", config.EqualizationMMSE, 4},
	}

	for _, tt := range tests {
		cfg := smallConfig()
		cfg.Estimation = config.EstimationTrue
		cfg.Equalization = tt.eq
		cfg.BitsPerSymbol = tt.bits

		r, err := New(cfg, nil)
		if err != nil {
			t.Fatalf("%s: New error: %v", tt.name, err)
		}
		p, err := r.RunPoint(math.Inf(1), rand.New(rand.NewSource(1)))
		if err != nil {
			t.Fatalf("%s: RunPoint error: %v", tt.name, err)
		}
		if p.BitErrors != 0 {
			t.Errorf("%s: %d bit errors without noise", tt.name, p.BitErrors)
		}
		if p.MSE != 0 {
			t.Errorf("%s: oracle estimate MSE = %v", tt.name, p.MSE)
		}
		if want := 20 * 2 * 16 * tt.bits; p.Bits != want {
			t.Errorf("%s: %d bits tested, want %d", tt.name, p.Bits, want)
		}
	}
}

func TestRunPoint_LSEstimateNoiseless(t *testing.T) {
	cfg := smallConfig()
	cfg.Estimation = config.EstimationLS
	r, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	p, err := r.RunPoint(math.Inf(1), rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatal(err)
	}
	if p.MSE > 1e-18 {
		t.Errorf("LS MSE without noise = %v", p.MSE)
	}
	if p.BitErrors != 0 || p.Faults != 0 {
		t.Errorf("bit errors %d, faults %d", p.BitErrors, p.Faults)
	}
}

func TestRunPoint_NoiseCausesErrors(t *testing.T) {
	cfg := smallConfig()
	r, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	low, err := r.RunPoint(0, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatal(err)
	}
	high, err := r.RunPoint(40, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("BER at 0 dB %v, at 40 dB %v", low.BER, high.BER)
	if low.BER == 0 {
		t.Error("expected bit errors at 0 dB")
	}
	if low.BER <= high.BER {
		t.Errorf("BER at 0 dB (%v) not above BER at 40 dB (%v)", low.BER, high.BER)
	}
	if low.MSE <= high.MSE {
		t.Errorf("MSE at 0 dB (%v) not above MSE at 40 dB (%v)", low.MSE, high.MSE)
	}
	if math.IsNaN(low.SNREst) || math.IsNaN(high.SNREst) {
		t.Fatalf("post-equalization SNR not finite: %v, %v", low.SNREst, high.SNREst)
	}
	if low.SNREst >= high.SNREst {
		t.Errorf("post-equalization SNR at 0 dB (%v) not below 40 dB (%v)", low.SNREst, high.SNREst)
	}
}

func TestRunPoint_Coded(t *testing.T) {
	cfg := smallConfig()
	cfg.Symbols = 4
	cfg.Subcarriers = 64
	cfg.CPLen = 16
	cfg.Taps = 8
	cfg.Coding = config.CodingCode
	cfg.Estimation = config.EstimationTrue

	r, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	// 4·64·2 = 512 coded bits per link hold two 256-bit codewords
	if want := 20 * 2 * 160; r.TotalBits() != want {
		t.Fatalf("TotalBits = %d, want %d", r.TotalBits(), want)
	}

	p, err := r.RunPoint(math.Inf(1), rand.New(rand.NewSource(4)))
	if err != nil {
		t.Fatalf("RunPoint error: %v", err)
	}
	if p.BitErrors != 0 || p.DecodeFailures != 0 {
		t.Errorf("bit errors %d, decode failures %d", p.BitErrors, p.DecodeFailures)
	}
	if p.Codewords != 40 || p.Throughput() != 1 {
		t.Errorf("codewords %d throughput %v", p.Codewords, p.Throughput())
	}
}

func TestNew_CodewordTooLong(t *testing.T) {
	cfg := smallConfig()
	cfg.Symbols = 1
	cfg.Coding = config.CodingCode
	if _, err := New(cfg, nil); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("New = %v, want ErrInvalidConfig", err)
	}
}

func TestRun_Sweep(t *testing.T) {
	cfg := smallConfig()
	cfg.Batch = 5
	cfg.SNRs = []float64{0, 10, 20}

	r, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	var seen []float64
	points, err := r.Run(context.Background(), func(p Point) { seen = append(seen, p.SNR) })
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(points) != 3 || len(seen) != 3 {
		t.Fatalf("%d points, %d progress calls, want 3", len(points), len(seen))
	}
	for i, snr := range cfg.SNRs {
		if points[i].SNR != snr || seen[i] != snr {
			t.Errorf("point %d: SNR %v, want %v", i, points[i].SNR, snr)
		}
	}

	// same seed reproduces the sweep
	again, err := r.Run(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := range points {
		if points[i].BitErrors != again[i].BitErrors || points[i].MSE != again[i].MSE {
			t.Errorf("point %d not reproducible", i)
		}
	}
}

func TestRun_Canceled(t *testing.T) {
	r, err := New(smallConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	points, err := r.Run(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
	if len(points) != 0 {
		t.Errorf("%d points after cancel", len(points))
	}
}

func TestPoint_MarshalJSON(t *testing.T) {
	p := Point{SNR: math.Inf(1), BER: 0.25, MSE: math.NaN(), SNREst: 12.5, Bits: 8}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"snr":null`, `"ber":0.25`, `"mse":null`, `"snrEst":12.5`, `"bits":8`} {
		if !strings.Contains(s, want) {
			t.Errorf("%s missing %s", s, want)
		}
	}
}

func TestSNRLabel(t *testing.T) {
	if got := SNRLabel(math.Inf(1)); got != "inf" {
		t.Errorf("SNRLabel(+Inf) = %q", got)
	}
	if got := SNRLabel(12.5); got != "12.5" {
		t.Errorf("SNRLabel(12.5) = %q", got)
	}
}
