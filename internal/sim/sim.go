package sim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"golang.org/x/exp/rand"

	"github.com/jeongseonghan/ofdm-channel/internal/batch"
	"github.com/jeongseonghan/ofdm-channel/internal/config"
	"github.com/jeongseonghan/ofdm-channel/internal/fec"
	"github.com/jeongseonghan/ofdm-channel/internal/modem"
	"github.com/jeongseonghan/ofdm-channel/internal/ofdm"
)

// LLRLimit bounds the soft values handed to the decoder.
const LLRLimit = 10

// Point is the outcome of one SNR point.
type Point struct {
	SNR            float64       `json:"snr"`
	BER            float64       `json:"ber"`
	BitErrors      int           `json:"bitErrors"`
	Bits           int           `json:"bits"`
	MSE            float64       `json:"mse"` // Σ|H_est−H_true|² per link
	EVM            float64       `json:"evm"`
	SNREst         float64       `json:"snrEst"` // mean post-equalization SNR, dB
	Codewords      int           `json:"codewords,omitempty"`
	DecodeFailures int           `json:"decodeFailures,omitempty"`
	Faults         int           `json:"faults,omitempty"` // non-finite estimates or symbols
	Elapsed        time.Duration `json:"elapsed"`
}

// ProgressFunc is called after every completed SNR point.
type ProgressFunc func(p Point)

// Runner sweeps the configured SNR list through the OFDM link.
type Runner struct {
	cfg           config.Config
	pipeline      *ofdm.Pipeline
	constellation *modem.Constellation
	code          *fec.Code // nil when coding is NONE

	linkBits int // coded capacity of one link, P·S·M·bits
	words    int // codewords per link
	infoBits int // information bits per link
}

// New prepares a sweep. A nil pilot loads cfg.Pilot.File when set and falls
// back to the configured Zadoff-Chu sequence otherwise.
func New(cfg *config.Config, pilot []complex128) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mod, err := modem.ParseModulation(cfg.BitsPerSymbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	if pilot == nil && cfg.Pilot.File != "" {
		if pilot, err = ofdm.LoadPilotFile(cfg.Pilot.File, cfg.Subcarriers); err != nil {
			return nil, fmt.Errorf("load pilot: %w", err)
		}
	}
	pipeline, err := ofdm.NewPipeline(cfg, pilot, ofdm.Exec{Workers: cfg.Workers})
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:           *cfg,
		pipeline:      pipeline,
		constellation: modem.NewConstellation(mod),
		linkBits:      cfg.Packets * cfg.Symbols * cfg.Subcarriers * cfg.BitsPerSymbol,
	}
	r.infoBits = r.linkBits

	if cfg.Coding == config.CodingCode {
		if r.code, err = fec.NewCode(cfg.FEC); err != nil {
			return nil, err
		}
		r.words = r.linkBits / r.code.BlockBits()
		if r.words == 0 {
			return nil, fmt.Errorf("%w: link carries %d bits, codeword needs %d", config.ErrInvalidConfig, r.linkBits, r.code.BlockBits())
		}
		r.infoBits = r.words * r.code.InfoBits()
	}
	return r, nil
}

// Pipeline returns the underlying link simulator.
func (r *Runner) Pipeline() *ofdm.Pipeline {
	return r.pipeline
}

// TotalBits is the number of information bits tested per SNR point.
func (r *Runner) TotalBits() int {
	return r.cfg.Batch * r.infoBits
}

// Run sweeps every configured SNR. Point i draws from a generator seeded
// with Seed+i, so single points can be reproduced in isolation.
func (r *Runner) Run(ctx context.Context, progress ProgressFunc) ([]Point, error) {
	log.Printf("Total number of bits tested: %d", r.TotalBits())
	log.Printf("Channel estimation: %s, equalization: %s, channel coding: %s",
		r.cfg.Estimation, r.cfg.Equalization, r.cfg.Coding)

	points := make([]Point, 0, len(r.cfg.SNRs))
	for i, snr := range r.cfg.SNRs {
		if err := ctx.Err(); err != nil {
			return points, err
		}
		log.Printf("Processing SNR %g dB", snr)

		p, err := r.RunPoint(snr, rand.New(rand.NewSource(r.cfg.Seed+uint64(i))))
		if err != nil {
			return points, fmt.Errorf("snr %g dB: %w", snr, err)
		}
		log.Printf("SNR %g dB: BER %.6f, estimation MSE %.6f, post-EQ SNR %.1f dB (%v)",
			snr, p.BER, p.MSE, p.SNREst, p.Elapsed.Round(time.Millisecond))

		points = append(points, p)
		if progress != nil {
			progress(p)
		}
	}
	return points, nil
}

// RunPoint simulates one batch at snrDB.
func (r *Runner) RunPoint(snrDB float64, rng *rand.Rand) (Point, error) {
	start := time.Now()
	cfg := &r.cfg
	n, m := cfg.Batch, cfg.Subcarriers
	span := r.linkBits / cfg.BitsPerSymbol // symbols per link

	info := make([]byte, n*r.infoBits)
	for i := range info {
		info[i] = byte(rng.Intn(2))
	}

	tx := batch.New(n, cfg.Packets, cfg.Symbols, m)
	for i := 0; i < n; i++ {
		coded, err := r.encode(info[i*r.infoBits:(i+1)*r.infoBits], rng)
		if err != nil {
			return Point{}, err
		}
		copy(tx.Data[i*span:(i+1)*span], r.constellation.MapBits(coded))
	}

	res, err := r.pipeline.Forward(tx, snrDB, nil, rng)
	if err != nil {
		return Point{}, err
	}

	// Noise powers are time-domain; the unnormalized FFT scales them by M.
	noise := make([]float64, len(res.NoisePower))
	for i, v := range res.NoisePower {
		noise[i] = float64(m) * v
	}

	pt := Point{SNR: snrDB}

	h, err := ofdm.Estimate(cfg.Estimation, r.pipeline.Pilot(), res, noise)
	if err != nil {
		return Point{}, err
	}
	if err := ofdm.CheckFinite(h); err != nil {
		log.Printf("SNR %g dB: channel estimate: %v", snrDB, err)
		pt.Faults++
	}
	pt.MSE = modem.MSE(h.Data, res.Response.Data) * float64(cfg.Packets*m)

	rx, err := ofdm.Equalize(cfg.Equalization, h, res.Signal, noise)
	if err != nil {
		return Point{}, err
	}
	if err := ofdm.CheckFinite(rx); err != nil {
		log.Printf("SNR %g dB: equalized symbols: %v", snrDB, err)
		pt.Faults++
	}
	pt.EVM = modem.EVM(rx.Data, tx.Data)
	pt.SNREst = modem.SNREstimate(rx.Data, tx.Data)

	for i := 0; i < n; i++ {
		want := info[i*r.infoBits : (i+1)*r.infoBits]
		got, failures, err := r.decode(rx.Data[i*span : (i+1)*span])
		if err != nil {
			return Point{}, err
		}
		pt.DecodeFailures += failures
		for j := range want {
			if got[j] != want[j] {
				pt.BitErrors++
			}
		}
	}

	pt.Bits = len(info)
	pt.BER = float64(pt.BitErrors) / float64(pt.Bits)
	pt.Codewords = n * r.words
	pt.Elapsed = time.Since(start)
	return pt, nil
}

// encode returns the linkBits coded bits of one link: whole codewords
// followed by uncoded filler.
func (r *Runner) encode(info []byte, rng *rand.Rand) ([]byte, error) {
	if r.code == nil {
		return info, nil
	}
	coded := make([]byte, 0, r.linkBits)
	k := r.code.InfoBits()
	for w := 0; w < r.words; w++ {
		word, err := r.code.Encode(info[w*k : (w+1)*k])
		if err != nil {
			return nil, err
		}
		coded = append(coded, word...)
	}
	for len(coded) < r.linkBits {
		coded = append(coded, byte(rng.Intn(2)))
	}
	return coded, nil
}

// decode recovers the information bits of one link and counts codewords
// that failed their CRC.
func (r *Runner) decode(symbols []complex128) ([]byte, int, error) {
	if r.code == nil {
		return r.constellation.DemapSymbols(symbols), 0, nil
	}

	llr := fec.ClampLLR(r.constellation.LLR(symbols, 1), LLRLimit)
	bits := make([]byte, 0, r.infoBits)
	failures := 0
	b := r.code.BlockBits()
	for w := 0; w < r.words; w++ {
		word, err := r.code.Decode(llr[w*b : (w+1)*b])
		if errors.Is(err, fec.ErrDecodeFailed) {
			failures++
		} else if err != nil {
			return nil, 0, err
		}
		bits = append(bits, word...)
	}
	return bits, failures, nil
}

// Throughput is the fraction of codewords decoded, or 1 without coding.
func (p Point) Throughput() float64 {
	if p.Codewords == 0 {
		return 1
	}
	return 1 - float64(p.DecodeFailures)/float64(p.Codewords)
}

// MarshalJSON encodes non-finite metrics, such as the noiseless SNR, as null.
func (p Point) MarshalJSON() ([]byte, error) {
	type alias Point
	return json.Marshal(struct {
		alias
		SNR    *float64 `json:"snr"`
		BER    *float64 `json:"ber"`
		MSE    *float64 `json:"mse"`
		EVM    *float64 `json:"evm"`
		SNREst *float64 `json:"snrEst"`
	}{alias(p), finite(p.SNR), finite(p.BER), finite(p.MSE), finite(p.EVM), finite(p.SNREst)})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// SNRLabel formats an SNR for tables, spelling out the noiseless case.
func SNRLabel(snr float64) string {
	if math.IsInf(snr, 1) {
		return "inf"
	}
	return fmt.Sprintf("%g", snr)
}
