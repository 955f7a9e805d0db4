package ofdm

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"github.com/jeongseonghan/ofdm-channel/internal/batch"
	"github.com/jeongseonghan/ofdm-channel/internal/config"
)

// Pipeline simulates the end-to-end OFDM link: framing, optional clipping,
// multipath fading, calibrated noise, optional CFO and receive-side
// demodulation with perfect timing.
//
// A Pipeline is immutable after construction and safe for concurrent use
// provided each call gets its own random generator.
type Pipeline struct {
	cfg        config.Config
	pilot      []complex128 // frequency domain, power normalized
	pilotFrame []complex128 // time domain, framed
	channel    *Channel
	rotator    *Rotator
}

// Result holds the receiver observations of one Forward call.
type Result struct {
	Pilot      *batch.Batch // N×P×1×M received pilot spectrum
	Signal     *batch.Batch // N×P×S×M received data spectra
	Response   *batch.Batch // N×P×1×M true channel response
	Taps       *batch.Batch // N×P×1×L taps used
	NoisePower []float64    // time-domain noise power per link, index n·P+p
}

// NewPipeline builds a pipeline for cfg. A nil pilot selects the Zadoff-Chu
// sequence configured in cfg.Pilot; either way the pilot is scaled to the
// configured transmit power.
func NewPipeline(cfg *config.Config, pilot []complex128, exec Exec) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := cfg.Subcarriers
	if pilot == nil {
		pilot = ZadoffChu(cfg.Pilot.Order, m, cfg.Pilot.Index)
	} else {
		pilot = append([]complex128(nil), pilot...)
	}
	if len(pilot) != m {
		return nil, fmt.Errorf("%w: pilot has %d samples, want %d", ErrDimensionMismatch, len(pilot), m)
	}
	if batch.Normalize(pilot, cfg.Power) == 0 {
		return nil, fmt.Errorf("%w: pilot has zero power", config.ErrInvalidConfig)
	}

	pilotFrame := make([]complex128, cfg.SymbolLen())
	frameSymbol(pilotFrame, IFFT(pilot), cfg.CPLen)

	return &Pipeline{
		cfg:        *cfg,
		pilot:      pilot,
		pilotFrame: pilotFrame,
		channel:    NewChannel(cfg, exec),
		rotator:    NewRotator(cfg),
	}, nil
}

// Pilot returns the transmitted pilot spectrum as a 1×1×1×M batch that
// broadcasts against received observations.
func (p *Pipeline) Pilot() *batch.Batch {
	return batch.Vector(append([]complex128(nil), p.pilot...))
}

// Channel exposes the multipath channel.
func (p *Pipeline) Channel() *Channel {
	return p.channel
}

// Sample draws a channel realization for the configured batch, for callers
// that reuse one realization across several Forward calls.
func (p *Pipeline) Sample(rng *rand.Rand) (taps, response *batch.Batch) {
	return p.channel.Sample(p.cfg.Batch, p.cfg.Packets, rng)
}

// Forward transmits tx (N×P×S×M frequency-domain symbols) at snrDB through
// the link. taps may be nil to draw a fresh channel. snrDB = +Inf disables
// noise. Random draws happen in a fixed order: taps, noise, CFO angles.
func (p *Pipeline) Forward(tx *batch.Batch, snrDB float64, taps *batch.Batch, rng *rand.Rand) (*Result, error) {
	cfg := &p.cfg
	n, np, s, m, k := cfg.Batch, cfg.Packets, cfg.Symbols, cfg.Subcarriers, cfg.CPLen
	if want := (batch.Shape{n, np, s, m}); tx.Shape != want {
		return nil, fmt.Errorf("%w: tx %s, want %s", ErrDimensionMismatch, tx.Shape, want)
	}
	symLen := cfg.SymbolLen()
	frameLen := cfg.FrameLen()

	// Normalize and IFFT every data symbol: N×P×S×M => N×P×S×M
	td := batch.New(n, np, s, m)
	sym := make([]complex128, m)
	for i := 0; i < n; i++ {
		for j := 0; j < np; j++ {
			for q := 0; q < s; q++ {
				copy(sym, tx.Row(i, j, q))
				batch.Normalize(sym, cfg.Power)
				ifftInto(td.Row(i, j, q), sym)
			}
		}
	}

	// Add CP and guard: N×P×S×M => N×P×S×(M+K+extra)
	framed, err := AddCPBatch(td, k, cfg.PilotExtra)
	if err != nil {
		return nil, err
	}

	// Prepend the pilot and flatten: => N×P×1×(S+1)(M+K+extra)
	frame := batch.New(n, np, 1, frameLen)
	for i := 0; i < n; i++ {
		for j := 0; j < np; j++ {
			link := frame.Link(i, j)
			copy(link, p.pilotFrame)
			copy(link[symLen:], framed.Link(i, j))
			if cfg.Clip.Enabled {
				Clip(link, cfg.Clip.Threshold())
			}
		}
	}

	y, response, used, err := p.channel.Forward(frame, taps, rng)
	if err != nil {
		return nil, err
	}

	noise := AddNoise(y, snrDB, rng)

	// Perfect timing: keep the first frameLen samples of every link.
	frames := batch.New(n, np, s+1, symLen)
	for i := 0; i < n; i++ {
		for j := 0; j < np; j++ {
			copy(frames.Link(i, j), y.Link(i, j)[:frameLen])
		}
	}

	if cfg.CFO.Enabled {
		if err := p.rotator.Rotate(frames, p.rotator.Angles(n, rng)); err != nil {
			return nil, err
		}
	}

	// Remove CP and guard, then FFT: => N×P×(S+1)×M
	rx, err := RemoveCPBatch(frames, k, m)
	if err != nil {
		return nil, err
	}
	pilotRx := batch.New(n, np, 1, m)
	signalRx := batch.New(n, np, s, m)
	for i := 0; i < n; i++ {
		for j := 0; j < np; j++ {
			fftInto(pilotRx.Row(i, j, 0), rx.Row(i, j, 0))
			for q := 0; q < s; q++ {
				fftInto(signalRx.Row(i, j, q), rx.Row(i, j, q+1))
			}
		}
	}

	return &Result{
		Pilot:      pilotRx,
		Signal:     signalRx,
		Response:   response,
		Taps:       used,
		NoisePower: noise,
	}, nil
}

// NoisePower returns the noise power that yields snrDB against a received
// signal of power pwr: pwr·10^(−snrDB/10).
func NoisePower(pwr, snrDB float64) float64 {
	return pwr * math.Pow(10, -snrDB/10)
}

// AddNoise adds complex white Gaussian noise to every link of y in place,
// calibrated so that mean|y|² / noise = 10^(snrDB/10), and returns the noise
// power per link. Real and imaginary noise each have variance noise/2.
func AddNoise(y *batch.Batch, snrDB float64, rng *rand.Rand) []float64 {
	s := y.Shape
	noise := make([]float64, s[0]*s[1])
	for i := 0; i < s[0]; i++ {
		for j := 0; j < s[1]; j++ {
			link := y.Link(i, j)
			np := NoisePower(batch.MeanPower(link), snrDB)
			noise[i*s[1]+j] = np
			if np == 0 {
				continue
			}
			std := math.Sqrt(np / 2)
			for t, v := range link {
				link[t] = v + complex(std*rng.NormFloat64(), std*rng.NormFloat64())
			}
		}
	}
	return noise
}
