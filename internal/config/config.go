package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Estimation selects how the receiver obtains its channel estimate.
type Estimation string

const (
	EstimationLS    Estimation = "LS"
	EstimationLMMSE Estimation = "LMMSE"
	EstimationTrue  Estimation = "TRUE"
)

// Equalization selects the per-subcarrier equalizer.
type Equalization string

const (
	EqualizationZF   Equalization = "ZF"
	EqualizationMMSE Equalization = "MMSE"
)

// Coding selects the channel code wrapped around each packet.
type Coding string

const (
	CodingCode Coding = "CODE"
	CodingNone Coding = "NONE"
)

// ParseEstimation normalizes and validates an estimation mode string.
func ParseEstimation(s string) (Estimation, error) {
	switch e := Estimation(strings.ToUpper(strings.TrimSpace(s))); e {
	case EstimationLS, EstimationLMMSE, EstimationTrue:
		return e, nil
	}
	return "", fmt.Errorf("%w: channel estimation %q (want LS, LMMSE or TRUE)", ErrInvalidMode, s)
}

// ParseEqualization normalizes and validates an equalization mode string.
func ParseEqualization(s string) (Equalization, error) {
	switch e := Equalization(strings.ToUpper(strings.TrimSpace(s))); e {
	case EqualizationZF, EqualizationMMSE:
		return e, nil
	}
	return "", fmt.Errorf("%w: equalization %q (want ZF or MMSE)", ErrInvalidMode, s)
}

// ParseCoding normalizes and validates a channel coding mode string.
func ParseCoding(s string) (Coding, error) {
	switch c := Coding(strings.ToUpper(strings.TrimSpace(s))); c {
	case CodingCode, CodingNone:
		return c, nil
	}
	return "", fmt.Errorf("%w: channel coding %q (want CODE or NONE)", ErrInvalidMode, s)
}

// Clip configures the transmitter PAPR limiter.
type Clip struct {
	Enabled bool    `yaml:"enabled" json:"enabled"`
	PAPRdB  float64 `yaml:"papr_db" json:"paprDb"`
}

// Threshold returns the linear PAPR limit A = 10^(PAPR_dB/10).
func (c Clip) Threshold() float64 {
	return math.Pow(10, c.PAPRdB/10)
}

// CFO configures the carrier frequency offset impairment.
// Angles are in degrees per sample.
type CFO struct {
	Enabled  bool    `yaml:"enabled" json:"enabled"`
	Random   bool    `yaml:"random" json:"random"`
	Trick    bool    `yaml:"trick" json:"trick"`
	Angle    float64 `yaml:"angle" json:"angle"`
	MaxAngle float64 `yaml:"max_angle" json:"maxAngle"`
}

// Pilot configures the reference symbol.
type Pilot struct {
	Order int    `yaml:"order" json:"order"`
	Index int    `yaml:"index" json:"index"`
	File  string `yaml:"file,omitempty" json:"file,omitempty"`
}

// FEC configures the CODE channel code.
type FEC struct {
	InfoBytes     int `yaml:"info_bytes" json:"infoBytes"`
	ParityBytes   int `yaml:"parity_bytes" json:"parityBytes"`
	MaxIterations int `yaml:"max_iterations" json:"maxIterations"`
}

// Config is the immutable description of one simulated OFDM link.
//
// Each packet carries S data symbols behind one pilot symbol:
//
//	|-CP(K)-|---Pilot(M)---|-guard-|-CP(K)-|---symbol1(M)---|-guard-|...
type Config struct {
	Batch       int     `yaml:"batch" json:"batch"`             // N, independent links
	Packets     int     `yaml:"packets" json:"packets"`         // P
	Symbols     int     `yaml:"symbols" json:"symbols"`         // S, data symbols per packet
	Subcarriers int     `yaml:"subcarriers" json:"subcarriers"` // M
	CPLen       int     `yaml:"cp_len" json:"cpLen"`            // K
	Taps        int     `yaml:"taps" json:"taps"`               // L
	Decay       float64 `yaml:"decay" json:"decay"`
	PilotExtra  int     `yaml:"pilot_extra" json:"pilotExtra"`
	Power       float64 `yaml:"power" json:"power"`

	Clip  Clip  `yaml:"clip" json:"clip"`
	CFO   CFO   `yaml:"cfo" json:"cfo"`
	Pilot Pilot `yaml:"pilot" json:"pilot"`

	Estimation   Estimation   `yaml:"estimation" json:"estimation"`
	Equalization Equalization `yaml:"equalization" json:"equalization"`
	Coding       Coding       `yaml:"coding" json:"coding"`
	FEC          FEC          `yaml:"fec" json:"fec"`

	BitsPerSymbol int       `yaml:"bits_per_symbol" json:"bitsPerSymbol"`
	SNRs          []float64 `yaml:"snrs" json:"snrs"`
	Seed          uint64    `yaml:"seed" json:"seed"`
	Workers       int       `yaml:"workers" json:"workers"`
}

// Default returns the reference experiment: 1000 links of 4 QPSK symbols on
// 64 subcarriers through an 8-tap exponential channel.
func Default() *Config {
	return &Config{
		Batch:       1000,
		Packets:     1,
		Symbols:     4,
		Subcarriers: 64,
		CPLen:       16,
		Taps:        8,
		Decay:       4,
		PilotExtra:  0,
		Power:       1,
		Clip:        Clip{Enabled: false, PAPRdB: 10},
		CFO:         CFO{Enabled: false, Trick: true, Angle: 1.7, MaxAngle: 1.7},
		Pilot:       Pilot{Order: 1},

		Estimation:   EstimationLS,
		Equalization: EqualizationMMSE,
		Coding:       CodingNone,
		FEC:          FEC{InfoBytes: 20, ParityBytes: 8, MaxIterations: 50},

		BitsPerSymbol: 2,
		SNRs:          []float64{0, 5, 10, 15, 20, 25, 30},
		Seed:          1,
	}
}

// Load reads a YAML file over Default.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SymbolLen is the framed length of one symbol: K + M + guard.
func (c *Config) SymbolLen() int {
	return c.CPLen + c.Subcarriers + c.PilotExtra
}

// FrameLen is the length of the concatenated pilot+data frame, (S+1)(M+K+extra).
func (c *Config) FrameLen() int {
	return (c.Symbols + 1) * c.SymbolLen()
}

// Validate checks the configuration before any simulation runs and
// canonicalizes the mode strings.
func (c *Config) Validate() error {
	switch {
	case c.Batch < 1:
		return fmt.Errorf("%w: batch size %d", ErrInvalidConfig, c.Batch)
	case c.Packets < 1:
		return fmt.Errorf("%w: packet count %d", ErrInvalidConfig, c.Packets)
	case c.Symbols < 1:
		return fmt.Errorf("%w: symbol count %d", ErrInvalidConfig, c.Symbols)
	case c.Subcarriers < 1:
		return fmt.Errorf("%w: subcarrier count %d", ErrInvalidConfig, c.Subcarriers)
	case c.CPLen < 0 || c.CPLen >= c.Subcarriers:
		return fmt.Errorf("%w: cyclic prefix %d must satisfy 0 <= K < M=%d", ErrInvalidConfig, c.CPLen, c.Subcarriers)
	case c.Taps < 1 || c.Taps > c.Subcarriers:
		return fmt.Errorf("%w: tap count %d must satisfy 1 <= L <= M=%d", ErrInvalidConfig, c.Taps, c.Subcarriers)
	case !(c.Decay > 0) || math.IsInf(c.Decay, 0):
		return fmt.Errorf("%w: decay %v must be positive", ErrInvalidConfig, c.Decay)
	case c.PilotExtra < 0:
		return fmt.Errorf("%w: pilot extra %d", ErrInvalidConfig, c.PilotExtra)
	case !(c.Power > 0) || math.IsInf(c.Power, 0):
		return fmt.Errorf("%w: transmit power %v", ErrInvalidConfig, c.Power)
	case c.Clip.Enabled && (math.IsNaN(c.Clip.PAPRdB) || math.IsInf(c.Clip.PAPRdB, 0)):
		return fmt.Errorf("%w: PAPR %v dB", ErrInvalidConfig, c.Clip.PAPRdB)
	case c.CFO.Enabled && c.CFO.Random && c.CFO.MaxAngle < 0:
		return fmt.Errorf("%w: CFO max angle %v", ErrInvalidConfig, c.CFO.MaxAngle)
	case c.Pilot.Order == 0:
		return fmt.Errorf("%w: Zadoff-Chu order must be non-zero", ErrInvalidConfig)
	case c.BitsPerSymbol != 2 && c.BitsPerSymbol != 4 && c.BitsPerSymbol != 6:
		return fmt.Errorf("%w: %d bits per symbol (want 2, 4 or 6)", ErrInvalidConfig, c.BitsPerSymbol)
	}

	var err error
	if c.Estimation, err = ParseEstimation(string(c.Estimation)); err != nil {
		return err
	}
	if c.Equalization, err = ParseEqualization(string(c.Equalization)); err != nil {
		return err
	}
	if c.Coding, err = ParseCoding(string(c.Coding)); err != nil {
		return err
	}

	if c.Coding == CodingCode {
		if c.FEC.InfoBytes < 1 || c.FEC.ParityBytes < 1 || c.FEC.MaxIterations < 1 {
			return fmt.Errorf("%w: fec %+v", ErrInvalidConfig, c.FEC)
		}
		if c.FEC.InfoBytes+4+c.FEC.ParityBytes > 255 {
			return fmt.Errorf("%w: fec block of %d bytes exceeds 255", ErrInvalidConfig, c.FEC.InfoBytes+4+c.FEC.ParityBytes)
		}
	}
	return nil
}
