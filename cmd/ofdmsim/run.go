package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jeongseonghan/ofdm-channel/internal/config"
	"github.com/jeongseonghan/ofdm-channel/internal/sim"
)

var (
	runBatch        int
	runSNRs         []float64
	runEstimation   string
	runEqualization string
	runCoding       string
	runBits         int
	runSeed         uint64
	runWorkers      int
	runClipDB       float64
	runCFO          float64
	runFormat       string
	runProfile      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sweep SNR and report BER",
	Long: `Run simulates every SNR point of the configuration and prints one row per
point. Flags override the configuration file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := applyRunFlags(cmd, cfg); err != nil {
			return err
		}

		r, err := sim.New(cfg, nil)
		if err != nil {
			return err
		}

		if runProfile {
			for l, w := range r.Pipeline().Channel().Profile() {
				fmt.Printf("tap %2d  power %.4f\n", l, w)
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		points, err := r.Run(ctx, nil)
		if err != nil {
			return err
		}

		if runFormat == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(points)
		}
		printTable(os.Stdout, cfg, points)
		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.IntVarP(&runBatch, "batch", "n", 0, "number of independent links per SNR point")
	f.Float64SliceVar(&runSNRs, "snr", nil, "SNR points in dB (comma separated)")
	f.StringVar(&runEstimation, "estimation", "", "channel estimation: LS, LMMSE or TRUE")
	f.StringVar(&runEqualization, "equalization", "", "equalization: ZF or MMSE")
	f.StringVar(&runCoding, "coding", "", "channel coding: CODE or NONE")
	f.IntVar(&runBits, "bits", 0, "bits per QAM symbol (2, 4 or 6)")
	f.Uint64Var(&runSeed, "seed", 0, "random seed")
	f.IntVar(&runWorkers, "workers", 0, "channel workers (0 uses GOMAXPROCS)")
	f.Float64Var(&runClipDB, "clip", 0, "enable clipping at this PAPR in dB")
	f.Float64Var(&runCFO, "cfo", 0, "enable a fixed CFO of this many degrees per sample")
	f.StringVarP(&runFormat, "format", "f", "table", "output format (table, json)")
	f.BoolVar(&runProfile, "profile", false, "print the channel power-delay profile")
}

// applyRunFlags overrides cfg with every flag set on the command line.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("batch") {
		cfg.Batch = runBatch
	}
	if f.Changed("snr") {
		cfg.SNRs = runSNRs
	}
	if f.Changed("estimation") {
		cfg.Estimation = config.Estimation(runEstimation)
	}
	if f.Changed("equalization") {
		cfg.Equalization = config.Equalization(runEqualization)
	}
	if f.Changed("coding") {
		cfg.Coding = config.Coding(runCoding)
	}
	if f.Changed("bits") {
		cfg.BitsPerSymbol = runBits
	}
	if f.Changed("seed") {
		cfg.Seed = runSeed
	}
	if f.Changed("workers") {
		cfg.Workers = runWorkers
	}
	if f.Changed("clip") {
		cfg.Clip = config.Clip{Enabled: true, PAPRdB: runClipDB}
	}
	if f.Changed("cfo") {
		cfg.CFO.Enabled = true
		cfg.CFO.Random = false
		cfg.CFO.Angle = runCFO
	}
	if runFormat != "table" && runFormat != "json" {
		return fmt.Errorf("unknown format %q", runFormat)
	}
	return cfg.Validate()
}

func printTable(w io.Writer, cfg *config.Config, points []sim.Point) {
	if len(points) == 0 {
		return
	}
	header := color.New(color.Bold, color.FgCyan)
	good := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)
	bad := color.New(color.FgRed)

	header.Fprintf(w, "%s + %s, coding %s, %d links x %d bits\n",
		cfg.Estimation, cfg.Equalization, cfg.Coding, cfg.Batch, points[0].Bits/cfg.Batch)
	header.Fprintf(w, "%8s %12s %12s %10s %10s %10s %8s\n", "SNR(dB)", "BER", "MSE", "EVM", "EQ SNR", "decoded", "faults")

	for _, p := range points {
		c := good
		switch {
		case p.Faults > 0:
			c = bad
		case p.BER > 1e-2:
			c = warn
		}
		c.Fprintf(w, "%8s %12.6f %12.6f %10.4f %10.2f %9.1f%% %8d\n",
			sim.SNRLabel(p.SNR), p.BER, p.MSE, p.EVM, p.SNREst, 100*p.Throughput(), p.Faults)
	}
}
