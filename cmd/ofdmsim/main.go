// ofdmsim simulates batched OFDM links through multipath fading channels
// and reports bit error rates across an SNR sweep.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeongseonghan/ofdm-channel/internal/config"
)

var configFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ofdmsim",
	Short: "Batched OFDM link simulator",
	Long: `ofdmsim passes QAM symbols through a batched OFDM link: Zadoff-Chu pilot,
cyclic prefix, optional clipping, multipath Rayleigh fading, calibrated AWGN
and optional carrier frequency offset, followed by LS/LMMSE channel
estimation and ZF/MMSE equalization.

Commands:
  run      Sweep SNR and print BER and estimation MSE
  serve    Run sweeps over HTTP and stream results on a WebSocket
  pilot    Write a Zadoff-Chu pilot file`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML configuration file (defaults when empty)")
	rootCmd.AddCommand(runCmd, serveCmd, pilotCmd)
}

// loadConfig reads --config or falls back to the defaults.
func loadConfig() (*config.Config, error) {
	if configFile == "" {
		return config.Default(), nil
	}
	return config.Load(configFile)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
