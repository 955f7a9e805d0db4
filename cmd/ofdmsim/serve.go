package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jeongseonghan/ofdm-channel/internal/server"
)

var (
	serveAddr   string
	serveStatic string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the sweep API",
	Long: `Serve exposes GET /api/config, POST /api/sweep, GET /api/status and a /ws
WebSocket that streams one "result" message per finished SNR point.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		handlers := server.NewHandlers(ctx, cfg)
		srv := server.NewServer(serveAddr, handlers, serveStatic)

		go func() {
			<-ctx.Done()
			srv.Shutdown(context.Background())
		}()

		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "0.0.0.0:8080", "server address")
	serveCmd.Flags().StringVar(&serveStatic, "static", "", "directory of static files to serve at /")
}
