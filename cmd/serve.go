package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dqv-cli/internal/analysis"
	"github.com/KaramelBytes/dqv-cli/internal/server"
	"github.com/KaramelBytes/dqv-cli/internal/session"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the quality checks over a JSON HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := config()
		addr := c.ListenAddr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		method, err := analysis.ParseOutlierMethod(c.OutlierMethod)
		if err != nil {
			return err
		}
		store := session.NewStore(c.MaxSessions, loadOptions())
		srv := server.New(store, server.Options{
			MaxUploadBytes: c.MaxInputBytes,
			Outliers:       analysis.OutlierOptions{Method: method, Threshold: c.OutlierThreshold},
			Bins:           c.HistogramBins,
			ExportName:     c.ExportName,
			Logger:         logger,
		})
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")
}
