package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/candlechat/internal/conversation"
	"github.com/KaramelBytes/candlechat/internal/metrics"
	"github.com/KaramelBytes/candlechat/internal/server"
)

var (
	serveFlags modelFlags
	serveAddr  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve chat sessions, the chart and metrics over HTTP",
	Example: `  candlechat serve --addr 127.0.0.1:8080
  curl -XPOST localhost:8080/api/sessions
  curl -XPOST localhost:8080/api/sessions/<id>/messages -d '{"text":"what is the average close price"}'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		ds, err := loadDataset()
		if err != nil {
			return err
		}
		p, err := newPipeline(ds, c, serveFlags)
		if err != nil {
			return err
		}
		rec := metrics.New()
		p.Observer = rec

		addr := c.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		srv, err := server.New(server.Config{
			Addr:       addr,
			Sessions:   conversation.NewManager(p),
			Dataset:    ds,
			ChartLimit: c.ChartLimit,
			Demo:       c.DemoMode,
			Metrics:    rec,
			Logger:     log.Named("server"),
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Serving %s (%d candles) on http://%s\n", ds.Name, ds.Len(), srv.Addr())
		log.Info("serve", zap.String("addr", srv.Addr()), zap.Bool("demo", c.DemoMode))
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addModelFlags(serveCmd, &serveFlags)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides 'listen_addr')")
}
