package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/bloomsbot/internal/app"
	"github.com/abhisek/bloomsbot/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, app.Options{})
		if err != nil {
			return err
		}
		defer closeApp(a)

		cfg := a.Config.Server
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Addr = addr
		}

		deps := server.Deps{
			Pipeline: a.Pipeline,
			Metrics:  a.Metrics,
			Tracer:   a.Tracer,
			Logger:   a.Logger,
		}
		if a.Store != nil {
			deps.Papers = a.Store.PaperRepo()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.New(cfg, deps).Run(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}
