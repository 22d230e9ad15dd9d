package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tmcgann/fabworks/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Starts the HTTP server exposing the agent gateway.

POST /ask with {"query": "..."} routes the request to an agent and returns
the aggregated transcript. GET /health reports liveness.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.Close()

		addr := serveAddr
		if addr == "" {
			addr = app.cfg.Server.Addr
		}

		srv := server.New(server.Config{
			Supervisor: app.sup,
			Addr:       addr,
			Logger:     app.log,
		})

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		go func() {
			if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
				app.log.Error().Err(err).Msg("server error")
				cancel()
			}
		}()

		<-ctx.Done()
		app.log.Info().Msg("shutting down server")

		// Give in-flight agent runs time to finish.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}
