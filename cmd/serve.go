package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/floodwatch/floodmap/internal/boundary"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for flood analysis queries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		svc, cleanup, err := newService(ctx, true, true)
		if err != nil {
			return err
		}
		defer cleanup()

		// Boundaries are loaded once at startup; the boundary service
		// itself is an external collaborator.
		var wards []boundary.Ward
		if cfg.Boundary.Path != "" {
			wards, err = boundary.Load(cfg.Boundary.Path, cfg.Boundary.NameField)
			if err != nil {
				return err
			}
			zap.L().Info("boundaries loaded", zap.Int("wards", len(wards)))
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		api := &apiServer{svc: svc, wards: wards, defaultRaster: cfg.Raster.Path}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
