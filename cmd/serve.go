package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sstcompliance/internal/bootstrap"
	"sstcompliance/internal/bootstrap/logging"
	"sstcompliance/internal/errs"
	"sstcompliance/internal/infrastructure/persistence/schema"
	"sstcompliance/internal/transport/httpapi"
	"sstcompliance/internal/usecase/compliance"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API with calculators, reports and metrics",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		addr, _ := cmd.Flags().GetString("addr")
		addr = strings.TrimSpace(addr)
		if addr == "" {
			addr = app.Config.HTTP.Addr
		}
		if addr == "" {
			addr = ":8080"
		}

		if v, err := schema.StoredVersion(ctx, app.DB); err != nil || v < schema.Version {
			logging.Warn(ctx, "database schema is missing or outdated, run init-db", slog.Int("want", schema.Version), slog.Int("have", v))
		}

		opts := httpapi.Options{}
		if app.Metrics != nil {
			opts.Metrics = app.Metrics.Handler()
		}
		server := &http.Server{
			Addr:              addr,
			Handler:           httpapi.NewRouter(ctx, svc, opts),
			ReadHeaderTimeout: 10 * time.Second,
		}

		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logging.Info(ctx, "http api started", slog.String("addr", addr))
			errCh <- server.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error(ctx, "http api failed", slog.Any("err", errs.Loggable(err)))
				return errs.Wrap(err, "serve http api")
			}
			return nil
		case <-sigCtx.Done():
		}

		logging.Info(ctx, "http api shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errs.Wrap(err, "shutdown http api")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default: http.addr from config)")
}
