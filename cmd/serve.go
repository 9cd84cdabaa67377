package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured procedure routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := newStack(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			app, err := App(rt)
			if err != nil {
				return err
			}
			server := http.Server{
				Addr:    rt.conf.ListenAddr,
				Handler: app,
			}

			errc := make(chan error, 1)
			go func() {
				rt.logger.Infof("Server is listening on %s", rt.conf.ListenAddr)
				errc <- server.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			rt.logger.Info("shutting down")
			return server.Shutdown(shutdownCtx)
		},
	}
}
