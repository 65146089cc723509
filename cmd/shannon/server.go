package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func runServe(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "serve")
	addr := fs.String("addr", a.config.ApiAddr, "address to listen on")
	if err := fs.Parse(args); err != nil {
		return err
	}

	gen, err := a.styleGenerator(ctx)
	if err != nil {
		return fmt.Errorf("failed to load styles: %w", err)
	}

	mux := http.NewServeMux()
	NewGenerationAPI(gen, a.config, a.logger).RegisterRoutes(mux)
	apiHttpServer := &http.Server{
		Addr:              *addr,
		Handler:           withRequestID(mux, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("Starting api server", "address", apiHttpServer.Addr, "styles", gen.Styles())
		if err := apiHttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	osSignalChan := make(chan os.Signal, 1)
	signal.Notify(osSignalChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(osSignalChan)

	select {
	case <-osSignalChan:
		a.logger.Info("OS signal received, initiating shutdown.")
	case err = <-errChan:
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = apiHttpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown failed: %w", err)
	}
	a.logger.Info("Api server stopped.")
	return nil
}
