// Package hubrunner wires internal/syncprovider.Server to an HTTP listener
// with graceful shutdown, shared between cmd/atrion-hub (the standalone
// binary) and atrion hub (the equivalent subcommand), grounded on
// yoghaf-market-indikator/cmd/orderflow/main.go's
// signal.Notify(SIGINT, SIGTERM) + context-cancel shutdown idiom.
package hubrunner

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atrion/internal/atrionlog"
	"atrion/internal/syncprovider"
)

// Options configures Run.
type Options struct {
	Addr    string // HTTP listen address, e.g. ":9091"
	Channel string // broadcast channel name; "" uses syncprovider.DefaultSyncChannel
	Logger  atrionlog.Logger
}

// Run starts a syncprovider.Server on opts.Addr and blocks until SIGINT or
// SIGTERM, then shuts the HTTP server down gracefully.
func Run(opts Options) error {
	log := opts.Logger
	if log == nil {
		log = atrionlog.NoopLogger
	}

	server := syncprovider.NewServer(log, opts.Channel)
	httpServer := &http.Server{Addr: opts.Addr, Handler: server.Handler()}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("sync hub listening on %s", opts.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Infof("shutting down sync hub")
	case err := <-errCh:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}
