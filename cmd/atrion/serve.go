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

	"atrion/internal/atrionlog"
	"atrion/internal/configio"
	"atrion/internal/engine"
	"atrion/internal/observe/prometheusobs"
	"atrion/internal/syncprovider"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Args:  cobra.NoArgs,
	Short: "Run an Engine wired to Prometheus metrics and config hot-reload",
	Long: `serve loads the --config document, builds an Engine from it, exposes
its metrics on --listen, and reloads newly-added routes whenever the config
file changes on disk. The engine itself never accepts traffic directly —
host processes call its Route method; serve only owns the ambient
observability and configuration surface around that Engine for operators
who want a standalone process to inspect.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", ":9090", "address to serve /metrics on")
	serveCmd.Flags().String("hub", "", "base URL of a remote atrion-hub to use as the state provider (defaults to an in-memory provider)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return fmt.Errorf("--config is required")
	}
	listen, _ := cmd.Flags().GetString("listen")
	hubURL, _ := cmd.Flags().GetString("hub")

	log := newCLILogger()

	doc, err := configio.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	reg := prometheus.NewRegistry()
	observer := prometheusobs.New(reg)

	opts := engine.Options{
		Logger:   log,
		Observer: observer,
	}
	if hubURL != "" {
		opts.Provider = syncprovider.NewClient(syncprovider.ClientOptions{BaseURL: hubURL, Logger: log})
	}

	e := engine.NewFromDocument(doc, opts)
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := e.Connect(ctx); err != nil {
		return fmt.Errorf("connect engine: %w", err)
	}
	log.Infof("engine connected with %d route(s) from %s", len(e.GetRoutes()), cfgFile)

	watcher, err := configio.NewWatcher(cfgFile)
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	defer watcher.Close()

	go func() {
		err := watcher.Watch(ctx, func(doc *configio.Document) {
			applyNewRoutes(e, doc, log)
		}, func(err error) {
			log.Warnf("config reload failed: %v", err)
		})
		if err != nil {
			log.Errorf("config watcher stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: listen, Handler: mux}

	go func() {
		log.Infof("metrics listening on %s", listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Infof("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("metrics server shutdown: %v", err)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("engine shutdown: %w", err)
	}
	return nil
}

// applyNewRoutes registers any route the reloaded document names that
// isn't already tracked. Existing routes are left untouched: routeFor
// ignores RouteOptions on an already-registered route, so changing an
// existing route's SLO still requires an explicit ResetRoute first.
func applyNewRoutes(e *engine.Engine, doc *configio.Document, log atrionlog.Logger) {
	known := make(map[string]bool)
	for _, id := range e.GetRoutes() {
		known[id] = true
	}
	added := 0
	for _, rc := range doc.Routes {
		if known[rc.RouteID] {
			continue
		}
		criticality := rc.Criticality.Criticality()
		target := rc.Target.SLOTarget()
		profile := rc.WorkloadProfile()
		opts := engine.RouteOptions{Criticality: &criticality, Target: &target, Profile: &profile}
		if rc.Physics != nil {
			physicsCfg := rc.Physics.PhysicsConfig()
			opts.Physics = &physicsCfg
		}
		e.RegisterRoute(rc.RouteID, opts)
		added++
	}
	if added > 0 {
		log.Infof("config reload added %d new route(s)", added)
	}
}

func newCLILogger() atrionlog.Logger {
	level := atrionlog.LevelInfo
	if verbose {
		level = atrionlog.LevelDebug
	}
	return atrionlog.NewZerologLogger(atrionlog.Config{Level: level, Format: atrionlog.FormatText})
}
