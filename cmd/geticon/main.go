// Command geticon serves site icons over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixge/fgprof"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/geticon"
	"github.com/meigma/geticon/cache"
	"github.com/meigma/geticon/internal/config"
	"github.com/meigma/geticon/internal/server"
	"github.com/meigma/geticon/internal/telemetry"
)

const shutdownTimeout = 15 * time.Second

// version is set at link time.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "geticon: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath, pprofAddr string
	flag.StringVar(&configPath, "config", "", "YAML config file (default $"+config.PathEnv+")")
	flag.StringVar(&pprofAddr, "pprof", "", "serve pprof and fgprof profiles on this address")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	handler, err := cfg.Log.Handler(os.Stderr)
	if err != nil {
		return err
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, server.ServiceName, version, cfg.Telemetry.Endpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("trace flush failed", "error", err)
		}
	}()

	icons := cache.New(
		cache.WithCapacity(cfg.Cache.Capacity),
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithLogger(logger),
	)
	svc, err := geticon.New(
		geticon.WithCache(icons),
		geticon.WithLogger(logger),
		geticon.WithValidateTopK(cfg.Fetch.ValidateTopK),
		geticon.WithProbeTimeout(cfg.Fetch.ProbeTimeout),
		geticon.WithFetchTimeout(cfg.Fetch.FetchTimeout),
		geticon.WithRefreshTimeout(cfg.Fetch.RefreshTimeout),
		geticon.WithMaxIconSize(cfg.Fetch.MaxIconSize),
	)
	if err != nil {
		return err
	}
	api, err := server.New(svc, server.WithLogger(logger))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		icons.Run(gctx, cfg.Cache.SweepInterval)
		return nil
	})
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Listen, "version", version)
		return serve(gctx, server.NewHTTPServer(cfg.Listen, api))
	})
	if pprofAddr != "" {
		g.Go(func() error {
			logger.Info("profiling enabled", "addr", pprofAddr)
			return serve(gctx, server.NewHTTPServer(pprofAddr, profilingHandler()))
		})
	}

	err = g.Wait()
	logger.Info("shutting down")
	if cerr := svc.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// serve runs srv until ctx is done, then drains it.
func serve(ctx context.Context, srv *http.Server) error {
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", srv.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown %s: %w", srv.Addr, err)
	}
	return nil
}

func profilingHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/fgprof", fgprof.Handler())
	return mux
}
