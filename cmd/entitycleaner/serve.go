package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/hazyhaar/entity-cleaner/pkg/api"
	"github.com/hazyhaar/entity-cleaner/pkg/importer"
)

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to the YAML config file")
	fs.Parse(args)
	explicit := false
	fs.Visit(func(f *flag.Flag) { explicit = explicit || f.Name == "config" })

	cfg, err := loadServeConfig(*cfgPath, explicit)
	if err != nil {
		fatalf("%v", err)
	}
	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fatalf("%v", err)
	}
	slog.SetDefault(logger)

	build := func() (http.Handler, error) {
		ccfg, err := cfg.cleanerConfig()
		if err != nil {
			return nil, err
		}
		st, err := loadStack(sources{RulesFile: cfg.RulesFile, LegalFormsDir: cfg.LegalFormsDir}, ccfg, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("reference data loaded",
			"rules", st.catalog.Len(),
			"jurisdictions", len(st.dict.List()),
			"countries", st.countries.Len())
		svc := &api.Service{Names: st.names, Countries: st.countries, Catalog: st.catalog, Dict: st.dict}
		return api.NewRouter(svc, api.Options{
			Logger:        logger,
			RatePerSecond: cfg.RateLimit.PerSecond,
			Burst:         cfg.RateLimit.Burst,
			Version:       version,
		}), nil
	}

	h, err := build()
	if err != nil {
		logger.Error("failed to load reference data", "error", err)
		os.Exit(1)
	}
	var current atomic.Pointer[http.Handler]
	current.Store(&h)

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			(*current.Load()).ServeHTTP(w, r)
		}),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// SIGHUP rebuilds rules and legal forms from disk and swaps the handler.
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for range sighup {
			logger.Info("SIGHUP received, reloading reference data")
			next, err := build()
			if err != nil {
				logger.Error("reload failed, keeping current data", "error", err)
				continue
			}
			current.Store(&next)
		}
	}()

	if cfg.SourcesDB != "" {
		sdb, err := importer.OpenSourceDB(cfg.SourcesDB)
		if err != nil {
			logger.Error("open sources db", "error", err)
			os.Exit(1)
		}
		defer sdb.Close()
		if err := sdb.Seed(ctx, importer.All()); err != nil {
			logger.Error("seed sources", "error", err)
			os.Exit(1)
		}
		go importer.NewChecker(sdb, logger, cfg.CheckInterval).Run(ctx)
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("entitycleaner listening", "addr", cfg.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		logger.Error("server error", "error", err)
		stop()
		os.Exit(1)
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
