package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OCharnyshevich/amr-mesh/internal/config"
	"github.com/OCharnyshevich/amr-mesh/internal/session"
	"github.com/OCharnyshevich/amr-mesh/internal/storage"
)

func main() {
	cfg := config.DefaultConfig()

	var (
		dataDir   = flag.String("data", "./data", "directory for config and snapshots")
		configSrc = flag.String("config-src", "", "go-getter address of a bundle holding config.json")
		serve     = flag.Bool("serve", false, "keep serving metrics after the run until interrupted")
		logLevel  = flag.String("log-level", "info", "log level: debug, info, warn or error")
		maxLevel  = flag.Uint("max-level", uint(cfg.MaxLevel), "finest refinement level")
		initLevel = flag.Uint("initial-level", uint(cfg.InitialLevel), "uniform level of the initial blocks")
	)
	flag.StringVar(&cfg.Population, "population", cfg.Population, "initial population: full, random, noise or sphere")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "population seed")
	flag.StringVar(&cfg.SnapshotName, "snapshot", cfg.SnapshotName, "snapshot name")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "listen address for /metrics, empty to disable")
	flag.Parse()
	cfg.MaxLevel = uint32(*maxLevel)
	cfg.InitialLevel = uint32(*initLevel)

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level %q\n", *logLevel)
		os.Exit(2)
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *dataDir, *configSrc, *serve, log); err != nil {
		log.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, dataDir, configSrc string, serve bool, log *slog.Logger) error {
	store, err := storage.New(dataDir, log)
	if err != nil {
		return err
	}

	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fromFile := config.DefaultConfig()
	if configSrc != "" {
		bundle := filepath.Join(dataDir, "bundle")
		if err := os.RemoveAll(bundle); err != nil {
			return err
		}
		log.Info("fetching config bundle", "src", configSrc)
		if err := config.Fetch(ctx, configSrc, bundle); err != nil {
			return err
		}
		if _, err := storage.ReadConfig(filepath.Join(bundle, "config.json"), fromFile); err != nil {
			return err
		}
	} else if err := store.LoadConfig(fromFile); err != nil {
		return err
	}
	config.Merge(cfg, fromFile, explicit)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", "error", err)
			}
		}()
		defer srv.Close()
		log.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	sess, err := session.New(cfg, store, reg, log)
	if err != nil {
		return err
	}

	applied, err := sess.ApplyEdits()
	if err != nil {
		return errors.Join(err, sess.Close())
	}
	log.Info("edits applied", "applied", applied, "blocks", sess.Size())

	if err := sess.Verify(); err != nil {
		return errors.Join(err, sess.Close())
	}
	path, err := sess.Save()
	if err != nil {
		return errors.Join(err, sess.Close())
	}
	if err := store.SaveConfig(cfg); err != nil {
		return errors.Join(err, sess.Close())
	}
	log.Info("run complete", "snapshot", path)

	if serve && cfg.MetricsAddr != "" {
		<-ctx.Done()
		log.Info("shutting down")
	}
	return sess.Close()
}
