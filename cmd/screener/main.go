package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"screener-systemv1/config"
	"screener-systemv1/internal/api"
	"screener-systemv1/internal/gateway"
	"screener-systemv1/internal/logger"
	"screener-systemv1/internal/metrics"
	"screener-systemv1/internal/model"
	"screener-systemv1/internal/scheduler"
	"screener-systemv1/internal/screener"
	"screener-systemv1/internal/store"
	"screener-systemv1/internal/store/redispub"
	"screener-systemv1/internal/store/sqlitebars"
)

func main() {
	log := logger.Init("screener", slog.LevelInfo)
	cfg := config.Load()
	met := metrics.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source, err := sqlitebars.NewReader(cfg.SQLitePath, log)
	if err != nil {
		log.Error("open bar source", slog.Any("err", err))
		os.Exit(1)
	}
	defer source.Close()

	// The Redis mirror is optional: the screener stays fully functional
	// without it.
	var sink model.VectorSink
	if pub, err := redispub.New(redispub.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		Logger:   log,
	}); err != nil {
		log.Warn("redis mirror unavailable, continuing without it", slog.Any("err", err))
	} else {
		sink = pub
		defer pub.Close()
	}

	st := store.New(store.Config{
		Source:  source,
		Sink:    sink,
		Symbols: cfg.ParseSymbols(),
		Workers: cfg.RefreshWorkers,
		Timeout: cfg.RefreshTimeout,
		Logger:  log,
		Metrics: met,
	})

	registry := screener.NewRegistry()
	hub := gateway.NewHub(st, registry, log, met)
	go hub.Run(ctx)

	sched := scheduler.New(st, cfg.RefreshInterval, log)
	sched.Start(ctx)
	defer sched.Stop()
	// Warm the cache before serving.
	sched.TriggerRefresh()

	go func() {
		if err := metrics.Serve(cfg.MetricsAddr, log); err != nil {
			log.Error("metrics server stopped", slog.Any("err", err))
		}
	}()

	router := api.NewRouter(api.NewServer(st, sched, log), hub)
	go func() {
		log.Info("listening", slog.String("addr", cfg.ListenAddr))
		if err := router.Run(cfg.ListenAddr); err != nil {
			log.Error("http server stopped", slog.Any("err", err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		log.Info("shutting down", slog.String("signal", s.String()))
	case <-ctx.Done():
	}
}
