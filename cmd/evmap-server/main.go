package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammed-shakir/seattle-ev-map/internal/cache/redisstore"
	"github.com/mohammed-shakir/seattle-ev-map/internal/core/config"
	"github.com/mohammed-shakir/seattle-ev-map/internal/core/httpclient"
	"github.com/mohammed-shakir/seattle-ev-map/internal/core/observability"
	"github.com/mohammed-shakir/seattle-ev-map/internal/core/router"
	"github.com/mohammed-shakir/seattle-ev-map/internal/core/server"
	"github.com/mohammed-shakir/seattle-ev-map/internal/engine"
	"github.com/mohammed-shakir/seattle-ev-map/internal/geo/orbgeo"
	"github.com/mohammed-shakir/seattle-ev-map/internal/logger"
	h3mapper "github.com/mohammed-shakir/seattle-ev-map/internal/mapper/h3"
	"github.com/mohammed-shakir/seattle-ev-map/internal/source"
	reload "github.com/mohammed-shakir/seattle-ev-map/pkg/reload/kafka"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	config.LoadDotEnv()
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "evmap",
		Component: "server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting evmap server",
		"addr", cfg.Addr,
		"version", Version,
		"stations", cfg.Source.StationsURL,
		"neighborhoods", cfg.Source.NeighborhoodsURL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srcOpts := source.Options{
		Logger:         appLog,
		HTTPClient:     httpclient.NewOutbound(cfg.Source.FetchTimeout),
		S3Region:       cfg.Source.S3Region,
		MinioAccessKey: cfg.Source.MinioAccessKey,
		MinioSecretKey: cfg.Source.MinioSecretKey,
		MinioSecure:    cfg.Source.MinioSecure,
	}
	stations, err := source.Open(ctx, cfg.Source.StationsURL, srcOpts)
	if err != nil {
		appLog.Error("stations source", "err", err)
		return 1
	}
	neighborhoods, err := source.Open(ctx, cfg.Source.NeighborhoodsURL, srcOpts)
	if err != nil {
		appLog.Error("neighborhoods source", "err", err)
		return 1
	}

	invalidators := map[string]reload.Invalidator{}
	if cfg.Source.CacheEnabled {
		rc, err := redisstore.New(ctx, cfg.RedisAddr)
		if err != nil {
			// the service still works from upstream, just without the shared copy
			appLog.Warn("redis unavailable; source cache disabled", "addr", cfg.RedisAddr, "err", err)
		} else {
			defer func() { _ = rc.Close() }()
			cs := source.NewCached(stations, rc, reload.DatasetStations, cfg.Source.CacheTTL, appLog)
			cn := source.NewCached(neighborhoods, rc, reload.DatasetNeighborhoods, cfg.Source.CacheTTL, appLog)
			stations, neighborhoods = cs, cn
			invalidators[reload.DatasetStations] = cs
			invalidators[reload.DatasetNeighborhoods] = cn
			appLog.Info("source cache enabled", "redis", cfg.RedisAddr, "ttl", cfg.Source.CacheTTL)
		}
	}

	eng, err := engine.New(engine.Options{
		Stations:        stations,
		Neighborhoods:   neighborhoods,
		Geometry:        orbgeo.New(),
		Cells:           h3mapper.New(),
		ClusterRes:      cfg.ClusterRes,
		SearchCacheSize: cfg.SearchCacheSize,
		FetchTimeout:    cfg.Source.FetchTimeout,
		Logger:          appLog,
	})
	if err != nil {
		appLog.Error("engine setup failed", "err", err)
		return 1
	}
	if err := eng.Reload(ctx); err != nil {
		if errors.Is(err, engine.ErrUpstream) {
			appLog.Error("dataset sources unreachable", "err", err)
		} else {
			appLog.Error("initial dataset load failed", "err", err)
		}
		return 1
	}

	locator := buildLocator(cfg, appLog)

	runner := reload.New(reload.FromApp(cfg.Reload), eng, reload.Options{
		Logger:       appLog,
		Register:     prometheus.DefaultRegisterer,
		Invalidators: invalidators,
	})
	if err := runner.Start(ctx); err != nil {
		appLog.Error("reload runner start failed", "err", err)
		return 1
	}
	defer runner.Stop()

	handlers := router.New(appLog, cfg, eng, locator)
	if err := server.Run(ctx, cfg, appLog, server.NewHandler(appLog, handlers, eng, runner)); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
