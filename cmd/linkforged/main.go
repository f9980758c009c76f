// Package main wires together the delivery service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcpubsub "cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/linkforge/linkforge/internal/api"
	"github.com/linkforge/linkforge/internal/clock/system"
	"github.com/linkforge/linkforge/internal/config"
	collydelivery "github.com/linkforge/linkforge/internal/delivery/colly"
	"github.com/linkforge/linkforge/internal/delivery/headless"
	"github.com/linkforge/linkforge/internal/engine"
	"github.com/linkforge/linkforge/internal/export"
	"github.com/linkforge/linkforge/internal/id/uuid"
	"github.com/linkforge/linkforge/internal/logging"
	"github.com/linkforge/linkforge/internal/metrics"
	"github.com/linkforge/linkforge/internal/progress"
	"github.com/linkforge/linkforge/internal/progress/sinks"
	memorypublisher "github.com/linkforge/linkforge/internal/publisher/memory"
	pubsubpublisher "github.com/linkforge/linkforge/internal/publisher/pubsub"
	"github.com/linkforge/linkforge/internal/run"
	"github.com/linkforge/linkforge/internal/schedule"
	"github.com/linkforge/linkforge/internal/scheduler"
	"github.com/linkforge/linkforge/internal/storage/gcs"
	"github.com/linkforge/linkforge/internal/storage/local"
	memorystorage "github.com/linkforge/linkforge/internal/storage/memory"
	"github.com/linkforge/linkforge/internal/store/postgres"
	"github.com/linkforge/linkforge/internal/templates"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New()
	idGen := uuid.New()

	loader := templates.NewLoader(templates.Config{
		GeneralURL: cfg.Templates.GeneralURL,
		VideoURL:   cfg.Templates.VideoURL,
		ProxyURL:   cfg.Templates.ProxyURL,
		Timeout:    time.Duration(cfg.Templates.TimeoutSeconds) * time.Second,
	}, logger.Named("templates"))
	loader.Load(ctx)

	var resultStore engine.ResultStore
	var pgStore *postgres.ResultStore
	if cfg.DB.DSN != "" {
		pgStore, err = postgres.New(ctx, postgres.Config{
			DSN:          cfg.DB.DSN,
			OutcomeTable: cfg.DB.OutcomeTable,
			RunTable:     cfg.DB.RunTable,
			MaxConns:     int32(cfg.DB.MaxOpenConns),
		})
		if err != nil {
			logger.Fatal("postgres init failed", zap.Error(err))
		}
		defer pgStore.Close()
		resultStore = pgStore
	}

	var blobStore engine.BlobStore
	switch cfg.Storage.Backend {
	case "local":
		blobStore, err = local.New(local.Config{BaseDir: cfg.Storage.LocalDir})
		if err != nil {
			logger.Fatal("local storage init failed", zap.Error(err))
		}
	case "gcs":
		client, gcsErr := gcstorage.NewClient(ctx)
		if gcsErr != nil {
			logger.Fatal("gcs client init failed", zap.Error(gcsErr))
		}
		blobStore, err = gcs.New(client, gcs.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			logger.Fatal("gcs storage init failed", zap.Error(err))
		}
	default:
		blobStore = memorystorage.NewBlobStore()
	}

	var publisher engine.Publisher
	if cfg.PubSub.ProjectID != "" {
		client, psErr := gcpubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if psErr != nil {
			logger.Fatal("pubsub client init failed", zap.Error(psErr))
		}
		defer func() {
			_ = client.Close()
		}()
		publisher = pubsubpublisher.New(client)
	} else {
		publisher = memorypublisher.New()
	}

	hubSinks := []progress.Sink{
		sinks.NewLogSink(logger.Named("progress")),
		sinks.NewPrometheusSink(),
	}
	if resultStore != nil {
		hubSinks = append(hubSinks, sinks.NewStoreSink(resultStore))
	}
	hub := progress.NewHub(progress.Config{Logger: logger.Named("hub")}, hubSinks...)

	fetcher := collydelivery.NewFetcher(collydelivery.Config{
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	})
	strategies := map[engine.Mode]engine.Strategy{
		engine.ModeFetch: collydelivery.NewDirect(fetcher, cfg.FetchTimeout()),
		engine.ModePing: collydelivery.NewPing(
			fetcher,
			func() []string { return loader.Current().Proxy },
			cfg.FetchTimeout(),
			logger.Named("ping"),
		),
	}

	var disposers []engine.Disposer
	var browser *headless.Browser
	if cfg.Headless.Enabled {
		browser, err = headless.New(headless.Config{
			MaxParallel:   cfg.Headless.MaxParallel,
			UserAgent:     cfg.Headless.UserAgent,
			NavTimeout:    cfg.NavTimeout(),
			SentinelTitle: cfg.Headless.SentinelTitle,
		})
		if err != nil {
			logger.Warn("headless browser init failed, browser modes disabled", zap.Error(err))
		} else {
			strategies[engine.ModeFrame] = headless.NewFrame(browser)
			window := headless.NewWindow(browser)
			strategies[engine.ModePopup] = window
			strategies[engine.ModeTab] = window
			disposers = append(disposers, browser)
		}
	}

	tokens := &engine.TokenSource{}
	sched := scheduler.New(tokens, strategies, hub, clock, logger.Named("scheduler"))

	mode, err := engine.ParseMode(cfg.Runs.Mode)
	if err != nil {
		logger.Fatal("invalid runs.mode", zap.Error(err))
	}
	reuse, err := engine.ParseReusePolicy(cfg.Runs.Reuse)
	if err != nil {
		logger.Fatal("invalid runs.reuse", zap.Error(err))
	}
	controller := run.NewController(
		run.Config{
			SlotCount:  cfg.Runs.SlotCount,
			Mode:       mode,
			Reuse:      reuse,
			Rerun:      cfg.Runs.Rerun,
			RerunDelay: cfg.RerunDelay(),
			Shuffle:    cfg.Runs.Shuffle,
		},
		tokens,
		sched,
		loader,
		run.Deps{
			Store:     resultStore,
			Publisher: publisher,
			Topic:     cfg.PubSub.TopicName,
			Clock:     clock,
			IDGen:     idGen,
			Hub:       hub,
			Logger:    logger.Named("runs"),
			Disposers: disposers,
		},
	)

	exporter := export.New(loader, blobStore, clock, cfg.Storage.Prefix, logger.Named("export"))
	apiServer := api.NewServer(controller, exporter, cfg, logger.Named("api"))

	cronSched, err := schedule.New(cfg.Schedule.Entries, controller, logger.Named("schedule"))
	if err != nil {
		logger.Fatal("schedule init failed", zap.Error(err))
	}
	cronSched.Start()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	cronSched.Stop()
	controller.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if err := hub.Close(shutdownCtx); err != nil {
		logger.Error("progress hub close error", zap.Error(err))
	}
	if browser != nil {
		browser.Close()
	}
	logger.Info("shutdown complete")
}
