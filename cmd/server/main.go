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

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vitals-monitor/internal/alerts"
	"vitals-monitor/internal/anomaly"
	"vitals-monitor/internal/api"
	"vitals-monitor/internal/config"
	"vitals-monitor/internal/console"
	"vitals-monitor/internal/health"
	"vitals-monitor/internal/history"
	"vitals-monitor/internal/ingest"
	"vitals-monitor/internal/logs"
	"vitals-monitor/internal/metrics"
	"vitals-monitor/internal/monitor"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML config file")
	autostart := flag.Bool("autostart", true, "start monitoring immediately")
	flag.Parse()

	// Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Logger
	level, err := logs.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	zl := logs.NewZap(level)
	defer func() { _ = zl.Sync() }()
	logger := logs.NewLogger(cfg.Log.Buffer, level, logs.WithZap(zl))

	// Metrics
	metricsRegistry := metrics.NewRegistry()

	// Ingestion
	var live ingest.Source
	if cfg.Feed.URL != "" {
		live = ingest.NewLiveClient(cfg.Feed.URL, cfg.Feed.Token)
	}
	adapter := ingest.NewAdapter(
		live,
		ingest.NewSynthetic(nil, nil),
		cfg.FetchTimeout(),
		logger.With("ingest"),
		metricsRegistry,
	)

	// Alert publishers
	var publishers []alerts.Publisher
	if cfg.Alerts.Webhook != "" {
		webhook, err := alerts.NewWebhookPublisher(cfg.Alerts.Webhook, logger.With("webhook"), metricsRegistry)
		if err != nil {
			return err
		}
		defer webhook.Close()
		publishers = append(publishers, webhook)
	}
	if cfg.KafkaEnabled() {
		kafkaPub, err := alerts.NewKafkaPublisher(cfg.Alerts.Kafka.Brokers, cfg.Alerts.Kafka.Topic, logger.With("kafka"), metricsRegistry)
		if err != nil {
			return err
		}
		defer kafkaPub.Close()
		publishers = append(publishers, kafkaPub)
	}

	// Engine
	controller := monitor.NewController(
		monitor.Config{
			SubjectID:        cfg.SubjectID,
			SamplingInterval: cfg.SamplingInterval,
			AnalysisInterval: cfg.AnalysisInterval,
		},
		history.NewBuffer(cfg.HistoryCapacity, metricsRegistry),
		adapter,
		anomaly.NewDetector(logger.With("anomaly"), metricsRegistry),
		health.NewAnalyzer(logger),
		alerts.NewDispatcher(cfg.AlertCapacity, cfg.SubjectID, logger.With("alerts"), metricsRegistry, publishers...),
		logger.With("monitor"),
		metricsRegistry,
	)
	if *autostart {
		controller.Start()
	}
	defer controller.Stop()

	// API
	handler := api.NewHandler(controller, metricsRegistry, logger, cfg.ChartWindow)
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.RegisterRoutes(mux.NewRouter(), handler, cfg.HTTP.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server started", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.Console.Enabled {
		reporter := console.NewReporter(controller, os.Stdout, cfg.AnalysisInterval, logger.With("console"))
		g.Go(func() error {
			reporter.Start(gctx)
			return nil
		})
	}

	return g.Wait()
}
