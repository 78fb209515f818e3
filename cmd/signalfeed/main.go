package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SignalFeed/internal/alerts"
	"SignalFeed/internal/collector"
	"SignalFeed/internal/config"
	"SignalFeed/internal/generator"
	"SignalFeed/internal/logger"
	"SignalFeed/internal/notifier"
	"SignalFeed/internal/recommend"
	"SignalFeed/internal/recorder"
	"SignalFeed/internal/scheduler"
	"SignalFeed/internal/server"
	"SignalFeed/internal/telemetry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	// Load config
	cfgPath := config.DefaultPath
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("load config")
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger.SetGlobalLogger(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	log.Info().Str("config", cfgPath).Msg("SignalFeed starting")

	// Init store
	store, err := recorder.Open(cfg.Database.SQLitePath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer store.Close()

	// Init fetcher and collector
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "rest":
		fetcher = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.DataSource.Proxy)
	default:
		fetcher = collector.NewYahooFetcher(cfg.DataSource.Proxy)
	}
	col := collector.NewCollector(fetcher, cfg.DataSource.Symbols, log)
	log.Info().Str("source", fetcher.Name()).Strs("symbols", cfg.DataSource.Symbols).Msg("data source ready")

	// Init generator
	var gen recommend.CandidateGenerator
	switch cfg.Generator.Provider {
	case "rules":
		gen = generator.NewRules()
	default:
		gen = generator.NewGemini(generator.GeminiConfig{
			APIKey:   cfg.Generator.APIKey,
			Model:    cfg.Generator.Model,
			Endpoint: cfg.Generator.Endpoint,
			Timeout:  cfg.Generator.Timeout,
		}, log)
	}
	log.Info().Str("generator", cfg.Generator.Provider).Msg("generator ready")

	// Init telemetry
	sinks := telemetry.Multi{store}
	var (
		metrics        *telemetry.Metrics
		metricsHandler http.Handler
	)
	if cfg.Telemetry.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = telemetry.NewMetrics(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		sinks = append(sinks, metrics)
	}
	if len(cfg.Telemetry.KafkaBrokers) > 0 {
		kafka, err := telemetry.NewKafka(cfg.Telemetry.KafkaBrokers, cfg.Telemetry.KafkaTopic)
		if err != nil {
			// Telemetry is best-effort; runs still persist to the store.
			log.Warn().Err(err).Msg("kafka producer unavailable, run records stay local")
		} else {
			defer kafka.Close()
			sinks = append(sinks, kafka)
			log.Info().Strs("brokers", cfg.Telemetry.KafkaBrokers).Str("topic", cfg.Telemetry.KafkaTopic).Msg("kafka telemetry enabled")
		}
	}

	// Init orchestrator and alert monitor
	orch := recommend.NewOrchestrator(recommend.Deps{
		Regime:    store,
		Market:    col,
		Generator: gen,
		Profiles:  store,
		Ideas:     store,
		Feeds:     store,
		Telemetry: sinks,
	}, cfg.Strategy(), cfg.Orchestrator.Concurrency, log)
	monitor := alerts.NewMonitor(col, store, cfg.DataSource.Symbols, cfg.Strategy(), log)

	// Init Telegram notifier
	var (
		notify notifier.Notifier
		tn     *notifier.TelegramNotifier
	)
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.DataSource.Proxy, log)
		notify = tn
	} else {
		log.Warn().Msg("telegram not configured, chat notifications disabled")
	}

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, orch, monitor, notify, cfg.Location(), log)
	if metrics != nil {
		sched.Observer = metrics
	}
	if err := sched.RegisterAll(cfg.Schedule.RecommendationsCron, cfg.Schedule.AlertsCron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	// Start HTTP API
	srv := server.New(server.Config{
		Addr:    cfg.Server.Addr,
		Log:     log,
		Runs:    sched,
		Alerts:  sched,
		Store:   store,
		Admin:   store,
		Metrics: metricsHandler,
		Today:   sched.Today,
	})
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, running recommendations now")
		go func() {
			if _, err := sched.RunForDate(ctx, sched.Today()); err != nil {
				log.Error().Err(err).Msg("startup run failed")
			}
		}()
	}

	log.Info().Msg("SignalFeed is running, press Ctrl+C to stop")
	<-ctx.Done()

	log.Info().Msg("shutdown signal received, stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown")
	}
	log.Info().Msg("SignalFeed stopped")
}
