package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
	"github.com/mauv0809/derby-tracker/internal/config"
	"github.com/mauv0809/derby-tracker/internal/database"
	server "github.com/mauv0809/derby-tracker/internal/http"
	"github.com/mauv0809/derby-tracker/internal/ledger"
	"github.com/mauv0809/derby-tracker/internal/league"
	"github.com/mauv0809/derby-tracker/internal/live"
	"github.com/mauv0809/derby-tracker/internal/metrics"
	"github.com/mauv0809/derby-tracker/internal/notifier"
	"github.com/mauv0809/derby-tracker/internal/notifier/slack"
	"github.com/mauv0809/derby-tracker/internal/pubsub"
	"github.com/mauv0809/derby-tracker/internal/roster"
	"github.com/mauv0809/derby-tracker/internal/storage"
	"github.com/mauv0809/derby-tracker/internal/tracker"
)

func main() {
	// Start profiling timer
	startTime := time.Now()
	log.SetFormatter(log.JSONFormatter)

	cfg, err := config.Load()
	if err != nil {
		var missing *config.MissingConfigError
		if !errors.As(err, &missing) {
			log.Fatalf("Failed to load configuration: %s", err)
		}
		// Without a store there is nothing to serve but the remediation page.
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		log.Error("Serving configuration error page", "missing", missing.Missing, "port", port)
		serve(server.NewConfigErrorHandler(missing), port, nil)
		return
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	db, dbTeardown, err := database.InitDB(cfg.Store.URL, cfg.Store.APIKey, cfg.MigrationsDir)
	dbInitDuration := time.Since(startTime)
	log.Info("Database initialization time recorded", "duration_ms", dbInitDuration.Milliseconds())
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer func() {
		log.Info("Closing database connection")
		dbTeardown()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewRealClock()
	leagueStore := league.New(db, clock)
	lineStore := ledger.NewStore(db, clock)
	resolver := roster.NewResolver(leagueStore)
	metricsSvc := metrics.NewService()
	metricsHandler := metrics.NewMetricsHandler()

	var ps pubsub.PubSubClient = pubsub.NewNoop()
	if cfg.ProjectID != "" {
		ps, err = pubsub.New(ctx, cfg.ProjectID)
		if err != nil {
			log.Fatalf("Failed to initialize pubsub: %s", err)
		}
	}
	defer ps.Close()

	var notif notifier.Notifier = notifier.NewNoop()
	if cfg.Slack.Enabled() {
		notif = slack.NewNotifier(cfg.Slack.Token, cfg.Slack.ChannelID, metricsSvc)
	} else {
		log.Info("Slack is not configured, bout results will not be posted")
	}

	uploader := storage.NewDisabled()
	if cfg.Logos.Enabled() {
		uploader, err = storage.NewS3Uploader(ctx, storage.S3UploaderConfig{
			Endpoint:        cfg.Logos.Endpoint,
			Region:          cfg.Logos.Region,
			AccessKeyID:     cfg.Logos.AccessKeyID,
			SecretAccessKey: cfg.Logos.SecretAccessKey,
			BucketName:      cfg.Logos.Bucket,
			PublicBaseURL:   cfg.Logos.PublicBaseURL,
		})
		if err != nil {
			log.Fatalf("Failed to initialize logo storage: %s", err)
		}
	} else {
		log.Info("Logo storage is not configured, uploads are disabled")
	}

	hub := live.NewHub(cfg.CORSOrigins)
	go hub.Run(ctx)

	registry := tracker.NewRegistry(leagueStore, lineStore, resolver, hub, ps, metricsSvc, tracker.Options{
		Clock:       clock,
		JamDuration: cfg.JamDuration,
	})

	s := server.NewServer(leagueStore, resolver, registry, hub, uploader, notif, ps, metricsHandler, cfg)

	// --- Record startup time ---
	startupDuration := time.Since(startTime)
	metricsSvc.SetStartupTime(startupDuration.Seconds())
	log.Info("Startup time recorded", "duration_ms", startupDuration.Milliseconds())

	serve(s, cfg.Port, func() {
		registry.CloseAll()
		cancel()
	})
}

// serve runs handler until an interrupt, then shuts down gracefully and calls
// onShutdown before returning.
func serve(handler http.Handler, port string, onShutdown func()) {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	go func() {
		log.Info("Server started", "port", port)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Server shutdown failed", "error", err)
		} else {
			log.Info("Server gracefully stopped")
		}
	}

	if onShutdown != nil {
		onShutdown()
	}
	log.Info("Server process shutting down")
}
