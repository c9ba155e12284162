package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"autonomis-worker/internal/bus"
	"autonomis-worker/internal/config"
	"autonomis-worker/internal/notify"
	"autonomis-worker/internal/poller"
	"autonomis-worker/internal/storage"
	"autonomis-worker/internal/trigger"
	"autonomis-worker/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to db", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()
	repo := storage.NewRepository(store)

	consumer, err := bus.NewConsumer(cfg.NATSURL)
	if err != nil {
		logger.Error("failed to connect to nats", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer consumer.Close()

	proc := &worker.Processor{
		Repo:           repo,
		Poller:         poller.New(),
		Notifier:       notify.New(cfg.SlackWebhookURL, cfg.SlackBotToken, cfg.SlackChannelID, cfg.BaseURL, logger),
		Delegator:      trigger.New(cfg.BaseURL, cfg.WorkerSecret, logger),
		Logger:         logger,
		DelegateAlerts: cfg.DelegateAlerts,
	}

	go startAdminServer(cfg.AdminPort, store, logger)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("alert worker listening",
		slog.String("subject", cfg.QueueSubject),
		slog.String("queue", cfg.QueueGroup),
		slog.Int("workers", cfg.Workers))
	err = consumer.Run(ctx, cfg.QueueSubject, cfg.QueueGroup, cfg.Workers, func(ctx context.Context, data []byte) error {
		job, err := worker.ParseJob(data)
		if err != nil {
			// A malformed envelope is a producer bug, not something a retry
			// can fix.
			logger.Error("discarding undecodable job", slog.String("error", err.Error()))
			return nil
		}
		logger.Info("processing job",
			slog.String("kind", job.Kind),
			slog.String("rule_id", job.RuleID))
		return proc.Process(ctx, job)
	})
	if err != nil {
		logger.Error("consumer error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func startAdminServer(port string, store *storage.Store, logger *slog.Logger) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()
		w.Header().Set("Content-Type", "application/json")
		if err := store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "unavailable", "error": err.Error()})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	})

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	logger.Info("worker admin server listening", slog.String("port", port))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("admin server error", slog.String("error", err.Error()))
	}
}
