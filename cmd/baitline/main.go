package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/baitline/baitline/internal/agent"
	"github.com/baitline/baitline/internal/api"
	"github.com/baitline/baitline/internal/bus"
	"github.com/baitline/baitline/internal/config"
	"github.com/baitline/baitline/internal/engine"
	"github.com/baitline/baitline/internal/groq"
	"github.com/baitline/baitline/internal/rategate"
	"github.com/baitline/baitline/internal/report"
	"github.com/baitline/baitline/internal/session"
	"github.com/baitline/baitline/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("baitline starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Groq client
	if cfg.GroqAPIKey == "" {
		slog.Error("GROQ_API_KEY is required")
		os.Exit(1)
	}
	llm := groq.NewClient(cfg.GroqAPIKey, cfg.GroqModel, cfg.GroqTimeout)
	if cfg.GroqBaseURL != "" {
		llm.SetBaseURL(cfg.GroqBaseURL)
	}
	slog.Info("groq client ready", "model", cfg.GroqModel)

	// Provider budget
	gate := rategate.New(cfg.Rate, slog.Default())

	// Report archive
	archive, err := store.Open(cfg.ArchivePath)
	if err != nil {
		slog.Error("failed to open report archive", "error", err)
		os.Exit(1)
	}
	defer archive.Close()
	slog.Info("report archive ready", "path", cfg.ArchivePath)

	// Evaluator callback (optional, reports still archive without it)
	var poster *report.Poster
	if cfg.CallbackURL != "" {
		poster = report.NewPoster(cfg.CallbackURL, slog.Default())
		slog.Info("callback poster ready", "url", cfg.CallbackURL)
	} else {
		slog.Warn("callback not configured, reports archive only")
	}

	// NATS fanout (optional)
	var fanout *bus.Client
	if cfg.NatsURL != "" {
		fanout, err = bus.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer fanout.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	}

	sessions := session.NewStore()
	orch := agent.New(llm, gate, cfg.MaxReplyTokens, cfg.Rate.MaxWait, slog.Default())
	eng := engine.New(sessions, orch, poster, archive, fanout, slog.Default())

	// Idle sessions get reported and dropped in the background.
	go eng.RunEviction(ctx, cfg.SessionTTL, time.Minute)

	srv := api.NewServer(cfg.Port, cfg.APIToken, eng, sessions, archive, gate, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("baitline ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown error", "error", err)
	}
	eng.Drain(shutdownCtx)
	slog.Info("baitline stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
