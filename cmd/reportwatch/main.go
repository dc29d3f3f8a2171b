// Command reportwatch tails finished-session reports off the message bus
// and prints one JSON line per report to stdout, for analyst tooling and
// quick field checks without touching the archive.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/baitline/baitline/internal/bus"
	"github.com/baitline/baitline/internal/config"
	"github.com/baitline/baitline/internal/report"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if cfg.NatsURL == "" {
		logger.Error("NATS_URL is required")
		os.Exit(1)
	}

	client, err := bus.NewClient(cfg.NatsURL, cfg.NatsToken, logger)
	if err != nil {
		logger.Error("failed to connect to nats", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	err = client.Subscribe(bus.SubjectReport, func(subject string, data []byte) {
		var p report.Payload
		if err := json.Unmarshal(data, &p); err != nil {
			logger.Warn("undecodable report", "subject", subject, "error", err)
			return
		}
		line, err := json.Marshal(p)
		if err != nil {
			logger.Warn("re-encode failed", "session", p.SessionID, "error", err)
			return
		}
		fmt.Println(string(line))
	})
	if err != nil {
		logger.Error("subscribe failed", "error", err)
		os.Exit(1)
	}
	logger.Info("watching reports", "subject", bus.SubjectReport)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")
}
