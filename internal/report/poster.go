package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Poster delivers finished reports to the evaluator callback endpoint.
type Poster struct {
	url    string
	client *http.Client
	log    *slog.Logger
}

// NewPoster returns a callback poster, or nil when no URL is configured.
func NewPoster(url string, logger *slog.Logger) *Poster {
	if url == "" {
		return nil
	}
	return &Poster{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    logger,
	}
}

// Post sends one report. A single retry covers transient failures; after
// that the report is logged and dropped, delivery never blocks the
// serving path for long.
func (p *Poster) Post(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(500 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		lastErr = p.send(ctx, body)
		if lastErr == nil {
			p.log.Info("report delivered", "session", payload.SessionID, "detected", payload.ScamDetected)
			return nil
		}
	}
	p.log.Error("report delivery failed", "session", payload.SessionID, "err", lastErr)
	return lastErr
}

func (p *Poster) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned %d", resp.StatusCode)
	}
	return nil
}
