// Package rategate is the admission controller for the external generation
// service. It enforces request and token ceilings over both a minute and a
// day window, and prefers back-pressure (a bounded wait for the binding
// window to reset) over hard rejection.
package rategate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/baitline/baitline/internal/config"
)

// ErrRateExceeded means admission would require waiting longer than the
// caller allowed. The caller is expected to take the deterministic
// fallback path, not to retry.
var ErrRateExceeded = errors.New("rate budget exhausted")

type window struct {
	span        time.Duration
	start       time.Time
	requests    int
	tokens      int
	maxRequests int
	maxTokens   int
}

// roll resets the counters when the wall clock has moved past the window.
// Rollover is lazy: there is no background timer, only this check at each
// Admit/Record.
func (w *window) roll(now time.Time) {
	if now.Sub(w.start) >= w.span {
		w.start = now
		w.requests = 0
		w.tokens = 0
	}
}

// blockedUntil returns the zero time if one more request of estimatedTokens
// fits, otherwise the instant at which this window resets.
func (w *window) blockedUntil(estimatedTokens int) time.Time {
	if w.requests+1 > w.maxRequests || w.tokens+estimatedTokens > w.maxTokens {
		return w.start.Add(w.span)
	}
	return time.Time{}
}

// Gate is the process-wide ledger shared by every session. All counter
// reads and writes happen under one mutex; it is the only cross-session
// shared mutable state in the service.
type Gate struct {
	mu     sync.Mutex
	minute window
	day    window
	now    func() time.Time
	logger *slog.Logger
}

func New(cfg config.RateConfig, logger *slog.Logger) *Gate {
	g := &Gate{
		minute: window{span: time.Minute, maxRequests: cfg.RequestsPerMinute, maxTokens: cfg.TokensPerMinute},
		day:    window{span: 24 * time.Hour, maxRequests: cfg.RequestsPerDay, maxTokens: cfg.TokensPerDay},
		now:    time.Now,
		logger: logger,
	}
	start := g.now()
	g.minute.start = start
	g.day.start = start
	return g
}

// SetClock replaces the wall clock. Tests only.
func (g *Gate) SetClock(now func() time.Time) {
	g.mu.Lock()
	g.now = now
	g.mu.Unlock()
}

// Admit blocks until one request of estimatedTokens fits in both windows,
// or returns ErrRateExceeded if that would take longer than maxWait. On
// success the request and the estimate are reserved in the ledger so that
// concurrent admissions cannot jointly overshoot a ceiling; Record settles
// the reservation with the provider's actual usage.
func (g *Gate) Admit(ctx context.Context, estimatedTokens int, maxWait time.Duration) error {
	deadline := g.now().Add(maxWait)

	for {
		g.mu.Lock()
		now := g.now()
		g.minute.roll(now)
		g.day.roll(now)

		until := g.minute.blockedUntil(estimatedTokens)
		if dayUntil := g.day.blockedUntil(estimatedTokens); dayUntil.After(until) {
			until = dayUntil
		}

		if until.IsZero() || !until.After(now) {
			g.minute.requests++
			g.minute.tokens += estimatedTokens
			g.day.requests++
			g.day.tokens += estimatedTokens
			g.mu.Unlock()
			return nil
		}
		g.mu.Unlock()

		if until.After(deadline) {
			g.logger.Warn("rate gate refused admission",
				"wait", until.Sub(now).Round(time.Millisecond),
				"max_wait", maxWait,
			)
			return ErrRateExceeded
		}

		g.logger.Info("rate gate waiting for window reset", "wait", until.Sub(now).Round(time.Millisecond))
		timer := time.NewTimer(until.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Record settles an earlier Admit reservation with the tokens the provider
// actually billed. The ledger ends up carrying real usage, not estimates.
func (g *Gate) Record(estimatedTokens, actualTokens int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.minute.roll(now)
	g.day.roll(now)

	delta := actualTokens - estimatedTokens
	if g.minute.tokens+delta >= 0 {
		g.minute.tokens += delta
	}
	if g.day.tokens+delta >= 0 {
		g.day.tokens += delta
	}
}

// Release cancels an Admit reservation when the call never reached the
// provider (transport failure before any tokens were consumed).
func (g *Gate) Release(estimatedTokens int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.minute.roll(now)
	g.day.roll(now)

	if g.minute.requests > 0 {
		g.minute.requests--
	}
	if g.day.requests > 0 {
		g.day.requests--
	}
	if g.minute.tokens >= estimatedTokens {
		g.minute.tokens -= estimatedTokens
	}
	if g.day.tokens >= estimatedTokens {
		g.day.tokens -= estimatedTokens
	}
}

// Usage is a point-in-time snapshot of the ledger, exposed on the stats
// endpoint.
type Usage struct {
	RequestsThisMinute int `json:"requests_this_minute"`
	RequestsToday      int `json:"requests_today"`
	TokensThisMinute   int `json:"tokens_this_minute"`
	TokensToday        int `json:"tokens_today"`
	RPMRemaining       int `json:"rpm_remaining"`
	RPDRemaining       int `json:"rpd_remaining"`
	TPMRemaining       int `json:"tpm_remaining"`
	TPDRemaining       int `json:"tpd_remaining"`
}

func (g *Gate) Usage() Usage {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.minute.roll(now)
	g.day.roll(now)

	return Usage{
		RequestsThisMinute: g.minute.requests,
		RequestsToday:      g.day.requests,
		TokensThisMinute:   g.minute.tokens,
		TokensToday:        g.day.tokens,
		RPMRemaining:       g.minute.maxRequests - g.minute.requests,
		RPDRemaining:       g.day.maxRequests - g.day.requests,
		TPMRemaining:       g.minute.maxTokens - g.minute.tokens,
		TPDRemaining:       g.day.maxTokens - g.day.tokens,
	}
}
