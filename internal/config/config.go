package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port           int
	LogLevel       string
	APIToken       string
	GroqAPIKey     string
	GroqModel      string
	GroqBaseURL    string
	GroqTimeout    time.Duration
	MaxReplyTokens int
	CallbackURL    string
	NatsURL        string
	NatsToken      string
	ArchivePath    string
	SessionTTL     time.Duration
	Rate           RateConfig
}

// RateConfig mirrors the Groq free-tier ceilings. All four are enforced.
type RateConfig struct {
	RequestsPerMinute int
	RequestsPerDay    int
	TokensPerMinute   int
	TokensPerDay      int
	MaxWait           time.Duration
}

func Load() Config {
	return Config{
		Port:           envInt("BAITLINE_PORT", 8780),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		APIToken:       envStr("BAITLINE_API_TOKEN", ""),
		GroqAPIKey:     envStr("GROQ_API_KEY", ""),
		GroqModel:      envStr("BAITLINE_MODEL", "llama-3.3-70b-versatile"),
		GroqBaseURL:    envStr("GROQ_BASE_URL", ""),
		GroqTimeout:    envDuration("GROQ_TIMEOUT", 8*time.Second),
		MaxReplyTokens: envInt("BAITLINE_MAX_TOKENS", 250),
		CallbackURL:    envStr("EVALUATOR_CALLBACK_URL", ""),
		NatsURL:        envStr("NATS_URL", ""),
		NatsToken:      envStr("NATS_TOKEN", ""),
		ArchivePath:    envStr("BAITLINE_ARCHIVE_PATH", "data/reports.db"),
		SessionTTL:     envDuration("SESSION_IDLE_TTL", 30*time.Minute),
		Rate: RateConfig{
			RequestsPerMinute: envInt("RATE_REQUESTS_PER_MINUTE", 30),
			RequestsPerDay:    envInt("RATE_REQUESTS_PER_DAY", 1000),
			TokensPerMinute:   envInt("RATE_TOKENS_PER_MINUTE", 12000),
			TokensPerDay:      envInt("RATE_TOKENS_PER_DAY", 100000),
			MaxWait:           envDuration("RATE_MAX_WAIT", 2*time.Second),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
