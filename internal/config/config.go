package config

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Recomputation timing
	Debounce      time.Duration
	FrameInterval time.Duration
	Cooldown      time.Duration
	SettleTimeout time.Duration

	// Upload limits
	MaxUploadBytes int64

	// Resources referenced by uploaded documents. Only data: URLs and
	// public http(s) sources under AllowedBases are fetched.
	FetchTimeout time.Duration
	AllowedBases []string

	// Logging
	LogFormat string
	LogLevel  string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8095"),

		APIKey: os.Getenv("PAGEFLOW_API_KEY"),

		Debounce:      envDuration("PAGEFLOW_DEBOUNCE", 80*time.Millisecond),
		FrameInterval: envDuration("PAGEFLOW_FRAME", 16*time.Millisecond),
		Cooldown:      envDuration("PAGEFLOW_COOLDOWN", 40*time.Millisecond),
		SettleTimeout: envDuration("PAGEFLOW_SETTLE_TIMEOUT", 10*time.Second),

		MaxUploadBytes: envInt64("PAGEFLOW_MAX_UPLOAD_BYTES", 20971520), // 20MB

		FetchTimeout: envDuration("PAGEFLOW_FETCH_TIMEOUT", 10*time.Second),
		AllowedBases: envList("PAGEFLOW_ALLOWED_BASES"),

		LogFormat: strings.ToLower(envOr("PAGEFLOW_LOG_FORMAT", "json")),
		LogLevel:  strings.ToLower(envOr("PAGEFLOW_LOG_LEVEL", "info")),
	}

	if cfg.Debounce <= 0 {
		cfg.Debounce = 80 * time.Millisecond
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = 16 * time.Millisecond
	}
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 40 * time.Millisecond
	}
	if cfg.SettleTimeout <= 0 {
		cfg.SettleTimeout = 10 * time.Second
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20971520
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("PAGEFLOW_API_KEY is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("PAGEFLOW_LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	for _, base := range c.AllowedBases {
		u, err := url.Parse(base)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("PAGEFLOW_ALLOWED_BASES: %q is not an http(s) URL", base)
		}
	}
	return nil
}

// Logger builds the process logger described by the config.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("PAGEFLOW_LOG_LEVEL: %w", err)
	}
	return level, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
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

// envList reads a comma-separated list, dropping empty entries.
func envList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
