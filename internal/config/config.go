package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is built once at startup and passed by reference. Nothing mutates it at
// runtime; fee splits live on the rows they were computed for, so changing an
// env var never rewrites history.
type Config struct {
	AppAddr string
	GinMode string

	DBDSN string

	JWTSecret string

	ProcessorAPIBase       string
	ProcessorAPIKey        string
	ProcessorWebhookSecret string

	// PlatformFeeRate is the single authoritative commission rate. Product copy
	// elsewhere mentions an 85/15 split; treat that as stale until product says
	// otherwise and keep one knob here.
	PlatformFeeRate float64
	Currency        string
	PayoutWeekday   time.Weekday
	MinPayoutCents  int64

	// Intents stuck in requires_action/requires_capture beyond this window are
	// swept to canceled. Bookings only exist after capture, so there is nothing
	// booking-side to clean up.
	IntentAbandonAfter time.Duration

	AdminTokenBcrypt string
}

func FromEnv() (Config, error) {
	cfg := Config{
		AppAddr:                envOr("APP_ADDR", ":8080"),
		GinMode:                strings.TrimSpace(os.Getenv("GIN_MODE")),
		DBDSN:                  strings.TrimSpace(os.Getenv("DB_DSN")),
		JWTSecret:              strings.TrimSpace(os.Getenv("JWT_SECRET")),
		ProcessorAPIBase:       envOr("PROCESSOR_API_BASE", "https://api.processor.example"),
		ProcessorAPIKey:        strings.TrimSpace(os.Getenv("PROCESSOR_API_KEY")),
		ProcessorWebhookSecret: strings.TrimSpace(os.Getenv("PROCESSOR_WEBHOOK_SECRET")),
		Currency:               strings.ToUpper(envOr("PLATFORM_CURRENCY", "GBP")),
		AdminTokenBcrypt:       strings.TrimSpace(os.Getenv("ADMIN_TOKEN_BCRYPT")),
	}

	rate, err := parseFloat(envOr("PLATFORM_FEE_RATE", "0.10"))
	if err != nil || rate < 0 || rate >= 1 {
		return Config{}, fmt.Errorf("PLATFORM_FEE_RATE invalid: %q", os.Getenv("PLATFORM_FEE_RATE"))
	}
	cfg.PlatformFeeRate = rate

	wd, err := parseWeekday(envOr("PAYOUT_WEEKDAY", "friday"))
	if err != nil {
		return Config{}, err
	}
	cfg.PayoutWeekday = wd

	minPayout, err := strconv.ParseInt(envOr("MIN_PAYOUT_CENTS", "0"), 10, 64)
	if err != nil || minPayout < 0 {
		return Config{}, fmt.Errorf("MIN_PAYOUT_CENTS invalid: %q", os.Getenv("MIN_PAYOUT_CENTS"))
	}
	cfg.MinPayoutCents = minPayout

	window, err := time.ParseDuration(envOr("INTENT_ABANDON_AFTER", "24h"))
	if err != nil || window <= 0 {
		return Config{}, fmt.Errorf("INTENT_ABANDON_AFTER invalid: %q", os.Getenv("INTENT_ABANDON_AFTER"))
	}
	cfg.IntentAbandonAfter = window

	return cfg, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	}
	return 0, fmt.Errorf("PAYOUT_WEEKDAY invalid: %q", s)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
