package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.PlatformFeeRate != 0.10 {
		t.Fatalf("fee rate default = %v", cfg.PlatformFeeRate)
	}
	if cfg.PayoutWeekday != time.Friday {
		t.Fatalf("payout weekday default = %v", cfg.PayoutWeekday)
	}
	if cfg.Currency != "GBP" {
		t.Fatalf("currency default = %q", cfg.Currency)
	}
	if cfg.IntentAbandonAfter != 24*time.Hour {
		t.Fatalf("abandon window default = %v", cfg.IntentAbandonAfter)
	}
}

func TestFromEnvRejectsBadRate(t *testing.T) {
	t.Setenv("PLATFORM_FEE_RATE", "1.5")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for rate >= 1")
	}
	t.Setenv("PLATFORM_FEE_RATE", "abc")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for non-numeric rate")
	}
}

func TestFromEnvWeekdayParsing(t *testing.T) {
	t.Setenv("PAYOUT_WEEKDAY", "Monday")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.PayoutWeekday != time.Monday {
		t.Fatalf("weekday = %v", cfg.PayoutWeekday)
	}

	t.Setenv("PAYOUT_WEEKDAY", "someday")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for unknown weekday")
	}
}
