package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	if cfg.DBPath != "canaryd.db" {
		t.Errorf("DBPath = %q, want canaryd.db", cfg.DBPath)
	}
	if cfg.TokenTTL != 7*24*time.Hour {
		t.Errorf("TokenTTL = %v, want 168h", cfg.TokenTTL)
	}
	if cfg.RateLimitMax != 20 || cfg.RateLimitWindow != time.Minute {
		t.Errorf("rate limit = %d/%v, want 20/1m", cfg.RateLimitMax, cfg.RateLimitWindow)
	}
	if cfg.TrustProxy {
		t.Error("TrustProxy defaults to true, want false")
	}
	if cfg.EnrichTimeout != 2*time.Second {
		t.Errorf("EnrichTimeout = %v, want 2s", cfg.EnrichTimeout)
	}
	if cfg.BodyPreviewBytes != 2048 {
		t.Errorf("BodyPreviewBytes = %d, want 2048", cfg.BodyPreviewBytes)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CANARYD_DB", "/tmp/x.db")
	t.Setenv("CANARYD_TOKEN_TTL_SECONDS", "3600")
	t.Setenv("CANARYD_RATE_LIMIT_MAX", "3")
	t.Setenv("CANARYD_RATE_LIMIT_WINDOW_SECONDS", "30")
	t.Setenv("CANARYD_TRUST_PROXY", "true")
	t.Setenv("CANARYD_ENRICH_ASYNC", "1")
	t.Setenv("CANARYD_ALERT_WEBHOOK", "https://hooks.example.com/x")

	cfg := FromEnv()

	if cfg.DBPath != "/tmp/x.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.TokenTTL != time.Hour {
		t.Errorf("TokenTTL = %v, want 1h", cfg.TokenTTL)
	}
	if cfg.RateLimitMax != 3 || cfg.RateLimitWindow != 30*time.Second {
		t.Errorf("rate limit = %d/%v, want 3/30s", cfg.RateLimitMax, cfg.RateLimitWindow)
	}
	if !cfg.TrustProxy {
		t.Error("TrustProxy not overridden")
	}
	if !cfg.EnrichAsync {
		t.Error("EnrichAsync not overridden")
	}
	if cfg.WebhookURL != "https://hooks.example.com/x" {
		t.Errorf("WebhookURL = %q", cfg.WebhookURL)
	}
}

func TestFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("CANARYD_RATE_LIMIT_MAX", "lots")
	t.Setenv("CANARYD_TOKEN_TTL_SECONDS", "-5")

	cfg := FromEnv()

	if cfg.RateLimitMax != 20 {
		t.Errorf("RateLimitMax = %d, want default 20", cfg.RateLimitMax)
	}
	if cfg.TokenTTL != 7*24*time.Hour {
		t.Errorf("TokenTTL = %v, want default", cfg.TokenTTL)
	}
}
