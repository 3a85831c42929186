package config

import (
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Environment != "dev" {
		t.Errorf("Environment = %q, want dev", cfg.Environment)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.VASAPIVersion != "V2" {
		t.Errorf("VASAPIVersion = %q, want V2", cfg.VASAPIVersion)
	}
	if cfg.CatalogCacheTTL != 5*time.Minute {
		t.Errorf("CatalogCacheTTL = %v, want 5m", cfg.CatalogCacheTTL)
	}
	if cfg.BridgeCallTimeout != 30*time.Second {
		t.Errorf("BridgeCallTimeout = %v, want 30s", cfg.BridgeCallTimeout)
	}
}

func TestNewConfigOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "prod")
	t.Setenv("PORT", "9090")
	t.Setenv("MERCHANT_ID", "MG-OVERRIDE")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Environment != "prod" || cfg.Port != 9090 || cfg.MerchantID != "MG-OVERRIDE" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestNewConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "invalid environment", key: "ENVIRONMENT", value: "production"},
		{name: "port too high", key: "PORT", value: "70000"},
		{name: "port zero", key: "PORT", value: "0"},
		{name: "zero cache ttl", key: "CATALOG_CACHE_TTL", value: "0s"},
		{name: "zero bridge timeout", key: "BRIDGE_CALL_TIMEOUT", value: "0s"},
		{name: "zero order expiry", key: "ORDER_EXPIRY", value: "0s"},
		{name: "tiny request limit", key: "MAX_REQUEST_BYTES", value: "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := NewConfig(); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
