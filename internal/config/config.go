package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

// Environment variables with defaults.
//
// The merchant credential defaults are the shared UAT sandbox credentials; real
// deployments must override MERCHANT_ID, APP_ID, KEY_SERIAL_NO and point
// SIGNING_KEY_PATH at their own key material.
type Environment struct {
	Environment string `env:"ENVIRONMENT,default=dev"`
	LogLevel    string `env:"LOG_LEVEL,default=debug"`

	// merchant payment API (order placement + status query)
	MerchantID     string        `env:"MERCHANT_ID,default=MG3518zo1Wd0XlXZzn"`
	AppID          string        `env:"APP_ID,default=AX35182510130000001000103500"`
	KeySerialNo    string        `env:"KEY_SERIAL_NO,default=ms8I46zJeW"`
	SigningKeyPath string        `env:"SIGNING_KEY_PATH"`
	PaymentBaseURL string        `env:"PAYMENT_BASE_URL,default=https://appleseed-uat-api.joypaydev.com"`
	NotifyURL      string        `env:"NOTIFY_URL"`
	RedirectURL    string        `env:"REDIRECT_URL"`
	OrderExpiry    time.Duration `env:"ORDER_EXPIRY,default=30m"`

	// VAS aggregator
	VASBaseURL      string        `env:"VAS_BASE_URL,default=https://sandbox-dev.appletreepayments.com"`
	VASAPIVersion   string        `env:"VAS_API_VERSION,default=V2"`
	VASMerchantID   string        `env:"VAS_MERCHANT_ID,default=23de4621-ea24-433f-9b45-dc1e383d8c2b"`
	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL,default=5m"`

	// outbound HTTP + bridge invocation
	HTTPTimeout       time.Duration `env:"HTTP_TIMEOUT,default=15s"`
	BridgeCallTimeout time.Duration `env:"BRIDGE_CALL_TIMEOUT,default=30s"`

	// sandbox server settings
	Host                  string        `env:"HOST,default=0.0.0.0"`
	Port                  int           `env:"PORT,default=8080"`
	ReadTimeout           time.Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout          time.Duration `env:"WRITE_TIMEOUT,default=15s"`
	IdleTimeout           time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	RateLimitRPS          int32         `env:"RATE_LIMIT_RPS,default=100"`
	RateLimitBurst        int32         `env:"RATE_LIMIT_BURST,default=200"`
	MaxRequestBytes       int64         `env:"MAX_REQUEST_BYTES,default=1048576"`

	// sandbox signature verification - path to the merchant public key (JWK or
	// PEM). If unset the sandbox accepts unverified requests (dev only).
	MerchantPublicKeyPath string `env:"MERCHANT_PUBLIC_KEY_PATH"`
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"prod":    true,
	"staging": true,
}

// NewConfig loads environment variables and returns an Environment struct that contains the values
func NewConfig() (*Environment, error) {
	var cfg Environment

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateConfig checks for invalid env variable combinations
func validateConfig(cfg *Environment) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}
	if cfg.CatalogCacheTTL <= 0 {
		return fmt.Errorf("CATALOG_CACHE_TTL must be greater than zero")
	}
	if cfg.BridgeCallTimeout <= 0 {
		return fmt.Errorf("BRIDGE_CALL_TIMEOUT must be greater than zero")
	}
	if cfg.OrderExpiry <= 0 {
		return fmt.Errorf("ORDER_EXPIRY must be greater than zero")
	}
	if cfg.MaxRequestBytes < 1024 {
		return fmt.Errorf("MAX_REQUEST_BYTES must be at least 1024")
	}
	return nil
}
