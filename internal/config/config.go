// Package config содержит логику чтения конфигурации платёжного сервиса.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress       = "localhost:8080"
	defaultCurrency         = "usd"
	defaultSessionScanLimit = 10
)

// Config содержит параметры конфигурации платёжного сервиса.
type Config struct {
	RunAddress          string `env:"RUN_ADDRESS"`
	DatabaseURI         string `env:"DATABASE_URI"`
	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	Currency            string `env:"PAYMENT_CURRENCY"`
	PublicBaseURL       string `env:"PUBLIC_BASE_URL"`
	SessionScanLimit    int64  `env:"SESSION_SCAN_LIMIT"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fromEnv := *cfg

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.StripeSecretKey, "k", "", "payment provider secret key")
	flag.StringVar(&cfg.StripeWebhookSecret, "w", "", "webhook signing secret")
	flag.StringVar(&cfg.Currency, "c", defaultCurrency, "checkout currency code")
	flag.StringVar(&cfg.PublicBaseURL, "u", "", "storefront base URL for checkout redirects")
	flag.Int64Var(&cfg.SessionScanLimit, "l", defaultSessionScanLimit, "number of recent sessions scanned by payment verification")

	flag.Parse()

	if fromEnv.RunAddress != "" {
		cfg.RunAddress = fromEnv.RunAddress
	}
	if fromEnv.DatabaseURI != "" {
		cfg.DatabaseURI = fromEnv.DatabaseURI
	}
	if fromEnv.StripeSecretKey != "" {
		cfg.StripeSecretKey = fromEnv.StripeSecretKey
	}
	if fromEnv.StripeWebhookSecret != "" {
		cfg.StripeWebhookSecret = fromEnv.StripeWebhookSecret
	}
	if fromEnv.Currency != "" {
		cfg.Currency = fromEnv.Currency
	}
	if fromEnv.PublicBaseURL != "" {
		cfg.PublicBaseURL = fromEnv.PublicBaseURL
	}
	if fromEnv.SessionScanLimit != 0 {
		cfg.SessionScanLimit = fromEnv.SessionScanLimit
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}
	if cfg.SessionScanLimit <= 0 {
		return nil, fmt.Errorf("session scan limit must be positive, got %d", cfg.SessionScanLimit)
	}

	return cfg, nil
}
