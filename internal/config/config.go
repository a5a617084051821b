// Package config содержит логику чтения конфигурации процесса.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации движка лояльности и комиссий.
// Бизнес-правила (уровни, ставки, пороги) сюда не входят: они читаются
// из хранилища на каждый запрос.
type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	DatabaseURI   string `env:"DATABASE_URI"`
	AuthSecret    string `env:"AUTH_SECRET"`
	WebhookToken  string `env:"WEBHOOK_TOKEN"`
	StorefrontURL string `env:"STOREFRONT_URL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envAuthSecret := cfg.AuthSecret
	envWebhookToken := cfg.WebhookToken
	envStorefrontURL := cfg.StorefrontURL

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret key for auth cookies")
	flag.StringVar(&cfg.WebhookToken, "t", "", "shared token for storefront webhooks")
	flag.StringVar(&cfg.StorefrontURL, "n", "", "storefront base URL for notifications")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}
	if envWebhookToken != "" {
		cfg.WebhookToken = envWebhookToken
	}
	if envStorefrontURL != "" {
		cfg.StorefrontURL = envStorefrontURL
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}
