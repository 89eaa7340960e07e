// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port            int           `yaml:"port"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // plan cache ttl
}

// AuthConfig verifies session tokens minted by the identity provider.
type AuthConfig struct {
	HMACSecret string `yaml:"hmac_secret"`
	CookieName string `yaml:"cookie_name"`
}

type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type PayUConfig struct {
	Key        string `yaml:"key"`
	Salt       string `yaml:"salt"`
	BaseURL    string `yaml:"base_url"`
	SuccessURL string `yaml:"success_url"`
	FailureURL string `yaml:"failure_url"`
}

type PaymentConfig struct {
	Gateway       string       `yaml:"gateway"` // stripe | payu
	Currency      string       `yaml:"currency"`
	StatusPageURL string       `yaml:"status_page_url"`
	Stripe        StripeConfig `yaml:"stripe"`
	PayU          PayUConfig   `yaml:"payu"`
	NoopToken     string       `yaml:"noop_token"`
}

type SweeperConfig struct {
	Interval   time.Duration `yaml:"interval"`
	StaleAfter time.Duration `yaml:"stale_after"`
	BatchSize  int           `yaml:"batch_size"`
}

type CheckoutConfig struct {
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Payment  PaymentConfig  `yaml:"payment"`
	Sweeper  SweeperConfig  `yaml:"sweeper"`
	Checkout CheckoutConfig `yaml:"checkout"`

	Runtime RuntimeConfig `yaml:"-"`
}

const (
	GatewayStripe = "stripe"
	GatewayPayU   = "payu"
	GatewayNoop   = "noop" // local development only
)

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg, dev); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 15 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "session"
	}
	cfg.Payment.Gateway = strings.ToLower(strings.TrimSpace(cfg.Payment.Gateway))
	if cfg.Payment.Currency == "" {
		cfg.Payment.Currency = "INR"
	}
	if cfg.Payment.StatusPageURL == "" {
		cfg.Payment.StatusPageURL = "/account/user/purchase-plan/payment-status"
	}
	if cfg.Payment.PayU.BaseURL == "" {
		cfg.Payment.PayU.BaseURL = "https://test.payu.in/_payment"
	}
	if cfg.Sweeper.Interval <= 0 {
		cfg.Sweeper.Interval = time.Minute
	}
	if cfg.Sweeper.StaleAfter <= 0 {
		cfg.Sweeper.StaleAfter = 24 * time.Hour
	}
	if cfg.Sweeper.BatchSize <= 0 {
		cfg.Sweeper.BatchSize = 200
	}
	if cfg.Checkout.RateLimit <= 0 {
		cfg.Checkout.RateLimit = 5
	}
	if cfg.Checkout.RateWindow <= 0 {
		cfg.Checkout.RateWindow = time.Minute
	}
}

func validate(cfg *Config, dev bool) error {
	if cfg.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if cfg.Auth.HMACSecret == "" {
		return errors.New("auth.hmac_secret is required")
	}
	switch cfg.Payment.Gateway {
	case GatewayStripe:
		if cfg.Payment.Stripe.SecretKey == "" || cfg.Payment.Stripe.WebhookSecret == "" {
			return errors.New("payment.stripe.secret_key and payment.stripe.webhook_secret are required")
		}
	case GatewayPayU:
		p := cfg.Payment.PayU
		if p.Key == "" || p.Salt == "" {
			return errors.New("payment.payu.key and payment.payu.salt are required")
		}
		if p.SuccessURL == "" || p.FailureURL == "" {
			return errors.New("payment.payu.success_url and payment.payu.failure_url are required")
		}
	case GatewayNoop:
		if !dev || cfg.Payment.NoopToken == "" {
			return errors.New("payment.gateway noop needs -dev and payment.noop_token")
		}
	default:
		return fmt.Errorf("payment.gateway must be %q or %q", GatewayStripe, GatewayPayU)
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
