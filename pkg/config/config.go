package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const EnvPrefix = "storefront"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	Cart     CartConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Payments PaymentsConfig
	Orders   OrdersConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// CartConfig carries the pricing rules applied on every totals recomputation.
type CartConfig struct {
	MaxQuantity           int             `envconfig:"STOREFRONT_CART_MAX_QUANTITY" default:"10"`
	TaxRate               decimal.Decimal `envconfig:"STOREFRONT_CART_TAX_RATE" default:"0.08"`
	FreeShippingThreshold decimal.Decimal `envconfig:"STOREFRONT_CART_FREE_SHIPPING_THRESHOLD" default:"100"`
}

func (c CartConfig) validate() error {
	if c.MaxQuantity < 1 {
		return fmt.Errorf("cart max quantity must be at least 1")
	}
	if c.TaxRate.IsNegative() {
		return fmt.Errorf("cart tax rate cannot be negative")
	}
	if c.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("free shipping threshold cannot be negative")
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PaymentsConfig struct {
	BaseURL string        `envconfig:"STOREFRONT_PAYMENTS_BASE_URL" required:"true"`
	APIKey  string        `envconfig:"STOREFRONT_PAYMENTS_API_KEY" required:"true"`
	Timeout time.Duration `envconfig:"STOREFRONT_PAYMENTS_TIMEOUT" default:"15s"`
}

type OrdersConfig struct {
	BaseURL string        `envconfig:"STOREFRONT_ORDERS_BASE_URL" required:"true"`
	APIKey  string        `envconfig:"STOREFRONT_ORDERS_API_KEY" required:"true"`
	Timeout time.Duration `envconfig:"STOREFRONT_ORDERS_TIMEOUT" default:"15s"`
}
