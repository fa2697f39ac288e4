package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/shopspring/decimal"
)

type HTTPServer struct {
	Addr string `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
}

type Database struct {
	Host            string        `yaml:"PG_HOST" env:"PG_HOST" env-default:"localhost"`
	Port            string        `yaml:"PG_PORT" env:"PG_PORT" env-default:"5432"`
	User            string        `yaml:"PG_USER" env:"PG_USER" env-required:"true"`
	Password        string        `yaml:"PG_PASSWORD" env:"PG_PASSWORD" env-required:"true"`
	Name            string        `yaml:"PG_DBNAME" env:"PG_DBNAME" env-required:"true"`
	SSLMode         string        `yaml:"PG_SSLMODE" env:"PG_SSLMODE" env-default:"require"`
	MaxOpenConns    int           `yaml:"MAX_OPEN_CONNS" env:"PG_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns    int           `yaml:"MAX_IDLE_CONNS" env:"PG_MAX_IDLE_CONNS" env-default:"25"`
	ConnMaxLifetime time.Duration `yaml:"CONN_MAX_LIFETIME" env:"PG_CONN_MAX_LIFETIME" env-default:"5m"`
	ConnMaxIdleTime time.Duration `yaml:"CONN_MAX_IDLE_TIME" env:"PG_CONN_MAX_IDLE_TIME" env-default:"1m"`
	RunMigrations   bool          `yaml:"RUN_MIGRATIONS" env:"PG_RUN_MIGRATIONS" env-default:"true"`
	QueryTimeout    time.Duration `yaml:"QUERY_TIMEOUT" env:"PG_QUERY_TIMEOUT" env-default:"5s"`
}

type RedisConnect struct {
	Host     string `yaml:"REDIS_HOST" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"REDIS_PORT" env:"REDIS_PORT" env-default:"6379"`
	Username string `yaml:"REDIS_USER" env:"REDIS_USER" env-required:"true"`
	Password string `yaml:"REDIS_PASSWORD" env:"REDIS_PASSWORD" env-required:"true"`
	DB       int    `yaml:"REDIS_DB" env:"REDIS_DB" env-default:"0"`
}

type RateConfig struct {
	MaxAttempts int64         `yaml:"MAX_ATTEMPTS" env:"MAX_ATTEMPTS" env-default:"5"`
	WindowSize  time.Duration `yaml:"WINDOW_SIZE" env:"WINDOW_SIZE" env-default:"15s"`
}

type Stripe struct {
	APIKey              string   `yaml:"STRIPE_API_KEY" env:"STRIPE_API_KEY" env-default:""`
	WebhookSecret       string   `yaml:"STRIPE_WEBHOOK_SECRET" env:"STRIPE_WEBHOOK_SECRET" env-default:""`
	PaymentMethods      []string `yaml:"STRIPE_PAYMENT_METHODS" env:"STRIPE_PAYMENT_METHODS" env-default:"card,bank_transfer"`
	SupportedCurrencies []string `yaml:"STRIPE_SUPPORTED_CURRENCIES" env:"STRIPE_SUPPORTED_CURRENCIES" env-default:"inr,usd,eur"`
}

// Payway is the generic gateway callback (transaction_id/status/order_id payloads).
type Payway struct {
	WebhookSecret string `yaml:"PAYWAY_WEBHOOK_SECRET" env:"PAYWAY_WEBHOOK_SECRET" env-default:""`
}

type SendGrid struct {
	APIKey     string `yaml:"API_KEY" env:"SENDGRID_API_KEY" env-default:""`
	FromEmail  string `yaml:"FROM_EMAIL" env:"SENDGRID_FROM_EMAIL" env-default:"orders@example.com"`
	FromName   string `yaml:"FROM_NAME" env:"SENDGRID_FROM_NAME" env-default:"Storefront"`
	SMSEnabled bool   `yaml:"SMSENABLED" env:"SENDGRID_SMS_ENABLED" env-default:"false"`
}

type Security struct {
	JWTKey         string `yaml:"JWT_KEY" env:"JWT_KEY" env-required:"true"`
	JWTExpiryHours int    `yaml:"JWT_EXPIRY_HOURS" env:"JWT_EXPIRY_HOURS" env-default:"24"`
}

type OTel struct {
	ServiceName      string  `yaml:"SERVICE_NAME" env:"OTEL_SERVICE_NAME" env-default:"storefront-checkout"`
	ExporterEndpoint string  `yaml:"EXPORTER_ENDPOINT" env:"OTEL_EXPORTER_ENDPOINT" env-default:""`
	SamplerRatio     float64 `yaml:"SAMPLER_RATIO" env:"OTEL_SAMPLER_RATIO" env-default:"1.0"`
}

type CacheConfig struct {
	DefaultTTL time.Duration `yaml:"default_ttl" env:"CACHE_DEFAULT_TTL" env-default:"5m"`
}

type Kafka struct {
	Brokers []string `yaml:"KAFKA_BROKERS" env:"KAFKA_BROKERS" env-default:""`
	Topic   string   `yaml:"KAFKA_TOPIC" env:"KAFKA_TOPIC" env-default:"storefront.order-events"`
}

// Checkout holds the pricing policy and the timeouts of the reconciliation core.
type Checkout struct {
	Currency              string        `yaml:"CURRENCY" env:"CHECKOUT_CURRENCY" env-default:"usd"`
	TaxRate               string        `yaml:"TAX_RATE" env:"CHECKOUT_TAX_RATE" env-default:"0.10"`
	ShippingFlat          string        `yaml:"SHIPPING_FLAT" env:"CHECKOUT_SHIPPING_FLAT" env-default:"5.00"`
	FreeShippingThreshold string        `yaml:"FREE_SHIPPING_THRESHOLD" env:"CHECKOUT_FREE_SHIPPING_THRESHOLD" env-default:"100.00"`
	GatewayTimeout        time.Duration `yaml:"GATEWAY_TIMEOUT" env:"CHECKOUT_GATEWAY_TIMEOUT" env-default:"10s"`
	LockTTL               time.Duration `yaml:"LOCK_TTL" env:"CHECKOUT_LOCK_TTL" env-default:"10s"`
	EmitterBuffer         int           `yaml:"EMITTER_BUFFER" env:"CHECKOUT_EMITTER_BUFFER" env-default:"256"`
	EmitterWorkers        int           `yaml:"EMITTER_WORKERS" env:"CHECKOUT_EMITTER_WORKERS" env-default:"4"`
	EmitterTimeout        time.Duration `yaml:"EMITTER_TIMEOUT" env:"CHECKOUT_EMITTER_TIMEOUT" env-default:"10s"`
}

type Config struct {
	Env          string       `yaml:"env" env:"ENV" env-required:"true"`
	HTTPServer   HTTPServer   `yaml:"http_server"`
	Database     Database     `yaml:"database"`
	RedisConnect RedisConnect `yaml:"redis"`
	RateConfig   RateConfig   `yaml:"rateConfig"`
	Stripe       Stripe       `yaml:"stripe"`
	Payway       Payway       `yaml:"payway"`
	SendGrid     SendGrid     `yaml:"sendgrid"`
	Security     Security     `yaml:"security"`
	OTel         OTel         `yaml:"otel"`
	Cache        CacheConfig  `yaml:"cache"`
	Kafka        Kafka        `yaml:"kafka"`
	Checkout     Checkout     `yaml:"checkout"`
}

func MustLoad() *Config {

	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "gets the config flag value")
		flag.Parse()

		configPath = *flags

		if configPath == "" {
			configPath = "config/local.yaml"
		}
	}

	cfg, err := LoadConfigFromPath(configPath)
	if err != nil {
		log.Fatalf("can not read config file: %s", err.Error())
	}

	return cfg
}

func LoadConfigFromPath(configPath string) (*Config, error) {

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if _, err := cfg.Checkout.Pricing(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (d *Database) GetDSN() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

func (r *RedisConnect) GetDSN() string {
	return fmt.Sprintf("redis://%s:%s@%s:%s", r.Username, r.Password, r.Host, r.Port)
}

// PricingValues is the parsed, decimal form of the checkout pricing policy.
type PricingValues struct {
	TaxRate               decimal.Decimal
	ShippingFlat          decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

func (c *Checkout) Pricing() (PricingValues, error) {
	var (
		p   PricingValues
		err error
	)

	if p.TaxRate, err = decimal.NewFromString(c.TaxRate); err != nil {
		return p, fmt.Errorf("invalid checkout TAX_RATE %q: %w", c.TaxRate, err)
	}

	if p.ShippingFlat, err = decimal.NewFromString(c.ShippingFlat); err != nil {
		return p, fmt.Errorf("invalid checkout SHIPPING_FLAT %q: %w", c.ShippingFlat, err)
	}

	if p.FreeShippingThreshold, err = decimal.NewFromString(c.FreeShippingThreshold); err != nil {
		return p, fmt.Errorf("invalid checkout FREE_SHIPPING_THRESHOLD %q: %w", c.FreeShippingThreshold, err)
	}

	if p.TaxRate.IsNegative() || p.ShippingFlat.IsNegative() || p.FreeShippingThreshold.IsNegative() {
		return p, fmt.Errorf("checkout pricing values must not be negative")
	}

	return p, nil
}
