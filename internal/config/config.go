package config

import (
	"fmt"
	"log"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

type Config struct {
	Environment string `mapstructure:"ENV"`
	DBDSN       string `mapstructure:"DB_DSN"`
	HTTPAddr    string `mapstructure:"HTTP_ADDR"`
	AdminToken  string `mapstructure:"ADMIN_TOKEN"`
	Timezone    string `mapstructure:"TIMEZONE"`

	TelegramToken string `mapstructure:"TELEGRAM_TOKEN"`
	AdminChatID   int64  `mapstructure:"ADMIN_CHAT_ID"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUser     string `mapstructure:"SMTP_USER"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	PaymentGateway string `mapstructure:"PAYMENT_GATEWAY"` // stripe, paypal или пусто
	StripeKey      string `mapstructure:"STRIPE_SECRET_KEY"`
	PayPalClientID string `mapstructure:"PAYPAL_CLIENT_ID"`
	PayPalSecret   string `mapstructure:"PAYPAL_SECRET"`
	PayPalSandbox  bool   `mapstructure:"PAYPAL_SANDBOX"`

	PriceWeekday   decimal.Decimal `mapstructure:"PRICE_WEEKDAY"`
	PriceWeekend   decimal.Decimal `mapstructure:"PRICE_WEEKEND"`
	IncludedGuests int             `mapstructure:"INCLUDED_GUESTS"`
	ExcessGuestFee decimal.Decimal `mapstructure:"EXCESS_GUEST_FEE"`
	RefundPolicy   string          `mapstructure:"REFUND_POLICY"`

	JobInterval time.Duration `mapstructure:"JOB_INTERVAL"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return FromEnv(os.Getenv)
}

// FromEnv собирает конфиг из функции чтения переменных
func FromEnv(getenv func(string) string) (*Config, error) {
	p := parser{getenv: getenv}

	cfg := &Config{
		Environment:    p.getString("ENV", "development"),
		DBDSN:          p.getString("DB_DSN", ""),
		HTTPAddr:       p.getString("HTTP_ADDR", ":8080"),
		AdminToken:     p.getString("ADMIN_TOKEN", ""),
		Timezone:       p.getString("TIMEZONE", "Asia/Manila"),
		TelegramToken:  p.getString("TELEGRAM_TOKEN", ""),
		AdminChatID:    p.getInt64("ADMIN_CHAT_ID", 0),
		SMTPHost:       p.getString("SMTP_HOST", ""),
		SMTPPort:       p.getInt("SMTP_PORT", 587),
		SMTPUser:       p.getString("SMTP_USER", ""),
		SMTPPassword:   p.getString("SMTP_PASSWORD", ""),
		SMTPFrom:       p.getString("SMTP_FROM", ""),
		RedisAddr:      p.getString("REDIS_ADDR", ""),
		RedisPassword:  p.getString("REDIS_PASSWORD", ""),
		PaymentGateway: p.getString("PAYMENT_GATEWAY", ""),
		StripeKey:      p.getString("STRIPE_SECRET_KEY", ""),
		PayPalClientID: p.getString("PAYPAL_CLIENT_ID", ""),
		PayPalSecret:   p.getString("PAYPAL_SECRET", ""),
		PayPalSandbox:  p.getBool("PAYPAL_SANDBOX", true),
		PriceWeekday:   p.getDecimal("PRICE_WEEKDAY", 9000),
		PriceWeekend:   p.getDecimal("PRICE_WEEKEND", 12000),
		IncludedGuests: p.getInt("INCLUDED_GUESTS", 15),
		ExcessGuestFee: p.getDecimal("EXCESS_GUEST_FEE", 300),
		RefundPolicy:   p.getString("REFUND_POLICY", "deposit_tier"),
		JobInterval:    p.getDuration("JOB_INTERVAL", time.Hour),
	}

	if p.err != nil {
		return nil, p.err
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.AdminToken == "" {
		return nil, fmt.Errorf("ADMIN_TOKEN is required but not set")
	}
	if _, err := cfg.Location(); err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}
	switch cfg.PaymentGateway {
	case "":
	case "stripe":
		if cfg.StripeKey == "" {
			return nil, fmt.Errorf("STRIPE_SECRET_KEY is required for stripe gateway")
		}
	case "paypal":
		if cfg.PayPalClientID == "" || cfg.PayPalSecret == "" {
			return nil, fmt.Errorf("PAYPAL_CLIENT_ID and PAYPAL_SECRET are required for paypal gateway")
		}
	default:
		return nil, fmt.Errorf("unknown PAYMENT_GATEWAY %q", cfg.PaymentGateway)
	}

	return cfg, nil
}

// Location часовой пояс площадки, по нему считаются ночи и "сегодня"
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

// parser запоминает первую ошибку разбора
type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) getString(key, def string) string {
	if v := p.getenv(key); v != "" {
		return v
	}
	return def
}

func (p *parser) getInt(key string, def int) int {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return n
}

func (p *parser) getInt64(key string, def int64) int64 {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return n
}

func (p *parser) getBool(key string, def bool) bool {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return b
}

func (p *parser) getDuration(key string, def time.Duration) time.Duration {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	d, err := cast.ToDurationE(v)
	if err != nil || d <= 0 {
		p.fail(key, fmt.Errorf("invalid duration %q", v))
		return def
	}
	return d
}

func (p *parser) getDecimal(key string, def int64) decimal.Decimal {
	v := p.getenv(key)
	if v == "" {
		return decimal.NewFromInt(def)
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		p.fail(key, fmt.Errorf("invalid amount %q", v))
		return decimal.NewFromInt(def)
	}
	return d
}

func (p *parser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s: %w", key, err)
	}
}
