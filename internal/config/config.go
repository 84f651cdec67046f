package config

import (
	"errors"
	"fmt"
	"os"
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

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// APIConfig configures the public checkout API.
type APIConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
}

// AdminConfig configures the operator console API.
type AdminConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

// PaymentConfig holds the receiving endpoints for each rail and the local
// market conversion. Amounts quoted in LYD are presentational; the ledger is
// always USD cents.
type PaymentConfig struct {
	USDTAddress  string `yaml:"usdt_address"`
	LibyanaPhone string `yaml:"libyana_phone"`
	MadarPhone   string `yaml:"madar_phone"`
	// USDToLYDMilli is the conversion rate in milli-LYD per USD
	// (e.g. 4850 = 4.85 LYD/USD). Used only when a tier has no explicit
	// local price.
	USDToLYDMilli int64 `yaml:"usd_to_lyd_milli"`
	// LocalCountry is the ISO country code of the local mobile-money market.
	LocalCountry string `yaml:"local_country"`
	// Window is how long a PENDING purchase stays payable.
	Window time.Duration `yaml:"window"`
}

type SweepConfig struct {
	Interval time.Duration `yaml:"interval"`
	Batch    int           `yaml:"batch"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	API      APIConfig      `yaml:"api"`
	Admin    AdminConfig    `yaml:"admin"`
	Payment  PaymentConfig  `yaml:"payment"`
	Sweep    SweepConfig    `yaml:"sweep"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
	if cfg.Admin.Port == 0 {
		cfg.Admin.Port = 8081
	}
	if cfg.Payment.Window <= 0 {
		cfg.Payment.Window = 30 * time.Minute
	}
	if cfg.Payment.LocalCountry == "" {
		cfg.Payment.LocalCountry = "LY"
	}
	if cfg.Sweep.Interval <= 0 {
		cfg.Sweep.Interval = time.Minute
	}
	if cfg.Sweep.Batch <= 0 {
		cfg.Sweep.Batch = 100
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = time.Hour
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.API.JWTSecret == "" {
		return nil, errors.New("api.jwt_secret is required")
	}
	if cfg.Payment.USDTAddress == "" {
		return nil, errors.New("payment.usdt_address is required")
	}
	if cfg.Payment.LibyanaPhone == "" || cfg.Payment.MadarPhone == "" {
		return nil, errors.New("payment.libyana_phone and payment.madar_phone are required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
