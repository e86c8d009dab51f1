package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	Env      string `mapstructure:"ONRAMP_ENV"`
	HTTPAddr string `mapstructure:"ONRAMP_HTTP_ADDR"`

	Server         ServerConfig         `mapstructure:",squash"`
	BinanceConnect BinanceConnectConfig `mapstructure:",squash"`
	Transak        TransakConfig        `mapstructure:",squash"`
	GeoIP          GeoIPConfig          `mapstructure:",squash"`
	Refresh        RefreshConfig        `mapstructure:",squash"`
}

type ServerConfig struct {
	RequestTimeout     time.Duration `mapstructure:"ONRAMP_REQUEST_TIMEOUT"`
	CORSAllowedOrigins []string      `mapstructure:"ONRAMP_CORS_ALLOWED_ORIGINS"`
	OutboundRPS        float64       `mapstructure:"ONRAMP_OUTBOUND_RPS"`
	OutboundBurst      int           `mapstructure:"ONRAMP_OUTBOUND_BURST"`
}

type BinanceConnectConfig struct {
	Enabled      bool   `mapstructure:"ONRAMP_BINANCE_ENABLED"`
	BaseURL      string `mapstructure:"ONRAMP_BINANCE_URL"`
	CheckoutURL  string `mapstructure:"ONRAMP_BINANCE_CHECKOUT_URL"`
	MerchantCode string `mapstructure:"ONRAMP_BINANCE_MERCHANT_CODE"`
	// PrivateKeyFile holds the PEM merchant key used to sign requests.
	PrivateKeyFile string `mapstructure:"ONRAMP_BINANCE_PRIVATE_KEY_FILE"`
	// ProxyURL routes Binance Connect traffic through a fixed egress IP.
	ProxyURL string `mapstructure:"ONRAMP_BINANCE_PROXY_URL"`
}

type TransakConfig struct {
	Enabled     bool   `mapstructure:"ONRAMP_TRANSAK_ENABLED"`
	BaseURL     string `mapstructure:"ONRAMP_TRANSAK_URL"`
	CheckoutURL string `mapstructure:"ONRAMP_TRANSAK_CHECKOUT_URL"`
	APIKey      string `mapstructure:"ONRAMP_TRANSAK_API_KEY"`
}

type GeoIPConfig struct {
	LookupURL      string `mapstructure:"ONRAMP_GEOIP_URL"`
	DefaultCountry string `mapstructure:"ONRAMP_GEOIP_DEFAULT_COUNTRY"`
}

type RefreshConfig struct {
	Interval     time.Duration `mapstructure:"ONRAMP_REFRESH_INTERVAL"`
	BuildTimeout time.Duration `mapstructure:"ONRAMP_REFRESH_BUILD_TIMEOUT"`
}

func loadDotEnvFiles() {
	candidates := []string{
		".env",
		filepath.Join("..", ".env"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			_ = gotenv.Load(path) // env vars already set take precedence
		}
	}
}

func Load() (*Config, error) {
	loadDotEnvFiles()

	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("ONRAMP_ENV", "dev")
	viper.SetDefault("ONRAMP_HTTP_ADDR", ":8080")
	viper.SetDefault("ONRAMP_REQUEST_TIMEOUT", "10s")
	viper.SetDefault("ONRAMP_CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("ONRAMP_OUTBOUND_RPS", 0.0)
	viper.SetDefault("ONRAMP_OUTBOUND_BURST", 1)

	viper.SetDefault("ONRAMP_BINANCE_ENABLED", true)
	viper.SetDefault("ONRAMP_BINANCE_URL", "https://sandbox.bifinitypay.com")
	viper.SetDefault("ONRAMP_BINANCE_CHECKOUT_URL", "https://www.binancecnt.com/en/pre-connect")
	// keys without a meaningful default still need registering so
	// AutomaticEnv picks them up during Unmarshal
	viper.SetDefault("ONRAMP_BINANCE_MERCHANT_CODE", "")
	viper.SetDefault("ONRAMP_BINANCE_PRIVATE_KEY_FILE", "")
	viper.SetDefault("ONRAMP_BINANCE_PROXY_URL", "")

	viper.SetDefault("ONRAMP_TRANSAK_ENABLED", true)
	viper.SetDefault("ONRAMP_TRANSAK_URL", "https://staging-api.transak.com/api/v2")
	viper.SetDefault("ONRAMP_TRANSAK_CHECKOUT_URL", "https://global.transak.com/")
	viper.SetDefault("ONRAMP_TRANSAK_API_KEY", "")

	viper.SetDefault("ONRAMP_GEOIP_URL", "https://api.iplocation.net/")
	viper.SetDefault("ONRAMP_GEOIP_DEFAULT_COUNTRY", "GB")

	viper.SetDefault("ONRAMP_REFRESH_INTERVAL", "15m")
	viper.SetDefault("ONRAMP_REFRESH_BUILD_TIMEOUT", "30s")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations that cannot serve at all. Per-provider
// identity gaps are not fatal here; callers disable the affected provider
// with a logged warning instead.
func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("ONRAMP_HTTP_ADDR must not be empty")
	}
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("ONRAMP_REFRESH_INTERVAL must be positive")
	}
	if c.Refresh.BuildTimeout <= 0 {
		return fmt.Errorf("ONRAMP_REFRESH_BUILD_TIMEOUT must be positive")
	}
	if c.GeoIP.DefaultCountry == "" {
		return fmt.Errorf("ONRAMP_GEOIP_DEFAULT_COUNTRY must not be empty")
	}
	return nil
}

// BinanceConnectReady reports whether the Binance Connect provider has the
// identity configuration it needs.
func (c *Config) BinanceConnectReady() bool {
	return c.BinanceConnect.MerchantCode != "" && c.BinanceConnect.PrivateKeyFile != ""
}

// TransakReady reports whether the Transak provider has the identity
// configuration it needs.
func (c *Config) TransakReady() bool {
	return c.Transak.APIKey != ""
}
